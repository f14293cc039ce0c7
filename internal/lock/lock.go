// Package lock implements component F: advisory shared/exclusive locking
// over a sentinel file in the index directory, used to serialize writers
// and let readers proceed concurrently. Non-blocking, fail-fast
// acquisition; deterministic release on Close.
package lock

import (
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/ticpu/claude-conversation-search-mcp/internal/apperr"
)

// Handle is an acquired (or disabled) lock. Callers must call Close to
// release it deterministically, typically via defer.
type Handle struct {
	fl       *flock.Flock
	disabled bool
}

// Manager constructs shared/exclusive lock handles over one sentinel
// file. Locking can be globally disabled for single-process embedded
// use (spec.md §6 locking.enabled).
type Manager struct {
	path    string
	enabled bool
}

// NewManager returns a Manager guarding the sentinel file
// "<indexDir>/.lock". When enabled is false, every acquisition
// succeeds immediately and Close is a no-op — matching
// original_source/src/shared/lock.rs's "dummy lock when disabled"
// behavior.
func NewManager(indexDir string, enabled bool) *Manager {
	return NewManagerAt(filepath.Join(indexDir, ".lock"), enabled)
}

// NewManagerAt returns a Manager guarding an explicit sentinel file
// path, for locking.lock_file overriding the default "<indexDir>/.lock"
// location (e.g. a lock shared across index directories).
func NewManagerAt(path string, enabled bool) *Manager {
	return &Manager{path: path, enabled: enabled}
}

// TryShared attempts to acquire a shared (read) lock, failing fast if an
// exclusive lock is currently held elsewhere.
func (m *Manager) TryShared() (*Handle, error) {
	if !m.enabled {
		return &Handle{disabled: true}, nil
	}
	fl := flock.New(m.path)
	ok, err := fl.TryRLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrLockContention
	}
	return &Handle{fl: fl}, nil
}

// TryExclusive attempts to acquire an exclusive (write) lock, failing
// fast if any lock — shared or exclusive — is currently held elsewhere.
func (m *Manager) TryExclusive() (*Handle, error) {
	if !m.enabled {
		return &Handle{disabled: true}, nil
	}
	fl := flock.New(m.path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrLockContention
	}
	return &Handle{fl: fl}, nil
}

// CanLock reports whether an exclusive lock could currently be
// acquired, without actually taking it, for opportunistic callers
// that want to skip quietly rather than contend.
func (m *Manager) CanLock() bool {
	if !m.enabled {
		return true
	}
	fl := flock.New(m.path)
	ok, err := fl.TryLock()
	if err != nil || !ok {
		return false
	}
	_ = fl.Unlock()
	return true
}

// Close releases the lock. Safe to call on a disabled handle.
func (h *Handle) Close() error {
	if h.disabled || h.fl == nil {
		return nil
	}
	return h.fl.Unlock()
}
