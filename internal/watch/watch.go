// Package watch implements the optional reactive incremental-update
// mode described in SPEC_FULL.md §9: an fsnotify-based, debounced
// directory watcher adapted from the teacher's internal/sync/watcher.go,
// rewired to drive cache.Manager.UpdateIncremental on each flush
// instead of the teacher's sqlite sync engine. It keeps the index warm
// between explicit reindex calls; it is enrichment, not required by
// any invariant in spec.md.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ticpu/claude-conversation-search-mcp/internal/applog"
	"github.com/ticpu/claude-conversation-search-mcp/internal/cache"
	"github.com/ticpu/claude-conversation-search-mcp/internal/index"
	"github.com/ticpu/claude-conversation-search-mcp/internal/lock"
)

// Watcher watches the corpus's projects/ tree for .jsonl writes and
// debounces them into batched incremental reindex sweeps.
type Watcher struct {
	writer   *index.Writer
	cacheMgr *cache.Manager
	locks    *lock.Manager

	watcher  *fsnotify.Watcher
	debounce time.Duration
	pending  map[string]time.Time
	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New builds a Watcher over an already-open writer/cache/lock stack,
// debouncing filesystem events by debounce before each flush.
func New(writer *index.Writer, cacheMgr *cache.Manager, locks *lock.Manager, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		writer:   writer,
		cacheMgr: cacheMgr,
		locks:    locks,
		watcher:  fsw,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	return w, nil
}

// WatchRecursive walks root and adds every subdirectory to the watch
// list, returning the number watched and the number that failed (e.g.
// permission-denied leaves), matching the teacher's tolerant walk.
func (w *Watcher) WatchRecursive(root string) (watched int, unwatched int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := w.watcher.Add(path); addErr != nil {
				unwatched++
			} else {
				watched++
			}
		}
		return nil
	})
	return watched, unwatched, err
}

// Start begins processing filesystem events in a goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop halts the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.watcher.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			applog.L().Warnw("watch error", "error", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		w.watchIfDir(event.Name)
	}
	if !strings.HasSuffix(event.Name, ".jsonl") {
		return
	}

	w.mu.Lock()
	w.pending[event.Name] = w.now()
	w.mu.Unlock()
}

func (w *Watcher) watchIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	_ = w.watcher.Add(path)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}

	now := w.now()
	var ready []string
	for path, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return
	}

	handle, err := w.locks.TryExclusive()
	if err != nil {
		applog.L().Debugw("watch flush skipped, lock contended", "files", len(ready))
		return
	}
	defer handle.Close()

	if err := w.cacheMgr.UpdateIncremental(w.writer, ready); err != nil {
		applog.L().Warnw("watch flush failed", "error", err)
		return
	}
	applog.L().Infow("watch: reindexed changed files", "count", len(ready))
}
