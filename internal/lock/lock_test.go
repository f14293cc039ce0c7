package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticpu/claude-conversation-search-mcp/internal/apperr"
)

func TestSharedLocksConcurrent(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, true)

	h1, err := m.TryShared()
	require.NoError(t, err)
	defer h1.Close()

	h2, err := m.TryShared()
	require.NoError(t, err)
	defer h2.Close()
}

func TestExclusiveBlocksExclusive(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, true)

	h1, err := m.TryExclusive()
	require.NoError(t, err)
	defer h1.Close()

	_, err = m.TryExclusive()
	assert.ErrorIs(t, err, apperr.ErrLockContention)
}

func TestExclusiveReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, true)

	h1, err := m.TryExclusive()
	require.NoError(t, err)
	require.NoError(t, h1.Close())

	h2, err := m.TryExclusive()
	require.NoError(t, err)
	defer h2.Close()
}

func TestDisabledManagerNeverContends(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, false)

	h1, err := m.TryExclusive()
	require.NoError(t, err)
	h2, err := m.TryExclusive()
	require.NoError(t, err)

	assert.NoError(t, h1.Close())
	assert.NoError(t, h2.Close())
}

func TestSentinelPath(t *testing.T) {
	m := NewManager("/foo/bar", true)
	assert.Equal(t, filepath.Join("/foo/bar", ".lock"), m.path)
}
