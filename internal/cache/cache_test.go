package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticpu/claude-conversation-search-mcp/internal/index"
	"github.com/ticpu/claude-conversation-search-mcp/internal/parser"
)

const fixtureJSONL = `{"uuid":"u1","sessionId":"aabbccdd-1122-3344-5566-778899001122","type":"user","timestamp":"2025-01-01T10:00:00Z","cwd":"/home/me/proj","message":{"content":"hello rust world"}}
{"uuid":"u2","sessionId":"aabbccdd-1122-3344-5566-778899001122","type":"assistant","timestamp":"2025-01-01T10:00:01Z","message":{"content":"sure, here is code"}}
`

func setup(t *testing.T) (*Manager, *index.Writer, string) {
	t.Helper()
	dir := t.TempDir()
	indexDir := filepath.Join(dir, "index")
	w, err := index.Create(indexDir)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	m, err := NewManager(indexDir, parser.DefaultOptions())
	require.NoError(t, err)
	return m, w, dir
}

// Invariant 4: a fully-in-cache, unchanged file contributes zero index
// mutations on the next update_incremental call.
func TestUpdateIncremental_UnchangedFileIsIdempotent(t *testing.T) {
	m, w, dir := setup(t)
	logPath := filepath.Join(dir, "aabbccdd-1122-3344-5566-778899001122.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte(fixtureJSONL), 0o644))

	require.NoError(t, m.UpdateIncremental(w, []string{logPath}))
	count, err := w.Underlying().DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	// R2: a second call with the same inputs performs no writes.
	require.NoError(t, m.UpdateIncremental(w, []string{logPath}))
	count2, err := w.Underlying().DocCount()
	require.NoError(t, err)
	assert.Equal(t, count, count2)
}

func TestUpdateIncremental_TouchedFileReindexes(t *testing.T) {
	m, w, dir := setup(t)
	logPath := filepath.Join(dir, "aabbccdd-1122-3344-5566-778899001122.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte(fixtureJSONL), 0o644))

	require.NoError(t, m.UpdateIncremental(w, []string{logPath}))

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(logPath, future, future))

	needsIndexing, err := m.NeedsIndexing(logPath)
	require.NoError(t, err)
	assert.True(t, needsIndexing)
}

func TestUpdateIncremental_EmptyFile(t *testing.T) {
	m, w, dir := setup(t)
	logPath := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte(""), 0o644))

	require.NoError(t, m.UpdateIncremental(w, []string{logPath}))
	fp, ok := m.meta.IndexedFiles[logPath]
	require.True(t, ok)
	assert.Equal(t, 0, fp.RecordCount)
}

func TestUpdateIncremental_MalformedFileNotFingerprinted(t *testing.T) {
	m, w, dir := setup(t)
	logPath := filepath.Join(dir, "bad.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte("not json at all"), 0o644))

	require.NoError(t, m.UpdateIncremental(w, []string{logPath}))
	_, ok := m.meta.IndexedFiles[logPath]
	assert.False(t, ok, "malformed-only files must be retried next sweep")
}

func TestUpdateIncremental_DeletedFileEvicted(t *testing.T) {
	m, w, dir := setup(t)
	logPath := filepath.Join(dir, "aabbccdd-1122-3344-5566-778899001122.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte(fixtureJSONL), 0o644))
	require.NoError(t, m.UpdateIncremental(w, []string{logPath}))

	require.NoError(t, os.Remove(logPath))
	require.NoError(t, m.UpdateIncremental(w, []string{logPath}))

	_, ok := m.meta.IndexedFiles[logPath]
	assert.False(t, ok)
}

// SetWriterHeapMB(1) sets a 512-record flush threshold; sweeping
// enough files to cross it still indexes every record across the
// resulting multiple commits.
func TestUpdateIncremental_WriterHeapFlushesMidSweep(t *testing.T) {
	m, w, dir := setup(t)
	m.SetWriterHeapMB(1)

	const numFiles = 300 // 2 records/file, 600 total: crosses the 512 threshold
	var paths []string
	for i := 0; i < numFiles; i++ {
		sid := fmt.Sprintf("session%04d", i)
		content := fmt.Sprintf(
			`{"uuid":"u1-%[1]s","sessionId":"%[1]s","type":"user","timestamp":"2025-01-01T10:00:00Z","cwd":"/home/me/proj","message":{"content":"hello rust world"}}
{"uuid":"u2-%[1]s","sessionId":"%[1]s","type":"assistant","timestamp":"2025-01-01T10:00:01Z","message":{"content":"sure, here is code"}}
`, sid)
		p := filepath.Join(dir, sid+".jsonl")
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		paths = append(paths, p)
	}
	require.NoError(t, m.UpdateIncremental(w, paths))

	count, err := w.Underlying().DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(numFiles*2), count)
}

func TestCheckIndexHealth_Rebuild(t *testing.T) {
	m, w, dir := setup(t)
	var paths []string
	for i := 0; i < 4; i++ {
		p := filepath.Join(dir, string(rune('a'+i))+".jsonl")
		require.NoError(t, os.WriteFile(p, []byte(fixtureJSONL), 0o644))
		paths = append(paths, p)
	}
	require.NoError(t, m.UpdateIncremental(w, paths))

	for i := 0; i < 3; i++ {
		require.NoError(t, os.Remove(paths[i]))
	}

	health := m.CheckIndexHealth(paths)
	assert.Equal(t, NeedsRebuild, health.Status)
}

func TestClear(t *testing.T) {
	m, w, dir := setup(t)
	logPath := filepath.Join(dir, "aabbccdd-1122-3344-5566-778899001122.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte(fixtureJSONL), 0o644))
	require.NoError(t, m.UpdateIncremental(w, []string{logPath}))

	require.NoError(t, m.Clear())
	assert.Empty(t, m.meta.IndexedFiles)
}
