package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "index")
	w, err := Create(dir)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func sampleRecords(sessionID string) []model.MessageRecord {
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	return []model.MessageRecord{
		{UUID: "u1", SessionID: sessionID, Project: "proj", Role: model.RoleUser, Content: "hello rust world", Timestamp: base, SequenceNum: 0},
		{UUID: "u2", SessionID: sessionID, Project: "proj", Role: model.RoleAssistant, Content: "sure, here is code", Timestamp: base.Add(time.Second), SequenceNum: 1},
	}
}

// R1: append(records); commit; search_every_uuid(records) returns each
// record exactly once.
func TestAppendCommit_RoundTrip(t *testing.T) {
	w := newTestWriter(t)
	sessionID := "aabbccdd-1122-3344-5566-778899001122"
	records := sampleRecords(sessionID)

	batch := w.NewBatch()
	require.NoError(t, w.Append(batch, records))
	require.NoError(t, w.Commit(batch))

	count, err := w.Underlying().DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(len(records)), count)
}

// Invariant 5: after delete_session(s) followed by append(records_for_s)
// and commit, the index contains exactly records_for_s for session s.
func TestDeleteSessionThenAppend(t *testing.T) {
	w := newTestWriter(t)
	sessionID := "aabbccdd-1122-3344-5566-778899001122"
	original := sampleRecords(sessionID)

	batch := w.NewBatch()
	require.NoError(t, w.Append(batch, original))
	require.NoError(t, w.Commit(batch))

	replacement := []model.MessageRecord{
		{UUID: "u3", SessionID: sessionID, Project: "proj", Role: model.RoleUser, Content: "updated content", Timestamp: time.Now(), SequenceNum: 0},
	}

	batch2 := w.NewBatch()
	require.NoError(t, w.DeleteSession(batch2, sessionID))
	require.NoError(t, w.Append(batch2, replacement))
	require.NoError(t, w.Commit(batch2))

	count, err := w.Underlying().DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestOpen_SchemaMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	w, err := Create(dir)
	require.NoError(t, err)
	require.NoError(t, w.idx.SetInternal(schemaVersionKey, []byte("1")))
	require.NoError(t, w.Close())

	_, err = Open(dir)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestOpen_SameSchemaSucceeds(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	w, err := Create(dir)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()
}
