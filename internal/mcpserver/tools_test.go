package mcpserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticpu/claude-conversation-search-mcp/internal/cache"
	"github.com/ticpu/claude-conversation-search-mcp/internal/config"
	"github.com/ticpu/claude-conversation-search-mcp/internal/index"
	"github.com/ticpu/claude-conversation-search-mcp/internal/lock"
	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
	"github.com/ticpu/claude-conversation-search-mcp/internal/parser"
	"github.com/ticpu/claude-conversation-search-mcp/internal/search"
)

const sessionID = "aabbccdd-1122-3344-5566-778899001122"

const fixtureJSONL = `{"uuid":"u1","sessionId":"aabbccdd-1122-3344-5566-778899001122","type":"user","timestamp":"2025-01-01T10:00:00Z","cwd":"/home/me/proj","message":{"content":"hello rust world"}}
{"uuid":"u2","sessionId":"aabbccdd-1122-3344-5566-778899001122","type":"assistant","timestamp":"2025-01-01T10:00:01Z","message":{"content":[{"type":"text","text":"sure, here is code"},{"type":"tool_use","name":"Bash","input":{"cmd":"ls"}}]}}
{"uuid":"u3","sessionId":"aabbccdd-1122-3344-5566-778899001122","type":"file-history-snapshot"}
{"uuid":"u4","sessionId":"aabbccdd-1122-3344-5566-778899001122","type":"user","timestamp":"2025-01-01T10:00:02Z","message":{"content":"Warmup"}}
`

// buildServer assembles a full Server over a freshly-indexed copy of
// the spec's S1-S6 fixture, the way the CLI and mcp command wire one
// up over a real corpus.
func buildServer(t *testing.T) (*Server, string) {
	t.Helper()
	corpusRoot := t.TempDir()
	projectDir := filepath.Join(corpusRoot, "projects", "-home-me-proj")
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	logPath := filepath.Join(projectDir, sessionID+".jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte(fixtureJSONL), 0o644))

	indexDir := filepath.Join(corpusRoot, "index")
	w, err := index.Create(indexDir)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	records, err := parser.ParseFile(logPath, parser.DefaultOptions())
	require.NoError(t, err)
	batch := w.NewBatch()
	require.NoError(t, w.Append(batch, records))
	require.NoError(t, w.Commit(batch))

	cacheMgr, err := cache.NewManager(indexDir, parser.DefaultOptions())
	require.NoError(t, err)
	locks := lock.NewManager(indexDir, false)

	cfg := config.Default()
	srv := New(cfg, corpusRoot, indexDir, w, cacheMgr, locks)
	return srv, corpusRoot
}

func TestServer_SearchConversations_FindsFixtureMatch(t *testing.T) {
	srv, _ := buildServer(t)
	results, err := srv.engine.Search(model.Query{Text: "rust", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "u1", results[0].UUID)
}

func TestServer_GetSessionMessages_ReturnsDisplayableOrder(t *testing.T) {
	srv, _ := buildServer(t)
	results, err := srv.engine.GetSessionMessages(sessionID)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "u1", results[0].UUID)
	assert.Equal(t, "u2", results[1].UUID)
	assert.Equal(t, "u4", results[2].UUID)
	assert.False(t, results[2].IsDisplayable())
}

func TestServer_Reindex_IsIdempotentOnUnchangedCorpus(t *testing.T) {
	srv, _ := buildServer(t)
	files := srv.allCorpusFiles()
	require.Len(t, files, 1)
	require.NoError(t, srv.cacheMgr.UpdateIncremental(srv.writer, files))

	results, err := srv.engine.GetSessionMessages(sessionID)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestDedupeBySession_KeepsFirstHitPerSession(t *testing.T) {
	results := []model.Result{
		{MessageRecord: model.MessageRecord{UUID: "a1", SessionID: "s1", Project: "p1"}},
		{MessageRecord: model.MessageRecord{UUID: "a2", SessionID: "s1", Project: "p1"}},
		{MessageRecord: model.MessageRecord{UUID: "b1", SessionID: "s2", Project: "p2"}},
		{MessageRecord: model.MessageRecord{UUID: "c1", SessionID: "s3", Project: "p3"}},
	}

	out := search.DedupeBySession(results, 2, nil, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "a1", out[0].UUID)
	assert.Equal(t, "b1", out[1].UUID)
}

func TestDedupeBySession_AppliesExclusionLists(t *testing.T) {
	results := []model.Result{
		{MessageRecord: model.MessageRecord{UUID: "a1", SessionID: "s1", Project: "p1"}},
		{MessageRecord: model.MessageRecord{UUID: "b1", SessionID: "s2", Project: "p2"}},
		{MessageRecord: model.MessageRecord{UUID: "c1", SessionID: "s3", Project: "p3"}},
	}

	out := search.DedupeBySession(results, 10, []string{"s2"}, []string{"p3"})
	require.Len(t, out, 1)
	assert.Equal(t, "a1", out[0].UUID)
}

func TestDedupeBySession_ZeroLimitReturnsEmpty(t *testing.T) {
	results := make([]model.Result, 0, 25)
	for i := 0; i < 25; i++ {
		results = append(results, model.Result{MessageRecord: model.MessageRecord{
			UUID: string(rune('a' + i)), SessionID: string(rune('A' + i)),
		}})
	}
	out := search.DedupeBySession(results, 0, nil, nil)
	assert.Len(t, out, 0)
}

func TestSortOrderFromString(t *testing.T) {
	assert.Equal(t, model.SortDateDesc, sortOrderFromString("date-desc"))
	assert.Equal(t, model.SortDateAsc, sortOrderFromString("date-asc"))
	assert.Equal(t, model.SortRelevance, sortOrderFromString("relevance"))
	assert.Equal(t, model.SortRelevance, sortOrderFromString(""))
	assert.Equal(t, model.SortRelevance, sortOrderFromString("bogus"))
}

func TestStaleHint_EmptyCorpusSuggestsReindex(t *testing.T) {
	srv, _ := buildServer(t)
	err := staleHint(0, srv.cacheMgr, []string{"/nonexistent/new-file.jsonl"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reindex")
}

func TestStaleHint_NonEmptyResultsNeverHint(t *testing.T) {
	srv, _ := buildServer(t)
	err := staleHint(5, srv.cacheMgr, srv.allCorpusFiles())
	assert.NoError(t, err)
}
