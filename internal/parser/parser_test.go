package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
	"github.com/ticpu/claude-conversation-search-mcp/internal/testjsonl"
)

const fixtureSessionID = "aabbccdd-1122-3344-5566-778899001122"

var fixtureJSONL = testjsonl.NewSessionBuilder().
	AddUser("u1", fixtureSessionID, "2025-01-01T10:00:00Z", "hello rust world", "/home/me/proj").
	AddAssistant("u2", fixtureSessionID, "2025-01-01T10:00:01Z", []map[string]any{
		{"type": "text", "text": "sure, here is code"},
		{"type": "tool_use", "name": "Bash", "input": map[string]string{"cmd": "ls"}},
	}).
	AddRaw(`{"uuid":"u3","sessionId":"` + fixtureSessionID + `","type":"file-history-snapshot"}`).
	AddUser("u4", fixtureSessionID, "2025-01-01T10:00:02Z", "Warmup").
	String()

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// S1: parsing the fixture yields 3 records with sequence_num 0, 1 and 2;
// u3 is dropped by the type filter; u4 is kept (content "Warmup" is
// non-empty post-normalization) but is non-displayable at query time.
func TestParseFile_S1(t *testing.T) {
	path := writeFixture(t, fixtureSessionID+".jsonl", fixtureJSONL)

	records, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "u1", records[0].UUID)
	assert.Equal(t, uint64(0), records[0].SequenceNum)
	assert.Equal(t, "u2", records[1].UUID)
	assert.Equal(t, uint64(1), records[1].SequenceNum)
	assert.Equal(t, "u4", records[2].UUID)
	assert.Equal(t, uint64(2), records[2].SequenceNum)

	assert.False(t, records[2].IsDisplayable())
	assert.True(t, records[0].IsDisplayable())
}

// S5: metadata extraction — u1.technologies contains "rust";
// u2.tools_mentioned contains "Bash"; u2.content contains the exact
// tool_use format string.
func TestParseFile_S5(t *testing.T) {
	path := writeFixture(t, fixtureSessionID+".jsonl", fixtureJSONL)

	records, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Contains(t, records[0].Technologies, "rust")
	assert.Contains(t, records[1].ToolsMentioned, "Bash")
	assert.Contains(t, records[1].Content, `[Bash] {"cmd":"ls"}`)
}

func TestParseFile_ProjectNaming(t *testing.T) {
	path := writeFixture(t, fixtureSessionID+".jsonl", fixtureJSONL)
	records, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "proj", records[0].Project)
	assert.Equal(t, "/home/me/proj", records[0].ProjectPath)
}

func TestParseFile_AgentFileHeuristic(t *testing.T) {
	content := `{"uuid":"a1","sessionId":"s1","type":"user","timestamp":"2025-01-01T10:00:00Z","message":{"content":"hi"}}` + "\n"
	path := writeFixture(t, "agent-sub123.jsonl", content)

	records, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "sub123", records[0].AgentID)
}

func TestParseFile_AgentIDFromRecordTakesPrecedence(t *testing.T) {
	content := `{"uuid":"a1","sessionId":"s1","type":"user","timestamp":"2025-01-01T10:00:00Z","agentId":"explicit","message":{"content":"hi"}}` + "\n"
	path := writeFixture(t, "agent-sub123.jsonl", content)

	records, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "explicit", records[0].AgentID)
}

func TestParseFile_Empty(t *testing.T) {
	path := writeFixture(t, "empty.jsonl", "")
	records, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseFile_OnlyMalformedLines(t *testing.T) {
	path := writeFixture(t, "bad.jsonl", "not json\n{not json either\n")
	records, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, records)
}

// Determinism: parsing the same file twice yields identical sequences.
func TestParseFile_Deterministic(t *testing.T) {
	path := writeFixture(t, fixtureSessionID+".jsonl", fixtureJSONL)

	first, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	second, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].UUID, second[i].UUID)
		assert.Equal(t, first[i].SequenceNum, second[i].SequenceNum)
	}
}

// BOM-prefixed and BOM-absent otherwise-identical files produce
// identical record sequences.
func TestParseFile_BOMInvariant(t *testing.T) {
	withBOM := writeFixture(t, "bom.jsonl", "﻿"+fixtureJSONL)
	withoutBOM := writeFixture(t, "nobom.jsonl", fixtureJSONL)

	a, err := ParseFile(withBOM, DefaultOptions())
	require.NoError(t, err)
	b, err := ParseFile(withoutBOM, DefaultOptions())
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Content, b[i].Content)
		assert.Equal(t, a[i].UUID, b[i].UUID)
	}
}

func TestParseFile_DroppedTypesAndMissingFields(t *testing.T) {
	content := `{"uuid":"q1","sessionId":"s1","type":"queue-operation","timestamp":"2025-01-01T10:00:00Z"}
{"sessionId":"s1","type":"user","timestamp":"2025-01-01T10:00:00Z","message":{"content":"no uuid"}}
{"uuid":"u1","sessionId":"s1","type":"user","timestamp":"not-a-time","message":{"content":"bad ts"}}
`
	path := writeFixture(t, "s1.jsonl", content)
	records, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseFile_SummaryType(t *testing.T) {
	content := `{"uuid":"sum1","sessionId":"s1","type":"summary","timestamp":"2025-01-01T10:00:00Z","summary":"A recap of the session"}` + "\n"
	path := writeFixture(t, "s1.jsonl", content)
	records, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.RoleSummary, records[0].Role)
	assert.Equal(t, "A recap of the session", records[0].Content)
}

func TestParseFile_ToolResultError(t *testing.T) {
	content := `{"uuid":"u1","sessionId":"s1","type":"assistant","timestamp":"2025-01-01T10:00:00Z","message":{"content":[{"type":"tool_result","tool_use_id":"t1","is_error":true,"content":"boom"}]}}` + "\n"
	path := writeFixture(t, "s1.jsonl", content)
	records, err := ParseFile(path, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].HasError)
	assert.Contains(t, records[0].Content, "[error] boom")
}
