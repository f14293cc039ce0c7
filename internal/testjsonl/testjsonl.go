// Package testjsonl builds Claude Code session JSONL fixtures for
// the parser package's tests, adapted
// from the teacher's multi-assistant fixture builders down to the
// single wire shape this repo's parser understands.
package testjsonl

import (
	"encoding/json"
	"strings"
)

// ClaudeUserJSON returns a user message line with no sessionId and
// no uuid; the parser skips such a line as missing required fields.
func ClaudeUserJSON(content, timestamp string, cwd ...string) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message":   map[string]any{"content": content},
	}
	if len(cwd) > 0 {
		m["cwd"] = cwd[0]
	}
	return mustMarshal(m)
}

// ClaudeUserWithSessionIDJSON returns a user message line carrying an
// explicit sessionId field.
func ClaudeUserWithSessionIDJSON(content, timestamp, sessionID string, cwd ...string) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"sessionId": sessionID,
		"message":   map[string]any{"content": content},
	}
	if len(cwd) > 0 {
		m["cwd"] = cwd[0]
	}
	return mustMarshal(m)
}

// ClaudeMetaUserJSON returns a user message line with the isMeta
// and/or isCompactSummary flags set. The parser does not read either
// flag, and like ClaudeUserJSON the line has no sessionId or uuid.
func ClaudeMetaUserJSON(content, timestamp string, meta, compact bool) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message":   map[string]any{"content": content},
	}
	if meta {
		m["isMeta"] = true
	}
	if compact {
		m["isCompactSummary"] = true
	}
	return mustMarshal(m)
}

// ClaudeAssistantJSON returns an assistant message line; content may
// be a plain string or the block-array shape (text/tool_use/tool_result).
func ClaudeAssistantJSON(content any, timestamp string) string {
	m := map[string]any{
		"type":      "assistant",
		"timestamp": timestamp,
		"message":   map[string]any{"content": content},
	}
	return mustMarshal(m)
}

// ClaudeSnapshotJSON returns a file-history-snapshot line, which the
// parser's type filter drops unconditionally.
func ClaudeSnapshotJSON(timestamp string) string {
	m := map[string]any{"type": "file-history-snapshot", "timestamp": timestamp}
	return mustMarshal(m)
}

// JoinJSONL joins pre-built lines with newlines and a trailing newline.
func JoinJSONL(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// SessionBuilder assembles a session's JSONL content one message at a
// time, each call supplying its own uuid to keep fixtures explicit
// about ordering and parent linkage.
type SessionBuilder struct {
	lines []string
}

// NewSessionBuilder returns an empty SessionBuilder.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{}
}

// AddUser appends a user message line with an explicit uuid/sessionId.
func (b *SessionBuilder) AddUser(uuid, sessionID, timestamp, content string, cwd ...string) *SessionBuilder {
	m := map[string]any{
		"uuid":      uuid,
		"sessionId": sessionID,
		"type":      "user",
		"timestamp": timestamp,
		"message":   map[string]any{"content": content},
	}
	if len(cwd) > 0 {
		m["cwd"] = cwd[0]
	}
	b.lines = append(b.lines, mustMarshal(m))
	return b
}

// AddAssistant appends an assistant message line with an explicit
// uuid/sessionId and block-array content.
func (b *SessionBuilder) AddAssistant(uuid, sessionID, timestamp string, content any) *SessionBuilder {
	m := map[string]any{
		"uuid":      uuid,
		"sessionId": sessionID,
		"type":      "assistant",
		"timestamp": timestamp,
		"message":   map[string]any{"content": content},
	}
	b.lines = append(b.lines, mustMarshal(m))
	return b
}

// AddRaw appends an arbitrary pre-built line verbatim.
func (b *SessionBuilder) AddRaw(line string) *SessionBuilder {
	b.lines = append(b.lines, line)
	return b
}

// String returns the accumulated JSONL content with a trailing newline.
func (b *SessionBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
