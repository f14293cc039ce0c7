// Package parser implements component C: it streams a single conversation
// log file line by line, classifies each record, extracts searchable text
// from heterogeneous content blocks, and produces normalized
// model.MessageRecord values with contiguous per-file sequence numbers.
package parser

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ticpu/claude-conversation-search-mcp/internal/apperr"
	"github.com/ticpu/claude-conversation-search-mcp/internal/applog"
	"github.com/ticpu/claude-conversation-search-mcp/internal/metadata"
	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
	"github.com/ticpu/claude-conversation-search-mcp/internal/pathutil"
)

const (
	initialScanBufSize = 64 * 1024        // 64KB
	maxLineSize        = 64 * 1024 * 1024 // 64MB
)

var (
	acceptedTypes = map[string]model.Role{
		"user":      model.RoleUser,
		"assistant": model.RoleAssistant,
		"summary":   model.RoleSummary,
	}

	agentFileName = regexp.MustCompile(`^agent-(.+)\.jsonl$`)
)

// Options bounds how much of a tool_use input / tool_result content is
// retained verbatim in a record's content, per spec.md §6's
// limits.tool_input_max_chars / limits.tool_result_max_chars, and how
// much extracted content a single file may contribute in total
// (limits.per_file_chars), guarding against a single pathological log
// file dominating a sweep.
type Options struct {
	ToolInputMaxChars  int
	ToolResultMaxChars int
	MaxFileChars       int
}

// DefaultOptions returns the configuration defaults named in SPEC_FULL.md §6.2.
func DefaultOptions() Options {
	return Options{ToolInputMaxChars: 500, ToolResultMaxChars: 1000, MaxFileChars: 150_000}
}

// ParseFile reads path and returns the ordered, normalized records it
// contains. Malformed lines are logged at warning level and skipped; an
// unreadable file returns the I/O error from opening or reading it.
func ParseFile(path string, opts Options) ([]model.MessageRecord, error) {
	data, err := pathutil.ReadFileSkipBOM(path)
	if err != nil {
		return nil, err
	}

	agentID := agentIDFromFileName(path)
	lr := newLineReader(bytes.NewReader(data), maxLineSize)

	var (
		records    []model.MessageRecord
		seq        uint64
		totalChars int
	)
	for {
		line, lineNum, ok := lr.next()
		if !ok {
			break
		}
		rec, skip := parseLine(line, path, lineNum, agentID, opts)
		if skip {
			continue
		}
		rec.SequenceNum = seq
		seq++
		records = append(records, rec)

		totalChars += len(rec.Content)
		if opts.MaxFileChars > 0 && totalChars >= opts.MaxFileChars {
			applog.L().Warnw("file exceeds per_file_chars budget, truncating remaining lines", "file", path, "limit", opts.MaxFileChars)
			break
		}
	}
	if lr.skippedOversized > 0 {
		applog.L().Warnw("skipped oversized lines", "file", path, "count", lr.skippedOversized)
	}
	return records, nil
}

// parseLine classifies and normalizes a single JSON line. The second
// return value is true when the line should be dropped (unknown type,
// missing required field, empty content, or malformed JSON).
func parseLine(line, path string, lineNum int, fileAgentID string, opts Options) (model.MessageRecord, bool) {
	if !gjson.Valid(line) {
		applog.L().Warnw("malformed JSON line, skipping", "file", path, "line", lineNum, "err", apperr.ErrMalformedInput)
		return model.MessageRecord{}, true
	}
	root := gjson.Parse(line)

	typ := root.Get("type").Str
	role, ok := acceptedTypes[typ]
	if !ok {
		return model.MessageRecord{}, true // file-history-snapshot, queue-operation, unknown — dropped silently
	}

	uuid := root.Get("uuid").Str
	sessionID := root.Get("sessionId").Str
	timestampStr := root.Get("timestamp").Str
	if uuid == "" || sessionID == "" || timestampStr == "" {
		applog.L().Warnw("record missing required field, skipping", "file", path, "line", lineNum)
		return model.MessageRecord{}, true
	}
	timestamp, err := time.Parse(time.RFC3339, timestampStr)
	if err != nil {
		applog.L().Warnw("unparseable timestamp, skipping", "file", path, "line", lineNum, "timestamp", timestampStr)
		return model.MessageRecord{}, true
	}

	content, toolNames, sourceHasError := extractContentForRole(root, typ, opts)
	content = strings.TrimSpace(content)
	if content == "" {
		return model.MessageRecord{}, true
	}

	cwd := root.Get("cwd").Str
	project := pathutil.ProjectNameFromPath(cwd)
	if project == "" {
		project = pathutil.ProjectNameFromLogPath(path)
	}

	agentID := root.Get("agentId").Str
	if agentID == "" {
		agentID = fileAgentID
	}

	technologies, patternTools, codeLanguages, hasCode, patternHasError := metadata.All(content)
	toolsMentioned := unionStrings(toolNames, patternTools)

	return model.MessageRecord{
		UUID:           uuid,
		ParentUUID:     root.Get("parentUuid").Str,
		SessionID:      sessionID,
		Project:        project,
		ProjectPath:    cwd,
		Timestamp:      timestamp,
		Role:           role,
		Content:        content,
		Model:          root.Get("message.model").Str,
		IsSidechain:    root.Get("isSidechain").Bool(),
		AgentID:        agentID,
		Technologies:   technologies,
		CodeLanguages:  codeLanguages,
		ToolsMentioned: toolsMentioned,
		HasCode:        hasCode,
		HasError:       sourceHasError || patternHasError,
	}, false
}

// extractContentForRole dispatches content extraction per spec.md §4.C:
// summary records use the top-level "summary" field verbatim; others
// use message.content (scalar or block array), falling back to a
// top-level "content" string if message.content is absent.
func extractContentForRole(root gjson.Result, typ string, opts Options) (string, []string, bool) {
	if typ == "summary" {
		if s := root.Get("summary"); s.Exists() {
			return s.Str, nil, false
		}
	}

	if msgContent := root.Get("message.content"); msgContent.Exists() {
		return extractContent(msgContent, opts.ToolInputMaxChars, opts.ToolResultMaxChars)
	}
	if c := root.Get("content"); c.Exists() && c.Type == gjson.String {
		return c.Str, nil, false
	}
	return "", nil, false
}

func agentIDFromFileName(path string) string {
	m := agentFileName.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return ""
	}
	return m[1]
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
