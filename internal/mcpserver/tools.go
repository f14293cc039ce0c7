package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ticpu/claude-conversation-search-mcp/internal/applog"
	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
	"github.com/ticpu/claude-conversation-search-mcp/internal/search"
	"github.com/ticpu/claude-conversation-search-mcp/internal/summarize"
)

// ===== search_conversations =====

type searchConversationsInput struct {
	Query           string   `json:"query" jsonschema:"required,Full-text query across content/session_id/project"`
	Project         string   `json:"project,omitempty" jsonschema:"Restrict results to this project's basename"`
	Session         string   `json:"session,omitempty" jsonschema:"Restrict results to this session id or its prefix"`
	Limit           *int     `json:"limit,omitempty" jsonschema:"Maximum results to return, one per session (default: 20; an explicit 0 returns no results)"`
	Sort            string   `json:"sort,omitempty" jsonschema:"relevance, date-desc, or date-asc (default: relevance)"`
	After           string   `json:"after,omitempty" jsonschema:"RFC3339 lower bound on message timestamp"`
	Before          string   `json:"before,omitempty" jsonschema:"RFC3339 upper bound on message timestamp"`
	ContextBefore   int      `json:"context_before,omitempty" jsonschema:"Messages of context before each match"`
	ContextAfter    int      `json:"context_after,omitempty" jsonschema:"Messages of context after each match"`
	ExcludeSessions []string `json:"exclude_sessions,omitempty" jsonschema:"Session ids to drop from results"`
	ExcludeProjects []string `json:"exclude_projects,omitempty" jsonschema:"Project names to drop from results"`
}

type searchConversationsOutput struct {
	Query   string           `json:"query"`
	Results []map[string]any `json:"results"`
	Count   int              `json:"count"`
	Hint    string           `json:"hint,omitempty"`
}

func (s *Server) registerSearchConversations() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_conversations",
		Description: "Search indexed AI coding assistant conversations by content, with optional project/session filters, date range, sort order, and grep-style context windows.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchConversationsInput) (*mcp.CallToolResult, searchConversationsOutput, error) {
		// Limit is a pointer so an omitted field (default 20) is
		// distinguishable from an explicit 0 (spec.md: returns no
		// results), unlike a plain int where both unmarshal to zero.
		limit := 20
		if args.Limit != nil {
			limit = *args.Limit
		}
		if limit < 0 {
			limit = 0
		}
		q := model.Query{
			Text:          args.Query,
			ProjectFilter: args.Project,
			SessionFilter: args.Session,
			Limit:         limit * 3,
			Sort:          sortOrderFromString(args.Sort),
		}
		if args.After != "" {
			q.After, _ = time.Parse(time.RFC3339, args.After)
		}
		if args.Before != "" {
			q.Before, _ = time.Parse(time.RFC3339, args.Before)
		}

		var out []map[string]any
		if args.ContextBefore > 0 || args.ContextAfter > 0 {
			windows, err := s.engine.SearchWithContext(q, args.ContextBefore, args.ContextAfter)
			if err != nil {
				return nil, searchConversationsOutput{}, err
			}
			seen := make(map[string]bool, limit)
			for _, w := range windows {
				if len(out) >= limit {
					break
				}
				if stringInList(w.Match.SessionID, args.ExcludeSessions) || stringInList(w.Match.Project, args.ExcludeProjects) {
					continue
				}
				if seen[w.Match.SessionID] {
					continue
				}
				seen[w.Match.SessionID] = true

				entry := resultToMap(w.Match)
				entry["match_index"] = w.MatchIndex
				entry["session_total"] = w.SessionTotal
				windowMaps := make([]map[string]any, len(w.Window))
				for i, m := range w.Window {
					windowMaps[i] = map[string]any{
						"uuid": m.UUID, "role": string(m.Role), "content": m.Content,
						"sequence_num": m.SequenceNum, "timestamp": m.Timestamp,
					}
				}
				entry["context"] = windowMaps
				out = append(out, entry)
			}
		} else {
			results, err := s.engine.Search(q)
			if err != nil {
				return nil, searchConversationsOutput{}, err
			}
			deduped := search.DedupeBySession(results, limit, args.ExcludeSessions, args.ExcludeProjects)
			out = make([]map[string]any, len(deduped))
			for i, r := range deduped {
				out[i] = resultToMap(r)
			}
		}

		output := searchConversationsOutput{Query: args.Query, Results: out, Count: len(out)}
		if hintErr := staleHint(len(out), s.cacheMgr, s.allCorpusFiles()); hintErr != nil {
			output.Hint = hintErr.Error()
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d result(s) for %q", output.Count, args.Query)}},
		}, output, nil
	})
}

// ===== get_session_messages =====

type getSessionMessagesInput struct {
	SessionID   string `json:"session_id" jsonschema:"required,Session id or an unambiguous prefix"`
	ProjectPath string `json:"project_path,omitempty" jsonschema:"Session's cwd, used to locate its source file for a freshness check before reading"`
	CenterOn    string `json:"center_on,omitempty" jsonschema:"UUID to center a context window on, instead of returning the whole session"`
	Before      int    `json:"before,omitempty" jsonschema:"Messages of context before center_on"`
	After       int    `json:"after,omitempty" jsonschema:"Messages of context after center_on"`
	Offset      int    `json:"offset,omitempty" jsonschema:"Skip this many messages from the start (ignored when center_on is set)"`
	Limit       int    `json:"limit,omitempty" jsonschema:"Maximum messages to return (ignored when center_on is set; 0 = all)"`
}

type getSessionMessagesOutput struct {
	SessionID string           `json:"session_id"`
	Messages  []map[string]any `json:"messages"`
	Total     int              `json:"total"`
}

func messageToMap(m model.MessageRecord) map[string]any {
	return map[string]any{
		"uuid": m.UUID, "parent_uuid": m.ParentUUID, "role": string(m.Role),
		"content": m.Content, "timestamp": m.Timestamp, "sequence_num": m.SequenceNum,
		"is_displayable": m.IsDisplayable(),
	}
}

func (s *Server) registerGetSessionMessages() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_session_messages",
		Description: "Fetch a session's messages in sequence order, either in full (with optional offset/limit) or as a context window centered on a specific message uuid.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getSessionMessagesInput) (*mcp.CallToolResult, getSessionMessagesOutput, error) {
		projectPath := args.ProjectPath
		if projectPath == "" {
			if known, err := s.engine.GetSessionMessages(args.SessionID); err == nil && len(known) > 0 {
				projectPath = known[0].ProjectPath
			}
		}
		if projectPath != "" {
			if err := s.fresh.EnsureFresh(s.writer, projectPath, args.SessionID); err != nil {
				applog.L().Debugw("freshness check failed, serving existing index", "session", args.SessionID, "error", err)
			}
		}

		results, err := s.engine.GetSessionMessages(args.SessionID)
		if err != nil {
			return nil, getSessionMessagesOutput{}, err
		}

		if args.CenterOn != "" {
			idx := -1
			for i, r := range results {
				if r.UUID == args.CenterOn {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, getSessionMessagesOutput{}, fmt.Errorf("center_on uuid %q not found in session %s", args.CenterOn, args.SessionID)
			}
			start := idx - args.Before
			if start < 0 {
				start = 0
			}
			end := idx + args.After + 1
			if end > len(results) {
				end = len(results)
			}
			results = results[start:end]
		} else if args.Offset > 0 || args.Limit > 0 {
			start := args.Offset
			if start > len(results) {
				start = len(results)
			}
			end := len(results)
			if args.Limit > 0 && start+args.Limit < end {
				end = start + args.Limit
			}
			results = results[start:end]
		}

		out := make([]map[string]any, len(results))
		for i, r := range results {
			out[i] = messageToMap(r.MessageRecord)
		}

		output := getSessionMessagesOutput{SessionID: args.SessionID, Messages: out, Total: len(out)}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d message(s) for session %s", output.Total, args.SessionID)}},
		}, output, nil
	})
}

// ===== get_messages =====

type getMessagesInput struct {
	UUIDs []string `json:"uuids" jsonschema:"required,Message uuids (or unambiguous prefixes) to fetch, in order"`
}

type getMessagesOutput struct {
	Messages []map[string]any `json:"messages"`
	Count    int              `json:"count"`
}

func (s *Server) registerGetMessages() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_messages",
		Description: "Fetch specific messages by uuid (or unambiguous prefix). Output order matches the order of the requested ids.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args getMessagesInput) (*mcp.CallToolResult, getMessagesOutput, error) {
		results, err := s.engine.GetMessagesByUUID(args.UUIDs)
		if err != nil {
			return nil, getMessagesOutput{}, err
		}
		out := make([]map[string]any, len(results))
		for i, r := range results {
			out[i] = messageToMap(r.MessageRecord)
		}
		output := getMessagesOutput{Messages: out, Count: len(out)}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d message(s) found", output.Count)}},
		}, output, nil
	})
}

// ===== summarize_session =====

type summarizeSessionInput struct {
	SessionID   string `json:"session_id" jsonschema:"required,Session id to summarize"`
	ProjectPath string `json:"project_path,omitempty" jsonschema:"Session's cwd, used to locate its source file for a freshness check before summarizing"`
	Command     string `json:"command,omitempty" jsonschema:"Override the summarizer command line (default: claude -p --output-format json)"`
}

type summarizeSessionOutput struct {
	SessionID string `json:"session_id"`
	Summary   string `json:"summary"`
	Model     string `json:"model,omitempty"`
}

func (s *Server) registerSummarizeSession() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "summarize_session",
		Description: "Generate a markdown summary of a session by invoking an external summarizer subprocess (defaults to the claude CLI).",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args summarizeSessionInput) (*mcp.CallToolResult, summarizeSessionOutput, error) {
		if args.ProjectPath != "" {
			if err := s.fresh.EnsureFresh(s.writer, args.ProjectPath, args.SessionID); err != nil {
				applog.L().Debugw("freshness check failed, summarizing existing index", "session", args.SessionID, "error", err)
			}
		}

		results, err := s.engine.GetSessionMessages(args.SessionID)
		if err != nil {
			return nil, summarizeSessionOutput{}, err
		}
		messages := make([]model.MessageRecord, len(results))
		for i, r := range results {
			messages[i] = r.MessageRecord
		}

		prompt := summarize.BuildPrompt(args.SessionID, messages)
		result, err := summarize.Run(ctx, args.Command, prompt)
		if err != nil {
			return nil, summarizeSessionOutput{}, err
		}

		output := summarizeSessionOutput{SessionID: args.SessionID, Summary: result.Content, Model: result.Model}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Content}},
		}, output, nil
	})
}

// ===== reindex =====

type reindexInput struct {
	Full bool `json:"full,omitempty" jsonschema:"Force a full rebuild instead of an incremental sweep"`
}

type reindexOutput struct {
	FilesSwept   int    `json:"files_swept"`
	Status       string `json:"status"`
}

func (s *Server) registerReindex() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex",
		Description: "Reindex the conversation corpus: an incremental sweep by default, or a full rebuild when full=true.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args reindexInput) (*mcp.CallToolResult, reindexOutput, error) {
		handle, err := s.locks.TryExclusive()
		if err != nil {
			return nil, reindexOutput{}, err
		}
		defer handle.Close()

		files := s.allCorpusFiles()

		if args.Full {
			if err := s.cacheMgr.Clear(); err != nil {
				return nil, reindexOutput{}, err
			}
		}
		if err := s.cacheMgr.UpdateIncremental(s.writer, files); err != nil {
			return nil, reindexOutput{}, err
		}

		output := reindexOutput{FilesSwept: len(files), Status: "ok"}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("reindexed %d files", output.FilesSwept)}},
		}, output, nil
	})
}

// ===== respawn_server =====

type respawnServerInput struct{}

type respawnServerOutput struct {
	Status string `json:"status"`
}

func (s *Server) registerRespawnServer() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "respawn_server",
		Description: "Re-exec the running server process in place, picking up a newly installed binary without dropping the stdio connection's process tree.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args respawnServerInput) (*mcp.CallToolResult, respawnServerOutput, error) {
		s.writer.Close()
		if err := respawnExecutable(); err != nil {
			return nil, respawnServerOutput{}, err
		}
		// unreachable on success: syscall.Exec replaces this process
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "respawning"}},
		}, respawnServerOutput{Status: "respawning"}, nil
	})
}
