// Package mcpserver implements component I's stdio JSON-RPC tool-call
// server: a thin shell around the core search/index/cache components,
// exposing search_conversations, get_session_messages, get_messages,
// summarize_session, reindex, and respawn_server. spec.md §1 scopes
// "the JSON-RPC framing of the tool-call server" out of the core; this
// package is specified only through the tool interface it consumes.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ticpu/claude-conversation-search-mcp/internal/apperr"
	"github.com/ticpu/claude-conversation-search-mcp/internal/applog"
	"github.com/ticpu/claude-conversation-search-mcp/internal/cache"
	"github.com/ticpu/claude-conversation-search-mcp/internal/config"
	"github.com/ticpu/claude-conversation-search-mcp/internal/freshness"
	"github.com/ticpu/claude-conversation-search-mcp/internal/index"
	"github.com/ticpu/claude-conversation-search-mcp/internal/lock"
	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
	"github.com/ticpu/claude-conversation-search-mcp/internal/pathutil"
	"github.com/ticpu/claude-conversation-search-mcp/internal/search"
	"github.com/ticpu/claude-conversation-search-mcp/internal/summarize"
)

// Server wires the tool-call server to the on-disk index, cache, and
// lock manager it shares with the CLI in single-process deployments.
type Server struct {
	mcp        *mcp.Server
	cfg        config.Config
	corpusRoot string
	indexRoot  string
	writer     *index.Writer
	engine     *search.Engine
	cacheMgr   *cache.Manager
	locks      *lock.Manager
	fresh      *freshness.Coordinator
}

// New builds a Server over an already-open writer/cache/lock stack.
func New(cfg config.Config, corpusRoot, indexRoot string, writer *index.Writer, cacheMgr *cache.Manager, locks *lock.Manager) *Server {
	s := &Server{
		cfg:        cfg,
		corpusRoot: corpusRoot,
		indexRoot:  indexRoot,
		writer:     writer,
		engine:     search.New(writer.Underlying()),
		cacheMgr:   cacheMgr,
		locks:      locks,
		fresh:      freshness.New(corpusRoot, cacheMgr, locks),
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "claudesearch",
		Version: "1.0.0",
	}, nil)

	s.registerTools()
	return s
}

// Run serves tool calls over stdio until ctx is cancelled or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	applog.L().Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server run failed: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	s.registerSearchConversations()
	s.registerGetSessionMessages()
	s.registerGetMessages()
	s.registerSummarizeSession()
	s.registerReindex()
	s.registerRespawnServer()
}

// staleHint builds the machine-readable hint spec.md §7 describes for
// the empty-corpus and stale-but-no-results error paths.
func staleHint(resultCount int, cacheMgr *cache.Manager, allFiles []string) error {
	if resultCount > 0 {
		return nil
	}
	stale, newFiles := cacheMgr.QuickHealthCheck(allFiles)
	if stale > 0 || newFiles > 0 {
		return fmt.Errorf("%w: %d stale, %d new files detected — run reindex", apperr.ErrStaleNoResults, stale, newFiles)
	}
	return nil
}

func (s *Server) allCorpusFiles() []string {
	files, err := pathutil.DiscoverLogFiles(s.corpusRoot)
	if err != nil {
		return nil
	}
	return files
}

func resultToMap(r model.Result) map[string]any {
	return map[string]any{
		"uuid":              r.UUID,
		"session_id":        r.SessionID,
		"project":           r.Project,
		"project_path":      r.ProjectPath,
		"timestamp":         r.Timestamp,
		"role":              string(r.Role),
		"content":           r.Content,
		"snippet":           r.Snippet,
		"score":             r.Score,
		"sequence_num":      r.SequenceNum,
		"has_code":          r.HasCode,
		"has_error":         r.HasError,
		"technologies":      r.Technologies,
		"tools_mentioned":   r.ToolsMentioned,
		"interaction_count": r.InteractionCount,
	}
}

func sortOrderFromString(s string) model.SortOrder {
	switch s {
	case "date-desc":
		return model.SortDateDesc
	case "date-asc":
		return model.SortDateAsc
	default:
		return model.SortRelevance
	}
}

// respawnExecutable re-execs the current binary in place with its
// original arguments and environment, used to pick up a freshly
// rebuilt/updated server image without the host assistant having to
// restart the connection from scratch.
func respawnExecutable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving current executable: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolving executable symlink: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}
