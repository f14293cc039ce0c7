// Package freshness implements component H: the per-request staleness
// check that every tool-call reading a specific session performs
// before handing back results, plus the "currently active session"
// exclusion used by the general search path's staleness count.
package freshness

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ticpu/claude-conversation-search-mcp/internal/applog"
	"github.com/ticpu/claude-conversation-search-mcp/internal/cache"
	"github.com/ticpu/claude-conversation-search-mcp/internal/index"
	"github.com/ticpu/claude-conversation-search-mcp/internal/lock"
	"github.com/ticpu/claude-conversation-search-mcp/internal/pathutil"
)

// Coordinator runs the freshness check described in spec.md §4.H ahead
// of session-scoped reads, re-indexing a single stale file under the
// exclusive lock before the caller proceeds.
type Coordinator struct {
	corpusRoot string
	cacheMgr   *cache.Manager
	locks      *lock.Manager
}

// New builds a Coordinator over an already-open cache manager and lock
// manager, sharing them with the rest of the process.
func New(corpusRoot string, cacheMgr *cache.Manager, locks *lock.Manager) *Coordinator {
	return &Coordinator{corpusRoot: corpusRoot, cacheMgr: cacheMgr, locks: locks}
}

// EnsureFresh performs the two-step check from spec.md §4.H:
//  1. derive the source file path from projectPath + sessionID,
//  2. if it exists and needs indexing, acquire the exclusive lock and
//     run a single-file incremental update through writer.
//
// It is a no-op (returning no error) when the source file does not
// exist or is already current — the common case on every read.
func (c *Coordinator) EnsureFresh(writer *index.Writer, projectPath, sessionID string) error {
	path := pathutil.SessionLogPath(c.corpusRoot, projectPath, sessionID)

	if _, err := os.Stat(path); err != nil {
		return nil
	}

	needsIndexing, err := c.cacheMgr.NeedsIndexing(path)
	if err != nil {
		return nil
	}
	if !needsIndexing {
		return nil
	}

	handle, err := c.locks.TryExclusive()
	if err != nil {
		// Another instance holds the lock; proceed with what's
		// currently indexed rather than blocking the caller.
		applog.L().Debugw("freshness check skipped, lock contended", "session", sessionID)
		return nil
	}
	defer handle.Close()

	return c.cacheMgr.UpdateIncremental(writer, []string{path})
}

// ActiveSessionFile returns the path of the "currently active" session
// log under cwd's corpus-encoded project directory: the newest .jsonl
// file there, which is expected to be under continuous append. The
// CLI's corpus listing (allCorpusFiles in cmd/claudesearch) drops it
// from its file list via ExcludeActive. The MCP server's stale hint
// lists the corpus without dropping it, and the stale count of
// cache.Manager.QuickHealthCheck walks every cached fingerprint, so
// that count includes this file wherever it is cached.
func ActiveSessionFile(corpusRoot, cwd string) (string, bool) {
	if cwd == "" {
		return "", false
	}
	dir := filepath.Join(corpusRoot, "projects", pathutil.ProjectDirName(cwd))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var newest string
	var newestMod int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		full := filepath.Join(dir, e.Name())
		mtime, err := pathutil.FileModTime(full)
		if err != nil {
			continue
		}
		if newest == "" || mtime > newestMod {
			newest = full
			newestMod = mtime
		}
	}
	return newest, newest != ""
}

// ExcludeActive filters activeFile (if non-empty) out of files,
// preserving order.
func ExcludeActive(files []string, activeFile string) []string {
	if activeFile == "" {
		return files
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f != activeFile {
			out = append(out, f)
		}
	}
	return out
}

// SortByRecency orders files newest-first by mtime, for callers
// that want to prioritize freshening the most recently touched
// sessions first when sweeping a large corpus incrementally.
func SortByRecency(files []string) {
	sort.SliceStable(files, func(i, j int) bool {
		ti, _ := pathutil.FileModTime(files[i])
		tj, _ := pathutil.FileModTime(files[j])
		return ti > tj
	})
}
