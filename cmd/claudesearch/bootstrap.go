package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ticpu/claude-conversation-search-mcp/internal/applog"
	"github.com/ticpu/claude-conversation-search-mcp/internal/cache"
	"github.com/ticpu/claude-conversation-search-mcp/internal/config"
	"github.com/ticpu/claude-conversation-search-mcp/internal/freshness"
	"github.com/ticpu/claude-conversation-search-mcp/internal/index"
	"github.com/ticpu/claude-conversation-search-mcp/internal/lock"
	"github.com/ticpu/claude-conversation-search-mcp/internal/parser"
	"github.com/ticpu/claude-conversation-search-mcp/internal/pathutil"
)

// stack bundles every long-lived handle a command needs: the resolved
// corpus/index roots, the single writer, its cache sidecar, and the
// lock manager they share.
type stack struct {
	cfg        config.Config
	corpusRoot string
	indexRoot  string
	writer     *index.Writer
	cacheMgr   *cache.Manager
	locks      *lock.Manager
	fresh      *freshness.Coordinator
}

// openStack loads configuration layered with the root command's
// persistent flags, resolves the corpus/index roots, and opens (or
// creates, or rebuilds on schema mismatch) the index.
func openStack() (*stack, error) {
	cfg, err := config.Load(rootCmd.PersistentFlags())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	claudeDir := firstNonEmpty(flagClaudeDir, cfg.Index.ClaudeDir)
	corpusRoot, err := pathutil.CorpusRoot(claudeDir)
	if err != nil {
		return nil, fmt.Errorf("resolving corpus root: %w", err)
	}

	cacheDir := firstNonEmpty(flagCacheDir, cfg.Index.CacheDir)
	indexRoot, err := pathutil.IndexRoot(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("resolving index root: %w", err)
	}

	lockingEnabled := cfg.Locking.Enabled && !flagNoLock
	var locks *lock.Manager
	if cfg.Locking.LockFile != "" {
		locks = lock.NewManagerAt(cfg.Locking.LockFile, lockingEnabled)
	} else {
		locks = lock.NewManager(indexRoot, lockingEnabled)
	}

	writer, err := openOrCreateIndex(indexRoot)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	cacheMgr, err := cache.NewManager(indexRoot, parser.Options{
		ToolInputMaxChars:  cfg.Limits.ToolInputMaxChars,
		ToolResultMaxChars: cfg.Limits.ToolResultMaxChars,
		MaxFileChars:       cfg.Limits.PerFileChars,
	})
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	cacheMgr.SetWriterHeapMB(cfg.Index.WriterHeapMB)

	return &stack{
		cfg:        cfg,
		corpusRoot: corpusRoot,
		indexRoot:  indexRoot,
		writer:     writer,
		cacheMgr:   cacheMgr,
		locks:      locks,
		fresh:      freshness.New(corpusRoot, cacheMgr, locks),
	}, nil
}

func (s *stack) Close() {
	if err := s.writer.Close(); err != nil {
		applog.L().Warnw("closing index writer", "error", err)
	}
}

// openOrCreateIndex opens the index at path, transparently rebuilding
// it from scratch when the schema version has moved on (index.Open
// returns index.ErrSchemaMismatch), per spec.md §7.
func openOrCreateIndex(path string) (*index.Writer, error) {
	if _, err := os.Stat(filepath.Join(path, "index_meta.json")); os.IsNotExist(err) {
		return index.Create(path)
	}

	writer, err := index.Open(path)
	if err == nil {
		return writer, nil
	}
	if errors.Is(err, index.ErrSchemaMismatch) {
		applog.L().Warnw("index schema mismatch, rebuilding", "path", path)
		if err := os.RemoveAll(path); err != nil {
			return nil, err
		}
		return index.Create(path)
	}
	return nil, err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// cwdOrEmpty returns the process working directory, or "" if it can't
// be determined, for use as the "currently active session" anchor.
func cwdOrEmpty() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

// allCorpusFiles discovers every .jsonl log file under s's corpus
// root, excluding the currently active session file (if the caller's
// cwd maps to one), per spec.md §4.H.
func allCorpusFiles(s *stack) ([]string, error) {
	files, err := pathutil.DiscoverLogFiles(s.corpusRoot)
	if err != nil {
		return nil, err
	}
	if active, ok := freshness.ActiveSessionFile(s.corpusRoot, cwdOrEmpty()); ok {
		files = freshness.ExcludeActive(files, active)
	}
	return files, nil
}
