// Package main implements the claudesearch CLI: a cobra-dispatched
// front end over the core search/index/cache/lock components, plus the
// stdio MCP tool-call server (claudesearch mcp).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

var (
	flagClaudeDir  string
	flagCacheDir   string
	flagNoLock     bool
	flagWriterHeap int
)

var rootCmd = &cobra.Command{
	Use:     "claudesearch",
	Short:   "Full-text search over AI coding assistant conversation logs",
	Version: version,
	Long: `claudesearch indexes Claude Code conversation logs (and compatible
corpora) into a local BM25 full-text index, and exposes search, session
inspection, and summarization both as a CLI and as an MCP stdio
tool-call server.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagClaudeDir, "claude-dir", "", "conversation log corpus root (default: ~/.claude or ~/.config/claude)")
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "index and cache directory (default: OS user cache dir)")
	rootCmd.PersistentFlags().BoolVar(&flagNoLock, "no-lock", false, "disable advisory file locking (single-process embedded use)")
	rootCmd.PersistentFlags().IntVar(&flagWriterHeap, "writer-heap-mb", 0, "indexer writer heap budget in MB")
}
