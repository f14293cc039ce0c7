package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ticpu/claude-conversation-search-mcp/internal/applog"
	"github.com/ticpu/claude-conversation-search-mcp/internal/mcpserver"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP stdio tool-call server",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.Close()

	if s.cfg.Index.AutoIndexOnStartup {
		if handle, err := s.locks.TryExclusive(); err != nil {
			applog.L().Debugw("auto-index on startup skipped, index lock unavailable", "error", err)
		} else {
			files, err := allCorpusFiles(s)
			if err != nil {
				applog.L().Warnw("auto-index on startup failed to enumerate corpus", "error", err)
			} else if err := s.cacheMgr.UpdateIncremental(s.writer, files); err != nil {
				applog.L().Warnw("auto-index on startup failed", "error", err)
			}
			handle.Close()
		}
	}

	srv := mcpserver.New(s.cfg, s.corpusRoot, s.indexRoot, s.writer, s.cacheMgr, s.locks)
	if err := srv.Run(cmd.Context()); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
