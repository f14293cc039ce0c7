package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ticpu/claude-conversation-search-mcp/internal/applog"
	"github.com/ticpu/claude-conversation-search-mcp/internal/watch"
)

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "delay after the last write before reindexing a changed file")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the corpus for changes and keep the index incrementally up to date",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.Close()

	w, err := watch.New(s.writer, s.cacheMgr, s.locks, watchDebounce)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	root := filepath.Join(s.corpusRoot, "projects")
	watched, unwatched, err := w.WatchRecursive(root)
	if err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	applog.L().Infow("watch started", "root", root, "watched_dirs", watched, "unwatched_dirs", unwatched)

	w.Start()
	defer w.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
		applog.L().Info("watch stopping on signal")
	case <-cmd.Context().Done():
	}
	return nil
}
