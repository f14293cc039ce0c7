package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the indexing cache sidecar",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the cache sidecar's location and summary stats",
	RunE:  runCacheInfo,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cache and index state, forcing a full reindex on next use",
	RunE:  runCacheClear,
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("index root: %s\n", s.indexRoot)
	fmt.Printf("corpus root: %s\n", s.corpusRoot)

	stats := s.cacheMgr.GetStats()
	fmt.Printf("cached files: %d\n", stats.TotalFiles)
	fmt.Printf("cached entries: %d\n", stats.TotalEntries)
	fmt.Printf("last updated: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.Close()

	handle, err := s.locks.TryExclusive()
	if err != nil {
		return fmt.Errorf("acquiring exclusive lock: %w", err)
	}
	defer handle.Close()

	s.writer.Close()
	if err := s.cacheMgr.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	writer, err := openOrCreateIndex(s.indexRoot)
	if err != nil {
		return fmt.Errorf("recreating empty index: %w", err)
	}
	s.writer = writer

	fmt.Println("cache cleared; run 'claudesearch index rebuild' to reindex")
	return nil
}
