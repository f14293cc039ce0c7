package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexStatusCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexVacuumCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect or rebuild the conversation index",
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report index health against the on-disk corpus",
	RunE:  runIndexStatus,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Drop and fully rebuild the index from the corpus",
	RunE:  runIndexRebuild,
}

var indexVacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Run an incremental sweep, reindexing only changed or new files",
	RunE:  runIndexVacuum,
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.Close()

	files, err := allCorpusFiles(s)
	if err != nil {
		return fmt.Errorf("discovering corpus files: %w", err)
	}

	health := s.cacheMgr.CheckIndexHealth(files)
	fmt.Printf("status: %s\n", health.Status)
	fmt.Printf("indexed files: %d\n", health.TotalIndexedFiles)
	fmt.Printf("indexed entries: %d\n", health.TotalEntries)
	fmt.Printf("last indexed: %s\n", health.LastIndexed.Format("2006-01-02 15:04:05"))
	fmt.Printf("stale files: %d\n", len(health.StaleFiles))
	fmt.Printf("missing files: %d\n", len(health.MissingFiles))
	fmt.Printf("new files: %d\n", len(health.NewFiles))
	return nil
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
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

	if err := s.cacheMgr.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	s.writer.Close()

	writer, err := openOrCreateIndex(s.indexRoot)
	if err != nil {
		return fmt.Errorf("recreating index: %w", err)
	}
	s.writer = writer

	files, err := allCorpusFiles(s)
	if err != nil {
		return fmt.Errorf("discovering corpus files: %w", err)
	}
	if err := s.cacheMgr.UpdateIncremental(s.writer, files); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	fmt.Printf("rebuilt index from %d file(s)\n", len(files))
	return nil
}

func runIndexVacuum(cmd *cobra.Command, args []string) error {
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

	files, err := allCorpusFiles(s)
	if err != nil {
		return fmt.Errorf("discovering corpus files: %w", err)
	}

	if err := s.cacheMgr.UpdateIncremental(s.writer, files); err != nil {
		return fmt.Errorf("sweeping corpus: %w", err)
	}

	fmt.Printf("swept %d file(s)\n", len(files))
	return nil
}
