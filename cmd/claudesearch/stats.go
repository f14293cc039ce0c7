package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize indexed conversation volume by project",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.Close()

	stats := s.cacheMgr.GetStats()
	fmt.Printf("total files: %d\n", stats.TotalFiles)
	fmt.Printf("total entries: %d\n", stats.TotalEntries)
	fmt.Printf("last updated: %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
	fmt.Println()

	for _, p := range stats.Projects {
		fmt.Printf("%-40s files=%-6d entries=%-8d updated=%s\n",
			p.Name, p.Files, p.Entries, p.LastUpdated.Format("2006-01-02 15:04:05"))
	}
	return nil
}
