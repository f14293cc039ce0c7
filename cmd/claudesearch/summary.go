package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
	"github.com/ticpu/claude-conversation-search-mcp/internal/search"
	"github.com/ticpu/claude-conversation-search-mcp/internal/summarize"
)

var summaryCommand string

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVar(&summaryCommand, "command", "", "override the summarizer command line (default: claude -p --output-format json)")
}

var summaryCmd = &cobra.Command{
	Use:   "summary <id>",
	Short: "Summarize a session by invoking an external summarizer command",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.Close()

	engine := search.New(s.writer.Underlying())
	results, err := engine.GetSessionMessages(sessionID)
	if err != nil {
		return fmt.Errorf("fetching session: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no messages found for session %s", sessionID)
	}

	if results[0].ProjectPath != "" {
		if err := s.fresh.EnsureFresh(s.writer, results[0].ProjectPath, sessionID); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "freshness check skipped: %v\n", err)
		}
	}

	messages := make([]model.MessageRecord, len(results))
	for i, r := range results {
		messages[i] = r.MessageRecord
	}

	prompt := summarize.BuildPrompt(sessionID, messages)
	result, err := summarize.Run(cmd.Context(), summaryCommand, prompt)
	if err != nil {
		return fmt.Errorf("summarizing: %w", err)
	}

	fmt.Println(result.Content)
	return nil
}
