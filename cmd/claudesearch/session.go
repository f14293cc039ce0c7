package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ticpu/claude-conversation-search-mcp/internal/search"
)

var (
	sessionFull          bool
	sessionCenter        string
	sessionContextBefore int
	sessionContextAfter  int
	sessionContext       int
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.Flags().BoolVar(&sessionFull, "full", false, "print every message, ignoring any --center window")
	sessionCmd.Flags().StringVar(&sessionCenter, "center", "", "center the output on this message uuid")
	sessionCmd.Flags().IntVarP(&sessionContextBefore, "before-lines", "B", 3, "messages of context before --center")
	sessionCmd.Flags().IntVarP(&sessionContextAfter, "after-lines", "A", 3, "messages of context after --center")
	sessionCmd.Flags().IntVarP(&sessionContext, "context", "C", 0, "messages of context on both sides of --center")
}

var sessionCmd = &cobra.Command{
	Use:   "session <id>",
	Short: "Print a session's messages in sequence order",
	Args:  cobra.ExactArgs(1),
	RunE:  runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.Close()

	if projectPath, ok := sessionProjectPath(s, sessionID); ok {
		if err := s.fresh.EnsureFresh(s.writer, projectPath, sessionID); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "freshness check skipped: %v\n", err)
		}
	}

	engine := search.New(s.writer.Underlying())
	results, err := engine.GetSessionMessages(sessionID)
	if err != nil {
		return fmt.Errorf("fetching session: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no messages found for session %s", sessionID)
	}

	if sessionCenter != "" && !sessionFull {
		idx := -1
		for i, r := range results {
			if r.UUID == sessionCenter {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("center uuid %q not found in session %s", sessionCenter, sessionID)
		}
		before, after := sessionContextBefore, sessionContextAfter
		if sessionContext > 0 {
			before, after = sessionContext, sessionContext
		}
		start := idx - before
		if start < 0 {
			start = 0
		}
		end := idx + after + 1
		if end > len(results) {
			end = len(results)
		}
		results = results[start:end]
	}

	for _, r := range results {
		if !r.IsDisplayable() {
			continue
		}
		fmt.Printf("[%s] %s (%s): %s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.Role.ShortName(), r.UUID, r.Content)
	}
	return nil
}

// sessionProjectPath peeks at the session's already-indexed records to
// recover its cwd, so the freshness check (spec.md §4.H) can locate the
// source file without requiring the caller to supply one.
func sessionProjectPath(s *stack, sessionID string) (string, bool) {
	engine := search.New(s.writer.Underlying())
	results, err := engine.GetSessionMessages(sessionID)
	if err != nil || len(results) == 0 {
		return "", false
	}
	return results[0].ProjectPath, results[0].ProjectPath != ""
}
