package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ticpu/claude-conversation-search-mcp/internal/model"
	"github.com/ticpu/claude-conversation-search-mcp/internal/search"
)

var (
	searchProject         string
	searchSession         string
	searchLimit           int
	searchSort            string
	searchAfter           string
	searchBefore          string
	searchContextBefore   int
	searchContextAfter    int
	searchContext         int
	searchExcludeProjects []string
	searchExcludeSessions []string
	searchExcludePatterns []string
	searchTruncate        int
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchProject, "project", "", "limit to a project, given as its name or a path ending in it")
	searchCmd.Flags().StringVar(&searchSession, "session", "", "limit to a session id")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum results, one per session")
	searchCmd.Flags().StringVar(&searchSort, "sort", "relevance", "relevance, date-desc, or date-asc")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "only messages after this RFC3339 timestamp")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "only messages before this RFC3339 timestamp")
	searchCmd.Flags().IntVarP(&searchContextBefore, "before-lines", "B", 0, "messages of context before each match")
	searchCmd.Flags().IntVarP(&searchContextAfter, "after-lines", "A", 0, "messages of context after each match")
	searchCmd.Flags().IntVarP(&searchContext, "context", "C", 0, "messages of context on both sides of each match")
	searchCmd.Flags().StringSliceVar(&searchExcludeProjects, "exclude-project", nil, "drop results from this project (repeatable)")
	searchCmd.Flags().StringSliceVar(&searchExcludeSessions, "exclude-session", nil, "drop results from this session (repeatable)")
	searchCmd.Flags().StringSliceVar(&searchExcludePatterns, "exclude-pattern", nil, "drop results whose content matches this regexp (repeatable)")
	searchCmd.Flags().IntVar(&searchTruncate, "truncate", 0, "truncate printed content to N characters (0: no truncation)")
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search conversation logs, deduplicated one match per session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.Close()

	engine := search.New(s.writer.Underlying())

	q := model.Query{
		Text:          args[0],
		ProjectFilter: searchProject,
		SessionFilter: searchSession,
		Sort:          sortOrderFromFlag(searchSort),
	}
	if searchAfter != "" {
		if q.After, err = time.Parse(time.RFC3339, searchAfter); err != nil {
			return fmt.Errorf("parsing --after: %w", err)
		}
	}
	if searchBefore != "" {
		if q.Before, err = time.Parse(time.RFC3339, searchBefore); err != nil {
			return fmt.Errorf("parsing --before: %w", err)
		}
	}

	before, after := searchContextBefore, searchContextAfter
	if searchContext > 0 {
		before, after = searchContext, searchContext
	}

	// searchLimit's cobra flag default (20) already covers the
	// "flag omitted" case; an explicit --limit 0 must pass through
	// literally so the engine's empty-result boundary behavior applies.
	limit := searchLimit
	if limit < 0 {
		limit = 0
	}
	q.Limit = limit * 3

	excludeRes, err := compileExcludePatterns(s.cfg.Search.ExcludePatterns, searchExcludePatterns)
	if err != nil {
		return err
	}

	if before > 0 || after > 0 {
		windows, err := engine.SearchWithContext(q, before, after)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		seen := make(map[string]bool)
		printed := 0
		for _, w := range windows {
			if printed >= limit {
				break
			}
			if stringInList(w.Match.SessionID, searchExcludeSessions) || stringInList(w.Match.Project, searchExcludeProjects) {
				continue
			}
			if matchesAny(w.Match.Content, excludeRes) {
				continue
			}
			if seen[w.Match.SessionID] {
				continue
			}
			seen[w.Match.SessionID] = true
			printed++
			printContextWindow(w)
		}
		return nil
	}

	results, err := engine.Search(q)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	filtered := make([]model.Result, 0, len(results))
	for _, r := range results {
		if !matchesAny(r.Content, excludeRes) {
			filtered = append(filtered, r)
		}
	}
	deduped := search.DedupeBySession(filtered, limit, searchExcludeSessions, searchExcludeProjects)
	for _, r := range deduped {
		printResult(r)
	}
	fmt.Printf("\n%d result(s)\n", len(deduped))
	return nil
}

// compileExcludePatterns merges the configured default exclude patterns
// with any passed via --exclude-pattern and compiles them once up
// front, so a malformed pattern fails fast instead of silently matching
// nothing partway through a sweep.
func compileExcludePatterns(fromConfig, fromFlag []string) ([]*regexp.Regexp, error) {
	all := append(append([]string{}, fromConfig...), fromFlag...)
	res := make([]*regexp.Regexp, 0, len(all))
	for _, pat := range all {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("compiling --exclude-pattern %q: %w", pat, err)
		}
		res = append(res, re)
	}
	return res, nil
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func printResult(r model.Result) {
	fmt.Printf("[%s] %s %s (%s)\n", r.Timestamp.Format("2006-01-02 15:04"), r.Role.ShortName(), r.Project, r.SessionID)
	fmt.Println(truncateForDisplay(r.Snippet, searchTruncate))
	fmt.Println()
}

func printContextWindow(w model.ContextWindow) {
	fmt.Printf("=== %s (%s), match %d/%d ===\n", w.Match.Project, w.Match.SessionID, w.MatchIndex+1, w.SessionTotal)
	for i, m := range w.Window {
		marker := "  "
		if i == w.MatchIndex {
			marker = "->"
		}
		fmt.Printf("%s [%s] %s: %s\n", marker, m.Timestamp.Format("15:04"), m.Role.ShortName(), truncateForDisplay(m.Content, searchTruncate))
	}
	fmt.Println()
}

func truncateForDisplay(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func sortOrderFromFlag(s string) model.SortOrder {
	switch strings.ToLower(s) {
	case "date-desc":
		return model.SortDateDesc
	case "date-asc":
		return model.SortDateAsc
	default:
		return model.SortRelevance
	}
}

func stringInList(needle string, haystack []string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
