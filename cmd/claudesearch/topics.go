package main

import (
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(topicsCmd)
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List the most common technologies and languages across the corpus",
	RunE:  runTopics,
}

// runTopics derives a topic frequency table entirely from facets over
// the technologies/code_languages fields already populated by
// component C's metadata extraction — no separate tag index is kept.
func runTopics(cmd *cobra.Command, args []string) error {
	s, err := openStack()
	if err != nil {
		return err
	}
	defer s.Close()

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), 0, 0, false)
	req.AddFacet("technologies", bleve.NewFacetRequest("technologies", 25))
	req.AddFacet("code_languages", bleve.NewFacetRequest("code_languages", 25))

	result, err := s.writer.Underlying().Search(req)
	if err != nil {
		return fmt.Errorf("computing topic facets: %w", err)
	}

	printFacet("technologies", result.Facets["technologies"])
	fmt.Println()
	printFacet("code languages", result.Facets["code_languages"])
	return nil
}

func printFacet(label string, facet *search.FacetResult) {
	fmt.Printf("%s:\n", label)
	if facet == nil || len(facet.Terms.Terms()) == 0 {
		fmt.Println("  (none indexed)")
		return
	}
	terms := facet.Terms.Terms()
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].Count > terms[j].Count })
	for _, t := range terms {
		fmt.Printf("  %-20s %d\n", t.Term, t.Count)
	}
}
