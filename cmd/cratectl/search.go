package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchFullText bool
	searchLimit    int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search tracks by name and artist",
	Long: `Search tracks by name and artist. Without --fulltext, matches are ranked
the way the track table filter does it: word-boundary name matches first, then
name matches, then artist matches. With --fulltext the query runs against the
full-text index and results are ordered by score.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchFullText, "fulltext", false, "query the full-text index")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "maximum full-text hits")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	return withLibrary(cmd, openOptions{}, func(ctx context.Context, lib *library) error {
		out := cmd.OutOrStdout()
		if !searchFullText {
			writeTracks(out, lib.Search(query), lib.ColorTags())
			return nil
		}

		hits, err := lib.FullTextSearch(ctx, query, searchLimit)
		if err != nil {
			return fmt.Errorf("full-text search: %w", err)
		}
		tw := newTable(out)
		printf(tw, "ID\tSCORE\tTITLE\tARTIST\n")
		for _, h := range hits {
			printf(tw, "%d\t%.3f\t%s\t%s\n", h.TrackID, h.Score, h.Name, h.Artist)
		}
		return tw.Flush()
	})
}
