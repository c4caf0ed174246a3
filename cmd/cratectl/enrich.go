package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crateapp/crate-server/internal/service"
)

var (
	enrichVDJ      string
	enrichFileTags bool
	enrichTracks   []int64
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill missing track metadata",
	Long: `Fill missing BPM, artist, duration and comments from a VirtualDJ database
and, with --file-tags, from the tags of the audio files themselves. Values that
are already set are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().StringVar(&enrichVDJ, "vdj", "", "path to a VirtualDJ database.xml")
	enrichCmd.Flags().BoolVar(&enrichFileTags, "file-tags", false, "read tags from the audio files")
	enrichCmd.Flags().Int64SliceVar(&enrichTracks, "track", nil, "track ids to enrich (default: all)")
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	if enrichVDJ == "" && !enrichFileTags {
		return fmt.Errorf("nothing to do: pass --vdj, --file-tags or both")
	}

	opts := openOptions{Enrich: true, VDJDatabase: enrichVDJ, ReadFileTags: enrichFileTags}
	return withLibrary(cmd, opts, func(ctx context.Context, lib *library) error {
		result, err := lib.Enrich(ctx, service.EnrichRequest{TrackIDs: enrichTracks})
		if err != nil {
			return fmt.Errorf("enrich: %w", err)
		}
		if err := lib.Sync(ctx); err != nil {
			return fmt.Errorf("save library: %w", err)
		}

		out := cmd.OutOrStdout()
		printf(out, "Enriched %d tracks\n", len(result.Updated))
		if result.Missing > 0 {
			printf(out, "  Not found in any source: %d\n", result.Missing)
		}
		if result.Failed > 0 {
			printf(out, "  Failed lookups: %d\n", result.Failed)
		}
		if verbose {
			for _, id := range result.Updated {
				printf(out, "  updated %d\n", id)
			}
		}
		return nil
	})
}
