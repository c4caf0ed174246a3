package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/service"
)

var (
	sortColumn    string
	sortDirection int
	sortNode      string
)

var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "List tracks ordered by a column",
	Long: `List tracks ordered by one of the track table columns: num, tag, bpm,
title, time, artist or comments. Direction 1 sorts ascending, -1 descending
and 0 keeps collection order. --node limits the list to a folder or playlist.`,
	Args: cobra.NoArgs,
	RunE: runSort,
}

func init() {
	sortCmd.Flags().StringVarP(&sortColumn, "column", "c", "title", "column to sort by")
	sortCmd.Flags().IntVar(&sortDirection, "direction", 1, "1 ascending, -1 descending, 0 unsorted")
	sortCmd.Flags().StringVar(&sortNode, "node", "", "folder or playlist id")
}

func runSort(cmd *cobra.Command, _ []string) error {
	return withLibrary(cmd, openOptions{}, func(_ context.Context, lib *library) error {
		list, err := lib.SortedTracks(service.ListTracksRequest{
			Sort:      sortColumn,
			Direction: sortDirection,
			NodeID:    sortNode,
		})
		if err != nil {
			return fmt.Errorf("sort tracks: %w", err)
		}
		writeTracks(cmd.OutOrStdout(), list, lib.ColorTags())
		return nil
	})
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// writeTracks prints one row per track in the column order of the track
// table.
func writeTracks(w io.Writer, list []*domain.Track, colors map[int64]string) {
	tw := newTable(w)
	printf(tw, "ID\tTAG\tBPM\tTITLE\tTIME\tARTIST\tCOMMENTS\n")
	for _, t := range list {
		bpm := ""
		if t.BPM > 0 {
			bpm = fmt.Sprint(t.BPM)
		}
		printf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.TrackID, colors[t.TrackID], bpm, t.Name, formatDuration(t.TotalTime), t.Artist,
			strings.ReplaceAll(t.Comments, "\n", " "))
	}
	_ = tw.Flush()
}

// formatDuration renders milliseconds as m:ss.
func formatDuration(ms int64) string {
	if ms <= 0 {
		return ""
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
