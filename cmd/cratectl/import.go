package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/crateapp/crate-server/internal/service"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the library with a flat export",
	Long: `Replace the library with a flat export: a JSON object holding a "tracks"
array and a parent-before-child "items" array. Use "-" to read from stdin.

Malformed records are skipped and reported; the rest is imported and saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	req, err := readImport(args[0])
	if err != nil {
		return err
	}

	return withLibrary(cmd, openOptions{}, func(ctx context.Context, lib *library) error {
		result, err := lib.Import(ctx, *req)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		if err := lib.Sync(ctx); err != nil {
			return fmt.Errorf("save library: %w", err)
		}

		out := cmd.OutOrStdout()
		printf(out, "Imported %d tracks and %d nodes\n", result.Tracks, result.Nodes)
		if len(result.Skipped) > 0 {
			printf(out, "  Skipped: %d records\n", len(result.Skipped))
		}
		if len(result.Rooted) > 0 {
			printf(out, "  Placed at root: %d items\n", len(result.Rooted))
		}
		if verbose {
			for _, msg := range result.Skipped {
				printf(cmd.ErrOrStderr(), "WARN: %s\n", msg)
			}
			for _, id := range result.Rooted {
				printf(cmd.ErrOrStderr(), "WARN: %s has no usable parent\n", id)
			}
		}
		return nil
	})
}

func readImport(path string) (*service.ImportRequest, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open export: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req service.ImportRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode export %s: %w", path, err)
	}
	return &req, nil
}
