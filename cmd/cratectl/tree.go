package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/crateapp/crate-server/internal/domain"
)

var treeOutput string

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the folder and playlist tree",
	Long:  "Print the folder and playlist tree with the index path of every node.",
	Args:  cobra.NoArgs,
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().StringVarP(&treeOutput, "output", "o", "text", "output format (text, yaml)")
}

func runTree(cmd *cobra.Command, _ []string) error {
	if treeOutput != "text" && treeOutput != "yaml" {
		return fmt.Errorf("unknown output format %q", treeOutput)
	}

	return withLibrary(cmd, openOptions{}, func(_ context.Context, lib *library) error {
		roots := lib.Snapshot().Hierarchy
		if treeOutput == "yaml" {
			return writeTreeYAML(cmd.OutOrStdout(), roots)
		}
		writeTreeText(cmd.OutOrStdout(), roots)
		return nil
	})
}

// treeEntry is the YAML form of a node.
type treeEntry struct {
	ID       string      `yaml:"id"`
	Kind     string      `yaml:"kind"`
	Name     string      `yaml:"name"`
	Path     []int       `yaml:"path,flow"`
	Tracks   int         `yaml:"tracks,omitempty"`
	Children []treeEntry `yaml:"children,omitempty"`
}

func buildTreeEntries(nodes []*domain.Node, parent domain.Path) []treeEntry {
	entries := make([]treeEntry, 0, len(nodes))
	for i, n := range nodes {
		path := append(parent[:len(parent):len(parent)], i)
		entries = append(entries, treeEntry{
			ID:       n.ID,
			Kind:     string(n.Kind),
			Name:     n.Name,
			Path:     path,
			Tracks:   len(n.TrackIDs),
			Children: buildTreeEntries(n.Children, path),
		})
	}
	return entries
}

func writeTreeYAML(w io.Writer, roots []*domain.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(buildTreeEntries(roots, nil)); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return enc.Close()
}

func writeTreeText(w io.Writer, roots []*domain.Node) {
	var walk func(entries []treeEntry, depth int)
	walk = func(entries []treeEntry, depth int) {
		for _, e := range entries {
			indent := strings.Repeat("  ", depth)
			if e.Kind == string(domain.KindFolder) {
				printf(w, "%s%s/  %v\n", indent, e.Name, e.Path)
			} else {
				printf(w, "%s%s  %v (%d tracks)\n", indent, e.Name, e.Path, e.Tracks)
			}
			walk(e.Children, depth+1)
		}
	}
	walk(buildTreeEntries(roots, nil), 0)
}
