// Package hierarchy owns the library's folder/playlist tree.
//
// The tree is an ordered sequence of root nodes. Every node is located by a
// path of child indices, and a derived index maps node ids to those paths.
// The index is never patched: it is recomputed from scratch after every
// structural change, which keeps it trivially consistent with the tree.
package hierarchy

import (
	"slices"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/errors"
)

// RebuildIndex walks roots in pre-order and returns the path of every node.
func RebuildIndex(roots []*domain.Node) domain.Index {
	index := make(domain.Index)
	walk(roots, nil, index)
	return index
}

func walk(nodes []*domain.Node, parent domain.Path, index domain.Index) {
	for i, node := range nodes {
		path := append(slices.Clone(parent), i)
		index[node.ID] = path
		if node.IsFolder() {
			walk(node.Children, path, index)
		}
	}
}

// Resolve follows path from roots by sequential child indexing.
func Resolve(roots []*domain.Node, path domain.Path) (*domain.Node, bool) {
	if len(path) == 0 {
		return nil, false
	}

	nodes := roots
	var node *domain.Node
	for _, i := range path {
		if i < 0 || i >= len(nodes) {
			return nil, false
		}
		node = nodes[i]
		nodes = node.Children
	}
	return node, true
}

// CheckUniqueIDs verifies that no two nodes under roots share an id. A tree
// that fails it cannot be indexed: the later node would shadow the earlier.
func CheckUniqueIDs(roots []*domain.Node) error {
	seen := make(map[string]struct{})
	var dup string
	var visit func([]*domain.Node) bool
	visit = func(nodes []*domain.Node) bool {
		for _, node := range nodes {
			if _, ok := seen[node.ID]; ok {
				dup = node.ID
				return false
			}
			seen[node.ID] = struct{}{}
			if node.IsFolder() && !visit(node.Children) {
				return false
			}
		}
		return true
	}
	if !visit(roots) {
		return errors.ImportMalformedf("node id %s appears more than once in the hierarchy", dup)
	}
	return nil
}
