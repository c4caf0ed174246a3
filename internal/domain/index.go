package domain

import "slices"

// Path locates a node by child indices from the root sequence.
// Path[0] is the root-level ancestor's position; a root node has a one-element path.
type Path []int

// HasPrefix reports whether p equals prefix or extends it.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return slices.Equal(p[:len(prefix)], prefix)
}

// Depth returns the number of ancestors of the node at p.
func (p Path) Depth() int {
	return len(p) - 1
}

// Index maps every node id in a hierarchy to its path.
type Index map[string]Path

// Clone returns a deep copy of the index.
func (idx Index) Clone() Index {
	out := make(Index, len(idx))
	for id, p := range idx {
		out[id] = slices.Clone(p)
	}
	return out
}
