package domain

// Snapshot is the complete state of a library at one instant.
// Snapshots handed out by the engine are copies and may be read freely.
type Snapshot struct {
	Tracks    map[string]*Track `json:"tracks"`
	Hierarchy []*Node           `json:"hierarchy"`
	Index     Index             `json:"index"`
}

// TracksDocument is the persisted form of the track collection.
type TracksDocument struct {
	Tracks map[string]*Track `json:"tracks"`
}

// HierarchyDocument is the persisted form of the tree and its index.
type HierarchyDocument struct {
	Hierarchy []*Node `json:"hierarchy"`
	Index     Index   `json:"index"`
}

// TracksDocument splits the track half out of the snapshot.
func (s *Snapshot) TracksDocument() TracksDocument {
	tracks := s.Tracks
	if tracks == nil {
		tracks = map[string]*Track{}
	}
	return TracksDocument{Tracks: tracks}
}

// HierarchyDocument splits the tree half out of the snapshot.
func (s *Snapshot) HierarchyDocument() HierarchyDocument {
	hierarchy := s.Hierarchy
	if hierarchy == nil {
		hierarchy = []*Node{}
	}
	index := s.Index
	if index == nil {
		index = Index{}
	}
	return HierarchyDocument{Hierarchy: hierarchy, Index: index}
}
