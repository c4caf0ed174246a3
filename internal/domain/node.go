package domain

import (
	"encoding/json"
	"fmt"
)

// NodeKind distinguishes the two node variants of the library tree.
type NodeKind string

const (
	// KindFolder is a node that owns an ordered list of child nodes.
	KindFolder NodeKind = "folder"
	// KindPlaylist is a node that holds an ordered list of track ids.
	KindPlaylist NodeKind = "playlist"
)

// Valid reports whether k is one of the known node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindFolder, KindPlaylist:
		return true
	default:
		return false
	}
}

// Node is a folder or playlist in the library hierarchy.
// Children is only meaningful for folders and TrackIDs only for playlists;
// the kind never changes after creation.
type Node struct {
	ID       string
	Name     string
	ParentID string // empty for root-level nodes
	Kind     NodeKind

	Children []*Node
	TrackIDs []int64

	// Flags carried through from an external library import.
	Description       string
	Master            bool
	Visible           bool
	Smart             bool
	DistinguishedKind int
}

// NewFolder creates an empty folder node.
func NewFolder(id, name, parentID string) *Node {
	return &Node{ID: id, Name: name, ParentID: parentID, Kind: KindFolder, Children: []*Node{}, Visible: true}
}

// NewPlaylist creates an empty playlist node.
func NewPlaylist(id, name, parentID string) *Node {
	return &Node{ID: id, Name: name, ParentID: parentID, Kind: KindPlaylist, TrackIDs: []int64{}, Visible: true}
}

// IsFolder returns true if the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// IsPlaylist returns true if the node is a playlist.
func (n *Node) IsPlaylist() bool {
	return n.Kind == KindPlaylist
}

// IsRoot returns true if the node has no parent folder.
func (n *Node) IsRoot() bool {
	return n.ParentID == ""
}

// Clone returns a deep copy of the node and its subtree.
func (n *Node) Clone() *Node {
	c := *n
	switch n.Kind {
	case KindFolder:
		c.Children = CloneNodes(n.Children)
		c.TrackIDs = nil
	case KindPlaylist:
		c.TrackIDs = append(make([]int64, 0, len(n.TrackIDs)), n.TrackIDs...)
		c.Children = nil
	}
	return &c
}

// CloneNodes deep-copies a sibling sequence.
func CloneNodes(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// nodeJSON is the persisted shape of a Node.
type nodeJSON struct {
	ID                string   `json:"id"`
	Kind              NodeKind `json:"type"`
	Name              string   `json:"name"`
	ParentID          *string  `json:"parentId"`
	Children          *[]*Node `json:"children,omitempty"`
	TrackIDs          *[]int64 `json:"trackIds,omitempty"`
	Description       string   `json:"description,omitempty"`
	Master            bool     `json:"master,omitempty"`
	Visible           *bool    `json:"visible,omitempty"`
	Smart             bool     `json:"smart,omitempty"`
	DistinguishedKind int      `json:"distinguishedKind,omitempty"`
}

// MarshalJSON writes children for folders and trackIds for playlists, never both.
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		ID:                n.ID,
		Kind:              n.Kind,
		Name:              n.Name,
		Description:       n.Description,
		Master:            n.Master,
		Smart:             n.Smart,
		DistinguishedKind: n.DistinguishedKind,
	}
	if n.ParentID != "" {
		parentID := n.ParentID
		out.ParentID = &parentID
	}
	if !n.Visible {
		hidden := false
		out.Visible = &hidden
	}

	switch n.Kind {
	case KindFolder:
		children := n.Children
		if children == nil {
			children = []*Node{}
		}
		out.Children = &children
	case KindPlaylist:
		trackIDs := n.TrackIDs
		if trackIDs == nil {
			trackIDs = []int64{}
		}
		out.TrackIDs = &trackIDs
	default:
		return nil, fmt.Errorf("node %s: unknown kind %q", n.ID, n.Kind)
	}

	return json.Marshal(out)
}

// UnmarshalJSON rejects unknown kinds and defaults Visible to true.
func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.ID == "" {
		return fmt.Errorf("node without id")
	}

	*n = Node{
		ID:                in.ID,
		Name:              in.Name,
		Kind:              in.Kind,
		Description:       in.Description,
		Master:            in.Master,
		Visible:           in.Visible == nil || *in.Visible,
		Smart:             in.Smart,
		DistinguishedKind: in.DistinguishedKind,
	}
	if in.ParentID != nil {
		n.ParentID = *in.ParentID
	}

	switch in.Kind {
	case KindFolder:
		n.Children = []*Node{}
		if in.Children != nil {
			n.Children = *in.Children
		}
	case KindPlaylist:
		n.TrackIDs = []int64{}
		if in.TrackIDs != nil {
			n.TrackIDs = *in.TrackIDs
		}
	default:
		return fmt.Errorf("node %s: unknown kind %q", in.ID, in.Kind)
	}
	return nil
}
