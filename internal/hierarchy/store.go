package hierarchy

import (
	"slices"

	"golang.org/x/text/language"

	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/errors"
	"github.com/crateapp/crate-server/internal/id"
)

// Store owns the tree and its derived index.
//
// Every operation checks all of its preconditions before the first write, so
// a failed call leaves the tree untouched. Store is not safe for concurrent
// use; callers serialize access.
type Store struct {
	roots  []*domain.Node
	index  domain.Index
	sorter *nameSorter
	newID  func() (string, error)
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the node id generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithCollation sets the language used to order sibling names.
func WithCollation(tag language.Tag) Option {
	return func(s *Store) {
		s.sorter = newNameSorter(tag)
	}
}

// NewStore takes ownership of roots and builds the index over them.
func NewStore(roots []*domain.Node, opts ...Option) *Store {
	if roots == nil {
		roots = []*domain.Node{}
	}
	s := &Store{
		roots:  roots,
		sorter: newNameSorter(language.English),
		newID:  id.NewNodeID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reindex()
	return s
}

// Create adds an empty node under parentFolderID, or at root level when
// parentFolderID is empty, and returns its id.
func (s *Store) Create(parentFolderID string, kind domain.NodeKind, name string) (string, error) {
	if !kind.Valid() {
		return "", errors.Validationf("unknown node kind %q", kind)
	}

	container := &s.roots
	if parentFolderID != "" {
		parent, err := s.lookup(parentFolderID)
		if err != nil {
			return "", err
		}
		if !parent.IsFolder() {
			return "", errors.NotAFolderf("%s is a playlist and cannot hold children", parentFolderID)
		}
		container = &parent.Children
	}

	nodeID, err := s.newID()
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "generate node id")
	}

	var node *domain.Node
	switch kind {
	case domain.KindFolder:
		node = domain.NewFolder(nodeID, name, parentFolderID)
	case domain.KindPlaylist:
		node = domain.NewPlaylist(nodeID, name, parentFolderID)
	}

	*container = append(*container, node)
	s.sorter.sort(*container)
	s.reindex()
	return nodeID, nil
}

// Rename changes a node's display name and returns a copy of the result.
// Sibling order is left as is.
func (s *Store) Rename(nodeID, newName string) (domain.Node, error) {
	node, err := s.lookup(nodeID)
	if err != nil {
		return domain.Node{}, err
	}
	node.Name = newName
	return *node.Clone(), nil
}

// Remove deletes a node together with its subtree.
func (s *Store) Remove(nodeID string) error {
	path, ok := s.index[nodeID]
	if !ok {
		return errors.NotFoundf("node %s not found", nodeID)
	}
	s.detach(path)
	s.reindex()
	return nil
}

// MoveToRoot relocates a node to the root level. It reports false, and does
// nothing, when the node already lives there.
func (s *Store) MoveToRoot(nodeID string) (bool, error) {
	path, ok := s.index[nodeID]
	if !ok {
		return false, errors.NotFoundf("node %s not found", nodeID)
	}
	if len(path) == 1 {
		return false, nil
	}

	node := s.detach(path)
	node.ParentID = ""
	s.roots = append(s.roots, node)
	s.sorter.sort(s.roots)
	s.reindex()
	return true, nil
}

// Move relocates a node, with its subtree, into targetFolderID.
func (s *Store) Move(nodeID, targetFolderID string) error {
	if nodeID == targetFolderID {
		return errors.SelfMove(nodeID)
	}

	nodePath, ok := s.index[nodeID]
	if !ok {
		return errors.NotFoundf("node %s not found", nodeID)
	}
	target, err := s.lookup(targetFolderID)
	if err != nil {
		return err
	}
	if !target.IsFolder() {
		return errors.NotAFolderf("%s is a playlist and cannot hold children", targetFolderID)
	}
	if s.index[targetFolderID].HasPrefix(nodePath) {
		return errors.CyclicMove(nodeID, targetFolderID)
	}

	// target is held by pointer, so detaching shifts no reference we still need.
	node := s.detach(nodePath)
	node.ParentID = targetFolderID
	target.Children = append(target.Children, node)
	s.sorter.sort(target.Children)
	s.reindex()
	return nil
}

// AddTracksToPlaylist appends track ids the playlist does not hold yet, in
// input order. It reports false when the node is a folder.
func (s *Store) AddTracksToPlaylist(playlistID string, trackIDs []int64) (bool, error) {
	node, err := s.lookup(playlistID)
	if err != nil {
		return false, err
	}
	if !node.IsPlaylist() {
		return false, nil
	}

	seen := make(map[int64]struct{}, len(node.TrackIDs)+len(trackIDs))
	for _, trackID := range node.TrackIDs {
		seen[trackID] = struct{}{}
	}
	for _, trackID := range trackIDs {
		if _, dup := seen[trackID]; dup {
			continue
		}
		seen[trackID] = struct{}{}
		node.TrackIDs = append(node.TrackIDs, trackID)
	}
	return true, nil
}

// RemoveTracksFromPlaylist drops the given ids from a playlist, keeping the
// order of the rest. It reports false when the node is a folder.
func (s *Store) RemoveTracksFromPlaylist(playlistID string, trackIDs []int64) (bool, error) {
	node, err := s.lookup(playlistID)
	if err != nil {
		return false, err
	}
	if !node.IsPlaylist() {
		return false, nil
	}

	drop := make(map[int64]struct{}, len(trackIDs))
	for _, trackID := range trackIDs {
		drop[trackID] = struct{}{}
	}
	node.TrackIDs = slices.DeleteFunc(node.TrackIDs, func(trackID int64) bool {
		_, ok := drop[trackID]
		return ok
	})
	return true, nil
}

// Node returns a deep copy of the node with the given id.
func (s *Store) Node(nodeID string) (domain.Node, error) {
	node, err := s.lookup(nodeID)
	if err != nil {
		return domain.Node{}, err
	}
	return *node.Clone(), nil
}

// Path returns the current path of a node.
func (s *Store) Path(nodeID string) (domain.Path, bool) {
	path, ok := s.index[nodeID]
	if !ok {
		return nil, false
	}
	return slices.Clone(path), true
}

// Snapshot returns deep copies of the roots and the index.
func (s *Store) Snapshot() ([]*domain.Node, domain.Index) {
	return domain.CloneNodes(s.roots), s.index.Clone()
}

// Index returns a copy of the id to path index.
func (s *Store) Index() domain.Index {
	return s.index.Clone()
}

// Len returns the number of nodes in the tree.
func (s *Store) Len() int {
	return len(s.index)
}

// FolderTrackIDs collects the track ids of every playlist under a folder in
// pre-order. Repeated ids keep their first position. For a playlist it
// returns the playlist's own ids.
func (s *Store) FolderTrackIDs(nodeID string) (string, []int64, error) {
	node, err := s.lookup(nodeID)
	if err != nil {
		return "", nil, err
	}

	seen := make(map[int64]struct{})
	ids := []int64{}
	var collect func(*domain.Node)
	collect = func(n *domain.Node) {
		switch n.Kind {
		case domain.KindPlaylist:
			for _, trackID := range n.TrackIDs {
				if _, dup := seen[trackID]; dup {
					continue
				}
				seen[trackID] = struct{}{}
				ids = append(ids, trackID)
			}
		case domain.KindFolder:
			for _, child := range n.Children {
				collect(child)
			}
		}
	}
	collect(node)
	return node.Name, ids, nil
}

func (s *Store) lookup(nodeID string) (*domain.Node, error) {
	path, ok := s.index[nodeID]
	if !ok {
		return nil, errors.NotFoundf("node %s not found", nodeID)
	}
	node, ok := Resolve(s.roots, path)
	if !ok {
		return nil, errors.Internal("index out of sync with tree")
	}
	return node, nil
}

// detach splices the node at path out of its sibling sequence. The index is
// stale afterwards until reindex runs.
func (s *Store) detach(path domain.Path) *domain.Node {
	container := &s.roots
	if len(path) > 1 {
		parent, _ := Resolve(s.roots, path[:len(path)-1])
		container = &parent.Children
	}
	i := path[len(path)-1]
	node := (*container)[i]
	*container = slices.Delete(*container, i, i+1)
	return node
}

func (s *Store) reindex() {
	s.index = RebuildIndex(s.roots)
}
