package hierarchy

import (
	"github.com/crateapp/crate-server/internal/domain"
	"github.com/crateapp/crate-server/internal/errors"
)

// FlatItem is one record of a flat library export. Items reference their
// parent by id; a parent is expected to precede its children.
type FlatItem struct {
	ID                string  `json:"id"`
	ParentID          string  `json:"parentId,omitempty"`
	Name              string  `json:"name"`
	Folder            bool    `json:"folder"`
	TrackIDs          []int64 `json:"trackIds,omitempty"`
	Description       string  `json:"description,omitempty"`
	Master            bool    `json:"master,omitempty"`
	Visible           *bool   `json:"visible,omitempty"`
	Smart             bool    `json:"smart,omitempty"`
	DistinguishedKind int     `json:"distinguishedKind,omitempty"`
}

// ImportReport describes items the importer could not place as given.
type ImportReport struct {
	// Skipped items were dropped; each error has code IMPORT_MALFORMED.
	Skipped []error
	// Rooted lists ids whose parent id did not resolve at the time the item
	// was read. They were placed at root level.
	Rooted []string
}

// Imported returns the number of input items that made it into the tree.
func (r ImportReport) Imported(total int) int {
	return total - len(r.Skipped)
}

// BuildFromFlat assembles a tree from a flat item sequence in a single pass.
//
// An item whose ParentID names an item already read is appended to that
// item's children; every other item becomes a root. Consequently an item
// listed before its parent ends up at root level. Input order is preserved.
func BuildFromFlat(items []FlatItem) ([]*domain.Node, domain.Index, ImportReport) {
	var report ImportReport
	roots := []*domain.Node{}
	byID := make(map[string]*domain.Node, len(items))

	for i, item := range items {
		if item.ID == "" {
			report.Skipped = append(report.Skipped,
				errors.ImportMalformedf("item %d has no id", i))
			continue
		}
		if _, dup := byID[item.ID]; dup {
			report.Skipped = append(report.Skipped,
				errors.ImportMalformedf("item %d repeats id %s", i, item.ID))
			continue
		}
		if item.ParentID == item.ID {
			report.Skipped = append(report.Skipped,
				errors.ImportMalformedf("item %d (%s) is its own parent", i, item.ID))
			continue
		}

		node := nodeFromFlat(item)
		byID[item.ID] = node

		parent, ok := byID[item.ParentID]
		if item.ParentID == "" || !ok || !parent.IsFolder() {
			if item.ParentID != "" {
				report.Rooted = append(report.Rooted, item.ID)
			}
			node.ParentID = ""
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	return roots, RebuildIndex(roots), report
}

func nodeFromFlat(item FlatItem) *domain.Node {
	var node *domain.Node
	if item.Folder {
		node = domain.NewFolder(item.ID, item.Name, item.ParentID)
	} else {
		node = domain.NewPlaylist(item.ID, item.Name, item.ParentID)
		node.TrackIDs = dedupe(item.TrackIDs)
	}

	node.Description = item.Description
	node.Master = item.Master
	node.Smart = item.Smart
	node.DistinguishedKind = item.DistinguishedKind
	if item.Visible != nil {
		node.Visible = *item.Visible
	}
	return node
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, v := range ids {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
