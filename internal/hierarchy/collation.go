package hierarchy

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/crateapp/crate-server/internal/domain"
)

// nameSorter orders sibling sequences by display name.
// A collator is not safe for concurrent use; each Store owns one.
type nameSorter struct {
	collator *collate.Collator
}

func newNameSorter(tag language.Tag) *nameSorter {
	return &nameSorter{collator: collate.New(tag, collate.IgnoreCase)}
}

// sort reorders nodes in place. Equal names keep their prior relative order.
func (s *nameSorter) sort(nodes []*domain.Node) {
	slices.SortStableFunc(nodes, func(a, b *domain.Node) int {
		return s.collator.CompareString(a.Name, b.Name)
	})
}
