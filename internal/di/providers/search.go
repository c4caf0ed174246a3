package providers

import (
	"github.com/samber/do/v2"

	"github.com/crateapp/crate-server/internal/config"
	"github.com/crateapp/crate-server/internal/logger"
	"github.com/crateapp/crate-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.TrackIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the bleve track index. It starts empty; the
// library service fills it when the library loads.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewTrackIndex(search.Options{
		DataPath: cfg.Search.IndexPath,
		Logger:   log.WithComponent("search"),
	})
	if err != nil {
		return nil, err
	}

	location := cfg.Search.IndexPath
	if location == "" {
		location = "memory"
	}
	log.Info("Search index initialized", "location", location)

	return &SearchIndexHandle{TrackIndex: index}, nil
}
