package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/crateapp/crate-server/internal/logger"
	"github.com/crateapp/crate-server/internal/service"
)

// LibraryServiceHandle wraps the library service and drains its writer on
// shutdown.
type LibraryServiceHandle struct {
	*service.LibraryService
}

// Shutdown implements do.Shutdownable.
func (h *LibraryServiceHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Close(ctx)
}

// ProvideLibraryService provides the library service, loaded from the gateway.
func ProvideLibraryService(i do.Injector) (*LibraryServiceHandle, error) {
	gateway := do.MustInvoke[*GatewayHandle](i)
	index := do.MustInvoke[*SearchIndexHandle](i)
	enricher := do.MustInvoke[*EnricherHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewLibraryService(service.Options{
		Gateway:  gateway.Gateway,
		Index:    index.TrackIndex,
		Enricher: enricher.Source,
		Emitter:  sseHandle.Manager,
		Logger:   log.WithComponent("library"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	found, err := svc.Load(ctx)
	if err != nil {
		_ = svc.Close(ctx)
		return nil, err
	}
	if !found {
		log.Info("No library documents found, starting empty")
	}

	return &LibraryServiceHandle{LibraryService: svc}, nil
}
