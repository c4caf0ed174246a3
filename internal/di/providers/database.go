package providers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/crateapp/crate-server/internal/config"
	"github.com/crateapp/crate-server/internal/logger"
	"github.com/crateapp/crate-server/internal/sse"
	"github.com/crateapp/crate-server/internal/store"
	"github.com/crateapp/crate-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// GatewayHandle wraps the persistence gateway with shutdown capability.
type GatewayHandle struct {
	store.Gateway
}

// Shutdown implements do.Shutdownable.
func (h *GatewayHandle) Shutdown() error {
	return h.Close()
}

// ProvideGateway provides the persistence gateway for the configured backend.
func ProvideGateway(i do.Injector) (*GatewayHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	gw, err := OpenGateway(cfg, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Persistence gateway opened", "backend", cfg.Storage.Backend, "path", cfg.Library.DataPath)
	return &GatewayHandle{Gateway: gw}, nil
}

// OpenGateway opens the document backend selected in cfg under the data path.
// The JSON backend writes tracks.json, hierarchy.json and color-tags.json
// directly into it; badger and sqlite keep their files in subdirectories.
func OpenGateway(cfg *config.Config, log *slog.Logger) (store.Gateway, error) {
	dir := cfg.Library.DataPath
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	var docs store.DocumentStore
	switch cfg.Storage.Backend {
	case config.BackendJSON, "":
		files, err := store.NewJSONFiles(dir)
		if err != nil {
			return nil, err
		}
		docs = files
	case config.BackendBadger:
		db, err := store.NewBadger(filepath.Join(dir, "db"), log)
		if err != nil {
			return nil, err
		}
		docs = db
	case config.BackendSQLite:
		db, err := sqlite.Open(filepath.Join(dir, "library.db"), log)
		if err != nil {
			return nil, err
		}
		docs = db
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return store.NewGateway(docs, log), nil
}
