package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/crateapp/crate-server/internal/config"
	"github.com/crateapp/crate-server/internal/enrich"
	"github.com/crateapp/crate-server/internal/logger"
)

// EnricherHandle holds the configured enrichment sources and stops the
// VirtualDJ database watcher on shutdown. Source is nil when no source is
// enabled.
type EnricherHandle struct {
	Source enrich.Source
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *EnricherHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideEnricher provides the enrichment chain: the VirtualDJ database
// first, then tags read from the audio files.
func ProvideEnricher(i do.Injector) (*EnricherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	handle := &EnricherHandle{cancel: cancel}

	chain, err := OpenEnrichers(ctx, cfg, log)
	if err != nil {
		cancel()
		return nil, err
	}
	if len(chain) > 0 {
		handle.Source = chain
	}

	log.Info("Enrichment configured", "sources", len(chain))
	return handle, nil
}

// OpenEnrichers builds the enrichment chain from cfg. When watching is
// possible the VirtualDJ database is reloaded on change until ctx ends.
func OpenEnrichers(ctx context.Context, cfg *config.Config, log *logger.Logger) (enrich.Chain, error) {
	var chain enrich.Chain

	if cfg.Enrich.VDJDatabasePath != "" {
		vdjLog := log.WithComponent("vdj")
		db, err := enrich.OpenVDJDatabase(cfg.Enrich.VDJDatabasePath, vdjLog)
		if err != nil {
			return nil, err
		}
		chain = append(chain, db)

		go func() {
			if err := db.Watch(ctx); err != nil {
				vdjLog.Warn("VirtualDJ database watcher stopped", "error", err)
			}
		}()
	}

	if cfg.Enrich.ReadFileTags {
		chain = append(chain, enrich.FileTags{})
	}

	return chain, nil
}
