// Package di provides dependency injection configuration for the Crate server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/crateapp/crate-server/internal/config"
	"github.com/crateapp/crate-server/internal/di/providers"
	"github.com/crateapp/crate-server/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Persistence and notifications
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideGateway)

	// Search and enrichment
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideEnricher)

	// Library
	do.Provide(injector, providers.ProvideLibraryService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services in dependency order.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)

	if _, err := do.Invoke[*providers.GatewayHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.EnricherHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.LibraryServiceHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
