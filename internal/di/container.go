// Package di provides dependency injection configuration for the EventSphere server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/eventsphere/eventsphere-server/internal/config"
	"github.com/eventsphere/eventsphere-server/internal/di/providers"
	"github.com/eventsphere/eventsphere-server/internal/logger"
	"github.com/eventsphere/eventsphere-server/internal/service"
	"github.com/eventsphere/eventsphere-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBlobStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Business services
	do.Provide(injector, providers.ProvideRedeemLimiter)
	do.Provide(injector, providers.ProvideEventService)
	do.Provide(injector, providers.ProvideAccessService)
	do.Provide(injector, providers.ProvideAttendanceService)

	// Workers
	do.Provide(injector, providers.ProvideSweepJob)

	return injector
}

// Bootstrap initializes all services and starts the workers.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.BlobStoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*service.SearchService](injector)

	// Business services
	_ = do.MustInvoke[*providers.RedeemLimiterHandle](injector)
	_ = do.MustInvoke[*service.EventService](injector)
	_ = do.MustInvoke[*service.AccessService](injector)
	_ = do.MustInvoke[*service.AttendanceService](injector)

	// Reindex before the first sweep so its reindexing lands on a full index.
	providers.TriggerSearchReindexIfNeeded(injector)

	// Workers
	_ = do.MustInvoke[*providers.SweepJob](injector)

	return nil
}
