package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/eventsphere/eventsphere-server/internal/config"
	"github.com/eventsphere/eventsphere-server/internal/logger"
	"github.com/eventsphere/eventsphere-server/internal/search"
	"github.com/eventsphere/eventsphere-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve event index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.Open(search.Options{
		Path:   cfg.Storage.SearchPath(),
		Logger: log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount, "created", index.Created())

	return &SearchIndexHandle{Index: index}, nil
}

// ProvideSearchService provides the public event search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.Index, log.Logger), nil
}

// TriggerSearchReindexIfNeeded fills a freshly created index from the store.
// Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !indexHandle.Created() {
		return
	}

	ctx := context.Background()
	events, err := storeHandle.ListEvents(ctx)
	if err != nil {
		log.Warn("Could not list events for initial reindex", "error", err)
		return
	}
	if len(events) == 0 {
		return
	}

	log.Info("Search index was created but events exist, triggering initial reindex",
		"event_count", len(events),
	)

	go func() {
		if err := indexHandle.IndexEvents(context.Background(), events); err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		count, _ := indexHandle.DocumentCount()
		log.Info("Initial search reindex completed", "documents", count)
	}()
}
