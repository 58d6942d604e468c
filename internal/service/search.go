package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eventsphere/eventsphere-server/internal/logger"
	"github.com/eventsphere/eventsphere-server/internal/search"
)

// Searcher runs queries against the event index. *search.Index implements it.
type Searcher interface {
	Search(ctx context.Context, params search.Params) (*search.Result, error)
}

// SearchService exposes full-text search over public events.
type SearchService struct {
	searcher Searcher
	log      *logger.Logger
}

// NewSearchService creates a search service.
func NewSearchService(searcher Searcher, l *slog.Logger) *SearchService {
	return &SearchService{searcher: searcher, log: logger.Wrap(l)}
}

// SearchPublic matches query against the name, description and localization
// of PUBLIC events that are CREATED or ACTIVE, ignoring case and accents.
func (s *SearchService) SearchPublic(ctx context.Context, query string, limit int) ([]search.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := s.searcher.Search(ctx, search.PublicUpcoming(query, limit))
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	s.log.Debug("public search", "query", query, "total", res.Total)
	return res.Hits, nil
}
