package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/eventsphere/eventsphere-server/internal/domain"
	"github.com/eventsphere/eventsphere-server/internal/store"
)

// Index wraps a Bleve index of events. All methods are safe for concurrent use.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex // held exclusively during Rebuild

	created bool
}

var _ store.SearchIndexer = (*Index)(nil)

// Options configures the index.
type Options struct {
	// Path is the index directory. Empty means an in-memory index.
	Path   string
	Logger *slog.Logger
}

// mappingVersion is bumped whenever buildIndexMapping changes. A mismatch
// with the version file next to the index causes a rebuild on open.
const mappingVersion = "1"

// Open opens the index at opts.Path, creating it when missing, outdated or
// unreadable. Created reports whether the caller needs to repopulate it.
func Open(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if opts.Path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Index{index: idx, logger: logger, created: true}, nil
	}

	versionPath := opts.Path + ".version"
	var idx bleve.Index

	if _, err := os.Stat(opts.Path); err == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil || string(existing) != mappingVersion:
			logger.Info("search index mapping changed, rebuilding",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
		default:
			idx, err = bleve.Open(opts.Path)
			if err != nil {
				logger.Warn("failed to open search index, recreating", "path", opts.Path, "error", err)
				idx = nil
			}
		}
	}

	created := false
	if idx == nil {
		if err := os.RemoveAll(opts.Path); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		var err error
		idx, err = bleve.New(opts.Path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		created = true
		logger.Info("created search index", "path", opts.Path, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened search index", "path", opts.Path)
	}

	return &Index{index: idx, path: opts.Path, logger: logger, created: created}, nil
}

// Created reports whether Open started from an empty index.
func (s *Index) Created() bool { return s.created }

// Close releases the index.
func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexEvent adds or replaces the document for e.
func (s *Index) IndexEvent(ctx context.Context, e *domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := NewDocument(e)
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexEvents indexes events in batches of 500.
func (s *Index) IndexEvents(ctx context.Context, events []*domain.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500
	for i := 0; i < len(events); i += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+batchSize, len(events))

		batch := s.index.NewBatch()
		for _, e := range events[i:end] {
			doc := NewDocument(e)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteEvent removes the document for eventID.
func (s *Index) DeleteEvent(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(eventID)
}

// DocumentCount returns the number of indexed events.
func (s *Index) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document and starts from an empty index.
func (s *Index) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		idx bleve.Index
		err error
	)
	if s.path == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		idx, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = idx
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}
