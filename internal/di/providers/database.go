package providers

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/do/v2"

	"github.com/eventsphere/eventsphere-server/internal/config"
	"github.com/eventsphere/eventsphere-server/internal/logger"
	"github.com/eventsphere/eventsphere-server/internal/store/blob"
	"github.com/eventsphere/eventsphere-server/internal/store/sqlite"
)

// StoreHandle wraps the sqlite store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the relational store for users, events and participants.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := cfg.Storage.DatabasePath()
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)
	return &StoreHandle{Store: db}, nil
}

// BlobStoreHandle wraps the photo blob store with shutdown capability.
type BlobStoreHandle struct {
	*blob.Store
}

// Shutdown implements do.Shutdownable.
func (h *BlobStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideBlobStore provides the badger-backed store for event photos.
func ProvideBlobStore(i do.Injector) (*BlobStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := cfg.Storage.BlobPath()
	blobs, err := blob.Open(path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Blob store initialized", "path", path)
	return &BlobStoreHandle{Store: blobs}, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
