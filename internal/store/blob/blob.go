// Package blob stores binary payloads such as event photos in Badger.
package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/eventsphere/eventsphere-server/internal/store"
)

// Key layout:
//
//	blob:data:{ref} -> payload
//	blob:type:{ref} -> content type
const (
	dataPrefix = "blob:data:"
	typePrefix = "blob:type:"
	refPrefix  = "blob-"
)

// Store is a BlobStore backed by a Badger database.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ store.BlobStore = (*Store)(nil)

// Open opens (or creates) the Badger directory at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	return open(opts, logger)
}

// OpenInMemory opens a Badger database that lives only in memory.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logger.Info("blob store opened", "path", opts.Dir, "in_memory", opts.InMemory)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Store writes data under a fresh reference and returns it.
func (s *Store) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty blob")
	}

	ref := refPrefix + uuid.NewString()
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(ref), data); err != nil {
			return err
		}
		return txn.Set(typeKey(ref), []byte(contentType))
	})
	if err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}

	s.logger.Debug("blob stored", "ref", ref, "size", len(data), "content_type", contentType)
	return ref, nil
}

// Get returns the payload and content type stored under ref.
// Returns store.ErrNotFound for unknown references.
func (s *Store) Get(ctx context.Context, ref string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	var (
		data        []byte
		contentType string
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(ref))
		if err != nil {
			return err
		}
		if data, err = item.ValueCopy(nil); err != nil {
			return err
		}

		item, err = txn.Get(typeKey(ref))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			contentType = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, "", store.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get blob: %w", err)
	}
	return data, contentType, nil
}

// Delete removes ref. Deleting an unknown reference is not an error.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(dataKey(ref)); err != nil {
			return err
		}
		return txn.Delete(typeKey(ref))
	})
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// Refs lists every stored reference.
func (s *Store) Refs(ctx context.Context) ([]string, error) {
	var refs []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(dataPrefix)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			refs = append(refs, string(it.Item().Key()[len(dataPrefix):]))
		}
		return nil
	})
	return refs, err
}

func dataKey(ref string) []byte { return []byte(dataPrefix + ref) }
func typeKey(ref string) []byte { return []byte(typePrefix + ref) }
