package storage

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/IshaanNene/BrokerScrape/internal/config"
	"github.com/IshaanNene/BrokerScrape/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists progress: batch holds the records accepted by the last
	// cycle and all holds every record accepted so far, batch included.
	Store(ctx context.Context, batch, all []types.Record) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Open builds the configured backends: the JSON snapshot and the CSV table
// always, MongoDB when a URI is set. runID tags the documents written to
// MongoDB.
func Open(ctx context.Context, cfg config.StorageConfig, runID string, logger *slog.Logger) (*MultiStorage, error) {
	snapshot, err := NewSnapshotStorage(filepath.Join(cfg.OutputDir, cfg.SnapshotFile), logger)
	if err != nil {
		return nil, &types.StorageError{Backend: "snapshot", Err: err}
	}
	backends := []Storage{snapshot}

	table, err := NewCSVStorage(filepath.Join(cfg.OutputDir, cfg.TableFile), cfg.CSVPhone, logger)
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Err: err}
	}
	backends = append(backends, table)

	if cfg.Mongo.URI != "" {
		mongo, err := NewMongoStorage(ctx, cfg.Mongo, runID, logger)
		if err != nil {
			closeAll(backends)
			return nil, &types.StorageError{Backend: "mongodb", Err: err}
		}
		backends = append(backends, mongo)
	}

	return NewMultiStorage(backends, logger), nil
}

func closeAll(backends []Storage) {
	for _, b := range backends {
		_ = b.Close()
	}
}
