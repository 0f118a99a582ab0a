package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/BrokerScrape/internal/types"
)

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// --- JSON Snapshot Storage ---

// SnapshotStorage rewrites a JSON array of every accepted record after each
// cycle. The file is replaced atomically, so a crash mid-write leaves the
// previous snapshot intact.
type SnapshotStorage struct {
	path   string
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewSnapshotStorage creates a new JSON snapshot storage.
func NewSnapshotStorage(outputPath string, logger *slog.Logger) (*SnapshotStorage, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}
	return &SnapshotStorage{
		path:   outputPath,
		logger: logger.With("component", "snapshot_storage"),
	}, nil
}

func (s *SnapshotStorage) Name() string { return "snapshot" }

func (s *SnapshotStorage) Store(_ context.Context, _, all []types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if all == nil {
		all = []types.Record{}
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(all); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	s.count = len(all)
	s.logger.Debug("snapshot written", "path", s.path, "records", len(all))
	return nil
}

func (s *SnapshotStorage) Close() error {
	s.logger.Info("snapshot closed", "path", s.path, "records", s.count)
	return nil
}

// --- CSV Storage ---

// CSVStorage appends each batch as CSV rows. The header row is written only
// when the file is missing or empty, so reruns keep appending to one table.
// A failed batch is rolled back to the previous end of file and the writer
// is rebuilt, so only that batch is lost.
type CSVStorage struct {
	path          string
	file          *os.File
	out           io.Writer
	writer        *csv.Writer
	columns       []types.Column
	headerPending bool
	mu            sync.Mutex
	count         int
	logger        *slog.Logger
}

// NewCSVStorage opens outputPath for appending. withPhone adds the phone column.
func NewCSVStorage(outputPath string, withPhone bool, logger *slog.Logger) (*CSVStorage, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat output file: %w", err)
	}

	return &CSVStorage{
		path:          outputPath,
		file:          f,
		out:           f,
		writer:        csv.NewWriter(f),
		columns:       types.Columns(withPhone),
		headerPending: info.Size() == 0,
		logger:        logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStorage) Name() string { return "csv" }

func (s *CSVStorage) Store(_ context.Context, batch, _ []types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mark, err := s.size()
	if err != nil {
		return err
	}
	if err := s.writeBatch(batch); err != nil {
		s.rollback(mark)
		return err
	}

	s.headerPending = false
	s.count += len(batch)
	s.logger.Debug("rows appended", "path", s.path, "rows", len(batch), "total", s.count)
	return nil
}

func (s *CSVStorage) writeBatch(batch []types.Record) error {
	if s.headerPending {
		header := make([]string, len(s.columns))
		for i, c := range s.columns {
			header[i] = c.Header
		}
		if err := s.writer.Write(header); err != nil {
			return fmt.Errorf("write CSV header: %w", err)
		}
	}

	row := make([]string, len(s.columns))
	for _, rec := range batch {
		for i, c := range s.columns {
			row[i] = c.Value(rec)
		}
		if err := s.writer.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	if s.file != nil {
		if err := s.file.Sync(); err != nil {
			return fmt.Errorf("sync CSV: %w", err)
		}
	}
	return nil
}

// size returns the current end of the table, or -1 when the output is not a file.
func (s *CSVStorage) size() (int64, error) {
	if s.file == nil {
		return -1, nil
	}
	info, err := s.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat CSV: %w", err)
	}
	return info.Size(), nil
}

// rollback drops any partial rows written after mark and replaces the
// writer, whose buffered error would otherwise persist.
func (s *CSVStorage) rollback(mark int64) {
	if s.file != nil && mark >= 0 {
		if err := s.file.Truncate(mark); err != nil {
			s.logger.Warn("torn CSV rows left in table", "path", s.path, "offset", mark, "error", err)
		}
	}
	s.writer = csv.NewWriter(s.out)
}

func (s *CSVStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("CSV written", "path", s.path, "rows", s.count)
	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	err := s.file.Close()
	s.file = nil
	return err
}
