package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerlens/ledgerlens/internal/ledger"
	"github.com/rs/zerolog"
)

const snapshotFilename = "ledger.parquet"

// Snapshot is one fully ingested dataset. Snapshots are immutable; a new
// upload produces a new Snapshot rather than touching the old one.
type Snapshot struct {
	DatasetID  string
	Filename   string
	UploadedAt time.Time
	Table      *ledger.Table
}

// Store keeps the current snapshot behind an atomic pointer and mirrors it
// to a parquet file on disk. Replacement is write-temp-then-rename followed
// by a pointer swap, so a concurrent query sees either the old or the new
// dataset in full, never a half-written one.
type Store struct {
	dir     string
	log     zerolog.Logger
	current atomic.Pointer[Snapshot]
}

// NewStore creates a snapshot store rooted at dir. The directory is created
// if missing.
func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %q: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

// ParquetPath is where the current snapshot lives on disk.
func (s *Store) ParquetPath() string {
	return filepath.Join(s.dir, snapshotFilename)
}

// LoadExisting restores the snapshot written by a previous run, if any.
// A missing file is not an error; the store just starts empty.
func (s *Store) LoadExisting(ctx context.Context) error {
	path := s.ParquetPath()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat snapshot file: %w", err)
	}

	table, err := ReadParquet(ctx, path)
	if err != nil {
		return fmt.Errorf("loading snapshot %q: %w", path, err)
	}

	snap := &Snapshot{
		DatasetID:  uuid.NewString(),
		Filename:   snapshotFilename,
		UploadedAt: info.ModTime(),
		Table:      table,
	}
	s.current.Store(snap)
	s.log.Info().Int("rows", len(table.Rows)).Str("path", path).Msg("Restored snapshot from disk")
	return nil
}

// Replace persists the table and atomically makes it the current snapshot.
func (s *Store) Replace(table *ledger.Table, filename string) (*Snapshot, error) {
	tmp := filepath.Join(s.dir, snapshotFilename+".tmp-"+uuid.NewString())
	if err := WriteParquet(tmp, table); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.ParquetPath()); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("activating snapshot: %w", err)
	}

	snap := &Snapshot{
		DatasetID:  uuid.NewString(),
		Filename:   filename,
		UploadedAt: time.Now(),
		Table:      table,
	}
	s.current.Store(snap)
	s.log.Info().
		Str("dataset_id", snap.DatasetID).
		Str("filename", filename).
		Int("rows", len(table.Rows)).
		Msg("Snapshot replaced")
	return snap, nil
}

// Current implements ledger.SnapshotSource.
func (s *Store) Current() (*ledger.Table, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ledger.ErrNoSnapshot
	}
	return snap.Table, nil
}

// CurrentSnapshot exposes the snapshot metadata alongside the table.
func (s *Store) CurrentSnapshot() (*Snapshot, bool) {
	snap := s.current.Load()
	return snap, snap != nil
}
