package persistence

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/eternalApril/phonebook/internal/storage"
)

const snapshotVersion = 1

// snapshotFile is the on-disk YAML document
type snapshotFile struct {
	Version int             `yaml:"version"`
	SavedAt time.Time       `yaml:"saved_at"`
	Entries []storage.Entry `yaml:"entries"`
}

// Snapshot dumps the whole phonebook to a YAML file and loads it back
type Snapshot struct {
	filename string
	logger   *zap.Logger
}

func NewSnapshot(filename string, logger *zap.Logger) *Snapshot {
	return &Snapshot{
		filename: filename,
		logger:   logger,
	}
}

// Save performs an atomic save operation: write a temp file, fsync, rename
func (s *Snapshot) Save(ctx context.Context, db storage.Storage) error {
	start := time.Now()

	entries, err := db.List(ctx)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []storage.Entry{}
	}

	tmpFile := s.filename + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	writer := bufio.NewWriter(f)
	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)

	doc := snapshotFile{Version: snapshotVersion, SavedAt: start.UTC(), Entries: entries}
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if err := writer.Flush(); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}
	f.Close() //nolint:errcheck

	if err := os.Rename(tmpFile, s.filename); err != nil {
		return err
	}

	s.logger.Info("snapshot saved",
		zap.String("file", s.filename),
		zap.Int("entries", len(entries)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Load inserts every entry of the snapshot into db. Entries already present are skipped.
// Returns the number of inserted entries; a missing file loads nothing
func (s *Snapshot) Load(ctx context.Context, db storage.Storage) (int, error) {
	f, err := os.Open(s.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close() //nolint:errcheck

	var doc snapshotFile
	if err := yaml.NewDecoder(bufio.NewReader(f)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil // empty file
		}
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != snapshotVersion {
		s.logger.Warn("unsupported snapshot version, ignoring", zap.Int("version", doc.Version))
		return 0, nil
	}

	start := time.Now()
	loaded := 0
	for _, e := range doc.Entries {
		if err := db.Insert(ctx, e); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				continue
			}
			return loaded, err
		}
		loaded++
	}

	s.logger.Info("snapshot loaded",
		zap.String("file", s.filename),
		zap.Int("entries", loaded),
		zap.Duration("duration", time.Since(start)),
	)
	return loaded, nil
}
