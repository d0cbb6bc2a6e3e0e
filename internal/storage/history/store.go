// Package history persists crawl run records to an embedded BadgerDB store.
package history

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
)

// Store wraps the badgerhold connection used for run history.
type Store struct {
	db     *badgerhold.Store
	logger arbor.ILogger
	now    func() time.Time
}

// Open opens (or creates) the history database at the configured path.
func Open(config *common.BadgerConfig, logger arbor.ILogger) (*Store, error) {
	if config.ResetOnStartup {
		if err := os.RemoveAll(config.Path); err != nil {
			return nil, fmt.Errorf("failed to reset history database at %s: %w", config.Path, err)
		}
	}

	options := badgerhold.DefaultOptions
	options.Options = badger.DefaultOptions(config.Path).WithLogger(nil)

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database at %s: %w", config.Path, err)
	}

	logger.Info().Str("path", config.Path).Msg("History database opened")
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun records one finished crawl run and returns its generated ID.
func (s *Store) SaveRun(record models.RunRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.FinishedAt.IsZero() {
		record.FinishedAt = s.now().UTC()
	}

	if err := s.db.Upsert(record.ID, record); err != nil {
		return "", fmt.Errorf("failed to save run record: %w", err)
	}
	return record.ID, nil
}

// ListRecent returns up to limit runs, newest first.
func (s *Store) ListRecent(limit int) ([]models.RunRecord, error) {
	if limit < 1 {
		limit = 20
	}

	var records []models.RunRecord
	if err := s.db.Find(&records, nil); err != nil {
		return nil, fmt.Errorf("failed to list run records: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
