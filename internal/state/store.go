// Package state holds the process-wide job state machines for the parse and
// export jobs. All mutation goes through the transition methods; readers get
// deep-copied snapshots and can never observe a state mid-mutation.
package state

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/colligo/internal/models"
)

// Store guards the parse and export job states behind a single mutex. The
// lock is never held across network or file I/O; every operation is a short
// in-memory update.
type Store struct {
	mu     sync.Mutex
	parse  models.ParseJobState
	export models.ExportJobState
	now    func() time.Time
}

// NewStore creates a store with both jobs idle.
func NewStore() *Store {
	return &Store{
		parse: models.ParseJobState{
			Status:  models.JobIdle,
			Message: "waiting for parse job",
			Results: []models.ParseRecord{},
		},
		export: models.ExportJobState{
			Status:  models.JobIdle,
			Message: "report not generated yet",
		},
		now: time.Now,
	}
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format("2006-01-02T15:04:05")
}

// BeginParse moves the parse job to running with a fresh total and empty
// result list. Restarting from a terminal state is allowed.
func (s *Store) BeginParse(total int, sourceDir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	s.parse.Status = models.JobRunning
	s.parse.Total = total
	s.parse.Current = 0
	s.parse.Message = "parse job started"
	s.parse.LastError = ""
	s.parse.Results = []models.ParseRecord{}
	s.parse.StartedAt = now
	s.parse.FinishedAt = ""
	s.parse.UpdatedAt = now
	if sourceDir != "" {
		s.parse.SourceDir = sourceDir
	}
}

// AppendParseResult appends one record and advances progress. Current is
// clamped so it never exceeds Total even if callers over-append.
func (s *Store) AppendParseResult(record models.ParseRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parse.Results = append(s.parse.Results, record)
	if s.parse.Current < s.parse.Total {
		s.parse.Current++
	}
	s.parse.UpdatedAt = s.timestamp()
}

// CompleteParse marks the parse job completed and snaps progress to total.
func (s *Store) CompleteParse(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if message == "" {
		message = "parse job completed"
	}
	now := s.timestamp()
	s.parse.Status = models.JobCompleted
	s.parse.Message = message
	s.parse.Current = s.parse.Total
	s.parse.FinishedAt = now
	s.parse.UpdatedAt = now
}

// FailParse marks the parse job failed and clears accumulated results.
func (s *Store) FailParse(errorMessage, sourceDir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	s.parse.Status = models.JobFailed
	s.parse.Message = "parse job failed"
	s.parse.LastError = errorMessage
	s.parse.Results = []models.ParseRecord{}
	s.parse.FinishedAt = now
	s.parse.UpdatedAt = now
	if sourceDir != "" {
		s.parse.SourceDir = sourceDir
	}
}

// ParseSnapshot returns an independent copy of the parse job state.
func (s *Store) ParseSnapshot() models.ParseJobState {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.parse
	snapshot.Results = make([]models.ParseRecord, len(s.parse.Results))
	copy(snapshot.Results, s.parse.Results)
	return snapshot
}

// ParseResults returns a copy of the accumulated parse records.
func (s *Store) ParseResults() []models.ParseRecord {
	return s.ParseSnapshot().Results
}

// ResetExport re-arms the export job. Legal from any state; clears the prior
// file path so a stale report is never reported as current.
func (s *Store) ResetExport(targetDir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.export.Status = models.JobRunning
	s.export.FilePath = ""
	s.export.Message = "generating report"
	s.export.UpdatedAt = s.timestamp()
	if targetDir != "" {
		s.export.TargetDir = targetDir
	}
}

// SucceedExport records the generated report path.
func (s *Store) SucceedExport(filePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.export.Status = models.JobCompleted
	s.export.FilePath = filePath
	s.export.Message = "report generated"
	s.export.TargetDir = filepath.Dir(filePath)
	s.export.UpdatedAt = s.timestamp()
}

// FailExport records an export failure. The prior file path is untouched.
func (s *Store) FailExport(errorMessage string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.export.Status = models.JobFailed
	s.export.Message = errorMessage
	s.export.UpdatedAt = s.timestamp()
}

// ExportSnapshot returns an independent copy of the export job state.
func (s *Store) ExportSnapshot() models.ExportJobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.export
}
