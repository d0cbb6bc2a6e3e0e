// Package parser runs the parse job over published PDFs: extract text,
// analyze it into summary fields, and drive the observable parse job state.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/llm"
	"github.com/ternarybob/colligo/internal/state"
)

// fieldLimit bounds each summary field in a parse record.
const fieldLimit = 50

// TextExtractor turns a PDF file into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
}

// Analyzer produces a structured summary from paper text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) llm.PaperAnalysis
}

// Service executes parse jobs synchronously on the calling goroutine.
type Service struct {
	pdfDir    string
	extractor TextExtractor
	analyzer  Analyzer
	store     *state.Store
	logger    arbor.ILogger
	now       func() time.Time
}

// NewService creates a parse job runner over the given PDF directory.
func NewService(pdfDir string, extractor TextExtractor, analyzer Analyzer, store *state.Store, logger arbor.ILogger) *Service {
	return &Service{
		pdfDir:    pdfDir,
		extractor: extractor,
		analyzer:  analyzer,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// Summary counts parse job outcomes.
type Summary struct {
	Total  int `json:"total"`
	Parsed int `json:"parsed"`
	Failed int `json:"failed"`
}

// Result is the structured result of one parse job run.
type Result struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Status  models.JobStatus     `json:"status"`
	Summary Summary              `json:"summary"`
	Results []models.ParseRecord `json:"results"`
}

// Run parses the given download outcomes, or every PDF in the directory when
// outcomes is empty. Per-file failures are recorded and never abort the job;
// the job fails only when there is nothing to parse or everything failed.
func (s *Service) Run(ctx context.Context, outcomes []models.DownloadOutcome) *Result {
	candidates := s.resolveCandidates(outcomes)
	total := len(candidates)
	if total == 0 {
		s.store.FailParse("no PDFs available to parse; run a crawl first", s.pdfDir)
		return &Result{
			Success: false,
			Message: "no PDF files available to parse",
			Status:  models.JobFailed,
			Results: []models.ParseRecord{},
		}
	}

	s.store.BeginParse(total, s.pdfDir)
	s.logger.Info().Int("total", total).Str("dir", s.pdfDir).Msg("Parse job started")

	results := make([]models.ParseRecord, 0, total)
	failed := 0
	for _, candidate := range candidates {
		record := s.parseOne(ctx, candidate)
		if record.ParseStatus == "failed" {
			failed++
		}
		s.store.AppendParseResult(record)
		results = append(results, record)
	}

	summary := Summary{Total: total, Parsed: total - failed, Failed: failed}

	if failed == total {
		s.store.FailParse("every PDF failed to parse; check the logs", s.pdfDir)
		return &Result{
			Success: false,
			Message: "parsing failed for all files",
			Status:  models.JobFailed,
			Summary: summary,
			Results: results,
		}
	}

	s.store.CompleteParse("")
	return &Result{
		Success: true,
		Message: "parsing completed",
		Status:  models.JobCompleted,
		Summary: summary,
		Results: results,
	}
}

// resolveCandidates keeps outcomes whose payload is present on disk, or
// falls back to every published PDF when no outcomes were supplied.
func (s *Service) resolveCandidates(outcomes []models.DownloadOutcome) []models.ParseRecord {
	if len(outcomes) > 0 {
		candidates := make([]models.ParseRecord, 0, len(outcomes))
		for _, outcome := range outcomes {
			if !outcome.Status.Succeeded() || outcome.FileName == "" {
				continue
			}
			candidates = append(candidates, models.ParseRecord{
				Title:         outcome.Title,
				BaseID:        outcome.BaseID,
				IDWithVersion: outcome.IDWithVersion,
				FileName:      outcome.FileName,
				FilePath:      filepath.Join(s.pdfDir, outcome.FileName),
				Status:        outcome.Status,
			})
		}
		return candidates
	}

	paths, err := filepath.Glob(filepath.Join(s.pdfDir, "*.pdf"))
	if err != nil {
		return nil
	}
	sort.Strings(paths)
	candidates := make([]models.ParseRecord, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		candidates = append(candidates, models.ParseRecord{
			Title:    strings.TrimSuffix(name, filepath.Ext(name)),
			FileName: name,
			FilePath: path,
			Status:   models.StatusAlreadyExists,
		})
	}
	return candidates
}

func (s *Service) parseOne(ctx context.Context, candidate models.ParseRecord) models.ParseRecord {
	record := candidate
	record.ParsedAt = s.now().UTC().Format("2006-01-02T15:04:05")

	if _, err := os.Stat(record.FilePath); err != nil {
		record.ParseStatus = "failed"
		record.ParseError = "file does not exist"
		return record
	}

	text, err := s.extractor.ExtractText(ctx, record.FilePath)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", record.FileName).Msg("PDF text extraction failed")
		record.ParseStatus = "failed"
		record.ParseError = fmt.Sprintf("text extraction failed: %v", err)
		return record
	}

	analysis := s.analyzer.Analyze(ctx, text)
	record.Innovation = llm.Truncate(analysis.Innovation, fieldLimit)
	record.Method = llm.Truncate(analysis.Method, fieldLimit)
	record.Conclusion = llm.Truncate(analysis.Conclusion, fieldLimit)
	record.Summary = llm.Truncate(analysis.Summary, fieldLimit)
	record.ParseStatus = "succeeded"
	return record
}
