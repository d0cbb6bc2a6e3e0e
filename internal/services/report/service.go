// Package report generates the spreadsheet summary of parsed papers.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/state"
)

const sheetName = "Papers"

// columns defines the spreadsheet layout, in order.
var columns = []struct {
	header string
	value  func(models.ParseRecord) string
}{
	{"Title", func(r models.ParseRecord) string { return r.Title }},
	{"ArXiv ID", func(r models.ParseRecord) string { return r.BaseID }},
	{"ID With Version", func(r models.ParseRecord) string { return r.IDWithVersion }},
	{"File Name", func(r models.ParseRecord) string { return r.FileName }},
	{"Download Status", func(r models.ParseRecord) string { return string(r.Status) }},
	{"Innovation", func(r models.ParseRecord) string { return r.Innovation }},
	{"Method", func(r models.ParseRecord) string { return r.Method }},
	{"Conclusion", func(r models.ParseRecord) string { return r.Conclusion }},
	{"Summary", func(r models.ParseRecord) string { return r.Summary }},
	{"Parse Status", func(r models.ParseRecord) string { return r.ParseStatus }},
	{"Parse Error", func(r models.ParseRecord) string { return r.ParseError }},
	{"Parsed At", func(r models.ParseRecord) string { return r.ParsedAt }},
}

// Service writes parse results to an xlsx workbook and drives the export
// job state.
type Service struct {
	exportDir string
	store     *state.Store
	logger    arbor.ILogger
	now       func() time.Time
}

// NewService creates a report generator writing into exportDir.
func NewService(exportDir string, store *state.Store, logger arbor.ILogger) *Service {
	return &Service{
		exportDir: exportDir,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate writes the records to a timestamped workbook and returns its path.
// The export job state follows the run: running while writing, then completed
// with the file path or failed with the error message.
func (s *Service) Generate(records []models.ParseRecord) (string, error) {
	s.store.ResetExport(s.exportDir)

	if len(records) == 0 {
		err := fmt.Errorf("no parse results to export; run a parse job first")
		s.store.FailExport(err.Error())
		return "", err
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		wrapped := fmt.Errorf("failed to create export directory %s: %w", s.exportDir, err)
		s.store.FailExport(wrapped.Error())
		return "", wrapped
	}

	fileName := fmt.Sprintf("arxiv_summary_%s.xlsx", s.now().Format("20060102_150405"))
	filePath := filepath.Join(s.exportDir, fileName)

	if err := s.writeWorkbook(filePath, records); err != nil {
		s.store.FailExport(err.Error())
		return "", err
	}

	s.store.SucceedExport(filePath)
	s.logger.Info().
		Str("file", filePath).
		Int("records", len(records)).
		Msg("Report generated")
	return filePath, nil
}

func (s *Service) writeWorkbook(filePath string, records []models.ParseRecord) error {
	workbook := excelize.NewFile()
	defer func() {
		if err := workbook.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close workbook")
		}
	}()

	index, err := workbook.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create worksheet: %w", err)
	}
	workbook.SetActiveSheet(index)
	if err := workbook.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default worksheet: %w", err)
	}

	for col, column := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := workbook.SetCellValue(sheetName, cell, column.header); err != nil {
			return fmt.Errorf("failed to write header %q: %w", column.header, err)
		}
	}

	for row, record := range records {
		for col, column := range columns {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("failed to compute cell for row %d: %w", row+2, err)
			}
			if err := workbook.SetCellValue(sheetName, cell, column.value(record)); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}

	if err := workbook.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", filePath, err)
	}
	return nil
}
