package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/state"
)

func testRecords() []models.ParseRecord {
	return []models.ParseRecord{
		{
			Title:         "A Study of Things",
			BaseID:        "2101.00001",
			IDWithVersion: "2101.00001v1",
			FileName:      "2023-2101.00001v1-Alice.pdf",
			Status:        models.StatusDownloaded,
			Innovation:    "a new idea",
			Method:        "an experiment",
			Conclusion:    "it works",
			Summary:       "it works",
			ParseStatus:   "succeeded",
			ParsedAt:      "2024-01-01T00:00:00",
		},
		{
			Title:       "Broken Paper",
			FileName:    "broken.pdf",
			Status:      models.StatusAlreadyExists,
			ParseStatus: "failed",
			ParseError:  "text extraction failed",
		},
	}
}

func TestGenerate_WritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	store := state.NewStore()
	service := NewService(dir, store, arbor.NewLogger())

	filePath, err := service.Generate(testRecords())
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(filePath))
	assert.True(t, strings.HasPrefix(filepath.Base(filePath), "arxiv_summary_"))
	assert.True(t, strings.HasSuffix(filePath, ".xlsx"))

	workbook, err := excelize.OpenFile(filePath)
	require.NoError(t, err)
	defer workbook.Close()

	rows, err := workbook.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per record")
	assert.Equal(t, "Title", rows[0][0])
	assert.Equal(t, "A Study of Things", rows[1][0])
	assert.Equal(t, "2101.00001", rows[1][1])
	assert.Equal(t, "failed", rows[2][9])

	snapshot := store.ExportSnapshot()
	assert.Equal(t, models.JobCompleted, snapshot.Status)
	assert.Equal(t, filePath, snapshot.FilePath)
	assert.Equal(t, dir, snapshot.TargetDir)
}

func TestGenerate_NoRecordsFailsJob(t *testing.T) {
	store := state.NewStore()
	service := NewService(t.TempDir(), store, arbor.NewLogger())

	_, err := service.Generate(nil)
	require.Error(t, err)

	snapshot := store.ExportSnapshot()
	assert.Equal(t, models.JobFailed, snapshot.Status)
	assert.Empty(t, snapshot.FilePath)
}

func TestGenerate_CreatesExportDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	store := state.NewStore()
	service := NewService(dir, store, arbor.NewLogger())

	filePath, err := service.Generate(testRecords())
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(filePath))
}
