package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/llm"
	"github.com/ternarybob/colligo/internal/state"
)

type fakeExtractor struct {
	text    string
	failFor map[string]bool
}

func (f *fakeExtractor) ExtractText(_ context.Context, filePath string) (string, error) {
	if f.failFor[filepath.Base(filePath)] {
		return "", errors.New("corrupt pdf")
	}
	return f.text, nil
}

type fakeAnalyzer struct {
	analysis llm.PaperAnalysis
}

func (f *fakeAnalyzer) Analyze(context.Context, string) llm.PaperAnalysis {
	return f.analysis
}

func writePDF(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4 test"), 0o644))
}

func newTestService(dir string, extractor TextExtractor) (*Service, *state.Store) {
	store := state.NewStore()
	analyzer := &fakeAnalyzer{analysis: llm.PaperAnalysis{
		Innovation: "a new idea",
		Method:     "an experiment",
		Conclusion: "it works",
		Summary:    "it works",
	}}
	return NewService(dir, extractor, analyzer, store, arbor.NewLogger()), store
}

func TestRun_ParsesCrawlOutcomes(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "a.pdf")
	writePDF(t, dir, "b.pdf")

	service, store := newTestService(dir, &fakeExtractor{text: "paper text"})
	outcomes := []models.DownloadOutcome{
		{Title: "A", BaseID: "2101.00001", IDWithVersion: "2101.00001v1", Status: models.StatusDownloaded, FileName: "a.pdf"},
		{Title: "B", BaseID: "2102.00002", IDWithVersion: "2102.00002v1", Status: models.StatusAlreadyExists, FileName: "b.pdf"},
		{Title: "C", Status: models.StatusFailed},
	}

	result := service.Run(context.Background(), outcomes)

	assert.True(t, result.Success)
	assert.Equal(t, Summary{Total: 2, Parsed: 2, Failed: 0}, result.Summary)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "succeeded", result.Results[0].ParseStatus)
	assert.Equal(t, "a new idea", result.Results[0].Innovation)

	snapshot := store.ParseSnapshot()
	assert.Equal(t, models.JobCompleted, snapshot.Status)
	assert.Equal(t, 2, snapshot.Total)
	assert.Equal(t, 2, snapshot.Current)
}

func TestRun_FallsBackToDirectoryScan(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "2023-paper-one.pdf")
	writePDF(t, dir, "2024-paper-two.pdf")

	service, _ := newTestService(dir, &fakeExtractor{text: "paper text"})
	result := service.Run(context.Background(), nil)

	assert.True(t, result.Success)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "2023-paper-one", result.Results[0].Title)
	assert.Equal(t, models.StatusAlreadyExists, result.Results[0].Status)
}

func TestRun_NothingToParse(t *testing.T) {
	service, store := newTestService(t.TempDir(), &fakeExtractor{text: "x"})
	result := service.Run(context.Background(), nil)

	assert.False(t, result.Success)
	assert.Equal(t, models.JobFailed, result.Status)
	assert.Equal(t, models.JobFailed, store.ParseSnapshot().Status)
}

func TestRun_PerFileFailureIsRecorded(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "good.pdf")
	writePDF(t, dir, "bad.pdf")

	extractor := &fakeExtractor{text: "paper text", failFor: map[string]bool{"bad.pdf": true}}
	service, store := newTestService(dir, extractor)
	result := service.Run(context.Background(), nil)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Summary.Failed)
	assert.Equal(t, 1, result.Summary.Parsed)

	var failed *models.ParseRecord
	for i := range result.Results {
		if result.Results[i].ParseStatus == "failed" {
			failed = &result.Results[i]
		}
	}
	require.NotNil(t, failed)
	assert.Contains(t, failed.ParseError, "text extraction failed")
	assert.Equal(t, models.JobCompleted, store.ParseSnapshot().Status)
}

func TestRun_AllFailedFailsJob(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "bad.pdf")

	extractor := &fakeExtractor{failFor: map[string]bool{"bad.pdf": true}}
	service, store := newTestService(dir, extractor)
	result := service.Run(context.Background(), nil)

	assert.False(t, result.Success)
	assert.Equal(t, models.JobFailed, result.Status)
	assert.Equal(t, models.JobFailed, store.ParseSnapshot().Status)
}

func TestRun_MissingFileIsFailedRecord(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "present.pdf")

	service, _ := newTestService(dir, &fakeExtractor{text: "x"})
	outcomes := []models.DownloadOutcome{
		{Title: "Present", Status: models.StatusDownloaded, FileName: "present.pdf"},
		{Title: "Gone", Status: models.StatusDownloaded, FileName: "gone.pdf"},
	}
	result := service.Run(context.Background(), outcomes)

	assert.True(t, result.Success)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "failed", result.Results[1].ParseStatus)
	assert.Equal(t, "file does not exist", result.Results[1].ParseError)
}

func TestRun_ClipsSummaryFields(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "a.pdf")

	long := make([]rune, 200)
	for i := range long {
		long[i] = 'x'
	}
	store := state.NewStore()
	analyzer := &fakeAnalyzer{analysis: llm.PaperAnalysis{
		Innovation: string(long),
		Method:     string(long),
		Conclusion: string(long),
		Summary:    string(long),
	}}
	service := NewService(dir, &fakeExtractor{text: "t"}, analyzer, store, arbor.NewLogger())

	result := service.Run(context.Background(), nil)
	require.Len(t, result.Results, 1)
	record := result.Results[0]
	for _, field := range []string{record.Innovation, record.Method, record.Conclusion, record.Summary} {
		assert.LessOrEqual(t, len([]rune(field)), 50)
		assert.Contains(t, field, "…")
	}
}
