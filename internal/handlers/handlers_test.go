package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/llm"
	"github.com/ternarybob/colligo/internal/services/parser"
	"github.com/ternarybob/colligo/internal/services/presets"
	"github.com/ternarybob/colligo/internal/state"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCrawlHandler_RejectsWrongMethod(t *testing.T) {
	handler := NewCrawlHandler(&common.DefaultConfig().Arxiv, nil, nil, nil, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.CrawlHandler(rec, httptest.NewRequest(http.MethodGet, "/api/crawl", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCrawlHandler_ValidatesInput(t *testing.T) {
	handler := NewCrawlHandler(&common.DefaultConfig().Arxiv, nil, nil, nil, arbor.NewLogger())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing keywords", `{"year_range":"2020-2024"}`},
		{"bad year range", `{"keywords":"quantum","year_range":"2020"}`},
		{"inverted year range", `{"keywords":"quantum","year_range":"2024-2020"}`},
		{"max results above cap", `{"keywords":"quantum","year_range":"2020-2024","max_results":99}`},
		{"negative max results", `{"keywords":"quantum","year_range":"2020-2024","max_results":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/crawl", strings.NewReader(tt.body))
			handler.CrawlHandler(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCrawlPresetHandler_UnknownPreset(t *testing.T) {
	presetService := presets.NewService(t.TempDir(), arbor.NewLogger())
	handler := NewCrawlHandler(&common.DefaultConfig().Arxiv, nil, presetService, nil, arbor.NewLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/crawl/preset", strings.NewReader(`{"preset":"missing"}`))
	handler.CrawlPresetHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCrawlKeywordsHandler_RequiresKeywordList(t *testing.T) {
	handler := NewCrawlHandler(&common.DefaultConfig().Arxiv, nil, nil, nil, arbor.NewLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/crawl/keywords", strings.NewReader(`{"year_range":"2020-2024"}`))
	handler.CrawlKeywordsHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fixedExtractor struct{}

func (fixedExtractor) ExtractText(context.Context, string) (string, error) {
	return "paper text", nil
}

type fixedAnalyzer struct{}

func (fixedAnalyzer) Analyze(context.Context, string) llm.PaperAnalysis {
	return llm.PaperAnalysis{Summary: "ok"}
}

func TestParseHandler_StartWithEmptyLibraryFails(t *testing.T) {
	store := state.NewStore()
	parserService := parser.NewService(t.TempDir(), fixedExtractor{}, fixedAnalyzer{}, store, arbor.NewLogger())
	handler := NewParseHandler(parserService, store, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.StartHandler(rec, httptest.NewRequest(http.MethodPost, "/api/parse/start", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "started", decodeBody(t, rec)["status"])

	// the job runs asynchronously; with an empty library it must fail
	require.Eventually(t, func() bool {
		return store.ParseSnapshot().Status == models.JobFailed
	}, time.Second, 10*time.Millisecond)
}

func TestParseHandler_RejectsConcurrentRuns(t *testing.T) {
	store := state.NewStore()
	store.BeginParse(10, "")

	handler := NewParseHandler(nil, store, arbor.NewLogger())
	rec := httptest.NewRecorder()
	handler.StartHandler(rec, httptest.NewRequest(http.MethodPost, "/api/parse/start", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestParseHandler_StatusAndResults(t *testing.T) {
	store := state.NewStore()
	store.BeginParse(1, "/tmp/pdfs")
	store.AppendParseResult(models.ParseRecord{FileName: "a.pdf", ParseStatus: "succeeded"})
	store.CompleteParse("")

	handler := NewParseHandler(nil, store, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.StatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/parse/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decodeBody(t, rec)["status"])

	rec = httptest.NewRecorder()
	handler.ResultsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/parse/results", nil))
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
}

func TestExportHandler_StartWithoutResults(t *testing.T) {
	store := state.NewStore()
	handler := NewExportHandler(nil, store, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.StartHandler(rec, httptest.NewRequest(http.MethodPost, "/api/export/start", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportHandler_DownloadWithoutReport(t *testing.T) {
	store := state.NewStore()
	handler := NewExportHandler(nil, store, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.DownloadHandler(rec, httptest.NewRequest(http.MethodGet, "/api/export/download", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusHandler_ReportsJobStates(t *testing.T) {
	config := common.DefaultConfig()
	store := state.NewStore()
	handler := NewStatusHandler(config, store, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.GetStatusHandler(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, config.Environment, body["environment"])
	parse, ok := body["parse"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "idle", parse["status"])
}

func TestHistoryHandler_WithoutStore(t *testing.T) {
	handler := NewHistoryHandler(nil, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.ListHandler(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
