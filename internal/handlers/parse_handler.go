package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/parser"
	"github.com/ternarybob/colligo/internal/state"
)

// ParseHandler serves the parse job API. The job itself runs on a background
// goroutine; progress is observed through the job state store.
type ParseHandler struct {
	parser *parser.Service
	store  *state.Store
	logger arbor.ILogger
}

// NewParseHandler creates a parse handler.
func NewParseHandler(parserService *parser.Service, store *state.Store, logger arbor.ILogger) *ParseHandler {
	return &ParseHandler{parser: parserService, store: store, logger: logger}
}

type parseStartRequest struct {
	Results []models.DownloadOutcome `json:"results"`
}

// StartHandler handles POST /api/parse/start. The request body may carry the
// outcomes of a prior crawl; with an empty body every PDF in the library is
// parsed.
func (h *ParseHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if h.store.ParseSnapshot().Status == models.JobRunning {
		WriteError(w, http.StatusConflict, "a parse job is already running")
		return
	}

	var req parseStartRequest
	if r.Body != nil {
		// body is optional; decode errors on an empty body are fine
		json.NewDecoder(r.Body).Decode(&req)
	}

	go func() {
		result := h.parser.Run(context.Background(), req.Results)
		if !result.Success {
			h.logger.Warn().Str("message", result.Message).Msg("Parse job failed")
		}
	}()

	WriteStarted(w, "parse job started")
}

// StatusHandler handles GET /api/parse/status.
func (h *ParseHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.store.ParseSnapshot())
}

// ResultsHandler handles GET /api/parse/results.
func (h *ParseHandler) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	results := h.store.ParseResults()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total":   len(results),
		"results": results,
	})
}
