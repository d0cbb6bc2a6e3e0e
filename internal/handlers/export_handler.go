package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/report"
	"github.com/ternarybob/colligo/internal/state"
)

// ExportHandler serves the spreadsheet export API.
type ExportHandler struct {
	report *report.Service
	store  *state.Store
	logger arbor.ILogger
}

// NewExportHandler creates an export handler.
func NewExportHandler(reportService *report.Service, store *state.Store, logger arbor.ILogger) *ExportHandler {
	return &ExportHandler{report: reportService, store: store, logger: logger}
}

// StartHandler handles POST /api/export/start. Export runs on a background
// goroutine over the current parse results.
func (h *ExportHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	results := h.store.ParseResults()
	if len(results) == 0 {
		WriteError(w, http.StatusBadRequest, "no parse results to export; run a parse job first")
		return
	}
	if h.store.ExportSnapshot().Status == models.JobRunning {
		WriteError(w, http.StatusConflict, "an export is already running")
		return
	}

	go func() {
		if _, err := h.report.Generate(results); err != nil {
			h.logger.Warn().Err(err).Msg("Report generation failed")
		}
	}()

	WriteStarted(w, "export started")
}

// StatusHandler handles GET /api/export/status.
func (h *ExportHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.store.ExportSnapshot())
}

// DownloadHandler handles GET /api/export/download, streaming the most
// recently generated workbook.
func (h *ExportHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	snapshot := h.store.ExportSnapshot()
	if snapshot.FilePath == "" {
		WriteError(w, http.StatusNotFound, "no report has been generated yet")
		return
	}
	if _, err := os.Stat(snapshot.FilePath); err != nil {
		WriteError(w, http.StatusNotFound, "generated report no longer exists on disk")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(snapshot.FilePath)+"\"")
	http.ServeFile(w, r, snapshot.FilePath)
}
