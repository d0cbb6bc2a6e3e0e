package handlers

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/state"
)

// StatusHandler serves application status and version endpoints.
type StatusHandler struct {
	config    *common.Config
	store     *state.Store
	logger    arbor.ILogger
	startedAt time.Time
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(config *common.Config, store *state.Store, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		config:    config,
		store:     store,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// GetStatusHandler handles GET /api/status.
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	pdfCount := 0
	if paths, err := filepath.Glob(filepath.Join(h.config.Arxiv.PDFDir, "*.pdf")); err == nil {
		pdfCount = len(paths)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":     common.GetVersion(),
		"environment": h.config.Environment,
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"pdf_dir":     h.config.Arxiv.PDFDir,
		"pdf_count":   pdfCount,
		"parse":       h.store.ParseSnapshot(),
		"export":      h.store.ExportSnapshot(),
	})
}

// VersionHandler handles GET /api/version.
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetFullVersion(),
	})
}

// HealthHandler handles GET /api/health.
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
