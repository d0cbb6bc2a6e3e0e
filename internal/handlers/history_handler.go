package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/storage/history"
)

// HistoryHandler serves persisted crawl run history.
type HistoryHandler struct {
	history *history.Store
	logger  arbor.ILogger
}

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(historyStore *history.Store, logger arbor.ILogger) *HistoryHandler {
	return &HistoryHandler{history: historyStore, logger: logger}
}

// ListHandler handles GET /api/history?limit=N.
func (h *HistoryHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if h.history == nil {
		WriteError(w, http.StatusServiceUnavailable, "run history is not enabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.history.ListRecent(limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list run history")
		WriteError(w, http.StatusInternalServerError, "failed to list run history")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total":   len(records),
		"records": records,
	})
}
