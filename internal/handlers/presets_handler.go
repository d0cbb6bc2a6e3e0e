package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/services/llm"
	"github.com/ternarybob/colligo/internal/services/presets"
)

// PresetsHandler serves keyword presets and keyword suggestions.
type PresetsHandler struct {
	presets  *presets.Service
	analyzer *llm.Analyzer
	logger   arbor.ILogger
}

// NewPresetsHandler creates a presets handler.
func NewPresetsHandler(presetService *presets.Service, analyzer *llm.Analyzer, logger arbor.ILogger) *PresetsHandler {
	return &PresetsHandler{presets: presetService, analyzer: analyzer, logger: logger}
}

// ListHandler handles GET /api/presets.
func (h *PresetsHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	list := h.presets.List()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total":   len(list),
		"presets": list,
	})
}

type suggestRequest struct {
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// SuggestHandler handles POST /api/keywords/suggest, deriving search keywords
// from a free-text research description.
func (h *PresetsHandler) SuggestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Description == "" {
		WriteError(w, http.StatusBadRequest, "description is required")
		return
	}

	keywords := h.analyzer.SuggestKeywords(r.Context(), req.Description, req.Count)
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"keywords": keywords,
	})
}
