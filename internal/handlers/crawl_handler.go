package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/arxiv"
	"github.com/ternarybob/colligo/internal/services/presets"
	"github.com/ternarybob/colligo/internal/storage/history"
)

// CrawlHandler serves the search-and-download API.
type CrawlHandler struct {
	config  *common.ArxivConfig
	service *arxiv.Service
	presets *presets.Service
	history *history.Store
	logger  arbor.ILogger
}

// NewCrawlHandler creates a crawl handler. The history store may be nil, in
// which case runs are not persisted.
func NewCrawlHandler(config *common.ArxivConfig, service *arxiv.Service, presetService *presets.Service, historyStore *history.Store, logger arbor.ILogger) *CrawlHandler {
	return &CrawlHandler{
		config:  config,
		service: service,
		presets: presetService,
		history: historyStore,
		logger:  logger,
	}
}

type crawlRequest struct {
	Keywords   string   `json:"keywords"`
	Keyword    []string `json:"keyword_list"`
	YearRange  string   `json:"year_range"`
	MaxResults int      `json:"max_results"`
}

// validate parses the year range and normalizes max_results against the
// configured cap.
func (h *CrawlHandler) validate(req *crawlRequest) (models.YearRange, int, error) {
	years, err := models.ParseYearRange(req.YearRange)
	if err != nil {
		return models.YearRange{}, 0, err
	}

	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = h.config.DefaultResults
	}
	if maxResults < 1 || maxResults > h.config.MaxResults {
		return models.YearRange{}, 0, fmt.Errorf("max_results must be between 1 and %d", h.config.MaxResults)
	}
	return years, maxResults, nil
}

// CrawlHandler handles POST /api/crawl with a single keyword string.
func (h *CrawlHandler) CrawlHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Keywords == "" {
		WriteError(w, http.StatusBadRequest, "keywords is required")
		return
	}
	years, maxResults, err := h.validate(&req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	started := time.Now().UTC()
	result := h.service.Crawl(r.Context(), req.Keywords, years, maxResults)
	h.saveRun([]string{req.Keywords}, years, maxResults, started, result)

	if !result.Success {
		WriteJSON(w, http.StatusBadGateway, result)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// CrawlKeywordsHandler handles POST /api/crawl/keywords with a keyword list,
// deduplicating results across keywords.
func (h *CrawlHandler) CrawlKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Keyword) == 0 {
		WriteError(w, http.StatusBadRequest, "keyword_list is required")
		return
	}
	years, maxResults, err := h.validate(&req)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	started := time.Now().UTC()
	result := h.service.CrawlKeywords(r.Context(), req.Keyword, years, maxResults)
	h.saveRun(req.Keyword, years, maxResults, started, result)

	if !result.Success {
		WriteJSON(w, http.StatusBadGateway, result)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

type presetCrawlRequest struct {
	Preset     string `json:"preset"`
	YearRange  string `json:"year_range"`
	MaxResults int    `json:"max_results"`
}

// CrawlPresetHandler handles POST /api/crawl/preset, running a multi-keyword
// crawl over a named preset. Request values override the preset's own.
func (h *CrawlHandler) CrawlPresetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req presetCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Preset == "" {
		WriteError(w, http.StatusBadRequest, "preset is required")
		return
	}

	preset, err := h.presets.Get(req.Preset)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	crawlReq := crawlRequest{YearRange: req.YearRange, MaxResults: req.MaxResults}
	if crawlReq.YearRange == "" {
		crawlReq.YearRange = preset.YearRange
	}
	if crawlReq.MaxResults == 0 {
		crawlReq.MaxResults = preset.MaxResults
	}
	years, maxResults, err := h.validate(&crawlReq)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	started := time.Now().UTC()
	result := h.service.CrawlKeywords(r.Context(), preset.Keywords, years, maxResults)
	h.saveRun(preset.Keywords, years, maxResults, started, result)

	if !result.Success {
		WriteJSON(w, http.StatusBadGateway, result)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (h *CrawlHandler) saveRun(keywords []string, years models.YearRange, maxResults int, started time.Time, result *models.CrawlResult) {
	if h.history == nil {
		return
	}
	record := models.RunRecord{
		Keywords:   keywords,
		YearRange:  years.String(),
		MaxResults: maxResults,
		Success:    result.Success,
		Error:      result.Error,
		Summary:    result.Summary,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if _, err := h.history.SaveRun(record); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to persist run record")
	}
}
