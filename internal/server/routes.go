package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Crawl (search and download)
	mux.HandleFunc("/api/crawl", s.app.CrawlHandler.CrawlHandler)                  // POST - single keyword
	mux.HandleFunc("/api/crawl/keywords", s.app.CrawlHandler.CrawlKeywordsHandler) // POST - keyword list
	mux.HandleFunc("/api/crawl/preset", s.app.CrawlHandler.CrawlPresetHandler)     // POST - named preset

	// API routes - Parse job
	mux.HandleFunc("/api/parse/start", s.app.ParseHandler.StartHandler)     // POST
	mux.HandleFunc("/api/parse/status", s.app.ParseHandler.StatusHandler)   // GET
	mux.HandleFunc("/api/parse/results", s.app.ParseHandler.ResultsHandler) // GET

	// API routes - Export
	mux.HandleFunc("/api/export/start", s.app.ExportHandler.StartHandler)       // POST
	mux.HandleFunc("/api/export/status", s.app.ExportHandler.StatusHandler)     // GET
	mux.HandleFunc("/api/export/download", s.app.ExportHandler.DownloadHandler) // GET

	// API routes - Presets and keyword suggestions
	mux.HandleFunc("/api/presets", s.app.PresetsHandler.ListHandler)             // GET
	mux.HandleFunc("/api/keywords/suggest", s.app.PresetsHandler.SuggestHandler) // POST

	// API routes - Run history
	mux.HandleFunc("/api/history", s.app.HistoryHandler.ListHandler) // GET

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)

	return mux
}
