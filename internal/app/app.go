// Package app wires configuration, services and handlers into one
// application instance.
package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/handlers"
	"github.com/ternarybob/colligo/internal/services/arxiv"
	"github.com/ternarybob/colligo/internal/services/llm"
	"github.com/ternarybob/colligo/internal/services/parser"
	"github.com/ternarybob/colligo/internal/services/pdftext"
	"github.com/ternarybob/colligo/internal/services/presets"
	"github.com/ternarybob/colligo/internal/services/report"
	"github.com/ternarybob/colligo/internal/services/scheduler"
	"github.com/ternarybob/colligo/internal/state"
	"github.com/ternarybob/colligo/internal/storage/history"
)

// App holds the wired application: configuration, services, handlers and the
// shared job state store.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	State     *state.Store
	Arxiv     *arxiv.Service
	Parser    *parser.Service
	Report    *report.Service
	Analyzer  *llm.Analyzer
	Presets   *presets.Service
	Scheduler *scheduler.Scheduler
	History   *history.Store

	CrawlHandler   *handlers.CrawlHandler
	ParseHandler   *handlers.ParseHandler
	ExportHandler  *handlers.ExportHandler
	StatusHandler  *handlers.StatusHandler
	HistoryHandler *handlers.HistoryHandler
	PresetsHandler *handlers.PresetsHandler
}

// New wires the application from configuration. The caller owns shutdown via
// Close.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: config,
		Logger: logger,
		State:  state.NewStore(),
	}

	analyzer, err := llm.NewAnalyzerFromConfig(&config.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM analyzer: %w", err)
	}
	a.Analyzer = analyzer

	a.Arxiv = arxiv.NewService(&config.Arxiv, logger)
	a.Parser = parser.NewService(config.Arxiv.PDFDir, pdftext.NewExtractor(logger), analyzer, a.State, logger)
	a.Report = report.NewService(config.Storage.Export, a.State, logger)
	a.Presets = presets.NewService(config.Presets.Dir, logger)

	historyStore, err := history.Open(&config.Storage.Badger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	a.History = historyStore

	a.Scheduler = scheduler.New(&config.Scheduler, a.Presets, a.Arxiv.CrawlKeywords, logger)

	a.CrawlHandler = handlers.NewCrawlHandler(&config.Arxiv, a.Arxiv, a.Presets, a.History, logger)
	a.ParseHandler = handlers.NewParseHandler(a.Parser, a.State, logger)
	a.ExportHandler = handlers.NewExportHandler(a.Report, a.State, logger)
	a.StatusHandler = handlers.NewStatusHandler(config, a.State, logger)
	a.HistoryHandler = handlers.NewHistoryHandler(a.History, logger)
	a.PresetsHandler = handlers.NewPresetsHandler(a.Presets, analyzer, logger)

	return a, nil
}

// Close releases application resources.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			return fmt.Errorf("failed to close history store: %w", err)
		}
	}
	return nil
}
