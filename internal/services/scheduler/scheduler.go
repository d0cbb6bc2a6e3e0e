// Package scheduler runs recurring crawls of a configured keyword preset.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
	"github.com/ternarybob/colligo/internal/services/presets"
)

// CrawlFunc launches one multi-keyword crawl run.
type CrawlFunc func(ctx context.Context, keywords []string, years models.YearRange, maxResults int) *models.CrawlResult

// Scheduler triggers preset crawls on a cron schedule.
type Scheduler struct {
	config  *common.SchedulerConfig
	presets *presets.Service
	crawl   CrawlFunc
	logger  arbor.ILogger
	cron    *cron.Cron
}

// New creates a scheduler. It does nothing until Start is called, and Start
// is a no-op when scheduling is disabled in configuration.
func New(config *common.SchedulerConfig, presetService *presets.Service, crawl CrawlFunc, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		config:  config,
		presets: presetService,
		crawl:   crawl,
		logger:  logger,
	}
}

// Start registers the scheduled crawl and begins ticking.
func (s *Scheduler) Start() error {
	if !s.config.Enabled {
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.config.Schedule, s.runOnce); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}
	s.cron.Start()

	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Str("preset", s.config.Preset).
		Msg("Scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) runOnce() {
	preset, err := s.presets.Get(s.config.Preset)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled crawl skipped")
		return
	}

	yearRange := s.config.YearRange
	if preset.YearRange != "" {
		yearRange = preset.YearRange
	}
	years, err := models.ParseYearRange(yearRange)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled crawl skipped")
		return
	}

	s.logger.Info().Str("preset", preset.Name).Msg("Scheduled crawl starting")
	result := s.crawl(context.Background(), preset.Keywords, years, preset.MaxResults)
	if !result.Success {
		s.logger.Warn().Str("error", result.Error).Msg("Scheduled crawl failed")
		return
	}
	s.logger.Info().
		Int("total", result.Summary.Total).
		Int("downloaded", result.Summary.Downloaded).
		Msg("Scheduled crawl finished")
}
