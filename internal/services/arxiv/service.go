// Package arxiv implements the download orchestration engine: a rate-limited
// retrying transport, Atom feed parsing, the versioned filename policy, and
// the per-entry download pipeline with supersession of older versions.
package arxiv

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
)

const (
	tempSuffix    = ".part"
	downloadChunk = 8 * 1024
)

// Service orchestrates search and download runs against the arXiv API. A
// run executes synchronously on the calling goroutine; the only blocking
// points are rate-limiter waits and the network calls themselves.
type Service struct {
	config    *common.ArxivConfig
	transport *Transport
	logger    arbor.ILogger
}

// NewService creates an orchestrator. All network traffic of this instance
// flows through one rate limiter so search and download share a single
// pacing budget.
func NewService(config *common.ArxivConfig, logger arbor.ILogger) *Service {
	client := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: config.ConnectTimeout,
			}).DialContext,
			ResponseHeaderTimeout: config.ReadTimeout,
		},
	}
	limiter := NewRateLimiter(config.MinInterval, config.JitterLow, config.JitterHigh)
	return &Service{
		config:    config,
		transport: NewTransport(client, limiter, config.UserAgent, config.MaxRetries, config.RetryBackoff, logger),
		logger:    logger,
	}
}

// Crawl runs a single-keyword search and download pass. A search failure
// aborts the run with a structured error; per-entry failures never do.
func (s *Service) Crawl(ctx context.Context, keywords string, years models.YearRange, maxResults int) *models.CrawlResult {
	if maxResults <= 0 {
		maxResults = s.config.DefaultResults
	}
	if err := os.MkdirAll(s.config.PDFDir, 0755); err != nil {
		return &models.CrawlResult{
			Success: false,
			Error:   fmt.Sprintf("failed to create download directory: %v", err),
		}
	}

	prefetchCount := s.prefetchCount(maxResults)

	entries, err := s.fetchEntries(ctx, keywords, prefetchCount)
	if err != nil {
		s.logger.Error().Err(err).Str("keywords", keywords).Msg("arXiv API request failed")
		return &models.CrawlResult{
			Success: false,
			Error:   fmt.Sprintf("arXiv API request failed: %v", err),
		}
	}

	filtered := make([]models.Entry, 0, len(entries))
	for _, entry := range entries {
		if years.Contains(entry.Published.Year()) {
			filtered = append(filtered, entry)
		}
	}
	selected := filtered
	if len(selected) > maxResults {
		selected = selected[:maxResults]
	}

	results := make([]models.DownloadOutcome, 0, len(selected))
	for _, entry := range selected {
		results = append(results, s.processEntry(ctx, entry))
	}

	return &models.CrawlResult{
		Success: true,
		Results: results,
		Summary: models.Summarize(results),
		Requested: &models.CrawlRequested{
			Keywords:      keywords,
			YearRange:     years.String(),
			MaxResults:    maxResults,
			PrefetchCount: prefetchCount,
			TotalFound:    len(filtered),
		},
	}
}

// CrawlKeywords runs the single-keyword pipeline per keyword, deduplicating
// across keywords and capping the aggregate at maxResults. A keyword whose
// sub-run fails contributes its error without stopping later keywords.
func (s *Service) CrawlKeywords(ctx context.Context, keywordList []string, years models.YearRange, maxResults int) *models.CrawlResult {
	keywords := make([]string, 0, len(keywordList))
	for _, k := range keywordList {
		if trimmed := strings.TrimSpace(k); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	if len(keywords) == 0 {
		return &models.CrawlResult{
			Success: false,
			Error:   "no valid keywords provided",
			Results: []models.DownloadOutcome{},
		}
	}
	// maxResults <= 0 is normalized to the configured default rather than
	// treated as unlimited; the upstream API caps result counts anyway.
	if maxResults <= 0 {
		maxResults = s.config.DefaultResults
	}

	var (
		aggregated []models.DownloadOutcome
		failures   []string
		seen       = make(map[string]bool)
	)

	for _, keyword := range keywords {
		remaining := maxResults - len(aggregated)
		if remaining <= 0 {
			break
		}

		result := s.Crawl(ctx, keyword, years, remaining)
		if !result.Success {
			reason := result.Error
			if reason == "" {
				reason = "keyword search failed"
			}
			failures = append(failures, fmt.Sprintf("%s: %s", keyword, reason))
			continue
		}

		for _, outcome := range result.Results {
			key := outcome.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			aggregated = append(aggregated, outcome)
		}
		if len(aggregated) >= maxResults {
			break
		}
	}

	result := &models.CrawlResult{
		Success:  len(aggregated) > 0,
		Results:  aggregated,
		Summary:  models.Summarize(aggregated),
		Keywords: keywords,
	}
	if len(failures) > 0 {
		result.Error = strings.Join(failures, "; ")
	}
	return result
}

// prefetchCount over-fetches so that date filtering still leaves enough
// candidates, bounded by the configured cap and never below 1.
func (s *Service) prefetchCount(maxResults int) int {
	count := 1
	if maxResults > 0 {
		count = maxResults * 3
	}
	if count > s.config.PrefetchCap {
		count = s.config.PrefetchCap
	}
	return count
}

func (s *Service) fetchEntries(ctx context.Context, keywords string, maxResults int) ([]models.Entry, error) {
	params := url.Values{}
	params.Set("search_query", "all:"+keywords)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	queryURL := s.config.APIURL + "?" + params.Encode()

	s.logger.Info().Str("url", queryURL).Msg("Querying arXiv API")

	resp, err := s.transport.Do(ctx, http.MethodGet, queryURL, RequestOptions{})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	return ParseFeed(body, s.logger)
}

// processEntry runs the download pipeline for one entry. Every failure path
// removes the temp file and records a failed outcome; nothing here aborts
// the surrounding batch.
func (s *Service) processEntry(ctx context.Context, entry models.Entry) models.DownloadOutcome {
	fileName := BuildFileName(
		entry.Published.Year(),
		entry.IDWithVersion,
		entry.FirstAuthor(),
		entry.Title,
		s.config.MaxFilenameLength,
	)
	filePath := filepath.Join(s.config.PDFDir, fileName)

	outcome := models.DownloadOutcome{
		Title:         entry.Title,
		BaseID:        entry.BaseID,
		IDWithVersion: entry.IDWithVersion,
	}

	if info, err := os.Stat(filePath); err == nil {
		if info.Size() > s.config.MinPDFSize {
			s.logger.Info().Str("file", fileName).Msg("Skipping existing file")
			outcome.Status = models.StatusAlreadyExists
			outcome.FileName = fileName
			return outcome
		}
		// corrupt or partial leftover from an earlier run
		s.logger.Warn().Str("file", fileName).Msg("Removing undersized file before re-download")
		os.Remove(filePath)
	}

	// Enumerate siblings before downloading so the pre-download set is
	// known even though the download changes which files exist.
	siblings, _ := FindSiblingVersions(s.config.PDFDir, entry.BaseID)
	olderVersions := siblings[:0:0]
	for _, sibling := range siblings {
		if filepath.Base(sibling) != fileName {
			olderVersions = append(olderVersions, sibling)
		}
	}

	if err := s.downloadPayload(ctx, entry.PDFURL, filePath); err != nil {
		s.logger.Error().Err(err).Str("url", entry.PDFURL).Msg("PDF download failed")
		outcome.Status = models.StatusFailed
		outcome.Reason = err.Error()
		return outcome
	}

	for _, old := range olderVersions {
		if old == filePath {
			continue
		}
		if _, err := os.Stat(old); err == nil {
			s.logger.Info().Str("file", filepath.Base(old)).Msg("Deleting superseded version")
			os.Remove(old)
		}
	}

	if len(olderVersions) > 0 {
		outcome.Status = models.StatusReplacedOld
	} else {
		outcome.Status = models.StatusDownloaded
	}
	outcome.FileName = fileName
	return outcome
}

// downloadPayload streams the PDF to a temp side-path, validates it, and
// atomically publishes it at filePath. The final path never holds a
// partially written payload.
func (s *Service) downloadPayload(ctx context.Context, pdfURL, filePath string) (err error) {
	tempPath := filePath + tempSuffix
	defer func() {
		if err != nil {
			os.Remove(tempPath)
		}
	}()

	s.logger.Info().Str("url", pdfURL).Str("dest", filepath.Base(filePath)).Msg("Downloading PDF")

	resp, err := s.transport.Do(ctx, http.MethodGet, pdfURL, RequestOptions{})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "pdf") {
		return fmt.Errorf("unexpected content type %q", contentType)
	}

	tempFile, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	buf := make([]byte, downloadChunk)
	_, copyErr := io.CopyBuffer(tempFile, resp.Body, buf)
	closeErr := tempFile.Close()
	if copyErr != nil {
		return fmt.Errorf("failed to write payload: %w", copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finalize temp file: %w", closeErr)
	}

	info, err := os.Stat(tempPath)
	if err != nil {
		return fmt.Errorf("downloaded file missing: %w", err)
	}
	if info.Size() <= s.config.MinPDFSize {
		return fmt.Errorf("downloaded file too small (%d bytes)", info.Size())
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		return fmt.Errorf("failed to publish downloaded file: %w", err)
	}
	return nil
}
