package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Entry is one candidate paper returned by the arXiv search API, before any
// download attempt. BaseID never carries a version suffix; IDWithVersion is
// always BaseID plus a "vN" tag (v1 when the feed omits it).
type Entry struct {
	BaseID        string    `json:"arxiv_id"`
	IDWithVersion string    `json:"id_with_version"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors"`
	Published     time.Time `json:"published"`
	Updated       time.Time `json:"updated"`
	PDFURL        string    `json:"pdf_url"`
}

// FirstAuthor returns the primary author, or "unknown" when the feed listed
// none.
func (e *Entry) FirstAuthor() string {
	if len(e.Authors) == 0 {
		return "unknown"
	}
	return e.Authors[0]
}

// DownloadStatus classifies the outcome of one entry's download pipeline.
type DownloadStatus string

const (
	StatusDownloaded    DownloadStatus = "downloaded"
	StatusReplacedOld   DownloadStatus = "replaced_old_version"
	StatusAlreadyExists DownloadStatus = "already_exists"
	StatusFailed        DownloadStatus = "failed"
)

// Succeeded reports whether the payload is present on disk after this
// outcome, which is what the parse stage filters on.
func (s DownloadStatus) Succeeded() bool {
	switch s {
	case StatusDownloaded, StatusReplacedOld, StatusAlreadyExists:
		return true
	}
	return false
}

// DownloadOutcome records the result of one entry in one crawl run. It is
// created once per entry and never mutated afterwards.
type DownloadOutcome struct {
	Title         string         `json:"title"`
	BaseID        string         `json:"arxiv_id"`
	IDWithVersion string         `json:"id_with_version"`
	Status        DownloadStatus `json:"status"`
	FileName      string         `json:"file_name,omitempty"`
	Reason        string         `json:"reason,omitempty"`
}

// RunSummary counts outcomes by status. It is always recomputed from a
// result list, never stored independently.
type RunSummary struct {
	Total       int `json:"total"`
	Downloaded  int `json:"downloaded"`
	AlreadyHere int `json:"already_exists"`
	Replaced    int `json:"replaced_old_version"`
	Failed      int `json:"failed"`
}

// Summarize tallies a result list into a RunSummary.
func Summarize(results []DownloadOutcome) RunSummary {
	summary := RunSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusDownloaded:
			summary.Downloaded++
		case StatusAlreadyExists:
			summary.AlreadyHere++
		case StatusReplacedOld:
			summary.Replaced++
		case StatusFailed:
			summary.Failed++
		}
	}
	return summary
}

// YearRange is an inclusive publication-year window.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

var yearRangePattern = regexp.MustCompile(`^\s*(\d{4})\s*-\s*(\d{4})\s*$`)

// ParseYearRange parses "YYYY-YYYY" into an inclusive range.
func ParseYearRange(s string) (YearRange, error) {
	m := yearRangePattern.FindStringSubmatch(s)
	if m == nil {
		return YearRange{}, fmt.Errorf("invalid year range %q: expected YYYY-YYYY", s)
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if start > end {
		return YearRange{}, fmt.Errorf("invalid year range %q: start year after end year", s)
	}
	return YearRange{Start: start, End: end}, nil
}

// Contains reports whether year falls inside the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year <= r.End
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// CrawlRequested echoes back the effective parameters of a crawl run.
type CrawlRequested struct {
	Keywords      string `json:"keywords"`
	YearRange     string `json:"year_range"`
	MaxResults    int    `json:"max_results"`
	PrefetchCount int    `json:"prefetch_count"`
	TotalFound    int    `json:"total_found"`
}

// CrawlResult is the structured result of a crawl run. Error is set on
// run-level failure, and alongside partial success for multi-keyword runs.
type CrawlResult struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Results   []DownloadOutcome `json:"results"`
	Summary   RunSummary        `json:"summary"`
	Requested *CrawlRequested   `json:"requested,omitempty"`
	Keywords  []string          `json:"keywords,omitempty"` // multi-keyword runs only
}

// DedupKey returns the stable identity used for cross-keyword deduplication.
func (o *DownloadOutcome) DedupKey() string {
	if o.IDWithVersion != "" {
		return o.IDWithVersion
	}
	if o.FileName != "" {
		return o.FileName
	}
	return strings.TrimSpace(o.Title)
}
