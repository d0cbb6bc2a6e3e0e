package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/models"
)

// testBackend serves a canned Atom feed per keyword and PDF payloads per
// versioned identifier.
type testBackend struct {
	server *httptest.Server
	feeds  map[string]string // keyword -> entry XML
	broken map[string]bool   // idWithVersion -> serve 404 for the PDF
	calls  int
}

func newTestBackend() *testBackend {
	b := &testBackend{
		feeds:  make(map[string]string),
		broken: make(map[string]bool),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	return b
}

func (b *testBackend) handle(w http.ResponseWriter, r *http.Request) {
	b.calls++
	if strings.HasPrefix(r.URL.Path, "/pdf/") {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pdf/"), ".pdf")
		if b.broken[id] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 " + strings.Repeat("x", 256)))
		return
	}

	query := r.URL.Query().Get("search_query")
	keyword := strings.TrimPrefix(query, "all:")
	entries, ok := b.feeds[keyword]
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">%s</feed>`, entries)
}

func (b *testBackend) entry(idWithVersion, title string, year int) string {
	return fmt.Sprintf(`
<entry>
  <id>http://arxiv.org/abs/%s</id>
  <title>%s</title>
  <published>%d-06-01T00:00:00Z</published>
  <author><name>Alice Smith</name></author>
  <link href="%s/pdf/%s.pdf" type="application/pdf"/>
</entry>`, idWithVersion, title, year, b.server.URL, idWithVersion)
}

func newTestService(t *testing.T, backend *testBackend) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	config := &common.ArxivConfig{
		APIURL:            backend.server.URL + "/query",
		UserAgent:         "colligo-test",
		PDFDir:            dir,
		PrefetchCap:       100,
		MinInterval:       0,
		JitterLow:         0,
		JitterHigh:        0,
		MaxRetries:        2,
		RetryBackoff:      []time.Duration{time.Millisecond},
		ConnectTimeout:    5 * time.Second,
		ReadTimeout:       5 * time.Second,
		MinPDFSize:        16,
		MaxFilenameLength: 120,
		MaxResults:        10,
		DefaultResults:    5,
	}
	return NewService(config, arbor.NewLogger()), dir
}

func TestCrawl_DownloadsAndPublishes(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()
	backend.feeds["quantum"] = backend.entry("2101.00001v1", "A Study of Things", 2023)

	service, dir := newTestService(t, backend)
	result := service.Crawl(context.Background(), "quantum", models.YearRange{Start: 2020, End: 2024}, 5)

	require.True(t, result.Success, result.Error)
	require.Len(t, result.Results, 1)
	outcome := result.Results[0]
	assert.Equal(t, models.StatusDownloaded, outcome.Status)
	assert.Equal(t, "2101.00001", outcome.BaseID)

	info, err := os.Stat(filepath.Join(dir, outcome.FileName))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(16))

	// no temp file left behind
	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.part"))
	assert.Empty(t, leftovers)
}

func TestCrawl_SecondRunReportsAlreadyExists(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()
	backend.feeds["quantum"] = backend.entry("2101.00001v1", "A Study of Things", 2023)

	service, _ := newTestService(t, backend)
	years := models.YearRange{Start: 2020, End: 2024}

	first := service.Crawl(context.Background(), "quantum", years, 5)
	require.True(t, first.Success)

	second := service.Crawl(context.Background(), "quantum", years, 5)
	require.True(t, second.Success)
	require.Len(t, second.Results, 1)
	assert.Equal(t, models.StatusAlreadyExists, second.Results[0].Status)
	assert.Equal(t, first.Results[0].FileName, second.Results[0].FileName)
}

func TestCrawl_NewVersionSupersedesOld(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()
	backend.feeds["quantum"] = backend.entry("2101.00001v2", "A Study of Things", 2023)

	service, dir := newTestService(t, backend)

	oldFile := filepath.Join(dir, "2023-2101.00001v1-Alice-Smith-a-study-of-things.pdf")
	require.NoError(t, os.WriteFile(oldFile, []byte(strings.Repeat("x", 64)), 0o644))

	result := service.Crawl(context.Background(), "quantum", models.YearRange{Start: 2020, End: 2024}, 5)
	require.True(t, result.Success)
	require.Len(t, result.Results, 1)
	assert.Equal(t, models.StatusReplacedOld, result.Results[0].Status)

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err), "superseded version should be deleted")
	_, err = os.Stat(filepath.Join(dir, result.Results[0].FileName))
	assert.NoError(t, err)
}

func TestCrawl_FiltersByPublicationYear(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()
	backend.feeds["quantum"] = backend.entry("2101.00001v1", "In Range", 2023) +
		backend.entry("1901.00002v1", "Too Old", 2019)

	service, _ := newTestService(t, backend)
	result := service.Crawl(context.Background(), "quantum", models.YearRange{Start: 2022, End: 2024}, 5)

	require.True(t, result.Success)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "2101.00001", result.Results[0].BaseID)
	assert.Equal(t, 1, result.Requested.TotalFound)
}

func TestCrawl_EntryFailureDoesNotAbortBatch(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()
	backend.feeds["quantum"] = backend.entry("2101.00001v1", "Broken Paper", 2023) +
		backend.entry("2102.00002v1", "Good Paper", 2023)
	backend.broken["2101.00001v1"] = true

	service, _ := newTestService(t, backend)
	result := service.Crawl(context.Background(), "quantum", models.YearRange{Start: 2020, End: 2024}, 5)

	require.True(t, result.Success)
	require.Len(t, result.Results, 2)
	assert.Equal(t, models.StatusFailed, result.Results[0].Status)
	assert.NotEmpty(t, result.Results[0].Reason)
	assert.Equal(t, models.StatusDownloaded, result.Results[1].Status)
	assert.Equal(t, 1, result.Summary.Failed)
	assert.Equal(t, 1, result.Summary.Downloaded)
}

func TestCrawl_SearchFailureReturnsStructuredError(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()
	// no feed registered: backend answers 500 for every search

	service, _ := newTestService(t, backend)
	result := service.Crawl(context.Background(), "missing", models.YearRange{Start: 2020, End: 2024}, 5)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "arXiv API request failed")
}

func TestCrawlKeywords_DeduplicatesAcrossKeywords(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()
	shared := backend.entry("2101.00001v1", "Shared Paper", 2023)
	backend.feeds["alpha"] = shared + backend.entry("2102.00002v1", "Alpha Only", 2023)
	backend.feeds["beta"] = shared + backend.entry("2103.00003v1", "Beta Only", 2023)

	service, _ := newTestService(t, backend)
	result := service.CrawlKeywords(context.Background(), []string{"alpha", "beta"}, models.YearRange{Start: 2020, End: 2024}, 10)

	require.True(t, result.Success)
	ids := make(map[string]int)
	for _, outcome := range result.Results {
		ids[outcome.IDWithVersion]++
	}
	assert.Equal(t, 1, ids["2101.00001v1"], "shared paper must appear once")
	assert.Len(t, result.Results, 3)
}

func TestCrawlKeywords_PartialFailureStillSucceeds(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()
	backend.feeds["alpha"] = backend.entry("2101.00001v1", "Alpha Paper", 2023)
	// "beta" unregistered: its search fails

	service, _ := newTestService(t, backend)
	result := service.CrawlKeywords(context.Background(), []string{"beta", "alpha"}, models.YearRange{Start: 2020, End: 2024}, 10)

	assert.True(t, result.Success)
	assert.Len(t, result.Results, 1)
	assert.Contains(t, result.Error, "beta:")
}

func TestCrawlKeywords_NoValidKeywords(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()

	service, _ := newTestService(t, backend)
	result := service.CrawlKeywords(context.Background(), []string{"  ", ""}, models.YearRange{Start: 2020, End: 2024}, 5)

	assert.False(t, result.Success)
	assert.Equal(t, "no valid keywords provided", result.Error)
}

func TestCrawlKeywords_CapsAggregateResults(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()
	backend.feeds["alpha"] = backend.entry("2101.00001v1", "One", 2023) +
		backend.entry("2102.00002v1", "Two", 2023)
	backend.feeds["beta"] = backend.entry("2103.00003v1", "Three", 2023)

	service, _ := newTestService(t, backend)
	result := service.CrawlKeywords(context.Background(), []string{"alpha", "beta"}, models.YearRange{Start: 2020, End: 2024}, 2)

	require.True(t, result.Success)
	assert.Len(t, result.Results, 2)
}

func TestCrawl_RejectsUndersizedPayload(t *testing.T) {
	backend := newTestBackend()
	defer backend.server.Close()
	backend.feeds["quantum"] = backend.entry("2101.00001v1", "Tiny Paper", 2023)

	service, dir := newTestService(t, backend)
	service.config.MinPDFSize = 100000

	result := service.Crawl(context.Background(), "quantum", models.YearRange{Start: 2020, End: 2024}, 5)
	require.True(t, result.Success)
	require.Len(t, result.Results, 1)
	assert.Equal(t, models.StatusFailed, result.Results[0].Status)
	assert.Contains(t, result.Results[0].Reason, "too small")

	files, _ := filepath.Glob(filepath.Join(dir, "*"))
	assert.Empty(t, files, "neither final nor temp file should remain")
}
