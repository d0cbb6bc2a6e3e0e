package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
)

// retryableStatusCodes are transient service conditions worth another
// attempt. Anything else outside the accepted set fails immediately.
var retryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// HTTPStatusError is a terminal non-accepted response status.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// RequestOptions tunes a single Transport.Do call.
type RequestOptions struct {
	// AcceptedStatus lists response codes returned to the caller as-is.
	// Empty means only 200.
	AcceptedStatus []int
}

func (o RequestOptions) accepts(code int) bool {
	if len(o.AcceptedStatus) == 0 {
		return code == http.StatusOK
	}
	for _, accepted := range o.AcceptedStatus {
		if code == accepted {
			return true
		}
	}
	return false
}

// Transport wraps an HTTP client with rate limiting, bounded retries and an
// exponential-ish backoff schedule. The caller owns the response body of a
// successful call.
type Transport struct {
	client     *http.Client
	limiter    *RateLimiter
	userAgent  string
	maxRetries int
	backoff    []time.Duration
	logger     arbor.ILogger

	sleep func(context.Context, time.Duration) error
}

// NewTransport creates a retrying transport. The client carries the fixed
// connect/read timeout pair; limiter paces every attempt including retries.
func NewTransport(client *http.Client, limiter *RateLimiter, userAgent string, maxRetries int, backoff []time.Duration, logger arbor.ILogger) *Transport {
	return &Transport{
		client:     client,
		limiter:    limiter,
		userAgent:  userAgent,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		sleep:      sleepContext,
	}
}

// Do issues the request with up to maxRetries attempts. Transport-level
// errors and retryable status codes back off on the configured schedule
// (last value repeats); any other non-accepted status fails immediately.
func (t *Transport) Do(ctx context.Context, method, url string, opts RequestOptions) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < t.maxRetries; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := t.attempt(ctx, method, url)
		if err != nil {
			lastErr = err
			t.logger.Debug().
				Int("attempt", attempt+1).
				Str("url", url).
				Err(err).
				Msg("Request attempt failed")
		} else if opts.accepts(resp.StatusCode) {
			return resp, nil
		} else if retryableStatusCodes[resp.StatusCode] {
			lastErr = &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
			resp.Body.Close()
			t.logger.Debug().
				Int("attempt", attempt+1).
				Int("status_code", resp.StatusCode).
				Str("url", url).
				Msg("Retryable status, backing off")
		} else {
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
			resp.Body.Close()
			t.logger.Debug().
				Int("status_code", resp.StatusCode).
				Str("url", url).
				Msg("Non-retryable status, failing immediately")
			return nil, statusErr
		}

		if attempt < t.maxRetries-1 {
			if err := t.sleep(ctx, t.backoffFor(attempt)); err != nil {
				return nil, err
			}
		}
	}

	if lastErr != nil {
		t.logger.Warn().
			Int("max_retries", t.maxRetries).
			Str("url", url).
			Err(lastErr).
			Msg("All retry attempts exhausted")
		return nil, lastErr
	}
	return nil, fmt.Errorf("request %s failed", url)
}

func (t *Transport) attempt(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.client.Do(req)
}

// backoffFor indexes the schedule, repeating the last value for all further
// attempts.
func (t *Transport) backoffFor(attempt int) time.Duration {
	if attempt >= len(t.backoff) {
		return t.backoff[len(t.backoff)-1]
	}
	return t.backoff[attempt]
}
