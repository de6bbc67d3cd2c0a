package engine

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
)

// Fetcher retrieves raw page content with exponential-backoff retry and a
// circuit breaker. It prefers the browser-fingerprint client when one is
// configured and falls back to the plain HTTP client otherwise. Callers
// are expected to pass every fetch through the analyzer's rate limiter
// first; the fetcher itself does not throttle.
type Fetcher struct {
	browser *BrowserClient
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	maxBody int64
	metrics *Metrics
}

// HTTPStatusError reports a non-success HTTP status from a fetch.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// NewFetcher builds a fetcher from the analyzer configuration.
// The breaker opens after 5 consecutive failures and probes again after
// 60 seconds.
func NewFetcher(cfg Config, m *Metrics) *Fetcher {
	f := &Fetcher{
		browser: cfg.BrowserClient,
		client:  cfg.HTTPClient,
		maxBody: cfg.MaxBodyBytes,
		metrics: m,
	}
	if f.maxBody <= 0 {
		f.maxBody = 4 * 1024 * 1024
	}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fetch",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("fetch breaker state change",
				slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})
	return f
}

// GetPage fetches a page with browser headers.
func (f *Fetcher) GetPage(ctx context.Context, pageURL string) ([]byte, error) {
	body, err := f.withBreaker(func() ([]byte, error) {
		return f.retryDo(ctx, http.MethodGet, pageURL, ChromeHeaders(), nil)
	})
	if err != nil {
		if f.metrics != nil {
			f.metrics.FetchErrors.Add(1)
		}
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return body, nil
}

// PostJSON marshals payload and POSTs it, returning the response body.
func (f *Fetcher) PostJSON(ctx context.Context, endpoint string, headers map[string]string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Content-Type"]; !ok {
		headers["Content-Type"] = "application/json"
	}
	body, err := f.withBreaker(func() ([]byte, error) {
		return f.retryDo(ctx, http.MethodPost, endpoint, headers, data)
	})
	if err != nil {
		if f.metrics != nil {
			f.metrics.FetchErrors.Add(1)
		}
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	return body, nil
}

// withBreaker runs fn through the circuit breaker.
func (f *Fetcher) withBreaker(fn func() ([]byte, error)) ([]byte, error) {
	out, err := f.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			if f.metrics != nil {
				f.metrics.BreakerRejects.Add(1)
			}
			return nil, fmt.Errorf("fetch suspended: %w", err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

// retryDo performs one HTTP operation with exponential backoff.
// Network errors and 429/5xx statuses are retried; other non-200
// statuses fail immediately.
func (f *Fetcher) retryDo(ctx context.Context, method, reqURL string, headers map[string]string, body []byte) ([]byte, error) {
	operation := func() ([]byte, error) {
		data, status, err := f.do(ctx, method, reqURL, headers, body)
		if err != nil {
			return nil, err
		}
		if isRetryableStatus(status) {
			return nil, &HTTPStatusError{StatusCode: status}
		}
		if status != http.StatusOK {
			return nil, backoff.Permanent(&HTTPStatusError{StatusCode: status})
		}
		return data, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3), backoff.WithMaxElapsedTime(30*time.Second))
}

// do executes one request on whichever client is available.
func (f *Fetcher) do(ctx context.Context, method, reqURL string, headers map[string]string, body []byte) ([]byte, int, error) {
	if f.metrics != nil {
		f.metrics.FetchRequests.Add(1)
	}

	if f.browser != nil {
		var r io.Reader
		if body != nil {
			r = bytes.NewReader(body)
		}
		data, status, err := f.browser.Do(ctx, method, reqURL, headers, r)
		if err != nil {
			return nil, status, err
		}
		if int64(len(data)) > f.maxBody {
			data = data[:f.maxBody]
		}
		return data, status, nil
	}

	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, r)
	if err != nil {
		return nil, 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	data, err := readResponseBody(resp, f.maxBody)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// readResponseBody reads up to maxBody bytes, handling gzip decompression.
func readResponseBody(resp *http.Response, maxBody int64) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(io.LimitReader(reader, maxBody))
}

// isRetryableStatus returns true for HTTP status codes worth retrying.
func isRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
