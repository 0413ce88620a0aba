package datasources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"portfolioanalytics/internal/config"
	apperrors "portfolioanalytics/internal/errors"
)

const maxErrorBody = 512

// httpClient performs rate limited JSON GETs against one provider
type httpClient struct {
	provider  string
	client    *http.Client
	limiter   *RateLimiter
	userAgent string
}

func newHTTPClient(provider string, timeout time.Duration, limiter *RateLimiter) *httpClient {
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	return &httpClient{
		provider: provider,
		client:   &http.Client{Timeout: timeout},
		limiter:  limiter,
	}
}

// getJSON decodes the body of a successful response into out. 404 maps to
// data-not-available and 429 to a rate-limit error.
func (c *httpClient) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return apperrors.NewUpstreamError(c.provider, "waiting for rate limiter", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.NewUpstreamError(c.provider, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewUpstreamError(c.provider, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewDataNotAvailableError(fmt.Sprintf("%s returned 404 for %s", c.provider, req.URL.Path), nil).
			WithContext("provider", c.provider)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewRateLimitError(c.provider, "upstream rate limit exceeded")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.NewUpstreamError(c.provider, fmt.Sprintf("status %d: %s", resp.StatusCode, body), nil).
			WithContext("status", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewParsingError(c.provider+" response", err)
	}
	return nil
}

func errUnsupported(provider, operation string) error {
	return apperrors.NewUnsupportedError(provider, operation)
}

func float(v float64) *float64 { return &v }
