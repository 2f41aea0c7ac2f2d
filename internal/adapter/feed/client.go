// Package feed implements the HTTP client for the hazard warning feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/hazard-proximity-service/internal/domain"
)

const (
	// retryAttempts is the total request budget per operation. Every
	// failure — network error or non-2xx status alike — is retried
	// until the budget runs out, then surfaced.
	retryAttempts = 3

	defaultRetryDelay = 500 * time.Millisecond
)

// Client fetches the version token and the full hazard set from the
// feed. Both operations retry transient failures with linear backoff
// (attempt index × retry delay).
type Client struct {
	httpClient *http.Client
	baseURL    string
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewClient creates a feed client. A non-positive retryDelay falls back
// to the default.
func NewClient(baseURL string, timeout, retryDelay time.Duration, logger *slog.Logger) *Client {
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// delta is the feed's cheap change indicator.
type delta struct {
	LastModified string `json:"lastModified"`
	LastHash     string `json:"lastHash"`
}

// FetchVersionToken returns an opaque token that changes iff the hazard
// set may have changed.
func (c *Client) FetchVersionToken(ctx context.Context) (string, error) {
	var d delta
	if err := c.withRetry(ctx, "delta", &d); err != nil {
		return "", err
	}
	return d.LastModified + "|" + d.LastHash, nil
}

// FetchHazardSet returns the full hazard event snapshot with point and
// polygon geometry already extracted from the feature envelope. An empty
// collection is valid data, not an error.
func (c *Client) FetchHazardSet(ctx context.Context) ([]domain.HazardEvent, error) {
	var fc featureCollection
	if err := c.withRetry(ctx, "events", &fc); err != nil {
		return nil, err
	}

	events := make([]domain.HazardEvent, 0, len(fc.Features))
	for _, f := range fc.Features {
		events = append(events, f.toEvent())
	}
	return events, nil
}

// withRetry performs GET {baseURL}/{path}, decoding the JSON body into
// out, retrying up to the attempt budget with linear backoff.
func (c *Client) withRetry(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		lastErr = c.getJSON(ctx, path, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		c.logger.Warn("feed request failed",
			"path", path,
			"attempt", attempt,
			"error", lastErr,
		)
		if attempt < retryAttempts {
			if !sleepWithContext(ctx, time.Duration(attempt)*c.retryDelay) {
				return lastErr
			}
		}
	}
	return fmt.Errorf("fetch %s: %w", path, lastErr)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// sleepWithContext waits for d or until ctx is cancelled, reporting
// whether the full delay elapsed.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
