// Package coingecko is the REST client for the CoinGecko markets API, the
// upstream market-data source for the index engine.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jpillora/backoff"

	"github.com/sequencetheory/sequence-backend/internal/domain"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// maxAttempts bounds the retry loop; rate limits and transient errors are
// retried with exponential backoff, other HTTP errors are not.
const maxAttempts = 3

// Client fetches market snapshots from CoinGecko.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client. apiKey may be empty; when set it is sent as the
// demo-tier x-cg-demo-api-key header.
func New(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With(slog.String("component", "coingecko")),
	}
}

// TopMarkets returns the top 100 assets by market cap, in USD, with 24h/7d/
// 30d change percentages. Rate-limited and transient failures are retried up
// to three times with jittered exponential backoff; on exhaustion it returns
// domain.ErrUpstreamUnavailable wrapped with the last error.
func (c *Client) TopMarkets(ctx context.Context) ([]domain.MarketSnapshot, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", "market_cap_desc")
	params.Set("per_page", "100")
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h,7d,30d")

	endpoint := c.baseURL + "/coins/markets?" + params.Encode()

	bo := &backoff.Backoff{
		Min:    time.Second,
		Max:    8 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		snapshots, err := c.fetch(ctx, endpoint)
		if err == nil {
			return snapshots, nil
		}
		lastErr = err

		if !retryable(err) {
			break
		}
		c.logger.Warn("market fetch failed, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("coingecko: top markets: %w", ctx.Err())
		case <-time.After(bo.Duration()):
		}
	}

	return nil, fmt.Errorf("coingecko: top markets: %w: %w", domain.ErrUpstreamUnavailable, lastErr)
}

func (c *Client) fetch(ctx context.Context, endpoint string) ([]domain.MarketSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("coingecko: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("coingecko: %w", domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("coingecko: server error: status %d", resp.StatusCode)
	default:
		return nil, permanentError{fmt.Errorf("coingecko: unexpected status %d: %s", resp.StatusCode, truncate(body, 200))}
	}

	var rows []marketRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, permanentError{fmt.Errorf("coingecko: decode markets: %w", err)}
	}

	snapshots := make([]domain.MarketSnapshot, 0, len(rows))
	for i := range rows {
		snapshots = append(snapshots, rows[i].toSnapshot())
	}
	return snapshots, nil
}

// permanentError marks failures that another attempt cannot fix (malformed
// responses, 4xx statuses other than 429).
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// retryable reports whether an error is worth another attempt: rate limits,
// 5xx responses, and transport-level failures.
func retryable(err error) bool {
	var perm permanentError
	return !errors.As(err, &perm)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
