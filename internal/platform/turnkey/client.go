// Package turnkey is the REST client for the Turnkey custody API. It shapes
// activity request bodies, stamps them with the organization's P-256 API
// key, and reads the structured activity results. Turnkey's own protocol
// semantics (activity consensus, polling) stay on their side of the wire.
package turnkey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.turnkey.com"

// Client submits stamped activities to the Turnkey API on behalf of the
// parent organization.
type Client struct {
	baseURL    string
	orgID      string
	stamper    *Stamper
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds the credentials for the parent organization.
type Config struct {
	BaseURL       string
	PublicKeyHex  string
	PrivateKeyHex string
	OrgID         string
}

// New creates a Client. It fails when the key pair is malformed or
// inconsistent so credential problems surface at wire time, not on the
// first user request.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.PublicKeyHex == "" || cfg.PrivateKeyHex == "" || cfg.OrgID == "" {
		return nil, fmt.Errorf("turnkey: missing credentials")
	}

	stamper, err := NewStamper(cfg.PublicKeyHex, cfg.PrivateKeyHex)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		orgID:   cfg.OrgID,
		stamper: stamper,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With(slog.String("component", "turnkey")),
	}, nil
}

// submit posts one stamped activity body and decodes the activity envelope.
func (c *Client) submit(ctx context.Context, path string, body activityRequest) (*Activity, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("turnkey: marshal activity: %w", err)
	}

	stamp, err := c.stamper.stamp(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("turnkey: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(stampHeader, stamp)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("turnkey: submit %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("turnkey: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.ErrorContext(ctx, "activity rejected",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("turnkey: %s: status %d: %s", path, resp.StatusCode, truncate(respBody, 300))
	}

	var envelope struct {
		Activity Activity `json:"activity"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("turnkey: decode activity: %w", err)
	}

	c.logger.InfoContext(ctx, "activity submitted",
		slog.String("path", path),
		slog.String("activity_id", envelope.Activity.ID),
		slog.String("status", envelope.Activity.Status),
	)

	return &envelope.Activity, nil
}

func timestampMs() string {
	return fmt.Sprintf("%d", time.Now().UnixMilli())
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
