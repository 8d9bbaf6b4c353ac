// Package gateway provides a client for the gateway backend's analytics API.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/source"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	maxBodySize = 32 << 20 // logs can be large
	userAgent   = "gwlens/1.0"
)

var (
	// ErrUnauthorized indicates the user id was rejected.
	ErrUnauthorized = errors.New("gateway: unauthorized (user id missing or invalid)")
	// ErrRateLimited indicates the backend rate limit was hit.
	ErrRateLimited = errors.New("gateway: rate limited")
	// ErrAnalyticsUnavailable indicates the backend answered with an error body.
	ErrAnalyticsUnavailable = source.ErrAnalyticsUnavailable
)

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gateway: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("gateway: unexpected status %d: %s", e.Code, e.Body)
}

// Query selects one analytics snapshot.
type Query struct {
	GatewayID   string
	Days        int
	IncludeLogs bool
}

// Client fetches analytics snapshots and gateway listings.
type Client struct {
	baseURL string
	creds   CredentialProvider
	http    *http.Client
}

// NewClient creates a client against baseURL. An empty baseURL uses
// DefaultBaseURL and a non-positive timeout uses DefaultTimeout.
func NewClient(baseURL string, creds CredentialProvider, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchRaw returns the undecoded analytics payload for q.
func (c *Client) FetchRaw(ctx context.Context, q Query) ([]byte, error) {
	if q.GatewayID == "" {
		return nil, errors.New("gateway: empty gateway id")
	}
	params := url.Values{}
	params.Set("days", strconv.Itoa(q.Days))
	params.Set("include_logs", strconv.FormatBool(q.IncludeLogs))
	return c.get(ctx, "/analytics/"+url.PathEscape(q.GatewayID)+"?"+params.Encode())
}

// FetchSnapshot fetches and decodes the analytics snapshot for q.
// An {"error": ...} body yields ErrAnalyticsUnavailable.
func (c *Client) FetchSnapshot(ctx context.Context, q Query) (*model.AnalyticsSnapshot, error) {
	body, err := c.FetchRaw(ctx, q)
	if err != nil {
		return nil, err
	}
	snap, err := source.DecodeSnapshot(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: %s: %w", q.GatewayID, err)
	}
	snap.FetchedAt = time.Now()
	return snap, nil
}

// ListGateways returns the gateways owned by the current user.
func (c *Client) ListGateways(ctx context.Context) ([]model.Gateway, error) {
	body, err := c.get(ctx, "/gateway/list")
	if err != nil {
		return nil, err
	}
	return source.DecodeGatewayList(bytes.NewReader(body))
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.creds == nil {
		return nil, ErrNoCredentials
	}
	userID, err := c.creds.UserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway: resolving credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-User-ID", userID)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	log.Debug("gateway request", "path", path, "status", resp.StatusCode, "request_id", requestID, "elapsed", time.Since(start))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("gateway: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: snippet(body)}
	}
	return body, nil
}

func snippet(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
