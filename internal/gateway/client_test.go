package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, StaticCredentials("user-1"), 5*time.Second)
}

func TestFetchSnapshot(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analytics/gw_1" {
			t.Errorf("path = %q, want /analytics/gw_1", r.URL.Path)
		}
		if got := r.URL.Query().Get("days"); got != "7" {
			t.Errorf("days = %q, want 7", got)
		}
		if got := r.URL.Query().Get("include_logs"); got != "false" {
			t.Errorf("include_logs = %q, want false", got)
		}
		if got := r.Header.Get("X-User-ID"); got != "user-1" {
			t.Errorf("X-User-ID = %q, want user-1", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("X-Request-ID not set")
		}
		_, _ = w.Write([]byte(`{"gateway_id":"gw_1","date_range":{"days":7},"summary":{"total_requests":3},"model_breakdown":{"free":{"requests":3}},"daily_stats":[{"date":"2024-01-01","requests":3}]}`))
	})

	snap, err := c.FetchSnapshot(context.Background(), Query{GatewayID: "gw_1", Days: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Summary.TotalRequests != 3 || len(snap.DailyStats) != 1 {
		t.Errorf("snap = %+v", snap)
	}
	if snap.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestFetchSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, "", ErrUnauthorized},
		{"forbidden", http.StatusForbidden, "", ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, "", ErrRateLimited},
		{"error body", http.StatusOK, `{"error":"Failed to fetch analytics: boom"}`, ErrAnalyticsUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.FetchSnapshot(context.Background(), Query{GatewayID: "gw", Days: 30})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFetchSnapshot_StatusError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})
	_, err := c.FetchSnapshot(context.Background(), Query{GatewayID: "gw", Days: 1})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusBadGateway {
		t.Errorf("Code = %d, want 502", se.Code)
	}
}

func TestFetchSnapshot_NoCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	c := NewClient(srv.URL, StaticCredentials(""), 0)
	_, err := c.FetchSnapshot(context.Background(), Query{GatewayID: "gw", Days: 1})
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
	if called {
		t.Error("request sent without credentials")
	}
}

func TestListGateways(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gateway/list" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"gateways":[{"id":"g1","name":"prod","created_at":"2024-02-01T12:00:00"}]}`))
	})
	gws, err := c.ListGateways(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gws) != 1 || gws[0].ID != "g1" {
		t.Errorf("gateways = %+v", gws)
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv(EnvUserID, "")
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("GWLENS_USER_ID=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	creds := EnvCredentials{Files: []string{filepath.Join(dir, "missing.env"), envFile}}
	id, err := creds.UserID(context.Background())
	if err != nil || id != "from-file" {
		t.Fatalf("UserID = %q, %v; want from-file", id, err)
	}

	t.Setenv(EnvUserID, "from-env")
	if id, _ := creds.UserID(context.Background()); id != "from-env" {
		t.Errorf("UserID = %q, want from-env", id)
	}
}

func TestChain(t *testing.T) {
	chain := Chain{StaticCredentials(""), nil, StaticCredentials("second")}
	if id, err := chain.UserID(context.Background()); err != nil || id != "second" {
		t.Errorf("UserID = %q, %v; want second", id, err)
	}
	if _, err := (Chain{}).UserID(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("err = %v, want ErrNoCredentials", err)
	}
}
