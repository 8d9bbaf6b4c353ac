package fetch

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/gwlens/internal/gateway"
	"github.com/theirongolddev/gwlens/internal/store"
)

type stubSource struct {
	body  string
	err   error
	calls atomic.Int64
	last  gateway.Query
}

func (s *stubSource) FetchRaw(_ context.Context, q gateway.Query) ([]byte, error) {
	s.calls.Add(1)
	s.last = q
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body), nil
}

const okBody = `{"gateway_id":"gw","date_range":{"days":7},"summary":{"total_requests":2},"daily_stats":[{"date":"2024-01-01","requests":2}]}`

func openCache(t *testing.T) *store.Cache {
	t.Helper()
	c, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGatewayFetcher_CachesPayload(t *testing.T) {
	src := &stubSource{body: okBody}
	f := &GatewayFetcher{Source: src, Cache: openCache(t), TTL: time.Minute}
	key := Key{GatewayID: "gw", RangeDays: 7}

	for i := 0; i < 3; i++ {
		snap, err := f.Fetch(context.Background(), key)
		if err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
		if snap.Summary.TotalRequests != 2 {
			t.Errorf("TotalRequests = %d, want 2", snap.Summary.TotalRequests)
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
	if src.last.Days != 7 || src.last.IncludeLogs {
		t.Errorf("query = %+v", src.last)
	}
}

func TestGatewayFetcher_DoesNotCacheErrors(t *testing.T) {
	src := &stubSource{body: `{"error":"Analytics database not available"}`}
	f := &GatewayFetcher{Source: src, Cache: openCache(t), TTL: time.Minute}
	key := Key{GatewayID: "gw", RangeDays: 7}

	for i := 0; i < 2; i++ {
		if _, err := f.Fetch(context.Background(), key); !errors.Is(err, gateway.ErrAnalyticsUnavailable) {
			t.Fatalf("err = %v, want ErrAnalyticsUnavailable", err)
		}
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("backend calls = %d, want 2", got)
	}
}

func TestGatewayFetcher_NoCache(t *testing.T) {
	src := &stubSource{err: gateway.ErrRateLimited}
	f := &GatewayFetcher{Source: src}
	if _, err := f.Fetch(context.Background(), Key{GatewayID: "gw", RangeDays: 1}); !errors.Is(err, gateway.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if _, err := f.Fetch(context.Background(), Key{RangeDays: 1}); !errors.Is(err, ErrNoGateway) {
		t.Errorf("err = %v, want ErrNoGateway", err)
	}
}

func TestFileFetcher_WithCoordinator(t *testing.T) {
	f := FileFetcher{Path: filepath.Join(t.TempDir(), "missing.json")}
	c := New(f)
	defer c.Close()

	c.Request(Key{GatewayID: "file", RangeDays: 7})
	st, err := c.Wait(waitCtx(t))
	if st.Phase != Failed || err == nil {
		t.Errorf("status = %+v, %v; want failed", st, err)
	}
}
