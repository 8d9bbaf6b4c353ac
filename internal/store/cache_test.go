package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/gwlens/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_PutGet(t *testing.T) {
	c := openTestCache(t)
	key := Key{GatewayID: "gw_1", Days: 7}
	fetched := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fetched.Add(5 * time.Second) }

	if err := c.Put(key, []byte(`{"gateway_id":"gw_1"}`), fetched); err != nil {
		t.Fatalf("Put: %v", err)
	}

	e, ok, err := c.Get(key, 15*time.Second)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v; want hit", ok, err)
	}
	if string(e.Payload) != `{"gateway_id":"gw_1"}` || !e.FetchedAt.Equal(fetched) {
		t.Errorf("entry = %+v", e)
	}

	// include_logs is part of the key.
	if _, ok, _ := c.Get(Key{GatewayID: "gw_1", Days: 7, IncludeLogs: true}, 0); ok {
		t.Error("logs variant should miss")
	}
	if _, ok, _ := c.Get(Key{GatewayID: "gw_1", Days: 30}, 0); ok {
		t.Error("different range should miss")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := openTestCache(t)
	key := Key{GatewayID: "gw", Days: 1}
	fetched := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := c.Put(key, []byte("{}"), fetched); err != nil {
		t.Fatal(err)
	}

	c.now = func() time.Time { return fetched.Add(16 * time.Second) }
	if _, ok, err := c.Get(key, 15*time.Second); ok || err != nil {
		t.Errorf("Get after ttl = %v, %v; want miss", ok, err)
	}
	if _, ok, _ := c.Get(key, 0); !ok {
		t.Error("Get with no ttl should hit")
	}
}

func TestCache_PurgeAndStats(t *testing.T) {
	c := openTestCache(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base.Add(time.Hour) }

	_ = c.Put(Key{GatewayID: "old", Days: 7}, []byte("1234"), base)
	_ = c.Put(Key{GatewayID: "new", Days: 7}, []byte("12"), base.Add(59*time.Minute))

	st, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 2 || st.Bytes != 6 || !st.Oldest.Equal(base) {
		t.Errorf("Stats = %+v, want 2 entries, 6 bytes", st)
	}

	n, err := c.Purge(30 * time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("Purge = %d, %v; want 1", n, err)
	}
	if _, ok, _ := c.Get(Key{GatewayID: "new", Days: 7}, 0); !ok {
		t.Error("recent entry purged")
	}

	if n, _ := c.Purge(0); n != 1 {
		t.Errorf("Purge(0) = %d, want 1", n)
	}
}

func TestCache_Gateways(t *testing.T) {
	c := openTestCache(t)
	created := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	if err := c.SaveGateways([]model.Gateway{
		{ID: "g2", Name: "staging"},
		{ID: "g1", Name: "prod", CreatedAt: created},
	}); err != nil {
		t.Fatal(err)
	}
	if err := c.SaveGateways([]model.Gateway{
		{ID: "g1", Name: "prod", CreatedAt: created},
		{ID: "g3", Name: "dev"},
	}); err != nil {
		t.Fatal(err)
	}

	gws, err := c.LoadGateways()
	if err != nil {
		t.Fatal(err)
	}
	if len(gws) != 2 || gws[0].Name != "dev" || gws[1].Name != "prod" {
		t.Fatalf("gateways = %+v, want dev, prod", gws)
	}
	if !gws[1].CreatedAt.Equal(created) || !gws[0].CreatedAt.IsZero() {
		t.Errorf("CreatedAt not preserved: %+v", gws)
	}
}
