// Package store provides a SQLite-backed cache for analytics payloads.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/gwlens/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// tsLayout is fixed-width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Key identifies one cached payload. It mirrors the backend's own cache key.
type Key struct {
	GatewayID   string
	Days        int
	IncludeLogs bool
}

// Entry is a cached raw payload.
type Entry struct {
	Key       Key
	Payload   []byte
	FetchedAt time.Time
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries int
	Bytes   int64
	Oldest  time.Time
	Newest  time.Time
}

// Cache provides SQLite-backed snapshot caching.
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db, now: time.Now}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the payload for key if it was fetched less than ttl ago.
// A non-positive ttl accepts any age.
func (c *Cache) Get(key Key, ttl time.Duration) (Entry, bool, error) {
	var (
		payload []byte
		fetched string
	)
	err := c.db.QueryRow(`SELECT payload, fetched_at FROM snapshots
		WHERE gateway_id = ? AND days = ? AND include_logs = ?`,
		key.GatewayID, key.Days, boolInt(key.IncludeLogs),
	).Scan(&payload, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading snapshot: %w", err)
	}

	fetchedAt, err := time.Parse(tsLayout, fetched)
	if err != nil {
		return Entry{}, false, nil //nolint:nilerr // unreadable timestamp is a miss
	}
	if ttl > 0 && c.now().Sub(fetchedAt) >= ttl {
		return Entry{}, false, nil
	}
	return Entry{Key: key, Payload: payload, FetchedAt: fetchedAt}, true, nil
}

// Put stores payload for key, replacing any previous entry.
func (c *Cache) Put(key Key, payload []byte, fetchedAt time.Time) error {
	if fetchedAt.IsZero() {
		fetchedAt = c.now()
	}
	_, err := c.db.Exec(`INSERT OR REPLACE INTO snapshots
		(gateway_id, days, include_logs, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?)`,
		key.GatewayID, key.Days, boolInt(key.IncludeLogs), payload,
		fetchedAt.UTC().Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Purge deletes entries fetched more than maxAge ago and returns how many
// were removed. A non-positive maxAge clears the cache.
func (c *Cache) Purge(maxAge time.Duration) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if maxAge <= 0 {
		res, err = c.db.Exec("DELETE FROM snapshots")
	} else {
		cutoff := c.now().Add(-maxAge).UTC().Format(tsLayout)
		res, err = c.db.Exec("DELETE FROM snapshots WHERE fetched_at < ?", cutoff)
	}
	if err != nil {
		return 0, fmt.Errorf("purging snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Stats reports how many payloads are cached and their age span.
func (c *Cache) Stats() (Stats, error) {
	var (
		st             Stats
		oldest, newest sql.NullString
	)
	err := c.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(LENGTH(payload)), 0),
		MIN(fetched_at), MAX(fetched_at) FROM snapshots`,
	).Scan(&st.Entries, &st.Bytes, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	if oldest.Valid {
		st.Oldest, _ = time.Parse(tsLayout, oldest.String)
	}
	if newest.Valid {
		st.Newest, _ = time.Parse(tsLayout, newest.String)
	}
	return st, nil
}

// SaveGateways replaces the cached gateway list.
func (c *Cache) SaveGateways(gws []model.Gateway) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM gateways"); err != nil {
		return err
	}
	now := c.now().UTC().Format(tsLayout)
	for _, g := range gws {
		created := ""
		if !g.CreatedAt.IsZero() {
			created = g.CreatedAt.UTC().Format(tsLayout)
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO gateways
			(gateway_id, name, created_at, listed_at) VALUES (?, ?, ?, ?)`,
			g.ID, g.Name, created, now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadGateways returns the cached gateway list ordered by name.
func (c *Cache) LoadGateways() ([]model.Gateway, error) {
	rows, err := c.db.Query("SELECT gateway_id, name, created_at FROM gateways ORDER BY name, gateway_id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var gws []model.Gateway
	for rows.Next() {
		var (
			g       model.Gateway
			created sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.Name, &created); err != nil {
			return nil, err
		}
		if created.Valid && created.String != "" {
			g.CreatedAt, _ = time.Parse(tsLayout, created.String)
		}
		gws = append(gws, g)
	}
	return gws, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
