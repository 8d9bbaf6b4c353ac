package fetch

import (
	"bytes"
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/theirongolddev/gwlens/internal/gateway"
	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/source"
	"github.com/theirongolddev/gwlens/internal/store"
)

// RawSource returns undecoded analytics payloads. *gateway.Client implements it.
type RawSource interface {
	FetchRaw(ctx context.Context, q gateway.Query) ([]byte, error)
}

// GatewayFetcher fetches snapshots from the backend, consulting an optional
// payload cache first. Only payloads that decode cleanly are cached.
type GatewayFetcher struct {
	Source      RawSource
	Cache       *store.Cache  // nil disables caching
	TTL         time.Duration // cache freshness; 0 accepts any age
	IncludeLogs bool
}

// Fetch implements Fetcher.
func (g *GatewayFetcher) Fetch(ctx context.Context, key Key) (*model.AnalyticsSnapshot, error) {
	if key.GatewayID == "" {
		return nil, ErrNoGateway
	}
	ck := store.Key{GatewayID: key.GatewayID, Days: key.RangeDays, IncludeLogs: g.IncludeLogs}

	if g.Cache != nil {
		entry, ok, err := g.Cache.Get(ck, g.TTL)
		if err != nil {
			log.Warn("snapshot cache read failed", "key", key, "err", err)
		}
		if ok {
			snap, err := source.DecodeSnapshot(bytes.NewReader(entry.Payload))
			if err == nil {
				log.Debug("snapshot cache hit", "key", key, "age", time.Since(entry.FetchedAt))
				snap.FetchedAt = entry.FetchedAt
				return snap, nil
			}
			log.Warn("ignoring undecodable cached snapshot", "key", key, "err", err)
		}
	}

	body, err := g.Source.FetchRaw(ctx, gateway.Query{
		GatewayID:   key.GatewayID,
		Days:        key.RangeDays,
		IncludeLogs: g.IncludeLogs,
	})
	if err != nil {
		return nil, err
	}
	snap, err := source.DecodeSnapshot(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Now()

	if g.Cache != nil {
		if err := g.Cache.Put(ck, body, snap.FetchedAt); err != nil {
			log.Warn("snapshot cache write failed", "key", key, "err", err)
		}
	}
	return snap, nil
}

// FileFetcher serves a snapshot saved on disk regardless of the key's
// gateway. The range is applied later by normalization.
type FileFetcher struct {
	Path string
}

// Fetch implements Fetcher.
func (f FileFetcher) Fetch(ctx context.Context, _ Key) (*model.AnalyticsSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return source.ReadSnapshotFile(f.Path)
}
