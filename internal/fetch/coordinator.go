// Package fetch coordinates asynchronous snapshot retrieval.
//
// A Coordinator tracks the active (gateway, range) selection. Every Request
// is numbered; a response is applied only if it carries the newest number
// and the key that is still active, so a slow response for an old selection
// can never overwrite a newer one.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/theirongolddev/gwlens/internal/model"
)

// ErrNoGateway is reported when a request names no gateway.
var ErrNoGateway = errors.New("fetch: no gateway selected")

// Key selects one snapshot.
type Key struct {
	GatewayID string
	RangeDays int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%dd", k.GatewayID, k.RangeDays)
}

// Fetcher retrieves one snapshot. Implementations must honor ctx.
type Fetcher interface {
	Fetch(ctx context.Context, key Key) (*model.AnalyticsSnapshot, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key Key) (*model.AnalyticsSnapshot, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, key Key) (*model.AnalyticsSnapshot, error) {
	return f(ctx, key)
}

// Phase is the coordinator's lifecycle state.
type Phase int

// Phases. Loading always moves to Ready or Failed unless superseded.
const (
	Idle Phase = iota
	Loading
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Status is an immutable view of the coordinator.
//
// While a key is reloading, Snapshot keeps the last result for that same key
// so displays need not blank out.
type Status struct {
	Phase     Phase
	Key       Key
	Seq       uint64
	Snapshot  *model.AnalyticsSnapshot
	Err       error
	UpdatedAt time.Time
}

// Terminal reports whether the status is Ready or Failed.
func (s Status) Terminal() bool {
	return s.Phase == Ready || s.Phase == Failed
}

// FetchError wraps a fetch failure with the request it belongs to.
type FetchError struct {
	Key Key
	Seq uint64
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Coordinator issues fetches and applies only the newest result for the
// active key. It adds no timeouts or retries of its own.
type Coordinator struct {
	fetcher Fetcher
	now     func() time.Time

	seq       atomic.Uint64
	discarded atomic.Int64

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	subs   map[chan Status]struct{}
	closed bool
}

// New creates an idle Coordinator backed by f.
func New(f Fetcher) *Coordinator {
	base, stop := context.WithCancel(context.Background())
	return &Coordinator{
		fetcher: f,
		now:     time.Now,
		base:    base,
		stop:    stop,
		subs:    make(map[chan Status]struct{}),
	}
}

// Request makes key active and starts fetching it, cancelling any fetch
// still in flight. It returns the request's sequence number.
func (c *Coordinator) Request(key Key) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.status.Seq
	}

	seq := c.seq.Add(1)
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if key.GatewayID == "" {
		c.setLocked(Status{
			Phase: Failed,
			Key:   key,
			Seq:   seq,
			Err:   &FetchError{Key: key, Seq: seq, Err: ErrNoGateway},
		})
		return seq
	}

	var prev *model.AnalyticsSnapshot
	if c.status.Key == key {
		prev = c.status.Snapshot
	}
	c.setLocked(Status{Phase: Loading, Key: key, Seq: seq, Snapshot: prev})

	ctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		snap, err := c.fetcher.Fetch(ctx, key)
		c.complete(key, seq, snap, err)
	}()
	log.Debug("snapshot requested", "key", key, "seq", seq)
	return seq
}

// Retry re-issues the active key. It returns 0 if nothing was ever requested.
func (c *Coordinator) Retry() uint64 {
	c.mu.Lock()
	st := c.status
	c.mu.Unlock()
	if st.Seq == 0 {
		return 0
	}
	return c.Request(st.Key)
}

// State returns the current status.
func (c *Coordinator) State() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Discarded returns how many responses were dropped as stale.
func (c *Coordinator) Discarded() int64 {
	return c.discarded.Load()
}

// Subscribe returns a channel that receives every status change, and a
// function that unsubscribes. A slow subscriber only sees the latest status;
// intermediate ones are dropped rather than blocking the coordinator.
func (c *Coordinator) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[ch]; ok {
				delete(c.subs, ch)
				close(ch)
			}
		})
	}
}

// Wait blocks until the newest request reaches Ready or Failed and returns
// that status along with its error. An idle coordinator returns immediately.
func (c *Coordinator) Wait(ctx context.Context) (Status, error) {
	ch, unsubscribe := c.Subscribe()
	defer unsubscribe()

	for {
		st := c.State()
		if st.Phase == Idle {
			return st, nil
		}
		if st.Terminal() && st.Seq == c.seq.Load() {
			return st, st.Err
		}
		select {
		case _, ok := <-ch:
			if !ok {
				return c.State(), errors.New("fetch: coordinator closed")
			}
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
}

// Close cancels in-flight fetches, waits for them to return and closes all
// subscriber channels.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stop()
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
}

func (c *Coordinator) complete(key Key, seq uint64, snap *model.AnalyticsSnapshot, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.seq.Load() || key != c.status.Key {
		c.discarded.Add(1)
		log.Debug("snapshot discarded", "key", key, "seq", seq, "latest", c.seq.Load())
		return
	}
	c.cancel = nil

	if err != nil {
		log.Warn("snapshot fetch failed", "key", key, "seq", seq, "err", err)
		c.setLocked(Status{
			Phase:    Failed,
			Key:      key,
			Seq:      seq,
			Snapshot: c.status.Snapshot,
			Err:      &FetchError{Key: key, Seq: seq, Err: err},
		})
		return
	}
	c.setLocked(Status{Phase: Ready, Key: key, Seq: seq, Snapshot: snap})
}

// setLocked replaces the status and notifies subscribers. c.mu must be held.
func (c *Coordinator) setLocked(st Status) {
	st.UpdatedAt = c.now()
	c.status = st
	for ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}
