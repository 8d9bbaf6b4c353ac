// Package daemon provides the long-running analytics poller and its HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/gwlens/internal/fetch"
	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/pipeline"
	"github.com/theirongolddev/gwlens/internal/source"
)

// Config controls the daemon runtime behavior.
type Config struct {
	GatewayID    string
	Days         int
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	TopN         int
	// NewJitter returns the noise source for one dashboard derivation.
	// nil disables noise.
	NewJitter func() pipeline.Jitter
}

// Totals is a compact usage state for status/event payloads.
type Totals struct {
	At           time.Time `json:"at"`
	Requests     int64     `json:"requests"`
	Errors       int64     `json:"errors"`
	TokensIn     int64     `json:"tokens_in"`
	TokensOut    int64     `json:"tokens_out"`
	CostUSD      float64   `json:"cost_usd"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	ErrorRate    float64   `json:"error_rate"`
}

// Delta captures totals deltas between polls.
type Delta struct {
	Requests int64   `json:"requests"`
	Errors   int64   `json:"errors"`
	Tokens   int64   `json:"tokens"`
	CostUSD  float64 `json:"cost_usd"`
}

func (d Delta) isZero() bool {
	return d.Requests == 0 &&
		d.Errors == 0 &&
		d.Tokens == 0 &&
		d.CostUSD == 0
}

// Event is emitted whenever the totals change.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Totals    Totals    `json:"totals"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	SkippedPolls    int64     `json:"skipped_polls"`
	GatewayID       string    `json:"gateway_id"`
	Days            int       `json:"days"`
	Phase           string    `json:"phase"`
	Seq             uint64    `json:"seq"`
	FetchedAt       time.Time `json:"fetched_at,omitempty"`
	Summary         Totals    `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	Discarded       int64     `json:"discarded"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service polls a fetch.Coordinator and serves what it returns.
type Service struct {
	cfg   Config
	coord *fetch.Coordinator

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	skipped     int64
	lastError   string
	hasTotals   bool
	totals      Totals
	snapshot    *model.AnalyticsSnapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service that drives coord.
func New(cfg Config, coord *fetch.Coordinator) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 60 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Days <= 0 {
		cfg.Days = 30
	}

	return &Service{
		cfg:       cfg,
		coord:     coord,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Key returns the selection the daemon polls.
func (s *Service) Key() fetch.Key {
	return fetch.Key{GatewayID: s.cfg.GatewayID, RangeDays: s.cfg.Days}
}

// Router returns the HTTP API.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/status", s.handleStatus)
		v1.Get("/events", s.handleEvents)
		v1.Get("/stream", s.handleStream)
		v1.Get("/dashboard", s.handleDashboard)
		v1.Get("/snapshot", s.handleSnapshot)
		v1.Post("/refresh", s.handleRefresh)
	})
	return r
}

// Run serves the HTTP API and polls until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("daemon listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	updates, unsubscribe := s.coord.Subscribe()
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("daemon http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case st, ok := <-updates:
				if !ok {
					return nil
				}
				s.apply(st)
			}
		}
	})
	g.Go(func() error {
		s.poll()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.poll()
			}
		}
	})

	log.Info("daemon listening", "addr", ln.Addr().String(), "gateway", s.cfg.GatewayID, "days", s.cfg.Days)
	return g.Wait()
}

// poll requests a fresh snapshot unless one is still being fetched for the
// same key. Requesting again would cancel it, so a backend slower than the
// interval would never complete.
func (s *Service) poll() bool {
	key := s.Key()
	if cs := s.coord.State(); cs.Phase == fetch.Loading && cs.Key == key {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		log.Debug("poll skipped, fetch in flight", "seq", cs.Seq)
		return false
	}

	s.mu.Lock()
	s.lastPollAt = time.Now()
	s.pollCount++
	s.mu.Unlock()
	s.coord.Request(key)
	return true
}

// apply folds one coordinator status into the service state.
func (s *Service) apply(st fetch.Status) {
	switch st.Phase {
	case fetch.Failed:
		s.mu.Lock()
		s.lastError = st.Err.Error()
		s.mu.Unlock()
		log.Warn("daemon poll failed", "err", st.Err)
		return
	case fetch.Ready:
	default:
		return
	}

	now := time.Now()
	totals := totalsFromSnapshot(st.Snapshot, now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.totals
	prevExists := s.hasTotals

	s.hasTotals = true
	s.totals = totals
	s.snapshot = st.Snapshot
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: now, Totals: totals}
		publish = true
	} else if delta := diffTotals(prev, totals); !delta.isZero() {
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "usage_delta", Timestamp: now, Totals: totals, Delta: delta}
		publish = true
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func totalsFromSnapshot(snap *model.AnalyticsSnapshot, at time.Time) Totals {
	if snap == nil {
		return Totals{At: at}
	}
	return Totals{
		At:           at,
		Requests:     snap.Summary.TotalRequests,
		Errors:       snap.Summary.ErrorCount,
		TokensIn:     snap.Summary.TokensIn,
		TokensOut:    snap.Summary.TokensOut,
		CostUSD:      snap.Summary.TotalCost,
		AvgLatencyMs: snap.Summary.AvgLatency,
		ErrorRate:    snap.Summary.ErrorRate,
	}
}

func diffTotals(prev, curr Totals) Delta {
	return Delta{
		Requests: curr.Requests - prev.Requests,
		Errors:   curr.Errors - prev.Errors,
		Tokens:   (curr.TokensIn + curr.TokensOut) - (prev.TokensIn + prev.TokensOut),
		CostUSD:  curr.CostUSD - prev.CostUSD,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) status() Status {
	cs := s.coord.State()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		SkippedPolls:    s.skipped,
		GatewayID:       s.cfg.GatewayID,
		Days:            s.cfg.Days,
		Phase:           cs.Phase.String(),
		Seq:             cs.Seq,
		Summary:         s.totals,
		LastError:       s.lastError,
		Discarded:       s.coord.Discarded(),
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if s.snapshot != nil {
		st.FetchedAt = s.snapshot.FetchedAt
	}
	return st
}

func (s *Service) currentSnapshot() *model.AnalyticsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

// handleDashboard derives every series from the latest snapshot. The window
// can be narrowed with ?days= (never widened past what was fetched) and the
// ranking width set with ?top=.
func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.currentSnapshot()
	if snap == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}

	opts := pipeline.Options{RangeDays: s.cfg.Days, TopN: s.cfg.TopN}
	if v := r.URL.Query().Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		opts.RangeDays = min(days, s.cfg.Days)
	}
	if v := r.URL.Query().Get("top"); v != "" {
		top, err := strconv.Atoi(v)
		if err != nil || top <= 0 {
			http.Error(w, "invalid top", http.StatusBadRequest)
			return
		}
		opts.TopN = top
	}
	if s.cfg.NewJitter != nil {
		opts.Jitter = s.cfg.NewJitter()
	}

	writeJSON(w, http.StatusOK, pipeline.Derive(snap, opts))
}

func (s *Service) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.currentSnapshot()
	if snap == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := source.EncodeSnapshot(w, snap); err != nil {
		log.Error("encoding snapshot", "err", err)
	}
}

func (s *Service) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	seq := s.coord.Request(s.Key())
	writeJSON(w, http.StatusAccepted, map[string]uint64{"seq": seq})
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current totals immediately.
	writeSSE(w, Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Totals:    s.status().Summary,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
