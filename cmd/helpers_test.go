package cmd

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/gwlens/internal/daemon"
	"github.com/theirongolddev/gwlens/internal/fetch"
	"github.com/theirongolddev/gwlens/internal/gateway"
	"github.com/theirongolddev/gwlens/internal/model"
)

func TestFilterLogs(t *testing.T) {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	logs := []model.LogEntry{
		{ID: "1", Model: "openai-gpt-4o", Status: 200, Timestamp: base},
		{ID: "2", Model: "openai-gpt-4o-mini", Status: 500, Timestamp: base.Add(time.Minute)},
		{ID: "3", Model: "anthropic-claude", Status: 429, Timestamp: base.Add(2 * time.Minute)},
	}

	tests := []struct {
		name       string
		errorsOnly bool
		model      string
		want       []string
	}{
		{"all newest first", false, "", []string{"3", "2", "1"}},
		{"errors only", true, "", []string{"3", "2"}},
		{"model filter", false, "GPT-4O", []string{"2", "1"}},
		{"both", true, "gpt", []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterLogs(logs, tt.errorsOnly, tt.model)
			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.ID
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("filterLogs = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestGatewayRowsMarksDefault(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := gatewayRows([]model.Gateway{
		{ID: "a", Name: "alpha"},
		{ID: "b", Name: "beta", CreatedAt: now.AddDate(0, 0, -3)},
	}, "b", now)

	if rows[0][0] != "" || rows[1][0] != "*" {
		t.Errorf("default marks = %q, %q; want \"\", \"*\"", rows[0][0], rows[1][0])
	}
	if rows[0][3] != "-" {
		t.Errorf("missing created = %q, want -", rows[0][3])
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "****"},
		{"abcd", "****"},
		{"abcdef", "abcd..."},
		{"0123456789abcdefXYZ", "01234567...fXYZ"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"daemon", "--detach", "--addr", ":9000", "--detach=true"})
	want := []string{"daemon", "--addr", ":9000"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterDetachArg = %v, want %v", got, want)
	}
}

func TestExplainAddsHints(t *testing.T) {
	for _, err := range []error{fetch.ErrNoGateway, gateway.ErrNoCredentials, gateway.ErrUnauthorized} {
		wrapped := explain(&fetch.FetchError{Err: err})
		if !errors.Is(wrapped, err) {
			t.Errorf("explain(%v) lost the cause", err)
		}
		if wrapped.Error() == (&fetch.FetchError{Err: err}).Error() {
			t.Errorf("explain(%v) added no hint", err)
		}
	}
}

func TestSwapFetcherReplaces(t *testing.T) {
	closed := 0
	snapFor := func(id string) fetch.Fetcher {
		return fetch.FetcherFunc(func(context.Context, fetch.Key) (*model.AnalyticsSnapshot, error) {
			return &model.AnalyticsSnapshot{GatewayID: id}, nil
		})
	}

	var s swapFetcher
	s.replace(snapFor("old"), func() { closed++ })
	s.replace(snapFor("new"), nil)
	if closed != 1 {
		t.Errorf("old cleanup ran %d times, want 1", closed)
	}

	snap, err := s.Fetch(context.Background(), fetch.Key{GatewayID: "x", RangeDays: 7})
	if err != nil || snap.GatewayID != "new" {
		t.Errorf("Fetch = %v, %v; want the new fetcher", snap, err)
	}

	s.replace(nil, nil)
	if _, err := s.Fetch(context.Background(), fetch.Key{}); err == nil {
		t.Error("Fetch after close should fail")
	}
}

func TestPrintDaemonStatus(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := daemon.Record{PID: 42, Addr: "127.0.0.1:8787", GatewayID: "gw", Days: 7, StartedAt: now.Add(-time.Hour)}

	t.Run("loading", func(t *testing.T) {
		var buf bytes.Buffer
		printDaemonStatus(&buf, rec, daemon.Status{Phase: "loading", Seq: 3, Discarded: 2, SkippedPolls: 4}, nil, now)
		out := buf.String()
		for _, want := range []string{"gw/7d", "pid 42", "loading (seq 3)", "2 stale dropped", "4 polls skipped", "Data: none yet"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		var buf bytes.Buffer
		printDaemonStatus(&buf, rec, daemon.Status{}, errors.New("unreachable: refused"), now)
		out := buf.String()
		if !strings.Contains(out, "API: unreachable") || strings.Contains(out, "Fetch:") {
			t.Errorf("output = %q, want only the record and the API error", out)
		}
	})
}
