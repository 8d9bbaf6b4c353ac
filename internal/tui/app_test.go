package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/gwlens/internal/fetch"
	"github.com/theirongolddev/gwlens/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

func testSnapshot(days int) *model.AnalyticsSnapshot {
	now := time.Now()
	snap := &model.AnalyticsSnapshot{
		GatewayID: "gw",
		RangeDays: days,
		Summary: model.Summary{
			TotalRequests: int64(10 * days),
			TotalCost:     1.5,
			AvgLatency:    200,
		},
		ModelBreakdown: map[string]model.ModelAggregate{
			"openai-gpt-4o":        {Requests: int64(6 * days), Cost: 1, AvgLatency: 250},
			"anthropic-claude-3-5": {Requests: int64(4 * days), Cost: 0.5, AvgLatency: 150},
		},
		FetchedAt: now,
	}
	for i := days - 1; i >= 0; i-- {
		snap.DailyStats = append(snap.DailyStats, model.DayBucket{
			Date:     now.AddDate(0, 0, -i),
			Requests: 10,
		})
	}
	return snap
}

func snapshotFetcher() fetch.Fetcher {
	return fetch.FetcherFunc(func(_ context.Context, key fetch.Key) (*model.AnalyticsSnapshot, error) {
		return testSnapshot(key.RangeDays), nil
	})
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestApplyStatusDerivesDashboard(t *testing.T) {
	a := App{topN: 5, now: time.Now}
	a.applyStatus(fetch.Status{
		Phase:    fetch.Ready,
		Key:      fetch.Key{GatewayID: "gw", RangeDays: 7},
		Seq:      1,
		Snapshot: testSnapshot(7),
	})

	if !a.hasData {
		t.Fatal("hasData = false, want true")
	}
	if a.dash.RangeDays != 7 {
		t.Errorf("RangeDays = %d, want 7", a.dash.RangeDays)
	}
	if got := len(a.dash.ModelPerformance); got != 5 {
		t.Errorf("len(ModelPerformance) = %d, want 5", got)
	}
}

func TestApplyStatusKeepsDataWhileLoading(t *testing.T) {
	a := App{topN: 5, now: time.Now}
	snap := testSnapshot(7)
	a.applyStatus(fetch.Status{Phase: fetch.Ready, Key: fetch.Key{GatewayID: "gw", RangeDays: 7}, Seq: 1, Snapshot: snap})
	a.applyStatus(fetch.Status{Phase: fetch.Loading, Key: fetch.Key{GatewayID: "gw", RangeDays: 30}, Seq: 2})

	if a.snap != snap {
		t.Error("snapshot replaced while loading a new range")
	}
	if a.dash.RangeDays != 7 {
		t.Errorf("RangeDays = %d, want 7", a.dash.RangeDays)
	}
	if !a.loading() {
		t.Error("loading() = false, want true")
	}

	a.applyStatus(fetch.Status{
		Phase: fetch.Failed,
		Key:   fetch.Key{GatewayID: "gw", RangeDays: 30},
		Seq:   2,
		Err:   errors.New("boom"),
	})
	if a.dash.RangeDays != 7 {
		t.Errorf("after failure RangeDays = %d, want 7", a.dash.RangeDays)
	}
}

func TestApplyStatusIgnoresOlderSeq(t *testing.T) {
	a := App{topN: 5, now: time.Now}
	a.applyStatus(fetch.Status{Phase: fetch.Ready, Key: fetch.Key{GatewayID: "gw", RangeDays: 30}, Seq: 3, Snapshot: testSnapshot(30)})
	a.applyStatus(fetch.Status{Phase: fetch.Ready, Key: fetch.Key{GatewayID: "gw", RangeDays: 7}, Seq: 2, Snapshot: testSnapshot(7)})

	if a.status.Seq != 3 {
		t.Errorf("Seq = %d, want 3", a.status.Seq)
	}
	if a.dash.RangeDays != 30 {
		t.Errorf("RangeDays = %d, want 30", a.dash.RangeDays)
	}
}

func TestRangeKeyRequestsNewRange(t *testing.T) {
	coord := fetch.New(snapshotFetcher())
	defer coord.Close()
	app := NewApp(coord, Options{GatewayID: "gw", Days: 30})
	defer app.Close()

	tests := []struct {
		key  rune
		want int
	}{
		{'7', 7},
		{'1', 1},
		{'3', 30},
	}
	var m tea.Model = app
	for _, tt := range tests {
		var cmd tea.Cmd
		m, cmd = m.Update(keyMsg(tt.key))
		if got := m.(App).days; got != tt.want {
			t.Fatalf("key %q: days = %d, want %d", tt.key, got, tt.want)
		}
		if cmd == nil {
			t.Fatalf("key %q: no request issued", tt.key)
		}
		cmd()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		st, err := coord.Wait(ctx)
		cancel()
		if err != nil {
			t.Fatalf("key %q: Wait: %v", tt.key, err)
		}
		if st.Key.RangeDays != tt.want {
			t.Errorf("key %q: requested RangeDays = %d, want %d", tt.key, st.Key.RangeDays, tt.want)
		}
	}
}

func TestSameRangeKeyIsNoop(t *testing.T) {
	a := App{days: 7, status: fetch.Status{Phase: fetch.Ready, Seq: 1}}
	m, cmd := a.Update(keyMsg('7'))
	if cmd != nil {
		t.Error("re-selecting the active range issued a request")
	}
	if got := m.(App).days; got != 7 {
		t.Errorf("days = %d, want 7", got)
	}
}

func TestTabKeys(t *testing.T) {
	tests := []struct {
		key  rune
		want int
	}{
		{'t', tabTrends},
		{'m', tabModels},
		{'p', tabProviders},
		{'l', tabLogs},
		{'o', tabOverview},
	}
	var m tea.Model = App{}
	for _, tt := range tests {
		m, _ = m.Update(keyMsg(tt.key))
		if got := m.(App).activeTab; got != tt.want {
			t.Errorf("key %q: activeTab = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestViewErrorBeforeData(t *testing.T) {
	a := App{
		width:  100,
		height: 30,
		status: fetch.Status{
			Phase: fetch.Failed,
			Seq:   1,
			Err:   &fetch.FetchError{Err: fetch.ErrNoGateway},
		},
	}
	view := a.View()
	if !strings.Contains(view, "Could not load analytics") {
		t.Errorf("View() missing error title:\n%s", view)
	}
	if !strings.Contains(view, "gwlens setup") {
		t.Errorf("View() missing gateway hint:\n%s", view)
	}
}

func TestViewMainRendersEveryTab(t *testing.T) {
	coord := fetch.New(snapshotFetcher())
	defer coord.Close()

	a := App{coord: coord, width: 140, height: 45, topN: 5, now: time.Now, gatewayID: "gw", days: 7}
	a.applyStatus(fetch.Status{Phase: fetch.Ready, Key: fetch.Key{GatewayID: "gw", RangeDays: 7}, Seq: 1, Snapshot: testSnapshot(7)})

	for _, tab := range []int{tabOverview, tabTrends, tabModels, tabProviders, tabLogs} {
		a.activeTab = tab
		view := a.View()
		if got := len(strings.Split(view, "\n")); got != a.height {
			t.Errorf("tab %d: view has %d lines, want %d", tab, got, a.height)
		}
	}
}

func TestLogsErrorFilter(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := App{snap: &model.AnalyticsSnapshot{Logs: []model.LogEntry{
		{ID: "a", Status: 200, Timestamp: base},
		{ID: "b", Status: 500, Timestamp: base.Add(time.Minute)},
		{ID: "c", Status: 429, Timestamp: base.Add(2 * time.Minute)},
	}}}

	all := a.filteredLogs()
	if len(all) != 3 || all[0].ID != "c" {
		t.Fatalf("filteredLogs() = %v, want 3 entries newest first", all)
	}

	m, ok := a.updateLogsKey("e")
	if !ok {
		t.Fatal("e not handled")
	}
	errs := m.(App).filteredLogs()
	if len(errs) != 2 {
		t.Errorf("errors only: %d entries, want 2", len(errs))
	}
}

func TestLogsCursorClamps(t *testing.T) {
	a := App{snap: &model.AnalyticsSnapshot{Logs: []model.LogEntry{{Status: 200}, {Status: 200}}}}
	m, _ := a.updateLogsKey("G")
	if got := m.(App).logs.cursor; got != 1 {
		t.Errorf("G: cursor = %d, want 1", got)
	}
	m, _ = m.(App).updateLogsKey("j")
	if got := m.(App).logs.cursor; got != 1 {
		t.Errorf("j past end: cursor = %d, want 1", got)
	}
	m, _ = m.(App).updateLogsKey("g")
	if got := m.(App).logs.cursor; got != 0 {
		t.Errorf("g: cursor = %d, want 0", got)
	}
}
