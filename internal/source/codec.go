// Package source decodes gateway analytics payloads into snapshots.
//
// Decoding is lenient: null sections, missing fields and unparseable dates
// produce an emptier snapshot rather than an error. Only malformed JSON and
// explicit error bodies fail.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/theirongolddev/gwlens/internal/model"
)

// ErrAnalyticsUnavailable is returned when the backend answers with an
// {"error": "..."} body instead of a snapshot.
var ErrAnalyticsUnavailable = errors.New("analytics unavailable")

// dayLayout is the format of daily_stats dates.
const dayLayout = "2006-01-02"

// Timestamps arrive with or without a zone depending on how they were stored.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	dayLayout,
}

// DecodeSnapshot reads one analytics payload from r.
func DecodeSnapshot(r io.Reader) (*model.AnalyticsSnapshot, error) {
	var raw RawSnapshot
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("source: decoding snapshot: %w", err)
	}
	if raw.Error != "" {
		return nil, fmt.Errorf("source: %w: %s", ErrAnalyticsUnavailable, raw.Error)
	}
	return FromRaw(&raw), nil
}

// ReadSnapshotFile decodes a snapshot previously saved to disk.
func ReadSnapshotFile(path string) (*model.AnalyticsSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	defer func() { _ = f.Close() }()
	return DecodeSnapshot(f)
}

// FromRaw converts a wire payload into a snapshot. Buckets without a valid
// date are dropped. Buckets are kept in wire order; the backend sends the
// most recent first.
func FromRaw(raw *RawSnapshot) *model.AnalyticsSnapshot {
	snap := &model.AnalyticsSnapshot{
		GatewayID:      raw.GatewayID,
		ModelBreakdown: make(map[string]model.ModelAggregate, len(raw.ModelBreakdown)),
		DailyStats:     make([]model.DayBucket, 0, len(raw.DailyStats)),
	}

	if dr := raw.DateRange; dr != nil {
		snap.RangeDays = int(dr.Days)
		snap.RangeStart, _ = parseTime(dr.StartDate)
		snap.RangeEnd, _ = parseTime(dr.EndDate)
	}

	if s := raw.Summary; s != nil {
		snap.Summary = model.Summary{
			TotalRequests: int64(s.TotalRequests),
			TokensIn:      int64(s.TokensIn),
			TokensOut:     int64(s.TokensOut),
			TotalTokens:   int64(s.TotalTokens),
			TotalCost:     s.TotalCost,
			AvgLatency:    s.AvgLatency,
			MinLatency:    s.MinLatency,
			MaxLatency:    s.MaxLatency,
			ErrorCount:    int64(s.ErrorCount),
			ErrorRate:     s.ErrorRate,
			SuccessRate:   100 - s.ErrorRate,
			LogCount:      int(s.LogCount),
		}
		if s.SuccessRate != nil {
			snap.Summary.SuccessRate = *s.SuccessRate
		}
		if snap.Summary.TotalTokens == 0 {
			snap.Summary.TotalTokens = snap.Summary.TokensIn + snap.Summary.TokensOut
		}
	}

	for name, m := range raw.ModelBreakdown {
		if m == nil {
			continue
		}
		agg := model.ModelAggregate{
			Requests:    int64(m.Requests),
			TokensIn:    int64(m.TokensIn),
			TokensOut:   int64(m.TokensOut),
			TotalTokens: int64(m.TotalTokens),
			Cost:        m.Cost,
			AvgLatency:  m.AvgLatency,
		}
		if agg.TotalTokens == 0 {
			agg.TotalTokens = agg.TokensIn + agg.TokensOut
		}
		snap.ModelBreakdown[name] = agg
	}

	for _, d := range raw.DailyStats {
		if d == nil {
			continue
		}
		date, err := time.Parse(dayLayout, strings.TrimSpace(d.Date))
		if err != nil {
			log.Debug("dropping day bucket", "date", d.Date, "err", err)
			continue
		}
		snap.DailyStats = append(snap.DailyStats, model.DayBucket{
			Date:        date,
			Requests:    int64(d.Requests),
			TokensIn:    int64(d.TokensIn),
			TokensOut:   int64(d.TokensOut),
			Cost:        d.Cost,
			Errors:      int64(d.Errors),
			SuccessRate: d.SuccessRate,
		})
	}

	if len(raw.Logs) > 0 {
		snap.Logs = make([]model.LogEntry, 0, len(raw.Logs))
		for _, l := range raw.Logs {
			if l != nil {
				snap.Logs = append(snap.Logs, ConvertLog(l))
			}
		}
	}
	return snap
}

// ToRaw converts a snapshot back to its wire shape, so saved snapshots can be
// read by ReadSnapshotFile.
func ToRaw(snap *model.AnalyticsSnapshot) *RawSnapshot {
	successRate := snap.Summary.SuccessRate
	raw := &RawSnapshot{
		GatewayID: snap.GatewayID,
		DateRange: &RawDateRange{
			StartDate: formatTime(snap.RangeStart),
			EndDate:   formatTime(snap.RangeEnd),
			Days:      Count(snap.RangeDays),
		},
		Summary: &RawSummary{
			TotalRequests: Count(snap.Summary.TotalRequests),
			TokensIn:      Count(snap.Summary.TokensIn),
			TokensOut:     Count(snap.Summary.TokensOut),
			TotalTokens:   Count(snap.Summary.TotalTokens),
			TotalCost:     snap.Summary.TotalCost,
			AvgLatency:    snap.Summary.AvgLatency,
			MinLatency:    snap.Summary.MinLatency,
			MaxLatency:    snap.Summary.MaxLatency,
			ErrorCount:    Count(snap.Summary.ErrorCount),
			ErrorRate:     snap.Summary.ErrorRate,
			SuccessRate:   &successRate,
			LogCount:      Count(snap.Summary.LogCount),
		},
		ModelBreakdown: make(map[string]*RawModelStat, len(snap.ModelBreakdown)),
		DailyStats:     make([]*RawDayStat, 0, len(snap.DailyStats)),
	}
	for name, m := range snap.ModelBreakdown {
		raw.ModelBreakdown[name] = &RawModelStat{
			Requests:    Count(m.Requests),
			TokensIn:    Count(m.TokensIn),
			TokensOut:   Count(m.TokensOut),
			TotalTokens: Count(m.TotalTokens),
			Cost:        m.Cost,
			AvgLatency:  m.AvgLatency,
		}
	}
	for _, d := range snap.DailyStats {
		raw.DailyStats = append(raw.DailyStats, &RawDayStat{
			Date:        d.Date.Format(dayLayout),
			Requests:    Count(d.Requests),
			TokensIn:    Count(d.TokensIn),
			TokensOut:   Count(d.TokensOut),
			Cost:        d.Cost,
			Errors:      Count(d.Errors),
			SuccessRate: d.SuccessRate,
		})
	}
	return raw
}

// EncodeSnapshot writes snap to w in wire format. Logs are not written.
func EncodeSnapshot(w io.Writer, snap *model.AnalyticsSnapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToRaw(snap)); err != nil {
		return fmt.Errorf("source: encoding snapshot: %w", err)
	}
	return nil
}

// DecodeGatewayList reads the body of the gateway list endpoint.
func DecodeGatewayList(r io.Reader) ([]model.Gateway, error) {
	var raw RawGatewayList
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("source: decoding gateway list: %w", err)
	}
	gateways := make([]model.Gateway, 0, len(raw.Gateways))
	for _, g := range raw.Gateways {
		created, _ := parseTime(g.CreatedAt)
		gateways = append(gateways, model.Gateway{ID: g.ID, Name: g.Name, CreatedAt: created})
	}
	return gateways, nil
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
