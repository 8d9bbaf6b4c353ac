package source

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const samplePayload = `{
  "gateway_id": "gw_1",
  "date_range": {"start_date": "2024-01-01T09:30:00.123456+00:00", "end_date": "2024-01-08T09:30:00+00:00", "days": 7},
  "summary": {"total_requests": 150, "tokens_in": 1000, "tokens_out": 2000, "total_cost": 1.75,
              "avg_latency": 320.5, "error_count": 6, "error_rate": 4.0, "success_rate": 96.0, "log_count": 0},
  "model_breakdown": {
    "openai-gpt-4o": {"requests": 100, "tokens_in": 800, "tokens_out": 1500, "cost": 1.5, "avg_latency": 300},
    "groq:llama":    {"requests": "50", "tokens_in": 200.0, "tokens_out": null, "cost": 0.25, "avg_latency": null}
  },
  "daily_stats": [
    {"date": "2024-01-08", "requests": 90, "errors": 4, "cost": 1.0, "success_rate": 95.5},
    {"date": "not-a-date", "requests": 1},
    {"date": "2024-01-07", "requests": 60, "errors": 2, "cost": 0.75}
  ],
  "logs": null
}`

func TestDecodeSnapshot(t *testing.T) {
	snap, err := DecodeSnapshot(strings.NewReader(samplePayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.GatewayID != "gw_1" || snap.RangeDays != 7 {
		t.Errorf("GatewayID/RangeDays = %q/%d, want gw_1/7", snap.GatewayID, snap.RangeDays)
	}
	if snap.RangeStart.IsZero() || snap.RangeEnd.IsZero() {
		t.Errorf("range = %s..%s, want both set", snap.RangeStart, snap.RangeEnd)
	}
	if snap.Summary.TotalTokens != 3000 {
		t.Errorf("TotalTokens = %d, want 3000 (derived)", snap.Summary.TotalTokens)
	}
	if snap.Summary.SuccessRate != 96 {
		t.Errorf("SuccessRate = %v, want 96", snap.Summary.SuccessRate)
	}

	groq, ok := snap.ModelBreakdown["groq:llama"]
	if !ok {
		t.Fatal("groq:llama missing from breakdown")
	}
	if groq.Requests != 50 || groq.TokensIn != 200 || groq.TokensOut != 0 || groq.AvgLatency != 0 {
		t.Errorf("groq = %+v, want requests=50 tokens_in=200 tokens_out=0 latency=0", groq)
	}

	if len(snap.DailyStats) != 2 {
		t.Fatalf("len(DailyStats) = %d, want 2 (bad date dropped)", len(snap.DailyStats))
	}
	first := snap.DailyStats[0]
	if !first.Date.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("DailyStats[0].Date = %s, want 2024-01-08", first.Date)
	}
	if first.SuccessRate == nil || *first.SuccessRate != 95.5 {
		t.Errorf("DailyStats[0].SuccessRate = %v, want 95.5", first.SuccessRate)
	}
	if snap.DailyStats[1].SuccessRate != nil {
		t.Error("DailyStats[1].SuccessRate should stay absent")
	}
	if snap.Logs != nil {
		t.Errorf("Logs = %v, want nil", snap.Logs)
	}
}

func TestDecodeSnapshot_ErrorBody(t *testing.T) {
	_, err := DecodeSnapshot(strings.NewReader(`{"error": "Analytics database not available"}`))
	if !errors.Is(err, ErrAnalyticsUnavailable) {
		t.Fatalf("err = %v, want ErrAnalyticsUnavailable", err)
	}
	if !strings.Contains(err.Error(), "database not available") {
		t.Errorf("err = %q, want backend message included", err)
	}
}

func TestDecodeSnapshot_NullSections(t *testing.T) {
	snap, err := DecodeSnapshot(strings.NewReader(`{"gateway_id":"gw","summary":null,"model_breakdown":null,"daily_stats":null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.HasBreakdown() || snap.HasDailyStats() {
		t.Errorf("snap = %+v, want no breakdown and no buckets", snap)
	}
	if snap.ModelBreakdown == nil || snap.DailyStats == nil {
		t.Error("collections should be empty, not nil")
	}
}

func TestDecodeSnapshot_Malformed(t *testing.T) {
	if _, err := DecodeSnapshot(strings.NewReader(`{"summary": [`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if _, err := DecodeSnapshot(strings.NewReader(`{"summary": {"total_requests": "many"}}`)); err == nil {
		t.Fatal("expected error for non-numeric count")
	}
}

func TestEncodeSnapshot_ReadBack(t *testing.T) {
	snap, err := DecodeSnapshot(strings.NewReader(samplePayload))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "snapshot.json")
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, snap); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSnapshotFile(path)
	if err != nil {
		t.Fatalf("ReadSnapshotFile: %v", err)
	}
	if got.Summary != snap.Summary {
		t.Errorf("Summary = %+v, want %+v", got.Summary, snap.Summary)
	}
	if len(got.DailyStats) != len(snap.DailyStats) || len(got.ModelBreakdown) != len(snap.ModelBreakdown) {
		t.Errorf("got %d buckets/%d models, want %d/%d",
			len(got.DailyStats), len(got.ModelBreakdown), len(snap.DailyStats), len(snap.ModelBreakdown))
	}
}

func TestReadSnapshotFile_Missing(t *testing.T) {
	if _, err := ReadSnapshotFile(filepath.Join(t.TempDir(), "nope.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestDecodeGatewayList(t *testing.T) {
	body := `{"gateways":[{"id":"g1","name":"prod","created_at":"2024-02-01T12:00:00"},{"id":"g2","name":"dev","created_at":null}]}`
	gws, err := DecodeGatewayList(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gws) != 2 || gws[0].Name != "prod" || gws[0].CreatedAt.IsZero() {
		t.Errorf("gateways = %+v", gws)
	}
	if !gws[1].CreatedAt.IsZero() {
		t.Errorf("gws[1].CreatedAt = %s, want zero", gws[1].CreatedAt)
	}
}
