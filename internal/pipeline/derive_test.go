package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/theirongolddev/gwlens/internal/model"
)

func scenarioSnapshot() *model.AnalyticsSnapshot {
	return &model.AnalyticsSnapshot{
		GatewayID: "gw_1",
		RangeDays: 1,
		Summary: model.Summary{
			TotalRequests: 100,
			TotalCost:     1.5,
			AvgLatency:    300,
			ErrorCount:    5,
			ErrorRate:     5,
			SuccessRate:   95,
		},
		ModelBreakdown: map[string]model.ModelAggregate{
			"openai-gpt-4o": {Requests: 100, Cost: 1.5, AvgLatency: 300},
		},
		DailyStats: []model.DayBucket{
			{Date: day(2024, 1, 1), Requests: 100, Errors: 5, TokensIn: 1000, TokensOut: 2000, Cost: 1.5},
		},
	}
}

func TestDerive_EndToEnd(t *testing.T) {
	now := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	d := Derive(scenarioSnapshot(), Options{RangeDays: 1, Now: now})

	if len(d.Requests) != 1 {
		t.Fatalf("len(Requests) = %d, want 1", len(d.Requests))
	}
	if got := d.Requests[0]; got.Requests != 100 || got.Errors != 5 {
		t.Errorf("Requests[0] = %+v, want requests=100 errors=5", got)
	}

	if len(d.ErrorRates) != 1 || d.ErrorRates[0].ErrorRate != 5.0 {
		t.Errorf("ErrorRates = %+v, want one point at 5.0", d.ErrorRates)
	}
	if d.ErrorRates[0].SuccessRate != 100 {
		t.Errorf("SuccessRate = %v, want 100 when bucket omits it", d.ErrorRates[0].SuccessRate)
	}

	if len(d.Tokens) != 1 || d.Tokens[0].InputTokens != 1000 || d.Tokens[0].OutputTokens != 2000 {
		t.Errorf("Tokens = %+v, want 1000/2000", d.Tokens)
	}

	if len(d.CostDistribution) != 5 {
		t.Fatalf("len(CostDistribution) = %d, want 5", len(d.CostDistribution))
	}
	if first := d.CostDistribution[0]; first.Key != "openai-gpt-4o" || first.Value.Value != 1.5 {
		t.Errorf("CostDistribution[0] = %+v, want openai-gpt-4o at 1.5", first)
	}
	for _, slice := range d.CostDistribution[1:] {
		if !slice.Placeholder || slice.Value.Value != 0 {
			t.Errorf("slot %d = %+v, want zero placeholder", slice.Slot, slice)
		}
	}

	if len(d.Providers) != 1 {
		t.Fatalf("len(Providers) = %d, want 1", len(d.Providers))
	}
	p := d.Providers[0]
	if p.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", p.Provider)
	}
	if p.ErrorRatePercent != 5 {
		t.Errorf("ErrorRatePercent = %v, want 5", p.ErrorRatePercent)
	}
	if p.PerformanceScore != 68 {
		t.Errorf("PerformanceScore = %d, want 68", p.PerformanceScore)
	}

	if len(d.ProviderPerformance) != len(ProviderSlots) {
		t.Fatalf("len(ProviderPerformance) = %d, want %d", len(d.ProviderPerformance), len(ProviderSlots))
	}
	for _, pt := range d.ProviderPerformance {
		if pt.Scores["openai"] != 68 {
			t.Errorf("%s score = %v, want 68 without jitter", pt.Time, pt.Scores["openai"])
		}
	}

	if len(d.Latency) != 1 || d.Latency[0].P50Latency != 240 || d.Latency[0].P95Latency != 660 {
		t.Errorf("Latency = %+v, want p50=240 p95=660", d.Latency)
	}
}

func TestDerive_NilSnapshot(t *testing.T) {
	d := Derive(nil, Options{RangeDays: 7})

	lengths := map[string]int{
		"Requests":            len(d.Requests),
		"Tokens":              len(d.Tokens),
		"Costs":               len(d.Costs),
		"ErrorRates":          len(d.ErrorRates),
		"Latency":             len(d.Latency),
		"ModelPerformance":    len(d.ModelPerformance),
		"CostDistribution":    len(d.CostDistribution),
		"Providers":           len(d.Providers),
		"ProviderSeries":      len(d.ProviderSeries),
		"ProviderPerformance": len(d.ProviderPerformance),
		"UsagePattern":        len(d.UsagePattern),
		"PopularityModels":    len(d.PopularityModels),
		"Popularity":          len(d.Popularity),
	}
	for name, n := range lengths {
		if n != 0 {
			t.Errorf("len(%s) = %d, want 0", name, n)
		}
	}
	if d.Requests == nil || d.ModelPerformance == nil || d.Providers == nil || d.UsagePattern == nil {
		t.Error("series should be empty slices, not nil")
	}
}

func TestDerive_EmptySections(t *testing.T) {
	snap := &model.AnalyticsSnapshot{RangeDays: 7, ModelBreakdown: map[string]model.ModelAggregate{}}
	d := Derive(snap, Options{Now: time.Now()})
	if len(d.CostDistribution) != 0 || len(d.ModelPerformance) != 0 || len(d.Popularity) != 0 {
		t.Errorf("empty breakdown produced series: %+v", d)
	}
}

func TestDerive_BreakdownWithoutDailyStats(t *testing.T) {
	snap := scenarioSnapshot()
	snap.DailyStats = nil
	d := Derive(snap, Options{RangeDays: 1, Now: time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)})

	if len(d.Requests) != 0 || len(d.Costs) != 0 || len(d.Popularity) != 0 {
		t.Errorf("day series = %d requests, %d costs, %d popularity; want none", len(d.Requests), len(d.Costs), len(d.Popularity))
	}
	if len(d.ModelPerformance) != DefaultTopN || d.ModelPerformance[0].Key != "openai-gpt-4o" {
		t.Errorf("ModelPerformance = %+v, want %d slots led by openai-gpt-4o", d.ModelPerformance, DefaultTopN)
	}
	if len(d.CostDistribution) != DefaultTopN || d.CostDistribution[0].Value.Value != 1.5 {
		t.Errorf("CostDistribution = %+v, want %d slots led by 1.5", d.CostDistribution, DefaultTopN)
	}
	if len(d.Providers) != 1 || len(d.ProviderSeries) != 1 || len(d.ProviderPerformance) != len(ProviderSlots) {
		t.Errorf("providers = %d rollups, %d series, %d slots; want 1, 1, %d",
			len(d.Providers), len(d.ProviderSeries), len(d.ProviderPerformance), len(ProviderSlots))
	}
}

func TestDerive_DailyStatsWithoutBreakdown(t *testing.T) {
	snap := scenarioSnapshot()
	snap.ModelBreakdown = nil
	d := Derive(snap, Options{RangeDays: 1, Now: time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)})

	if len(d.Requests) != 1 || d.Requests[0].Requests != 100 {
		t.Errorf("Requests = %+v, want one day with 100", d.Requests)
	}
	if len(d.Tokens) != 1 || len(d.Costs) != 1 || len(d.ErrorRates) != 1 || len(d.Latency) != 1 {
		t.Errorf("day series lengths = %d, %d, %d, %d; want 1 each", len(d.Tokens), len(d.Costs), len(d.ErrorRates), len(d.Latency))
	}
	if len(d.UsagePattern) == 0 {
		t.Error("UsagePattern is empty, want the hourly shape")
	}
	if len(d.ModelPerformance) != 0 || len(d.CostDistribution) != 0 || len(d.Providers) != 0 || len(d.Popularity) != 0 {
		t.Errorf("breakdown series filled without a breakdown: %d, %d, %d, %d",
			len(d.ModelPerformance), len(d.CostDistribution), len(d.Providers), len(d.Popularity))
	}
}

func TestErrorRateSeries_ZeroRequests(t *testing.T) {
	got := ErrorRateSeries([]model.DayPoint{{Label: "Jan 1"}})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if math.IsNaN(got[0].ErrorRate) || got[0].ErrorRate != 0 {
		t.Errorf("ErrorRate = %v, want 0", got[0].ErrorRate)
	}
}

func TestModelPerformanceRanking_LatencyRoundTrip(t *testing.T) {
	snap := &model.AnalyticsSnapshot{
		Summary: model.Summary{ErrorRate: 120},
		ModelBreakdown: map[string]model.ModelAggregate{
			"openai-gpt-4o":    {Requests: 100, AvgLatency: 312.4},
			"anthropic-sonnet": {Requests: 41, AvgLatency: 845.6},
			"groq:llama":       {Requests: 7, AvgLatency: 90},
		},
	}
	ranked := ModelPerformanceRanking(snap, DefaultTopN)
	if len(ranked) != 5 {
		t.Fatalf("len = %d, want 5", len(ranked))
	}

	scale := ranked[0].Value.LatencyScale
	if scale != 3.5 {
		t.Errorf("LatencyScale = %v, want 3.5 (min requests 7 / 2)", scale)
	}
	for _, r := range ranked[:3] {
		m := r.Value
		if math.Round(m.ScaledLatency/scale) != math.Round(m.AvgLatency) {
			t.Errorf("%s: scaled %v / %v != %v", r.Key, m.ScaledLatency, scale, m.AvgLatency)
		}
		if math.Abs(m.TrueLatency()-m.AvgLatency) > 1e-9 {
			t.Errorf("%s: TrueLatency = %v, want %v", r.Key, m.TrueLatency(), m.AvgLatency)
		}
		if m.SuccessRate != 0 || !m.SuccessRateApproximated {
			t.Errorf("%s: SuccessRate = %v approx=%v, want 0 approximated", r.Key, m.SuccessRate, m.SuccessRateApproximated)
		}
	}
	for _, r := range ranked[3:] {
		if !r.Placeholder || r.Value.Requests != 0 || r.Value.TrueLatency() != 0 {
			t.Errorf("slot %d = %+v, want zero placeholder", r.Slot, r)
		}
	}
}

func TestModelPopularity_AllocatesByShare(t *testing.T) {
	snap := &model.AnalyticsSnapshot{
		ModelBreakdown: map[string]model.ModelAggregate{
			"openai-gpt-4o": {Requests: 75},
			"mistral:large": {Requests: 25},
		},
	}
	points := []model.DayPoint{{Label: "Jan 1", Requests: 40}, {Label: "Jan 2", Requests: 10}}

	keys, series := ModelPopularity(points, snap, DefaultTopN)
	if len(keys) != 2 || keys[0].Key != "openai_gpt_4o" || keys[1].Key != "mistral_large" {
		t.Fatalf("keys = %+v, want openai_gpt_4o then mistral_large", keys)
	}
	if len(series) != 2 {
		t.Fatalf("len(series) = %d, want 2", len(series))
	}
	if got := series[0].Values["openai_gpt_4o"]; got != 30 {
		t.Errorf("Jan 1 openai = %d, want 30", got)
	}
	if got := series[1].Values["mistral_large"]; got != 3 {
		t.Errorf("Jan 2 mistral = %d, want 3 (2.5 rounds up)", got)
	}
}

func TestDivergence(t *testing.T) {
	snap := scenarioSnapshot()
	if _, _, diverged := Divergence(snap); diverged {
		t.Error("consistent snapshot reported divergence")
	}
	snap.Summary.TotalRequests = 120
	buckets, summary, diverged := Divergence(snap)
	if !diverged || buckets != 100 || summary != 120 {
		t.Errorf("Divergence = (%d, %d, %v), want (100, 120, true)", buckets, summary, diverged)
	}
}
