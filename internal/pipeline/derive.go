package pipeline

import (
	"time"

	"github.com/samber/lo"

	"github.com/theirongolddev/gwlens/internal/model"
)

const (
	p50Factor = 0.8
	p95Factor = 2.2
)

// Options controls Derive. Zero values pick the defaults.
type Options struct {
	RangeDays int       // window to normalize to; 0 uses the snapshot's RangeDays
	Now       time.Time // reference for the window cutoff; zero uses time.Now
	TopN      int       // ranking width; 0 uses DefaultTopN
	Jitter    Jitter    // provider-performance noise; nil disables it
}

// Derive computes every series for snap. A nil snapshot yields a Dashboard
// whose series are all empty.
func Derive(snap *model.AnalyticsSnapshot, opts Options) model.Dashboard {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Jitter == nil {
		opts.Jitter = NoJitter{}
	}

	var days []model.DayBucket
	if snap != nil {
		days = snap.DailyStats
		if opts.RangeDays <= 0 {
			opts.RangeDays = snap.RangeDays
		}
	}
	points := Normalize(days, opts.RangeDays, opts.Now)
	providers := ProviderRollups(snap)
	popularityModels, popularity := ModelPopularity(points, snap, opts.TopN)

	d := model.Dashboard{
		RangeDays:   opts.RangeDays,
		GeneratedAt: opts.Now,

		Requests:   RequestSeries(points),
		Tokens:     TokenSeries(points),
		Costs:      CostSeries(points),
		ErrorRates: ErrorRateSeries(points),
		Latency:    LatencySeries(points, summaryOf(snap)),

		ModelPerformance: ModelPerformanceRanking(snap, opts.TopN),
		CostDistribution: CostDistribution(snap, opts.TopN),

		Providers:           providers,
		ProviderSeries:      ProviderSeries(providers, opts.TopN),
		ProviderPerformance: ProviderPerformance(providers, opts.Jitter),

		UsagePattern: UsagePattern(points),

		PopularityModels: popularityModels,
		Popularity:       popularity,
	}
	if snap != nil {
		d.GatewayID = snap.GatewayID
	}
	return d
}

func summaryOf(snap *model.AnalyticsSnapshot) model.Summary {
	if snap == nil {
		return model.Summary{}
	}
	return snap.Summary
}

// RequestSeries returns request and error counts per day.
func RequestSeries(points []model.DayPoint) []model.RequestPoint {
	return lo.Map(points, func(p model.DayPoint, _ int) model.RequestPoint {
		return model.RequestPoint{Label: p.Label, Requests: p.Requests, Errors: p.Errors}
	})
}

// TokenSeries returns the input/output token split per day.
func TokenSeries(points []model.DayPoint) []model.TokenPoint {
	return lo.Map(points, func(p model.DayPoint, _ int) model.TokenPoint {
		return model.TokenPoint{Label: p.Label, InputTokens: p.TokensIn, OutputTokens: p.TokensOut}
	})
}

// CostSeries returns spend per day.
func CostSeries(points []model.DayPoint) []model.CostPoint {
	return lo.Map(points, func(p model.DayPoint, _ int) model.CostPoint {
		return model.CostPoint{Label: p.Label, Cost: p.Cost}
	})
}

// ErrorRateSeries returns error and success percentages per day. Days with
// no requests report a 0% error rate; a missing success rate reads as 100%.
func ErrorRateSeries(points []model.DayPoint) []model.ErrorRatePoint {
	return lo.Map(points, func(p model.DayPoint, _ int) model.ErrorRatePoint {
		var errorRate float64
		if p.Requests > 0 {
			errorRate = float64(p.Errors) / float64(p.Requests) * 100
		}
		successRate := 100.0
		if p.SuccessRate != nil {
			successRate = *p.SuccessRate
		}
		return model.ErrorRatePoint{Label: p.Label, ErrorRate: errorRate, SuccessRate: successRate}
	})
}

// LatencySeries repeats the window average latency for every day.
//
// The snapshot has no daily latency, so every point is an estimate and P50/P95
// are fixed multiples of the average rather than measured percentiles.
func LatencySeries(points []model.DayPoint, summary model.Summary) []model.LatencyPoint {
	avg := summary.AvgLatency
	p50 := float64(roundInt(avg * p50Factor))
	p95 := float64(roundInt(avg * p95Factor))
	return lo.Map(points, func(p model.DayPoint, _ int) model.LatencyPoint {
		return model.LatencyPoint{
			Label:      p.Label,
			AvgLatency: avg,
			P50Latency: p50,
			P95Latency: p95,
			Estimated:  true,
		}
	})
}

// ModelPerformanceRanking returns the top n models by requests, padded to n.
//
// Latency is multiplied by half the smallest request count among the selected
// models so both metrics share one radial scale; ModelPerformance.TrueLatency
// divides it back out. Success rate is the gateway-wide rate for every model.
func ModelPerformanceRanking(snap *model.AnalyticsSnapshot, n int) []model.Ranked[model.ModelPerformance] {
	if !snap.HasBreakdown() {
		return []model.Ranked[model.ModelPerformance]{}
	}
	top := TopNEntries(snap.ModelBreakdown, n, ByRequests)

	minRequests := top[0].Value.Requests
	for _, r := range top[1:] {
		minRequests = min(minRequests, r.Value.Requests)
	}
	latencyScale := max(0, float64(minRequests)/2)
	successRate := max(0, 100-snap.Summary.ErrorRate)

	ranked := make([]model.Ranked[model.ModelPerformance], 0, n)
	for _, r := range top {
		ranked = append(ranked, model.Ranked[model.ModelPerformance]{
			Key:  r.Key,
			Slot: r.Slot,
			Value: model.ModelPerformance{
				Model:                   r.Key,
				Requests:                r.Value.Requests,
				AvgLatency:              r.Value.AvgLatency,
				ScaledLatency:           r.Value.AvgLatency * latencyScale,
				LatencyScale:            latencyScale,
				SuccessRate:             successRate,
				SuccessRateApproximated: true,
			},
		})
	}
	return Pad(ranked, n)
}

// CostDistribution returns the top n models by cost, padded to n.
func CostDistribution(snap *model.AnalyticsSnapshot, n int) []model.Ranked[model.CostSlice] {
	if !snap.HasBreakdown() {
		return []model.Ranked[model.CostSlice]{}
	}
	top := TopNEntries(snap.ModelBreakdown, n, ByCost)
	slices := lo.Map(top, func(r model.Ranked[model.ModelAggregate], _ int) model.Ranked[model.CostSlice] {
		return model.Ranked[model.CostSlice]{
			Key:   r.Key,
			Slot:  r.Slot,
			Value: model.CostSlice{Label: r.Key, Value: r.Value.Cost},
		}
	})
	return Pad(slices, n)
}

// ModelPopularity estimates each top model's requests per day by splitting
// the day's total according to the model's share of the whole window.
// The returned keys list the models in rank order.
func ModelPopularity(points []model.DayPoint, snap *model.AnalyticsSnapshot, n int) ([]model.SeriesKey, []model.PopularityPoint) {
	if len(points) == 0 || !snap.HasBreakdown() {
		return []model.SeriesKey{}, []model.PopularityPoint{}
	}

	total := float64(snap.BreakdownRequests())
	top := TopNEntries(snap.ModelBreakdown, n, ByRequests)
	keys := seriesKeys(lo.Map(top, func(r model.Ranked[model.ModelAggregate], _ int) string { return r.Key }))
	shares := lo.Map(top, func(r model.Ranked[model.ModelAggregate], _ int) float64 {
		return Share(float64(r.Value.Requests), total)
	})

	out := make([]model.PopularityPoint, 0, len(points))
	for _, p := range points {
		values := make(map[string]int64, len(keys))
		for i, k := range keys {
			values[k.Key] = AllocateDaily(p.Requests, shares[i])
		}
		out = append(out, model.PopularityPoint{Label: p.Label, Values: values})
	}
	return keys, out
}

// Divergence compares the summary total with the sum of day buckets. The two
// are sourced independently and are not reconciled anywhere; callers may
// surface the difference but should not treat it as an error.
func Divergence(snap *model.AnalyticsSnapshot) (bucketTotal, summaryTotal int64, diverged bool) {
	if snap == nil {
		return 0, 0, false
	}
	bucketTotal = lo.SumBy(snap.DailyStats, func(d model.DayBucket) int64 { return d.Requests })
	summaryTotal = snap.Summary.TotalRequests
	return bucketTotal, summaryTotal, snap.HasDailyStats() && bucketTotal != summaryTotal
}
