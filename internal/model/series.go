package model

import (
	"fmt"
	"time"
)

// DayPoint is a normalized day bucket with a display label.
type DayPoint struct {
	Date        time.Time `json:"date"`
	Label       string    `json:"label"`
	Requests    int64     `json:"requests"`
	TokensIn    int64     `json:"tokensIn"`
	TokensOut   int64     `json:"tokensOut"`
	Cost        float64   `json:"cost"`
	Errors      int64     `json:"errors"`
	SuccessRate *float64  `json:"successRate,omitempty"`
}

// RequestPoint is one point of the request/error volume series.
type RequestPoint struct {
	Label    string `json:"label"`
	Requests int64  `json:"requests"`
	Errors   int64  `json:"errors"`
}

// TokenPoint splits a day's tokens into input and output.
type TokenPoint struct {
	Label        string `json:"label"`
	InputTokens  int64  `json:"inputTokens"`
	OutputTokens int64  `json:"outputTokens"`
}

// CostPoint is one day's spend.
type CostPoint struct {
	Label string  `json:"label"`
	Cost  float64 `json:"cost"`
}

// ErrorRatePoint holds a day's error and success percentages.
type ErrorRatePoint struct {
	Label       string  `json:"label"`
	ErrorRate   float64 `json:"errorRate"`
	SuccessRate float64 `json:"successRate"`
}

// LatencyPoint repeats the window average for every day. P50 and P95 are
// extrapolated from the average, not measured percentiles.
type LatencyPoint struct {
	Label      string  `json:"label"`
	AvgLatency float64 `json:"avgLatency"`
	P50Latency float64 `json:"p50Latency"`
	P95Latency float64 `json:"p95Latency"`
	Estimated  bool    `json:"estimated"`
}

// Ranked is one slot of a fixed-width top-N ranking. Slots beyond the number
// of real entities are placeholders with a zero Value; renderers choose how
// to label them.
type Ranked[T any] struct {
	Key         string `json:"key,omitempty"`
	Value       T      `json:"value"`
	Placeholder bool   `json:"placeholder,omitempty"`
	Slot        int    `json:"slot"`             // 1-based position in the ranking
	Filler      int    `json:"filler,omitempty"` // 1-based index among placeholders
}

// DisplayName returns Key for real entities, or placeholderFmt formatted
// with the filler index for placeholders (e.g. "Empty %d").
func (r Ranked[T]) DisplayName(placeholderFmt string) string {
	if !r.Placeholder {
		return r.Key
	}
	return fmt.Sprintf(placeholderFmt, r.Filler)
}

// ModelPerformance is a model's entry in the performance radar.
//
// ScaledLatency is AvgLatency multiplied by LatencyScale so it sits on the same
// axis as request counts. SuccessRate reuses the gateway-wide error rate for
// every model because the snapshot has no per-model error counts.
type ModelPerformance struct {
	Model                   string  `json:"model"`
	Requests                int64   `json:"requests"`
	AvgLatency              float64 `json:"avgLatencyMs"`
	ScaledLatency           float64 `json:"avgLatency"`
	LatencyScale            float64 `json:"latencyScale"`
	SuccessRate             float64 `json:"successRate"`
	SuccessRateApproximated bool    `json:"successRateApproximated"`
}

// TrueLatency recovers milliseconds from ScaledLatency.
func (m ModelPerformance) TrueLatency() float64 {
	if m.LatencyScale <= 0 {
		return m.AvgLatency
	}
	return m.ScaledLatency / m.LatencyScale
}

// CostSlice is one wedge of the cost distribution.
type CostSlice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ProviderRollup aggregates models that share a provider prefix.
// ErrorCount is estimated from the gateway-wide error rate.
type ProviderRollup struct {
	Provider         string   `json:"provider"`
	Key              string   `json:"key"`
	Models           []string `json:"models"`
	Requests         int64    `json:"requests"`
	LatencySum       float64  `json:"latencySum"`
	ErrorCount       int64    `json:"errorCount"`
	AvgLatency       float64  `json:"avgLatency"`
	ErrorRatePercent float64  `json:"errorRate"`
	PerformanceScore int      `json:"performanceScore"`
}

// HourlyPoint is one hour of the synthetic diurnal usage shape.
type HourlyPoint struct {
	Hour      int    `json:"-"`
	Label     string `json:"hour"`
	Requests  int64  `json:"requests"`
	Synthetic bool   `json:"synthetic"`
}

// SeriesKey names one line of a multi-series chart.
type SeriesKey struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// PopularityPoint holds estimated per-model requests for one day, keyed by
// SeriesKey.Key.
type PopularityPoint struct {
	Label  string           `json:"label"`
	Values map[string]int64 `json:"values"`
}

// ProviderPerformancePoint holds jittered provider scores for one time slot,
// keyed by ProviderRollup.Key.
type ProviderPerformancePoint struct {
	Time   string             `json:"time"`
	Scores map[string]float64 `json:"scores"`
}

// Dashboard bundles every derived series for one snapshot.
type Dashboard struct {
	GatewayID   string    `json:"gatewayId"`
	RangeDays   int       `json:"rangeDays"`
	GeneratedAt time.Time `json:"generatedAt"`

	Requests   []RequestPoint   `json:"requests"`
	Tokens     []TokenPoint     `json:"tokens"`
	Costs      []CostPoint      `json:"costs"`
	ErrorRates []ErrorRatePoint `json:"errorRates"`
	Latency    []LatencyPoint   `json:"latency"`

	ModelPerformance []Ranked[ModelPerformance] `json:"modelPerformance"`
	CostDistribution []Ranked[CostSlice]        `json:"costDistribution"`

	Providers           []ProviderRollup           `json:"providers"`
	ProviderSeries      []SeriesKey                `json:"providerSeries"`
	ProviderPerformance []ProviderPerformancePoint `json:"providerPerformance"`

	UsagePattern []HourlyPoint `json:"usagePattern"`

	PopularityModels []SeriesKey       `json:"popularityModels"`
	Popularity       []PopularityPoint `json:"popularity"`
}
