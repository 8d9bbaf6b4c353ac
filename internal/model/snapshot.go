// Package model defines domain types for gateway analytics snapshots and the
// chart-ready series derived from them.
package model

import "time"

// AnalyticsSnapshot is one gateway's aggregate analytics over a time window.
// Summary and DailyStats are produced independently upstream and may not agree.
type AnalyticsSnapshot struct {
	GatewayID      string                    `json:"gateway_id"`
	RangeDays      int                       `json:"range_days"`
	RangeStart     time.Time                 `json:"range_start"`
	RangeEnd       time.Time                 `json:"range_end"`
	Summary        Summary                   `json:"summary"`
	ModelBreakdown map[string]ModelAggregate `json:"model_breakdown"`
	DailyStats     []DayBucket               `json:"daily_stats"`
	Logs           []LogEntry                `json:"logs,omitempty"`
	FetchedAt      time.Time                 `json:"fetched_at"`
}

// Summary holds the window-level totals.
type Summary struct {
	TotalRequests int64   `json:"total_requests"`
	TokensIn      int64   `json:"tokens_in"`
	TokensOut     int64   `json:"tokens_out"`
	TotalTokens   int64   `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
	AvgLatency    float64 `json:"avg_latency"`
	MinLatency    float64 `json:"min_latency"`
	MaxLatency    float64 `json:"max_latency"`
	ErrorCount    int64   `json:"error_count"`
	ErrorRate     float64 `json:"error_rate"`   // percent
	SuccessRate   float64 `json:"success_rate"` // percent
	LogCount      int     `json:"log_count"`
}

// ModelAggregate holds per-model totals for the whole window. It is not time-bucketed.
type ModelAggregate struct {
	Requests    int64   `json:"requests"`
	TokensIn    int64   `json:"tokens_in"`
	TokensOut   int64   `json:"tokens_out"`
	TotalTokens int64   `json:"total_tokens"`
	Cost        float64 `json:"cost"`
	AvgLatency  float64 `json:"avg_latency"`
}

// DayBucket is one day's counters. SuccessRate is nil when the source omitted it.
type DayBucket struct {
	Date        time.Time `json:"date"`
	Requests    int64     `json:"requests"`
	TokensIn    int64     `json:"tokens_in"`
	TokensOut   int64     `json:"tokens_out"`
	Cost        float64   `json:"cost"`
	Errors      int64     `json:"errors"`
	SuccessRate *float64  `json:"success_rate,omitempty"`
}

// HasBreakdown reports whether the snapshot carries any per-model data.
func (s *AnalyticsSnapshot) HasBreakdown() bool {
	return s != nil && len(s.ModelBreakdown) > 0
}

// HasDailyStats reports whether the snapshot carries any day buckets.
func (s *AnalyticsSnapshot) HasDailyStats() bool {
	return s != nil && len(s.DailyStats) > 0
}

// BreakdownRequests sums requests across the model breakdown.
func (s *AnalyticsSnapshot) BreakdownRequests() int64 {
	if s == nil {
		return 0
	}
	var total int64
	for _, m := range s.ModelBreakdown {
		total += m.Requests
	}
	return total
}

// Gateway is a routing endpoint owned by the current user.
type Gateway struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
