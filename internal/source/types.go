package source

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// RawSnapshot is the analytics endpoint payload as sent on the wire.
// Every section may be null or missing.
type RawSnapshot struct {
	Error          string                   `json:"error,omitempty"`
	GatewayID      string                   `json:"gateway_id"`
	DateRange      *RawDateRange            `json:"date_range,omitempty"`
	Summary        *RawSummary              `json:"summary,omitempty"`
	ModelBreakdown map[string]*RawModelStat `json:"model_breakdown"`
	DailyStats     []*RawDayStat            `json:"daily_stats"`
	Logs           []*RawLog                `json:"logs"`
}

// RawDateRange is the window the backend queried.
type RawDateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      Count  `json:"days"`
}

// RawSummary holds window totals. Latency fields are absent when the window
// has no requests.
type RawSummary struct {
	TotalRequests Count    `json:"total_requests"`
	TokensIn      Count    `json:"tokens_in"`
	TokensOut     Count    `json:"tokens_out"`
	TotalTokens   Count    `json:"total_tokens"`
	TotalCost     float64  `json:"total_cost"`
	AvgLatency    float64  `json:"avg_latency"`
	MinLatency    float64  `json:"min_latency"`
	MaxLatency    float64  `json:"max_latency"`
	ErrorCount    Count    `json:"error_count"`
	ErrorRate     float64  `json:"error_rate"`
	SuccessRate   *float64 `json:"success_rate,omitempty"`
	LogCount      Count    `json:"log_count"`
}

// RawModelStat is one entry of model_breakdown.
type RawModelStat struct {
	Requests    Count   `json:"requests"`
	TokensIn    Count   `json:"tokens_in"`
	TokensOut   Count   `json:"tokens_out"`
	TotalTokens Count   `json:"total_tokens"`
	Cost        float64 `json:"cost"`
	AvgLatency  float64 `json:"avg_latency"`
}

// RawDayStat is one entry of daily_stats. Date is "YYYY-MM-DD".
type RawDayStat struct {
	Date        string   `json:"date"`
	Requests    Count    `json:"requests"`
	TokensIn    Count    `json:"tokens_in"`
	TokensOut   Count    `json:"tokens_out"`
	Cost        float64  `json:"cost"`
	Errors      Count    `json:"errors"`
	SuccessRate *float64 `json:"success_rate,omitempty"`
}

// RawLog is a stored request record, present only when logs were requested.
type RawLog struct {
	ID               string   `json:"id"`
	ResponseID       string   `json:"response_id"`
	Timestamp        string   `json:"timestamp"`
	GatewayID        string   `json:"gateway_id"`
	Model            string   `json:"model"`
	Provider         string   `json:"provider"`
	TokensPrompt     Count    `json:"tokens_prompt"`
	TokensCompletion Count    `json:"tokens_completion"`
	TokensTotal      Count    `json:"tokens_total"`
	RequestType      string   `json:"request_type"`
	Status           bool     `json:"status"`
	Cost             float64  `json:"cost"`
	Latency          *float64 `json:"latency"`
	ErrorMessage     string   `json:"error_message"`
	PromptText       string   `json:"prompt_text"`
	ResponseText     string   `json:"response_text"`
	HTTPStatusCode   int      `json:"http_status_code"`
	Endpoint         string   `json:"endpoint"`
}

// RawGatewayList is the body of GET /gateway/list.
type RawGatewayList struct {
	Gateways []RawGateway `json:"gateways"`
}

// RawGateway is one gateway owned by the caller.
type RawGateway struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Count is an integer counter that also accepts floats, numeric strings and
// null. SQL aggregates sometimes come back as 12.0 or "12".
type Count int64

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
		if len(b) == 0 {
			*c = 0
			return nil
		}
	}
	if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*c = Count(n)
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*c = Count(int64(f))
	return nil
}
