package model

import "time"

// LogEntry is a single proxied request, returned only when logs are requested.
type LogEntry struct {
	ID         string         `json:"id"`
	GatewayID  string         `json:"gateway_id"`
	ResponseID string         `json:"response_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Status     int            `json:"status"`
	StatusText string         `json:"status_text"`
	Model      string         `json:"model"`
	Provider   string         `json:"provider"`
	DurationMs float64        `json:"duration_ms"`
	TokensIn   int64          `json:"tokens_in"`
	TokensOut  int64          `json:"tokens_out"`
	Cost       float64        `json:"cost"`
	Endpoint   string         `json:"endpoint,omitempty"`
	ErrorText  string         `json:"error,omitempty"`
	Request    map[string]any `json:"request,omitempty"`
	Response   map[string]any `json:"response,omitempty"`
}

// OK reports whether the request completed with a 2xx status.
func (e LogEntry) OK() bool {
	return e.Status >= 200 && e.Status < 300
}
