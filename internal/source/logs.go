package source

import (
	"encoding/json"
	"strings"

	"github.com/theirongolddev/gwlens/internal/model"
)

// ConvertLog maps a stored request record to a LogEntry.
//
// Status prefers the recorded HTTP code and falls back to 200/500 from the
// success flag. Provider prefers the recorded provider, then the model
// prefix before ':'. Prompt text that is not a JSON object is wrapped as
// {"text": ...}.
func ConvertLog(l *RawLog) model.LogEntry {
	e := model.LogEntry{
		ID:         l.ID,
		GatewayID:  l.GatewayID,
		ResponseID: l.ResponseID,
		Model:      l.Model,
		Provider:   logProvider(l),
		TokensIn:   int64(l.TokensPrompt),
		TokensOut:  int64(l.TokensCompletion),
		Cost:       l.Cost,
		Endpoint:   l.Endpoint,
		ErrorText:  l.ErrorMessage,
		Status:     l.HTTPStatusCode,
		StatusText: "Error",
	}
	e.Timestamp, _ = parseTime(l.Timestamp)
	if l.Status {
		e.StatusText = "OK"
	}
	if e.Status == 0 {
		e.Status = 500
		if l.Status {
			e.Status = 200
		}
	}
	if l.Latency != nil {
		e.DurationMs = *l.Latency
	}
	if l.PromptText != "" {
		var body map[string]any
		if err := json.Unmarshal([]byte(l.PromptText), &body); err != nil || body == nil {
			body = map[string]any{"text": l.PromptText}
		}
		e.Request = body
	}
	if l.ResponseText != "" {
		e.Response = map[string]any{"content": l.ResponseText}
	}
	return e
}

func logProvider(l *RawLog) string {
	if l.Provider != "" {
		return l.Provider
	}
	if p, _, _ := strings.Cut(l.Model, ":"); p != "" {
		return p
	}
	return "unknown"
}
