package cli

import (
	"strings"
	"testing"
	"time"
)

func TestFormatCost(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{0.0042, "$0.0042"},
		{1.5, "$1.50"},
		{12.34, "$12.3"},
		{123.4, "$123"},
		{12345.6, "$12,346"},
	}
	for _, tt := range tests {
		if got := FormatCost(tt.in); got != tt.want {
			t.Errorf("FormatCost(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatLatency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "-"},
		{0.4, "<1ms"},
		{320.6, "321ms"},
		{2450, "2.45s"},
	}
	for _, tt := range tests {
		if got := FormatLatency(tt.in); got != tt.want {
			t.Errorf("FormatLatency(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatTokensAndNumber(t *testing.T) {
	if got := FormatTokens(1234567); got != "1.2M" {
		t.Errorf("FormatTokens = %q, want 1.2M", got)
	}
	if got := FormatNumber(-1234567); got != "-1,234,567" {
		t.Errorf("FormatNumber = %q, want -1,234,567", got)
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	if got := FormatAge(now.Add(-90*time.Second), now); got != "1m ago" {
		t.Errorf("FormatAge = %q, want 1m ago", got)
	}
	if got := FormatAge(time.Time{}, now); got != "never" {
		t.Errorf("FormatAge(zero) = %q, want never", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("anthropic-claude-sonnet", 10); got != "anthropic…" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Model", "Requests"},
		Rows:    [][]string{{"openai-gpt-4o", "100"}, {"---"}, {"Total", "100"}},
	})
	if !strings.Contains(out, "openai-gpt-4o") || !strings.Contains(out, "Requests") {
		t.Errorf("table missing content:\n%s", out)
	}
	if got := strings.Count(out, "\n"); got != 7 {
		t.Errorf("lines = %d, want 7:\n%s", got, out)
	}
}

func TestRenderLineChart(t *testing.T) {
	if out := RenderLineChart(nil, 40, 5, "x"); !strings.Contains(out, "No data") {
		t.Errorf("empty chart = %q", out)
	}
	out := RenderLineChart([][]float64{{3}}, 40, 5, "requests")
	if !strings.Contains(out, "requests") {
		t.Errorf("chart missing caption:\n%s", out)
	}
}
