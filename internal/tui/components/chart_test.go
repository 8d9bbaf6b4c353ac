package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/theirongolddev/gwlens/internal/tui/theme"
)

func TestSparklineLength(t *testing.T) {
	got := Sparkline([]float64{0, 1, 2, 3, 4}, theme.Active.Accent)
	if w := lipgloss.Width(got); w != 5 {
		t.Errorf("Sparkline width = %d, want 5", w)
	}
	if Sparkline(nil, theme.Active.Accent) != "" {
		t.Error("Sparkline(nil) should be empty")
	}
}

func TestBarChartFitsWidth(t *testing.T) {
	values := make([]float64, 30)
	labels := make([]string, 30)
	for i := range values {
		values[i] = float64(i * 10)
		labels[i] = "Jan 1"
	}
	for _, width := range []int{40, 80, 120} {
		chart := BarChart(values, labels, theme.Active.Blue, width, 8)
		for i, line := range strings.Split(chart, "\n") {
			if w := lipgloss.Width(line); w > width {
				t.Errorf("width %d: line %d is %d wide", width, i, w)
			}
		}
	}
}

func TestChartTickStep(t *testing.T) {
	tests := []struct {
		max  float64
		want float64
	}{
		{0, 1},
		{10, 2},
		{100, 20},
		{1000, 200},
		{30, 5},
	}
	for _, tt := range tests {
		if got := chartTickStep(tt.max); got != tt.want {
			t.Errorf("chartTickStep(%v) = %v, want %v", tt.max, got, tt.want)
		}
	}
}

func TestFormatChartLabel(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0.5, "0.50"},
		{20, "20"},
		{2000, "2k"},
		{2500, "2.5k"},
		{3e6, "3M"},
	}
	for _, tt := range tests {
		if got := formatChartLabel(tt.v); got != tt.want {
			t.Errorf("formatChartLabel(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	for i, tab := range Tabs {
		if got := TabIdxByKey(tab.Key); got != i {
			t.Errorf("TabIdxByKey(%q) = %d, want %d", tab.Key, got, i)
		}
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Errorf("TabIdxByKey(z) = %d, want -1", got)
	}
}

func TestRenderTabBarWidth(t *testing.T) {
	bar := RenderTabBar(0, 100)
	if w := lipgloss.Width(bar); w != 100 {
		t.Errorf("tab bar width = %d, want 100", w)
	}
}

func TestStatusBarFitsWidth(t *testing.T) {
	info := StatusInfo{Phase: "failed", DataAge: "2m ago", Discarded: 3, Err: "gateway: unauthorized"}
	for _, width := range []int{80, 120} {
		if w := lipgloss.Width(RenderStatusBar(width, info)); w != width {
			t.Errorf("RenderStatusBar(%d) width = %d", width, w)
		}
	}
}

func TestColorForScore(t *testing.T) {
	th := theme.Active
	tests := []struct {
		score float64
		want  lipgloss.Color
	}{
		{95, th.Green},
		{75, th.Yellow},
		{55, th.Orange},
		{10, th.Red},
	}
	for _, tt := range tests {
		if got := ColorForScore(tt.score); got != tt.want {
			t.Errorf("ColorForScore(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}
