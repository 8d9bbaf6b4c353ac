package components

import (
	"fmt"

	"github.com/theirongolddev/gwlens/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ColorForScore maps a 0-100 health score to green/yellow/orange/red.
func ColorForScore(score float64) lipgloss.Color {
	t := theme.Active
	switch {
	case score >= 90:
		return t.Green
	case score >= 70:
		return t.Yellow
	case score >= 50:
		return t.Orange
	default:
		return t.Red
	}
}

// ShareBar renders a labelled bar for a fraction of a whole, followed by
// valueText. frac is clamped to [0, 1].
func ShareBar(label string, frac float64, labelW, barWidth int, color lipgloss.Color, valueText string) string {
	t := theme.Active
	frac = min(max(frac, 0), 1)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(max(barWidth, 4)),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, truncate(label, labelW))) +
		spaceStyle.Render(" ") +
		bar.ViewAs(frac) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%5.1f%%", frac*100)) +
		spaceStyle.Render("  ") +
		valueStyle.Render(valueText)
}

// ScoreBar renders a compact bar for a 0-100 score, colored by health.
func ScoreBar(score float64, width int) string {
	t := theme.Active
	score = min(max(score, 0), 100)
	color := ColorForScore(score)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(max(width-5, 4)),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	return bar.ViewAs(score/100) + pctStyle.Render(fmt.Sprintf("%4.0f", score))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
