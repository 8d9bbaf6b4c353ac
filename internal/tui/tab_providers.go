package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/pipeline"
	"github.com/theirongolddev/gwlens/internal/tui/components"
	"github.com/theirongolddev/gwlens/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderProvidersTab(cw int) string {
	var b strings.Builder
	b.WriteString(a.renderProviderRollups(cw))
	b.WriteString("\n")
	b.WriteString(a.renderProviderSlots(cw))
	return b.String()
}

func (a App) renderProviderRollups(cw int) string {
	t := theme.Active
	rollups := a.dash.Providers
	innerW := components.CardInnerWidth(cw)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	if len(rollups) == 0 {
		return components.ContentCard("Providers", mutedStyle.Render("No model breakdown"), cw)
	}

	scoreW := 16
	nameW := max(innerW-7-9-8-8-scoreW-5, 10)

	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %6s %8s %7s %7s  %-*s",
		nameW, "Provider", "Models", "Requests", "Latency", "~Err%", scoreW, "Score")))
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	body.WriteString("\n")
	for i, r := range rollups {
		body.WriteString(lipgloss.NewStyle().Foreground(t.SeriesColor(i)).Background(t.Surface).
			Render(fmt.Sprintf("%-*s", nameW, cli.Truncate(r.Provider, nameW))))
		body.WriteString(rowStyle.Render(fmt.Sprintf(" %6d %8s %7s %7s  ",
			len(r.Models),
			cli.FormatNumber(r.Requests),
			cli.FormatLatency(r.AvgLatency),
			cli.FormatPercent(r.ErrorRatePercent))))
		body.WriteString(components.ScoreBar(float64(r.PerformanceScore), scoreW))
		body.WriteString("\n")
	}
	body.WriteString(dimStyle.Render("~ errors estimated from the gateway-wide rate; score = 100 - (latency×0.1 + err%×0.5)"))
	return components.ContentCard("Providers", body.String(), cw)
}

// renderProviderSlots tabulates the synthetic time-of-day scores.
func (a App) renderProviderSlots(cw int) string {
	t := theme.Active
	d := a.dash
	innerW := components.CardInnerWidth(cw)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	if len(d.ProviderPerformance) == 0 {
		return components.ContentCard("Performance by Time of Day", dimStyle.Render("No data"), cw)
	}

	slotW := 7
	nameW := max(innerW-len(pipeline.ProviderSlots)*(slotW+1), 10)

	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s", nameW, "Provider")))
	for _, slot := range pipeline.ProviderSlots {
		body.WriteString(headerStyle.Render(fmt.Sprintf(" %*s", slotW, slot)))
	}
	body.WriteString("\n")
	for i, s := range d.ProviderSeries {
		body.WriteString(lipgloss.NewStyle().Foreground(t.SeriesColor(i)).Background(t.Surface).
			Render(fmt.Sprintf("%-*s", nameW, cli.Truncate(s.Name, nameW))))
		for _, p := range d.ProviderPerformance {
			score := p.Scores[s.Key]
			body.WriteString(space.Render(" "))
			body.WriteString(lipgloss.NewStyle().Foreground(components.ColorForScore(score)).Background(t.Surface).
				Render(fmt.Sprintf("%*.0f", slotW, score)))
		}
		body.WriteString("\n")
	}
	note := "time slots are synthetic; every slot repeats the window score"
	if a.newJitter != nil {
		note += " with seeded noise"
	}
	body.WriteString(dimStyle.Render(note))
	return components.ContentCard("Performance by Time of Day", body.String(), cw)
}
