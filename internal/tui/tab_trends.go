package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/tui/components"
	"github.com/theirongolddev/gwlens/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderTrendsTab(cw int) string {
	t := theme.Active
	d := a.dash
	var b strings.Builder

	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	if len(d.Tokens) == 0 {
		return components.ContentCard("Trends", muted.Render("No daily data in this window"), cw)
	}

	// Row 1: token volume
	vals := make([]float64, len(d.Tokens))
	labels := make([]string, len(d.Tokens))
	var in, out int64
	for i, p := range d.Tokens {
		vals[i] = float64(p.InputTokens + p.OutputTokens)
		labels[i] = p.Label
		in += p.InputTokens
		out += p.OutputTokens
	}
	tokenTitle := fmt.Sprintf("Daily Tokens  %s in · %s out", cli.FormatTokens(in), cli.FormatTokens(out))
	b.WriteString(components.ContentCard(tokenTitle,
		components.BarChart(vals, labels, t.Cyan, components.CardInnerWidth(cw), 8), cw))
	b.WriteString("\n")

	// Row 2: error rate + latency
	var errBody strings.Builder
	errVals := make([]float64, len(d.ErrorRates))
	successVals := make([]float64, len(d.ErrorRates))
	var worst float64
	worstLabel := "none"
	for i, p := range d.ErrorRates {
		errVals[i] = p.ErrorRate
		successVals[i] = p.SuccessRate
		if p.ErrorRate > worst {
			worst, worstLabel = p.ErrorRate, p.Label
		}
	}
	errBody.WriteString(muted.Render("Errors   "))
	errBody.WriteString(components.Sparkline(errVals, t.Red))
	errBody.WriteString("\n")
	errBody.WriteString(muted.Render("Success  "))
	errBody.WriteString(components.Sparkline(successVals, t.Green))
	errBody.WriteString("\n\n")
	errBody.WriteString(muted.Render("Worst day  "))
	errBody.WriteString(value.Render(worstLabel))
	if worst > 0 {
		errBody.WriteString(space.Render(" "))
		errBody.WriteString(lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Render(cli.FormatPercent(worst)))
	}

	var latBody strings.Builder
	if len(d.Latency) > 0 {
		l := d.Latency[0]
		rows := []struct{ label, v string }{
			{"Average", cli.FormatLatency(l.AvgLatency)},
			{"P50", "~" + cli.FormatLatency(l.P50Latency)},
			{"P95", "~" + cli.FormatLatency(l.P95Latency)},
		}
		for _, r := range rows {
			latBody.WriteString(muted.Render(fmt.Sprintf("%-9s", r.label)))
			latBody.WriteString(value.Render(r.v))
			latBody.WriteString("\n")
		}
		latBody.WriteString("\n")
		latBody.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).
			Render("window average; percentiles extrapolated"))
	}

	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Error Rate", errBody.String(), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Latency", latBody.String(), cw))
	} else {
		halves := components.LayoutRow(cw, 2)
		b.WriteString(components.CardRow([]string{
			components.ContentCard("Error Rate", errBody.String(), halves[0]),
			components.ContentCard("Latency", latBody.String(), halves[1]),
		}))
	}
	b.WriteString("\n")

	// Row 3: model popularity
	b.WriteString(a.popularityCard(cw))
	return b.String()
}

// popularityCard draws one sparkline per top model, colored like its series.
func (a App) popularityCard(cw int) string {
	t := theme.Active
	d := a.dash
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	if len(d.PopularityModels) == 0 {
		return components.ContentCard("Model Popularity", muted.Render("No model breakdown"), cw)
	}

	innerW := components.CardInnerWidth(cw)
	nameW := min(max(innerW/4, 12), 32)

	var body strings.Builder
	for i, m := range d.PopularityModels {
		vals := make([]float64, len(d.Popularity))
		var total int64
		for j, p := range d.Popularity {
			vals[j] = float64(p.Values[m.Key])
			total += p.Values[m.Key]
		}
		if room := innerW - nameW - 12; room > 0 && len(vals) > room {
			vals = vals[len(vals)-room:]
		}
		color := t.SeriesColor(i)
		body.WriteString(lipgloss.NewStyle().Foreground(color).Background(t.Surface).
			Render(fmt.Sprintf("%-*s ", nameW, cli.Truncate(m.Name, nameW))))
		body.WriteString(components.Sparkline(vals, color))
		body.WriteString(muted.Render(fmt.Sprintf(" %8s", cli.FormatNumber(total))))
		body.WriteString("\n")
	}
	body.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).
		Render("daily split estimated from each model's share of the window"))
	return components.ContentCard("Model Popularity", body.String(), cw)
}
