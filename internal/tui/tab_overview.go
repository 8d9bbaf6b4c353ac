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

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	d := a.dash
	var b strings.Builder

	// Row 1: Metric cards
	sum := a.snap.Summary
	perDay := ""
	if d.RangeDays > 0 {
		perDay = cli.FormatCost(sum.TotalCost/float64(d.RangeDays)) + "/day"
	}
	cards := []components.Metric{
		{Label: "Requests", Value: cli.FormatNumber(sum.TotalRequests), Note: fmt.Sprintf("%s errors", cli.FormatNumber(sum.ErrorCount))},
		{Label: "Tokens", Value: cli.FormatTokens(sum.TotalTokens), Note: fmt.Sprintf("%s in / %s out", cli.FormatTokens(sum.TokensIn), cli.FormatTokens(sum.TokensOut))},
		{Label: "Cost", Value: cli.FormatCost(sum.TotalCost), Note: perDay},
		{Label: "Avg Latency", Value: cli.FormatLatency(sum.AvgLatency), Note: fmt.Sprintf("%s error rate", cli.FormatPercent(sum.ErrorRate))},
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	if bucketTotal, summaryTotal, diverged := pipeline.Divergence(a.snap); diverged {
		warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Background)
		b.WriteString(warn.Render(fmt.Sprintf(" Daily buckets sum to %s requests; summary reports %s.",
			cli.FormatNumber(bucketTotal), cli.FormatNumber(summaryTotal))))
		b.WriteString("\n")
	}

	// Row 2: Daily requests
	if len(d.Requests) > 0 {
		vals := make([]float64, len(d.Requests))
		labels := make([]string, len(d.Requests))
		for i, p := range d.Requests {
			vals[i] = float64(p.Requests)
			labels[i] = p.Label
		}
		chartH := 10
		if a.isCompactLayout() {
			chartH = 7
		}
		b.WriteString(components.ContentCard(
			fmt.Sprintf("Daily Requests (%dd)", d.RangeDays),
			components.BarChart(vals, labels, t.Blue, components.CardInnerWidth(cw), chartH),
			cw,
		))
		b.WriteString("\n")
	}

	// Row 3: Cost trend + usage pattern
	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Daily Cost", a.costSparkBody(), cw))
		b.WriteString("\n")
		b.WriteString(a.usagePatternCard(cw))
		return b.String()
	}
	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Daily Cost", a.costSparkBody(), halves[0]),
		a.usagePatternCard(halves[1]),
	}))
	return b.String()
}

func (a App) costSparkBody() string {
	t := theme.Active
	d := a.dash
	if len(d.Costs) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No data")
	}
	vals := make([]float64, len(d.Costs))
	peak, peakLabel := 0.0, ""
	for i, c := range d.Costs {
		vals[i] = c.Cost
		if c.Cost > peak {
			peak, peakLabel = c.Cost, c.Label
		}
	}
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)

	var b strings.Builder
	b.WriteString(components.Sparkline(vals, t.Green))
	b.WriteString("\n\n")
	b.WriteString(label.Render("Peak  "))
	if peakLabel == "" {
		b.WriteString(value.Render("none"))
	} else {
		b.WriteString(value.Render(cli.FormatCost(peak)))
		b.WriteString(label.Render(" on " + peakLabel))
	}
	return b.String()
}

// usagePatternCard groups the synthetic hourly shape into 4-hour buckets.
func (a App) usagePatternCard(w int) string {
	t := theme.Active
	hours := a.dash.UsagePattern
	innerW := components.CardInnerWidth(w)

	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	if len(hours) == 0 {
		return components.ContentCard("Usage Pattern", muted.Render("No data"), w)
	}

	type bucket struct {
		label string
		total int64
		color lipgloss.Color
	}
	buckets := []bucket{
		{"Night   00-03", 0, t.Red},
		{"Early   04-07", 0, t.Yellow},
		{"Morning 08-11", 0, t.Green},
		{"Midday  12-15", 0, t.Green},
		{"Evening 16-19", 0, t.Green},
		{"Late    20-23", 0, t.Yellow},
	}
	var peak int64
	for _, h := range hours {
		buckets[min(h.Hour/4, len(buckets)-1)].total += h.Requests
	}
	for _, bk := range buckets {
		peak = max(peak, bk.total)
	}

	numW := 6
	for _, bk := range buckets {
		numW = max(numW, len(cli.FormatNumber(bk.total)))
	}
	barMax := max(innerW-15-numW, 1)

	var body strings.Builder
	for _, bk := range buckets {
		n := 0
		if peak > 0 {
			n = int(float64(bk.total) / float64(peak) * float64(barMax))
		}
		body.WriteString(muted.Render(bk.label + " "))
		body.WriteString(lipgloss.NewStyle().Foreground(bk.color).Background(t.Surface).Render(strings.Repeat("█", n)))
		body.WriteString(lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", barMax-n+1)))
		body.WriteString(lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).
			Render(fmt.Sprintf("%*s", numW, cli.FormatNumber(bk.total))))
		body.WriteString("\n")
	}
	body.WriteString(lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("estimated from daily averages"))

	return components.ContentCard("Usage Pattern", body.String(), w)
}
