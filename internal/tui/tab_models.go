package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/pipeline"
	"github.com/theirongolddev/gwlens/internal/tui/components"
	"github.com/theirongolddev/gwlens/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

const placeholderName = "Empty %d"

func (a App) renderModelsTab(cw int) string {
	var b strings.Builder
	b.WriteString(a.renderModelUsage(cw))
	b.WriteString("\n")

	if a.isCompactLayout() {
		b.WriteString(a.renderModelPerformance(cw))
		b.WriteString("\n")
		b.WriteString(a.renderCostDistribution(cw))
		return b.String()
	}
	halves := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		a.renderModelPerformance(halves[0]),
		a.renderCostDistribution(halves[1]),
	}))
	return b.String()
}

// renderModelUsage lists every model in the breakdown, busiest first.
func (a App) renderModelUsage(cw int) string {
	t := theme.Active
	innerW := components.CardInnerWidth(cw)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	costStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	shareStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface)

	if !a.snap.HasBreakdown() {
		return components.ContentCard("Model Usage", mutedStyle.Render("No model breakdown"), cw)
	}

	ranked := pipeline.TopNEntries(a.snap.ModelBreakdown, len(a.snap.ModelBreakdown), pipeline.ByRequests)
	total := float64(a.snap.BreakdownRequests())

	compact := a.isCompactLayout()
	fixed := 9 + 10 + 8 + 7 // Requests, Cost, Latency, Share
	if !compact {
		fixed += 10 + 10 // Input, Output
	}
	nameW := max(innerW-fixed, 12)

	var body strings.Builder
	if compact {
		body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %8s %9s %7s %6s", nameW, "Model", "Requests", "Cost", "Latency", "Share")))
	} else {
		body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %8s %9s %9s %9s %7s %6s", nameW, "Model", "Requests", "Input", "Output", "Cost", "Latency", "Share")))
	}
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render(strings.Repeat("─", innerW)))
	body.WriteString("\n")

	for i, r := range ranked {
		m := r.Value
		name := lipgloss.NewStyle().Foreground(t.SeriesColor(i)).Background(t.Surface).
			Render(fmt.Sprintf("%-*s", nameW, cli.Truncate(r.Key, nameW)))
		body.WriteString(name)
		body.WriteString(rowStyle.Render(fmt.Sprintf(" %8s", cli.FormatNumber(m.Requests))))
		if !compact {
			body.WriteString(rowStyle.Render(fmt.Sprintf(" %9s %9s", cli.FormatTokens(m.TokensIn), cli.FormatTokens(m.TokensOut))))
		}
		body.WriteString(costStyle.Render(fmt.Sprintf(" %9s", cli.FormatCost(m.Cost))))
		body.WriteString(rowStyle.Render(fmt.Sprintf(" %7s", cli.FormatLatency(m.AvgLatency))))
		body.WriteString(shareStyle.Render(fmt.Sprintf(" %5.1f%%", pipeline.Share(float64(m.Requests), total)*100)))
		body.WriteString("\n")
	}
	return components.ContentCard(fmt.Sprintf("Model Usage (%d models)", len(ranked)), body.String(), cw)
}

// renderModelPerformance shows the fixed-width top-N ranking, placeholders
// included, with latency converted back to milliseconds.
func (a App) renderModelPerformance(w int) string {
	t := theme.Active
	perf := a.dash.ModelPerformance
	innerW := components.CardInnerWidth(w)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	if len(perf) == 0 {
		return components.ContentCard("Top Models", dimStyle.Render("No model breakdown"), w)
	}

	nameW := max(innerW-3-9-8-8, 10)
	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf("%2s %-*s %8s %7s %7s", "#", nameW, "Model", "Requests", "Latency", "Success")))
	body.WriteString("\n")
	for _, r := range perf {
		style := rowStyle
		if r.Placeholder {
			style = dimStyle
		}
		p := r.Value
		body.WriteString(style.Render(fmt.Sprintf("%2d %-*s %8s %7s %7s",
			r.Slot,
			nameW, cli.Truncate(r.DisplayName(placeholderName), nameW),
			cli.FormatNumber(p.Requests),
			cli.FormatLatency(p.TrueLatency()),
			"~"+cli.FormatPercent(p.SuccessRate),
		)))
		body.WriteString("\n")
	}
	body.WriteString(dimStyle.Render("~ success rate is gateway-wide"))
	return components.ContentCard("Top Models", body.String(), w)
}

// renderCostDistribution draws each top model's share of spend.
func (a App) renderCostDistribution(w int) string {
	t := theme.Active
	slices := a.dash.CostDistribution
	innerW := components.CardInnerWidth(w)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	shown := make([]int, 0, len(slices))
	var total float64
	for i, s := range slices {
		if !s.Placeholder {
			shown = append(shown, i)
			total += s.Value.Value
		}
	}
	if len(shown) == 0 {
		return components.ContentCard("Cost Distribution", dimStyle.Render("No model breakdown"), w)
	}
	sort.SliceStable(shown, func(i, j int) bool {
		return slices[shown[i]].Value.Value > slices[shown[j]].Value.Value
	})

	labelW := min(max(innerW/3, 10), 28)
	barW := max(innerW-labelW-20, 4)

	var body strings.Builder
	for n, i := range shown {
		s := slices[i]
		body.WriteString(components.ShareBar(s.Key, pipeline.Share(s.Value.Value, total), labelW, barW,
			t.SeriesColor(n), cli.FormatCost(s.Value.Value)))
		body.WriteString("\n")
	}
	return components.ContentCard(fmt.Sprintf("Cost Distribution  %s", cli.FormatCost(total)), strings.TrimRight(body.String(), "\n"), w)
}
