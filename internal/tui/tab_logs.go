package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/tui/components"
	"github.com/theirongolddev/gwlens/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// logsState is the Logs tab's cursor and filter.
type logsState struct {
	cursor     int
	errorsOnly bool
}

func (s *logsState) clamp(n int) {
	s.cursor = min(max(s.cursor, 0), max(n-1, 0))
}

func (s *logsState) move(delta, n int) {
	s.cursor += delta
	s.clamp(n)
}

// filteredLogs returns the snapshot's logs newest first, honoring the
// errors-only toggle.
func (a App) filteredLogs() []model.LogEntry {
	if a.snap == nil || len(a.snap.Logs) == 0 {
		return nil
	}
	out := make([]model.LogEntry, 0, len(a.snap.Logs))
	for _, e := range a.snap.Logs {
		if a.logs.errorsOnly && e.OK() {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// updateLogsKey handles keys specific to the Logs tab. It reports whether
// the key was consumed.
func (a App) updateLogsKey(key string) (tea.Model, bool) {
	n := len(a.filteredLogs())
	switch key {
	case "j", "down":
		a.logs.move(1, n)
	case "k", "up":
		a.logs.move(-1, n)
	case "g", "home":
		a.logs.cursor = 0
	case "G", "end":
		a.logs.cursor = max(n-1, 0)
	case "ctrl+d", "pgdown":
		a.logs.move(a.halfPage(), n)
	case "ctrl+u", "pgup":
		a.logs.move(-a.halfPage(), n)
	case "e":
		a.logs.errorsOnly = !a.logs.errorsOnly
		a.logs.cursor = 0
	default:
		return a, false
	}
	return a, true
}

func (a App) halfPage() int {
	return max((a.height-10)/2, 1)
}

func (a App) renderLogsTab(cw, h int) string {
	t := theme.Active
	logs := a.filteredLogs()
	innerW := components.CardInnerWidth(cw)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceHover).Bold(true)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	okStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	title := fmt.Sprintf("Request Logs (%d)", len(logs))
	if a.logs.errorsOnly {
		title += "  errors only"
	}
	if len(logs) == 0 {
		msg := "No request logs in this snapshot"
		if a.logs.errorsOnly {
			msg = "No failed requests · press e to show all"
		}
		return components.ContentCard(title, dimStyle.Render(msg), cw)
	}

	// Detail pane takes the bottom 7 lines; the list gets the rest.
	detailH := 7
	listH := max(h-detailH-6, 3)

	cursor := min(a.logs.cursor, len(logs)-1)
	offset := max(cursor-listH+1, 0)

	const timeW, statusW, durW, tokW, costW = 14, 4, 7, 13, 9
	modelW := max(innerW-timeW-statusW-durW-tokW-costW-5, 10)

	var body strings.Builder
	body.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %*s %-*s %*s %*s %*s",
		timeW, "Time", statusW, "HTTP", modelW, "Model", durW, "Latency", tokW, "Tokens in/out", costW, "Cost")))
	body.WriteString("\n")

	end := min(offset+listH, len(logs))
	for i := offset; i < end; i++ {
		e := logs[i]
		line := fmt.Sprintf("%-*s %*d %-*s %*s %*s %*s",
			timeW, e.Timestamp.Local().Format("Jan 02 15:04"),
			statusW, e.Status,
			modelW, cli.Truncate(e.Model, modelW),
			durW, cli.FormatLatency(e.DurationMs),
			tokW, cli.FormatTokens(e.TokensIn)+"/"+cli.FormatTokens(e.TokensOut),
			costW, cli.FormatCost(e.Cost))
		switch {
		case i == cursor:
			body.WriteString(selStyle.Render(line))
		case !e.OK():
			body.WriteString(errStyle.Render(line))
		default:
			body.WriteString(rowStyle.Render(line))
		}
		body.WriteString("\n")
	}
	body.WriteString(dimStyle.Render(fmt.Sprintf("%d-%d of %d · j/k move · e errors only", offset+1, end, len(logs))))

	sel := logs[cursor]
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	var detail strings.Builder
	statusText := sel.StatusText
	if statusText == "" {
		statusText = fmt.Sprintf("%d", sel.Status)
	}
	detail.WriteString(label.Render("Status    "))
	if sel.OK() {
		detail.WriteString(okStyle.Render(statusText))
	} else {
		detail.WriteString(errStyle.Render(statusText))
	}
	detail.WriteString("\n")
	fields := []struct{ k, v string }{
		{"Model", sel.Model},
		{"Provider", sel.Provider},
		{"Endpoint", sel.Endpoint},
		{"Request", sel.ID},
	}
	for _, f := range fields {
		if f.v == "" {
			continue
		}
		detail.WriteString(label.Render(fmt.Sprintf("%-10s", f.k)))
		detail.WriteString(rowStyle.Render(cli.Truncate(f.v, innerW-10)))
		detail.WriteString("\n")
	}
	if sel.ErrorText != "" {
		detail.WriteString(label.Render("Error     "))
		detail.WriteString(errStyle.Render(cli.Truncate(sel.ErrorText, innerW-10)))
	}

	return components.ContentCard(title, body.String(), cw) + "\n" +
		components.ContentCard("Selected", strings.TrimRight(detail.String(), "\n"), cw)
}
