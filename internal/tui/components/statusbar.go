package components

import (
	"strconv"
	"strings"

	"github.com/theirongolddev/gwlens/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// StatusInfo is what the bottom bar reports about the current fetch.
type StatusInfo struct {
	Phase     string // idle, loading, ready or failed
	DataAge   string // empty when nothing has been fetched yet
	Discarded int64
	Err       string
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	barStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	errStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	left := barStyle.Render(" ") +
		keyStyle.Render("?") + barStyle.Render(" help  ") +
		keyStyle.Render("r") + barStyle.Render(" refresh  ") +
		keyStyle.Render("1/7/3") + barStyle.Render(" range  ") +
		keyStyle.Render("q") + barStyle.Render(" quit")

	var parts []string
	switch {
	case info.Err != "":
		parts = append(parts, errStyle.Render("error: "+info.Err))
	case info.Phase == "loading":
		parts = append(parts, barStyle.Render("refreshing"))
	}
	if info.Discarded > 0 {
		parts = append(parts, barStyle.Render("stale dropped: "+formatCount(info.Discarded)))
	}
	if info.DataAge != "" {
		parts = append(parts, barStyle.Render("data "+info.DataAge))
	}
	right := strings.Join(parts, barStyle.Render("  "))
	right = ansi.Truncate(right, max(width-2, 0), "…") + barStyle.Render(" ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		left = barStyle.Render(" ")
		gap = max(width-1-lipgloss.Width(right), 0)
	}
	return left + barStyle.Render(strings.Repeat(" ", gap)) + right
}

func formatCount(n int64) string {
	if n < 1000 {
		return strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n/1000, 10) + "k"
}
