package components

import (
	"strings"

	"github.com/theirongolddev/gwlens/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // position of the shortcut letter in the name (-1 if not in name)
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Trends", Key: 't', KeyPos: 0},
	{Name: "Models", Key: 'm', KeyPos: 0},
	{Name: "Providers", Key: 'p', KeyPos: 0},
	{Name: "Logs", Key: 'l', KeyPos: 0},
}

const tabGap = 2

// RenderTabBar renders the tab bar on one row with the given active index.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true).Underline(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimKeyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	parts := make([]string, 0, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts = append(parts, activeStyle.Render(tab.Name))
			continue
		}
		if tab.KeyPos < 0 || tab.KeyPos >= len(tab.Name) {
			parts = append(parts, inactiveStyle.Render(tab.Name)+
				dimKeyStyle.Render("[")+keyStyle.Render(string(tab.Key))+dimKeyStyle.Render("]"))
			continue
		}
		parts = append(parts, inactiveStyle.Render(tab.Name[:tab.KeyPos])+
			dimKeyStyle.Render("[")+keyStyle.Render(tab.Name[tab.KeyPos:tab.KeyPos+1])+dimKeyStyle.Render("]")+
			inactiveStyle.Render(tab.Name[tab.KeyPos+1:]))
	}

	row := spaceStyle.Render(" ") + strings.Join(parts, spaceStyle.Render(strings.Repeat(" ", tabGap)))
	if pad := width - lipgloss.Width(row); pad > 0 {
		row += spaceStyle.Render(strings.Repeat(" ", pad))
	}
	return row
}

// TabVisualWidth returns the rendered width of tab i, matching RenderTabBar.
func TabVisualWidth(i, activeIdx int) int {
	tab := Tabs[i]
	if i == activeIdx {
		return lipgloss.Width(tab.Name)
	}
	return lipgloss.Width(tab.Name) + 2 // the brackets around the key
}

// TabAtX returns the tab index rendered at column x, or -1.
func TabAtX(x, activeIdx int) int {
	pos := 1
	for i := range Tabs {
		w := TabVisualWidth(i, activeIdx)
		if x >= pos && x < pos+w {
			return i
		}
		pos += w + tabGap
	}
	return -1
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
