// Package tui provides the interactive Bubble Tea dashboard for gwlens.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/config"
	"github.com/theirongolddev/gwlens/internal/fetch"
	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/pipeline"
	"github.com/theirongolddev/gwlens/internal/tui/components"
	"github.com/theirongolddev/gwlens/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// StatusMsg carries a coordinator status change into the update loop.
type StatusMsg struct {
	Status fetch.Status
}

// statusClosedMsg is sent once the coordinator stops publishing.
type statusClosedMsg struct{}

// Options configures NewApp.
type Options struct {
	GatewayID string
	Days      int
	TopN      int
	NewJitter func() pipeline.Jitter // nil disables jitter
	NeedSetup bool
	Gateways  []model.Gateway // offered by the setup form

	// OnSetup runs after the setup answers are saved, so the caller can
	// pick up new credentials before the first request is issued.
	OnSetup func(config.Config)
}

// App is the root Bubble Tea model.
type App struct {
	coord       *fetch.Coordinator
	updates     <-chan fetch.Status
	unsubscribe func()

	// Selection
	gatewayID string
	days      int
	topN      int
	newJitter func() pipeline.Jitter

	// Data. dash and snap keep the last good result while a newer request
	// is loading or has failed.
	status  fetch.Status
	snap    *model.AnalyticsSnapshot
	dash    model.Dashboard
	hasData bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	spinner   spinner.Model
	logs      logsState
	now       func() time.Time

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	needSetup bool
	setupErr  error
	onSetup   func(config.Config)
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
)

const (
	tabOverview = iota
	tabTrends
	tabModels
	tabProviders
	tabLogs
)

// NewApp creates the dashboard model. It subscribes to coord immediately;
// call Close when the program exits.
func NewApp(coord *fetch.Coordinator, opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	if opts.Days <= 0 {
		opts.Days = config.DefaultConfig().General.DefaultDays
	}
	if opts.TopN <= 0 {
		opts.TopN = pipeline.DefaultTopN
	}

	updates, unsubscribe := coord.Subscribe()
	a := App{
		coord:       coord,
		updates:     updates,
		unsubscribe: unsubscribe,
		gatewayID:   opts.GatewayID,
		days:        opts.Days,
		topN:        opts.TopN,
		newJitter:   opts.NewJitter,
		spinner:     sp,
		now:         time.Now,
		needSetup:   opts.NeedSetup,
		onSetup:     opts.OnSetup,
	}
	if a.needSetup {
		cfg, err := config.LoadFile(config.ConfigPath())
		if err != nil {
			cfg = config.DefaultConfig()
		}
		vals := SetupValuesFrom(cfg)
		a.setupVals = &vals
		a.setupForm = NewSetupForm(a.setupVals, opts.Gateways)
	}
	return a
}

// Close unsubscribes from the coordinator.
func (a App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		waitForStatus(a.updates),
	}
	if a.needSetup && a.setupForm != nil {
		cmds = append(cmds, a.setupForm.Init())
	} else {
		cmds = append(cmds, a.requestCmd())
	}
	return tea.Batch(cmds...)
}

func (a App) key() fetch.Key {
	return fetch.Key{GatewayID: a.gatewayID, RangeDays: a.days}
}

func (a App) requestCmd() tea.Cmd {
	coord, key := a.coord, a.key()
	return func() tea.Msg {
		coord.Request(key)
		return nil
	}
}

func waitForStatus(ch <-chan fetch.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return statusClosedMsg{}
		}
		return StatusMsg{Status: st}
	}
}

// applyStatus folds a coordinator status into the model. Statuses older
// than the one already applied are ignored.
func (a *App) applyStatus(st fetch.Status) {
	if st.Seq < a.status.Seq {
		return
	}
	a.status = st
	if st.Snapshot == nil || st.Snapshot == a.snap {
		return
	}
	a.snap = st.Snapshot
	var jitter pipeline.Jitter
	if a.newJitter != nil {
		jitter = a.newJitter()
	}
	a.dash = pipeline.Derive(st.Snapshot, pipeline.Options{
		RangeDays: st.Key.RangeDays,
		Now:       a.now(),
		TopN:      a.topN,
		Jitter:    jitter,
	})
	a.hasData = true
	a.logs.clamp(len(a.filteredLogs()))
}

func (a App) loading() bool {
	return a.status.Phase == fetch.Loading || a.status.Phase == fetch.Idle
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case StatusMsg:
		a.applyStatus(msg.Status)
		return a, waitForStatus(a.updates)

	case statusClosedMsg:
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		if a.showHelp || (a.needSetup && a.setupForm != nil) {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabLogs {
				a.logs.move(-1, len(a.filteredLogs()))
			}
		case tea.MouseButtonWheelDown:
			if a.activeTab == tabLogs {
				a.logs.move(1, len(a.filteredLogs()))
			}
		case tea.MouseButtonLeft:
			if msg.Y == 0 && msg.Action == tea.MouseActionPress {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return a, tea.Quit
		}

		// First-run setup wizard intercepts all keys
		if a.needSetup && a.setupForm != nil {
			return a.updateSetupForm(msg)
		}

		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}

		if a.activeTab == tabLogs {
			if next, ok := a.updateLogsKey(key); ok {
				return next, nil
			}
		}

		switch key {
		case "q":
			return a, tea.Quit
		case "1", "7", "3":
			days := map[string]int{"1": 1, "7": 7, "3": 30}[key]
			if days == a.days && a.status.Phase != fetch.Failed {
				return a, nil
			}
			a.days = days
			return a, a.requestCmd()
		case "r":
			coord := a.coord
			if a.status.Seq == 0 {
				return a, a.requestCmd()
			}
			return a, func() tea.Msg {
				coord.Retry()
				return nil
			}
		case "left", "shift+tab":
			a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
			return a, nil
		case "right", "tab":
			a.activeTab = (a.activeTab + 1) % len(components.Tabs)
			return a, nil
		}

		if len(msg.Runes) == 1 {
			if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
		return a, nil
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.setupErr = a.saveSetupConfig()
		a.needSetup = false
		a.setupForm = nil
		return a, a.requestCmd()
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, a.requestCmd()
	}
	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	if !a.hasData {
		if a.status.Phase == fetch.Failed {
			return a.viewError()
		}
		return a.viewLoading()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  gwlens needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		BorderBackground(t.Background).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ gwlens"))
	b.WriteString(subtitleStyle.Render(" · Gateway Analytics"))
	b.WriteString("\n\n")
	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	b.WriteString(subtitleStyle.Render(fmt.Sprintf(" Fetching %s (%dd)...", a.gatewayLabel(), a.days)))
	if a.setupErr != nil {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface).
			Render("Setup was not saved: " + a.setupErr.Error()))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewError() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Red).
		BorderBackground(t.Background).
		Background(t.Surface).
		Padding(1, 3).
		Width(min(a.width-4, 72))
	titleStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Bold(true)
	textStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Could not load analytics"))
	b.WriteString("\n\n")
	b.WriteString(textStyle.Render(errorText(a.status.Err)))
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("[r] retry  [1/7/3] change range  [q] quit"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

// errorText unwraps a FetchError and adds a hint for the common cases.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		msg = fe.Err.Error()
	}
	if errors.Is(err, fetch.ErrNoGateway) {
		msg += "\nRun `gwlens setup` or pass --gateway."
	}
	return msg
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		BorderBackground(t.Background).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"o t m p l", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k g G", "Move through logs"},
			{"e", "Logs: only errors"},
		}},
		{"Data", [][2]string{
			{"1 7 3", "Last 1 / 7 / 30 days"},
			{"r", "Refresh"},
		}},
		{"General", [][2]string{
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(s.title))
		b.WriteString("\n")
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar + selection pill
	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	pill := pillStyle.Render(" ") + accentStyle.Render(a.gatewayLabel()) +
		pillStyle.Render(" │ ") + accentStyle.Render(fmt.Sprintf("%dd", a.dash.RangeDays))
	if a.loading() {
		pill += pillStyle.Render(" │ ") + a.spinner.View() +
			pillStyle.Render(fmt.Sprintf(" loading %dd", a.status.Key.RangeDays))
	}
	pill += pillStyle.Render(" ")

	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(pill)

	// 2. Status bar
	info := components.StatusInfo{
		Phase:     a.status.Phase.String(),
		Discarded: a.coord.Discarded(),
	}
	if a.snap != nil && !a.snap.FetchedAt.IsZero() {
		info.DataAge = cli.FormatAge(a.snap.FetchedAt, a.now())
	}
	if a.status.Phase == fetch.Failed {
		info.Err = firstLine(errorText(a.status.Err))
	}
	statusBar := components.RenderStatusBar(w, info)

	// 3. Content zone
	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabTrends:
		content = a.renderTrendsTab(cw)
	case tabModels:
		content = a.renderModelsTab(cw)
	case tabProviders:
		content = a.renderProvidersTab(cw)
	case tabLogs:
		content = a.renderLogsTab(cw, contentH)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) gatewayLabel() string {
	if a.gatewayID == "" {
		return "no gateway"
	}
	return a.gatewayID
}

// ─── Helpers ────────────────────────────────────────────────────

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground cuts or pads each line to exactly width w,
// filling with the background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, ansi.Truncate(line, w, ""),
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
func (a App) tabAtX(x int) int {
	return components.TabAtX(x, a.activeTab)
}
