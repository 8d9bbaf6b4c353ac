package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/theirongolddev/gwlens/internal/config"
	"github.com/theirongolddev/gwlens/internal/fetch"
	"github.com/theirongolddev/gwlens/internal/logutil"
	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/tui"
	"github.com/theirongolddev/gwlens/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	theme.SetActive(appCfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	// Log lines would tear the alt screen.
	if err := logutil.ToFile(filepath.Join(filepath.Dir(config.CachePath()), "tui.log")); err == nil {
		defer logutil.Close()
	}

	f := &swapFetcher{}
	f.replace(newFetcher(true))
	defer f.replace(nil, nil)

	coord := fetch.New(f)
	defer coord.Close()

	needSetup := !config.Exists() && flagFile == ""
	opts := tui.Options{
		GatewayID: activeKey().GatewayID,
		Days:      flagDays,
		TopN:      flagTop,
		NeedSetup: needSetup,
		OnSetup: func(cfg config.Config) {
			appCfg = cfg
			f.replace(newFetcher(true))
		},
	}
	if seedSet {
		opts.NewJitter = newJitter
	}
	if needSetup {
		opts.Gateways = knownGateways()
	}

	app := tui.NewApp(coord, opts)
	defer app.Close()

	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// swapFetcher delegates to a fetcher that can be rebuilt once first-run
// setup has written credentials.
type swapFetcher struct {
	mu      sync.Mutex
	f       fetch.Fetcher
	cleanup func()
}

func (s *swapFetcher) Fetch(ctx context.Context, key fetch.Key) (*model.AnalyticsSnapshot, error) {
	s.mu.Lock()
	f := s.f
	s.mu.Unlock()
	if f == nil {
		return nil, errors.New("fetcher closed")
	}
	return f.Fetch(ctx, key)
}

// replace installs f and releases the previous fetcher's resources.
func (s *swapFetcher) replace(f fetch.Fetcher, cleanup func()) {
	s.mu.Lock()
	old := s.cleanup
	s.f, s.cleanup = f, cleanup
	s.mu.Unlock()
	if old != nil {
		old()
	}
}
