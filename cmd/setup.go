package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/gwlens/internal/config"
	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Start from the file alone so environment overrides are not persisted.
	cfg, err := config.LoadFile(config.ConfigPath())
	if err != nil {
		return err
	}

	vals := tui.SetupValuesFrom(cfg)
	if !config.ValidDay(vals.Days) {
		vals.Days = 30
	}

	form := tui.NewSetupForm(&vals, knownGateways())
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled; nothing saved.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}

	vals.Apply(&cfg)
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `gwlens setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

// knownGateways lists gateways for the picker when credentials already
// work; any failure just means the ID is typed in instead.
func knownGateways() []model.Gateway {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	gws, err := newClient().ListGateways(ctx)
	if err != nil {
		return nil
	}
	return gws
}
