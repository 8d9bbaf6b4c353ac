// Package cmd implements the gwlens CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/theirongolddev/gwlens/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default days:    %d\n", cfg.General.DefaultDays)
	if cfg.General.DefaultGateway != "" {
		fmt.Printf("    Default gateway: %s\n", cfg.General.DefaultGateway)
	} else {
		fmt.Println("    Default gateway: not set")
	}
	fmt.Printf("    Log level:       %s\n", cfg.General.LogLevel)
	fmt.Println()

	fmt.Println("  [Gateway]")
	fmt.Printf("    Base URL: %s\n", cfg.Gateway.BaseURL)
	fmt.Printf("    Timeout:  %ds\n", cfg.Gateway.TimeoutSec)
	ctx, cancel := commandContext()
	defer cancel()
	if userID, err := cfg.Credentials().UserID(ctx); err == nil {
		source := "config file"
		if os.Getenv(config.EnvUserID) != "" {
			source = "environment or .env"
		}
		fmt.Printf("    User ID:  %s (%s)\n", maskSecret(userID), source)
	} else {
		fmt.Println("    User ID:  not configured")
	}
	fmt.Println()

	fmt.Println("  [Cache]")
	fmt.Printf("    Enabled: %v\n", cfg.Cache.Enabled)
	fmt.Printf("    TTL:     %ds\n", cfg.Cache.TTLSec)
	fmt.Printf("    File:    %s\n", config.CachePath())
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %ds\n", cfg.Daemon.IntervalSec)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `gwlens setup` to reconfigure.")
	return nil
}

func maskSecret(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
