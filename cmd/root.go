package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/config"
	"github.com/theirongolddev/gwlens/internal/fetch"
	"github.com/theirongolddev/gwlens/internal/gateway"
	"github.com/theirongolddev/gwlens/internal/logutil"
	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/pipeline"
	"github.com/theirongolddev/gwlens/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagDays     int
	flagGateway  string
	flagFile     string
	flagNoCache  bool
	flagQuiet    bool
	flagLogLevel string
	flagSeed     uint64
	flagTop      int

	seedSet bool
	appCfg  = config.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:               "gwlens",
	Short:             "Gateway usage analytics CLI",
	Long:              "Inspect request, cost, latency and model statistics for your LLM gateways.",
	RunE:              runSummary,
	PersistentPreRunE: prepare,
	SilenceUsage:      true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&flagDays, "days", "n", 30, "Time window in days")
	rootCmd.PersistentFlags().StringVarP(&flagGateway, "gateway", "g", "", "Gateway ID (defaults to general.default_gateway)")
	rootCmd.PersistentFlags().StringVarP(&flagFile, "file", "f", "", "Read a saved snapshot instead of calling the backend")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the local snapshot cache")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Uint64Var(&flagSeed, "seed", 0, "Seed for provider-performance jitter (unset disables jitter)")
	rootCmd.PersistentFlags().IntVar(&flagTop, "top", pipeline.DefaultTopN, "Width of model rankings")
}

// prepare loads config and settles flag defaults before any command runs.
func prepare(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	appCfg = cfg

	level := cfg.General.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = flagLogLevel
	}
	if err := logutil.Configure(level); err != nil {
		return err
	}

	if !cmd.Flags().Changed("days") && cfg.General.DefaultDays > 0 {
		flagDays = cfg.General.DefaultDays
	}
	if flagDays <= 0 {
		return fmt.Errorf("--days must be positive, got %d", flagDays)
	}
	if flagGateway == "" {
		flagGateway = cfg.General.DefaultGateway
	}
	seedSet = cmd.Flags().Changed("seed")
	return nil
}

func newClient() *gateway.Client {
	return gateway.NewClient(
		appCfg.Gateway.BaseURL,
		appCfg.Credentials(),
		time.Duration(appCfg.Gateway.TimeoutSec)*time.Second,
	)
}

// openCache returns nil when caching is disabled or the database cannot be
// opened; callers treat a nil cache as "always miss".
func openCache() *store.Cache {
	if flagNoCache || !appCfg.Cache.Enabled {
		return nil
	}
	cache, err := store.Open(config.CachePath())
	if err != nil {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Cache unavailable, fetching directly\n")
		}
		return nil
	}
	return cache
}

// newFetcher builds the fetcher for the current flags. The returned cleanup
// must run once the fetcher is no longer used.
func newFetcher(includeLogs bool) (fetch.Fetcher, func()) {
	if flagFile != "" {
		return fetch.FileFetcher{Path: flagFile}, func() {}
	}

	cache := openCache()
	f := &fetch.GatewayFetcher{
		Source:      newClient(),
		Cache:       cache,
		TTL:         time.Duration(appCfg.Cache.TTLSec) * time.Second,
		IncludeLogs: includeLogs,
	}
	return f, func() {
		if cache != nil {
			_ = cache.Close()
		}
	}
}

func activeKey() fetch.Key {
	id := flagGateway
	if flagFile != "" && id == "" {
		id = "file"
	}
	return fetch.Key{GatewayID: id, RangeDays: flagDays}
}

func deriveOptions() pipeline.Options {
	return pipeline.Options{
		RangeDays: flagDays,
		TopN:      flagTop,
		Jitter:    newJitter(),
	}
}

func newJitter() pipeline.Jitter {
	if !seedSet {
		return pipeline.NoJitter{}
	}
	return pipeline.NewSeededJitter(flagSeed)
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// loadSnapshot is the shared data loading path used by all commands.
func loadSnapshot(includeLogs bool) (*model.AnalyticsSnapshot, error) {
	f, cleanup := newFetcher(includeLogs)
	defer cleanup()

	coord := fetch.New(f)
	defer coord.Close()

	key := activeKey()
	if !flagQuiet {
		if flagFile != "" {
			fmt.Fprintf(os.Stderr, "  Reading %s...\n", flagFile)
		} else {
			fmt.Fprintf(os.Stderr, "  Fetching %s (%dd)...\n", key.GatewayID, key.RangeDays)
		}
	}

	ctx, cancel := commandContext()
	defer cancel()

	start := time.Now()
	coord.Request(key)
	st, err := coord.Wait(ctx)
	if err != nil {
		return nil, explain(err)
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Loaded in %.1fs\n", time.Since(start).Seconds())
	}
	return st.Snapshot, nil
}

// loadDashboard fetches the snapshot and derives every series from it.
func loadDashboard() (model.Dashboard, *model.AnalyticsSnapshot, error) {
	snap, err := loadSnapshot(false)
	if err != nil {
		return model.Dashboard{}, nil, err
	}
	return pipeline.Derive(snap, deriveOptions()), snap, nil
}

// explain adds a hint to errors the user can fix from the command line.
func explain(err error) error {
	switch {
	case errors.Is(err, fetch.ErrNoGateway):
		return fmt.Errorf("%w (pass --gateway or run `gwlens gateways` to list yours)", err)
	case errors.Is(err, gateway.ErrNoCredentials):
		return fmt.Errorf("%w (set %s or run `gwlens setup`)", err, config.EnvUserID)
	case errors.Is(err, gateway.ErrUnauthorized):
		return fmt.Errorf("%w (check your user id)", err)
	}
	return err
}

func printTitle(title string) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s  %s  Last %dd", title, activeKey().GatewayID, flagDays)))
	fmt.Println()
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}
