package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/config"
	"github.com/theirongolddev/gwlens/internal/daemon"
	"github.com/theirongolddev/gwlens/internal/fetch"

	"github.com/spf13/cobra"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonRunDir       string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
	flagDaemonAll          bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Poll a gateway and serve derived analytics over HTTP/SSE",
	Long: `Poll one gateway and range, and serve the derived dashboard over HTTP.

Each gateway and range gets its own daemon, so several can run at once
as long as they listen on different addresses.`,
	RunE: runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the fetch state of running daemons",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon for the selected gateway and range",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (defaults to daemon.addr)")
	daemonCmd.PersistentFlags().DurationVar(&flagDaemonInterval, "interval", 0, "Polling interval (defaults to daemon.interval_sec)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonRunDir, "run-dir", filepath.Dir(config.CachePath()), "Directory for daemon run and log files")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", "", "Log file for detached mode (defaults to one per gateway and range)")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonStatusCmd.Flags().BoolVar(&flagDaemonAll, "all", false, "Show every running daemon")
	daemonStopCmd.Flags().BoolVar(&flagDaemonAll, "all", false, "Stop every running daemon")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	if flagDaemonAddr == "" {
		flagDaemonAddr = appCfg.Daemon.Addr
	}
	if flagDaemonInterval == 0 {
		flagDaemonInterval = time.Duration(appCfg.Daemon.IntervalSec) * time.Second
	}
	key := activeKey()
	if key.GatewayID == "" {
		return explain(fetch.ErrNoGateway)
	}
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	inst := daemon.NewInstance(flagDaemonRunDir, key)
	if flagDaemonDetach {
		return startDaemonDetached(inst)
	}
	return runDaemonForeground(inst)
}

func startDaemonDetached(inst daemon.Instance) error {
	if err := inst.Available(flagDaemonAddr); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	logPath := flagDaemonLogFile
	if logPath == "" {
		logPath = inst.LogFile()
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}
	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, append(filterDetachArg(os.Args[1:]), "--child")...) //nolint:gosec // re-executes the current binary
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon for %s (pid %d)\n", inst.Key, child.Process.Pid)
	fmt.Printf("  API: http://%s/v1/status\n", flagDaemonAddr)
	fmt.Printf("  Log: %s\n", logPath)
	return nil
}

func runDaemonForeground(inst daemon.Instance) error {
	rec := daemon.Record{
		PID:         os.Getpid(),
		Addr:        flagDaemonAddr,
		GatewayID:   inst.Key.GatewayID,
		Days:        inst.Key.RangeDays,
		IntervalSec: int(flagDaemonInterval.Seconds()),
		StartedAt:   time.Now(),
	}
	if err := inst.Claim(rec); err != nil {
		return err
	}
	defer inst.Release(rec.PID)

	f, cleanup := newFetcher(false)
	defer cleanup()
	coord := fetch.New(f)
	defer coord.Close()

	svc := daemon.New(daemon.Config{
		GatewayID:    inst.Key.GatewayID,
		Days:         inst.Key.RangeDays,
		Interval:     flagDaemonInterval,
		Addr:         flagDaemonAddr,
		EventsBuffer: flagDaemonEventsBuffer,
		TopN:         flagTop,
		NewJitter:    newJitter,
	}, coord)

	fmt.Printf("  gwlens daemon listening on http://%s\n", flagDaemonAddr)
	fmt.Printf("  Polling %s every %s\n", inst.Key, flagDaemonInterval)
	fmt.Printf("  Stop with: gwlens daemon stop --gateway %s --days %d\n", inst.Key.GatewayID, inst.Key.RangeDays)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// daemonTargets returns the daemons a status or stop command applies to:
// every running one with --all or when no gateway is selected, otherwise the
// one for the active gateway and range.
func daemonTargets() ([]daemon.Record, error) {
	key := activeKey()
	if flagDaemonAll || key.GatewayID == "" {
		return daemon.List(flagDaemonRunDir)
	}
	rec, err := daemon.NewInstance(flagDaemonRunDir, key).Running()
	if err != nil {
		return nil, err
	}
	return []daemon.Record{rec}, nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	recs, err := daemonTargets()
	if errors.Is(err, daemon.ErrNotRunning) || (err == nil && len(recs) == 0) {
		fmt.Println("  Daemon: not running")
		return nil
	}
	if err != nil {
		return err
	}

	now := time.Now()
	for i, rec := range recs {
		if i > 0 {
			fmt.Println()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		st, err := daemon.FetchStatus(ctx, rec.Addr)
		cancel()
		printDaemonStatus(os.Stdout, rec, st, err, now)
	}
	return nil
}

// printDaemonStatus renders one daemon's record and, when reachable, the
// fetch state it reports.
func printDaemonStatus(w io.Writer, rec daemon.Record, st daemon.Status, err error, now time.Time) {
	fmt.Fprintf(w, "  %s  pid %d  http://%s  up %s\n", rec.Key(), rec.PID, rec.Addr, cli.FormatAge(rec.StartedAt, now))
	if err != nil {
		fmt.Fprintf(w, "  API: %v\n", err)
		return
	}

	fetchLine := fmt.Sprintf("  Fetch: %s (seq %d)", st.Phase, st.Seq)
	if st.Discarded > 0 {
		fetchLine += fmt.Sprintf(", %d stale dropped", st.Discarded)
	}
	if st.SkippedPolls > 0 {
		fetchLine += fmt.Sprintf(", %d polls skipped while busy", st.SkippedPolls)
	}
	fmt.Fprintln(w, fetchLine)

	polls := fmt.Sprintf("  Polls: %d every %ds", st.PollCount, st.PollIntervalSec)
	if !st.LastPollAt.IsZero() {
		polls += ", last " + cli.FormatAge(st.LastPollAt, now)
	}
	fmt.Fprintln(w, polls)

	if st.FetchedAt.IsZero() {
		fmt.Fprintln(w, "  Data: none yet")
	} else {
		fmt.Fprintf(w, "  Data: %s  %s req  %s tok  %s  %s errors\n",
			cli.FormatAge(st.FetchedAt, now),
			cli.FormatNumber(st.Summary.Requests),
			cli.FormatTokens(st.Summary.TokensIn+st.Summary.TokensOut),
			cli.FormatCost(st.Summary.CostUSD),
			cli.FormatPercent(st.Summary.ErrorRate))
	}
	if st.LastError != "" {
		fmt.Fprintf(w, "  Last error: %s\n", st.LastError)
	}
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	if !flagDaemonAll && activeKey().GatewayID == "" {
		return errors.New("no gateway selected (pass --gateway or --all)")
	}
	recs, err := daemonTargets()
	if errors.Is(err, daemon.ErrNotRunning) || (err == nil && len(recs) == 0) {
		return errors.New("daemon is not running")
	}
	if err != nil {
		return err
	}

	var errs []error
	for _, rec := range recs {
		if err := daemon.Terminate(rec.PID, 8*time.Second); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.Key(), err))
			continue
		}
		daemon.NewInstance(flagDaemonRunDir, rec.Key()).Release(rec.PID)
		fmt.Printf("  Stopped daemon for %s (pid %d)\n", rec.Key(), rec.PID)
	}
	return errors.Join(errs...)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}
