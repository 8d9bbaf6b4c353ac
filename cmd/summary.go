package cmd

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/fetch"
	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/pipeline"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var flagSummaryAll bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Usage summary for a gateway",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().BoolVar(&flagSummaryAll, "all", false, "Summarize every gateway you own")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	if flagSummaryAll {
		return runSummaryAll()
	}

	snap, err := loadSnapshot(false)
	if err != nil {
		return err
	}
	if snap.Summary.TotalRequests == 0 && !snap.HasDailyStats() {
		fmt.Println("\n  No requests in the selected time range.")
		return nil
	}

	s := snap.Summary
	printTitle("GATEWAY USAGE")

	perDay := float64(0)
	if flagDays > 0 {
		perDay = s.TotalCost / float64(flagDays)
	}

	rows := [][]string{
		{"Requests", cli.FormatNumber(s.TotalRequests)},
		{"Errors", cli.FormatNumber(s.ErrorCount)},
		{"Error Rate", cli.FormatPercent(s.ErrorRate)},
		{"Success Rate", cli.FormatPercent(s.SuccessRate)},
		{"---"},
		{"Input Tokens", cli.FormatTokens(s.TokensIn)},
		{"Output Tokens", cli.FormatTokens(s.TokensOut)},
		{"Total Tokens", cli.FormatTokens(s.TotalTokens)},
		{"---"},
		{"Cost", cli.FormatCost(s.TotalCost)},
		{"Cost/day", cli.FormatCost(perDay)},
		{"---"},
		{"Avg Latency", cli.FormatLatency(s.AvgLatency)},
		{"Min Latency", cli.FormatLatency(s.MinLatency)},
		{"Max Latency", cli.FormatLatency(s.MaxLatency)},
		{"---"},
		{"Models", cli.FormatNumber(int64(len(snap.ModelBreakdown)))},
		{"Providers", cli.FormatNumber(int64(len(pipeline.ProviderRollups(snap))))},
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if buckets, total, diverged := pipeline.Divergence(snap); diverged {
		fmt.Println()
		fmt.Println(cli.RenderNote(fmt.Sprintf(
			"Daily buckets sum to %s requests; the summary reports %s.",
			cli.FormatNumber(buckets), cli.FormatNumber(total))))
	}
	if !flagQuiet && !snap.FetchedAt.IsZero() {
		fmt.Fprintf(os.Stderr, "\n  Data fetched %s\n", cli.FormatAge(snap.FetchedAt, time.Now()))
	}
	return nil
}

type gatewaySummary struct {
	gw   model.Gateway
	snap *model.AnalyticsSnapshot
	err  error
}

// runSummaryAll fetches every gateway concurrently and prints one row each.
// A gateway that fails to load is reported in its row rather than aborting.
func runSummaryAll() error {
	if flagFile != "" {
		return fmt.Errorf("--all cannot be combined with --file")
	}

	ctx, cancel := commandContext()
	defer cancel()

	gateways, err := newClient().ListGateways(ctx)
	if err != nil {
		return explain(err)
	}
	if len(gateways) == 0 {
		fmt.Println("\n  No gateways found.")
		return nil
	}

	f, cleanup := newFetcher(false)
	defer cleanup()

	results := make([]gatewaySummary, len(gateways))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, gw := range gateways {
		g.Go(func() error {
			snap, err := f.Fetch(gctx, fetch.Key{GatewayID: gw.ID, RangeDays: flagDays})
			results[i] = gatewaySummary{gw: gw, snap: snap, err: err}

			mu.Lock()
			done++
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "\r  Fetching gateways [%d/%d]", done, len(gateways))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if !flagQuiet {
		fmt.Fprintln(os.Stderr)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return requestsOf(results[i]) > requestsOf(results[j])
	})

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("ALL GATEWAYS  Last %dd", flagDays)))
	fmt.Println()

	rows := make([][]string, 0, len(results))
	var totalReq int64
	var totalCost float64
	failed := 0
	for _, r := range results {
		name := cli.Truncate(r.gw.Name, 24)
		if r.err != nil {
			failed++
			rows = append(rows, []string{name, r.gw.ID, "-", "-", "-", "-", "-"})
			continue
		}
		s := r.snap.Summary
		totalReq += s.TotalRequests
		totalCost += s.TotalCost
		rows = append(rows, []string{
			name,
			r.gw.ID,
			cli.FormatNumber(s.TotalRequests),
			cli.FormatPercent(s.ErrorRate),
			cli.FormatTokens(s.TotalTokens),
			cli.FormatCost(s.TotalCost),
			cli.FormatLatency(s.AvgLatency),
		})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"Total", "", cli.FormatNumber(totalReq), "", "", cli.FormatCost(totalCost), ""})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Gateway", "ID", "Requests", "Errors", "Tokens", "Cost", "Latency"},
		Rows:    rows,
	}))

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "\n  %d gateways could not be loaded\n", failed)
	}
	return nil
}

func requestsOf(r gatewaySummary) int64 {
	if r.err != nil || r.snap == nil {
		return -1
	}
	return r.snap.Summary.TotalRequests
}
