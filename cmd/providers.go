package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/model"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Provider roll-ups and performance scores",
	RunE:  runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(_ *cobra.Command, _ []string) error {
	dash, _, err := loadDashboard()
	if err != nil {
		return err
	}
	if len(dash.Providers) == 0 {
		fmt.Println("\n  No provider data in the selected time range.")
		return nil
	}

	printTitle("PROVIDERS")

	rows := make([][]string, 0, len(dash.Providers))
	for _, p := range dash.Providers {
		rows = append(rows, []string{
			p.Provider,
			cli.Truncate(strings.Join(p.Models, ", "), 40),
			cli.FormatNumber(p.Requests),
			cli.FormatLatency(p.AvgLatency),
			cli.FormatNumber(p.ErrorCount),
			cli.FormatPercent(p.ErrorRatePercent),
			fmt.Sprintf("%d", p.PerformanceScore),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Provider", "Models", "Requests", "Latency", "Errors", "Err %", "Score"},
		Rows:    rows,
	}))
	fmt.Println(cli.RenderNote("Errors are estimated from the gateway-wide error rate."))

	if len(dash.ProviderPerformance) == 0 {
		return nil
	}

	fmt.Println()
	headers := append([]string{"Slot"}, providerNamesOf(dash.ProviderSeries)...)
	slotRows := make([][]string, 0, len(dash.ProviderPerformance))
	for _, pt := range dash.ProviderPerformance {
		row := []string{pt.Time}
		for _, k := range dash.ProviderSeries {
			row = append(row, fmt.Sprintf("%.0f", pt.Scores[k.Key]))
		}
		slotRows = append(slotRows, row)
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Performance score by time slot",
		Headers: headers,
		Rows:    slotRows,
	}))
	if seedSet {
		fmt.Println(cli.RenderNote(fmt.Sprintf("Slots are the overall score with seeded noise (seed %d).", flagSeed)))
	} else {
		fmt.Println(cli.RenderNote("Slots repeat the overall score; pass --seed to add noise."))
	}
	return nil
}

func providerNamesOf(keys []model.SeriesKey) []string {
	return lo.Map(keys, func(k model.SeriesKey, _ int) string { return k.Name })
}
