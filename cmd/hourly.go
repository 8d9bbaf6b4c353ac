package cmd

import (
	"fmt"

	"github.com/theirongolddev/gwlens/internal/cli"

	"github.com/spf13/cobra"
)

var hourlyCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Estimated activity by hour of day",
	RunE:  runHourly,
}

func init() {
	rootCmd.AddCommand(hourlyCmd)
}

func runHourly(_ *cobra.Command, _ []string) error {
	dash, _, err := loadDashboard()
	if err != nil {
		return err
	}
	hours := dash.UsagePattern
	if len(hours) == 0 {
		fmt.Println("\n  No recent requests to build a usage pattern from.")
		return nil
	}

	printTitle("USAGE PATTERN")

	var peak int64
	peakHour := 0
	for _, h := range hours {
		if h.Requests > peak {
			peak = h.Requests
			peakHour = h.Hour
		}
	}

	for _, h := range hours {
		fmt.Println(cli.RenderBar(h.Label, 5, float64(h.Requests), float64(peak), 40, cli.FormatNumber(h.Requests)))
	}

	fmt.Println()
	fmt.Printf("  Peak: %02d:00 (%s requests)\n", peakHour, cli.FormatNumber(peak))
	fmt.Println(cli.RenderNote("Synthetic: a fixed daily shape scaled to the 7-day average, not measured per hour."))
	return nil
}
