package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/model"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	flagTrendsWidth  int
	flagTrendsHeight int
)

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Charts of cost, errors, latency, tokens and model popularity",
	RunE:  runTrends,
}

func init() {
	trendsCmd.Flags().IntVar(&flagTrendsWidth, "width", 60, "Chart width in columns")
	trendsCmd.Flags().IntVar(&flagTrendsHeight, "height", 8, "Chart height in rows")
	rootCmd.AddCommand(trendsCmd)
}

func runTrends(_ *cobra.Command, _ []string) error {
	dash, _, err := loadDashboard()
	if err != nil {
		return err
	}
	if len(dash.Requests) == 0 {
		fmt.Println("\n  No data for the selected period.")
		return nil
	}

	printTitle("TRENDS")
	span := fmt.Sprintf("%s to %s", dash.Requests[0].Label, dash.Requests[len(dash.Requests)-1].Label)
	chart := func(caption string, series ...[]float64) {
		fmt.Print(cli.RenderLineChart(series, flagTrendsWidth, flagTrendsHeight, caption+", "+span))
		fmt.Println()
	}

	chart("cost (USD)", lo.Map(dash.Costs, func(p model.CostPoint, _ int) float64 { return p.Cost }))

	chart("error rate % (blue) / success rate % (red)",
		lo.Map(dash.ErrorRates, func(p model.ErrorRatePoint, _ int) float64 { return p.ErrorRate }),
		lo.Map(dash.ErrorRates, func(p model.ErrorRatePoint, _ int) float64 { return p.SuccessRate }),
	)

	chart("input tokens (blue) / output tokens (red)",
		lo.Map(dash.Tokens, func(p model.TokenPoint, _ int) float64 { return float64(p.InputTokens) }),
		lo.Map(dash.Tokens, func(p model.TokenPoint, _ int) float64 { return float64(p.OutputTokens) }),
	)

	chart("latency ms avg (blue) / p50 (red) / p95 (green), estimated",
		lo.Map(dash.Latency, func(p model.LatencyPoint, _ int) float64 { return p.AvgLatency }),
		lo.Map(dash.Latency, func(p model.LatencyPoint, _ int) float64 { return p.P50Latency }),
		lo.Map(dash.Latency, func(p model.LatencyPoint, _ int) float64 { return p.P95Latency }),
	)

	if len(dash.PopularityModels) > 0 {
		series := make([][]float64, 0, len(dash.PopularityModels))
		for _, k := range dash.PopularityModels {
			series = append(series, lo.Map(dash.Popularity, func(p model.PopularityPoint, _ int) float64 {
				return float64(p.Values[k.Key])
			}))
		}
		chart("estimated requests per model: "+popularityLegend(dash.PopularityModels), series...)
		fmt.Println(cli.RenderNote("Per-model daily values are allocated from each model's share of the window."))
	}
	return nil
}

var legendColors = []string{"blue", "red", "green", "yellow", "cyan", "magenta"}

func popularityLegend(keys []model.SeriesKey) string {
	parts := make([]string, 0, len(keys))
	for i, k := range keys {
		color := "default"
		if i < len(legendColors) {
			color = legendColors[i]
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", k.Name, color))
	}
	return strings.Join(parts, ", ")
}
