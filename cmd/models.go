package cmd

import (
	"fmt"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/pipeline"

	"github.com/spf13/cobra"
)

// placeholderName labels padded ranking slots.
const placeholderName = "Empty %d"

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Model usage breakdown and rankings",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(_ *cobra.Command, _ []string) error {
	dash, snap, err := loadDashboard()
	if err != nil {
		return err
	}
	if !snap.HasBreakdown() {
		fmt.Println("\n  No model data in the selected time range.")
		return nil
	}

	printTitle("MODEL USAGE")

	all := pipeline.TopNEntries(snap.ModelBreakdown, len(snap.ModelBreakdown), pipeline.ByRequests)
	total := float64(snap.BreakdownRequests())
	rows := make([][]string, 0, len(all))
	for _, r := range all {
		m := r.Value
		rows = append(rows, []string{
			r.Key,
			pipeline.ProviderKey(r.Key),
			cli.FormatNumber(m.Requests),
			cli.FormatTokens(m.TokensIn),
			cli.FormatTokens(m.TokensOut),
			cli.FormatCost(m.Cost),
			cli.FormatLatency(m.AvgLatency),
			cli.FormatPercent(pipeline.Share(float64(m.Requests), total) * 100),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Provider", "Requests", "Input", "Output", "Cost", "Latency", "Share"},
		Rows:    rows,
	}))

	fmt.Println()
	perfRows := make([][]string, 0, len(dash.ModelPerformance))
	for _, r := range dash.ModelPerformance {
		if r.Placeholder {
			perfRows = append(perfRows, []string{fmt.Sprintf("%d", r.Slot), r.DisplayName(placeholderName), "-", "-", "-"})
			continue
		}
		p := r.Value
		perfRows = append(perfRows, []string{
			fmt.Sprintf("%d", r.Slot),
			r.DisplayName(placeholderName),
			cli.FormatNumber(p.Requests),
			cli.FormatLatency(p.TrueLatency()),
			"~" + cli.FormatPercent(p.SuccessRate),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Top %d by requests", len(dash.ModelPerformance)),
		Headers: []string{"#", "Model", "Requests", "Latency", "Success"},
		Rows:    perfRows,
	}))
	fmt.Println(cli.RenderNote("Success rate is the gateway-wide rate; per-model errors are not reported."))

	fmt.Println()
	fmt.Println(cli.RenderTitle("COST DISTRIBUTION"))
	fmt.Println()
	maxCost := 0.0
	for _, r := range dash.CostDistribution {
		maxCost = max(maxCost, r.Value.Value)
	}
	for _, r := range dash.CostDistribution {
		share := pipeline.Share(r.Value.Value, snap.Summary.TotalCost) * 100
		valueText := fmt.Sprintf("%s  %s", cli.FormatCost(r.Value.Value), cli.FormatPercent(share))
		fmt.Println(cli.RenderBar(r.DisplayName(placeholderName), 28, r.Value.Value, maxCost, 30, valueText))
	}
	return nil
}
