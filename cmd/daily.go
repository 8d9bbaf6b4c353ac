package cmd

import (
	"fmt"
	"time"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/model"
	"github.com/theirongolddev/gwlens/internal/pipeline"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var flagDailyChart bool

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily usage table",
	RunE:  runDaily,
}

func init() {
	dailyCmd.Flags().BoolVar(&flagDailyChart, "chart", true, "Plot requests and errors below the table")
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(_ *cobra.Command, _ []string) error {
	snap, err := loadSnapshot(false)
	if err != nil {
		return err
	}

	points := pipeline.Normalize(snap.DailyStats, flagDays, time.Now())
	if len(points) == 0 {
		fmt.Println("\n  No data for the selected period.")
		return nil
	}
	rates := pipeline.ErrorRateSeries(points)

	printTitle("DAILY USAGE")

	rows := make([][]string, 0, len(points))
	for i := len(points) - 1; i >= 0; i-- {
		p := points[i]
		rows = append(rows, []string{
			p.Date.Format("2006-01-02"),
			p.Date.Format("Mon"),
			cli.FormatNumber(p.Requests),
			cli.FormatNumber(p.Errors),
			cli.FormatPercent(rates[i].ErrorRate),
			cli.FormatTokens(p.TokensIn),
			cli.FormatTokens(p.TokensOut),
			cli.FormatCost(p.Cost),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Requests", "Errors", "Err %", "Input", "Output", "Cost"},
		Rows:    rows,
	}))

	if flagDailyChart && len(points) > 1 {
		requests := lo.Map(points, func(p model.DayPoint, _ int) float64 { return float64(p.Requests) })
		errCounts := lo.Map(points, func(p model.DayPoint, _ int) float64 { return float64(p.Errors) })
		fmt.Println()
		fmt.Print(cli.RenderLineChart([][]float64{requests, errCounts}, 60, 10,
			fmt.Sprintf("requests (blue) / errors (red), %s to %s", points[0].Label, points[len(points)-1].Label)))
	}
	return nil
}
