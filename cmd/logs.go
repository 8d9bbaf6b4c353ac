package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/model"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	flagLogsLimit  int
	flagLogsErrors bool
	flagLogsModel  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Recent request logs",
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&flagLogsLimit, "limit", "l", 25, "Maximum rows to show (0 shows all)")
	logsCmd.Flags().BoolVar(&flagLogsErrors, "errors", false, "Only show failed requests")
	logsCmd.Flags().StringVarP(&flagLogsModel, "model", "m", "", "Filter to model (substring match)")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(_ *cobra.Command, _ []string) error {
	snap, err := loadSnapshot(true)
	if err != nil {
		return err
	}

	entries := filterLogs(snap.Logs, flagLogsErrors, flagLogsModel)
	if len(entries) == 0 {
		fmt.Println("\n  No matching request logs.")
		return nil
	}
	total := len(entries)
	if flagLogsLimit > 0 && len(entries) > flagLogsLimit {
		entries = entries[:flagLogsLimit]
	}

	printTitle("REQUEST LOGS")

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("01-02 15:04:05"),
			fmt.Sprintf("%d %s", e.Status, e.StatusText),
			cli.Truncate(e.Model, 28),
			e.Provider,
			cli.FormatLatency(e.DurationMs),
			cli.FormatTokens(e.TokensIn + e.TokensOut),
			cli.FormatCost(e.Cost),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Time", "Status", "Model", "Provider", "Duration", "Tokens", "Cost"},
		Rows:    rows,
	}))
	if total > len(entries) {
		fmt.Printf("  Showing %d of %d (use --limit 0 for all)\n", len(entries), total)
	}
	return nil
}

// filterLogs returns matching entries, newest first.
func filterLogs(logs []model.LogEntry, errorsOnly bool, modelFilter string) []model.LogEntry {
	needle := strings.ToLower(modelFilter)
	out := lo.Filter(logs, func(e model.LogEntry, _ int) bool {
		if errorsOnly && e.OK() {
			return false
		}
		return needle == "" || strings.Contains(strings.ToLower(e.Model), needle)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
