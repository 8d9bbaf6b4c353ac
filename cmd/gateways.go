package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/gwlens/internal/cli"
	"github.com/theirongolddev/gwlens/internal/model"

	"github.com/spf13/cobra"
)

var gatewaysCmd = &cobra.Command{
	Use:   "gateways",
	Short: "List your gateways",
	RunE:  runGateways,
}

func init() {
	rootCmd.AddCommand(gatewaysCmd)
}

func runGateways(_ *cobra.Command, _ []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cache := openCache()
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	gateways, err := newClient().ListGateways(ctx)
	stale := false
	switch {
	case err == nil && cache != nil:
		if serr := cache.SaveGateways(gateways); serr != nil && !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Could not cache gateway list: %v\n", serr)
		}
	case err != nil && cache != nil:
		cached, lerr := cache.LoadGateways()
		if lerr != nil || len(cached) == 0 {
			return explain(err)
		}
		fmt.Fprintf(os.Stderr, "  Backend unavailable (%v); showing cached list\n", err)
		gateways = cached
		stale = true
	case err != nil:
		return explain(err)
	}

	if len(gateways) == 0 {
		fmt.Println("\n  No gateways found.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("GATEWAYS"))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"", "Name", "ID", "Created"},
		Rows:    gatewayRows(gateways, appCfg.General.DefaultGateway, time.Now()),
	}))
	if stale {
		fmt.Println(cli.RenderWarning("Cached list; it may be out of date."))
	}
	return nil
}

func gatewayRows(gateways []model.Gateway, defaultID string, now time.Time) [][]string {
	rows := make([][]string, 0, len(gateways))
	for _, gw := range gateways {
		mark := ""
		if gw.ID == defaultID {
			mark = "*"
		}
		created := "-"
		if !gw.CreatedAt.IsZero() {
			created = fmt.Sprintf("%s (%s)", gw.CreatedAt.Local().Format("2006-01-02"), cli.FormatAge(gw.CreatedAt, now))
		}
		rows = append(rows, []string{mark, gw.Name, gw.ID, created})
	}
	return rows
}
