package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/theirongolddev/gwlens/internal/source"

	"github.com/spf13/cobra"
)

var (
	flagExportRaw    bool
	flagExportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the derived dashboard (or the raw snapshot) as JSON",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&flagExportRaw, "raw", false, "Export the snapshot in wire format instead of derived series")
	exportCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	var w io.Writer = os.Stdout
	if flagExportOutput != "" {
		f, err := os.Create(flagExportOutput)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if flagExportRaw {
		snap, err := loadSnapshot(false)
		if err != nil {
			return err
		}
		if err := source.EncodeSnapshot(w, snap); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	} else {
		dash, _, err := loadDashboard()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dash); err != nil {
			return fmt.Errorf("writing dashboard: %w", err)
		}
	}

	if flagExportOutput != "" && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Wrote %s\n", flagExportOutput)
	}
	return nil
}
