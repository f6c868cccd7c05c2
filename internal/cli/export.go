package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"yieldwatcher/internal/app"
)

var (
	exportFrom      string
	exportTo        string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored yield rows as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		for flag, value := range map[string]string{"--from": exportFrom, "--to": exportTo} {
			if value == "" {
				continue
			}
			if _, err := time.Parse("2006-01-02", value); err != nil {
				return fmt.Errorf("invalid %s value (want YYYY-MM-DD): %w", flag, err)
			}
		}

		opts := app.ExportOptions{
			From:      exportFrom,
			To:        exportTo,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start date (YYYY-MM-DD, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End date (YYYY-MM-DD, inclusive)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
