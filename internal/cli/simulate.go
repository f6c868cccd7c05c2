package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	simulateTreasury float64
	simulateMuni     float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Run the spread alert flow on a static yield pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateTreasury <= 0 || simulateMuni <= 0 {
			return errors.New("--treasury and --muni must be greater than 0")
		}

		return getApp().SimulateAlert(cmd.Context(), simulateTreasury, simulateMuni)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateTreasury, "treasury", 0, "10Y treasury yield (%)")
	simulateCmd.Flags().Float64Var(&simulateMuni, "muni", 0, "AAA muni yield (%)")
}
