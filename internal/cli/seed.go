package cli

import (
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Backfill the historical yield window from FRED",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Seed(cmd.Context())
	},
}
