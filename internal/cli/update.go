package cli

import (
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh the trailing yield window from FRED",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Update(cmd.Context())
	},
}
