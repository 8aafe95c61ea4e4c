// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "domus-admin",
	Short: "Domus-Admin is a web-based management tool for residential buildings",
	Long: `Domus-Admin is a web-based management tool for residential buildings
that lets tenants report issues, log landlord communications and access
documents, and lets administrators manage units, tenants and permissions.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
