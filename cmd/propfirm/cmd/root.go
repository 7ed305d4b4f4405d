package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "propfirm",
	Short: "Prop-firm challenge trade execution and risk evaluation engine",
	Long: `Propfirm runs simulated funded-trading challenges.

It provides tools for:
  - Serving the challenge and trade API over HTTP
  - Creating, activating and inspecting challenges
  - Executing trades at server-trusted prices
  - Verifying a challenge against its trade ledger
  - Exporting the trade ledger to CSV

Settings come from a YAML or JSON config file (--config), a .env file and
the process environment, in that order of precedence (last wins).

State is kept in ./propfirm.db (SQLite) unless storage.driver or
PROPFIRM_DB_DRIVER says otherwise, so separate invocations see the same
challenges. The "memory" driver only lives as long as one process.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
}
