package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags, overriding the matching environment variables
	weightsFile  string
	snapshotFile string
	snapshotURL  string
	jsonOutput   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "healthbot",
	Short: "Stock health analytics",
	Long: `Stock health bot CLI

Validates market snapshots, values them with several methods, scores their
financial health and turns the result into a recommendation with entry prices.

Usage:
  go run ./cmd/healthbot [command]

Examples:
  go run ./cmd/healthbot evaluate 2330 --market bullish
  go run ./cmd/healthbot compare 2330 2454 2303 --industry semis
  go run ./cmd/healthbot weights show --industry banking
  go run ./cmd/healthbot api
  go run ./cmd/healthbot worker start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&weightsFile, "weights", "", "score weight file (default $WEIGHTS_FILE)")
	rootCmd.PersistentFlags().StringVar(&snapshotFile, "snapshots", "", "snapshot file (default $SNAPSHOT_FILE)")
	rootCmd.PersistentFlags().StringVar(&snapshotURL, "snapshot-url", "", "market-data service URL (default $SNAPSHOT_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")
}
