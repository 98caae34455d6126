package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "momo",
	Short: "ETF risk-adjusted momentum ranking",
	Long: `etfmomo ranks an ETF universe by risk-adjusted momentum.

Pipeline: universe → price history → horizon metrics → rank → filters.
Results are written as an xlsx workbook and optionally a PNG score chart.

Usage:
  go run ./cmd/momo [command]

Examples:
  go run ./cmd/momo rank --date 2024-06-28 --method avgSharpe
  go run ./cmd/momo universe
  go run ./cmd/momo fetch --from 2000-01-01
  go run ./cmd/momo api
  go run ./cmd/momo scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default STRATEGY_FILE or built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
