package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stock-track",
	Short: "Stock tracking backend with live charts",
	Long: `A stock tracking backend built with Go: daily OHLCV storage, indicator
computation and interactive chart sessions streamed to the browser.

Features:
• Chart sessions with overlay and oscillator indicators
• Deterministic pane layout with a navigator strip
• Daily and weekly views over any lookback period
• Live bar updates fanned out over NATS and WebSocket
• InfluxDB bar storage, Redis chart cache, MySQL symbol catalog`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
