package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mabot",
	Short: "Moving-average futures backtesting engine",
	Long: `mabot replays historical futures candles against a moving-average
strategy and simulates the full order lifecycle: limit entries with
single-bar time-in-force, leverage, fees, stop-loss/take-profit exits,
reserve-fund accounting and an equity curve.

It provides tools for:
  - Running backtests from candle CSV files
  - Downloading kline history from Binance futures (REST or bulk archives)
  - Journaling trades and equity curves to CSV or SQLite`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
