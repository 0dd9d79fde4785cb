package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/quantbt/mabot/backtest"
	"github.com/quantbt/mabot/config"
	"github.com/quantbt/mabot/internal/id"
	"github.com/quantbt/mabot/journal"
	"github.com/quantbt/mabot/market"
	"github.com/quantbt/mabot/market/binance"
	"github.com/quantbt/mabot/sim"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest over a candle CSV file",
	Long: `Run replays a candle CSV through the simulation engine using the
strategy and risk parameters from the config file.

The CSV needs open/high/low/close columns; the time column may be named
"datetime" or "timestamp", otherwise the first column is used.

Example:
  mabot run --csv data/BTCUSDT-5m.csv --config mabot.yaml`,
	RunE: runBacktest,
}

var (
	runCSVPath    string
	runConfigPath string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runCSVPath, "csv", "f", "", "path to candle CSV (required)")
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to YAML/JSON config (defaults apply when omitted)")

	runCmd.MarkFlagRequired("csv")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.LoadFromFile(runConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	from, err := cfg.StartTime()
	if err != nil {
		return err
	}
	to, err := cfg.EndTime()
	if err != nil {
		return err
	}
	interval, err := binance.ParseInterval(cfg.Market.Interval)
	if err != nil {
		return err
	}

	series, err := market.LoadCSV(runCSVPath, cfg.Market.Symbol, interval, from, to)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	runID := id.New()
	fmt.Printf("Run %s: %s %s, %d candles\n", runID, cfg.Market.Symbol, cfg.Market.Interval, series.Len())

	engine := sim.NewEngine(cfg.SimConfig(), runID, j)
	result, err := engine.Run(series)
	if err != nil {
		if errors.Is(err, sim.ErrNoData) || errors.Is(err, sim.ErrInsufficientHistory) {
			fmt.Printf("No result: %v\n", err)
			return nil
		}
		return err
	}

	backtest.Print(os.Stdout, result, backtest.Summarize(result))
	return nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "", "none":
		return nil, nil
	case "csv":
		return journal.NewCSV(jc.TradesFile, jc.EquityFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	}
	return nil, fmt.Errorf("unknown journal type %q", jc.Type)
}
