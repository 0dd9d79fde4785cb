package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/quantbt/mabot/market"
	"github.com/quantbt/mabot/market/binance"
	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download candle history",
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch klines from the Binance futures REST API",
	Long: `Fetch pages through the klines endpoint from --start to --end,
advancing past the last candle returned, and writes a candle CSV.

Example:
  mabot data fetch --symbol BTCUSDT --interval 5m \
    --start 2024-01-01 --end 2025-01-01 --out BTCUSDT-5m.csv`,
	RunE: runFetch,
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Download Binance monthly kline archives",
	Long: `Archive downloads the bulk monthly kline zips from
data.binance.vision and extracts the CSV inside each one. Months already on
disk are skipped, so interrupted downloads resume where they left off.`,
	RunE: runArchive,
}

var (
	dataSymbol   string
	dataInterval string
	dataStart    string
	dataEnd      string
	dataOut      string
	dataDir      string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(fetchCmd)
	dataCmd.AddCommand(archiveCmd)

	for _, c := range []*cobra.Command{fetchCmd, archiveCmd} {
		c.Flags().StringVarP(&dataSymbol, "symbol", "s", "BTCUSDT", "instrument symbol")
		c.Flags().StringVarP(&dataInterval, "interval", "i", "5m", "candle interval")
		c.Flags().StringVar(&dataStart, "start", "", "start time, e.g. 2024-01-01 (required)")
		c.Flags().StringVar(&dataEnd, "end", "", "end time, exclusive; defaults to now")
		c.MarkFlagRequired("start")
	}

	fetchCmd.Flags().StringVarP(&dataOut, "out", "o", "", "output CSV path (required)")
	fetchCmd.MarkFlagRequired("out")

	archiveCmd.Flags().StringVarP(&dataDir, "dir", "d", "./data", "directory for downloaded archives")
}

func runFetch(cmd *cobra.Command, args []string) error {
	from, to, err := parseRange()
	if err != nil {
		return err
	}

	client := binance.NewClient()
	series, err := client.Klines(cmd.Context(), binance.KlinesOptions{
		Symbol:   dataSymbol,
		Interval: dataInterval,
		From:     from,
		To:       to,
		Progress: func(total int, last time.Time) {
			fmt.Printf("  ...%d candles, through %s\n", total, last.Format("2006-01-02 15:04"))
		},
	})
	if err != nil {
		return err
	}

	if err := writeCandleCSV(dataOut, series); err != nil {
		return err
	}
	fmt.Printf("Wrote %d candles to %s\n", series.Len(), dataOut)
	return nil
}

func runArchive(cmd *cobra.Command, args []string) error {
	from, to, err := parseRange()
	if err != nil {
		return err
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	d := binance.NewArchiveDownloader(dataDir)
	paths, err := d.Download(cmd.Context(), dataSymbol, dataInterval, from, to)
	if err != nil {
		return err
	}

	for _, p := range paths {
		fmt.Println(p)
	}
	fmt.Printf("%d monthly files in %s\n", len(paths), dataDir)
	return nil
}

func parseRange() (from, to time.Time, err error) {
	if from, err = parseTimeFlag(dataStart); err != nil {
		return
	}
	to, err = parseTimeFlag(dataEnd)
	return
}

func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q (want RFC3339 or YYYY-MM-DD)", s)
}

func writeCandleCSV(path string, s *market.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"datetime", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, c := range s.Candles {
		row := []string{
			c.OpenTime.Format(time.RFC3339),
			fmtF(c.Open), fmtF(c.High), fmtF(c.Low), fmtF(c.Close), fmtF(c.Volume),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func fmtF(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
