package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrade(seq int) TradeRecord {
	open := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return TradeRecord{
		RunID:      "run-1",
		Seq:        seq,
		Side:       "long",
		EntryPrice: 103,
		ExitPrice:  104.442,
		Quantity:   9.708738,
		OpenTime:   open,
		CloseTime:  open.Add(5 * time.Minute),
		PnL:        14,
		NetPnL:     12.993,
		EntryFee:   0.5,
		ExitFee:    0.507,
		Reason:     "take_profit",
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalWritesRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	require.NoError(t, j.RecordTrade(sampleTrade(1)))
	require.NoError(t, j.RecordTrade(sampleTrade(2)))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		RunID:   "run-1",
		Time:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Balance: 899.5,
		Equity:  999.5,
		Reserve: 50,
	}))
	require.NoError(t, j.Close())

	trades := readAll(t, tradesPath)
	require.Len(t, trades, 3) // header + 2 rows
	assert.Equal(t, "run_id", trades[0][0])
	assert.Equal(t, []string{
		"run-1", "1", "long", "103.000000", "104.442000", "9.708738",
		"2024-03-01T10:00:00Z", "2024-03-01T10:05:00Z",
		"14.000000", "12.993000", "0.500000", "0.507000", "take_profit",
	}, trades[1])
	assert.Equal(t, "2", trades[2][1])

	equity := readAll(t, equityPath)
	require.Len(t, equity, 2)
	assert.Equal(t, []string{"run_id", "time", "balance", "equity", "margin_used", "reserve"}, equity[0])
	assert.Equal(t, []string{"run-1", "2024-03-01T10:00:00Z", "899.500000", "999.500000", "0.000000", "50.000000"}, equity[1])
}

func TestCSVJournalFlushesPerRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	j, err := NewCSV(tradesPath, filepath.Join(dir, "equity.csv"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordTrade(sampleTrade(1)))

	// The row must be on disk before Close.
	rows := readAll(t, tradesPath)
	assert.Len(t, rows, 2)
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewCSV(filepath.Join(dir, "missing", "trades.csv"), filepath.Join(dir, "equity.csv"))
	assert.Error(t, err)

	_, err = NewCSV(filepath.Join(dir, "trades.csv"), filepath.Join(dir, "missing", "equity.csv"))
	assert.Error(t, err)
}
