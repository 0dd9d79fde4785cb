package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads candles from a tabular file. The header must name
// open/high/low/close columns (any case); the time column may be called
// "datetime" or "timestamp", otherwise the first column is used. "volume" and
// "vol" are recognized when present. Rows are filtered to [from, to) and
// returned sorted ascending by open time.
func LoadCSV(path, symbol string, interval time.Duration, from, to time.Time) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("market: %s is empty", path)
	}
	if err != nil {
		return nil, err
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, fmt.Errorf("market: %s: %w", path, err)
	}

	var candles []Candle
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) <= cols.max() {
			continue
		}

		ts, err := parseTime(row[cols.time])
		if err != nil {
			return nil, fmt.Errorf("market: bad time %q: %w", row[cols.time], err)
		}
		if !inRange(ts, from, to) {
			continue
		}

		c := Candle{OpenTime: ts}
		if c.Open, err = parseF(row[cols.open]); err != nil {
			return nil, fmt.Errorf("market: bad open %q: %w", row[cols.open], err)
		}
		if c.High, err = parseF(row[cols.high]); err != nil {
			return nil, fmt.Errorf("market: bad high %q: %w", row[cols.high], err)
		}
		if c.Low, err = parseF(row[cols.low]); err != nil {
			return nil, fmt.Errorf("market: bad low %q: %w", row[cols.low], err)
		}
		if c.Close, err = parseF(row[cols.close]); err != nil {
			return nil, fmt.Errorf("market: bad close %q: %w", row[cols.close], err)
		}
		if cols.volume >= 0 && cols.volume < len(row) {
			// volume is informational; a bad cell should not kill the load
			c.Volume, _ = parseF(row[cols.volume])
		}
		candles = append(candles, c)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})

	return NewSeries(symbol, interval, candles)
}

type columnMap struct {
	time, open, high, low, close, volume int
}

func (m columnMap) max() int {
	out := m.time
	for _, v := range []int{m.open, m.high, m.low, m.close} {
		if v > out {
			out = v
		}
	}
	return out
}

func mapColumns(header []string) (columnMap, error) {
	m := columnMap{time: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "datetime", "timestamp":
			if m.time < 0 {
				m.time = i
			}
		case "open":
			m.open = i
		case "high":
			m.high = i
		case "low":
			m.low = i
		case "close":
			m.close = i
		case "volume", "vol":
			m.volume = i
		}
	}
	if m.time < 0 {
		// Fall back to the first column for time.
		m.time = 0
	}
	if m.open < 0 || m.high < 0 || m.low < 0 || m.close < 0 {
		return m, fmt.Errorf("header missing open/high/low/close columns: %v", header)
	}
	return m, nil
}

func parseF(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parseTime accepts RFC3339, "2006-01-02 15:04:05", bare dates, and unix
// millisecond or second integers.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 { // millisecond epoch
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
