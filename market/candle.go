// Package market holds the candle data model shared by every component.
package market

import (
	"fmt"
	"time"
)

// Candle is one fixed-interval OHLCV bar. OpenTime is the bar's open, UTC.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Series is an ordered run of candles with strictly increasing open times.
// It is immutable once built; the engine only ever reads it.
type Series struct {
	Symbol   string
	Interval time.Duration
	Candles  []Candle
}

// NewSeries validates ordering before wrapping the slice. Candles must be
// sorted ascending by OpenTime with no duplicates.
func NewSeries(symbol string, interval time.Duration, candles []Candle) (*Series, error) {
	for i := 1; i < len(candles); i++ {
		if !candles[i].OpenTime.After(candles[i-1].OpenTime) {
			return nil, fmt.Errorf("market: candle %d open time %s not after previous %s",
				i, candles[i].OpenTime.Format(time.RFC3339), candles[i-1].OpenTime.Format(time.RFC3339))
		}
	}
	return &Series{Symbol: symbol, Interval: interval, Candles: candles}, nil
}

func (s *Series) Len() int { return len(s.Candles) }

// Closes returns the close-price column. The slice is freshly allocated so
// indicator code cannot alias the series.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Window returns the sub-series with open times in [from, to). Zero bounds
// are open-ended on that side.
func (s *Series) Window(from, to time.Time) *Series {
	lo := 0
	for lo < len(s.Candles) && !from.IsZero() && s.Candles[lo].OpenTime.Before(from) {
		lo++
	}
	hi := len(s.Candles)
	for hi > lo && !to.IsZero() && !s.Candles[hi-1].OpenTime.Before(to) {
		hi--
	}
	return &Series{Symbol: s.Symbol, Interval: s.Interval, Candles: s.Candles[lo:hi]}
}
