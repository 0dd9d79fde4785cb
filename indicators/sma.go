// Package indicators provides the moving averages the signal rules read.
package indicators

import (
	"fmt"
	"math"
	"sort"
)

// SMA computes the trailing simple moving average of values for one window
// length. Indexes before window-1 are NaN (not enough history). One pass with
// a running sum; no per-bar recomputation.
func SMA(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("indicators: window must be positive, got %d", window)
	}

	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// Snapshot holds the SMA series for every configured window, aligned index
// for index with the close series it was computed from.
type Snapshot struct {
	Windows []int // ascending
	series  map[int][]float64
}

// Compute runs SMA once per window over the whole close series.
func Compute(closes []float64, windows []int) (*Snapshot, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("indicators: no windows configured")
	}

	ws := append([]int(nil), windows...)
	sort.Ints(ws)

	s := &Snapshot{Windows: ws, series: make(map[int][]float64, len(ws))}
	for _, w := range ws {
		if _, dup := s.series[w]; dup {
			return nil, fmt.Errorf("indicators: duplicate window %d", w)
		}
		ma, err := SMA(closes, w)
		if err != nil {
			return nil, err
		}
		s.series[w] = ma
	}
	return s, nil
}

// At returns the SMA value for window w at bar index i, and whether the
// window has warmed up there.
func (s *Snapshot) At(w, i int) (float64, bool) {
	ma, ok := s.series[w]
	if !ok || i < 0 || i >= len(ma) {
		return 0, false
	}
	v := ma[i]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// MaxWindow returns the longest configured window, which sets the warm-up.
func (s *Snapshot) MaxWindow() int {
	return s.Windows[len(s.Windows)-1]
}
