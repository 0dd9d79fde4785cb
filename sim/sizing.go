package sim

// SizingMode picks how entry margin is computed.
type SizingMode string

const (
	// SizingFixed reserves a constant margin amount per entry.
	SizingFixed SizingMode = "fixed"
	// SizingFraction reserves a fraction of the current balance, so position
	// size compounds with performance.
	SizingFraction SizingMode = "fraction"
)

type Sizing struct {
	Mode     SizingMode
	Margin   float64 // fixed mode: margin per entry
	Fraction float64 // fraction mode: share of current balance, e.g. 0.4

	// MaxNotional caps margin × leverage. Zero disables the cap.
	MaxNotional float64
}

// MarginFor returns the margin to reserve for the next entry. There is no
// partial sizing: callers skip the entry entirely when the account cannot
// cover the returned amount.
func (s Sizing) MarginFor(balance, leverage float64) float64 {
	var margin float64
	switch s.Mode {
	case SizingFraction:
		margin = balance * s.Fraction
	default:
		margin = s.Margin
	}

	if s.MaxNotional > 0 && leverage > 0 && margin*leverage > s.MaxNotional {
		margin = s.MaxNotional / leverage
	}
	return margin
}
