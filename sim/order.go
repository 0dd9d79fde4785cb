package sim

import (
	"time"

	"github.com/quantbt/mabot/market"
	"github.com/quantbt/mabot/strategy"
)

// PendingOrder is a resting limit order created at the signal bar's reference
// close. It lives for exactly one bar: the engine resolves it against the
// next bar's open/high/low and either fills it or expires it.
type PendingOrder struct {
	Side     strategy.Side
	Limit    float64
	Quantity float64
	Margin   float64 // reserved from the account at placement

	// Exit offsets are fractions of the eventual fill price.
	TakeProfitPct float64
	StopLossPct   float64

	Created time.Time
}

// Resolve tests the order against the resolution bar. A long limit fills at
// the open when the bar opens below the limit (gap-through), otherwise at the
// limit when the low touches it. Shorts mirror against the high.
func (o *PendingOrder) Resolve(c market.Candle) (fill float64, ok bool) {
	if o.Side == strategy.Long {
		if c.Open < o.Limit {
			return c.Open, true
		}
		if c.Low <= o.Limit {
			return o.Limit, true
		}
		return 0, false
	}

	if c.Open > o.Limit {
		return c.Open, true
	}
	if c.High >= o.Limit {
		return o.Limit, true
	}
	return 0, false
}

// orderSlot holds at most one pending order. Transitions are
// idle → pending (Place) and pending → idle (Take); there is no state in
// which two orders rest at once or an order survives its resolution bar.
type orderSlot struct {
	pending *PendingOrder
}

func (s *orderSlot) Empty() bool {
	return s.pending == nil
}

func (s *orderSlot) Place(o PendingOrder) {
	if s.pending != nil {
		panic("sim: order slot already occupied")
	}
	s.pending = &o
}

// Take removes and returns the resting order.
func (s *orderSlot) Take() PendingOrder {
	o := *s.pending
	s.pending = nil
	return o
}
