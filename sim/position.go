package sim

import (
	"time"

	"github.com/quantbt/mabot/market"
	"github.com/quantbt/mabot/strategy"
)

// ExitReason says which trigger closed a position.
type ExitReason string

const (
	ReasonStopLoss   ExitReason = "stop_loss"
	ReasonTakeProfit ExitReason = "take_profit"
)

// Position is an open leveraged position, owned by the engine and mutated
// only by the per-bar exit check.
type Position struct {
	Side       strategy.Side
	EntryPrice float64
	Quantity   float64
	Margin     float64
	EntryFee   float64
	TakeProfit float64
	StopLoss   float64
	OpenTime   time.Time
}

// CheckExit tests stop/take against the bar's range. The stop is checked
// first: when both could trigger intrabar the real path is unknown, so ties
// resolve to the stop. Exit prices honor gap-through opens.
func (p *Position) CheckExit(c market.Candle) (exit float64, reason ExitReason, hit bool) {
	if p.Side == strategy.Long {
		if c.Low <= p.StopLoss {
			return min(c.Open, p.StopLoss), ReasonStopLoss, true
		}
		if c.High >= p.TakeProfit {
			return max(c.Open, p.TakeProfit), ReasonTakeProfit, true
		}
		return 0, "", false
	}

	if c.High >= p.StopLoss {
		return max(c.Open, p.StopLoss), ReasonStopLoss, true
	}
	if c.Low <= p.TakeProfit {
		return min(c.Open, p.TakeProfit), ReasonTakeProfit, true
	}
	return 0, "", false
}

// UnrealizedPnL marks the position to price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return float64(p.Side) * (price - p.EntryPrice) * p.Quantity
}

// ClosedTrade is an immutable trade-log entry appended when a position exits.
type ClosedTrade struct {
	Seq        int
	Side       strategy.Side
	OpenTime   time.Time
	CloseTime  time.Time
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	Margin     float64
	EntryFee   float64
	ExitFee    float64
	PnL        float64 // directional price delta × quantity, before fees
	NetPnL     float64 // PnL minus both fees
	Reason     ExitReason
}
