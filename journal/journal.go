// Package journal persists closed trades and equity samples.
package journal

import "time"

// TradeRecord is one closed trade. Seq is deterministic within a run; RunID
// distinguishes runs sharing a sink.
type TradeRecord struct {
	RunID      string
	Seq        int
	Side       string // long | short
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	OpenTime   time.Time
	CloseTime  time.Time
	PnL        float64 // before fees
	NetPnL     float64
	EntryFee   float64
	ExitFee    float64
	Reason     string // stop_loss | take_profit
}

// EquitySnapshot is one equity-curve point.
type EquitySnapshot struct {
	RunID      string
	Time       time.Time
	Balance    float64
	Equity     float64
	MarginUsed float64
	Reserve    float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
