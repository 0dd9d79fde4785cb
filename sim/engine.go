// Package sim is the backtest core: it replays a candle series bar by bar,
// turning signals into single-bar limit orders, positions, closed trades and
// an equity curve. The replay is single-threaded and deterministic.
package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/quantbt/mabot/indicators"
	"github.com/quantbt/mabot/journal"
	"github.com/quantbt/mabot/market"
	"github.com/quantbt/mabot/strategy"
)

var (
	// ErrNoData means the configured time window selected no candles.
	ErrNoData = errors.New("sim: no candles in window")
	// ErrInsufficientHistory means the series is shorter than the longest
	// moving-average window plus the startup slack.
	ErrInsufficientHistory = errors.New("sim: not enough history for indicator warm-up")
)

// warmupSlack keeps the first evaluated reference bar clear of the longest
// window's first valid value. With the canonical 373 window the replay starts
// at bar 375.
const warmupSlack = 2

// Config is the immutable input of a run. Nothing in the loop reads ambient
// state; two runs with equal Config and candles produce identical output.
type Config struct {
	Strategy strategy.Params

	Leverage float64
	FeeRate  float64 // applied to notional on entry and exit

	TakeProfitLong  float64 // fraction of fill price, e.g. 0.014
	StopLossLong    float64
	TakeProfitShort float64
	StopLossShort   float64

	Sizing Sizing

	InitialBalance float64
	InitialReserve float64

	MaxPositions int // open-position concurrency cap, commonly 1
}

// windows returns the configured MA windows (fast, mid, optional slow).
func (c Config) windows() []int {
	ws := []int{c.Strategy.FastWindow, c.Strategy.MidWindow}
	if c.Strategy.SlowWindow > 0 {
		ws = append(ws, c.Strategy.SlowWindow)
	}
	return ws
}

// EquitySample is one marked-to-market account value per processed bar.
type EquitySample struct {
	Time   time.Time
	Equity float64
}

// Result is everything a run produces.
type Result struct {
	Symbol string
	Start  time.Time
	End    time.Time

	InitialBalance float64
	InitialReserve float64
	Account        Account

	Trades []ClosedTrade
	Equity []EquitySample

	// Open holds positions still live when the series ran out.
	Open []Position
}

type Engine struct {
	cfg   Config
	gen   *strategy.Generator
	runID string
	jrnl  journal.Journal // optional sink; nil disables journaling

	acct      Account
	slot      orderSlot
	positions []*Position
	streak    strategy.Streak
	trades    []ClosedTrade
	equity    []EquitySample
}

// NewEngine builds an engine for one run. j may be nil when the caller only
// wants the in-memory Result. runID labels journal rows; it is not part of
// the deterministic output.
func NewEngine(cfg Config, runID string, j journal.Journal) *Engine {
	return &Engine{
		cfg:   cfg,
		gen:   strategy.New(cfg.Strategy),
		runID: runID,
		jrnl:  j,
		acct: Account{
			Balance: cfg.InitialBalance,
			Reserve: cfg.InitialReserve,
		},
	}
}

// Run replays the series. Per bar, in fixed order: resolve the pending order
// against this bar, run exit checks, evaluate a new signal from the previous
// bar's view, then record equity.
func (e *Engine) Run(series *market.Series) (*Result, error) {
	if series == nil || series.Len() == 0 {
		return nil, ErrNoData
	}
	if e.cfg.Leverage <= 0 {
		return nil, fmt.Errorf("sim: leverage must be positive, got %g", e.cfg.Leverage)
	}

	closes := series.Closes()
	snap, err := indicators.Compute(closes, e.cfg.windows())
	if err != nil {
		return nil, err
	}

	start := snap.MaxWindow() + warmupSlack
	if series.Len() <= start {
		return nil, fmt.Errorf("%w: have %d candles, need more than %d",
			ErrInsufficientHistory, series.Len(), start)
	}

	for i := start; i < series.Len(); i++ {
		bar := series.Candles[i]

		e.resolvePending(bar)
		e.checkExits(bar)
		e.maybeEnter(closes, snap, i, bar)
		e.recordEquity(bar)
	}

	open := make([]Position, 0, len(e.positions))
	for _, p := range e.positions {
		open = append(open, *p)
	}

	candles := series.Candles
	return &Result{
		Symbol:         series.Symbol,
		Start:          candles[start].OpenTime,
		End:            candles[len(candles)-1].OpenTime,
		InitialBalance: e.cfg.InitialBalance,
		InitialReserve: e.cfg.InitialReserve,
		Account:        e.acct,
		Trades:         e.trades,
		Equity:         e.equity,
		Open:           open,
	}, nil
}

// resolvePending fills or expires the order placed on the previous bar.
// Either way the slot is empty afterwards; no order lives two bars.
func (e *Engine) resolvePending(bar market.Candle) {
	if e.slot.Empty() {
		return
	}
	ord := e.slot.Take()

	fill, ok := ord.Resolve(bar)
	if !ok {
		// Expired: refund the reserved margin untouched.
		e.acct.Balance += ord.Margin
		return
	}

	entryFee := fill * ord.Quantity * e.cfg.FeeRate
	e.acct.Settle(-entryFee)

	pos := &Position{
		Side:       ord.Side,
		EntryPrice: fill,
		Quantity:   ord.Quantity,
		Margin:     ord.Margin,
		EntryFee:   entryFee,
		OpenTime:   bar.OpenTime,
	}
	if ord.Side == strategy.Long {
		pos.TakeProfit = fill * (1 + ord.TakeProfitPct)
		pos.StopLoss = fill * (1 - ord.StopLossPct)
	} else {
		pos.TakeProfit = fill * (1 - ord.TakeProfitPct)
		pos.StopLoss = fill * (1 + ord.StopLossPct)
	}
	e.positions = append(e.positions, pos)
}

func (e *Engine) checkExits(bar market.Candle) {
	kept := e.positions[:0]
	for _, p := range e.positions {
		exit, reason, hit := p.CheckExit(bar)
		if !hit {
			kept = append(kept, p)
			continue
		}

		gross := float64(p.Side) * (exit - p.EntryPrice) * p.Quantity
		exitFee := exit * p.Quantity * e.cfg.FeeRate

		// Margin comes back along with P&L net of the exit fee. The entry
		// fee was already paid at fill time.
		e.acct.Settle(p.Margin + gross - exitFee)

		trade := ClosedTrade{
			Seq:        len(e.trades) + 1,
			Side:       p.Side,
			OpenTime:   p.OpenTime,
			CloseTime:  bar.OpenTime,
			EntryPrice: p.EntryPrice,
			ExitPrice:  exit,
			Quantity:   p.Quantity,
			Margin:     p.Margin,
			EntryFee:   p.EntryFee,
			ExitFee:    exitFee,
			PnL:        gross,
			NetPnL:     gross - p.EntryFee - exitFee,
			Reason:     reason,
		}
		e.trades = append(e.trades, trade)

		if e.jrnl != nil {
			_ = e.jrnl.RecordTrade(journal.TradeRecord{
				RunID:      e.runID,
				Seq:        trade.Seq,
				Side:       trade.Side.String(),
				EntryPrice: trade.EntryPrice,
				ExitPrice:  trade.ExitPrice,
				Quantity:   trade.Quantity,
				OpenTime:   trade.OpenTime,
				CloseTime:  trade.CloseTime,
				PnL:        trade.PnL,
				NetPnL:     trade.NetPnL,
				EntryFee:   trade.EntryFee,
				ExitFee:    trade.ExitFee,
				Reason:     string(trade.Reason),
			})
		}
	}
	e.positions = kept
}

// maybeEnter evaluates a new signal from bar i-1's close and indicator
// snapshot. It never reads bar i, which keeps decisions one bar ahead of
// execution.
func (e *Engine) maybeEnter(closes []float64, snap *indicators.Snapshot, i int, bar market.Candle) {
	if !e.slot.Empty() || len(e.positions) >= e.cfg.MaxPositions {
		return
	}

	ref, ok := e.reference(closes, snap, i-1)
	if !ok {
		return
	}

	side := e.gen.Evaluate(ref, e.streak)
	if side == strategy.None {
		return
	}

	margin := e.cfg.Sizing.MarginFor(e.acct.Balance, e.cfg.Leverage)
	if margin <= 0 {
		return
	}
	// Insufficient funds is a silent skip, never partial sizing.
	if !e.acct.CanReserve(margin) {
		return
	}

	limit := ref.Close
	qty := margin * e.cfg.Leverage / limit

	tp, sl := e.cfg.TakeProfitLong, e.cfg.StopLossLong
	if side == strategy.Short {
		tp, sl = e.cfg.TakeProfitShort, e.cfg.StopLossShort
	}

	e.acct.Balance -= margin
	e.slot.Place(PendingOrder{
		Side:          side,
		Limit:         limit,
		Quantity:      qty,
		Margin:        margin,
		TakeProfitPct: tp,
		StopLossPct:   sl,
		Created:       bar.OpenTime,
	})
	e.streak.Mark(side)
}

func (e *Engine) reference(closes []float64, snap *indicators.Snapshot, j int) (strategy.Ref, bool) {
	p := e.cfg.Strategy

	ref := strategy.Ref{Close: closes[j]}
	var ok bool
	if ref.Fast, ok = snap.At(p.FastWindow, j); !ok {
		return ref, false
	}
	if ref.Mid, ok = snap.At(p.MidWindow, j); !ok {
		return ref, false
	}
	if p.SlowWindow > 0 {
		if ref.Slow, ok = snap.At(p.SlowWindow, j); !ok {
			return ref, false
		}
	}
	return ref, true
}

// recordEquity appends the marked-to-market account value: free balance,
// frozen margin (open and pending) and unrealized P&L at the bar close.
func (e *Engine) recordEquity(bar market.Candle) {
	eq := e.acct.Balance
	marginUsed := 0.0

	for _, p := range e.positions {
		marginUsed += p.Margin
		eq += p.Margin + p.UnrealizedPnL(bar.Close)
	}
	if !e.slot.Empty() {
		marginUsed += e.slot.pending.Margin
		eq += e.slot.pending.Margin
	}

	e.equity = append(e.equity, EquitySample{Time: bar.OpenTime, Equity: eq})

	if e.jrnl != nil {
		_ = e.jrnl.RecordEquity(journal.EquitySnapshot{
			RunID:      e.runID,
			Time:       bar.OpenTime,
			Balance:    e.acct.Balance,
			Equity:     eq,
			MarginUsed: marginUsed,
			Reserve:    e.acct.Reserve,
		})
	}
}
