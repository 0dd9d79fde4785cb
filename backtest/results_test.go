package backtest

import (
	"strings"
	"testing"
	"time"

	"github.com/quantbt/mabot/sim"
	"github.com/quantbt/mabot/strategy"
	"github.com/stretchr/testify/assert"
)

func sampleResult() *sim.Result {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &sim.Result{
		Symbol:         "BTCUSDT",
		Start:          t0,
		End:            t0.Add(time.Hour),
		InitialBalance: 1000,
		InitialReserve: 100,
		Account:        sim.Account{Balance: 1040, Reserve: 100},
		Trades: []sim.ClosedTrade{
			{Seq: 1, Side: strategy.Long, NetPnL: 60, EntryFee: 0.5, ExitFee: 0.5, Reason: sim.ReasonTakeProfit},
			{Seq: 2, Side: strategy.Short, NetPnL: -15, EntryFee: 0.4, ExitFee: 0.4, Reason: sim.ReasonStopLoss},
			{Seq: 3, Side: strategy.Long, NetPnL: -5, EntryFee: 0.3, ExitFee: 0.3, Reason: sim.ReasonStopLoss},
		},
		Equity: []sim.EquitySample{
			{Time: t0, Equity: 1000},
			{Time: t0.Add(time.Minute), Equity: 1075},
			{Time: t0.Add(2 * time.Minute), Equity: 1040},
		},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(sampleResult())

	assert.Equal(t, 1040.0, s.FinalEquity)
	assert.InDelta(t, 4.0, s.TotalReturn, 1e-9)
	assert.Equal(t, 1075.0, s.PeakEquity)
	assert.InDelta(t, 7.5, s.PeakReturn, 1e-9)

	assert.Equal(t, 3, s.Trades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 100.0/3, s.WinRate, 1e-9)
	assert.InDelta(t, 2.4, s.TotalFees, 1e-9)
	assert.Equal(t, 2, s.StopLossExits)
	assert.Equal(t, 1, s.TakeProfits)
	assert.False(t, s.Bankrupt)
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Summary{}, Summarize(nil))
	assert.Equal(t, Summary{}, Summarize(&sim.Result{InitialBalance: 1000}))
}

func TestSummarizeBankrupt(t *testing.T) {
	t.Parallel()

	r := sampleResult()
	r.Account.Bankrupt = true
	assert.True(t, Summarize(r).Bankrupt)
}

func TestPrint(t *testing.T) {
	t.Parallel()

	r := sampleResult()
	s := Summarize(r)

	var b strings.Builder
	Print(&b, r, s)
	out := b.String()

	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "Trades:        3")
	assert.Contains(t, out, "Win Rate:      33.33%")
	assert.Contains(t, out, "Final Equity:  1040.00")
	assert.Contains(t, out, "Return:        4.00%")
	assert.NotContains(t, out, "WARNING")

	r.Account.Bankrupt = true
	s = Summarize(r)
	b.Reset()
	Print(&b, r, s)
	assert.Contains(t, b.String(), "WARNING: balance was exhausted")
}
