// Package backtest summarizes simulation results for reporting.
package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/quantbt/mabot/sim"
)

// Summary condenses a run into the headline numbers.
type Summary struct {
	FinalEquity   float64
	TotalReturn   float64 // percent of initial balance
	PeakEquity    float64
	PeakReturn    float64 // percent of initial balance
	Trades        int
	Wins          int
	Losses        int
	WinRate       float64 // percent
	TotalFees     float64
	StopLossExits int
	TakeProfits   int
	Bankrupt      bool
}

// Summarize computes the summary from a result. An empty equity curve (no
// processed bars) yields a zero summary.
func Summarize(r *sim.Result) Summary {
	var s Summary
	if r == nil || len(r.Equity) == 0 {
		return s
	}

	s.FinalEquity = r.Equity[len(r.Equity)-1].Equity
	s.TotalReturn = (s.FinalEquity - r.InitialBalance) / r.InitialBalance * 100

	for _, e := range r.Equity {
		if e.Equity > s.PeakEquity {
			s.PeakEquity = e.Equity
		}
	}
	s.PeakReturn = (s.PeakEquity - r.InitialBalance) / r.InitialBalance * 100

	s.Trades = len(r.Trades)
	for _, t := range r.Trades {
		if t.NetPnL > 0 {
			s.Wins++
		} else {
			s.Losses++
		}
		s.TotalFees += t.EntryFee + t.ExitFee
		switch t.Reason {
		case sim.ReasonStopLoss:
			s.StopLossExits++
		case sim.ReasonTakeProfit:
			s.TakeProfits++
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	}
	s.Bankrupt = r.Account.Bankrupt
	return s
}

// Print writes a human-readable report, one section per concern.
func Print(w io.Writer, r *sim.Result, s Summary) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Symbol:        %s\n", r.Symbol)
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", s.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", s.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", s.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRate)
	fmt.Fprintf(w, "Stop Losses:   %d\n", s.StopLossExits)
	fmt.Fprintf(w, "Take Profits:  %d\n", s.TakeProfits)
	fmt.Fprintf(w, "Fees Paid:     %.2f\n", s.TotalFees)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %.2f\n", r.InitialBalance)
	fmt.Fprintf(w, "Final Equity:  %.2f\n", s.FinalEquity)
	fmt.Fprintf(w, "Return:        %.2f%%\n", s.TotalReturn)
	fmt.Fprintf(w, "Peak Equity:   %.2f (%.2f%%)\n", s.PeakEquity, s.PeakReturn)
	fmt.Fprintf(w, "Reserve Left:  %.2f\n", r.Account.Reserve)

	if s.Bankrupt {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: balance was exhausted during the replay (bankrupt).")
		fmt.Fprintln(w, "Trades after that point are not economically meaningful.")
	}

	fmt.Fprintln(w)
}
