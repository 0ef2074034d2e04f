package model

import "time"

// EquitySnapshot is the account capital recorded at one step.
type EquitySnapshot struct {
	Index   int       `json:"index"`
	TS      time.Time `json:"ts"`
	Capital float64   `json:"capital"`
}

// BacktestResult is the full output of one backtest run.
// Capital is realized-only: an open position at the end is reported through
// OpenPosition and does not move FinalCapital.
type BacktestResult struct {
	InitialCapital  float64          `json:"initial_capital"`
	FinalCapital    float64          `json:"final_capital"`
	Trades          []TradeEvent     `json:"trades"`
	Equity          []EquitySnapshot `json:"equity"`
	OpenPosition    Position         `json:"open_position"`
	HasOpenPosition bool             `json:"has_open_position"`
}

// TotalReturn is (final - initial) / initial.
func (r *BacktestResult) TotalReturn() float64 {
	if r.InitialCapital == 0 {
		return 0
	}
	return (r.FinalCapital - r.InitialCapital) / r.InitialCapital
}

// Opens counts "open" events, i.e. attempted entries.
func (r *BacktestResult) Opens() int {
	n := 0
	for _, t := range r.Trades {
		if t.Kind == TradeOpen {
			n++
		}
	}
	return n
}
