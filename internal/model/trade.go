package model

import "time"

// TradeKind distinguishes entry and exit events in the trade log.
type TradeKind string

const (
	TradeOpen  TradeKind = "open"
	TradeClose TradeKind = "close"
)

// ExitReason records what closed a position.
type ExitReason string

const (
	ExitSignal    ExitReason = "signal"      // indicator crossed the sell threshold
	ExitStop      ExitReason = "stop"        // close at or below the stop price
	ExitEndOfData ExitReason = "end_of_data" // force-closed at the last bar
)

// TradeEvent is an immutable entry in the trade log.
// Profit and Reason are only meaningful on close events; a breakeven close
// still reports profit 0.
type TradeEvent struct {
	Kind   TradeKind  `json:"kind"`
	Price  float64    `json:"price"`
	Index  int        `json:"index"`
	TS     time.Time  `json:"ts"`
	Units  float64    `json:"units"`
	Profit float64    `json:"profit"`
	Reason ExitReason `json:"reason,omitempty"`
}
