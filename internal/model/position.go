package model

// Position is the single open long position of a backtest run.
type Position struct {
	EntryPrice float64 `json:"entry_price"`
	Units      float64 `json:"units"`
	StopPrice  float64 `json:"stop_price"`
	EntryIndex int     `json:"entry_index"` // index into the PriceSeries
}

// UnrealizedPnL computes the open profit/loss at lastPrice.
func (p *Position) UnrealizedPnL(lastPrice float64) float64 {
	return (lastPrice - p.EntryPrice) * p.Units
}
