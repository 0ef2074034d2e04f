package backtest

import "rsibot/internal/model"

// Config holds the trading rule and money management parameters for one run.
type Config struct {
	BuyThreshold   float64 `json:"buy_threshold"`   // open when RSI < this, in (0,100)
	SellThreshold  float64 `json:"sell_threshold"`  // close when RSI > this, in (0,100)
	InitialCapital float64 `json:"initial_capital"` // account currency
	RiskFraction   float64 `json:"risk_fraction"`   // capital at risk per trade, in (0,1]
	StopDistance   float64 `json:"stop_distance"`   // absolute price units below entry

	// MarkOpenPositionAtEnd closes a position still open at the last bar at
	// that bar's close. Off by default: capital is realized-only.
	MarkOpenPositionAtEnd bool `json:"mark_open_position_at_end"`
}

// Validate checks the parameter domains.
func (c Config) Validate() error {
	switch {
	case !(c.BuyThreshold > 0 && c.BuyThreshold < 100):
		return &model.ValidationError{Field: "buy_threshold", Reason: "must be in (0,100)"}
	case !(c.SellThreshold > 0 && c.SellThreshold < 100):
		return &model.ValidationError{Field: "sell_threshold", Reason: "must be in (0,100)"}
	case c.SellThreshold <= c.BuyThreshold:
		return &model.ValidationError{Field: "sell_threshold", Reason: "must be greater than buy_threshold"}
	case !(c.InitialCapital > 0):
		return &model.ValidationError{Field: "initial_capital", Reason: "must be positive"}
	case !(c.RiskFraction > 0 && c.RiskFraction <= 1):
		return &model.ValidationError{Field: "risk_fraction", Reason: "must be in (0,1]"}
	case !(c.StopDistance > 0):
		return &model.ValidationError{Field: "stop_distance", Reason: "must be positive"}
	}
	return nil
}
