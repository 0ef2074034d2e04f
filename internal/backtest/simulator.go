// Package backtest runs the long-only RSI trading rule over a price series.
//
// The Simulator is a two-state machine (FLAT, LONG). Each Step records the
// current capital, then applies the entry rule when FLAT or the exit rule
// when LONG. Capital is mark-to-cost: it only changes when a position closes.
package backtest

import (
	"strconv"

	"rsibot/internal/indicator"
	"rsibot/internal/model"
)

// Simulator holds the state of one backtest run. Not safe for concurrent use;
// create one per run.
type Simulator struct {
	cfg    Config
	prices model.PriceSeries
	ind    indicator.Series

	state    State
	capital  float64
	position model.Position
	next     int

	trades []model.TradeEvent
	equity []model.EquitySnapshot
}

// NewSimulator validates inputs and returns a simulator positioned at step 0.
func NewSimulator(prices model.PriceSeries, ind indicator.Series, cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if len(ind) != len(prices) {
		return nil, &model.ValidationError{
			Field:  "indicator",
			Reason: "length " + strconv.Itoa(len(ind)) + " does not match price series length " + strconv.Itoa(len(prices)),
		}
	}
	return &Simulator{
		cfg:     cfg,
		prices:  prices,
		ind:     ind,
		state:   StateFlat,
		capital: cfg.InitialCapital,
		trades:  make([]model.TradeEvent, 0, 16),
		equity:  make([]model.EquitySnapshot, 0, len(prices)),
	}, nil
}

// State returns the current position state.
func (s *Simulator) State() State { return s.state }

// Capital returns the current realized capital.
func (s *Simulator) Capital() float64 { return s.capital }

// Position returns a copy of the open position and whether one exists.
func (s *Simulator) Position() (model.Position, bool) {
	return s.position, s.state == StateLong
}

// Done reports whether every bar has been processed.
func (s *Simulator) Done() bool { return s.next >= len(s.prices) }

// Step processes the next bar and returns the transition taken.
// Calling Step after Done is a no-op that returns the idle transition.
func (s *Simulator) Step() Transition {
	if s.Done() {
		if s.state == StateLong {
			return StayLong
		}
		return StayFlat
	}
	i := s.next
	s.next++

	bar := s.prices[i]
	s.equity = append(s.equity, model.EquitySnapshot{Index: i, TS: bar.TS, Capital: s.capital})

	rsi, ready := s.ind.Defined(i)

	switch s.state {
	case StateFlat:
		if !ready || rsi >= s.cfg.BuyThreshold {
			return StayFlat
		}
		stop := bar.Close - s.cfg.StopDistance
		riskPerUnit := bar.Close - stop
		if riskPerUnit <= 0 {
			return StayFlat
		}
		units := s.capital * s.cfg.RiskFraction / riskPerUnit
		s.open(i, bar, units, stop)
		return OpenLong

	case StateLong:
		stopHit := bar.Close <= s.position.StopPrice
		sellSignal := ready && rsi > s.cfg.SellThreshold
		if !stopHit && !sellSignal {
			return StayLong
		}
		reason := model.ExitSignal
		if stopHit {
			reason = model.ExitStop
		}
		s.close(i, bar, reason)
		return CloseLong
	}
	return StayFlat
}

func (s *Simulator) open(i int, bar model.PriceBar, units, stop float64) {
	s.position = model.Position{
		EntryPrice: bar.Close,
		Units:      units,
		StopPrice:  stop,
		EntryIndex: i,
	}
	s.state = StateLong
	s.trades = append(s.trades, model.TradeEvent{
		Kind:  model.TradeOpen,
		Price: bar.Close,
		Index: i,
		TS:    bar.TS,
		Units: units,
	})
}

func (s *Simulator) close(i int, bar model.PriceBar, reason model.ExitReason) {
	profit := (bar.Close - s.position.EntryPrice) * s.position.Units
	s.capital += profit
	s.trades = append(s.trades, model.TradeEvent{
		Kind:   model.TradeClose,
		Price:  bar.Close,
		Index:  i,
		TS:     bar.TS,
		Units:  s.position.Units,
		Profit: profit,
		Reason: reason,
	})
	s.position = model.Position{}
	s.state = StateFlat
}

// Result finalizes the run. When MarkOpenPositionAtEnd is set, a position
// still open is closed at the last bar; otherwise it is reported as open and
// excluded from FinalCapital.
func (s *Simulator) Result() *model.BacktestResult {
	if s.state == StateLong && s.cfg.MarkOpenPositionAtEnd && s.Done() {
		last := len(s.prices) - 1
		s.close(last, s.prices[last], model.ExitEndOfData)
	}

	res := &model.BacktestResult{
		InitialCapital: s.cfg.InitialCapital,
		FinalCapital:   s.capital,
		Trades:         make([]model.TradeEvent, len(s.trades)),
		Equity:         make([]model.EquitySnapshot, len(s.equity)),
	}
	copy(res.Trades, s.trades)
	copy(res.Equity, s.equity)
	if s.state == StateLong {
		res.OpenPosition = s.position
		res.HasOpenPosition = true
	}
	return res
}

// Run simulates the whole series and returns the result.
func Run(prices model.PriceSeries, ind indicator.Series, cfg Config) (*model.BacktestResult, error) {
	sim, err := NewSimulator(prices, ind, cfg)
	if err != nil {
		return nil, err
	}
	for !sim.Done() {
		sim.Step()
	}
	return sim.Result(), nil
}
