package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rsibot/internal/backtest"
	"rsibot/internal/model"
)

// DateLayout is the calendar date format used for Start and End.
const DateLayout = "2006-01-02"

// PipSize converts pips to price units for four-decimal FX quotes.
const PipSize = 1.0 / 10000

// Range is an inclusive [Min, Max] bound for a user parameter.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Ranges are the allowed bounds of every tunable parameter.
type Ranges struct {
	RSIPeriod      Range `json:"rsi_period"`
	BuyThreshold   Range `json:"buy_threshold"`
	SellThreshold  Range `json:"sell_threshold"`
	InitialCapital Range `json:"initial_capital"`
	RiskPercent    Range `json:"risk_percent"`
	StopPips       Range `json:"stop_pips"`
}

// ParamRanges mirrors the dashboard's slider and input limits.
var ParamRanges = Ranges{
	RSIPeriod:      Range{Min: 5, Max: 30},
	BuyThreshold:   Range{Min: 10, Max: 50},
	SellThreshold:  Range{Min: 50, Max: 90},
	InitialCapital: Range{Min: 1000, Max: 100000},
	RiskPercent:    Range{Min: 0.1, Max: 5.0},
	StopPips:       Range{Min: 10, Max: 200},
}

// Params are the user-adjustable inputs of one backtest run.
type Params struct {
	Symbol         string  `json:"symbol" yaml:"symbol"`
	Start          string  `json:"start" yaml:"start"` // YYYY-MM-DD, inclusive
	End            string  `json:"end" yaml:"end"`     // YYYY-MM-DD, exclusive
	Interval       string  `json:"interval" yaml:"interval"`
	RSIPeriod      int     `json:"rsi_period" yaml:"rsi_period"`
	BuyThreshold   float64 `json:"buy_threshold" yaml:"buy_threshold"`
	SellThreshold  float64 `json:"sell_threshold" yaml:"sell_threshold"`
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	RiskPercent    float64 `json:"risk_percent" yaml:"risk_percent"`
	StopPips       float64 `json:"stop_pips" yaml:"stop_pips"`
	MarkOpenAtEnd  bool    `json:"mark_open_at_end" yaml:"mark_open_at_end"`
}

// DefaultParams returns the dashboard defaults with End set to today.
func DefaultParams(now time.Time) Params {
	return Params{
		Symbol:         "EURUSD=X",
		Start:          "2020-01-01",
		End:            now.UTC().Format(DateLayout),
		Interval:       "60m",
		RSIPeriod:      14,
		BuyThreshold:   30,
		SellThreshold:  70,
		InitialCapital: 10000,
		RiskPercent:    1.0,
		StopPips:       20,
	}
}

// Window parses Start and End.
func (p Params) Window() (from, to time.Time, err error) {
	from, err = time.ParseInLocation(DateLayout, p.Start, time.UTC)
	if err != nil {
		return from, to, &model.ValidationError{Field: "start", Reason: "expected YYYY-MM-DD"}
	}
	to, err = time.ParseInLocation(DateLayout, p.End, time.UTC)
	if err != nil {
		return from, to, &model.ValidationError{Field: "end", Reason: "expected YYYY-MM-DD"}
	}
	if !to.After(from) {
		return from, to, &model.ValidationError{Field: "end", Reason: "must be after start"}
	}
	return from, to, nil
}

// Validate checks every parameter against ParamRanges.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Symbol) == "" {
		return &model.ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.Interval) == "" {
		return &model.ValidationError{Field: "interval", Reason: "must not be empty"}
	}
	if _, _, err := p.Window(); err != nil {
		return err
	}
	checks := []struct {
		field string
		v     float64
		r     Range
	}{
		{"rsi_period", float64(p.RSIPeriod), ParamRanges.RSIPeriod},
		{"buy_threshold", p.BuyThreshold, ParamRanges.BuyThreshold},
		{"sell_threshold", p.SellThreshold, ParamRanges.SellThreshold},
		{"initial_capital", p.InitialCapital, ParamRanges.InitialCapital},
		{"risk_percent", p.RiskPercent, ParamRanges.RiskPercent},
		{"stop_pips", p.StopPips, ParamRanges.StopPips},
	}
	for _, c := range checks {
		if !c.r.contains(c.v) {
			return &model.ValidationError{
				Field:  c.field,
				Reason: fmt.Sprintf("%g outside [%g, %g]", c.v, c.r.Min, c.r.Max),
			}
		}
	}
	return p.BacktestConfig().Validate()
}

// BacktestConfig converts user units (percent, pips) to simulator units.
func (p Params) BacktestConfig() backtest.Config {
	return backtest.Config{
		BuyThreshold:          p.BuyThreshold,
		SellThreshold:         p.SellThreshold,
		InitialCapital:        p.InitialCapital,
		RiskFraction:          p.RiskPercent / 100,
		StopDistance:          p.StopPips * PipSize,
		MarkOpenPositionAtEnd: p.MarkOpenAtEnd,
	}
}

// BarRequest builds the data request for these params.
func (p Params) BarRequest() (model.BarRequest, error) {
	from, to, err := p.Window()
	if err != nil {
		return model.BarRequest{}, err
	}
	return model.BarRequest{Symbol: p.Symbol, Interval: p.Interval, From: from, To: to}, nil
}

// LoadParamsFile reads a YAML parameter file layered over DefaultParams(now).
func LoadParamsFile(path string, now time.Time) (Params, error) {
	p := DefaultParams(now)
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse params file %s: %w", path, err)
	}
	return p, nil
}
