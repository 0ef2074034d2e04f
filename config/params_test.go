package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rsibot/internal/model"
)

var testNow = time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)

func TestDefaultParams_Valid(t *testing.T) {
	p := DefaultParams(testNow)
	if err := p.Validate(); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if p.End != "2024-06-01" {
		t.Errorf("End = %q, want today", p.End)
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		field  string
	}{
		{"empty symbol", func(p *Params) { p.Symbol = " " }, "symbol"},
		{"bad start", func(p *Params) { p.Start = "01/01/2020" }, "start"},
		{"end before start", func(p *Params) { p.End = "2019-12-31" }, "end"},
		{"period low", func(p *Params) { p.RSIPeriod = 4 }, "rsi_period"},
		{"period high", func(p *Params) { p.RSIPeriod = 31 }, "rsi_period"},
		{"buy low", func(p *Params) { p.BuyThreshold = 9 }, "buy_threshold"},
		{"sell high", func(p *Params) { p.SellThreshold = 91 }, "sell_threshold"},
		{"capital low", func(p *Params) { p.InitialCapital = 999 }, "initial_capital"},
		{"risk high", func(p *Params) { p.RiskPercent = 5.1 }, "risk_percent"},
		{"stop low", func(p *Params) { p.StopPips = 5 }, "stop_pips"},
		{"buy equals sell", func(p *Params) { p.BuyThreshold, p.SellThreshold = 50, 50 }, "sell_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams(testNow)
			tt.mutate(&p)
			err := p.Validate()
			ve, ok := err.(*model.ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestParams_BacktestConfig(t *testing.T) {
	p := DefaultParams(testNow)
	p.RiskPercent = 2.5
	p.StopPips = 20
	p.MarkOpenAtEnd = true

	cfg := p.BacktestConfig()
	if math.Abs(cfg.RiskFraction-0.025) > 1e-12 {
		t.Errorf("RiskFraction = %v, want 0.025", cfg.RiskFraction)
	}
	if math.Abs(cfg.StopDistance-0.002) > 1e-12 {
		t.Errorf("StopDistance = %v, want 0.002", cfg.StopDistance)
	}
	if !cfg.MarkOpenPositionAtEnd || cfg.InitialCapital != 10000 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestParams_BarRequest(t *testing.T) {
	p := DefaultParams(testNow)
	req, err := p.BarRequest()
	if err != nil {
		t.Fatalf("BarRequest: %v", err)
	}
	if req.Symbol != "EURUSD=X" || req.Interval != "60m" {
		t.Errorf("unexpected request %+v", req)
	}
	if !req.From.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("From = %v", req.From)
	}
	if !req.To.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("To = %v", req.To)
	}
}

func TestLoadParamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	data := []byte(`
symbol: GBPUSD=X
start: "2023-01-01"
end: "2023-06-30"
rsi_period: 21
buy_threshold: 25
stop_pips: 35
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadParamsFile(path, testNow)
	if err != nil {
		t.Fatalf("LoadParamsFile: %v", err)
	}
	if p.Symbol != "GBPUSD=X" || p.RSIPeriod != 21 || p.BuyThreshold != 25 || p.StopPips != 35 {
		t.Errorf("overrides not applied: %+v", p)
	}
	// Unset fields keep their defaults
	if p.SellThreshold != 70 || p.InitialCapital != 10000 || p.Interval != "60m" {
		t.Errorf("defaults lost: %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("loaded params should be valid: %v", err)
	}
}

func TestLoadParamsFile_Errors(t *testing.T) {
	if _, err := LoadParamsFile(filepath.Join(t.TempDir(), "missing.yaml"), testNow); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("rsi_period: [1, 2"), 0o644)
	if _, err := LoadParamsFile(path, testNow); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
