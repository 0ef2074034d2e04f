package model

import (
	"math"
	"testing"
	"time"
)

func bars(closes ...float64) PriceSeries {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := make(PriceSeries, len(closes))
	for i, c := range closes {
		s[i] = PriceBar{TS: t0.Add(time.Duration(i) * time.Hour), Open: c, High: c, Low: c, Close: c}
	}
	return s
}

func TestPriceSeries_Validate(t *testing.T) {
	dup := bars(1.1, 1.2)
	dup[1].TS = dup[0].TS

	nan := bars(1.1, 1.2)
	nan[1].Close = math.NaN()

	negVol := bars(1.1)
	negVol[0].Volume = -1

	tests := []struct {
		name    string
		series  PriceSeries
		wantErr bool
	}{
		{"valid", bars(1.1, 1.2, 1.15), false},
		{"empty", PriceSeries{}, true},
		{"duplicate ts", dup, true},
		{"nan close", nan, true},
		{"zero price", bars(1.1, 0), true},
		{"negative volume", negVol, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestPriceSeries_Closes(t *testing.T) {
	s := bars(1.1, 1.2, 1.3)
	closes := s.Closes()
	if len(closes) != 3 || closes[2] != 1.3 {
		t.Errorf("unexpected closes %v", closes)
	}
}

func TestBarRequest_Key(t *testing.T) {
	req := BarRequest{
		Symbol:   "EURUSD=X",
		Interval: "60m",
		From:     time.Unix(100, 0),
		To:       time.Unix(200, 0),
	}
	if got, want := req.Key(), "bars:EURUSD=X:60m:100:200"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestBacktestResult_TotalReturnAndOpens(t *testing.T) {
	r := BacktestResult{
		InitialCapital: 10000,
		FinalCapital:   10500,
		Trades: []TradeEvent{
			{Kind: TradeOpen}, {Kind: TradeClose}, {Kind: TradeOpen},
		},
	}
	if got := r.TotalReturn(); math.Abs(got-0.05) > 1e-12 {
		t.Errorf("TotalReturn() = %v, want 0.05", got)
	}
	if got := r.Opens(); got != 2 {
		t.Errorf("Opens() = %d, want 2", got)
	}
}
