package model

import (
	"math"
	"strconv"
	"time"
)

// PriceBar is one OHLCV sample of a price series.
// Prices are in quote currency units (e.g. USD per EUR for EURUSD).
type PriceBar struct {
	TS     time.Time `json:"ts"` // bar start time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ordered run of bars, strictly increasing by TS.
type PriceSeries []PriceBar

// Closes returns the close column of the series.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// Timestamps returns the TS column of the series.
func (s PriceSeries) Timestamps() []time.Time {
	ts := make([]time.Time, len(s))
	for i, b := range s {
		ts[i] = b.TS
	}
	return ts
}

// Validate checks ordering and value sanity. An empty series is invalid.
func (s PriceSeries) Validate() error {
	if len(s) == 0 {
		return &ValidationError{Field: "prices", Reason: "price series is empty"}
	}
	for i, b := range s {
		if i > 0 && !b.TS.After(s[i-1].TS) {
			return &ValidationError{
				Field:  "prices[" + strconv.Itoa(i) + "].ts",
				Reason: "timestamps must be strictly increasing",
			}
		}
		for _, p := range [...]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
				return &ValidationError{
					Field:  "prices[" + strconv.Itoa(i) + "]",
					Reason: "prices must be finite and positive",
				}
			}
		}
		if math.IsNaN(b.Volume) || b.Volume < 0 {
			return &ValidationError{
				Field:  "prices[" + strconv.Itoa(i) + "].volume",
				Reason: "volume must be non-negative",
			}
		}
	}
	return nil
}
