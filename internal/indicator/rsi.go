package indicator

import (
	"math"

	"rsibot/internal/model"
)

// RSI calculates the Relative Strength Index with Wilder-style exponential
// smoothing (alpha = 1/period) of up and down moves, each seeded from the
// first price change. Update is O(1) per close.
//
// The first period closes produce no value; the reading at index period
// (the period+1-th close) is the first defined one.
type RSI struct {
	period    int
	count     int
	prevClose float64
	up        *EWM
	down      *EWM
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		up:     NewWilderEWM(period),
		down:   NewWilderEWM(period),
	}
}

func (r *RSI) Name() string { return "RSI" }

func (r *RSI) Update(close float64) {
	r.count++
	if r.count == 1 {
		// First close: record price, no delta yet
		r.prevClose = close
		return
	}

	delta := close - r.prevClose
	r.prevClose = close

	r.up.Update(math.Max(delta, 0))
	r.down.Update(math.Max(-delta, 0))
	r.current = rsiFromAverages(r.up.Value(), r.down.Value())
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.count > r.period }

// Peek computes what RSI would be with an additional close without mutating state.
func (r *RSI) Peek(close float64) float64 {
	if r.count == 0 {
		return r.current
	}
	delta := close - r.prevClose
	return rsiFromAverages(r.up.Peek(math.Max(delta, 0)), r.down.Peek(math.Max(-delta, 0)))
}

// rsiFromAverages maps smoothed up/down moves to [0, 100].
// A zero down-average saturates at 100, or sits at 50 when there was no
// movement at all.
func rsiFromAverages(avgUp, avgDown float64) float64 {
	if avgDown == 0 {
		if avgUp == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgUp / avgDown
	return 100.0 - (100.0 / (1.0 + rs))
}

// ComputeRSI returns the RSI of closes, aligned 1:1 with the input.
func ComputeRSI(closes []float64, period int) (Series, error) {
	if period < 1 {
		return nil, &model.ValidationError{Field: "period", Reason: "must be >= 1"}
	}
	if len(closes) == 0 {
		return nil, &model.ValidationError{Field: "closes", Reason: "at least one close is required"}
	}
	for _, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, &model.ValidationError{Field: "closes", Reason: "closes must be finite"}
		}
	}
	return Run(NewRSI(period), closes), nil
}
