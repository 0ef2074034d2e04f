// Package indicator provides technical indicator calculations over price data.
//
// Indicators are streaming: they receive one close at a time and expose the
// current value plus a readiness flag. Batch helpers such as ComputeRSI run a
// streaming indicator over a whole series and return an aligned Series.
package indicator

// Indicator is the interface for all streaming technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "RSI", "EWM").
	Name() string

	// Update feeds the next close price and recalculates.
	Update(close float64)

	// Value returns the current calculated value. Meaningless until Ready.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Peek computes what Value() would be if close were added next,
	// WITHOUT mutating internal state.
	Peek(close float64) float64
}

// Reading is one indicator output aligned with one input bar.
// Ready=false marks an undefined entry (insufficient history).
type Reading struct {
	Value float64 `json:"value"`
	Ready bool    `json:"ready"`
}

// Series is an indicator output aligned 1:1 with its input series.
type Series []Reading

// Defined returns the value at i and whether it is defined.
func (s Series) Defined(i int) (float64, bool) {
	if i < 0 || i >= len(s) || !s[i].Ready {
		return 0, false
	}
	return s[i].Value, true
}

// Run feeds closes through ind and collects one Reading per close.
func Run(ind Indicator, closes []float64) Series {
	out := make(Series, len(closes))
	for i, c := range closes {
		ind.Update(c)
		out[i] = Reading{Value: ind.Value(), Ready: ind.Ready()}
	}
	return out
}
