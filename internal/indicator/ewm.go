package indicator

// EWM is an exponentially weighted moving average in recursive form:
//
//	avg = alpha*value + (1-alpha)*avg_prev
//
// seeded with the first value it receives. O(1) per update.
type EWM struct {
	alpha   float64
	current float64
	count   int
}

// NewEWM creates an EWM with the given smoothing factor in (0, 1].
func NewEWM(alpha float64) *EWM {
	return &EWM{alpha: alpha}
}

// NewWilderEWM creates an EWM with alpha = 1/period (Wilder smoothing).
func NewWilderEWM(period int) *EWM {
	return NewEWM(1.0 / float64(period))
}

func (e *EWM) Name() string { return "EWM" }

func (e *EWM) Update(value float64) {
	e.count++
	if e.count == 1 {
		e.current = value
		return
	}
	e.current = e.alpha*value + (1-e.alpha)*e.current
}

func (e *EWM) Value() float64 { return e.current }
func (e *EWM) Ready() bool    { return e.count > 0 }

// Peek computes what Value() would be with an additional value without mutating state.
func (e *EWM) Peek(value float64) float64 {
	if e.count == 0 {
		return value
	}
	return e.alpha*value + (1-e.alpha)*e.current
}
