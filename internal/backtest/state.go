package backtest

// State is the simulator's position state.
type State int

const (
	StateFlat State = 0 // no open position
	StateLong State = 1 // exactly one long position open
)

func (s State) String() string {
	switch s {
	case StateFlat:
		return "flat"
	case StateLong:
		return "long"
	default:
		return "unknown"
	}
}

// Transition names the edge taken by one Step.
type Transition int

const (
	StayFlat  Transition = iota // FLAT → FLAT
	OpenLong                    // FLAT → LONG
	StayLong                    // LONG → LONG
	CloseLong                   // LONG → FLAT
)

func (t Transition) String() string {
	switch t {
	case StayFlat:
		return "stay_flat"
	case OpenLong:
		return "open_long"
	case StayLong:
		return "stay_long"
	case CloseLong:
		return "close_long"
	default:
		return "unknown"
	}
}
