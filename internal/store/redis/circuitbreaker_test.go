package redis

import (
	"errors"
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(max int, coolDown time.Duration) (*Breaker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := NewBreaker(max, coolDown)
	b.now = clk.Now
	return b, clk
}

var errFail = errors.New("fail")

func fail() error { return errFail }
func ok() error   { return nil }

func TestBreaker_StartsClosed(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)
	if b.State() != BreakerClosed {
		t.Errorf("expected closed, got %v", b.State())
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)

	for i := 0; i < 3; i++ {
		if err := b.Do(fail); err != errFail {
			t.Fatalf("call %d: expected errFail, got %v", i, err)
		}
	}
	if b.State() != BreakerOpen {
		t.Fatalf("expected open after 3 failures, got %v", b.State())
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)

	b.Do(fail)
	b.Do(fail)
	b.Do(ok)
	b.Do(fail)
	b.Do(fail)

	if b.State() != BreakerClosed {
		t.Errorf("non-consecutive failures must not trip, got %v", b.State())
	}
}

func TestBreaker_ProbeSuccessCloses(t *testing.T) {
	b, clk := newTestBreaker(2, time.Second)
	b.Do(fail)
	b.Do(fail)

	clk.Advance(500 * time.Millisecond)
	if err := b.Do(ok); err != ErrCircuitOpen {
		t.Fatalf("expected rejection during cool-down, got %v", err)
	}

	clk.Advance(600 * time.Millisecond)
	if err := b.Do(ok); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected closed after good probe, got %v", b.State())
	}
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b, clk := newTestBreaker(2, time.Second)
	b.Do(fail)
	b.Do(fail)

	clk.Advance(2 * time.Second)
	b.Do(fail)
	if b.State() != BreakerOpen {
		t.Fatalf("expected open after failed probe, got %v", b.State())
	}

	// cool-down restarts from the failed probe
	clk.Advance(500 * time.Millisecond)
	if err := b.Do(ok); err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_SingleProbe(t *testing.T) {
	b, clk := newTestBreaker(1, time.Second)
	b.Do(fail)
	clk.Advance(2 * time.Second)

	err := b.Do(func() error {
		// a concurrent caller during the probe is rejected
		if inner := b.Do(ok); inner != ErrCircuitOpen {
			t.Errorf("expected second caller rejected, got %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected closed, got %v", b.State())
	}
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	b, clk := newTestBreaker(1, time.Second)

	var seen []string
	b.OnStateChange = func(from, to BreakerState) {
		seen = append(seen, from.String()+"->"+to.String())
	}

	b.Do(fail)
	clk.Advance(2 * time.Second)
	b.Do(ok)

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, seen[i], want[i])
		}
	}
}
