package ringbuf

import (
	"sync"
	"testing"
)

func TestRing_PushSnapshot(t *testing.T) {
	r := New[string](4)
	r.Push("a")
	r.Push("b")

	got := r.Snapshot()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("snapshot = %v", got)
	}
	if r.Len() != 2 || r.Dropped() != 0 {
		t.Errorf("len=%d dropped=%d", r.Len(), r.Dropped())
	}
}

func TestRing_OverwritesOldest(t *testing.T) {
	r := New[int](2)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	got := r.Snapshot()
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Fatalf("snapshot = %v, want [4 5]", got)
	}
	if r.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", r.Dropped())
	}
}

func TestRing_CapacityRounding(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 2}, {1, 2}, {2, 2}, {3, 4}, {5, 8}, {16, 16}, {17, 32},
	}
	for _, tt := range tests {
		if got := New[int](tt.in).Cap(); got != tt.want {
			t.Errorf("New(%d).Cap() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRing_ConcurrentProducers(t *testing.T) {
	r := New[int](64)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Push(i)
				r.Snapshot()
			}
		}()
	}
	wg.Wait()

	if r.Len() != 64 {
		t.Errorf("len = %d, want 64", r.Len())
	}
	if r.Dropped() != 800-64 {
		t.Errorf("dropped = %d, want %d", r.Dropped(), 800-64)
	}
}
