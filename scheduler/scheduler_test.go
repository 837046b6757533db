package scheduler

import (
	"testing"
	"time"
)

func TestWaitHeapOrdersByDeadline(t *testing.T) {
	var h waitHeap
	base := time.Now()
	order := []time.Duration{30, 10, 50, 20, 40}
	for _, d := range order {
		h.push(&waitingTask{deadline: base.Add(d * time.Millisecond)})
	}
	var got []time.Duration
	for h.len() > 0 {
		w, ok := h.pop()
		if !ok {
			t.Fatalf("pop reported empty while len() > 0")
		}
		got = append(got, w.deadline.Sub(base))
	}
	want := []time.Duration{10, 20, 30, 40, 50}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i]*time.Millisecond {
			t.Fatalf("index %d: expected %v, got %v", i, want[i]*time.Millisecond, got[i])
		}
	}
}

func TestWaitHeapPeekDoesNotRemove(t *testing.T) {
	var h waitHeap
	now := time.Now()
	h.push(&waitingTask{deadline: now})
	if _, ok := h.peek(); !ok {
		t.Fatalf("expected peek to find the pushed entry")
	}
	if h.len() != 1 {
		t.Fatalf("expected peek to leave the heap untouched, len=%d", h.len())
	}
}

func TestWaitHeapEmptyPopAndPeek(t *testing.T) {
	var h waitHeap
	if _, ok := h.pop(); ok {
		t.Fatalf("expected pop on an empty heap to report not-ok")
	}
	if _, ok := h.peek(); ok {
		t.Fatalf("expected peek on an empty heap to report not-ok")
	}
}

// Exercises the reactor goroutine end to end: a wake channel closes once
// its deadline elapses, and two tasks with different deadlines wake in
// deadline order (spec.md §4.E "waiting-set... ordered by deadline").
func TestReactorWakesInDeadlineOrder(t *testing.T) {
	r := newReactor()
	defer r.close()

	start := time.Now()
	lateWake := r.parkUntil(start.Add(60 * time.Millisecond))
	earlyWake := r.parkUntil(start.Add(20 * time.Millisecond))

	select {
	case <-earlyWake:
	case <-time.After(2 * time.Second):
		t.Fatalf("earlyWake never closed")
	}

	select {
	case <-lateWake:
		t.Fatalf("lateWake closed before its deadline elapsed")
	default:
	}

	select {
	case <-lateWake:
	case <-time.After(2 * time.Second):
		t.Fatalf("lateWake never closed")
	}
}

func TestReactorParkUntilPastDeadlineWakesPromptly(t *testing.T) {
	r := newReactor()
	defer r.close()

	wake := r.parkUntil(time.Now().Add(-time.Millisecond))
	select {
	case <-wake:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected an already-due deadline to wake promptly")
	}
}
