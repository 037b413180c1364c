package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRingEvictsOldestFirst(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	want := []int{3, 4, 5}
	if diff := cmp.Diff(want, r.Items()); diff != "" {
		t.Errorf("ring items mismatch (-want +got):\n%s", diff)
	}
	if r.Len() != 3 {
		t.Errorf("expected len 3, got %d", r.Len())
	}
}

func TestRingLast(t *testing.T) {
	r := NewRing[string](2)

	if _, ok := r.Last(); ok {
		t.Fatal("expected no last item on empty ring")
	}

	r.Push("a")
	r.Push("b")
	r.Push("c")

	last, ok := r.Last()
	if !ok || last != "c" {
		t.Errorf("expected last=c, got %q (ok=%v)", last, ok)
	}
}

func TestRingClampsCapacity(t *testing.T) {
	r := NewRing[int](0)
	r.Push(1)
	r.Push(2)
	if r.Cap() != 1 || r.Len() != 1 {
		t.Errorf("expected cap=1 len=1, got cap=%d len=%d", r.Cap(), r.Len())
	}
}

func TestOrderStateInFlow(t *testing.T) {
	inFlow := []OrderState{OrderStateWaitingQuantity, OrderStateWaitingAddrPhone, OrderStateConfirming, OrderStateProcessing}
	for _, s := range inFlow {
		if !s.InFlow() {
			t.Errorf("expected %s to be in flow", s)
		}
	}
	for _, s := range []OrderState{OrderStateNone, OrderStateCompleted, OrderStateCancelled} {
		if s.InFlow() {
			t.Errorf("expected %s to be out of flow", s)
		}
	}
}
