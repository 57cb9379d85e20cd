package ramp

import (
	"math"
	"testing"
)

func TestParamHoldsInitialValue(t *testing.T) {
	p := New(0.25)
	for _, at := range []float64{-1, 0, 3.5} {
		if got := p.ValueAt(at); got != 0.25 {
			t.Fatalf("ValueAt(%v) = %v, want 0.25", at, got)
		}
	}
}

func TestLinearRampInterpolatesFromPreviousEvent(t *testing.T) {
	p := New(0)
	p.SetValueAt(0.2, 1)
	p.LinearRampTo(1, 2)

	if got := p.ValueAt(0.5); got != 0 {
		t.Fatalf("before step: got %v, want 0", got)
	}
	if got := p.ValueAt(1.5); math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("mid ramp: got %v, want 0.6", got)
	}
	if got := p.ValueAt(5); got != 1 {
		t.Fatalf("after ramp: got %v, want 1", got)
	}
}

func TestChainedRampsFollowEachOther(t *testing.T) {
	p := New(0)
	p.SetValueAt(0, 0)
	p.LinearRampTo(1, 0.1)
	p.LinearRampTo(0.5, 0.3)

	if got := p.ValueAt(0.1); math.Abs(got-1) > 1e-9 {
		t.Fatalf("peak: got %v, want 1", got)
	}
	if got := p.ValueAt(0.2); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("second ramp midpoint: got %v, want 0.75", got)
	}
}

func TestSetTargetApproachesExponentially(t *testing.T) {
	p := New(1)
	p.SetTargetAt(0, 1, 0.05)

	if got := p.ValueAt(1); got != 1 {
		t.Fatalf("at start: got %v, want 1", got)
	}
	want := math.Exp(-1)
	if got := p.ValueAt(1.05); math.Abs(got-want) > 1e-9 {
		t.Fatalf("after one tau: got %v, want %v", got, want)
	}
	if got := p.ValueAt(2); got > 1e-6 {
		t.Fatalf("long after: got %v, want ~0", got)
	}
}

func TestLinearRampAfterTargetReplacesApproach(t *testing.T) {
	p := New(1)
	p.SetTargetAt(0, 0, 0.05)
	p.LinearRampTo(0.5, 1)

	if got := p.ValueAt(0); got != 1 {
		t.Fatalf("at target start: got %v, want 1", got)
	}
	if got := p.ValueAt(0.5); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("ramp midpoint: got %v, want 0.75", got)
	}

	// Holding first ramps from how far the approach had moved.
	q := New(1)
	q.SetTargetAt(0, 0, 0.05)
	held := q.Hold(0.05)
	q.LinearRampTo(0.5, 1.05)
	if math.Abs(held-math.Exp(-1)) > 1e-9 {
		t.Fatalf("held = %v, want %v", held, math.Exp(-1))
	}
	want := held + (0.5-held)/2
	if got := q.ValueAt(0.55); math.Abs(got-want) > 1e-9 {
		t.Fatalf("held ramp midpoint: got %v, want %v", got, want)
	}
}

func TestHoldPinsCurrentValueAndCancelsFuture(t *testing.T) {
	p := New(0)
	p.SetValueAt(0, 0)
	p.LinearRampTo(1, 1)

	v := p.Hold(0.5)
	if math.Abs(v-0.5) > 1e-9 {
		t.Fatalf("held value = %v, want 0.5", v)
	}
	if got := p.ValueAt(2); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("after hold the ramp should be gone: got %v", got)
	}
	if p.Pending(0.5) {
		t.Fatalf("held param should have nothing pending")
	}
}

func TestCancelFromKeepsEarlierEvents(t *testing.T) {
	p := New(0)
	p.SetValueAt(0.3, 1)
	p.SetValueAt(0.9, 2)
	p.CancelFrom(2)

	if got := p.ValueAt(3); got != 0.3 {
		t.Fatalf("got %v, want 0.3", got)
	}
}

func TestGlideIsContinuous(t *testing.T) {
	p := New(440)
	p.Glide(880, 1, 0.01)

	if got := p.ValueAt(1); got != 440 {
		t.Fatalf("glide start: got %v, want 440", got)
	}
	if got := p.ValueAt(1.001); got <= 440 || got >= 880 {
		t.Fatalf("glide should be between endpoints, got %v", got)
	}
	if got := p.ValueAt(1.2); math.Abs(got-880) > 0.01 {
		t.Fatalf("glide settles: got %v, want ~880", got)
	}
}

func TestEventsStayOrderedWhenInsertedOutOfOrder(t *testing.T) {
	p := New(0)
	p.SetValueAt(2, 2)
	p.SetValueAt(1, 1)

	if got := p.ValueAt(1.5); got != 1 {
		t.Fatalf("got %v, want 1", got)
	}
	if got := p.ValueAt(2.5); got != 2 {
		t.Fatalf("got %v, want 2", got)
	}
}
