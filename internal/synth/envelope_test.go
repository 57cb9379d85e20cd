package synth

import (
	"math"
	"testing"

	"github.com/cbegin/polysynth-go/internal/ramp"
)

func TestAttackPlanFromCurrentGain(t *testing.T) {
	env := Envelope{Attack: 0.1, Decay: 0.2, Sustain: 0.5, Release: 0.3}
	amp := ramp.New(0.4)
	plan := AttackPlan(1, 1, env)
	plan.Apply(&amp, 1)

	if math.Abs(plan.AttackEnd-1.1) > 1e-12 || math.Abs(plan.DecayEnd-1.3) > 1e-12 {
		t.Fatalf("attackEnd=%f decayEnd=%f", plan.AttackEnd, plan.DecayEnd)
	}
	cases := []struct{ at, want float64 }{
		{1, 0.4},
		{1.05, 0.7},
		{1.1, 1},
		{1.2, 0.75},
		{1.3, 0.5},
		{5, 0.5},
	}
	for _, c := range cases {
		if got := amp.ValueAt(c.at); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("gain at %.2f = %f, want %f", c.at, got, c.want)
		}
	}
}

func TestAttackPlanClampsZeroTimes(t *testing.T) {
	plan := AttackPlan(0, 0, Envelope{Sustain: 1})
	if plan.AttackEnd != minRamp || plan.DecayEnd != 2*minRamp {
		t.Fatalf("zero-length stages not clamped: %+v", plan)
	}
}

func TestReleasePlanTiming(t *testing.T) {
	p := ReleasePlan(1, 0.4)
	if math.Abs(p.StopAt-1.405) > 1e-12 || math.Abs(p.FreeAt-1.415) > 1e-12 {
		t.Fatalf("stopAt=%f freeAt=%f", p.StopAt, p.FreeAt)
	}
	p = ReleasePlan(1, 0)
	if math.Abs(p.StopAt-1.015) > 1e-12 {
		t.Fatalf("zero release stopAt=%f, want 1.015", p.StopAt)
	}

	amp := ramp.New(0.7)
	ReleasePlan(2, 0.5).Apply(&amp, 2)
	if g := amp.ValueAt(2.25); math.Abs(g-0.35) > 1e-9 {
		t.Fatalf("mid-release gain = %f, want 0.35", g)
	}
}

func TestRetargetPlanStages(t *testing.T) {
	env := Envelope{Attack: 0.1, Decay: 0.2, Sustain: 0.5}

	// Inside the attack window: ramp to 1 by onset+a, then full decay.
	amp := ramp.New(0.2)
	RetargetPlan(0.05, 0, env).Apply(&amp, 0.05)
	if g := amp.ValueAt(0.1); math.Abs(g-1) > 1e-9 {
		t.Fatalf("attack retarget peak = %f, want 1", g)
	}
	if g := amp.ValueAt(0.3); math.Abs(g-0.5) > 1e-9 {
		t.Fatalf("attack retarget sustain = %f, want 0.5", g)
	}

	// Inside decay: straight to sustain over the remaining decay.
	amp = ramp.New(0.9)
	RetargetPlan(0.2, 0, env).Apply(&amp, 0.2)
	if g := amp.ValueAt(0.25); math.Abs(g-0.7) > 1e-9 {
		t.Fatalf("decay retarget midpoint = %f, want 0.7", g)
	}

	// Sustain: exponential glide.
	amp = ramp.New(0.8)
	p := RetargetPlan(2, 0, env)
	p.Apply(&amp, 2)
	want := 0.5 + 0.3*math.Exp(-1)
	if g := amp.ValueAt(2 + sustainTau); math.Abs(g-want) > 1e-9 {
		t.Fatalf("sustain glide = %f, want %f", g, want)
	}
}
