package synth

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/ramp"
)

// Envelope timing constants, in seconds.
const (
	minRamp      = 0.001 // shortest attack/decay/release ramp
	minStop      = 0.01  // shortest release before the oscillator stops
	stopGuard    = 0.005 // oscillator keeps running this long past the release
	reclaimGuard = 0.010 // slot stays reserved this long past the stop
	sustainTau   = 0.05  // glide toward a new sustain level
	stealFade    = 0.02  // abbreviated release for a stolen voice
)

type segmentKind int

const (
	segLinear segmentKind = iota
	segTarget
)

type segment struct {
	kind  segmentKind
	value float64
	at    float64 // arrival time for segLinear, start time for segTarget
	tau   float64
}

// Plan is a gain schedule for one voice. It is computed without touching the
// voice and applied in one step: hold the current gain at now, then append
// the segments in order.
type Plan struct {
	segs [3]segment
	n    int

	AttackEnd float64
	DecayEnd  float64
	StopAt    float64 // release plans only
	FreeAt    float64 // release plans only
}

func (p *Plan) linear(v, at float64) {
	p.segs[p.n] = segment{kind: segLinear, value: v, at: at}
	p.n++
}

func (p *Plan) target(v, at, tau float64) {
	p.segs[p.n] = segment{kind: segTarget, value: v, at: at, tau: tau}
	p.n++
}

// Apply pins amp at its value at now and schedules the plan after it.
func (p Plan) Apply(amp *ramp.Param, now float64) {
	amp.Hold(now)
	for i := 0; i < p.n; i++ {
		s := p.segs[i]
		switch s.kind {
		case segTarget:
			amp.SetTargetAt(s.value, s.at, s.tau)
		default:
			amp.LinearRampTo(s.value, s.at)
		}
	}
}

func stageTimes(env Envelope) (a, d float64) {
	return math.Max(minRamp, env.Attack), math.Max(minRamp, env.Decay)
}

// AttackPlan ramps to 1 by onset+attack and on to sustain by onset+attack+decay.
// When onset is later than now the gain first fades to zero by onset; that
// is how a stolen voice finishes its abbreviated release before retriggering.
func AttackPlan(now, onset float64, env Envelope) Plan {
	a, d := stageTimes(env)
	var p Plan
	if onset > now {
		p.linear(0, onset)
	}
	p.linear(1, onset+a)
	p.linear(env.Sustain, onset+a+d)
	p.AttackEnd = onset + a
	p.DecayEnd = onset + a + d
	return p
}

// RetargetPlan reschedules a held voice after the envelope changed. The stage
// is judged with the new timing: inside the attack window the voice keeps
// rising to 1 and then decays over the full new decay; inside the decay
// window it ramps to sustain over what is left of it; otherwise it glides to
// the new sustain level.
func RetargetPlan(now, onset float64, env Envelope) Plan {
	a, d := stageTimes(env)
	since := now - onset
	switch {
	case since < a:
		return AttackPlan(now, onset, env)
	case since < a+d:
		var p Plan
		p.linear(env.Sustain, onset+a+d)
		p.AttackEnd = onset + a
		p.DecayEnd = onset + a + d
		return p
	default:
		var p Plan
		p.target(env.Sustain, now, sustainTau)
		p.AttackEnd = onset + a
		p.DecayEnd = onset + a + d
		return p
	}
}

// ReleasePlan ramps from the current gain to 0 over release seconds. The
// oscillator stops at StopAt and the slot may be reclaimed from FreeAt.
func ReleasePlan(now, release float64) Plan {
	var p Plan
	p.linear(0, now+math.Max(minRamp, release))
	p.StopAt = now + math.Max(minStop, release) + stopGuard
	p.FreeAt = p.StopAt + reclaimGuard
	return p
}
