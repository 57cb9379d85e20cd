package synth

import (
	"fmt"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/osc"
	"github.com/cbegin/polysynth-go/internal/ramp"
)

// Stage is a voice's envelope position, derived from the engine clock.
type Stage int

const (
	StageIdle Stage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

var stageNames = [...]string{"idle", "attack", "decay", "sustain", "release"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Voice is one slot's sound source: oscillator, filter and amplitude stage.
// Every field except active is touched only from the audio goroutine.
type Voice struct {
	active   atomic.Bool
	occupied bool
	gen      uint64

	tag       string
	noteHz    float64
	startedAt float64
	onset     float64 // attack start; later than startedAt for a stolen slot

	attackEnd float64
	decayEnd  float64
	released  bool
	stopAt    float64
	freeAt    float64

	osc       osc.Oscillator
	filter    filter.SVF
	freq      ramp.Param
	cutoff    ramp.Param
	resonance ramp.Param
	amp       ramp.Param
}

// VoiceInfo is a read-only copy of a slot's state at one clock time.
type VoiceInfo struct {
	Index     int
	Active    bool
	Tag       string
	Frequency float64
	Stage     Stage
	Gain      float64
	StartedAt float64
}

// Active reports whether the voice holds a note that has not been released.
func (v *Voice) Active() bool { return v.active.Load() }

// Stage derives the envelope stage at now.
func (v *Voice) Stage(now float64) Stage {
	switch {
	case !v.occupied:
		return StageIdle
	case v.released:
		return StageRelease
	case now < v.attackEnd:
		return StageAttack
	case now < v.decayEnd:
		return StageDecay
	default:
		return StageSustain
	}
}

// Gain is the scheduled amplitude at now.
func (v *Voice) Gain(now float64) float64 {
	if !v.occupied {
		return 0
	}
	return v.amp.ValueAt(now)
}

func (v *Voice) info(i int, now float64) VoiceInfo {
	return VoiceInfo{
		Index:     i,
		Active:    v.Active(),
		Tag:       v.tag,
		Frequency: v.noteHz,
		Stage:     v.Stage(now),
		Gain:      v.Gain(now),
		StartedAt: v.startedAt,
	}
}

// trigger (re)initialises the slot for a new note. The amp param is not
// reset so the attack starts from whatever gain the slot had.
func (v *Voice) trigger(now, onset, freq float64, tag string, p *Params, sampleRate float64) {
	if !v.occupied {
		v.osc.Reset()
		v.filter.Init(sampleRate)
		v.amp.Reset(0)
	}
	v.occupied = true
	v.gen++
	v.released = false
	v.tag = tag
	v.noteHz = freq
	v.startedAt = now
	v.onset = onset

	v.osc.SetWave(p.Waveform)
	v.filter.SetKind(p.Filter.Kind)
	if onset > now {
		v.freq.Hold(now)
		v.freq.SetValueAt(freq, onset)
	} else {
		v.freq.Reset(freq)
	}
	v.cutoff.Reset(p.Filter.Cutoff)
	v.resonance.Reset(p.Filter.Resonance)

	plan := AttackPlan(now, onset, p.Envelope)
	plan.Apply(&v.amp, now)
	v.attackEnd, v.decayEnd = plan.AttackEnd, plan.DecayEnd
}

func (v *Voice) release(now, seconds float64) {
	plan := ReleasePlan(now, seconds)
	plan.Apply(&v.amp, now)
	v.released = true
	v.stopAt, v.freeAt = plan.StopAt, plan.FreeAt
}

func (v *Voice) retarget(now float64, env Envelope) {
	if v.released {
		v.release(now, env.Release)
		return
	}
	plan := RetargetPlan(now, v.onset, env)
	plan.Apply(&v.amp, now)
	v.attackEnd, v.decayEnd = plan.AttackEnd, plan.DecayEnd
}

func (v *Voice) retune(now, freq float64) {
	v.freq.Glide(freq, now, retuneTau)
	v.noteHz = freq
}

func (v *Voice) clear() {
	v.occupied = false
	v.released = false
	v.tag = ""
	v.noteHz = 0
	v.amp.Reset(0)
	v.filter.Reset()
}

// sounding reports whether the oscillator still runs at t.
func (v *Voice) sounding(t float64) bool {
	return v.occupied && !(v.released && t >= v.stopAt)
}

func (v *Voice) render(t, sampleRate float64) float64 {
	if !v.sounding(t) {
		return 0
	}
	v.filter.Set(v.cutoff.ValueAt(t), v.resonance.ValueAt(t))
	x := v.osc.Sample(v.freq.ValueAt(t), sampleRate)
	return v.filter.Process(x) * v.amp.ValueAt(t)
}
