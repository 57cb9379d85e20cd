// Package patch reads, checks and writes synth patches. A patch file is
// JSON, YAML or a Lua script returning a table; all three share one schema:
//
//	osc:    {wave: sine|square|sawtooth|triangle, freq: Hz}
//	filter: {type: lowpass|highpass|bandpass|notch, cutoff: Hz, q: Q}
//	env:    {attack: s, decay: s, sustain: 0..1, release: s}
//	masterGain: 0..1
package patch

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/osc"
	"github.com/cbegin/polysynth-go/internal/synth"
)

// ErrInvalidPatch wraps every schema and value error.
var ErrInvalidPatch = errors.New("invalid patch")

type Osc struct {
	Wave string  `json:"wave" yaml:"wave"`
	Freq float64 `json:"freq" yaml:"freq"` // preview pitch; notes bring their own
}

type Filter struct {
	Type   string  `json:"type" yaml:"type"`
	Cutoff float64 `json:"cutoff" yaml:"cutoff"`
	Q      float64 `json:"q" yaml:"q"`
}

type Env struct {
	Attack  float64 `json:"attack" yaml:"attack"`
	Decay   float64 `json:"decay" yaml:"decay"`
	Sustain float64 `json:"sustain" yaml:"sustain"`
	Release float64 `json:"release" yaml:"release"`
}

type Patch struct {
	Osc        Osc     `json:"osc" yaml:"osc"`
	Filter     Filter  `json:"filter" yaml:"filter"`
	Env        Env     `json:"env" yaml:"env"`
	MasterGain float64 `json:"masterGain" yaml:"masterGain"`
}

// Default is the power-on patch.
func Default() Patch {
	p := FromParams(synth.DefaultParams())
	p.Osc.Freq = 440
	return p
}

// FromParams captures engine parameters as a patch.
func FromParams(p synth.Params) Patch {
	return Patch{
		Osc: Osc{Wave: p.Waveform.String(), Freq: 440},
		Filter: Filter{
			Type:   p.Filter.Kind.String(),
			Cutoff: p.Filter.Cutoff,
			Q:      p.Filter.Resonance,
		},
		Env: Env{
			Attack:  p.Envelope.Attack,
			Decay:   p.Envelope.Decay,
			Sustain: p.Envelope.Sustain,
			Release: p.Envelope.Release,
		},
		MasterGain: p.MasterGain,
	}
}

// Validate checks the enumerations and that every number is finite. Ranges
// are not checked here; Clamp fixes those.
func Validate(p Patch) error {
	if _, err := osc.ParseWave(p.Osc.Wave); err != nil {
		return fmt.Errorf("%w: osc.wave: %v", ErrInvalidPatch, err)
	}
	if _, err := filter.ParseKind(p.Filter.Type); err != nil {
		return fmt.Errorf("%w: filter.type: %v", ErrInvalidPatch, err)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"osc.freq", p.Osc.Freq},
		{"filter.cutoff", p.Filter.Cutoff},
		{"filter.q", p.Filter.Q},
		{"env.attack", p.Env.Attack},
		{"env.decay", p.Env.Decay},
		{"env.sustain", p.Env.Sustain},
		{"env.release", p.Env.Release},
		{"masterGain", p.MasterGain},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidPatch, f.name)
		}
	}
	return nil
}

// Clamp pulls every number into the range the engine accepts.
func Clamp(p Patch) Patch {
	p.Osc.Freq = synth.ClampFrequency(p.Osc.Freq)
	p.Filter.Cutoff = synth.ClampFrequency(p.Filter.Cutoff)
	p.Filter.Q = synth.ClampResonance(p.Filter.Q)
	env := synth.Envelope{
		Attack:  p.Env.Attack,
		Decay:   p.Env.Decay,
		Sustain: p.Env.Sustain,
		Release: p.Env.Release,
	}.Clamp()
	p.Env = Env{Attack: env.Attack, Decay: env.Decay, Sustain: env.Sustain, Release: env.Release}
	p.MasterGain = synth.ClampUnit(p.MasterGain)
	return p
}

// Params converts a valid patch to engine parameters (clamped).
func (p Patch) Params() (synth.Params, error) {
	if err := Validate(p); err != nil {
		return synth.Params{}, err
	}
	w, _ := osc.ParseWave(p.Osc.Wave)
	k, _ := filter.ParseKind(p.Filter.Type)
	return synth.Params{
		Waveform: w,
		Filter:   synth.FilterParams{Kind: k, Cutoff: p.Filter.Cutoff, Resonance: p.Filter.Q},
		Envelope: synth.Envelope{
			Attack:  p.Env.Attack,
			Decay:   p.Env.Decay,
			Sustain: p.Env.Sustain,
			Release: p.Env.Release,
		},
		MasterGain: p.MasterGain,
	}.Clamp(), nil
}

// Setter is the part of the synth a patch is applied through.
type Setter interface {
	SetWaveform(osc.Wave)
	SetFilter(kind filter.Kind, cutoff, resonance float64)
	SetEnvelope(attack, decay, sustain, release float64)
	SetMasterGain(gain float64)
}

// Apply validates p and replays it through the setters, so a live synth
// glides to the new patch the same way it would for manual changes.
func Apply(p Patch, s Setter) error {
	params, err := p.Params()
	if err != nil {
		return err
	}
	s.SetWaveform(params.Waveform)
	s.SetFilter(params.Filter.Kind, params.Filter.Cutoff, params.Filter.Resonance)
	e := params.Envelope
	s.SetEnvelope(e.Attack, e.Decay, e.Sustain, e.Release)
	s.SetMasterGain(params.MasterGain)
	return nil
}
