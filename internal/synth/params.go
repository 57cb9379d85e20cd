package synth

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/osc"
)

// Parameter bounds applied at every setter.
const (
	MinFrequency = 20.0
	MaxFrequency = 20000.0
	MinResonance = 0.0001
	MaxResonance = 40.0
	MaxEnvTime   = 10.0
)

// Envelope holds ADSR times in seconds and the sustain level.
type Envelope struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// FilterParams configures every voice's filter.
type FilterParams struct {
	Kind      filter.Kind
	Cutoff    float64
	Resonance float64
}

// Params is the engine-owned patch every voice is built from.
type Params struct {
	Waveform   osc.Wave
	Filter     FilterParams
	Envelope   Envelope
	MasterGain float64
}

// DefaultParams returns the power-on patch.
func DefaultParams() Params {
	return Params{
		Waveform: osc.Sawtooth,
		Filter: FilterParams{
			Kind:      filter.Lowpass,
			Cutoff:    1200,
			Resonance: 0.8,
		},
		Envelope: Envelope{
			Attack:  0.01,
			Decay:   0.2,
			Sustain: 0.7,
			Release: 0.4,
		},
		MasterGain: 0.2,
	}
}

// Clamp returns p with every field forced into its documented range.
func (p Params) Clamp() Params {
	if !p.Waveform.Valid() {
		p.Waveform = osc.Sawtooth
	}
	if !p.Filter.Kind.Valid() {
		p.Filter.Kind = filter.Lowpass
	}
	p.Filter.Cutoff = ClampFrequency(p.Filter.Cutoff)
	p.Filter.Resonance = ClampResonance(p.Filter.Resonance)
	p.Envelope = p.Envelope.Clamp()
	p.MasterGain = ClampUnit(p.MasterGain)
	return p
}

// Clamp forces times into [0, 10] s and sustain into [0, 1].
func (e Envelope) Clamp() Envelope {
	return Envelope{
		Attack:  clamp(e.Attack, 0, MaxEnvTime),
		Decay:   clamp(e.Decay, 0, MaxEnvTime),
		Sustain: ClampUnit(e.Sustain),
		Release: clamp(e.Release, 0, MaxEnvTime),
	}
}

// ClampFrequency bounds note and cutoff frequencies to [20, 20000] Hz.
func ClampFrequency(f float64) float64 {
	return clamp(f, MinFrequency, MaxFrequency)
}

// ClampResonance bounds Q to [0.0001, 40].
func ClampResonance(q float64) float64 {
	return clamp(q, MinResonance, MaxResonance)
}

// ClampUnit bounds a level to [0, 1].
func ClampUnit(v float64) float64 {
	return clamp(v, 0, 1)
}

// NaN collapses to lo so user input can never poison the audio path.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
