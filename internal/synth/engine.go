// Package synth is the polyphonic voice engine: a fixed voice pool, ADSR
// scheduling on the engine clock, the per-voice signal chain and the mix bus
// with its analysis tap.
//
// An Engine is single-threaded. Everything except ActiveCount and the tap
// must be called from the goroutine that calls Render.
package synth

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/osc"
	"github.com/cbegin/polysynth-go/internal/ramp"
)

// Engine renders the voice pool. Its clock is the number of frames rendered
// divided by the sample rate; every change is scheduled against it.
type Engine struct {
	sampleRate float64
	frames     int64

	params Params
	pool   *Pool
	master ramp.Param
	fx     *effects.Chain
	tap    *AnalysisTap
	mix    []float32

	onReclaim func(index int, tag string)
}

// New creates an engine with params (clamped) in effect.
func New(sampleRate int, params Params) *Engine {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	params = params.Clamp()
	return &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		pool:       newPool(float64(sampleRate)),
		master:     ramp.New(params.MasterGain),
		tap:        NewAnalysisTap(),
	}
}

// SampleRate returns the output rate in Hz.
func (e *Engine) SampleRate() int { return int(e.sampleRate) }

// Now returns the engine clock in seconds.
func (e *Engine) Now() float64 {
	return float64(e.frames) / e.sampleRate
}

// Params returns the configuration new voices are built from.
func (e *Engine) Params() Params { return e.params }

// Pool exposes the voice slots for inspection.
func (e *Engine) Pool() *Pool { return e.pool }

// Tap returns the analysis tap on the mix bus.
func (e *Engine) Tap() *AnalysisTap { return e.tap }

// ActiveCount is safe to call from any goroutine.
func (e *Engine) ActiveCount() int { return e.pool.ActiveCount() }

// SetEffects installs the master-bus chain; nil removes it.
func (e *Engine) SetEffects(c *effects.Chain) { e.fx = c }

// OnReclaim registers fn to run on the audio goroutine each time a released
// slot is freed.
func (e *Engine) OnReclaim(fn func(index int, tag string)) { e.onReclaim = fn }

// StartNote starts (or retunes, for a held tag) a note at freq Hz.
func (e *Engine) StartNote(freq float64, tag string) StartResult {
	return e.pool.StartNote(e.Now(), ClampFrequency(freq), tag, &e.params)
}

// StopNote releases the voice matching tag or, failing that, freq. freq is
// clamped the way StartNote clamps it, so an out-of-range pair still matches.
// NaN matches by tag only.
func (e *Engine) StopNote(freq float64, tag string) int {
	if !math.IsNaN(freq) {
		freq = ClampFrequency(freq)
	}
	return e.pool.StopNote(e.Now(), freq, tag, e.params.Envelope.Release)
}

// StopAll releases every held voice.
func (e *Engine) StopAll() int {
	return e.pool.StopAll(e.Now(), e.params.Envelope.Release)
}

// SetFrequency retunes the most recently played voice.
func (e *Engine) SetFrequency(freq float64) bool {
	return e.pool.Retune(e.Now(), ClampFrequency(freq))
}

// SetWaveform swaps the oscillator shape of every voice immediately.
func (e *Engine) SetWaveform(w osc.Wave) {
	if !w.Valid() {
		return
	}
	e.params.Waveform = w
	e.pool.setWaveform(w)
}

// SetFilter changes filter kind at once and glides cutoff and resonance.
func (e *Engine) SetFilter(kind filter.Kind, cutoff, resonance float64) {
	if !kind.Valid() {
		kind = e.params.Filter.Kind
	}
	e.params.Filter = FilterParams{
		Kind:      kind,
		Cutoff:    ClampFrequency(cutoff),
		Resonance: ClampResonance(resonance),
	}
	e.pool.setFilter(e.Now(), e.params.Filter)
}

// SetEnvelope stores new ADSR values and reschedules every sounding voice.
func (e *Engine) SetEnvelope(attack, decay, sustain, release float64) {
	e.params.Envelope = Envelope{Attack: attack, Decay: decay, Sustain: sustain, Release: release}.Clamp()
	e.pool.setEnvelope(e.Now(), e.params.Envelope)
}

// SetMasterGain glides the output level.
func (e *Engine) SetMasterGain(g float64) {
	e.params.MasterGain = ClampUnit(g)
	e.master.Glide(e.params.MasterGain, e.Now(), filterTau)
}

// Voices returns a snapshot of every slot at the current clock.
func (e *Engine) Voices(dst []VoiceInfo) []VoiceInfo {
	return e.pool.Snapshot(e.Now(), dst)
}

// Reset silences everything and rewinds the clock.
func (e *Engine) Reset() {
	e.pool.reset()
	e.frames = 0
	e.master.Reset(e.params.MasterGain)
	if e.fx != nil {
		e.fx.Reset()
	}
	e.tap.Reset()
}
