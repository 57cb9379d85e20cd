package osc

import (
	"fmt"
	"math"
	"strings"
)

// Wave selects the oscillator shape.
type Wave int

const (
	Sine Wave = iota
	Square
	Sawtooth
	Triangle
)

var waveNames = [...]string{"sine", "square", "sawtooth", "triangle"}

func (w Wave) String() string {
	if w < 0 || int(w) >= len(waveNames) {
		return fmt.Sprintf("wave(%d)", int(w))
	}
	return waveNames[w]
}

// Valid reports whether w is one of the defined shapes.
func (w Wave) Valid() bool {
	return w >= 0 && int(w) < len(waveNames)
}

// ParseWave maps a name ("sine", "square", "sawtooth"/"saw", "triangle") to a Wave.
func ParseWave(name string) (Wave, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "saw" {
		return Sawtooth, nil
	}
	for i, s := range waveNames {
		if s == n {
			return Wave(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q", name)
}

// Oscillator is a naive phase-accumulator oscillator. Every shape starts at
// zero and rises, so a freshly reset voice begins without a step.
type Oscillator struct {
	wave  Wave
	phase float64 // [0, 1)
}

// SetWave swaps the shape in place; phase is kept so the swap is immediate.
func (o *Oscillator) SetWave(w Wave) {
	if !w.Valid() {
		w = Sine
	}
	o.wave = w
}

// Wave returns the current shape.
func (o *Oscillator) Wave() Wave { return o.wave }

// Sample returns the value at the current phase in [-1, 1] and advances by
// freq/sampleRate.
func (o *Oscillator) Sample(freq, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}

	var v float64
	switch o.wave {
	case Square:
		if o.phase < 0.5 {
			v = 1
		} else {
			v = -1
		}
	case Sawtooth:
		// 0 at phase 0, +1 just before 0.5, wraps to -1.
		p := o.phase + 0.5
		if p >= 1 {
			p -= 1
		}
		v = 2*p - 1
	case Triangle:
		switch {
		case o.phase < 0.25:
			v = 4 * o.phase
		case o.phase < 0.75:
			v = 2 - 4*o.phase
		default:
			v = 4*o.phase - 4
		}
	default:
		v = math.Sin(2 * math.Pi * o.phase)
	}

	o.phase += freq / sampleRate
	if o.phase >= 1 || o.phase < 0 {
		o.phase -= math.Floor(o.phase)
	}
	return v
}

// Reset zeros the phase.
func (o *Oscillator) Reset() {
	o.phase = 0
}
