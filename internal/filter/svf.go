// Package filter provides the per-voice state variable filter.
package filter

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects which SVF output a voice hears.
type Kind int

const (
	Lowpass Kind = iota
	Highpass
	Bandpass
	Notch
)

var kindNames = [...]string{"lowpass", "highpass", "bandpass", "notch"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("filter(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

// ParseKind maps a filter name to a Kind.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range kindNames {
		if s == n {
			return Kind(i), nil
		}
	}
	return Lowpass, fmt.Errorf("unknown filter type %q", name)
}

const (
	minQ      = 0.0001
	maxCutoff = 0.49 // fraction of the sample rate
)

// SVF is a zero-delay-feedback state variable filter (trapezoidal
// integrators). Coefficients are only recomputed when cutoff or Q move.
type SVF struct {
	kind       Kind
	sampleRate float64
	cutoff     float64
	q          float64

	g, k       float64
	a1, a2, a3 float64

	ic1eq, ic2eq float64
}

// Init prepares the filter for a sample rate and clears its state.
func (s *SVF) Init(sampleRate float64) {
	s.sampleRate = sampleRate
	s.cutoff = 0
	s.q = 0
	s.Reset()
}

// SetKind swaps the output tap; state is kept.
func (s *SVF) SetKind(k Kind) {
	if !k.Valid() {
		k = Lowpass
	}
	s.kind = k
}

// Kind returns the selected output.
func (s *SVF) Kind() Kind { return s.kind }

// Set updates cutoff (Hz) and resonance (Q).
func (s *SVF) Set(cutoff, q float64) {
	if cutoff == s.cutoff && q == s.q {
		return
	}
	s.cutoff, s.q = cutoff, q

	fc := cutoff
	if limit := s.sampleRate * maxCutoff; fc > limit {
		fc = limit
	}
	if fc < 1 {
		fc = 1
	}
	if q < minQ {
		q = minQ
	}
	s.g = math.Tan(math.Pi * fc / s.sampleRate)
	s.k = 1 / q
	s.a1 = 1 / (1 + s.g*(s.g+s.k))
	s.a2 = s.g * s.a1
	s.a3 = s.g * s.a2
}

// Process filters one sample.
func (s *SVF) Process(x float64) float64 {
	v3 := x - s.ic2eq
	v1 := s.a1*s.ic1eq + s.a2*v3
	v2 := s.ic2eq + s.a2*s.ic1eq + s.a3*v3
	s.ic1eq = 2*v1 - s.ic1eq
	s.ic2eq = 2*v2 - s.ic2eq

	switch s.kind {
	case Highpass:
		return x - s.k*v1 - v2
	case Bandpass:
		// k*v1 has unity gain at the centre frequency.
		return s.k * v1
	case Notch:
		return x - s.k*v1
	default:
		return v2
	}
}

// Reset clears the integrator state.
func (s *SVF) Reset() {
	s.ic1eq = 0
	s.ic2eq = 0
}
