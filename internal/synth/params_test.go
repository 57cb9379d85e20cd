package synth

import (
	"math"
	"testing"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.Waveform.String() != "sawtooth" || p.Filter.Kind.String() != "lowpass" {
		t.Fatalf("defaults = %+v", p)
	}
	if p.Filter.Cutoff != 1200 || p.Filter.Resonance != 0.8 || p.MasterGain != 0.2 {
		t.Fatalf("defaults = %+v", p)
	}
	if p.Envelope != (Envelope{Attack: 0.01, Decay: 0.2, Sustain: 0.7, Release: 0.4}) {
		t.Fatalf("default envelope = %+v", p.Envelope)
	}
	if p.Clamp() != p {
		t.Fatalf("defaults should already be in range")
	}
}

func TestClampBounds(t *testing.T) {
	cases := []struct {
		name     string
		fn       func(float64) float64
		in, want float64
	}{
		{"freq low", ClampFrequency, 5, 20},
		{"freq high", ClampFrequency, 30000, 20000},
		{"freq nan", ClampFrequency, math.NaN(), 20},
		{"q low", ClampResonance, 0, 0.0001},
		{"q high", ClampResonance, 100, 40},
		{"unit low", ClampUnit, -0.5, 0},
		{"unit high", ClampUnit, 1.5, 1},
		{"unit mid", ClampUnit, 0.25, 0.25},
	}
	for _, c := range cases {
		if got := c.fn(c.in); got != c.want {
			t.Fatalf("%s: got %f, want %f", c.name, got, c.want)
		}
	}

	env := Envelope{Attack: -1, Decay: 11, Sustain: 2, Release: 20}.Clamp()
	if env != (Envelope{Attack: 0, Decay: 10, Sustain: 1, Release: 10}) {
		t.Fatalf("envelope clamp = %+v", env)
	}
}

func TestParamsClampRepairsEnums(t *testing.T) {
	p := Params{Waveform: 17, Filter: FilterParams{Kind: -2, Cutoff: 1, Resonance: 50}, MasterGain: 3}
	p = p.Clamp()
	if p.Waveform.String() != "sawtooth" || p.Filter.Kind.String() != "lowpass" {
		t.Fatalf("enums not repaired: %+v", p)
	}
	if p.Filter.Cutoff != 20 || p.Filter.Resonance != 40 || p.MasterGain != 1 {
		t.Fatalf("numbers not clamped: %+v", p)
	}
}
