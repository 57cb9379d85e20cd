package osc

import (
	"math"
	"testing"
)

func TestTriangleBasicShape(t *testing.T) {
	o := &Oscillator{}
	o.SetWave(Triangle)

	sr := 100.0 // 1 Hz at 100 Hz = 100 samples per cycle
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = o.Sample(1, sr)
	}

	if math.Abs(samples[0]) > 0.05 {
		t.Errorf("triangle at phase 0: got %f, want 0", samples[0])
	}
	if math.Abs(samples[25]-1.0) > 0.05 {
		t.Errorf("triangle at phase 0.25: got %f, want 1.0", samples[25])
	}
	if math.Abs(samples[75]-(-1.0)) > 0.05 {
		t.Errorf("triangle at phase 0.75: got %f, want -1.0", samples[75])
	}
}

func TestSquareShape(t *testing.T) {
	o := &Oscillator{}
	o.SetWave(Square)

	sr := 100.0
	if v := o.Sample(1, sr); v != 1 {
		t.Errorf("square first half: got %f, want 1", v)
	}
	for i := 1; i < 60; i++ {
		o.Sample(1, sr)
	}
	if v := o.Sample(1, sr); v != -1 {
		t.Errorf("square second half: got %f, want -1", v)
	}
}

func TestSawtoothStartsAtZeroAndRises(t *testing.T) {
	o := &Oscillator{}
	o.SetWave(Sawtooth)

	first := o.Sample(1, 100)
	second := o.Sample(1, 100)
	if math.Abs(first) > 1e-9 {
		t.Errorf("saw at phase 0: got %f, want 0", first)
	}
	if second <= first {
		t.Errorf("saw should rise: %f then %f", first, second)
	}
}

func TestSineStaysInRange(t *testing.T) {
	o := &Oscillator{}
	o.SetWave(Sine)
	for i := 0; i < 48000; i++ {
		v := o.Sample(440, 48000)
		if v > 1 || v < -1 {
			t.Fatalf("sample %d out of range: %f", i, v)
		}
	}
}

func TestWaveSwapKeepsPhase(t *testing.T) {
	o := &Oscillator{}
	o.SetWave(Sine)
	for i := 0; i < 25; i++ {
		o.Sample(1, 100)
	}
	o.SetWave(Square)
	if v := o.Sample(1, 100); v != 1 {
		t.Errorf("square at phase 0.25 after swap: got %f, want 1", v)
	}
	if o.Wave() != Square {
		t.Errorf("wave = %v, want square", o.Wave())
	}
}

func TestParseWave(t *testing.T) {
	cases := map[string]Wave{
		"sine":     Sine,
		"Square":   Square,
		"sawtooth": Sawtooth,
		"saw":      Sawtooth,
		"triangle": Triangle,
	}
	for name, want := range cases {
		got, err := ParseWave(name)
		if err != nil {
			t.Fatalf("ParseWave(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseWave(%q) = %v, want %v", name, got, want)
		}
	}
	if _, err := ParseWave("noise"); err == nil {
		t.Fatalf("expected error for unknown wave")
	}
}

func TestInvalidWaveFallsBackToSine(t *testing.T) {
	o := &Oscillator{}
	o.SetWave(Wave(42))
	if o.Wave() != Sine {
		t.Fatalf("wave = %v, want sine", o.Wave())
	}
}
