package filter

import (
	"math"
	"testing"
)

// steadyGain runs a sine through the filter and returns output/input peak
// ratio after the transient has settled.
func steadyGain(f *SVF, freq, sampleRate float64) float64 {
	var peak float64
	n := int(sampleRate / 2)
	for i := 0; i < n; i++ {
		x := math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
		y := f.Process(x)
		if i > n/2 && math.Abs(y) > peak {
			peak = math.Abs(y)
		}
	}
	return peak
}

func newSVF(kind Kind, cutoff, q float64) *SVF {
	f := &SVF{}
	f.Init(48000)
	f.SetKind(kind)
	f.Set(cutoff, q)
	return f
}

func TestLowpassPassesLowsAndCutsHighs(t *testing.T) {
	low := steadyGain(newSVF(Lowpass, 1000, 0.707), 100, 48000)
	high := steadyGain(newSVF(Lowpass, 1000, 0.707), 10000, 48000)
	if low < 0.9 {
		t.Fatalf("lowpass should pass 100 Hz, gain=%f", low)
	}
	if high > 0.1 {
		t.Fatalf("lowpass should cut 10 kHz, gain=%f", high)
	}
}

func TestHighpassCutsLows(t *testing.T) {
	low := steadyGain(newSVF(Highpass, 1000, 0.707), 50, 48000)
	high := steadyGain(newSVF(Highpass, 1000, 0.707), 10000, 48000)
	if low > 0.1 {
		t.Fatalf("highpass should cut 50 Hz, gain=%f", low)
	}
	if high < 0.9 {
		t.Fatalf("highpass should pass 10 kHz, gain=%f", high)
	}
}

func TestBandpassUnityAtCentre(t *testing.T) {
	g := steadyGain(newSVF(Bandpass, 1000, 2), 1000, 48000)
	if math.Abs(g-1) > 0.05 {
		t.Fatalf("bandpass centre gain = %f, want ~1", g)
	}
}

func TestNotchRejectsCentre(t *testing.T) {
	g := steadyGain(newSVF(Notch, 1000, 2), 1000, 48000)
	if g > 0.05 {
		t.Fatalf("notch centre gain = %f, want ~0", g)
	}
}

func TestCutoffAboveNyquistStaysStable(t *testing.T) {
	f := newSVF(Lowpass, 40000, 40)
	for i := 0; i < 48000; i++ {
		y := f.Process(math.Sin(float64(i) * 0.3))
		if math.IsNaN(y) || math.IsInf(y, 0) {
			t.Fatalf("unstable output at %d: %f", i, y)
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"lowpass", "HIGHPASS", "bandpass", "notch"} {
		if _, err := ParseKind(name); err != nil {
			t.Fatalf("ParseKind(%q): %v", name, err)
		}
	}
	if _, err := ParseKind("peaking"); err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if Kind(9).Valid() {
		t.Fatalf("Kind(9) should be invalid")
	}
}
