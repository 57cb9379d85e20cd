package effects

import (
	"math"
	"testing"
)

func TestDelayProducesOutput(t *testing.T) {
	d := NewDelay(44100, 100, 0.5, 0.5)
	// Feed a pulse and check delayed output appears
	d.Process(1.0)
	for i := 0; i < 4409; i++ { // ~100ms at 44100Hz
		d.Process(0)
	}
	out := d.Process(0)
	if math.Abs(float64(out)) < 0.01 {
		t.Errorf("expected delayed output, got %f", out)
	}
}

func TestDelayFeedbackDecays(t *testing.T) {
	d := NewDelay(1000, 10, 0.5, 1)
	d.Process(1)
	var echoes []float32
	for i := 1; i <= 40; i++ {
		y := d.Process(0)
		if i%10 == 0 {
			echoes = append(echoes, y)
		}
	}
	for i := 1; i < len(echoes); i++ {
		if echoes[i] >= echoes[i-1] {
			t.Fatalf("echo %d (%f) should be quieter than echo %d (%f)", i, echoes[i], i-1, echoes[i-1])
		}
	}
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	eq := NewEQ5Band(44100)
	for b := 0; b < Bands; b++ {
		eq.SetGain(b, 0)
	}
	c := NewChain(NewDelay(44100, 10, 0, 0.5))
	c.Add(eq)
	if c.Len() != 2 {
		t.Fatalf("chain length = %d, want 2", c.Len())
	}
	if out := c.Process(0.5); out != 0 {
		t.Errorf("muted EQ at the end of the chain should silence output, got %f", out)
	}
}

func TestEQ5BandUnityGain(t *testing.T) {
	eq := NewEQ5Band(44100)
	// Bands sum back to the input at unity.
	for i := 0; i < 1000; i++ {
		x := float32(math.Sin(float64(i) * 0.05))
		if y := eq.Process(x); math.Abs(float64(y-x)) > 1e-5 {
			t.Fatalf("sample %d: got %f, want %f", i, y, x)
		}
	}
}

func TestEQ5BandGainClamp(t *testing.T) {
	eq := NewEQ5Band(44100)
	eq.SetGain(2, -1)
	if g := eq.Gain(2); g != 0 {
		t.Fatalf("negative gain should clamp to 0, got %f", g)
	}
	eq.SetGain(7, 3)
	if g := eq.Gain(7); g != 1 {
		t.Fatalf("out of range band should read unity, got %f", g)
	}
}

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	// Feed loud signal repeatedly to let envelope settle
	var out float32
	for i := 0; i < 1000; i++ {
		out = c.Process(1.0)
	}
	if out >= 1.0 {
		t.Errorf("compressor should reduce loud signals, got %f", out)
	}
}

func TestOutputCompressorLeavesQuietAlone(t *testing.T) {
	c := NewOutputCompressor(48000)
	for i := 0; i < 1000; i++ {
		if out := c.Process(0.1); out != 0.1 {
			t.Fatalf("quiet signal changed: %f", out)
		}
	}
}
