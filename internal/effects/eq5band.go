package effects

import (
	"math"
	"sync/atomic"
)

// Bands is the number of EQ5Band bands.
const Bands = 5

// EQ5Band implements a 5-band equalizer with runtime-adjustable gains.
// Bands are split at 200Hz, 800Hz, 2.5kHz, and 8kHz.
// Gains are stored as uint32 (bit-cast float32) for lock-free reads from the audio thread.
type EQ5Band struct {
	gains  [Bands]atomic.Uint32 // float32 bit patterns; 1.0 = unity
	alphas [Bands - 1]float32   // crossover filter coefficients
	lp     [Bands - 1]float32   // lowpass state per crossover
}

var defaultCrossovers = [Bands - 1]float64{200, 800, 2500, 8000}

// NewEQ5Band creates a 5-band EQ with all gains at unity.
func NewEQ5Band(sampleRate int) *EQ5Band {
	eq := &EQ5Band{}
	dt := 1.0 / float64(sampleRate)
	for i, freq := range defaultCrossovers {
		rc := 1.0 / (2.0 * math.Pi * freq)
		eq.alphas[i] = float32(dt / (rc + dt))
	}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float32bits(1.0))
	}
	return eq
}

// SetGain sets the gain for band (0-4). 1.0 = unity, 0.0 = silence, 2.0 = +6dB.
// Negative gains are treated as 0.
func (eq *EQ5Band) SetGain(band int, gain float32) {
	if gain < 0 || gain != gain {
		gain = 0
	}
	if band >= 0 && band < Bands {
		eq.gains[band].Store(math.Float32bits(gain))
	}
}

// Gain returns the current gain for band (0-4).
func (eq *EQ5Band) Gain(band int) float32 {
	if band >= 0 && band < Bands {
		return math.Float32frombits(eq.gains[band].Load())
	}
	return 1.0
}

func (eq *EQ5Band) Process(x float32) float32 {
	// Four cascaded one-pole lowpasses peel off the bands from the bottom;
	// whatever remains above the last crossover is band 4.
	var out float32
	rem := x
	for i := 0; i < Bands-1; i++ {
		eq.lp[i] += eq.alphas[i] * (rem - eq.lp[i])
		band := eq.lp[i]
		rem -= band
		out += band * math.Float32frombits(eq.gains[i].Load())
	}
	out += rem * math.Float32frombits(eq.gains[Bands-1].Load())
	return out
}

func (eq *EQ5Band) Reset() {
	for i := range eq.lp {
		eq.lp[i] = 0
	}
}
