package synth

import "math"

// Signal path per sample: each voice runs osc -> filter -> amp into the mix
// bus; the mix bus feeds the analysis tap and then master gain, the master
// effects and the output clamp. The mono result is duplicated to stereo.

// Render fills dst with interleaved stereo float32 frames, advances the
// clock and then frees any slot whose release has fully elapsed.
func (e *Engine) Render(dst []float32) {
	frames := len(dst) / 2
	if cap(e.mix) < frames {
		e.mix = make([]float32, frames)
	}
	mix := e.mix[:frames]

	for i := 0; i < frames; i++ {
		t := float64(e.frames+int64(i)) / e.sampleRate
		var sum float64
		for v := range e.pool.voices {
			sum += e.pool.voices[v].render(t, e.sampleRate)
		}
		mix[i] = float32(sum)

		y := float32(sum * e.master.ValueAt(t))
		if e.fx != nil {
			y = e.fx.Process(y)
		}
		y = clampSample(y)
		dst[2*i] = y
		dst[2*i+1] = y
	}
	if len(dst)%2 == 1 {
		dst[len(dst)-1] = 0
	}

	e.tap.Write(mix)
	e.frames += int64(frames)
	e.pool.Reclaim(e.Now(), e.onReclaim)
}

func clampSample(y float32) float32 {
	switch {
	case y > 1:
		return 1
	case y < -1:
		return -1
	case math.IsNaN(float64(y)):
		return 0
	}
	return y
}
