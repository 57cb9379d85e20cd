// Package scope turns analysis-tap snapshots into something drawable: an RMS
// level and a single waveform period stretched to the display width, aligned
// on an upward zero crossing so it stays still from frame to frame.
package scope

import "math"

// Mid is the unsigned value of a zero sample.
const Mid = 128

// RMS returns the root mean square of buf with each byte mapped to
// (b-128)/128.
func RMS(buf []uint8) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, b := range buf {
		v := (float64(b) - Mid) / Mid
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}

func upward(buf []uint8, i int) bool {
	return buf[i-1] < Mid && buf[i] >= Mid
}

// FindPeriod locates one waveform cycle. start is the first upward zero
// crossing (0 if there is none). The period runs to the next upward crossing,
// or is a quarter of the buffer when no second crossing exists.
func FindPeriod(buf []uint8) (start, period int) {
	n := len(buf)
	if n < 2 {
		return 0, 1
	}
	for i := 1; i < n; i++ {
		if upward(buf, i) {
			start = i
			break
		}
	}
	end := -1
	for i := start + 1; i < n; i++ {
		if upward(buf, i) {
			end = i
			break
		}
	}
	if end < 0 {
		end = start + n/4
		if end > n-1 {
			end = n - 1
		}
	}
	period = end - start
	if period < 1 {
		period = 1
	}
	return start, period
}

// Trace resamples buf[start:start+period] with nearest-neighbour indexing
// into dst, one value per display column, normalised to [-1, 1).
func Trace(buf []uint8, start, period int, dst []float32) {
	width := len(dst)
	if len(buf) == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	last := len(buf) - 1
	for i := 0; i < width; i++ {
		idx := start + i*period/width
		if idx > last {
			idx = last
		}
		dst[i] = float32(float64(buf[idx])-Mid) / Mid
	}
}

// BarHeight scales an RMS level to a bar at least 2 and at most height
// pixels tall.
func BarHeight(rms, height float64) float64 {
	return math.Max(2, math.Min(height, height*rms))
}
