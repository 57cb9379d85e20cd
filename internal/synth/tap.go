package synth

import "sync"

const (
	// AnalysisSize is the length of one analysis snapshot.
	AnalysisSize = 1024
	// AnalysisMid is the unsigned value of a zero sample.
	AnalysisMid = 128

	tapRingLen = 1 << 15
)

// AnalysisTap exposes the mix bus, before master gain, to visualisers. The
// audio goroutine copies each rendered block into a ring; readers take
// snapshots under the same mutex. Nothing else is shared.
type AnalysisTap struct {
	mu       sync.Mutex
	ring     []float32
	writePos int
	written  int64 // total samples written
}

// NewAnalysisTap returns an empty tap.
func NewAnalysisTap() *AnalysisTap {
	return &AnalysisTap{ring: make([]float32, tapRingLen)}
}

// Write appends mono samples. Called once per rendered block.
func (t *AnalysisTap) Write(samples []float32) {
	t.mu.Lock()
	for _, s := range samples {
		t.ring[t.writePos] = s
		t.writePos = (t.writePos + 1) % tapRingLen
	}
	t.written += int64(len(samples))
	t.mu.Unlock()
}

// Written returns how many samples have passed through the tap.
func (t *AnalysisTap) Written() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written
}

// Snapshot fills dst with the most recent len(dst) samples, quantised to
// unsigned bytes centred at 128. Samples never written read as 128.
func (t *AnalysisTap) Snapshot(dst []uint8) {
	t.SnapshotAt(dst, -1)
}

// SnapshotAt is Snapshot aligned to a playback position: the window ends at
// sample pos instead of at the newest sample, so the trace matches what the
// output device is playing. A negative pos means the newest sample.
func (t *AnalysisTap) SnapshotAt(dst []uint8, pos int64) {
	n := len(dst)
	if n > tapRingLen {
		n = tapRingLen
		dst = dst[:n]
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	delay := int64(0)
	if pos >= 0 {
		delay = t.written - pos
	}
	if delay < 0 {
		delay = 0
	}
	if delay > int64(tapRingLen-n) {
		delay = int64(tapRingLen - n)
	}
	// Index of the first sample of the window, counted from the start of time.
	first := t.written - delay - int64(n)
	start := (t.writePos - int(delay) - n + 2*tapRingLen) % tapRingLen
	for i := 0; i < n; i++ {
		if first+int64(i) < 0 {
			dst[i] = AnalysisMid
			continue
		}
		dst[i] = Quantize(t.ring[(start+i)%tapRingLen])
	}
}

// Reset forgets everything written so far.
func (t *AnalysisTap) Reset() {
	t.mu.Lock()
	for i := range t.ring {
		t.ring[i] = 0
	}
	t.writePos = 0
	t.written = 0
	t.mu.Unlock()
}

// Quantize maps a sample in [-1, 1] to 0..255 centred at 128.
func Quantize(x float32) uint8 {
	v := AnalysisMid * (1 + x)
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
