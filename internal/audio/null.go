package audio

import (
	"sync/atomic"
	"time"
)

// NullBackend has no device. Audio only moves when the owner calls Read,
// so the position is exactly what has been pulled.
type NullBackend struct {
	reader     *StreamReader
	sampleRate int
	playing    atomic.Bool
}

func NewNullBackend(sampleRate int, source SampleSource) *NullBackend {
	return &NullBackend{reader: NewStreamReader(source), sampleRate: sampleRate}
}

func (b *NullBackend) Play()  { b.playing.Store(true) }
func (b *NullBackend) Pause() { b.playing.Store(false) }

// Playing reports whether Play was called more recently than Pause or Stop.
func (b *NullBackend) Playing() bool { return b.playing.Load() }

// Read pulls f32le stereo bytes from the source.
func (b *NullBackend) Read(p []byte) (int, error) {
	return b.reader.Read(p)
}

func (b *NullBackend) Position() time.Duration {
	return framesToDuration(b.reader.Frames(), b.sampleRate)
}

func (b *NullBackend) Stop() error {
	b.playing.Store(false)
	return nil
}
