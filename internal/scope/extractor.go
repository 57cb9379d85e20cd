package scope

import (
	"context"
	"time"
)

// Source is anything that can fill a byte snapshot; *synth.AnalysisTap is one.
type Source interface {
	Snapshot(dst []uint8)
}

// Frame is one extracted display frame. Trace is owned by the Extractor and
// is overwritten by the next Extract.
type Frame struct {
	RMS    float64   `json:"rms"`
	Start  int       `json:"start"`
	Period int       `json:"period"`
	Trace  []float32 `json:"trace"`
}

// Extractor holds the snapshot and resample buffers for one consumer.
type Extractor struct {
	buf   []uint8
	trace []float32
}

// NewExtractor reads size-sample snapshots and produces width-point traces.
func NewExtractor(size, width int) *Extractor {
	if size < 2 {
		size = 2
	}
	if width < 1 {
		width = 1
	}
	return &Extractor{
		buf:   make([]uint8, size),
		trace: make([]float32, width),
	}
}

// Width is the number of points in each trace.
func (x *Extractor) Width() int { return len(x.trace) }

// Extract snapshots src and computes a frame.
func (x *Extractor) Extract(src Source) Frame {
	src.Snapshot(x.buf)
	return x.frame()
}

// ExtractBytes computes a frame from an existing snapshot.
func (x *Extractor) ExtractBytes(buf []uint8) Frame {
	n := copy(x.buf, buf)
	for i := n; i < len(x.buf); i++ {
		x.buf[i] = Mid
	}
	return x.frame()
}

func (x *Extractor) frame() Frame {
	start, period := FindPeriod(x.buf)
	Trace(x.buf, start, period, x.trace)
	return Frame{
		RMS:    RMS(x.buf),
		Start:  start,
		Period: period,
		Trace:  x.trace,
	}
}

// Run extracts a frame fps times a second and hands it to fn until ctx is
// done. A slow fn makes ticks drop; frames are never queued. It returns
// ctx.Err().
func Run(ctx context.Context, src Source, x *Extractor, fps int, fn func(Frame)) error {
	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(x.Extract(src))
		}
	}
}
