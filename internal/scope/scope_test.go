package scope

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

func flat(n int) []uint8 {
	buf := make([]uint8, n)
	for i := range buf {
		buf[i] = Mid
	}
	return buf
}

func TestFindPeriodBetweenCrossings(t *testing.T) {
	buf := flat(64)
	// Upward crossings at 10 and 30.
	buf[9], buf[10] = 100, 150
	buf[29], buf[30] = 90, 140
	start, period := FindPeriod(buf)
	if start != 10 || period != 20 {
		t.Fatalf("start=%d period=%d, want 10, 20", start, period)
	}
}

func TestFindPeriodSingleCrossingFallsBack(t *testing.T) {
	buf := flat(1024)
	buf[4], buf[5] = 0, 200
	start, period := FindPeriod(buf)
	if start != 5 || period != 256 {
		t.Fatalf("start=%d period=%d, want 5, 256", start, period)
	}
}

func TestFindPeriodFallbackClampsToBuffer(t *testing.T) {
	buf := flat(100)
	buf[89], buf[90] = 10, 250
	start, period := FindPeriod(buf)
	if start != 90 || period != 9 {
		t.Fatalf("start=%d period=%d, want 90, 9", start, period)
	}
}

func TestFindPeriodNoCrossing(t *testing.T) {
	start, period := FindPeriod(flat(40))
	if start != 0 || period != 10 {
		t.Fatalf("start=%d period=%d, want 0, 10", start, period)
	}
}

func TestRMS(t *testing.T) {
	if r := RMS(flat(16)); r != 0 {
		t.Fatalf("silent RMS = %f", r)
	}
	buf := make([]uint8, 16)
	for i := range buf {
		if i%2 == 0 {
			buf[i] = 192
		} else {
			buf[i] = 64
		}
	}
	if r := RMS(buf); math.Abs(r-0.5) > 1e-12 {
		t.Fatalf("RMS = %f, want 0.5", r)
	}
	if RMS(nil) != 0 {
		t.Fatalf("RMS(nil) should be 0")
	}
}

func TestTraceStretchesOnePeriod(t *testing.T) {
	buf := flat(32)
	for i := 0; i < 4; i++ {
		buf[8+i] = uint8(128 + 32*i)
	}
	dst := make([]float32, 8)
	Trace(buf, 8, 4, dst)
	want := []float32{0, 0, 0.25, 0.25, 0.5, 0.5, 0.75, 0.75}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("trace = %v, want %v", dst, want)
		}
	}
}

func TestTraceClampsPastEnd(t *testing.T) {
	buf := flat(8)
	buf[7] = 255
	dst := make([]float32, 4)
	Trace(buf, 6, 8, dst)
	if dst[3] != float32(127)/128 {
		t.Fatalf("last column = %f", dst[3])
	}
}

func TestBarHeight(t *testing.T) {
	if h := BarHeight(0, 120); h != 2 {
		t.Fatalf("minimum bar = %f", h)
	}
	if h := BarHeight(0.5, 120); h != 60 {
		t.Fatalf("half bar = %f", h)
	}
	if h := BarHeight(3, 120); h != 120 {
		t.Fatalf("full bar = %f", h)
	}
}

type sineSource struct{ calls atomic.Int32 }

func (s *sineSource) Snapshot(dst []uint8) {
	s.calls.Add(1)
	for i := range dst {
		dst[i] = uint8(128 + 100*math.Sin(2*math.Pi*float64(i)/32))
	}
}

func TestExtractorStableTrace(t *testing.T) {
	src := &sineSource{}
	x := NewExtractor(1024, 100)
	f := x.Extract(src)
	if f.Period != 32 {
		t.Fatalf("period = %d, want 32", f.Period)
	}
	if f.RMS < 0.5 || f.RMS > 0.6 {
		t.Fatalf("rms = %f, want ~0.55", f.RMS)
	}
	if len(f.Trace) != 100 || x.Width() != 100 {
		t.Fatalf("trace width = %d", len(f.Trace))
	}
	first := append([]float32(nil), f.Trace...)
	f = x.Extract(src)
	for i := range first {
		if first[i] != f.Trace[i] {
			t.Fatalf("trace moved between identical snapshots at %d", i)
		}
	}
}

func TestExtractBytesPadsShortInput(t *testing.T) {
	x := NewExtractor(16, 4)
	f := x.ExtractBytes([]uint8{0, 255})
	if f.RMS <= 0 {
		t.Fatalf("rms = %f", f.RMS)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &sineSource{}
	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan Frame, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, src, NewExtractor(256, 32), 200, func(f Frame) {
			select {
			case frames <- f:
			default:
			}
		})
	}()

	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame delivered")
	}
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
}
