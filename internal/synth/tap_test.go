package synth

import "testing"

func TestQuantize(t *testing.T) {
	cases := map[float32]uint8{0: 128, 1: 255, -1: 0, 0.5: 192, -0.5: 64, 3: 255, -3: 0}
	for in, want := range cases {
		if got := Quantize(in); got != want {
			t.Fatalf("Quantize(%f) = %d, want %d", in, got, want)
		}
	}
}

func TestSnapshotBeforeWriteIsSilent(t *testing.T) {
	tap := NewAnalysisTap()
	buf := make([]uint8, AnalysisSize)
	tap.Snapshot(buf)
	for i, b := range buf {
		if b != AnalysisMid {
			t.Fatalf("buf[%d] = %d, want %d", i, b, AnalysisMid)
		}
	}
}

func TestSnapshotReturnsNewestSamples(t *testing.T) {
	tap := NewAnalysisTap()
	tap.Write([]float32{-1, -0.5, 0, 0.5})
	tap.Write([]float32{1})

	buf := make([]uint8, 3)
	tap.Snapshot(buf)
	if buf[0] != 128 || buf[1] != 192 || buf[2] != 255 {
		t.Fatalf("snapshot = %v", buf)
	}
	if tap.Written() != 5 {
		t.Fatalf("written = %d, want 5", tap.Written())
	}

	// Aligned to position 2: the window ends just before the third sample.
	tap.SnapshotAt(buf, 2)
	if buf[0] != 128 || buf[1] != 0 || buf[2] != 64 {
		t.Fatalf("aligned snapshot = %v", buf)
	}

	tap.Reset()
	tap.Snapshot(buf)
	if buf[2] != AnalysisMid || tap.Written() != 0 {
		t.Fatalf("reset left data behind: %v", buf)
	}
}
