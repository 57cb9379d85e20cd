package pitch

import (
	"math"
	"testing"
)

func TestMtof(t *testing.T) {
	if f := Mtof(69); math.Abs(f-440) > 0.01 {
		t.Fatalf("Mtof(69) = %f, want 440", f)
	}
	if f := Mtof(60); math.Abs(f-261.63) > 0.01 {
		t.Fatalf("Mtof(60) = %f, want 261.63", f)
	}
	if f := Mtof(81); math.Abs(f-880) > 1e-9 {
		t.Fatalf("Mtof(81) = %f, want 880", f)
	}
}

func TestFtomInvertsMtof(t *testing.T) {
	for n := 0.0; n <= 127; n++ {
		if got := Ftom(Mtof(n)); math.Abs(got-n) > 1e-9 {
			t.Fatalf("Ftom(Mtof(%v)) = %v", n, got)
		}
	}
	if Ftom(0) != 0 {
		t.Fatalf("Ftom(0) should be 0")
	}
}

func TestNoteName(t *testing.T) {
	cases := map[float64]string{
		60:    "C4",
		69:    "A4",
		61:    "C#4",
		0:     "C-1",
		127:   "G9",
		59.6:  "C4",
		-1:    "B-2",
		71.49: "B4",
	}
	for in, want := range cases {
		if got := NoteName(in); got != want {
			t.Fatalf("NoteName(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestParseNote(t *testing.T) {
	cases := map[string]int{"C4": 60, "a4": 69, "F#3": 54, "Bb2": 46, "C-1": 0, "G9": 127}
	for in, want := range cases {
		got, err := ParseNote(in)
		if err != nil {
			t.Fatalf("ParseNote(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseNote(%q) = %d, want %d", in, got, want)
		}
		if NoteName(float64(got)) != NoteName(float64(want)) {
			t.Fatalf("round trip failed for %q", in)
		}
	}
	for _, bad := range []string{"", "H2", "C", "C#x"} {
		if _, err := ParseNote(bad); err == nil {
			t.Fatalf("ParseNote(%q) should fail", bad)
		}
	}
}
