// Package pitch converts between MIDI note numbers, frequencies and names.
package pitch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Mtof returns the equal-tempered frequency of a MIDI note, A4 (69) = 440 Hz.
func Mtof(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}

// Ftom is the inverse of Mtof. It returns 0 for non-positive frequencies.
func Ftom(freq float64) float64 {
	if freq <= 0 {
		return 0
	}
	return 69 + 12*math.Log2(freq/440)
}

// NoteName names a MIDI note in scientific pitch notation: 60 is "C4".
// Fractional notes round to the nearest semitone.
func NoteName(note float64) string {
	n := int(math.Round(note))
	pc := n % 12
	if pc < 0 {
		pc += 12
	}
	octave := floorDiv(n, 12) - 1
	return noteNames[pc] + strconv.Itoa(octave)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ParseNote reads a note name such as "C4", "f#3" or "Bb-1" and returns its
// MIDI number.
func ParseNote(name string) (int, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, fmt.Errorf("empty note name")
	}
	pcs := map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}
	pc, ok := pcs[byte(unicode.ToUpper(rune(s[0])))]
	if !ok {
		return 0, fmt.Errorf("bad note name %q", name)
	}
	rest := s[1:]
	for len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		if rest[0] == '#' {
			pc++
		} else {
			pc--
		}
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("bad octave in note name %q", name)
	}
	return (octave+1)*12 + pc, nil
}
