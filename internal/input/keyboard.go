// Package input turns computer keys and MIDI bytes into NoteEvents.
package input

import (
	"strconv"
	"unicode"

	"github.com/cbegin/polysynth-go/internal/pitch"
	"github.com/cbegin/polysynth-go/internal/synth"
)

const (
	DefaultBaseOctave = 4
	MinBaseOctave     = 0
	MaxBaseOctave     = 8
)

// The home row plays white keys C to C, the row above plays the sharps.
var (
	whiteKeys = map[rune]int{'a': 0, 's': 2, 'd': 4, 'f': 5, 'g': 7, 'h': 9, 'j': 11, 'k': 12}
	blackKeys = map[rune]int{'w': 1, 'e': 3, 't': 6, 'y': 8, 'u': 10}
)

// KeyToSemitone returns the offset from C that key plays.
func KeyToSemitone(key rune) (int, bool) {
	k := unicode.ToLower(key)
	if st, ok := whiteKeys[k]; ok {
		return st, true
	}
	st, ok := blackKeys[k]
	return st, ok
}

// SemitoneToMIDI returns the MIDI note semitone steps above C of octave.
// C4 is 60.
func SemitoneToMIDI(octave, semitone int) int {
	return 12*(octave+1) + semitone
}

// KeyToMIDI maps a key straight to a MIDI note.
func KeyToMIDI(key rune, octave int) (int, bool) {
	st, ok := KeyToSemitone(key)
	if !ok {
		return 0, false
	}
	return SemitoneToMIDI(octave, st), true
}

// KeyTag is the voice tag a key's notes carry.
func KeyTag(key rune) string {
	return "key-" + string(unicode.ToLower(key))
}

// KeyboardMapper turns key presses into tagged note events.
type KeyboardMapper struct {
	octave int
}

func NewKeyboardMapper(baseOctave int) *KeyboardMapper {
	m := &KeyboardMapper{}
	m.SetOctave(baseOctave)
	return m
}

func (m *KeyboardMapper) Octave() int { return m.octave }

// SetOctave clamps to 0..8.
func (m *KeyboardMapper) SetOctave(o int) {
	m.octave = min(max(o, MinBaseOctave), MaxBaseOctave)
}

// Shift moves the base octave by delta and returns the new one.
func (m *KeyboardMapper) Shift(delta int) int {
	m.SetOctave(m.octave + delta)
	return m.octave
}

// Press returns the NoteOn for key, if it is a note key.
func (m *KeyboardMapper) Press(key rune) (synth.NoteEvent, bool) {
	n, ok := KeyToMIDI(key, m.octave)
	if !ok {
		return synth.NoteEvent{}, false
	}
	return synth.On(pitch.Mtof(float64(n)), KeyTag(key)), true
}

// Release returns the NoteOff for key. It matches by tag, so an octave
// change while the key is down still stops the right voice.
func (m *KeyboardMapper) Release(key rune) (synth.NoteEvent, bool) {
	if _, ok := KeyToSemitone(key); !ok {
		return synth.NoteEvent{}, false
	}
	return synth.OffTag(KeyTag(key)), true
}

// Label describes the key for status lines, e.g. "a C4".
func (m *KeyboardMapper) Label(key rune) string {
	n, ok := KeyToMIDI(key, m.octave)
	if !ok {
		return strconv.QuoteRune(key)
	}
	return string(unicode.ToLower(key)) + " " + pitch.NoteName(float64(n))
}
