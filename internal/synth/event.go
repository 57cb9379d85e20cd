package synth

import "fmt"

// NoteKind says what a NoteEvent asks for.
type NoteKind int

const (
	NoteOn NoteKind = iota
	NoteOff
	AllNotesOff
)

func (k NoteKind) String() string {
	switch k {
	case NoteOn:
		return "on"
	case NoteOff:
		return "off"
	case AllNotesOff:
		return "all-off"
	}
	return fmt.Sprintf("note-kind(%d)", int(k))
}

// NoteEvent is the one message every input source sends to the engine.
// A NoteOff without a frequency and without a tag releases every voice;
// with only a tag it releases that tag's voice.
type NoteEvent struct {
	Kind         NoteKind
	Frequency    float64
	HasFrequency bool
	Tag          string
	Velocity     uint8 // informational; the engine plays every note at full level
}

// On builds a NoteOn event.
func On(freq float64, tag string) NoteEvent {
	return NoteEvent{Kind: NoteOn, Frequency: freq, HasFrequency: true, Tag: tag}
}

// Off builds a NoteOff event for a frequency and optional tag.
func Off(freq float64, tag string) NoteEvent {
	return NoteEvent{Kind: NoteOff, Frequency: freq, HasFrequency: true, Tag: tag}
}

// OffTag builds a NoteOff that matches by tag only.
func OffTag(tag string) NoteEvent {
	return NoteEvent{Kind: NoteOff, Tag: tag}
}

// AllOff builds an AllNotesOff event.
func AllOff() NoteEvent {
	return NoteEvent{Kind: AllNotesOff}
}

func (ev NoteEvent) String() string {
	switch {
	case ev.Kind == AllNotesOff:
		return ev.Kind.String()
	case ev.HasFrequency:
		return fmt.Sprintf("%s %.2fHz %q", ev.Kind, ev.Frequency, ev.Tag)
	default:
		return fmt.Sprintf("%s %q", ev.Kind, ev.Tag)
	}
}
