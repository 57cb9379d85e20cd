package polysynth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	intfx "github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/osc"
	"github.com/cbegin/polysynth-go/internal/pitch"
	"github.com/cbegin/polysynth-go/internal/synth"
)

// ErrInvalidScript wraps every ParseScript failure.
var ErrInvalidScript = errors.New("invalid note script")

// ScriptKind says what a script line changes.
type ScriptKind int

const (
	ScriptNote ScriptKind = iota
	ScriptWave
	ScriptFilter
	ScriptEnvelope
	ScriptGain
)

// ScriptEvent is one timed line of a note script.
type ScriptEvent struct {
	At       float64 // seconds from the start of the render
	Kind     ScriptKind
	Note     NoteEvent
	Wave     Wave
	Filter   synth.FilterParams
	Envelope synth.Envelope
	Gain     float64
}

// Script is a list of events ordered by time.
type Script []ScriptEvent

// ParseScript reads a note script. Each non-empty line starts with a time in
// seconds followed by a command:
//
//	0.00 on A4 lead       start 440 Hz with tag "lead"
//	0.50 on 261.63        start a note by frequency
//	1.00 off A4 lead      release by tag, else within 3 Hz
//	1.00 off - lead       release by tag only
//	2.00 alloff
//	0.00 wave square
//	0.00 filter lowpass 900 1.5
//	0.00 env 0.01 0.2 0.7 0.4
//	0.00 gain 0.3
//
// Text after '#' is ignored. Events keep file order within the same time.
func ParseScript(r io.Reader) (Script, error) {
	var out Script
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		ev, err := parseScriptLine(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidScript, line, err)
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At < out[j].At })
	return out, nil
}

func parseScriptLine(fields []string) (ScriptEvent, error) {
	if len(fields) < 2 {
		return ScriptEvent{}, errors.New("expected a time and a command")
	}
	at, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || at < 0 || math.IsInf(at, 0) {
		return ScriptEvent{}, fmt.Errorf("bad time %q", fields[0])
	}
	ev := ScriptEvent{At: at}
	args := fields[2:]
	switch cmd := strings.ToLower(fields[1]); cmd {
	case "on", "off":
		if len(args) < 1 || len(args) > 2 {
			return ev, fmt.Errorf("%s takes a pitch and an optional tag", cmd)
		}
		tag := ""
		if len(args) == 2 {
			tag = args[1]
		}
		ev.Kind = ScriptNote
		if cmd == "off" && args[0] == "-" {
			if tag == "" {
				return ev, errors.New("off - needs a tag")
			}
			ev.Note = synth.OffTag(tag)
			return ev, nil
		}
		hz, err := parsePitch(args[0])
		if err != nil {
			return ev, err
		}
		if cmd == "on" {
			ev.Note = synth.On(hz, tag)
		} else {
			ev.Note = synth.Off(hz, tag)
		}
	case "alloff":
		ev.Kind = ScriptNote
		ev.Note = synth.AllOff()
	case "wave":
		if len(args) != 1 {
			return ev, errors.New("wave takes one shape")
		}
		w, err := osc.ParseWave(args[0])
		if err != nil {
			return ev, err
		}
		ev.Kind = ScriptWave
		ev.Wave = w
	case "filter":
		if len(args) != 3 {
			return ev, errors.New("filter takes kind, cutoff and resonance")
		}
		k, err := filter.ParseKind(args[0])
		if err != nil {
			return ev, err
		}
		nums, err := parseFloats(args[1:])
		if err != nil {
			return ev, err
		}
		ev.Kind = ScriptFilter
		ev.Filter = synth.FilterParams{Kind: k, Cutoff: nums[0], Resonance: nums[1]}
	case "env":
		if len(args) != 4 {
			return ev, errors.New("env takes attack, decay, sustain and release")
		}
		nums, err := parseFloats(args)
		if err != nil {
			return ev, err
		}
		ev.Kind = ScriptEnvelope
		ev.Envelope = synth.Envelope{Attack: nums[0], Decay: nums[1], Sustain: nums[2], Release: nums[3]}
	case "gain":
		if len(args) != 1 {
			return ev, errors.New("gain takes one level")
		}
		nums, err := parseFloats(args)
		if err != nil {
			return ev, err
		}
		ev.Kind = ScriptGain
		ev.Gain = nums[0]
	default:
		return ev, fmt.Errorf("unknown command %q", fields[1])
	}
	return ev, nil
}

// parsePitch accepts a frequency in Hz or a note name such as "C#4".
func parsePitch(s string) (float64, error) {
	if hz, err := strconv.ParseFloat(s, 64); err == nil {
		if hz <= 0 {
			return 0, fmt.Errorf("frequency %q must be positive", s)
		}
		return hz, nil
	}
	n, err := pitch.ParseNote(s)
	if err != nil {
		return 0, err
	}
	return pitch.Mtof(float64(n)), nil
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", a)
		}
		out[i] = v
	}
	return out, nil
}

// Duration is the time of the last event plus the longest release in play
// and a short tail.
func (s Script) Duration(params Params) float64 {
	release := params.Envelope.Release
	end := 0.0
	for _, ev := range s {
		end = math.Max(end, ev.At)
		if ev.Kind == ScriptEnvelope {
			release = math.Max(release, ev.Envelope.Release)
		}
	}
	return end + synth.Envelope{Release: release}.Clamp().Release + 0.1
}

// RenderScript plays script through a fresh engine with the same master
// chain a live Synth uses and returns interleaved stereo samples. Events land
// on the exact frame of their time. seconds <= 0 renders Script.Duration.
func RenderScript(script Script, sampleRate int, seconds float64, params Params) []float32 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if seconds <= 0 {
		seconds = script.Duration(params)
	}
	engine := synth.New(sampleRate, params)
	engine.SetEffects(buildMasterChain(sampleRate, intfx.NewEQ5Band(sampleRate), nil))

	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	pos := 0
	for _, ev := range script {
		at := int(math.Round(ev.At * float64(sampleRate)))
		if at >= frames {
			break
		}
		if at > pos {
			engine.Render(out[2*pos : 2*at])
			pos = at
		}
		applyScriptEvent(engine, ev)
	}
	if pos < frames {
		engine.Render(out[2*pos:])
	}
	return out
}

func applyScriptEvent(e *synth.Engine, ev ScriptEvent) {
	switch ev.Kind {
	case ScriptNote:
		applyNote(e, ev.Note)
	case ScriptWave:
		e.SetWaveform(ev.Wave)
	case ScriptFilter:
		e.SetFilter(ev.Filter.Kind, ev.Filter.Cutoff, ev.Filter.Resonance)
	case ScriptEnvelope:
		e.SetEnvelope(ev.Envelope.Attack, ev.Envelope.Decay, ev.Envelope.Sustain, ev.Envelope.Release)
	case ScriptGain:
		e.SetMasterGain(ev.Gain)
	}
}

// applyNote is Synth.Handle without the queue.
func applyNote(e *synth.Engine, ev NoteEvent) {
	switch ev.Kind {
	case synth.NoteOn:
		e.StartNote(ev.Frequency, ev.Tag)
	case synth.NoteOff:
		switch {
		case ev.HasFrequency:
			e.StopNote(ev.Frequency, ev.Tag)
		case ev.Tag != "":
			e.StopNote(math.NaN(), ev.Tag)
		default:
			e.StopAll()
		}
	case synth.AllNotesOff:
		e.StopAll()
	}
}

// WriteWAV encodes interleaved float32 samples as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate, channels int) error {
	if channels <= 0 {
		return errors.New("channels must be positive")
	}
	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return enc.Close()
}
