package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"github.com/cbegin/polysynth-go/internal/logging"
	"github.com/cbegin/polysynth-go/internal/pitch"
	"github.com/cbegin/polysynth-go/internal/synth"
)

// Channel mode controllers that silence everything.
const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

// MIDITag is the voice tag a MIDI note carries.
func MIDITag(key uint8) string {
	return "midi-" + strconv.Itoa(int(key))
}

// DecodeMIDI translates one channel message. Note on with velocity 0 is a
// note off. Anything that does not affect notes returns false.
func DecodeMIDI(msg midi.Message) (synth.NoteEvent, bool) {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		ev := synth.On(pitch.Mtof(float64(key)), MIDITag(key))
		ev.Velocity = vel
		return ev, true
	case msg.GetNoteEnd(&ch, &key):
		return synth.Off(pitch.Mtof(float64(key)), MIDITag(key)), true
	case msg.GetControlChange(&ch, &cc, &val):
		if cc == ccAllSoundOff || cc == ccAllNotesOff {
			return synth.AllOff(), true
		}
	}
	return synth.NoteEvent{}, false
}

// Framer splits a raw MIDI byte stream into channel messages. It follows
// running status and drops realtime, sysex and system common traffic.
type Framer struct {
	status byte
	data   []byte
	skip   int
	sysex  bool
}

// Feed consumes one byte and returns a message when one is complete.
func (f *Framer) Feed(b byte) (midi.Message, bool) {
	switch {
	case b >= 0xF8:
		// realtime bytes may appear anywhere, even inside a message
		return nil, false
	case b == 0xF0:
		f.sysex = true
		f.status = 0
		return nil, false
	case b == 0xF7:
		f.sysex = false
		return nil, false
	case b&0x80 != 0:
		f.sysex = false
		f.data = f.data[:0]
		if b >= 0xF0 {
			f.status = 0
			f.skip = dataLen(b)
			return nil, false
		}
		f.status = b
		f.skip = 0
		return nil, false
	}

	if f.sysex {
		return nil, false
	}
	if f.skip > 0 {
		f.skip--
		return nil, false
	}
	if f.status == 0 {
		return nil, false
	}
	f.data = append(f.data, b)
	if len(f.data) < dataLen(f.status) {
		return nil, false
	}
	msg := make(midi.Message, 0, 1+len(f.data))
	msg = append(msg, f.status)
	msg = append(msg, f.data...)
	f.data = f.data[:0]
	return msg, true
}

func dataLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 2
	}
	switch status {
	case 0xF1, 0xF3:
		return 1
	case 0xF2:
		return 2
	}
	return 0
}

// ReadMIDI decodes a raw MIDI stream from r and sends note events to out
// until r is exhausted or ctx is done. io.EOF ends the stream cleanly.
func ReadMIDI(ctx context.Context, r io.Reader, out chan<- synth.NoteEvent, log *zap.Logger) error {
	log = logging.OrNop(log)
	var f Framer
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			msg, ok := f.Feed(b)
			if !ok {
				continue
			}
			ev, ok := DecodeMIDI(msg)
			if !ok {
				log.Debug("unhandled MIDI message", zap.Stringer("msg", msg))
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read midi: %w", err)
		}
	}
}

// ListenDevice reads a raw MIDI device node such as /dev/snd/midiC1D0 until
// ctx is done.
func ListenDevice(ctx context.Context, path string, out chan<- synth.NoteEvent, log *zap.Logger) error {
	log = logging.OrNop(log)
	dev, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open midi device: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = dev.Close() })
	defer func() {
		if stop() {
			_ = dev.Close()
		}
	}()
	log.Info("MIDI input connected", zap.String("device", path))
	err = ReadMIDI(ctx, dev, out, log)
	log.Info("MIDI input closed", zap.String("device", path), zap.Error(err))
	return err
}
