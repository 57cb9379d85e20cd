package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/cbegin/polysynth-go/internal/logging"
	"github.com/cbegin/polysynth-go/internal/synth"
)

// DefaultNoteLength is how long a terminal key press holds its note.
// Terminals report key presses but never key releases.
const DefaultNoteLength = 400 * time.Millisecond

// ErrQuit is returned by TerminalHost.Run when the user asks to quit.
var ErrQuit = errors.New("quit")

// TerminalHost reads raw stdin and turns key presses into timed notes.
// Pressing a held key again extends the note instead of retriggering it.
type TerminalHost struct {
	mapper     *KeyboardMapper
	noteLength time.Duration
	events     chan<- synth.NoteEvent
	status     io.Writer
	log        *zap.Logger

	mu     sync.Mutex
	timers map[rune]*time.Timer
	done   chan struct{}
	once   sync.Once
}

// NewTerminalHost creates a host that sends to events. noteLength <= 0 uses
// DefaultNoteLength.
func NewTerminalHost(events chan<- synth.NoteEvent, mapper *KeyboardMapper, noteLength time.Duration, log *zap.Logger) *TerminalHost {
	if noteLength <= 0 {
		noteLength = DefaultNoteLength
	}
	if mapper == nil {
		mapper = NewKeyboardMapper(DefaultBaseOctave)
	}
	log = logging.OrNop(log)
	return &TerminalHost{
		mapper:     mapper,
		noteLength: noteLength,
		events:     events,
		status:     io.Discard,
		log:        log,
		timers:     make(map[rune]*time.Timer),
		done:       make(chan struct{}),
	}
}

// SetStatus sets where octave changes and notes are echoed.
func (h *TerminalHost) SetStatus(w io.Writer) { h.status = w }

// Run puts stdin in raw mode and handles keys until q or Ctrl-C (ErrQuit),
// EOF, or ctx is done. The terminal is restored before returning.
func (h *TerminalHost) Run(ctx context.Context) error {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("terminal raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, old) }()
	}
	defer h.Close()

	keys := make(chan byte)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				select {
				case keys <- buf[0]:
				case <-h.done:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read stdin: %w", err)
		case b := <-keys:
			if h.HandleKey(b) {
				return ErrQuit
			}
		}
	}
}

// HandleKey processes one byte of input and reports whether it asked to quit.
func (h *TerminalHost) HandleKey(b byte) (quit bool) {
	switch b {
	case 'q', 'Q', 0x03:
		h.send(synth.AllOff())
		return true
	case ' ':
		h.cancelTimers()
		h.send(synth.AllOff())
		return false
	case 'z':
		h.octave(-1)
		return false
	case 'x':
		h.octave(1)
		return false
	}

	key := rune(b)
	ev, ok := h.mapper.Press(key)
	if !ok {
		return false
	}
	h.mu.Lock()
	if t, held := h.timers[key]; held && t.Stop() {
		t.Reset(h.noteLength)
		h.mu.Unlock()
		return false
	}
	h.timers[key] = time.AfterFunc(h.noteLength, func() { h.expire(key) })
	h.mu.Unlock()

	fmt.Fprintf(h.status, "%s\r\n", h.mapper.Label(key))
	h.send(ev)
	return false
}

func (h *TerminalHost) expire(key rune) {
	h.mu.Lock()
	delete(h.timers, key)
	h.mu.Unlock()
	if ev, ok := h.mapper.Release(key); ok {
		h.send(ev)
	}
}

func (h *TerminalHost) octave(delta int) {
	o := h.mapper.Shift(delta)
	h.log.Debug("octave", zap.Int("base", o))
	fmt.Fprintf(h.status, "octave %d\r\n", o)
}

func (h *TerminalHost) send(ev synth.NoteEvent) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

func (h *TerminalHost) cancelTimers() {
	h.mu.Lock()
	for k, t := range h.timers {
		t.Stop()
		delete(h.timers, k)
	}
	h.mu.Unlock()
}

// Close cancels pending note-offs and unblocks any pending send.
func (h *TerminalHost) Close() {
	h.once.Do(func() {
		h.cancelTimers()
		close(h.done)
	})
}
