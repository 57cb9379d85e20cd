// Package polysynth is a real-time polyphonic synthesizer. A Synth owns an
// eight-voice engine and an audio backend; note and parameter calls from any
// goroutine are queued and applied by the audio callback at the start of the
// next block.
package polysynth

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	intaudio "github.com/cbegin/polysynth-go/internal/audio"
	intfx "github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/osc"
	"github.com/cbegin/polysynth-go/internal/synth"
)

// Re-exported so callers only need this package for the common types.
type (
	NoteEvent = synth.NoteEvent
	Params    = synth.Params
	Wave      = osc.Wave
	Filter    = filter.Kind
)

const (
	NoteOn      = synth.NoteOn
	NoteOff     = synth.NoteOff
	AllNotesOff = synth.AllNotesOff
)

// ErrUnsupportedPlatform is returned by NewSynth when the audio backend
// cannot be opened.
var ErrUnsupportedPlatform = intaudio.ErrUnsupportedPlatform

// VoiceEvent carries voice lifecycle events from Watch().
type VoiceEvent struct {
	Kind  int // EventVoiceStarted, EventVoiceStolen, EventVoiceReleased or EventVoiceReclaimed
	Index int
	Tag   string
}

const (
	EventVoiceStarted int = iota
	EventVoiceStolen
	EventVoiceReleased
	EventVoiceReclaimed
)

const (
	DefaultSampleRate = 48000
	commandQueueLen   = 256
)

type Option func(*synthConfig)

type synthConfig struct {
	sampleRate int
	backend    intaudio.Kind
	logger     *zap.Logger
	sampleTap  func([]float32)
	params     synth.Params
	delay      *delayConfig
}

type delayConfig struct {
	ms            float64
	feedback, wet float32
}

func defaultSynthConfig() synthConfig {
	return synthConfig{
		sampleRate: DefaultSampleRate,
		backend:    intaudio.Oto,
		logger:     zap.NewNop(),
		params:     synth.DefaultParams(),
	}
}

func WithSampleRate(sampleRate int) Option {
	return func(cfg *synthConfig) {
		cfg.sampleRate = sampleRate
	}
}

// WithBackend selects the output: audio.Ebiten inside an ebiten program,
// audio.Oto for a plain process, audio.Null when the caller pulls samples
// through Process itself.
func WithBackend(kind intaudio.Kind) Option {
	return func(cfg *synthConfig) {
		cfg.backend = kind
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(cfg *synthConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *synthConfig) {
		cfg.sampleTap = tap
	}
}

// WithParams sets the power-on patch. Values are clamped.
func WithParams(p synth.Params) Option {
	return func(cfg *synthConfig) {
		cfg.params = p
	}
}

// WithMasterDelay adds an echo on the master bus.
func WithMasterDelay(ms float64, feedback, wet float32) Option {
	return func(cfg *synthConfig) {
		if ms <= 0 || wet <= 0 {
			cfg.delay = nil
			return
		}
		cfg.delay = &delayConfig{ms: ms, feedback: feedback, wet: wet}
	}
}

type Synth struct {
	mu         sync.Mutex // lifecycle and the params mirror
	procMu     sync.Mutex // held by Process; direct engine access while stopped
	engine     *synth.Engine
	params     synth.Params
	cmds       chan func(*synth.Engine)
	ready      atomic.Bool
	backend    intaudio.Backend
	sampleRate int
	log        *zap.Logger
	sampleTap  func([]float32)
	masterEQ   *intfx.EQ5Band
	eventCh    chan VoiceEvent
	eventChMu  sync.Mutex
}

// NewSynth builds the engine and opens the audio backend. The synth starts
// stopped: note calls are ignored until Start.
func NewSynth(opts ...Option) (*Synth, error) {
	cfg := defaultSynthConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}

	params := cfg.params.Clamp()
	engine := synth.New(cfg.sampleRate, params)
	eq := intfx.NewEQ5Band(cfg.sampleRate)
	engine.SetEffects(buildMasterChain(cfg.sampleRate, eq, cfg.delay))

	s := &Synth{
		engine:     engine,
		params:     params,
		cmds:       make(chan func(*synth.Engine), commandQueueLen),
		sampleRate: cfg.sampleRate,
		log:        cfg.logger,
		sampleTap:  cfg.sampleTap,
		masterEQ:   eq,
	}
	engine.OnReclaim(func(index int, tag string) {
		s.sendEvent(VoiceEvent{Kind: EventVoiceReclaimed, Index: index, Tag: tag})
	})

	backend, err := intaudio.Open(cfg.backend, cfg.sampleRate, s)
	if err != nil {
		s.log.Error("audio backend unavailable", zap.String("backend", string(cfg.backend)), zap.Error(err))
		return nil, err
	}
	s.backend = backend
	s.log.Debug("synth created",
		zap.String("backend", string(cfg.backend)),
		zap.Int("sampleRate", cfg.sampleRate),
		zap.Bool("delay", cfg.delay != nil))
	return s, nil
}

func buildMasterChain(sampleRate int, eq *intfx.EQ5Band, delay *delayConfig) *intfx.Chain {
	chain := intfx.NewChain(eq)
	if delay != nil {
		chain.Add(intfx.NewDelay(sampleRate, delay.ms, delay.feedback, delay.wet))
	}
	chain.Add(intfx.NewOutputCompressor(sampleRate))
	return chain
}

// Start begins audio output. Calls made before Start are ignored.
func (s *Synth) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return errors.New("synth is closed")
	}
	if s.ready.Load() {
		return nil
	}
	s.procMu.Lock()
	// Only note calls that raced the last Stop can be queued here.
	s.discardLocked()
	s.ready.Store(true)
	s.procMu.Unlock()
	s.backend.Play()
	s.log.Info("synth started", zap.Int("sampleRate", s.sampleRate))
	return nil
}

// Stop pauses output and silences every voice. Note calls become no-ops
// until the next Start; parameter setters keep working.
func (s *Synth) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready.Load() {
		return
	}
	if s.backend != nil {
		s.backend.Pause()
	}
	s.procMu.Lock()
	// Queued setters still have to land; the voices are dropped right after.
	s.drainLocked()
	s.ready.Store(false)
	s.engine.Reset()
	s.procMu.Unlock()
	s.log.Info("synth stopped")
}

// Close stops the synth and releases the audio device.
func (s *Synth) Close() error {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	err := s.backend.Stop()
	s.backend = nil
	return err
}

// Process renders the next block of interleaved stereo frames. The audio
// backend calls it; with the Null backend the caller drives it directly.
func (s *Synth) Process(dst []float32) {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	if !s.ready.Load() {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	s.drainLocked()
	s.engine.Render(dst)
	if s.sampleTap != nil {
		s.sampleTap(dst)
	}
}

func (s *Synth) drainLocked() {
	for {
		select {
		case cmd := <-s.cmds:
			if s.ready.Load() {
				cmd(s.engine)
			}
		default:
			return
		}
	}
}

func (s *Synth) discardLocked() {
	for {
		select {
		case <-s.cmds:
		default:
			return
		}
	}
}

func (s *Synth) enqueue(cmd func(*synth.Engine)) {
	select {
	case s.cmds <- cmd:
	default:
		s.log.Warn("command queue full, dropping command")
	}
}

// applyLocked runs cmd on the engine: queued while running, directly
// otherwise. s.mu must be held.
func (s *Synth) applyLocked(cmd func(*synth.Engine)) {
	if s.ready.Load() {
		s.enqueue(cmd)
		return
	}
	s.procMu.Lock()
	cmd(s.engine)
	s.procMu.Unlock()
}

// StartNote plays frequency Hz. A tag identifies the source (a key, a MIDI
// note); starting a tag that is already sounding retunes that voice.
func (s *Synth) StartNote(frequency float64, tag string) {
	if !s.ready.Load() {
		return
	}
	s.enqueue(func(e *synth.Engine) {
		res := e.StartNote(frequency, tag)
		switch {
		case res.Retuned:
		case res.Stolen:
			s.sendEvent(VoiceEvent{Kind: EventVoiceStolen, Index: res.Index, Tag: tag})
		default:
			s.sendEvent(VoiceEvent{Kind: EventVoiceStarted, Index: res.Index, Tag: tag})
		}
	})
}

// StopNote releases the voice carrying tag, or else the last voice within
// 3 Hz of frequency.
func (s *Synth) StopNote(frequency float64, tag string) {
	if !s.ready.Load() {
		return
	}
	s.enqueue(func(e *synth.Engine) {
		if i := e.StopNote(frequency, tag); i >= 0 {
			s.sendEvent(VoiceEvent{Kind: EventVoiceReleased, Index: i, Tag: tag})
		}
	})
}

// StopAll releases every sounding voice.
func (s *Synth) StopAll() {
	if !s.ready.Load() {
		return
	}
	s.enqueue(func(e *synth.Engine) {
		if n := e.StopAll(); n > 0 {
			s.sendEvent(VoiceEvent{Kind: EventVoiceReleased, Index: -1})
		}
	})
}

// SetFrequency glides the most recently played voice to frequency.
func (s *Synth) SetFrequency(frequency float64) {
	if !s.ready.Load() {
		return
	}
	s.enqueue(func(e *synth.Engine) { e.SetFrequency(frequency) })
}

// Handle applies one NoteEvent.
func (s *Synth) Handle(ev NoteEvent) {
	switch ev.Kind {
	case synth.NoteOn:
		s.StartNote(ev.Frequency, ev.Tag)
	case synth.NoteOff:
		switch {
		case ev.HasFrequency:
			s.StopNote(ev.Frequency, ev.Tag)
		case ev.Tag != "":
			s.StopNote(math.NaN(), ev.Tag)
		default:
			s.StopAll()
		}
	case synth.AllNotesOff:
		s.StopAll()
	}
}

// Run consumes events until ctx is done or events is closed.
func (s *Synth) Run(ctx context.Context, events <-chan NoteEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.log.Debug("note event", zap.Stringer("event", ev))
			s.Handle(ev)
		}
	}
}

// SetWaveform swaps the oscillator shape of every voice. Unknown shapes are
// ignored.
func (s *Synth) SetWaveform(w Wave) {
	if !w.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Waveform = w
	s.applyLocked(func(e *synth.Engine) { e.SetWaveform(w) })
}

// SetFilter sets filter kind, cutoff (Hz) and resonance (Q) for every voice.
func (s *Synth) SetFilter(kind Filter, cutoff, resonance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !kind.Valid() {
		kind = s.params.Filter.Kind
	}
	fp := synth.FilterParams{
		Kind:      kind,
		Cutoff:    synth.ClampFrequency(cutoff),
		Resonance: synth.ClampResonance(resonance),
	}
	s.params.Filter = fp
	s.applyLocked(func(e *synth.Engine) { e.SetFilter(fp.Kind, fp.Cutoff, fp.Resonance) })
}

// SetEnvelope sets ADSR (seconds, sustain level) and reschedules live voices.
func (s *Synth) SetEnvelope(attack, decay, sustain, release float64) {
	env := synth.Envelope{Attack: attack, Decay: decay, Sustain: sustain, Release: release}.Clamp()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.Envelope = env
	s.applyLocked(func(e *synth.Engine) { e.SetEnvelope(env.Attack, env.Decay, env.Sustain, env.Release) })
}

// SetMasterGain sets output level in [0, 1].
func (s *Synth) SetMasterGain(gain float64) {
	g := synth.ClampUnit(gain)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.MasterGain = g
	s.applyLocked(func(e *synth.Engine) { e.SetMasterGain(g) })
}

// Params returns the current parameter set.
func (s *Synth) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// IsRunning reports whether any voice is held. It reflects the audio
// timeline as of the last rendered block.
func (s *Synth) IsRunning() bool {
	return s.engine.ActiveCount() > 0
}

// Voices snapshots every voice slot as of the last rendered block.
func (s *Synth) Voices(dst []synth.VoiceInfo) []synth.VoiceInfo {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	return s.engine.Voices(dst)
}

// Ready reports whether Start has been called (and Stop has not).
func (s *Synth) Ready() bool { return s.ready.Load() }

// AnalysisTap returns the mix-bus tap for visualisers.
func (s *Synth) AnalysisTap() *synth.AnalysisTap {
	return s.engine.Tap()
}

// SampleRate returns the output sample rate.
func (s *Synth) SampleRate() int { return s.sampleRate }

// SetEQBand sets the gain for a master EQ band (0-4). 1.0 = unity.
// Band frequencies: 0=<200Hz, 1=200-800Hz, 2=800-2.5kHz, 3=2.5-8kHz, 4=>8kHz.
// This takes effect immediately on the audio thread (lock-free).
func (s *Synth) SetEQBand(band int, gain float32) {
	s.masterEQ.SetGain(band, gain)
}

// EQBand returns the current gain for a master EQ band (0-4).
func (s *Synth) EQBand(band int) float32 {
	return s.masterEQ.Gain(band)
}

// PlaybackPosition returns the current output position of the audio driver
// in frames, i.e. what the listener actually hears right now.
func (s *Synth) PlaybackPosition() int64 {
	s.mu.Lock()
	b := s.backend
	s.mu.Unlock()
	if b == nil {
		return 0
	}
	return int64(b.Position().Seconds() * float64(s.sampleRate))
}

// Watch returns a channel that receives voice events:
//   - EventVoiceStarted: a free slot took a new note
//   - EventVoiceStolen: the oldest voice was taken over
//   - EventVoiceReleased: StopNote matched a voice (Index -1 for StopAll)
//   - EventVoiceReclaimed: a released slot became free
//
// The channel is buffered (cap 32); events are dropped when it is full.
// Only the most recent Watch() channel receives events.
func (s *Synth) Watch() <-chan VoiceEvent {
	ch := make(chan VoiceEvent, 32)
	s.eventChMu.Lock()
	s.eventCh = ch
	s.eventChMu.Unlock()
	return ch
}

func (s *Synth) sendEvent(ev VoiceEvent) {
	s.eventChMu.Lock()
	ch := s.eventCh
	s.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}
