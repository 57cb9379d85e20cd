package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/polysynth-go"
	"github.com/cbegin/polysynth-go/internal/audio"
	"github.com/cbegin/polysynth-go/internal/config"
	"github.com/cbegin/polysynth-go/internal/input"
	"github.com/cbegin/polysynth-go/internal/logging"
	"github.com/cbegin/polysynth-go/internal/patch"
	"github.com/cbegin/polysynth-go/internal/scope"
	"github.com/cbegin/polysynth-go/internal/scopeweb"
	"github.com/cbegin/polysynth-go/internal/synth"
)

const usage = `usage: polysynth [flags]

Plays the computer keyboard (a w s e d f t g y h u j k; z/x octave, space
silences, q quits). With -render it writes a note script to a WAV file
instead.
`

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		sampleRate = flag.Int("sample-rate", 0, "output sample rate (overrides config)")
		backend    = flag.String("backend", "", "audio backend: oto|ebiten|null")
		logLevel   = flag.String("log-level", "", "debug|info|warn|error")
		jsonLog    = flag.Bool("json-log", false, "log JSON instead of console lines")
		patchPath  = flag.String("patch", "", "patch file (.json, .yaml, .lua)")
		savePatch  = flag.String("save-patch", "", "write the loaded patch to this file and exit")
		octave     = flag.Int("octave", -1, "base octave 0..8")
		noteLength = flag.Duration("note-length", 0, "how long a key press holds its note")
		midiDevice = flag.String("midi", "", "raw MIDI device, e.g. /dev/snd/midiC1D0")
		scopeAddr  = flag.String("scope", "", "serve the websocket scope on this address")
		render     = flag.String("render", "", "note script to render offline")
		out        = flag.String("out", "out.wav", "WAV file written by -render")
		seconds    = flag.Float64("seconds", 0, "render length; 0 runs to the last release")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *sampleRate > 0 {
		cfg.SampleRate = *sampleRate
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *patchPath != "" {
		cfg.Patch = *patchPath
	}
	if *octave >= 0 {
		cfg.BaseOctave = *octave
	}
	if *noteLength > 0 {
		cfg.NoteLength = *noteLength
	}
	if *midiDevice != "" {
		cfg.MIDIDevice = *midiDevice
	}
	if *scopeAddr != "" {
		cfg.Scope.Addr = *scopeAddr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel, !*jsonLog)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	params := synth.DefaultParams()
	if cfg.Patch != "" {
		p, err := patch.Load(cfg.Patch)
		if err != nil {
			logger.Fatal("load patch", zap.String("path", cfg.Patch), zap.Error(err))
		}
		if params, err = p.Params(); err != nil {
			logger.Fatal("load patch", zap.String("path", cfg.Patch), zap.Error(err))
		}
		logger.Info("patch loaded", zap.String("path", cfg.Patch))
	}
	if *savePatch != "" {
		if err := patch.Save(*savePatch, patch.FromParams(params)); err != nil {
			logger.Fatal("save patch", zap.Error(err))
		}
		return
	}

	if *render != "" {
		if err := renderScript(*render, *out, cfg.SampleRate, *seconds, params, logger); err != nil {
			logger.Fatal("render", zap.Error(err))
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := play(ctx, cfg, params, logger); err != nil && !errors.Is(err, input.ErrQuit) {
		logger.Error("play", zap.Error(err))
		os.Exit(1)
	}
}

func renderScript(path, out string, sampleRate int, seconds float64, params synth.Params, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	sc, err := polysynth.ParseScript(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	start := time.Now()
	samples := polysynth.RenderScript(sc, sampleRate, seconds, params)

	w, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := polysynth.WriteWAV(w, samples, sampleRate, 2); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	logger.Info("rendered",
		zap.String("script", path),
		zap.String("out", out),
		zap.Int("events", len(sc)),
		zap.Float64("seconds", float64(len(samples)/2)/float64(sampleRate)),
		zap.Duration("took", time.Since(start)))
	return nil
}

func play(ctx context.Context, cfg config.Config, params synth.Params, logger *zap.Logger) error {
	kind, err := audio.ParseKind(cfg.Backend)
	if err != nil {
		return err
	}
	s, err := polysynth.NewSynth(
		polysynth.WithSampleRate(cfg.SampleRate),
		polysynth.WithBackend(kind),
		polysynth.WithLogger(logger),
		polysynth.WithParams(params),
		polysynth.WithMasterDelay(cfg.Delay.Ms, float32(cfg.Delay.Feedback), float32(cfg.Delay.Wet)),
	)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()
	if err := s.Start(); err != nil {
		return err
	}

	events := make(chan polysynth.NoteEvent, 64)
	host := input.NewTerminalHost(events, input.NewKeyboardMapper(cfg.BaseOctave), cfg.NoteLength, logger)
	host.SetStatus(os.Stdout)
	fmt.Print(usage, "\r\n")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(ctx, events) })
	g.Go(func() error { return host.Run(ctx) })
	g.Go(func() error {
		watchVoices(ctx, s.Watch(), logger)
		return nil
	})
	if cfg.MIDIDevice != "" {
		g.Go(func() error {
			err := input.ListenDevice(ctx, cfg.MIDIDevice, events, logger)
			if err != nil && ctx.Err() == nil {
				// a missing keyboard should not end the session
				logger.Warn("midi input stopped", zap.Error(err))
			}
			return nil
		})
	}
	if cfg.Scope.Addr != "" {
		srv := scopeweb.New(logger)
		g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Scope.Addr) })
		g.Go(func() error {
			x := scope.NewExtractor(synth.AnalysisSize, cfg.Scope.Width)
			return ignoreCanceled(srv.Pump(ctx, s.AnalysisTap(), x, cfg.Scope.FPS))
		})
	}
	return ignoreCanceled(g.Wait())
}

func watchVoices(ctx context.Context, ch <-chan polysynth.VoiceEvent, logger *zap.Logger) {
	names := map[int]string{
		polysynth.EventVoiceStarted:   "started",
		polysynth.EventVoiceStolen:    "stolen",
		polysynth.EventVoiceReleased:  "released",
		polysynth.EventVoiceReclaimed: "reclaimed",
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			logger.Debug("voice", zap.String("event", names[ev.Kind]), zap.Int("slot", ev.Index), zap.String("tag", ev.Tag))
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
