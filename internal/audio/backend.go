// Package audio connects a SampleSource to an output device.
package audio

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrUnsupportedPlatform is returned by Open when no audio output can be
// created for the requested backend on this machine.
var ErrUnsupportedPlatform = errors.New("unsupported audio platform")

// Kind selects an output backend.
type Kind string

const (
	// Ebiten plays through ebiten's shared audio context; use it when the
	// process also runs an ebiten window.
	Ebiten Kind = "ebiten"
	// Oto opens the device directly; used by the headless command.
	Oto Kind = "oto"
	// Null renders nothing by itself. The owner pulls audio through Read,
	// which keeps tests and offline rendering deterministic.
	Null Kind = "null"
)

// ParseKind maps a backend name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case Ebiten, Oto, Null:
		return k, nil
	case "":
		return Oto, nil
	}
	return "", fmt.Errorf("%w: unknown backend %q", ErrUnsupportedPlatform, name)
}

// Backend is a running (or paused) output stream.
type Backend interface {
	Play()
	Pause()
	Stop() error
	// Position is how much audio the listener has actually heard.
	Position() time.Duration
}

// deviceOS lists the GOOS values ebiten and oto can open a device on.
var deviceOS = map[string]bool{
	"android": true,
	"darwin":  true,
	"freebsd": true,
	"ios":     true,
	"js":      true,
	"linux":   true,
	"netbsd":  true,
	"openbsd": true,
	"windows": true,
}

// Open creates a paused backend of kind that pulls from source.
func Open(kind Kind, sampleRate int, source SampleSource) (Backend, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedPlatform, sampleRate)
	}
	if kind != Null && !deviceOS[runtime.GOOS] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
	}
	var (
		b   Backend
		err error
	)
	switch kind {
	case Ebiten:
		b, err = newEbitenBackend(sampleRate, source)
	case Oto:
		b, err = newOtoBackend(sampleRate, source)
	case Null:
		b = NewNullBackend(sampleRate, source)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnsupportedPlatform, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedPlatform, kind, err)
	}
	return b, nil
}

func framesToDuration(frames int64, sampleRate int) time.Duration {
	if frames <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
