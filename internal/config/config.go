// Package config loads the YAML settings shared by the polysynth commands.
// Command-line flags override whatever the file sets.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/polysynth-go/internal/audio"
	"github.com/cbegin/polysynth-go/internal/input"
	"github.com/cbegin/polysynth-go/internal/logging"
)

var ErrInvalidConfig = errors.New("invalid config")

type Scope struct {
	Addr  string `yaml:"addr"` // empty disables the websocket scope server
	FPS   int    `yaml:"fps"`
	Width int    `yaml:"width"` // points per trace
}

type Delay struct {
	Ms       float64 `yaml:"ms"` // 0 disables the echo
	Feedback float64 `yaml:"feedback"`
	Wet      float64 `yaml:"wet"`
}

type Config struct {
	SampleRate int           `yaml:"sampleRate"`
	Backend    string        `yaml:"backend"`
	LogLevel   string        `yaml:"logLevel"`
	Patch      string        `yaml:"patch"` // .json, .yaml or .lua
	BaseOctave int           `yaml:"baseOctave"`
	NoteLength time.Duration `yaml:"noteLength"`
	MIDIDevice string        `yaml:"midiDevice"`
	Scope      Scope         `yaml:"scope"`
	Delay      Delay         `yaml:"delay"`
}

func Default() Config {
	return Config{
		SampleRate: 48000,
		Backend:    string(audio.Oto),
		LogLevel:   "info",
		BaseOctave: input.DefaultBaseOctave,
		NoteLength: input.DefaultNoteLength,
		Scope:      Scope{FPS: 30, Width: 256},
	}
}

// Load reads path over Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("%w: sampleRate %d out of range", ErrInvalidConfig, c.SampleRate)
	}
	if _, err := audio.ParseKind(c.Backend); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.BaseOctave < input.MinBaseOctave || c.BaseOctave > input.MaxBaseOctave {
		return fmt.Errorf("%w: baseOctave %d not in %d..%d", ErrInvalidConfig, c.BaseOctave, input.MinBaseOctave, input.MaxBaseOctave)
	}
	if c.NoteLength < 0 {
		return fmt.Errorf("%w: negative noteLength", ErrInvalidConfig)
	}
	if c.Scope.FPS <= 0 || c.Scope.FPS > 120 {
		return fmt.Errorf("%w: scope.fps %d", ErrInvalidConfig, c.Scope.FPS)
	}
	if c.Scope.Width < 2 {
		return fmt.Errorf("%w: scope.width %d", ErrInvalidConfig, c.Scope.Width)
	}
	if c.Delay.Ms < 0 || c.Delay.Ms > 2000 {
		return fmt.Errorf("%w: delay.ms %v", ErrInvalidConfig, c.Delay.Ms)
	}
	if c.Delay.Feedback < 0 || c.Delay.Feedback >= 1 {
		return fmt.Errorf("%w: delay.feedback %v must be in [0, 1)", ErrInvalidConfig, c.Delay.Feedback)
	}
	if c.Delay.Wet < 0 || c.Delay.Wet > 1 {
		return fmt.Errorf("%w: delay.wet %v", ErrInvalidConfig, c.Delay.Wet)
	}
	return nil
}
