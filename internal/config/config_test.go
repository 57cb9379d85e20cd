package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "polysynth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
sampleRate: 44100
backend: "null"
logLevel: debug
patch: patches/pad.lua
baseOctave: 3
noteLength: 250ms
midiDevice: /dev/snd/midiC1D0
scope:
  addr: 127.0.0.1:8088
  fps: 60
delay:
  ms: 300
  feedback: 0.4
  wet: 0.25
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, "null", cfg.Backend)
	assert.Equal(t, "patches/pad.lua", cfg.Patch)
	assert.Equal(t, 3, cfg.BaseOctave)
	assert.Equal(t, 250*time.Millisecond, cfg.NoteLength)
	assert.Equal(t, "/dev/snd/midiC1D0", cfg.MIDIDevice)
	assert.Equal(t, Scope{Addr: "127.0.0.1:8088", FPS: 60, Width: 256}, cfg.Scope)
	assert.Equal(t, Delay{Ms: 300, Feedback: 0.4, Wet: 0.25}, cfg.Delay)
}

func TestLoadRejects(t *testing.T) {
	for name, body := range map[string]string{
		"unknown key":   "volume: 11\n",
		"bad backend":   "backend: alsa\n",
		"bad level":     "logLevel: chatty\n",
		"sample rate":   "sampleRate: 100\n",
		"octave":        "baseOctave: 9\n",
		"fps":           "scope: {fps: 0}\n",
		"feedback":      "delay: {ms: 100, feedback: 1, wet: 0.5}\n",
		"not yaml":      "sampleRate: [\n",
		"note length":   "noteLength: -1s\n",
		"scope width":   "scope: {width: 1}\n",
		"negative wet":  "delay: {wet: -0.1}\n",
		"delay too big": "delay: {ms: 5000}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
