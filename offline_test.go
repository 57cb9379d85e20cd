package polysynth

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/osc"
	"github.com/cbegin/polysynth-go/internal/synth"
)

const phrase = `
# two notes and a chord change
0.00 wave square
0.00 filter bandpass 900 1.5
0.00 on A4 lead
0.25 on 261.63
0.50 off - lead
0.60 env 0.005 0.1 0.5 0.2
0.75 off 262
1.00 gain 0.1
`

func TestParseScript(t *testing.T) {
	sc, err := ParseScript(strings.NewReader(phrase))
	require.NoError(t, err)
	require.Len(t, sc, 8)

	assert.Equal(t, ScriptWave, sc[0].Kind)
	assert.Equal(t, osc.Square, sc[0].Wave)
	assert.Equal(t, filter.Bandpass, sc[1].Filter.Kind)
	assert.Equal(t, 900.0, sc[1].Filter.Cutoff)

	on := sc[2].Note
	assert.Equal(t, synth.NoteOn, on.Kind)
	assert.InDelta(t, 440, on.Frequency, 1e-9)
	assert.Equal(t, "lead", on.Tag)

	off := sc[4].Note
	assert.Equal(t, synth.NoteOff, off.Kind)
	assert.False(t, off.HasFrequency)
	assert.Equal(t, "lead", off.Tag)

	assert.Equal(t, synth.Envelope{Attack: 0.005, Decay: 0.1, Sustain: 0.5, Release: 0.2}, sc[5].Envelope)
	assert.Equal(t, 0.1, sc[7].Gain)
}

func TestParseScriptSortsByTime(t *testing.T) {
	sc, err := ParseScript(strings.NewReader("1 alloff\n0 on C4\n0 on E4\n"))
	require.NoError(t, err)
	require.Len(t, sc, 3)
	assert.InDelta(t, 261.63, sc[0].Note.Frequency, 0.01)
	assert.InDelta(t, 329.63, sc[1].Note.Frequency, 0.01)
	assert.Equal(t, synth.AllNotesOff, sc[2].Note.Kind)
}

func TestParseScriptErrors(t *testing.T) {
	for _, src := range []string{
		"x on A4",
		"-1 on A4",
		"0 on",
		"0 on H4",
		"0 on -5",
		"0 off -",
		"0 wave fuzz",
		"0 filter lowpass 100",
		"0 env 1 2 3",
		"0 gain loud",
		"0 jump",
	} {
		_, err := ParseScript(strings.NewReader(src))
		assert.ErrorIs(t, err, ErrInvalidScript, src)
	}
}

func TestRenderScriptIsDeterministic(t *testing.T) {
	sc, err := ParseScript(strings.NewReader(phrase))
	require.NoError(t, err)

	a := RenderScript(sc, 48000, 1.5, synth.DefaultParams())
	b := RenderScript(sc, 48000, 1.5, synth.DefaultParams())
	require.Len(t, a, 2*72000)
	assert.Equal(t, a, b)

	var peak float64
	for i := 0; i < len(a); i += 2 {
		require.Equal(t, a[i], a[i+1], "channels differ at frame %d", i/2)
		peak = math.Max(peak, math.Abs(float64(a[i])))
	}
	assert.Greater(t, peak, 0.01)
	assert.LessOrEqual(t, peak, 1.0)
}

func TestRenderScriptDefaultLengthCoversRelease(t *testing.T) {
	sc, err := ParseScript(strings.NewReader("0 on A4\n0.5 off A4\n"))
	require.NoError(t, err)
	p := synth.DefaultParams()
	got := RenderScript(sc, 8000, 0, p)
	want := int(8000 * (0.5 + p.Envelope.Release + 0.1))
	assert.Equal(t, 2*want, len(got))

	// The tail after the release has run out is silent.
	for _, s := range got[len(got)-100:] {
		assert.InDelta(t, 0, s, 1e-6)
	}
}

func TestRenderScriptEventBeforeFirstSampleSounds(t *testing.T) {
	sc := Script{{At: 0, Kind: ScriptNote, Note: synth.On(440, "")}}
	out := RenderScript(sc, 48000, 0.2, synth.DefaultParams())
	var peak float64
	for _, s := range out {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	assert.Greater(t, peak, 0.01)
}

func TestWriteWAVRoundTrip(t *testing.T) {
	sc, err := ParseScript(strings.NewReader("0 on A4\n0.2 off A4\n"))
	require.NoError(t, err)
	samples := RenderScript(sc, 22050, 0.5, synth.DefaultParams())

	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteWAV(f, samples, 22050, 2))
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 22050, buf.Format.SampleRate)
	assert.Equal(t, 2, buf.Format.NumChannels)
	assert.Equal(t, len(samples), len(buf.Data))
	assert.Equal(t, int(samples[200]*32767), buf.Data[200])
}

func TestWriteWAVRejectsZeroChannels(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "bad.wav"))
	require.NoError(t, err)
	defer f.Close()
	assert.Error(t, WriteWAV(f, nil, 48000, 0))
}
