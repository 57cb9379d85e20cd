package main

import (
	"cmp"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"go.uber.org/zap"

	"github.com/cbegin/polysynth-go"
	"github.com/cbegin/polysynth-go/internal/patch"
	"github.com/cbegin/polysynth-go/internal/pitch"
	"github.com/cbegin/polysynth-go/internal/synth"
)

type navEntry struct {
	name  string
	path  string
	isDir bool
}

func isPatchFile(name string) bool {
	_, err := patch.FormatOf(name)
	return err == nil
}

// refreshNav lists g.cwd: ".." first, then directories, then patch files,
// each group in case-insensitive order.
func (g *game) refreshNav() error {
	items, err := os.ReadDir(g.cwd)
	if err != nil {
		return err
	}
	var nav []navEntry
	if parent := filepath.Dir(g.cwd); parent != g.cwd {
		nav = append(nav, navEntry{name: "..", path: parent, isDir: true})
	}
	for _, it := range items {
		if it.IsDir() || isPatchFile(it.Name()) {
			nav = append(nav, navEntry{name: it.Name(), path: filepath.Join(g.cwd, it.Name()), isDir: it.IsDir()})
		}
	}
	rank := func(e navEntry) int {
		switch {
		case e.name == "..":
			return 0
		case e.isDir:
			return 1
		}
		return 2
	}
	slices.SortStableFunc(nav, func(a, b navEntry) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
	})
	g.nav = nav
	return nil
}

func (g *game) clickNavigator(my int, rect image.Rectangle) {
	top := rect.Min.Y + 12 + (lineH * 2)
	row := (my - top) / lineH
	if row < 0 {
		return
	}
	idx := g.navScroll + row
	if idx < 0 || idx >= len(g.nav) {
		return
	}
	entry := g.nav[idx]
	if entry.isDir {
		g.cwd = entry.path
		g.navScroll = 0
		if err := g.refreshNav(); err != nil {
			g.setError(err.Error())
			return
		}
		g.setStatus("Directory: " + g.cwd)
		return
	}
	g.loadPatch(entry.path)
}

// loadPatch applies a patch through the synth setters, so voices that are
// sounding glide to it.
func (g *game) loadPatch(path string) {
	p, err := patch.Load(path)
	if err == nil {
		err = patch.Apply(p, g.synth)
	}
	if err != nil {
		g.log.Warn("patch rejected", zap.String("path", path), zap.Error(err))
		g.setError(err.Error())
		return
	}
	g.loadedPath = path
	g.cwd = filepath.Dir(path)
	if err := g.refreshNav(); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Loaded " + filepath.Base(path))
}

func (g *game) drawNavigator(screen *ebiten.Image, rect image.Rectangle) {
	label := g.cwd
	if g.loadedPath != "" {
		label = g.cwd + "  [" + filepath.Base(g.loadedPath) + "]"
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenMiddle(label, maxChars), rect.Min.X+8, rect.Min.Y+8+lineH)

	top := rect.Min.Y + 12 + (lineH * 2)
	maxLines := max(1, (rect.Dy()-(lineH*2)-18)/lineH)
	if g.navScroll > len(g.nav)-1 {
		g.navScroll = max(0, len(g.nav)-1)
	}

	for i := 0; i < maxLines; i++ {
		idx := g.navScroll + i
		if idx < 0 || idx >= len(g.nav) {
			break
		}
		entry := g.nav[idx]
		y := top + i*lineH
		if g.loadedPath != "" && !entry.isDir && samePath(entry.path, g.loadedPath) {
			ebitenutil.DrawRect(screen, float64(rect.Min.X+6), float64(y-2), float64(rect.Dx()-12), float64(lineH+2), highlightColor)
		}
		txt := entry.name
		if entry.isDir && entry.name != ".." {
			txt += "/"
		}
		g.drawText(screen, shortenEnd(txt, maxChars-1), rect.Min.X+10, y)
	}
}

var eqBandLabels = [5]string{"Lo", "LoM", "Mid", "HiM", "Hi"}

func (g *game) drawEQ(screen *ebiten.Image, rect image.Rectangle) {
	numBands := len(g.eqGains)
	pad := 8
	labelH := 4
	innerX := rect.Min.X + pad
	innerW := rect.Dx() - pad*2
	innerY := rect.Min.Y + labelH
	innerH := rect.Dy() - labelH - pad

	bandW := innerW / numBands
	if bandW < 10 {
		return
	}
	for i := 0; i < numBands; i++ {
		bx := innerX + i*bandW
		bw := bandW - 4

		ebitenutil.DrawRect(screen, float64(bx+bw/2-2), float64(innerY), 4, float64(innerH), bevelDarker)
		centerY := innerY + innerH/2
		ebitenutil.DrawRect(screen, float64(bx), float64(centerY), float64(bw), 1, borderColor)

		// gain 0..2 maps bottom..top
		frac := clamp(g.eqGains[i]/2.0, 0, 1)
		knobY := innerY + innerH - int(frac*float64(innerH)) - 4
		knobRect := image.Rect(bx+2, knobY, bx+bw-2, knobY+8)
		ebitenutil.DrawRect(screen, float64(knobRect.Min.X), float64(knobRect.Min.Y), float64(knobRect.Dx()), float64(knobRect.Dy()), panelColor)
		drawBorder(screen, knobRect)
	}
}

func (g *game) clickEQ(mx, my int, rect image.Rectangle) {
	innerX := rect.Min.X + 8
	bandW := (rect.Dx() - 16) / len(g.eqGains)
	if bandW <= 0 {
		return
	}
	band := (mx - innerX) / bandW
	if band < 0 || band >= len(g.eqGains) {
		return
	}
	g.draggingEQ = band
	g.dragEQ(mx, my, rect)
}

func (g *game) dragEQ(mx, my int, rect image.Rectangle) {
	band := g.draggingEQ
	if band < 0 || band >= len(g.eqGains) {
		return
	}
	innerY := rect.Min.Y + 4
	innerH := rect.Dy() - 12
	if innerH <= 0 {
		return
	}
	gain := 2 * (1 - clamp(float64(my-innerY)/float64(innerH), 0, 1))
	g.eqGains[band] = gain
	g.synth.SetEQBand(band, float32(gain))
	g.setStatus(fmt.Sprintf("EQ %s: %.1f", eqBandLabels[band], gain))
}

// knob is one horizontal parameter slider. get and set work in slider
// position, 0..1.
type knob struct {
	label string
	get   func(p polysynth.Params) float64
	set   func(s *polysynth.Synth, frac float64)
	show  func(p polysynth.Params) string
}

const (
	cutoffRange = synth.MaxFrequency / synth.MinFrequency
	maxUIQ      = 20.0
)

func envTime(frac float64) float64    { return synth.MaxEnvTime * frac * frac }
func envFrac(seconds float64) float64 { return math.Sqrt(seconds / synth.MaxEnvTime) }

func setEnv(s *polysynth.Synth, edit func(e *synth.Envelope)) {
	e := s.Params().Envelope
	edit(&e)
	s.SetEnvelope(e.Attack, e.Decay, e.Sustain, e.Release)
}

var knobs = []knob{
	{
		label: "Cutoff",
		get: func(p polysynth.Params) float64 {
			return math.Log(p.Filter.Cutoff/synth.MinFrequency) / math.Log(cutoffRange)
		},
		set: func(s *polysynth.Synth, frac float64) {
			f := s.Params().Filter
			s.SetFilter(f.Kind, synth.MinFrequency*math.Pow(cutoffRange, frac), f.Resonance)
		},
		show: func(p polysynth.Params) string { return fmt.Sprintf("%.0f Hz", p.Filter.Cutoff) },
	},
	{
		label: "Res",
		get:   func(p polysynth.Params) float64 { return p.Filter.Resonance / maxUIQ },
		set: func(s *polysynth.Synth, frac float64) {
			f := s.Params().Filter
			s.SetFilter(f.Kind, f.Cutoff, frac*maxUIQ)
		},
		show: func(p polysynth.Params) string { return fmt.Sprintf("Q %.2f", p.Filter.Resonance) },
	},
	{
		label: "Attack",
		get:   func(p polysynth.Params) float64 { return envFrac(p.Envelope.Attack) },
		set: func(s *polysynth.Synth, frac float64) {
			setEnv(s, func(e *synth.Envelope) { e.Attack = envTime(frac) })
		},
		show: func(p polysynth.Params) string { return fmt.Sprintf("%.3f s", p.Envelope.Attack) },
	},
	{
		label: "Decay",
		get:   func(p polysynth.Params) float64 { return envFrac(p.Envelope.Decay) },
		set: func(s *polysynth.Synth, frac float64) {
			setEnv(s, func(e *synth.Envelope) { e.Decay = envTime(frac) })
		},
		show: func(p polysynth.Params) string { return fmt.Sprintf("%.3f s", p.Envelope.Decay) },
	},
	{
		label: "Sustain",
		get:   func(p polysynth.Params) float64 { return p.Envelope.Sustain },
		set: func(s *polysynth.Synth, frac float64) {
			setEnv(s, func(e *synth.Envelope) { e.Sustain = frac })
		},
		show: func(p polysynth.Params) string { return fmt.Sprintf("%.2f", p.Envelope.Sustain) },
	},
	{
		label: "Release",
		get:   func(p polysynth.Params) float64 { return envFrac(p.Envelope.Release) },
		set: func(s *polysynth.Synth, frac float64) {
			setEnv(s, func(e *synth.Envelope) { e.Release = envTime(frac) })
		},
		show: func(p polysynth.Params) string { return fmt.Sprintf("%.3f s", p.Envelope.Release) },
	},
}

const (
	knobLabelW = 130
	knobValueW = 130
)

func knobTrack(rect image.Rectangle, i int) (x, y, w int) {
	x = rect.Min.X + 8 + knobLabelW
	w = rect.Dx() - 16 - knobLabelW - knobValueW
	y = rect.Min.Y + 10 + i*lineH + lineH/2 - 4
	return x, y, w
}

func (g *game) drawKnobs(screen *ebiten.Image, rect image.Rectangle) {
	p := g.synth.Params()
	for i, k := range knobs {
		x, y, w := knobTrack(rect, i)
		g.drawText(screen, k.label, rect.Min.X+8, rect.Min.Y+10+i*lineH)
		g.drawTrack(screen, x, y, w, clamp(k.get(p), 0, 1))
		g.drawText(screen, k.show(p), x+w+16, rect.Min.Y+10+i*lineH)
	}
}

func (g *game) clickKnob(mx, my int, rect image.Rectangle) {
	i := (my - rect.Min.Y - 10) / lineH
	if i < 0 || i >= len(knobs) {
		return
	}
	g.dragKnob = i
	g.dragKnobTo(mx, rect)
}

func (g *game) dragKnobTo(mx int, rect image.Rectangle) {
	k := knobs[g.dragKnob]
	x, _, w := knobTrack(rect, g.dragKnob)
	if w <= 0 {
		return
	}
	k.set(g.synth, clamp(float64(mx-x)/float64(w), 0, 1))
	g.setStatus(k.label + ": " + k.show(g.synth.Params()))
}

// drawVoices lists the eight slots: stage, tag and pitch of each.
func (g *game) drawVoices(screen *ebiten.Image, rect image.Rectangle) {
	g.drawText(screen, fmt.Sprintf("Voices %d/%d held", countHeld(g.voices), synth.Polyphony), rect.Min.X+8, rect.Min.Y+8)
	colW := (rect.Dx() - 16) / 4
	maxChars := max(4, colW/charW-1)
	for i, v := range g.voices {
		x := rect.Min.X + 8 + (i%4)*colW
		y := rect.Min.Y + 8 + lineH*(1+i/4)
		label := fmt.Sprintf("%d -", v.Index)
		if v.Stage != synth.StageIdle {
			label = fmt.Sprintf("%d %s %s", v.Index, pitch.NoteName(pitch.Ftom(v.Frequency)), v.Stage)
		}
		if v.Active {
			ebitenutil.DrawRect(screen, float64(x-2), float64(y-2), float64(colW-4), float64(lineH), highlightColor)
		}
		g.drawText(screen, shortenEnd(label, maxChars), x, y)
	}
}

func countHeld(vs []synth.VoiceInfo) int {
	n := 0
	for _, v := range vs {
		if v.Active {
			n++
		}
	}
	return n
}
