package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"github.com/cbegin/polysynth-go"
	"github.com/cbegin/polysynth-go/internal/audio"
	"github.com/cbegin/polysynth-go/internal/filter"
	"github.com/cbegin/polysynth-go/internal/input"
	"github.com/cbegin/polysynth-go/internal/logging"
	"github.com/cbegin/polysynth-go/internal/osc"
	"github.com/cbegin/polysynth-go/internal/patch"
	"github.com/cbegin/polysynth-go/internal/scope"
	"github.com/cbegin/polysynth-go/internal/synth"
)

const (
	windowW      = 1100
	windowH      = 720
	minWindowW   = 980
	minWindowH   = 680
	uiSampleRate = 48000

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	savedPatchName = "polysynth-patch.yaml"
)

var (
	bgColor     = color.RGBA{192, 192, 192, 255}
	panelColor  = color.RGBA{192, 192, 192, 255}
	borderColor = color.RGBA{128, 128, 128, 255}

	highlightColor = color.RGBA{0, 0, 128, 255}

	// 3D bevel colors for old-school embossed look.
	bevelLight  = color.RGBA{255, 255, 255, 255}
	bevelDarker = color.RGBA{64, 64, 64, 255}

	// Sunken panel interior.
	sunkenBgColor = color.RGBA{24, 24, 32, 255}

	sliderFillColor = color.RGBA{0, 0, 128, 255}
)

// noteKeys is the playable row; the mapper turns each into a pitch.
var noteKeys = []struct {
	r rune
	k ebiten.Key
}{
	{'a', ebiten.KeyA}, {'w', ebiten.KeyW}, {'s', ebiten.KeyS}, {'e', ebiten.KeyE},
	{'d', ebiten.KeyD}, {'f', ebiten.KeyF}, {'t', ebiten.KeyT}, {'g', ebiten.KeyG},
	{'y', ebiten.KeyY}, {'h', ebiten.KeyH}, {'u', ebiten.KeyU}, {'j', ebiten.KeyJ},
	{'k', ebiten.KeyK},
}

var (
	waves   = []osc.Wave{osc.Sine, osc.Square, osc.Sawtooth, osc.Triangle}
	filters = []filter.Kind{filter.Lowpass, filter.Highpass, filter.Bandpass, filter.Notch}
)

type game struct {
	synth  *polysynth.Synth
	events <-chan polysynth.VoiceEvent
	log    *zap.Logger
	mapper *input.KeyboardMapper

	extractor *scope.Extractor
	snap      []uint8
	scopeImg  *ebiten.Image
	scopeW    int
	scopeH    int
	voices    []synth.VoiceInfo

	eqGains [5]float64 // 0..2 range, 1.0 = unity

	dragging   int // a dragXxx constant
	draggingEQ int // -1=none, 0-4=band index
	dragKnob   int // -1=none, else index into knobs

	status    string
	statusErr bool

	cwd        string
	nav        []navEntry
	navScroll  int
	loadedPath string

	frameTick int
	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

const (
	dragNone = iota
	dragVolume
	dragOctave
)

func newGame(logger *zap.Logger, patchPath string) (*game, error) {
	s, err := polysynth.NewSynth(
		polysynth.WithSampleRate(uiSampleRate),
		polysynth.WithBackend(audio.Ebiten),
		polysynth.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if patchPath != "" {
		cwd = filepath.Dir(patchPath)
	}

	g := &game{
		synth:      s,
		events:     s.Watch(),
		log:        logger,
		mapper:     input.NewKeyboardMapper(input.DefaultBaseOctave),
		extractor:  scope.NewExtractor(synth.AnalysisSize, 512),
		snap:       make([]uint8, synth.AnalysisSize),
		eqGains:    [5]float64{1, 1, 1, 1, 1},
		draggingEQ: -1,
		dragKnob:   -1,
		status:     "Ready: play a w s e d f t g y h u j k, z/x octave, space silences",
		cwd:        cwd,
		textCache:  make(map[string]*ebiten.Image, 1024),
		viewW:      windowW,
		viewH:      windowH,
	}
	if err := g.refreshNav(); err != nil {
		g.setError(err.Error())
	}
	if patchPath != "" {
		g.loadPatch(patchPath)
	}
	return g, nil
}

func (g *game) Update() error {
	g.frameTick++
	g.pollEvents()
	g.handleKeys()
	g.handleMouse()
	g.voices = g.synth.Voices(g.voices)
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)

	l := g.layoutRects()

	g.drawSunkenPanel(screen, l.nav)
	g.drawPanel(screen, l.eq)
	g.drawPanel(screen, l.knobs)
	g.drawSunkenPanel(screen, l.voices)
	g.drawDarkPanel(screen, l.scope)
	g.drawButton(screen, l.wave, "Wave: "+g.synth.Params().Waveform.String())
	g.drawButton(screen, l.filter, "Filter: "+g.synth.Params().Filter.Kind.String())
	g.drawButton(screen, l.save, "Save")
	g.drawOctaveSlider(screen, l.octave)
	g.drawVolumeSlider(screen, l.volume)
	g.drawSunkenPanel(screen, l.status)

	g.drawText(screen, "Patches", l.nav.Min.X+8, l.nav.Min.Y+8)

	g.drawNavigator(screen, l.nav)
	g.drawEQ(screen, l.eq)
	g.drawKnobs(screen, l.knobs)
	g.drawVoices(screen, l.voices)
	g.drawScope(screen, l.scope)
	g.drawStatus(screen, l.status)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	if outsideW < minWindowW {
		outsideW = minWindowW
	}
	if outsideH < minWindowH {
		outsideH = minWindowH
	}
	g.viewW = outsideW
	g.viewH = outsideH
	return outsideW, outsideH
}

func (g *game) Close() { _ = g.synth.Close() }

func (g *game) pollEvents() {
	for {
		select {
		case ev := <-g.events:
			if ev.Kind == polysynth.EventVoiceStolen {
				g.log.Debug("voice stolen", zap.Int("slot", ev.Index), zap.String("tag", ev.Tag))
			}
		default:
			return
		}
	}
}

func (g *game) handleKeys() {
	for _, nk := range noteKeys {
		if inpututil.IsKeyJustPressed(nk.k) {
			if ev, ok := g.mapper.Press(nk.r); ok {
				g.synth.Handle(ev)
				g.setStatus("Note " + g.mapper.Label(nk.r))
			}
		}
		if inpututil.IsKeyJustReleased(nk.k) {
			if ev, ok := g.mapper.Release(nk.r); ok {
				g.synth.Handle(ev)
			}
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyZ) {
		g.setStatus(fmt.Sprintf("Octave: %d", g.mapper.Shift(-1)))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyX) {
		g.setStatus(fmt.Sprintf("Octave: %d", g.mapper.Shift(1)))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.synth.StopAll()
		g.setStatus("All notes off")
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case pointInRect(mx, my, l.wave):
			g.cycleWave()
			return
		case pointInRect(mx, my, l.filter):
			g.cycleFilter()
			return
		case pointInRect(mx, my, l.save):
			g.savePatch()
			return
		case pointInRect(mx, my, l.octave):
			g.dragging = dragOctave
			g.updateOctaveFromMouse(mx, l.octave)
			return
		case pointInRect(mx, my, l.volume):
			g.dragging = dragVolume
			g.updateVolumeFromMouse(mx, l.volume)
			return
		case pointInRect(mx, my, l.eq):
			g.clickEQ(mx, my, l.eq)
			return
		case pointInRect(mx, my, l.knobs):
			g.clickKnob(mx, my, l.knobs)
			return
		case pointInRect(mx, my, l.nav):
			g.clickNavigator(my, l.nav)
			return
		}
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragging = dragNone
		g.draggingEQ = -1
		g.dragKnob = -1
	}
	switch g.dragging {
	case dragVolume:
		g.updateVolumeFromMouse(mx, l.volume)
	case dragOctave:
		g.updateOctaveFromMouse(mx, l.octave)
	}
	if g.draggingEQ >= 0 {
		g.dragEQ(mx, my, l.eq)
	}
	if g.dragKnob >= 0 {
		g.dragKnobTo(mx, l.knobs)
	}

	_, wy := ebiten.Wheel()
	if wy != 0 && pointInRect(mx, my, l.nav) {
		g.navScroll -= int(wy * 2)
		if g.navScroll < 0 {
			g.navScroll = 0
		}
	}
}

type uiLayout struct {
	nav, eq, knobs, voices, scope image.Rectangle
	wave, filter, save, octave    image.Rectangle
	volume, status                image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w := max(g.viewW, minWindowW)
	h := max(g.viewH, minWindowH)

	pad := 20
	rowH := 44
	statusH := 40

	// Bottom: status row, then controls row above it.
	statusTop := h - pad - statusH
	controlsTop := statusTop - 8 - rowH

	// Left column: patch navigator + EQ.
	navW := 280
	eqH := 120
	navBottom := controlsTop - 12
	eqTop := navBottom - eqH
	navRect := image.Rect(pad, pad, pad+navW, eqTop-8)
	eqRect := image.Rect(pad, eqTop, pad+navW, navBottom)

	// Right column: parameter sliders, voice list, scope.
	rightX := navRect.Max.X + 12
	rightW := max(320, w-rightX-pad)
	contentBottom := controlsTop - 12
	knobsH := len(knobs)*lineH + 20
	voicesH := lineH*3 + 16
	knobsRect := image.Rect(rightX, pad, rightX+rightW, pad+knobsH)
	voicesRect := image.Rect(rightX, knobsRect.Max.Y+12, rightX+rightW, knobsRect.Max.Y+12+voicesH)
	scopeRect := image.Rect(rightX, voicesRect.Max.Y+12, rightX+rightW, contentBottom)

	// Controls row.
	waveRect := image.Rect(pad, controlsTop, pad+210, controlsTop+rowH)
	filterRect := image.Rect(pad+222, controlsTop, pad+462, controlsTop+rowH)
	saveRect := image.Rect(pad+474, controlsTop, pad+554, controlsTop+rowH)
	octaveRect := image.Rect(pad+566, controlsTop, pad+766, controlsTop+rowH)
	volumeRect := image.Rect(pad+778, controlsTop, max(pad+900, w-pad), controlsTop+rowH)

	statusRect := image.Rect(pad, statusTop, w-pad, statusTop+statusH)

	return uiLayout{
		nav: navRect, eq: eqRect, knobs: knobsRect, voices: voicesRect, scope: scopeRect,
		wave: waveRect, filter: filterRect, save: saveRect, octave: octaveRect,
		volume: volumeRect, status: statusRect,
	}
}

func (g *game) cycleWave() {
	cur := g.synth.Params().Waveform
	next := waves[(int(cur)+1)%len(waves)]
	g.synth.SetWaveform(next)
	g.setStatus("Wave: " + next.String())
}

func (g *game) cycleFilter() {
	f := g.synth.Params().Filter
	next := filters[(int(f.Kind)+1)%len(filters)]
	g.synth.SetFilter(next, f.Cutoff, f.Resonance)
	g.setStatus("Filter: " + next.String())
}

func (g *game) updateVolumeFromMouse(mx int, rect image.Rectangle) {
	trackX := rect.Min.X + 130
	trackW := rect.Dx() - 146
	if trackW <= 0 {
		return
	}
	v := clamp(float64(mx-trackX)/float64(trackW), 0, 1)
	g.synth.SetMasterGain(v)
	g.setStatus(fmt.Sprintf("Volume: %d%%", int(v*100+0.5)))
}

func (g *game) drawVolumeSlider(screen *ebiten.Image, rect image.Rectangle) {
	v := g.synth.Params().MasterGain
	g.drawPanel(screen, rect)
	g.drawText(screen, fmt.Sprintf("Vol %d%%", int(v*100+0.5)), rect.Min.X+8, rect.Min.Y+8)
	g.drawTrack(screen, rect.Min.X+130, rect.Min.Y+rect.Dy()/2-4, rect.Dx()-146, v)
}

func (g *game) updateOctaveFromMouse(mx int, rect image.Rectangle) {
	trackX := rect.Min.X + 90
	trackW := rect.Dx() - 106
	if trackW <= 0 {
		return
	}
	frac := clamp(float64(mx-trackX)/float64(trackW), 0, 1)
	oct := int(math.Round(frac*float64(input.MaxBaseOctave-input.MinBaseOctave))) + input.MinBaseOctave
	if oct != g.mapper.Octave() {
		g.mapper.SetOctave(oct)
	}
	g.setStatus(fmt.Sprintf("Octave: %d", g.mapper.Octave()))
}

func (g *game) drawOctaveSlider(screen *ebiten.Image, rect image.Rectangle) {
	g.drawPanel(screen, rect)
	g.drawText(screen, fmt.Sprintf("Oct %d", g.mapper.Octave()), rect.Min.X+8, rect.Min.Y+8)
	frac := float64(g.mapper.Octave()-input.MinBaseOctave) / float64(input.MaxBaseOctave-input.MinBaseOctave)
	g.drawTrack(screen, rect.Min.X+90, rect.Min.Y+rect.Dy()/2-4, rect.Dx()-106, frac)
}

func (g *game) savePatch() {
	path := filepath.Join(g.cwd, savedPatchName)
	if err := patch.Save(path, patch.FromParams(g.synth.Params())); err != nil {
		g.setError(err.Error())
		return
	}
	g.loadedPath = path
	if err := g.refreshNav(); err != nil {
		g.setError(err.Error())
		return
	}
	g.setStatus("Saved " + filepath.Base(path))
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := "Status: " + g.status
	if g.statusErr {
		msg = "Status: ERROR - " + g.status
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+8, rect.Min.Y+6)
}

func main() {
	var (
		patchPath = flag.String("patch", "", "patch file to load at start")
		logLevel  = flag.String("log-level", "info", "debug|info|warn|error")
	)
	flag.Parse()

	logger, err := logging.New(*logLevel, true)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	initialPath := ""
	if *patchPath != "" {
		p, err := filepath.Abs(*patchPath)
		if err != nil {
			log.Fatalf("resolve %q: %v", *patchPath, err)
		}
		initialPath = p
	}

	g, err := newGame(logger, initialPath)
	if err != nil {
		logger.Fatal("start synth", zap.Error(err))
	}
	defer g.Close()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("polysynth")
	if err := ebiten.RunGame(g); err != nil {
		logger.Error("ui exited", zap.Error(err))
	}
}
