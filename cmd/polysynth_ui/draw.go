package main

import (
	"image"
	"image/color"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/cbegin/polysynth-go/internal/scope"
)

// drawScope renders the level bar and one steady period of the analysis tap,
// lined up with what the speaker is playing.
func (g *game) drawScope(screen *ebiten.Image, rect image.Rectangle) {
	inner := image.Rect(rect.Min.X+8, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	width := inner.Dx()
	height := inner.Dy()
	if width <= 0 || height <= 0 {
		return
	}

	if g.scopeImg == nil || g.scopeW != width || g.scopeH != height {
		g.scopeW = width
		g.scopeH = height
		g.scopeImg = ebiten.NewImage(width, height)
	}
	g.scopeImg.Fill(color.RGBA{14, 16, 22, 255})

	g.synth.AnalysisTap().SnapshotAt(g.snap, g.synth.PlaybackPosition())
	g.drawTrace(g.scopeImg, g.extractor.ExtractBytes(g.snap), width, height)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(g.scopeImg, op)
}

const levelBarW = 14

func (g *game) drawTrace(dst *ebiten.Image, f scope.Frame, width, height int) {
	if len(f.Trace) < 2 || width < levelBarW+2 || height < 4 {
		return
	}

	bar := scope.BarHeight(f.RMS, float64(height-4))
	ebitenutil.DrawRect(dst, 2, float64(height-2)-bar, levelBarW-4, bar, color.RGBA{80, 220, 120, 220})

	x0 := float64(levelBarW)
	w := float64(width - levelBarW)
	midY := float64(height) / 2
	ebitenutil.DrawRect(dst, x0, midY, w, 1, color.RGBA{40, 44, 58, 100})

	waveColor := color.RGBA{80, 200, 255, 220}
	amp := midY - 2
	n := len(f.Trace)
	prevX := x0
	prevY := midY - float64(f.Trace[0])*amp
	for i := 1; i < n; i++ {
		x := x0 + float64(i)*w/float64(n-1)
		y := midY - float64(f.Trace[i])*amp
		ebitenutil.DrawLine(dst, prevX, prevY, x, y, waveColor)
		prevX, prevY = x, y
	}
}

func (g *game) drawTrack(screen *ebiten.Image, x, y, w int, frac float64) {
	if w <= 0 {
		return
	}
	track := image.Rect(x, y, x+w, y+8)
	fillRect(screen, track, sunkenBgColor)
	drawSunkenBorder(screen, track)
	fill := int(clamp(frac, 0, 1) * float64(w-4))
	if fill > 0 {
		ebitenutil.DrawRect(screen, float64(x+2), float64(y+2), float64(fill), 4, sliderFillColor)
	}
	thumb := image.Rect(x+fill-3, y-4, x+fill+5, y+12)
	fillRect(screen, thumb, panelColor)
	drawBorder(screen, thumb)
}

func fillRect(screen *ebiten.Image, r image.Rectangle, c color.Color) {
	ebitenutil.DrawRect(screen, float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), c)
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawDarkPanel(screen *ebiten.Image, rect image.Rectangle) {
	fillRect(screen, rect, color.Black)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string) {
	g.drawPanel(screen, rect)
	x := rect.Min.X + (rect.Dx()-len([]rune(label))*charW)/2
	y := rect.Min.Y + (rect.Dy()-lineH)/2
	g.drawText(screen, label, x, y)
}

// bevel draws a two-pixel frame: lit on the top and left edges, shaded on
// the bottom and right. inner is the second ring's shade.
func bevel(screen *ebiten.Image, r image.Rectangle, lit, shade, inner color.Color) {
	x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X, r.Max.Y
	fillRect(screen, image.Rect(x0, y0, x1-1, y0+1), lit)
	fillRect(screen, image.Rect(x0, y0+1, x0+1, y1-1), lit)
	fillRect(screen, image.Rect(x0, y1-1, x1, y1), shade)
	fillRect(screen, image.Rect(x1-1, y0, x1, y1), shade)
	fillRect(screen, image.Rect(x0+1, y1-2, x1-2, y1-1), inner)
	fillRect(screen, image.Rect(x1-2, y0+1, x1-1, y1-2), inner)
}

func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	bevel(screen, rect, bevelLight, bevelDarker, borderColor)
}

func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	bevel(screen, rect, bevelDarker, bevelLight, borderColor)
}

// drawText draws msg with ebiten's debug font, scaled, over a black drop
// shadow. Rendered strings are cached until the cache grows past 3000.
func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img, ok := g.textCache[msg]
	if !ok {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 3000 {
			clear(g.textCache)
		}
		g.textCache[msg] = img
	}
	for _, shadow := range []bool{true, false} {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(textScale, textScale)
		dx := float64(x)
		dy := float64(y)
		if shadow {
			dx, dy = dx+2, dy+2
			op.ColorScale.Scale(0, 0, 0, 1)
		}
		op.GeoM.Translate(dx, dy)
		screen.DrawImage(img, op)
	}
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// shortenEnd cuts s to maxChars runes, ending in "..." when it had to cut.
func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	switch {
	case len(r) <= maxChars:
		return s
	case maxChars <= 3:
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

// shortenMiddle keeps both ends of s, which suits paths.
func shortenMiddle(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars || maxChars <= 7 {
		return shortenEnd(s, maxChars)
	}
	head := (maxChars - 3) / 2
	tail := maxChars - 3 - head
	return string(r[:head]) + "..." + string(r[len(r)-tail:])
}

func clamp(v, lo, hi float64) float64 { return min(max(v, lo), hi) }

func pointInRect(x, y int, rect image.Rectangle) bool {
	return image.Pt(x, y).In(rect)
}
