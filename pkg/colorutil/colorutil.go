// Package colorutil provides the colors used by board previews.
package colorutil

import (
	"image/color"
	"math"
)

// Overlay colors.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red     = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 170, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Gray    = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	Copper  = color.RGBA{R: 184, G: 115, B: 51, A: 255}
)

// HSVToRGB converts H in degrees and S, V in 0-1 to an opaque color.
func HSVToRGB(h, s, v float64) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	to8 := func(f float64) uint8 { return uint8(math.Round((f + m) * 255)) }
	return color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 255}
}

// Distinct returns n colors with evenly spaced hues.
func Distinct(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		out[i] = HSVToRGB(float64(i)*360/float64(max(n, 1)), 0.75, 0.85)
	}
	return out
}

// WithAlpha returns c with its alpha replaced. The color channels are
// premultiplied as image/color requires.
func WithAlpha(c color.RGBA, a uint8) color.RGBA {
	scale := func(v uint8) uint8 { return uint8(uint16(v) * uint16(a) / 255) }
	return color.RGBA{R: scale(c.R), G: scale(c.G), B: scale(c.B), A: a}
}
