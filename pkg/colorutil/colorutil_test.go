package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHSVToRGB(t *testing.T) {
	tests := []struct {
		h, s, v float64
		want    color.RGBA
	}{
		{0, 1, 1, color.RGBA{R: 255, A: 255}},
		{120, 1, 1, color.RGBA{G: 255, A: 255}},
		{240, 1, 1, Blue},
		{180, 1, 1, Cyan},
		{300, 1, 1, Magenta},
		{60, 1, 1, Yellow},
		{-60, 1, 1, Magenta},
		{720, 1, 1, color.RGBA{R: 255, A: 255}},
		{90, 0, 1, White},
		{90, 1, 0, Black},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HSVToRGB(tt.h, tt.s, tt.v), "h=%v s=%v v=%v", tt.h, tt.s, tt.v)
	}
}

func TestDistinct(t *testing.T) {
	cs := Distinct(6)
	assert.Len(t, cs, 6)
	seen := map[color.RGBA]bool{}
	for _, c := range cs {
		assert.False(t, seen[c])
		seen[c] = true
	}
	assert.Empty(t, Distinct(0))
}

func TestWithAlpha(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 128, A: 128}, WithAlpha(color.RGBA{R: 255, A: 255}, 128))
	assert.Equal(t, White, WithAlpha(White, 255))
}
