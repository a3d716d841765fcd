package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y, size float64) Ring {
	return Ring{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
}

func TestPolygonContains_ClosedWithHoles(t *testing.T) {
	p := Polygon{Outline: square(0, 0, 10), Holes: []Ring{square(4, 4, 2)}}

	tests := []struct {
		name string
		pt   Point2D
		want bool
	}{
		{"interior", NewPoint2D(1, 1), true},
		{"outline corner", NewPoint2D(0, 0), true},
		{"outline edge", NewPoint2D(10, 5), true},
		{"outside", NewPoint2D(10.5, 5), false},
		{"inside hole", NewPoint2D(5, 5), false},
		{"hole edge", NewPoint2D(4, 5), true},
		{"hole corner", NewPoint2D(6, 6), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Contains(tt.pt))
		})
	}
}

func TestPolygonDistanceToBoundary(t *testing.T) {
	p := Polygon{Outline: square(0, 0, 10), Holes: []Ring{square(4, 4, 2)}}

	assert.InDelta(t, 1.0, p.DistanceToBoundary(NewPoint2D(1, 5)), 1e-12)
	assert.InDelta(t, 1.0, p.DistanceToBoundary(NewPoint2D(3, 5)), 1e-12)
	assert.InDelta(t, math.Sqrt2, p.DistanceToBoundary(NewPoint2D(11, 11)), 1e-12)
}

func TestPolygonArea(t *testing.T) {
	p := Polygon{Outline: square(0, 0, 10), Holes: []Ring{square(4, 4, 2)}}
	assert.InDelta(t, 96.0, p.Area(), 1e-12)
}

func TestRingNormalize(t *testing.T) {
	r := Ring{{0, 0}, {1, 0}, {1, 0}, {1, 1}, {0, 0}}
	assert.Equal(t, Ring{{0, 0}, {1, 0}, {1, 1}}, r.Normalize())
}

func TestPolygonValidate(t *testing.T) {
	tests := []struct {
		name    string
		poly    Polygon
		wantErr bool
	}{
		{"square", Polygon{Outline: square(0, 0, 1)}, false},
		{"square with closing point", Polygon{Outline: append(square(0, 0, 1), Point2D{0, 0})}, false},
		{"square with hole", Polygon{Outline: square(0, 0, 10), Holes: []Ring{square(2, 2, 1)}}, false},
		{"hole touching outline", Polygon{Outline: square(0, 0, 10), Holes: []Ring{square(0, 2, 1)}}, false},
		{"too few vertices", Polygon{Outline: Ring{{0, 0}, {1, 1}}}, true},
		{"zero area", Polygon{Outline: Ring{{0, 0}, {1, 0}, {2, 0}}}, true},
		{"bow tie", Polygon{Outline: Ring{{0, 0}, {2, 2}, {2, 0}, {0, 2}}}, true},
		{"nan", Polygon{Outline: Ring{{0, 0}, {math.NaN(), 0}, {1, 1}}}, true},
		{"hole outside", Polygon{Outline: square(0, 0, 10), Holes: []Ring{square(20, 20, 1)}}, true},
		{"hole crossing outline", Polygon{Outline: square(0, 0, 10), Holes: []Ring{square(8, 8, 4)}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.poly.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var gerr *GeometryError
			assert.True(t, errors.As(err, &gerr))
		})
	}
}

func TestSegmentDistanceToPoint(t *testing.T) {
	s := Segment{A: NewPoint2D(0, 0), B: NewPoint2D(10, 0)}

	assert.InDelta(t, 2.0, s.DistanceToPoint(NewPoint2D(5, 2)), 1e-12)
	assert.InDelta(t, 5.0, s.DistanceToPoint(NewPoint2D(-3, 4)), 1e-12)
	assert.InDelta(t, 0.0, s.DistanceToPoint(NewPoint2D(10, 0)), 1e-12)
}

func TestRectDistanceToPoint(t *testing.T) {
	r := NewRect(0, 0, 2, 2)

	assert.Equal(t, 0.0, r.DistanceToPoint(NewPoint2D(1, 1)))
	assert.InDelta(t, 1.0, r.DistanceToPoint(NewPoint2D(3, 1)), 1e-12)
	assert.InDelta(t, 5.0, r.DistanceToPoint(NewPoint2D(5, 6)), 1e-12)
}
