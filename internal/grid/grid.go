// Package grid generates candidate via positions on a regular lattice.
package grid

import (
	"iter"
	"math"

	"via-stitcher/pkg/geometry"
)

// Config defines the candidate lattice.
type Config struct {
	SpacingX float64           `json:"spacing_x" yaml:"spacing_x" validate:"gt=0"` // Column pitch, mm
	SpacingY float64           `json:"spacing_y" yaml:"spacing_y" validate:"gt=0"` // Row pitch, mm
	Stagger  bool              `json:"stagger" yaml:"stagger"`                     // Shift odd rows by SpacingX/2
	Offset   *geometry.Point2D `json:"offset,omitempty" yaml:"offset,omitempty"`   // Lattice origin; nil = region bbox minimum
}

// MaxIndex bounds the lattice row and column indices. Beyond it float64 can
// no longer tell neighbouring lattice points apart.
const MaxIndex = 1 << 53

// Region is the area candidates are generated in.
type Region interface {
	Bounds() geometry.Rect
	Contains(p geometry.Point2D) bool
}

// indexed is implemented by regions that know their detector position.
type indexed interface {
	RegionIndex() int
}

// Candidate is a lattice point inside a region.
type Candidate struct {
	Point  geometry.Point2D
	Region int // Region index, 0 when the region has none
	Row    int // Lattice row, counted from the origin
	Col    int // Lattice column, counted from the origin
}

// Origin returns the lattice origin used for region.
func (c Config) Origin(region Region) geometry.Point2D {
	if c.Offset != nil {
		return *c.Offset
	}
	b := region.Bounds()
	return geometry.NewPoint2D(b.X, b.Y)
}

// RowShift returns the x shift of lattice row j.
func (c Config) RowShift(j int) float64 {
	if c.Stagger && j%2 != 0 {
		return c.SpacingX / 2
	}
	return 0
}

// Generate returns the lattice points inside region, row by row in ascending
// y and then ascending x. Points on the region boundary are included. The
// sequence can be ranged over any number of times and always yields the same
// points. A non-positive spacing yields nothing.
func Generate(region Region, cfg Config) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		sx, sy := cfg.SpacingX, cfg.SpacingY
		if !(sx > 0) || !(sy > 0) || math.IsInf(sx, 0) || math.IsInf(sy, 0) {
			return
		}

		b := region.Bounds()
		o := cfg.Origin(region)
		idx := 0
		if r, ok := region.(indexed); ok {
			idx = r.RegionIndex()
		}

		j0, j1 := span(b.Y-o.Y, b.MaxY()-o.Y, sy)
		for j := j0; j <= j1; j++ {
			y := o.Y + float64(j)*sy
			shift := cfg.RowShift(j)
			k0, k1 := span(b.X-o.X-shift, b.MaxX()-o.X-shift, sx)
			for k := k0; k <= k1; k++ {
				p := geometry.NewPoint2D(o.X+shift+float64(k)*sx, y)
				if !region.Contains(p) {
					continue
				}
				if !yield(Candidate{Point: p, Region: idx, Row: j, Col: k}) {
					return
				}
			}
		}
	}
}

// span returns the integer lattice indices whose positions lie in [lo, hi],
// with a tolerance of geometry.Epsilon at both ends. An interval reaching
// past MaxIndex gives an empty span.
func span(lo, hi, step float64) (int, int) {
	tol := geometry.Epsilon / step
	a, b := math.Ceil(lo/step-tol), math.Floor(hi/step+tol)
	if !(a >= -MaxIndex && b <= MaxIndex) {
		return 1, 0
	}
	return int(a), int(b)
}

// Count returns how many candidates Generate yields for region.
func Count(region Region, cfg Config) int {
	n := 0
	for range Generate(region, cfg) {
		n++
	}
	return n
}
