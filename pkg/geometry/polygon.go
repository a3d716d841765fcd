package geometry

import (
	"fmt"
	"math"
)

// GeometryError reports malformed polygon data: self-intersecting rings,
// degenerate contours, non-finite coordinates or holes outside their outline.
type GeometryError struct {
	Ring   string // "outline", "hole 2", ...
	Reason string
}

func (e *GeometryError) Error() string {
	if e.Ring == "" {
		return "geometry: " + e.Reason
	}
	return fmt.Sprintf("geometry: %s: %s", e.Ring, e.Reason)
}

// Ring is a closed contour. The closing edge from the last point back to the
// first is implicit; a repeated first point at the end is tolerated.
type Ring []Point2D

// Normalize returns the ring without a repeated closing point and without
// consecutive duplicate vertices.
func (r Ring) Normalize() Ring {
	out := make(Ring, 0, len(r))
	for _, p := range r {
		if len(out) > 0 && out[len(out)-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1].Equal(out[0]) {
		out = out[:len(out)-1]
	}
	return out
}

// SignedArea returns the shoelace area, positive for counter-clockwise rings.
func (r Ring) SignedArea() float64 {
	var sum float64
	n := len(r)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += r[i].X*r[j].Y - r[j].X*r[i].Y
	}
	return sum / 2
}

// Bounds returns the bounding box of the ring.
func (r Ring) Bounds() Rect {
	return BoundingBox(r)
}

// Edges returns the ring's edges including the closing edge.
func (r Ring) Edges() []Segment {
	n := len(r)
	if n < 2 {
		return nil
	}
	edges := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		edges = append(edges, Segment{A: r[i], B: r[(i+1)%n]})
	}
	return edges
}

// onBoundary reports whether p lies on one of the ring's edges.
func (r Ring) onBoundary(p Point2D) bool {
	n := len(r)
	for i := 0; i < n; i++ {
		s := Segment{A: r[i], B: r[(i+1)%n]}
		if s.DistanceToPoint(p) <= Epsilon {
			return true
		}
	}
	return false
}

// validate checks a single ring for degenerate or self-intersecting contours.
func (r Ring) validate() string {
	for _, p := range r {
		if !p.IsFinite() {
			return "non-finite coordinate"
		}
	}
	if len(r) < 3 {
		return fmt.Sprintf("ring has %d distinct vertices, need at least 3", len(r))
	}
	if math.Abs(r.SignedArea()) <= Epsilon {
		return "ring has zero area"
	}
	n := len(r)
	for i := 0; i < n; i++ {
		a1, a2 := r[i], r[(i+1)%n]
		for j := i + 1; j < n; j++ {
			// Adjacent edges share a vertex by construction.
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := r[j], r[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return fmt.Sprintf("self-intersection between edges %d and %d", i, j)
			}
		}
	}
	return ""
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
// Points exactly on the boundary may report either side; use Polygon.Contains
// for a closed test.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// Polygon is an outline with zero or more holes.
type Polygon struct {
	Outline Ring   `json:"outline"`
	Holes   []Ring `json:"holes,omitempty"`
}

// NewRectPolygon returns an axis-aligned rectangular polygon.
func NewRectPolygon(r Rect) Polygon {
	return Polygon{Outline: Ring{
		{X: r.X, Y: r.Y},
		{X: r.MaxX(), Y: r.Y},
		{X: r.MaxX(), Y: r.MaxY()},
		{X: r.X, Y: r.MaxY()},
	}}
}

// Normalize returns a copy with every ring normalized.
func (p Polygon) Normalize() Polygon {
	out := Polygon{Outline: p.Outline.Normalize()}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, h.Normalize())
	}
	return out
}

// Rings returns the outline followed by the holes.
func (p Polygon) Rings() []Ring {
	rings := make([]Ring, 0, 1+len(p.Holes))
	rings = append(rings, p.Outline)
	return append(rings, p.Holes...)
}

// Bounds returns the bounding box of the outline.
func (p Polygon) Bounds() Rect {
	return p.Outline.Bounds()
}

// Edges returns every edge of the outline and the holes.
func (p Polygon) Edges() []Segment {
	var edges []Segment
	for _, r := range p.Rings() {
		edges = append(edges, r.Edges()...)
	}
	return edges
}

// Area returns the outline area minus the hole areas.
func (p Polygon) Area() float64 {
	a := math.Abs(p.Outline.SignedArea())
	for _, h := range p.Holes {
		a -= math.Abs(h.SignedArea())
	}
	return a
}

// Contains reports whether p lies in the closed polygon: inside the outline
// or on its boundary, and not strictly inside a hole.
func (p Polygon) Contains(pt Point2D) bool {
	if !p.Bounds().Inflate(Epsilon).Contains(pt) {
		return false
	}
	for _, r := range p.Rings() {
		if r.onBoundary(pt) {
			return true
		}
	}
	if !PointInPolygon(pt, p.Outline) {
		return false
	}
	for _, h := range p.Holes {
		if PointInPolygon(pt, h) {
			return false
		}
	}
	return true
}

// DistanceToBoundary returns the distance from pt to the nearest edge of the
// outline or any hole.
func (p Polygon) DistanceToBoundary(pt Point2D) float64 {
	best := math.Inf(1)
	for _, r := range p.Rings() {
		n := len(r)
		for i := 0; i < n; i++ {
			d := Segment{A: r[i], B: r[(i+1)%n]}.DistanceToPoint(pt)
			if d < best {
				best = d
			}
		}
	}
	return best
}

// Validate checks the polygon for malformed input. Rings are normalized
// before checking, so callers should validate the normalized polygon they
// intend to use.
func (p Polygon) Validate() error {
	rings := p.Rings()
	names := make([]string, len(rings))
	names[0] = "outline"
	for i := 1; i < len(rings); i++ {
		names[i] = fmt.Sprintf("hole %d", i-1)
	}

	for i, r := range rings {
		if reason := r.Normalize().validate(); reason != "" {
			return &GeometryError{Ring: names[i], Reason: reason}
		}
	}

	outline := p.Outline.Normalize()
	for i := 1; i < len(rings); i++ {
		hole := rings[i].Normalize()
		for _, v := range hole {
			if !(Polygon{Outline: outline}).Contains(v) {
				return &GeometryError{Ring: names[i], Reason: "hole lies outside its outline"}
			}
		}
	}

	// Distinct rings may touch but not cross.
	for i := 0; i < len(rings); i++ {
		ri := rings[i].Normalize()
		for j := i + 1; j < len(rings); j++ {
			rj := rings[j].Normalize()
			if !ri.Bounds().Intersects(rj.Bounds()) {
				continue
			}
			for _, ei := range ri.Edges() {
				for _, ej := range rj.Edges() {
					if segmentsCross(ei.A, ei.B, ej.A, ej.B) {
						return &GeometryError{
							Ring:   names[i],
							Reason: fmt.Sprintf("crosses %s", names[j]),
						}
					}
				}
			}
		}
	}
	return nil
}
