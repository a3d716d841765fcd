package geometry

import "math"

// Segment is a straight line segment between two points.
type Segment struct {
	A Point2D `json:"a"`
	B Point2D `json:"b"`
}

// Bounds returns the bounding box of the segment.
func (s Segment) Bounds() Rect {
	return RectFromPoints(s.A, s.B)
}

// Length returns the segment length.
func (s Segment) Length() float64 {
	return s.A.Distance(s.B)
}

// ClosestPoint returns the point on the segment closest to p.
func (s Segment) ClosestPoint(p Point2D) Point2D {
	d := s.B.Sub(s.A)
	lenSq := d.X*d.X + d.Y*d.Y
	if lenSq == 0 {
		return s.A
	}
	t := ((p.X-s.A.X)*d.X + (p.Y-s.A.Y)*d.Y) / lenSq
	t = math.Max(0, math.Min(1, t))
	return s.A.Add(d.Scale(t))
}

// DistanceToPoint returns the shortest distance from p to the segment.
func (s Segment) DistanceToPoint(p Point2D) float64 {
	return p.Distance(s.ClosestPoint(p))
}

// XAt returns the x coordinate of the segment's supporting line at height y.
// The segment must not be horizontal.
func (s Segment) XAt(y float64) float64 {
	if y == s.A.Y {
		return s.A.X
	}
	if y == s.B.Y {
		return s.B.X
	}
	return s.A.X + (y-s.A.Y)*(s.B.X-s.A.X)/(s.B.Y-s.A.Y)
}

// segmentsIntersect reports whether two segments share at least one point,
// including touching endpoints and collinear overlap.
func segmentsIntersect(p1, p2, q1, q2 Point2D) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

// segmentsCross reports whether two segments cross at a single point interior
// to both. Touching and collinear overlap do not count.
func segmentsCross(p1, p2, q1, q2 Point2D) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)
	return d1*d2 < 0 && d3*d4 < 0
}

// orientation returns the sign of the cross product (b-a)x(c-a), snapped to
// zero within Epsilon scaled by the operand magnitudes.
func orientation(a, b, c Point2D) float64 {
	cross := crossProduct(a, b, c)
	scale := math.Max(1, math.Max(math.Abs(b.X-a.X)+math.Abs(b.Y-a.Y), math.Abs(c.X-a.X)+math.Abs(c.Y-a.Y)))
	if math.Abs(cross) <= Epsilon*scale {
		return 0
	}
	if cross < 0 {
		return -1
	}
	return 1
}

// onSegment reports whether p, known to be collinear with a-b, lies within
// the segment's extent.
func onSegment(a, b, p Point2D) bool {
	return p.X >= math.Min(a.X, b.X)-Epsilon && p.X <= math.Max(a.X, b.X)+Epsilon &&
		p.Y >= math.Min(a.Y, b.Y)-Epsilon && p.Y <= math.Max(a.Y, b.Y)+Epsilon
}

// lineIntersection computes the intersection point of line segment p1-p2
// with line segment e1-e2. Returns the point and true if the supporting
// lines are not parallel.
func lineIntersection(p1, p2, e1, e2 Point2D) (Point2D, bool) {
	x1, y1 := p1.X, p1.Y
	x2, y2 := p2.X, p2.Y
	x3, y3 := e1.X, e1.Y
	x4, y4 := e2.X, e2.Y

	denom := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if math.Abs(denom) < 1e-12 {
		return Point2D{}, false
	}

	t := ((x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)) / denom

	return Point2D{
		X: x1 + t*(x2-x1),
		Y: y1 + t*(y2-y1),
	}, true
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
