// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// Epsilon is the absolute tolerance, in board units (mm), used for
// coincidence and boundary tests.
const Epsilon = 1e-9

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return math.Sqrt(p.DistanceSq(other))
}

// DistanceSq returns the squared Euclidean distance to another point.
func (p Point2D) DistanceSq(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Equal reports whether two points coincide within Epsilon.
func (p Point2D) Equal(other Point2D) bool {
	return scalar.EqualWithinAbs(p.X, other.X, Epsilon) &&
		scalar.EqualWithinAbs(p.Y, other.Y, Epsilon)
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point2D) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect creates a new Rect.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// RectFromPoints returns the rectangle spanned by two opposite corners.
func RectFromPoints(a, b Point2D) Rect {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Contains returns true if the point is inside the rectangle.
func (r Rect) Contains(p Point2D) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Intersects returns true if this rectangle intersects with another.
// Rectangles that only touch along an edge or corner intersect.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width && r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height && r.Y+r.Height >= other.Y
}

// Union returns the smallest rectangle containing both rectangles.
func (r Rect) Union(other Rect) Rect {
	x := math.Min(r.X, other.X)
	y := math.Min(r.Y, other.Y)
	x2 := math.Max(r.X+r.Width, other.X+other.Width)
	y2 := math.Max(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}

// Inflate grows the rectangle by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// DistanceToPoint returns the distance from p to the closest point of the
// rectangle, 0 when p lies inside.
func (r Rect) DistanceToPoint(p Point2D) float64 {
	dx := math.Max(0, math.Max(r.X-p.X, p.X-r.MaxX()))
	dy := math.Max(0, math.Max(r.Y-p.Y, p.Y-r.MaxY()))
	return math.Hypot(dx, dy)
}

// Size represents a 2D size.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewSize creates a new Size.
func NewSize(width, height float64) Size {
	return Size{Width: width, Height: height}
}

// GenerateCirclePoints generates n evenly-spaced points around a circle.
func GenerateCirclePoints(centerX, centerY, radius float64, n int) []Point2D {
	points := make([]Point2D, n)
	for i := 0; i < n; i++ {
		angle := float64(i) * 2.0 * math.Pi / float64(n)
		points[i] = Point2D{
			X: centerX + radius*math.Cos(angle),
			Y: centerY + radius*math.Sin(angle),
		}
	}
	return points
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
