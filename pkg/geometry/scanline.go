package geometry

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats/scalar"
)

// Trapezoid is a slab piece with horizontal top and bottom edges. Y0 < Y1;
// X0L..X0R is the span at Y0 and X1L..X1R the span at Y1.
type Trapezoid struct {
	Y0  float64 `json:"y0"`
	Y1  float64 `json:"y1"`
	X0L float64 `json:"x0l"`
	X0R float64 `json:"x0r"`
	X1L float64 `json:"x1l"`
	X1R float64 `json:"x1r"`
}

// Contains reports whether p lies in the closed trapezoid.
func (t Trapezoid) Contains(p Point2D) bool {
	if p.Y < t.Y0-Epsilon || p.Y > t.Y1+Epsilon {
		return false
	}
	f := (p.Y - t.Y0) / (t.Y1 - t.Y0)
	f = math.Max(0, math.Min(1, f))
	xl := t.X0L + f*(t.X1L-t.X0L)
	xr := t.X0R + f*(t.X1R-t.X0R)
	return p.X >= xl-Epsilon && p.X <= xr+Epsilon
}

// Area returns the trapezoid's surface.
func (t Trapezoid) Area() float64 {
	return ((t.X0R - t.X0L) + (t.X1R - t.X1L)) / 2 * (t.Y1 - t.Y0)
}

// Bounds returns the bounding box.
func (t Trapezoid) Bounds() Rect {
	minX := math.Min(t.X0L, t.X1L)
	maxX := math.Max(t.X0R, t.X1R)
	return Rect{X: minX, Y: t.Y0, Width: maxX - minX, Height: t.Y1 - t.Y0}
}

// Corners returns the four corners in counter-clockwise order.
func (t Trapezoid) Corners() []Point2D {
	return []Point2D{
		{X: t.X0L, Y: t.Y0},
		{X: t.X0R, Y: t.Y0},
		{X: t.X1R, Y: t.Y1},
		{X: t.X1L, Y: t.Y1},
	}
}

// Area is a connected closed region made of trapezoids ordered by slab
// (ascending y) and then by x.
type Area struct {
	Trapezoids []Trapezoid `json:"trapezoids"`
	Box        Rect        `json:"box"`
}

// Bounds returns the bounding box of the area.
func (a Area) Bounds() Rect {
	return a.Box
}

// Size returns the surface of the area.
func (a Area) Size() float64 {
	var s float64
	for _, t := range a.Trapezoids {
		s += t.Area()
	}
	return s
}

// Contains reports whether p lies in the closed area.
func (a Area) Contains(p Point2D) bool {
	if len(a.Trapezoids) == 0 || !a.Box.Inflate(Epsilon).Contains(p) {
		return false
	}
	// Y1 is non-decreasing across slabs, so the first candidate can be found
	// by binary search.
	i := sort.Search(len(a.Trapezoids), func(i int) bool {
		return a.Trapezoids[i].Y1 >= p.Y-Epsilon
	})
	for ; i < len(a.Trapezoids) && a.Trapezoids[i].Y0 <= p.Y+Epsilon; i++ {
		if a.Trapezoids[i].Contains(p) {
			return true
		}
	}
	return false
}

// scanEdge is a non-horizontal polygon edge oriented upwards (lo.Y < hi.Y).
type scanEdge struct {
	lo, hi Point2D
	layer  int
	poly   int
}

func (e scanEdge) xAt(y float64) float64 {
	return Segment{A: e.lo, B: e.hi}.XAt(y)
}

// IntersectLayers computes the region covered on every layer, where each
// layer's coverage is the union of its polygons. With a single layer the
// result is that layer's union. The result is split into connected areas,
// ordered by their lowest trapezoid.
//
// Input polygons must already be valid (see Polygon.Validate). Regions that
// only touch along a line or at a point produce no area.
func IntersectLayers(layers ...[]Polygon) []Area {
	if len(layers) == 0 {
		return nil
	}
	for _, l := range layers {
		if len(l) == 0 {
			return nil
		}
	}

	var edges []scanEdge
	polyLayer := []int{}
	for li, polys := range layers {
		for _, p := range polys {
			pi := len(polyLayer)
			polyLayer = append(polyLayer, li)
			for _, r := range p.Normalize().Rings() {
				for _, s := range r.Edges() {
					if scalar.EqualWithinAbs(s.A.Y, s.B.Y, Epsilon) {
						continue
					}
					lo, hi := s.A, s.B
					if lo.Y > hi.Y {
						lo, hi = hi, lo
					}
					edges = append(edges, scanEdge{lo: lo, hi: hi, layer: li, poly: pi})
				}
			}
		}
	}
	if len(edges) == 0 {
		return nil
	}

	ys := slabBoundaries(edges)
	traps, slabOf := sweep(edges, ys, polyLayer, len(layers))
	return connect(traps, slabOf)
}

// slabBoundaries returns the sorted distinct y values at which the set of
// active edges or their x order can change: every vertex and every crossing
// between edges of different polygons.
func slabBoundaries(edges []scanEdge) []float64 {
	ys := make([]float64, 0, 2*len(edges))
	for _, e := range edges {
		ys = append(ys, e.lo.Y, e.hi.Y)
	}

	order := make([]int, len(edges))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return edges[order[a]].lo.Y < edges[order[b]].lo.Y })

	for a := 0; a < len(order); a++ {
		ea := edges[order[a]]
		aMinX, aMaxX := math.Min(ea.lo.X, ea.hi.X), math.Max(ea.lo.X, ea.hi.X)
		for b := a + 1; b < len(order); b++ {
			eb := edges[order[b]]
			if eb.lo.Y > ea.hi.Y {
				break
			}
			if ea.poly == eb.poly {
				continue
			}
			if math.Max(eb.lo.X, eb.hi.X) < aMinX || math.Min(eb.lo.X, eb.hi.X) > aMaxX {
				continue
			}
			if !segmentsCross(ea.lo, ea.hi, eb.lo, eb.hi) {
				continue
			}
			if p, ok := lineIntersection(ea.lo, ea.hi, eb.lo, eb.hi); ok {
				ys = append(ys, p.Y)
			}
		}
	}

	sort.Float64s(ys)
	uniq := ys[:0]
	for _, y := range ys {
		if len(uniq) > 0 && y-uniq[len(uniq)-1] <= Epsilon {
			continue
		}
		uniq = append(uniq, y)
	}
	return uniq
}

type crossing struct {
	edge   scanEdge
	xm     float64
	x0, x1 float64
}

// sweep walks the slabs bottom to top and emits, per slab, the spans where
// every layer is covered. slabOf[i] is the slab index of trapezoid i.
func sweep(edges []scanEdge, ys []float64, polyLayer []int, nLayers int) ([]Trapezoid, []int) {
	sort.SliceStable(edges, func(a, b int) bool { return edges[a].lo.Y < edges[b].lo.Y })

	var (
		traps  []Trapezoid
		slabOf []int
		active []scanEdge
		next   int
	)
	inside := make([]bool, len(polyLayer))
	layerCount := make([]int, nLayers)

	for s := 0; s+1 < len(ys); s++ {
		y0, y1 := ys[s], ys[s+1]
		ym := (y0 + y1) / 2

		for next < len(edges) && edges[next].lo.Y <= y0+Epsilon {
			active = append(active, edges[next])
			next++
		}
		kept := active[:0]
		for _, e := range active {
			if e.hi.Y > y0+Epsilon {
				kept = append(kept, e)
			}
		}
		active = kept

		xs := make([]crossing, 0, len(active))
		for _, e := range active {
			if e.lo.Y > ym || e.hi.Y < ym {
				continue
			}
			xs = append(xs, crossing{edge: e, xm: e.xAt(ym), x0: e.xAt(y0), x1: e.xAt(y1)})
		}
		sort.SliceStable(xs, func(a, b int) bool { return xs[a].xm < xs[b].xm })

		for i := range inside {
			inside[i] = false
		}
		for i := range layerCount {
			layerCount[i] = 0
		}
		covered := 0
		var start *crossing

		for i := 0; i < len(xs); {
			// Coincident edges are toggled together so that no zero-width
			// span is evaluated between them.
			j := i
			for j < len(xs) && xs[j].xm-xs[i].xm <= Epsilon {
				e := xs[j].edge
				inside[e.poly] = !inside[e.poly]
				l := polyLayer[e.poly]
				if inside[e.poly] {
					layerCount[l]++
					if layerCount[l] == 1 {
						covered++
					}
				} else {
					layerCount[l]--
					if layerCount[l] == 0 {
						covered--
					}
				}
				j++
			}

			full := covered == nLayers
			switch {
			case full && start == nil:
				start = &xs[i]
			case !full && start != nil:
				t := Trapezoid{
					Y0: y0, Y1: y1,
					X0L: start.x0, X0R: xs[i].x0,
					X1L: start.x1, X1R: xs[i].x1,
				}
				if t.X0R-t.X0L > Epsilon || t.X1R-t.X1L > Epsilon {
					traps = append(traps, t)
					slabOf = append(slabOf, s)
				}
				start = nil
			}
			i = j
		}
	}
	return traps, slabOf
}

// connect groups trapezoids whose shared slab boundaries overlap with
// positive length into connected areas.
func connect(traps []Trapezoid, slabOf []int) []Area {
	if len(traps) == 0 {
		return nil
	}
	parent := make([]int, len(traps))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	// Trapezoids are emitted slab by slab, left to right.
	slabStart := map[int]int{}
	for i, s := range slabOf {
		if _, ok := slabStart[s]; !ok {
			slabStart[s] = i
		}
	}
	for i, t := range traps {
		j, ok := slabStart[slabOf[i]+1]
		if !ok {
			continue
		}
		for ; j < len(traps) && slabOf[j] == slabOf[i]+1; j++ {
			u := traps[j]
			if u.X0L > t.X1R-Epsilon {
				break
			}
			if math.Min(t.X1R, u.X0R)-math.Max(t.X1L, u.X0L) > Epsilon {
				union(i, j)
			}
		}
	}

	index := map[int]int{}
	var areas []Area
	for i, t := range traps {
		root := find(i)
		ai, ok := index[root]
		if !ok {
			ai = len(areas)
			index[root] = ai
			areas = append(areas, Area{Box: t.Bounds()})
		}
		areas[ai].Trapezoids = append(areas[ai].Trapezoids, t)
		areas[ai].Box = areas[ai].Box.Union(t.Bounds())
	}
	return areas
}
