// Package spatial provides a regular-grid bucket index for rectangle queries.
package spatial

import (
	"math"

	"via-stitcher/pkg/geometry"
)

// maxCellsPerItem bounds how many buckets a single item may occupy. Larger
// items (long zone edges, board-sized pours) go to an overflow list that is
// scanned on every query.
const maxCellsPerItem = 1024

// Index buckets item bounding boxes into square cells.
// Cell size should roughly match the typical query size.
//
// Insert must not run concurrently with Query; any number of Query calls may
// run in parallel once the index is built.
type Index struct {
	CellSize float64
	Grid     map[int64][]int // Cell ID -> item ids

	bounds   []geometry.Rect
	overflow []int
}

// NewIndex creates an index with the given cell size. Non-positive sizes
// fall back to 1.
func NewIndex(cellSize float64) *Index {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		cellSize = 1
	}
	return &Index{
		CellSize: cellSize,
		Grid:     make(map[int64][]int),
	}
}

// Len returns the number of inserted items.
func (ix *Index) Len() int {
	return len(ix.bounds)
}

// Bounds returns the rectangle an item was inserted with.
func (ix *Index) Bounds(id int) geometry.Rect {
	return ix.bounds[id]
}

// Insert adds an item and returns its id. Ids are assigned sequentially from 0.
func (ix *Index) Insert(r geometry.Rect) int {
	id := len(ix.bounds)
	ix.bounds = append(ix.bounds, r)

	x0, y0 := ix.cell(r.X, r.Y)
	x1, y1 := ix.cell(r.MaxX(), r.MaxY())
	if (x1-x0+1)*(y1-y0+1) > maxCellsPerItem {
		ix.overflow = append(ix.overflow, id)
		return id
	}
	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			key := cellID(cx, cy)
			ix.Grid[key] = append(ix.Grid[key], id)
		}
	}
	return id
}

// Query calls fn for every item whose bounds intersect area, stopping early
// when fn returns false. An item spanning several cells may be reported more
// than once; fn must be idempotent.
func (ix *Index) Query(area geometry.Rect, fn func(id int) bool) {
	x0, y0 := ix.cell(area.X, area.Y)
	x1, y1 := ix.cell(area.MaxX(), area.MaxY())
	if float64(x1-x0+1)*float64(y1-y0+1) > float64(len(ix.Grid)+len(ix.bounds)) {
		// Query covers more cells than the index holds; scan instead.
		for id, b := range ix.bounds {
			if b.Intersects(area) && !fn(id) {
				return
			}
		}
		return
	}

	for _, id := range ix.overflow {
		if ix.bounds[id].Intersects(area) && !fn(id) {
			return
		}
	}

	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			for _, id := range ix.Grid[cellID(cx, cy)] {
				if ix.bounds[id].Intersects(area) && !fn(id) {
					return
				}
			}
		}
	}
}

// Any reports whether pred holds for some item intersecting area.
func (ix *Index) Any(area geometry.Rect, pred func(id int) bool) bool {
	found := false
	ix.Query(area, func(id int) bool {
		if pred(id) {
			found = true
			return false
		}
		return true
	})
	return found
}

func (ix *Index) cell(x, y float64) (int64, int64) {
	return int64(math.Floor(x / ix.CellSize)), int64(math.Floor(y / ix.CellSize))
}

// cellID computes a unique cell identifier using Szudzik's pairing function.
// Handles negative coordinates correctly.
func cellID(cellX, cellY int64) int64 {
	// Map signed integers to non-negative using zigzag encoding
	var a, b int64
	if cellX >= 0 {
		a = 2 * cellX
	} else {
		a = -2*cellX - 1
	}
	if cellY >= 0 {
		b = 2 * cellY
	} else {
		b = -2*cellY - 1
	}

	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}
