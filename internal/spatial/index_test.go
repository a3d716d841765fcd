package spatial

import (
	"sort"
	"testing"

	"via-stitcher/pkg/geometry"

	"github.com/stretchr/testify/assert"
)

func collect(ix *Index, area geometry.Rect) []int {
	seen := map[int]bool{}
	ix.Query(area, func(id int) bool {
		seen[id] = true
		return true
	})
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func TestIndex_QueryFindsIntersectingItems(t *testing.T) {
	ix := NewIndex(1)
	a := ix.Insert(geometry.NewRect(0, 0, 0.5, 0.5))
	b := ix.Insert(geometry.NewRect(3, 3, 2, 2))
	c := ix.Insert(geometry.NewRect(-4, -4, 1, 1))

	assert.Equal(t, []int{a}, collect(ix, geometry.NewRect(0.2, 0.2, 0.1, 0.1)))
	assert.Equal(t, []int{b}, collect(ix, geometry.NewRect(4.5, 4.5, 3, 3)))
	assert.Equal(t, []int{c}, collect(ix, geometry.NewRect(-3.5, -3.5, 0.1, 0.1)))
	assert.Empty(t, collect(ix, geometry.NewRect(10, 10, 1, 1)))
	assert.Equal(t, 3, ix.Len())
}

func TestIndex_OversizedItemsAreStillFound(t *testing.T) {
	ix := NewIndex(0.1)
	big := ix.Insert(geometry.NewRect(0, 0, 1000, 1000))

	assert.Equal(t, []int{big}, collect(ix, geometry.NewRect(500, 500, 0.01, 0.01)))
	assert.Empty(t, collect(ix, geometry.NewRect(2000, 2000, 1, 1)))
}

func TestIndex_AnyStopsEarly(t *testing.T) {
	ix := NewIndex(1)
	for i := 0; i < 10; i++ {
		ix.Insert(geometry.NewRect(float64(i), 0, 0.5, 0.5))
	}

	calls := 0
	found := ix.Any(geometry.NewRect(0, 0, 20, 1), func(id int) bool {
		calls++
		return true
	})
	assert.True(t, found)
	assert.Equal(t, 1, calls)
}

func TestCellID_Unique(t *testing.T) {
	seen := map[int64]bool{}
	for x := int64(-20); x <= 20; x++ {
		for y := int64(-20); y <= 20; y++ {
			id := cellID(x, y)
			assert.False(t, seen[id], "duplicate id for (%d,%d)", x, y)
			seen[id] = true
		}
	}
}

func TestNewIndex_InvalidCellSize(t *testing.T) {
	assert.Equal(t, 1.0, NewIndex(0).CellSize)
	assert.Equal(t, 1.0, NewIndex(-2).CellSize)
}
