package main

import (
	"bytes"
	"testing"

	"via-stitcher/internal/board"
	"via-stitcher/internal/grid"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBoard = `
name: demo
layers: [F.Cu, B.Cu]
zones:
  - {id: gnd-top, net: GND, layers: [F.Cu], polygons: [{outline: [[0, 0], [10, 0], [10, 10], [0, 10]]}]}
  - {id: gnd-bottom, net: GND, layers: [B.Cu], polygons: [{outline: [[5, 0], [15, 0], [15, 10], [5, 10]]}]}
`

func TestRectRegions(t *testing.T) {
	regions := rectRegions(10, 10)
	require.Len(t, regions, 1)

	var out bytes.Buffer
	total := printLattice(&out, regions, grid.Config{SpacingX: 1, SpacingY: 1})
	assert.Equal(t, 121, total)
	assert.Contains(t, out.String(), "Region 0: (0.000, 0.000) - (10.000, 10.000), 121 candidates")
}

func TestBoardRegions(t *testing.T) {
	b, err := board.Parse([]byte(testBoard))
	require.NoError(t, err)

	layers := board.NetLayers(b, "GND")
	assert.Equal(t, []board.Layer{"F.Cu", "B.Cu"}, layers)

	regions, err := boardRegions(b, "GND", layers)
	require.NoError(t, err)
	require.Len(t, regions, 1)

	bb := regions[0].Bounds()
	assert.InDelta(t, 5, bb.X, 1e-9)
	assert.InDelta(t, 10, bb.MaxX(), 1e-9)

	var out bytes.Buffer
	assert.Equal(t, 66, printLattice(&out, regions, grid.Config{SpacingX: 1, SpacingY: 1}))
}

func TestParseLayers(t *testing.T) {
	assert.Equal(t, []board.Layer{"F.Cu", "B.Cu"}, parseLayers(" F.Cu, B.Cu ,"))
	assert.Empty(t, parseLayers(""))
}
