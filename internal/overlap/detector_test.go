package overlap

import (
	"errors"
	"testing"

	"via-stitcher/internal/board"
	"via-stitcher/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	top    = board.Layer("F.Cu")
	bottom = board.Layer("B.Cu")
	inner  = board.Layer("In1.Cu")
)

func fill(zone, net string, layer board.Layer, rects ...geometry.Rect) board.FilledArea {
	fa := board.FilledArea{ZoneID: zone, Net: net, Layer: layer}
	for _, r := range rects {
		fa.Polygons = append(fa.Polygons, geometry.NewRectPolygon(r))
	}
	return fa
}

func TestDetect_SameZoneOnTwoLayers(t *testing.T) {
	sq := geometry.NewRect(0, 0, 10, 10)
	areas := []board.FilledArea{
		fill("gnd", "GND", top, sq),
		fill("gnd", "GND", bottom, sq),
	}

	regions, err := Detect(areas, "GND", []board.Layer{top, bottom})
	require.NoError(t, err)
	require.Len(t, regions, 1)

	r := regions[0]
	assert.Equal(t, 0, r.Index)
	assert.Equal(t, 0, r.RegionIndex())
	assert.Equal(t, "GND", r.Net)
	assert.Equal(t, []board.Layer{top, bottom}, r.Layers)
	assert.Equal(t, sq, r.Bounds())
	assert.InDelta(t, 100.0, r.Size(), 1e-9)
	assert.True(t, r.Contains(geometry.NewPoint2D(10, 10)))
}

func TestDetect_DifferentZonesOverlap(t *testing.T) {
	areas := []board.FilledArea{
		fill("a", "GND", top, geometry.NewRect(0, 0, 10, 10)),
		fill("b", "GND", bottom, geometry.NewRect(5, 0, 10, 10)),
	}

	regions, err := Detect(areas, "GND", []board.Layer{top, bottom})
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, geometry.NewRect(5, 0, 5, 10), regions[0].Bounds())
}

func TestDetect_IgnoresOtherNetsAndLayers(t *testing.T) {
	areas := []board.FilledArea{
		fill("gnd", "GND", top, geometry.NewRect(0, 0, 10, 10)),
		fill("gnd", "GND", bottom, geometry.NewRect(0, 0, 10, 10)),
		fill("gnd-in", "GND", inner, geometry.NewRect(0, 0, 2, 2)),
		fill("vcc", "VCC", top, geometry.NewRect(20, 20, 5, 5)),
		fill("vcc", "VCC", bottom, geometry.NewRect(20, 20, 5, 5)),
	}

	regions, err := Detect(areas, "GND", []board.Layer{top, bottom})
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.InDelta(t, 100.0, regions[0].Size(), 1e-9)

	regions, err = Detect(areas, "GND", []board.Layer{top, inner, bottom})
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.InDelta(t, 4.0, regions[0].Size(), 1e-9)
}

func TestDetect_SingleLayer(t *testing.T) {
	areas := []board.FilledArea{
		fill("a", "GND", top, geometry.NewRect(0, 0, 4, 4), geometry.NewRect(10, 0, 4, 4)),
	}

	regions, err := Detect(areas, "GND", []board.Layer{top})
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, 0, regions[0].Index)
	assert.Equal(t, 1, regions[1].Index)
	assert.Equal(t, geometry.NewRect(0, 0, 4, 4), regions[0].Bounds())
}

func TestDetect_NoRegions(t *testing.T) {
	tests := []struct {
		name   string
		areas  []board.FilledArea
		layers []board.Layer
	}{
		{
			name:   "layer without copper",
			areas:  []board.FilledArea{fill("a", "GND", top, geometry.NewRect(0, 0, 10, 10))},
			layers: []board.Layer{top, bottom},
		},
		{
			name: "disjoint layers",
			areas: []board.FilledArea{
				fill("a", "GND", top, geometry.NewRect(0, 0, 10, 10)),
				fill("b", "GND", bottom, geometry.NewRect(20, 0, 10, 10)),
			},
			layers: []board.Layer{top, bottom},
		},
		{
			name:   "no layers",
			areas:  []board.FilledArea{fill("a", "GND", top, geometry.NewRect(0, 0, 10, 10))},
			layers: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regions, err := Detect(tt.areas, "GND", tt.layers)
			assert.NoError(t, err)
			assert.Empty(t, regions)
		})
	}
}

func TestDetect_MalformedPolygon(t *testing.T) {
	bowTie := board.FilledArea{
		ZoneID: "bad", Net: "GND", Layer: top,
		Polygons: []geometry.Polygon{{Outline: geometry.Ring{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 2}}}},
	}
	areas := []board.FilledArea{bowTie, fill("ok", "GND", bottom, geometry.NewRect(0, 0, 2, 2))}

	_, err := Detect(areas, "GND", []board.Layer{top, bottom})
	require.Error(t, err)
	var gerr *geometry.GeometryError
	assert.True(t, errors.As(err, &gerr))
	assert.Contains(t, err.Error(), "zone bad")
}

func TestDetectFor(t *testing.T) {
	s, err := board.Parse([]byte(`
layers: [F.Cu, B.Cu]
zones:
  - id: gnd
    net: GND
    layers: [F.Cu, B.Cu]
    polygons:
      - outline: [[0, 0], [10, 0], [10, 10], [0, 10]]
        holes: [[[4, 4], [6, 4], [6, 6], [4, 6]]]
`))
	require.NoError(t, err)

	regions, err := DetectFor(s, "GND", s.Layers())
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.InDelta(t, 96.0, regions[0].Size(), 1e-9)
	assert.False(t, regions[0].Contains(geometry.NewPoint2D(5, 5)))
}
