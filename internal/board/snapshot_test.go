package board

import (
	"path/filepath"
	"testing"

	"via-stitcher/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBoard = `
name: demo
layers: [F.Cu, In1.Cu, B.Cu]
rules:
  copper_clearance: 0.2
  edge_clearance: 0.3
  hole_to_hole: 0.25
outline:
  outline: [[0, 0], [20, 0], [20, 20], [0, 20]]
  holes:
    - [[9, 9], [11, 9], [11, 11], [9, 11]]
zones:
  - id: gnd-outer
    net: GND
    layers: [F.Cu, B.Cu]
    polygons:
      - outline: [[1, 1], [19, 1], [19, 19], [1, 19]]
  - id: vcc-inner
    net: VCC
    layers: [In1.Cu]
    clearance: 0.5
    polygons:
      - outline: [[2, 2], [8, 2], [8, 8], [2, 8]]
  - id: sig-pour
    net: SIG
    layers: [B.Cu, F.Cu]
    polygons:
      - outline: [[12, 12], [18, 12], [18, 18], [12, 18]]
tracks:
  - net: SIG
    layer: F.Cu
    start: [3, 15]
    end: [7, 15]
    width: 0.25
pads:
  - id: J1.1
    net: VCC
    at: [5, 5]
    shape: circle
    size: [1, 1]
    drill: 0.6
  - id: U1.1
    net: SIG
    at: [15, 5]
    shape: rect
    size: [1.2, 0.6]
vias:
  - net: GND
    at: [2, 18]
    diameter: 0.6
    drill: 0.3
mounting_holes:
  - at: [18.5, 1.5]
    diameter: 2.2
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(testBoard))
	require.NoError(t, err)

	assert.Equal(t, "demo", s.Name)
	assert.Equal(t, []Layer{"F.Cu", "In1.Cu", "B.Cu"}, s.Layers())
	assert.Equal(t, DesignRules{CopperClearance: 0.2, EdgeClearance: 0.3, HoleToHole: 0.25}, s.Rules())
	assert.Equal(t, []string{"GND", "SIG", "VCC"}, s.ListNets())

	outline := s.BoardOutline()
	require.NotNil(t, outline)
	assert.Len(t, outline.Holes, 1)
	assert.NoError(t, outline.Validate())
}

func TestFilledAreasFor_OneEntryPerLayer(t *testing.T) {
	s, err := Parse([]byte(testBoard))
	require.NoError(t, err)

	areas := s.FilledAreasFor("GND")
	require.Len(t, areas, 2)
	assert.Equal(t, Layer("F.Cu"), areas[0].Layer)
	assert.Equal(t, Layer("B.Cu"), areas[1].Layer)
	assert.Equal(t, "gnd-outer", areas[0].ZoneID)
	assert.Equal(t, geometry.NewRect(1, 1, 18, 18), areas[0].Bounds())

	vcc := s.FilledAreasFor("VCC")
	require.Len(t, vcc, 1)
	assert.Equal(t, 0.5, vcc[0].Clearance)

	assert.Empty(t, s.FilledAreasFor("NOPE"))
}

func TestTracesAndPadsNear(t *testing.T) {
	s, err := Parse([]byte(testBoard))
	require.NoError(t, err)

	obs := s.TracesAndPadsNear(geometry.NewRect(4, 4, 2, 2))
	assert.Empty(t, obs.Tracks)
	require.Len(t, obs.Pads, 1)
	assert.Equal(t, "J1.1", obs.Pads[0].ID)

	obs = s.TracesAndPadsNear(geometry.NewRect(0, 14, 20, 6))
	require.Len(t, obs.Tracks, 1)
	assert.Equal(t, "track-1", obs.Tracks[0].ID)
	require.Len(t, obs.Pads, 1)
	assert.Equal(t, "via-1", obs.Pads[0].ID)
	assert.Equal(t, 0.3, obs.Pads[0].Drill)

	rect := s.TracesAndPadsNear(geometry.NewRect(15.5, 5, 0.1, 0.1)).Pads
	require.Len(t, rect, 1)
	assert.Equal(t, PadRect, rect[0].Shape)
	assert.Equal(t, geometry.NewSize(1.2, 0.6), rect[0].Size)
}

func TestExistingHoles(t *testing.T) {
	s, err := Parse([]byte(testBoard))
	require.NoError(t, err)

	holes := s.ExistingHoles()
	require.Len(t, holes, 3)
	assert.Equal(t, Hole{Position: geometry.NewPoint2D(5, 5), Radius: 0.3}, holes[0])
	assert.Equal(t, Hole{Position: geometry.NewPoint2D(2, 18), Radius: 0.15}, holes[1])
	assert.Equal(t, Hole{Position: geometry.NewPoint2D(18.5, 1.5), Radius: 1.1}, holes[2])
}

func TestAddViaIsVisible(t *testing.T) {
	s, err := Parse([]byte(testBoard))
	require.NoError(t, err)

	// build the index first so AddVia has to invalidate it
	require.Empty(t, s.TracesAndPadsNear(geometry.NewRect(10, 2, 1, 1)).Pads)

	id := s.AddVia(geometry.NewPoint2D(10.5, 2.5), 0.6, 0.3, "GND")
	assert.Equal(t, "via-2", id)

	pads := s.TracesAndPadsNear(geometry.NewRect(10, 2, 1, 1)).Pads
	require.Len(t, pads, 1)
	assert.Equal(t, "GND", pads[0].Net)
	assert.Len(t, s.ExistingHoles(), 4)
}

func TestViaIDsStayUnique(t *testing.T) {
	s, err := Parse([]byte(`
layers: [F.Cu, B.Cu]
vias:
  - {net: GND, at: [1, 1], diameter: 0.6, drill: 0.3}
  - {id: via-1, net: GND, at: [2, 1], diameter: 0.6, drill: 0.3}
  - {id: via-4, net: GND, at: [3, 1], diameter: 0.6, drill: 0.3}
`))
	require.NoError(t, err)

	var ids []string
	for _, v := range s.Vias() {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"via-2", "via-1", "via-4"}, ids)

	assert.Equal(t, "via-5", s.AddVia(geometry.NewPoint2D(4, 1), 0.6, 0.3, "GND"))
	assert.Equal(t, "via-6", s.AddVia(geometry.NewPoint2D(5, 1), 0.6, 0.3, "GND"))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s, err := Parse([]byte(testBoard))
	require.NoError(t, err)
	s.AddVia(geometry.NewPoint2D(10.5, 2.5), 0.6, 0.3, "GND")

	for _, name := range []string{"board.yaml", "board.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, s.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, s.File(), loaded.File())
		})
	}
}

func TestLoadFromFile_NameFromPath(t *testing.T) {
	s, err := Parse([]byte("layers: [F.Cu]\n"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "unnamed.yaml")
	require.NoError(t, s.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "unnamed", loaded.Name)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no layers", "name: x\n"},
		{"duplicate layer", "layers: [F.Cu, F.Cu]\n"},
		{"negative rule", "layers: [F.Cu]\nrules: {copper_clearance: -1}\n"},
		{"zone on unknown layer", "layers: [F.Cu]\nzones: [{net: GND, layers: [B.Cu]}]\n"},
		{"zone without net", "layers: [F.Cu]\nzones: [{layers: [F.Cu]}]\n"},
		{"track width", "layers: [F.Cu]\ntracks: [{net: A, layer: F.Cu, start: [0,0], end: [1,0]}]\n"},
		{"pad shape", "layers: [F.Cu]\npads: [{net: A, at: [0,0], shape: oval, size: [1,1]}]\n"},
		{"via drill", "layers: [F.Cu]\nvias: [{net: A, at: [0,0], diameter: 0.3, drill: 0.3}]\n"},
		{"bad yaml", "layers: [F.Cu\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestPadDistanceToPoint(t *testing.T) {
	round := Pad{Position: geometry.NewPoint2D(0, 0), Shape: PadCircle, Size: geometry.NewSize(1, 1)}
	assert.InDelta(t, 0.5, round.DistanceToPoint(geometry.NewPoint2D(1, 0)), 1e-12)
	assert.Equal(t, 0.0, round.DistanceToPoint(geometry.NewPoint2D(0.2, 0)))

	rect := Pad{Position: geometry.NewPoint2D(0, 0), Shape: PadRect, Size: geometry.NewSize(2, 1)}
	assert.InDelta(t, 1.0, rect.DistanceToPoint(geometry.NewPoint2D(2, 0)), 1e-12)
	assert.InDelta(t, 0.5, rect.DistanceToPoint(geometry.NewPoint2D(0, 1)), 1e-12)
}
