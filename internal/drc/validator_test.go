package drc

import (
	"errors"
	"sync"
	"testing"

	"via-stitcher/internal/board"
	"via-stitcher/internal/via"
	"via-stitcher/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(x, y, w, h float64) board.PolygonFile {
	return board.PolygonFile{Outline: []board.XY{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}}
}

func newBoard(t *testing.T, f board.File) *board.Snapshot {
	t.Helper()
	if len(f.Layers) == 0 {
		f.Layers = []string{"F.Cu", "B.Cu"}
	}
	s, err := board.NewSnapshot(&f)
	require.NoError(t, err)
	return s
}

func newValidator(t *testing.T, b board.Adapter, opts Options, extra ...Rule) *Validator {
	t.Helper()
	if opts.Net == "" {
		opts.Net = "GND"
	}
	if opts.Via == (via.Spec{}) {
		opts.Via = via.DefaultSpec()
	}
	c, err := NewContext(b, opts)
	require.NoError(t, err)
	return NewValidator(c, extra...)
}

func pt(x, y float64) geometry.Point2D { return geometry.NewPoint2D(x, y) }

func TestCheck_NoObstacles(t *testing.T) {
	v := newValidator(t, newBoard(t, board.File{}), Options{})
	assert.Equal(t, Verdict{Accepted: true}, v.Check(pt(5, 5)))
}

func TestCheck_EdgeClearance(t *testing.T) {
	outline := rect(0, 0, 10, 10)
	outline.Holes = [][]board.XY{{{4, 4}, {6, 4}, {6, 6}, {4, 6}}}
	b := newBoard(t, board.File{
		Rules:   board.DesignRules{EdgeClearance: 0.3},
		Outline: &outline,
	})
	v := newValidator(t, b, Options{})

	tests := []struct {
		name string
		p    geometry.Point2D
		want Verdict
	}{
		{"interior", pt(2, 2), Verdict{Accepted: true}},
		{"too close to edge", pt(0.5, 2), Verdict{Reason: EdgeClearance}},
		{"exactly at clearance", pt(0.6, 2), Verdict{Accepted: true}},
		{"outside board", pt(-1, 2), Verdict{Reason: EdgeClearance}},
		{"inside cutout", pt(5, 5), Verdict{Reason: EdgeClearance}},
		{"near cutout", pt(3.5, 5), Verdict{Reason: EdgeClearance}},
		{"clear of cutout", pt(3.4, 5), Verdict{Accepted: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Check(tt.p))
		})
	}
}

func TestCheck_OtherNetCopper(t *testing.T) {
	b := newBoard(t, board.File{
		Rules: board.DesignRules{CopperClearance: 0.2},
		Zones: []board.ZoneFile{
			{ID: "gnd", Net: "GND", Layers: []string{"F.Cu", "B.Cu"}, Polygons: []board.PolygonFile{rect(0, 0, 10, 10)}},
			{ID: "vcc", Net: "VCC", Layers: []string{"B.Cu"}, Polygons: []board.PolygonFile{rect(6, 0, 4, 10)}},
		},
	})

	v := newValidator(t, b, Options{})
	assert.Equal(t, Verdict{Reason: OtherNetCopper}, v.Check(pt(7, 5)), "inside zone")
	assert.Equal(t, Verdict{Reason: OtherNetCopper}, v.Check(pt(5.6, 5)), "within clearance")
	assert.Equal(t, Verdict{Accepted: true}, v.Check(pt(5.5, 5)), "exactly at clearance")
	assert.Equal(t, Verdict{Accepted: true}, v.Check(pt(2, 5)))

	punch := newValidator(t, b, Options{PunchThrough: true})
	assert.True(t, punch.Check(pt(7, 5)).Accepted)

	ignored := newValidator(t, b, Options{PunchThroughZones: []string{"vcc"}})
	assert.True(t, ignored.Check(pt(7, 5)).Accepted)
	assert.Equal(t, 0, ignored.Context().ZoneCount())
}

func TestCheck_ZoneClearanceOverride(t *testing.T) {
	b := newBoard(t, board.File{
		Rules: board.DesignRules{CopperClearance: 0.2},
		Zones: []board.ZoneFile{
			{ID: "vcc", Net: "VCC", Layers: []string{"F.Cu"}, Clearance: 1, Polygons: []board.PolygonFile{rect(6, 0, 4, 10)}},
		},
	})
	v := newValidator(t, b, Options{})

	assert.Equal(t, Verdict{Reason: OtherNetCopper}, v.Check(pt(5, 5)))
	assert.True(t, v.Check(pt(4.6, 5)).Accepted)
}

func TestCheck_OtherNetTrace(t *testing.T) {
	b := newBoard(t, board.File{
		Rules: board.DesignRules{CopperClearance: 0.2},
		Tracks: []board.TrackFile{
			{Net: "SIG", Layer: "F.Cu", Start: board.XY{0, 2}, End: board.XY{10, 2}, Width: 0.2},
			{Net: "GND", Layer: "F.Cu", Start: board.XY{0, 8}, End: board.XY{10, 8}, Width: 0.2},
		},
	})
	v := newValidator(t, b, Options{PunchThrough: true})

	assert.Equal(t, Verdict{Reason: OtherNetTrace}, v.Check(pt(5, 2.5)))
	assert.True(t, v.Check(pt(5, 2.7)).Accepted)
	assert.True(t, v.Check(pt(5, 8)).Accepted, "same-net track is not an obstacle")
}

func TestCheck_OtherNetPad(t *testing.T) {
	b := newBoard(t, board.File{
		Pads: []board.PadFile{
			{ID: "J1.1", Net: "VCC", At: board.XY{5, 5}, Size: board.XY{1, 1}, Clearance: 0.2},
			{ID: "J1.2", Net: "GND", At: board.XY{8, 8}, Size: board.XY{1, 1}},
		},
		Vias: []board.ViaFile{{Net: "SIG", At: board.XY{2, 8}, Diameter: 0.6, Drill: 0.3}},
	})

	for _, punch := range []bool{false, true} {
		v := newValidator(t, b, Options{PunchThrough: punch})
		assert.Equal(t, Verdict{Reason: OtherNetPad}, v.Check(pt(5, 5)))
		assert.Equal(t, Verdict{Reason: OtherNetPad}, v.Check(pt(5.9, 5)))
		assert.True(t, v.Check(pt(6, 5)).Accepted)
		assert.True(t, v.Check(pt(8, 8)).Accepted, "same-net pad is not an obstacle")
		assert.Equal(t, Verdict{Reason: OtherNetPad}, v.Check(pt(2.5, 8)), "other-net via")
	}
}

func TestCheck_HoleToHole(t *testing.T) {
	b := newBoard(t, board.File{
		Rules:         board.DesignRules{HoleToHole: 0.25},
		MountingHoles: []board.HoleFile{{At: board.XY{8, 8}, Diameter: 1}},
		Vias:          []board.ViaFile{{Net: "GND", At: board.XY{2, 2}, Diameter: 0.6, Drill: 0.3}},
	})
	v := newValidator(t, b, Options{})

	assert.Equal(t, Verdict{Reason: HoleToHole}, v.Check(pt(8.8, 8)))
	assert.True(t, v.Check(pt(9, 8)).Accepted)
	assert.Equal(t, Verdict{Reason: HoleToHole}, v.Check(pt(2.5, 2)), "same-net via drill")
	assert.True(t, v.Check(pt(2.6, 2)).Accepted)
}

func TestCheck_Order(t *testing.T) {
	outline := rect(0, 0, 10, 10)
	b := newBoard(t, board.File{
		Rules:   board.DesignRules{EdgeClearance: 0.3, HoleToHole: 0.25},
		Outline: &outline,
		Pads:    []board.PadFile{{Net: "VCC", At: board.XY{0.2, 5}, Size: board.XY{1, 1}, Drill: 0.5}},
	})
	v := newValidator(t, b, Options{})

	assert.Equal(t, Verdict{Reason: EdgeClearance}, v.Check(pt(0.2, 5)))
	assert.Equal(t, Verdict{Reason: OtherNetPad}, v.Check(pt(0.9, 5)))
}

func TestValidate_ExtraRulesRunBeforeSelfOverlap(t *testing.T) {
	const keepOut Reason = "KeepOut"
	calls := 0
	var mu sync.Mutex
	rule := RuleFunc(func(c *Context, p geometry.Point2D) (Reason, bool) {
		mu.Lock()
		calls++
		mu.Unlock()
		return keepOut, p.X > 5
	})
	v := newValidator(t, newBoard(t, board.File{}), Options{}, rule)

	set := NewAcceptedSet(0.6)
	set.Add(pt(6, 0))

	assert.Equal(t, Verdict{Reason: keepOut}, v.Validate(pt(6, 0), set))
	other := NewAcceptedSet(0.6)
	other.Add(pt(4, 0))
	assert.Equal(t, Verdict{Reason: SelfOverlap}, v.Validate(pt(4, 0.1), other))
	assert.Equal(t, Verdict{Accepted: true}, v.Validate(pt(1, 1), set))
	assert.Equal(t, 3, calls)
}

func TestAcceptedSet(t *testing.T) {
	s := NewAcceptedSet(0.6)
	assert.False(t, s.Overlaps(pt(0, 0)))

	s.Add(pt(0, 0))
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Overlaps(pt(0.5, 0)))
	assert.True(t, s.Overlaps(pt(0.3, 0.3)))
	assert.False(t, s.Overlaps(pt(0.6, 0)), "touching vias do not overlap")
	assert.False(t, s.Overlaps(pt(-0.5, -0.5)))
}

func TestNewContext_MalformedGeometry(t *testing.T) {
	bowTie := board.PolygonFile{Outline: []board.XY{{0, 0}, {2, 2}, {2, 0}, {0, 2}}}

	zoneBoard := newBoard(t, board.File{
		Zones: []board.ZoneFile{{ID: "bad", Net: "VCC", Layers: []string{"F.Cu"}, Polygons: []board.PolygonFile{bowTie}}},
	})
	_, err := NewContext(zoneBoard, Options{Net: "GND", Via: via.DefaultSpec()})
	var gerr *geometry.GeometryError
	require.Error(t, err)
	assert.True(t, errors.As(err, &gerr))

	// punch-through never looks at other-net zones
	_, err = NewContext(zoneBoard, Options{Net: "GND", Via: via.DefaultSpec(), PunchThrough: true})
	assert.NoError(t, err)

	outlineBoard := newBoard(t, board.File{Outline: &bowTie})
	_, err = NewContext(outlineBoard, Options{Net: "GND", Via: via.DefaultSpec()})
	require.Error(t, err)
	assert.True(t, errors.As(err, &gerr))
}

func TestCheck_Concurrent(t *testing.T) {
	b := newBoard(t, board.File{
		Rules: board.DesignRules{CopperClearance: 0.2},
		Pads:  []board.PadFile{{Net: "VCC", At: board.XY{5, 5}, Size: board.XY{1, 1}}},
	})
	v := newValidator(t, b, Options{})

	var wg sync.WaitGroup
	results := make([]Verdict, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = v.Check(pt(float64(i%8)+1, float64(i/8)+1))
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		want := v.Check(pt(float64(i%8)+1, float64(i/8)+1))
		assert.Equal(t, want, got)
	}
	assert.Equal(t, Verdict{Reason: OtherNetPad}, results[36])
}
