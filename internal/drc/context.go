package drc

import (
	"fmt"
	"math"

	"via-stitcher/internal/board"
	"via-stitcher/internal/spatial"
	"via-stitcher/internal/via"
	"via-stitcher/pkg/geometry"
)

// searchMargin is how far beyond the via pad and board clearance obstacles
// are fetched, to catch per-obstacle clearance overrides.
const searchMargin = 5.0

// defaultCellSize is the spatial bucket size in mm when Options.CellSize is 0.
const defaultCellSize = 1.0

// Options configures a Context.
type Options struct {
	Net               string        // Target net; its own copper is never an obstacle
	Via               via.Spec      // Via geometry for the run
	PunchThrough      bool          // Ignore every other-net zone
	PunchThroughZones []string      // Ignore these other-net zones only
	Area              geometry.Rect // Area candidates come from; zero = whole board
	CellSize          float64       // Spatial bucket size in mm
}

// edgeSet is a set of boundary segments with a keep-out distance each.
type edgeSet struct {
	idx  *spatial.Index
	segs []geometry.Segment
	clr  []float64
}

func newEdgeSet(cell float64) *edgeSet {
	return &edgeSet{idx: spatial.NewIndex(cell)}
}

func (e *edgeSet) add(s geometry.Segment, clearance float64) {
	e.idx.Insert(s.Bounds().Inflate(clearance))
	e.segs = append(e.segs, s)
	e.clr = append(e.clr, clearance)
}

// tooClose reports whether a disc of radius r at p comes within an edge's
// keep-out distance.
func (e *edgeSet) tooClose(p geometry.Point2D, r float64) bool {
	return e.idx.Any(geometry.NewRect(p.X-r, p.Y-r, 2*r, 2*r), func(id int) bool {
		return e.segs[id].DistanceToPoint(p) < r+e.clr[id]-geometry.Epsilon
	})
}

type zoneCopper struct {
	ZoneID    string
	Net       string
	Layer     board.Layer
	Polygon   geometry.Polygon
	Clearance float64
}

// Context is the read-only obstacle snapshot for one run. It is built once
// and safe for concurrent use.
type Context struct {
	opts  Options
	rules board.DesignRules

	outline      *geometry.Polygon
	outlineAreas []geometry.Area
	outlineEdges *edgeSet

	zones      []zoneCopper
	zoneIndex  *spatial.Index
	zoneEdges  *edgeSet
	tracks     []board.Track
	trackIndex *spatial.Index
	pads       []board.Pad
	padIndex   *spatial.Index
	holes      []board.Hole
	holeIndex  *spatial.Index
}

// NewContext snapshots the obstacles relevant to placing vias on opts.Net.
// A malformed outline or other-net zone fails with a *geometry.GeometryError.
func NewContext(a board.Adapter, opts Options) (*Context, error) {
	cell := opts.CellSize
	if !(cell > 0) {
		cell = defaultCellSize
	}
	c := &Context{
		opts:         opts,
		rules:        a.Rules(),
		outlineEdges: newEdgeSet(cell),
		zoneIndex:    spatial.NewIndex(cell),
		zoneEdges:    newEdgeSet(cell),
		trackIndex:   spatial.NewIndex(cell),
		padIndex:     spatial.NewIndex(cell),
		holeIndex:    spatial.NewIndex(cell),
	}
	r := opts.Via.Radius()

	if o := a.BoardOutline(); o != nil {
		outline := o.Normalize()
		if err := outline.Validate(); err != nil {
			return nil, fmt.Errorf("board outline: %w", err)
		}
		c.outline = &outline
		c.outlineAreas = geometry.IntersectLayers([]geometry.Polygon{outline})
		for _, s := range outline.Edges() {
			c.outlineEdges.add(s, c.rules.EdgeClearance)
		}
	}

	area := opts.Area
	if area.Width == 0 && area.Height == 0 {
		if c.outline != nil {
			area = c.outline.Bounds()
		} else {
			area = geometry.NewRect(-1e6, -1e6, 2e6, 2e6)
		}
	}
	reach := area.Inflate(r + math.Max(c.rules.CopperClearance, c.rules.EdgeClearance) + searchMargin)

	if err := c.loadZones(a, reach); err != nil {
		return nil, err
	}

	obs := a.TracesAndPadsNear(reach)
	for _, t := range obs.Tracks {
		if t.Net == opts.Net {
			continue
		}
		clr := c.clearance(t.Clearance)
		c.tracks = append(c.tracks, t)
		c.trackIndex.Insert(t.Bounds().Inflate(clr))
	}
	for _, p := range obs.Pads {
		if p.Net == opts.Net {
			continue
		}
		clr := c.clearance(p.Clearance)
		c.pads = append(c.pads, p)
		c.padIndex.Insert(p.Bounds().Inflate(clr))
	}

	for _, h := range a.ExistingHoles() {
		keep := h.Radius + c.rules.HoleToHole
		hb := geometry.NewRect(h.Position.X-keep, h.Position.Y-keep, 2*keep, 2*keep)
		if !hb.Intersects(reach) {
			continue
		}
		c.holes = append(c.holes, h)
		c.holeIndex.Insert(hb)
	}
	return c, nil
}

func (c *Context) loadZones(a board.Adapter, reach geometry.Rect) error {
	if c.opts.PunchThrough {
		return nil
	}
	skip := make(map[string]bool, len(c.opts.PunchThroughZones))
	for _, id := range c.opts.PunchThroughZones {
		skip[id] = true
	}

	for _, net := range a.ListNets() {
		if net == c.opts.Net {
			continue
		}
		for _, fa := range a.FilledAreasFor(net) {
			if skip[fa.ZoneID] {
				continue
			}
			clr := c.clearance(fa.Clearance)
			for i, p := range fa.Polygons {
				p = p.Normalize()
				if !p.Bounds().Inflate(clr).Intersects(reach) {
					continue
				}
				if err := p.Validate(); err != nil {
					return fmt.Errorf("zone %s on %s, polygon %d: %w", fa.ZoneID, fa.Layer, i, err)
				}
				c.zones = append(c.zones, zoneCopper{ZoneID: fa.ZoneID, Net: fa.Net, Layer: fa.Layer, Polygon: p, Clearance: clr})
				c.zoneIndex.Insert(p.Bounds())
				for _, s := range p.Edges() {
					c.zoneEdges.add(s, clr)
				}
			}
		}
	}
	return nil
}

// clearance returns the effective copper clearance for an obstacle with its
// own clearance override.
func (c *Context) clearance(own float64) float64 {
	return math.Max(c.rules.CopperClearance, own)
}

// Options returns the options the context was built with.
func (c *Context) Options() Options { return c.opts }

// Rules returns the board design rules in effect.
func (c *Context) Rules() board.DesignRules { return c.rules }

// Outline returns the validated board outline, or nil.
func (c *Context) Outline() *geometry.Polygon { return c.outline }

// Tracks returns the other-net tracks near the stitched area.
func (c *Context) Tracks() []board.Track { return c.tracks }

// Pads returns the other-net pads and vias near the stitched area.
func (c *Context) Pads() []board.Pad { return c.pads }

// Holes returns the existing holes near the stitched area.
func (c *Context) Holes() []board.Hole { return c.holes }

// ZoneCount returns how many other-net zone polygons are obstacles.
func (c *Context) ZoneCount() int { return len(c.zones) }
