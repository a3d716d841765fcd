// Package board provides the read-only board geometry consumed by the
// stitching engine: layer stack, design rules, filled zones, tracks, pads,
// holes and the board outline.
package board

import (
	"fmt"
	"strings"

	"via-stitcher/pkg/geometry"
)

// Layer identifies a copper layer, e.g. "F.Cu".
type Layer string

// DesignRules are the board-wide clearances, in mm.
type DesignRules struct {
	CopperClearance float64 `json:"copper_clearance" yaml:"copper_clearance"` // copper-to-copper between nets
	EdgeClearance   float64 `json:"edge_clearance" yaml:"edge_clearance"`     // copper to board outline and cutouts
	HoleToHole      float64 `json:"hole_to_hole" yaml:"hole_to_hole"`         // drill edge to drill edge
}

// FilledArea is the filled copper of one zone on one layer.
// A zone poured on several layers yields one FilledArea per layer.
type FilledArea struct {
	ZoneID    string             `json:"zone_id"`
	Net       string             `json:"net"`
	Layer     Layer              `json:"layer"`
	Polygons  []geometry.Polygon `json:"polygons"`
	Clearance float64            `json:"clearance,omitempty"` // zone override; 0 = board rule
}

// Bounds returns the bounding box of all polygons.
func (f FilledArea) Bounds() geometry.Rect {
	var r geometry.Rect
	for i, p := range f.Polygons {
		if i == 0 {
			r = p.Bounds()
			continue
		}
		r = r.Union(p.Bounds())
	}
	return r
}

// Track is a straight copper segment.
type Track struct {
	ID        string           `json:"id"`
	Net       string           `json:"net"`
	Layer     Layer            `json:"layer"`
	Start     geometry.Point2D `json:"start"`
	End       geometry.Point2D `json:"end"`
	Width     float64          `json:"width"`
	Clearance float64          `json:"clearance,omitempty"`
}

// Segment returns the track centre line.
func (t Track) Segment() geometry.Segment {
	return geometry.Segment{A: t.Start, B: t.End}
}

// Bounds returns the bounding box of the copper, including half the width.
func (t Track) Bounds() geometry.Rect {
	return t.Segment().Bounds().Inflate(t.Width / 2)
}

// PadShape is the copper outline of a pad.
type PadShape int

const (
	// PadCircle is a round pad; Size.Width is the diameter.
	PadCircle PadShape = iota
	// PadRect is an axis-aligned rectangular pad.
	PadRect
)

func (s PadShape) String() string {
	switch s {
	case PadCircle:
		return "circle"
	case PadRect:
		return "rect"
	default:
		return "unknown"
	}
}

// ParsePadShape converts a shape name to a PadShape.
func ParsePadShape(name string) (PadShape, error) {
	switch strings.ToLower(name) {
	case "", "circle", "round":
		return PadCircle, nil
	case "rect", "rectangle", "square":
		return PadRect, nil
	default:
		return PadCircle, fmt.Errorf("unknown pad shape %q", name)
	}
}

// Pad is a component pad or an existing via. Vias are round pads with a drill.
type Pad struct {
	ID        string           `json:"id"`
	Net       string           `json:"net"`
	Position  geometry.Point2D `json:"position"`
	Shape     PadShape         `json:"shape"`
	Size      geometry.Size    `json:"size"`
	Drill     float64          `json:"drill,omitempty"` // 0 for SMD pads
	Clearance float64          `json:"clearance,omitempty"`
}

// Bounds returns the bounding box of the pad copper.
func (p Pad) Bounds() geometry.Rect {
	w, h := p.Size.Width, p.Size.Height
	if p.Shape == PadCircle {
		h = w
	}
	return geometry.NewRect(p.Position.X-w/2, p.Position.Y-h/2, w, h)
}

// DistanceToPoint returns the distance from pt to the pad copper edge,
// 0 when pt is on the pad.
func (p Pad) DistanceToPoint(pt geometry.Point2D) float64 {
	if p.Shape == PadCircle {
		d := p.Position.Distance(pt) - p.Size.Width/2
		if d < 0 {
			return 0
		}
		return d
	}
	return p.Bounds().DistanceToPoint(pt)
}

// Hole is an existing drilled hole (via, plated pad or mounting hole).
type Hole struct {
	Position geometry.Point2D `json:"position"`
	Radius   float64          `json:"radius"`
}

// Obstacles is the fixed copper returned by TracesAndPadsNear.
type Obstacles struct {
	Tracks []Track
	Pads   []Pad
}

// Adapter is the host board database as seen by the stitching engine.
// All methods return snapshots; the board must not change during a run.
type Adapter interface {
	// ListNets returns every net name on the board.
	ListNets() []string
	// FilledAreasFor returns the filled copper of every zone on net, one
	// entry per zone and layer.
	FilledAreasFor(net string) []FilledArea
	// TracesAndPadsNear returns tracks and pads of any net whose copper
	// bounding box intersects bbox.
	TracesAndPadsNear(bbox geometry.Rect) Obstacles
	// BoardOutline returns the board edge with cutouts as holes, or nil
	// when the board has no outline.
	BoardOutline() *geometry.Polygon
	// ExistingHoles returns every drilled hole on the board.
	ExistingHoles() []Hole
	// Layers returns the copper stack, top to bottom.
	Layers() []Layer
	// Rules returns the board design rules.
	Rules() DesignRules
}

// HasNet reports whether the adapter knows net.
func HasNet(a Adapter, net string) bool {
	for _, n := range a.ListNets() {
		if n == net {
			return true
		}
	}
	return false
}

// HasLayer reports whether layer is part of the adapter's stack.
func HasLayer(a Adapter, layer Layer) bool {
	for _, l := range a.Layers() {
		if l == layer {
			return true
		}
	}
	return false
}
