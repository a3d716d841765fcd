// Package via describes stitching vias and the collaborators that create
// them on the board.
package via

import (
	"fmt"

	"via-stitcher/pkg/geometry"
)

// Spec is the via geometry used for a whole run, in mm.
type Spec struct {
	Diameter float64 `json:"diameter" yaml:"diameter" validate:"gt=0,gtfield=Drill"` // Copper pad diameter
	Drill    float64 `json:"drill" yaml:"drill" validate:"gt=0"`                     // Drill diameter
}

// Radius returns half the pad diameter.
func (s Spec) Radius() float64 { return s.Diameter / 2 }

// DrillRadius returns half the drill diameter.
func (s Spec) DrillRadius() float64 { return s.Drill / 2 }

// Annular returns the annular ring width.
func (s Spec) Annular() float64 { return (s.Diameter - s.Drill) / 2 }

func (s Spec) String() string {
	return fmt.Sprintf("%.3g/%.3g mm", s.Diameter, s.Drill)
}

// Accepted is a candidate that passed every clearance check.
type Accepted struct {
	Position geometry.Point2D `json:"position"`
	Spec     Spec             `json:"spec"`
	Net      string           `json:"net"`
	Region   int              `json:"region"` // Index of the stitchable region it came from
	Row      int              `json:"row"`    // Lattice row index
	Col      int              `json:"col"`    // Lattice column index
}

// Bounds returns the bounding box of the via pad.
func (a Accepted) Bounds() geometry.Rect {
	r := a.Spec.Radius()
	return geometry.NewRect(a.Position.X-r, a.Position.Y-r, 2*r, 2*r)
}

// Outline returns an n-gon approximating the pad, for drawing.
func (a Accepted) Outline(n int) []geometry.Point2D {
	return geometry.GenerateCirclePoints(a.Position.X, a.Position.Y, a.Spec.Radius(), n)
}

func (a Accepted) String() string {
	return fmt.Sprintf("Via{Net:%s, At:(%.3f,%.3f), %s, Region:%d, Row:%d, Col:%d}",
		a.Net, a.Position.X, a.Position.Y, a.Spec, a.Region, a.Row, a.Col)
}

// Handle identifies a via created by a Creator.
type Handle string

// GroupHandle identifies a group of created vias.
type GroupHandle string
