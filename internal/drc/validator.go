package drc

import (
	"via-stitcher/internal/spatial"
	"via-stitcher/pkg/geometry"
)

// Validator runs the board rules, any extra rules, and finally the
// self-overlap check against vias accepted earlier in the run.
type Validator struct {
	ctx   *Context
	rules []Rule
}

// NewValidator creates a validator over c. Extra rules run after the board
// rules and before the self-overlap check.
func NewValidator(c *Context, extra ...Rule) *Validator {
	rules := append(BuiltinRules(), extra...)
	return &Validator{ctx: c, rules: rules}
}

// Context returns the obstacle snapshot the validator checks against.
func (v *Validator) Context() *Context { return v.ctx }

// Check runs every rule except self-overlap, stopping at the first
// violation. Safe for concurrent use.
func (v *Validator) Check(p geometry.Point2D) Verdict {
	for _, r := range v.rules {
		if reason, bad := r.Check(v.ctx, p); bad {
			return reject(reason)
		}
	}
	return accept()
}

// Validate runs Check and then the self-overlap check against accepted.
// It does not add p to accepted.
func (v *Validator) Validate(p geometry.Point2D, accepted *AcceptedSet) Verdict {
	if verdict := v.Check(p); !verdict.Accepted {
		return verdict
	}
	if accepted != nil && accepted.Overlaps(p) {
		return reject(SelfOverlap)
	}
	return accept()
}

// AcceptedSet indexes the vias accepted so far in a run. Two vias of the
// same spec overlap when their centres are closer than one diameter.
// Not safe for concurrent use.
type AcceptedSet struct {
	diameter float64
	idx      *spatial.Index
	points   []geometry.Point2D
}

// NewAcceptedSet creates an empty set for vias of the given diameter.
func NewAcceptedSet(diameter float64) *AcceptedSet {
	return &AcceptedSet{diameter: diameter, idx: spatial.NewIndex(diameter)}
}

// Overlaps reports whether a via at p would overlap an accepted via.
func (s *AcceptedSet) Overlaps(p geometry.Point2D) bool {
	d := s.diameter
	return s.idx.Any(square(p, d), func(id int) bool {
		return s.points[id].Distance(p) < d-geometry.Epsilon
	})
}

// Add records a via at p.
func (s *AcceptedSet) Add(p geometry.Point2D) {
	s.idx.Insert(geometry.NewRect(p.X, p.Y, 0, 0))
	s.points = append(s.points, p)
}

// Len returns the number of accepted vias.
func (s *AcceptedSet) Len() int { return len(s.points) }
