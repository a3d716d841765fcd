package placement

import (
	"time"

	"via-stitcher/internal/drc"
	"via-stitcher/internal/overlap"
	"via-stitcher/internal/via"
	"via-stitcher/pkg/geometry"
)

// Rejection records one rejected candidate.
type Rejection struct {
	Position geometry.Point2D `json:"position"`
	Reason   drc.Reason       `json:"reason"`
	Region   int              `json:"region"`
}

// RunResult is the outcome of one stitching run.
type RunResult struct {
	RunID      string             `json:"run_id"`
	Net        string             `json:"net"`
	Accepted   []via.Accepted     `json:"accepted"`   // In generation order
	Rejected   map[drc.Reason]int `json:"rejected"`   // Count per reason
	Rejections []Rejection        `json:"rejections"` // In generation order
	Candidates int                `json:"candidates"`
	Regions    []overlap.Region   `json:"-"`
	State      State              `json:"state"`
	Cancelled  bool               `json:"cancelled,omitempty"`
	Duration   time.Duration      `json:"duration"`
}

func newResult(id, net string) *RunResult {
	return &RunResult{
		RunID:    id,
		Net:      net,
		Accepted: []via.Accepted{},
		Rejected: make(map[drc.Reason]int),
	}
}

// RejectedTotal returns the number of rejected candidates.
func (r *RunResult) RejectedTotal() int {
	return len(r.Rejections)
}

// Positions returns the accepted via positions.
func (r *RunResult) Positions() []geometry.Point2D {
	out := make([]geometry.Point2D, len(r.Accepted))
	for i, a := range r.Accepted {
		out[i] = a.Position
	}
	return out
}

// Committable reports whether the result may be handed to a via creator:
// the run finished and was not cancelled.
func (r *RunResult) Committable() bool {
	return r != nil && r.State == Done && !r.Cancelled
}
