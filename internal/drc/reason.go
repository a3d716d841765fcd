// Package drc checks candidate via positions against the board's design rules.
package drc

// Reason names the rule a rejected candidate violated.
// The zero value means no violation.
type Reason string

const (
	EdgeClearance  Reason = "EdgeClearance"  // Too close to the board outline or a cutout
	OtherNetCopper Reason = "OtherNetCopper" // Inside or too close to another net's zone
	OtherNetTrace  Reason = "OtherNetTrace"  // Too close to another net's track
	OtherNetPad    Reason = "OtherNetPad"    // Too close to another net's pad or via
	HoleToHole     Reason = "HoleToHole"     // Drill too close to an existing hole
	SelfOverlap    Reason = "SelfOverlap"    // Overlaps a via accepted earlier in the run
)

// Reasons returns the built-in reasons in check order.
func Reasons() []Reason {
	return []Reason{EdgeClearance, OtherNetCopper, OtherNetTrace, OtherNetPad, HoleToHole, SelfOverlap}
}

func (r Reason) String() string {
	if r == "" {
		return "None"
	}
	return string(r)
}

// Verdict is the outcome of validating one candidate.
type Verdict struct {
	Accepted bool
	Reason   Reason // Set when rejected
}

func accept() Verdict { return Verdict{Accepted: true} }

func reject(r Reason) Verdict { return Verdict{Reason: r} }
