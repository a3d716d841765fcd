package placement

import (
	"via-stitcher/internal/drc"
	"via-stitcher/internal/grid"
)

// State is the engine's position in a run.
type State int

const (
	Idle State = iota
	DetectingRegions
	Generating
	Validating
	Finalizing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case DetectingRegions:
		return "DetectingRegions"
	case Generating:
		return "Generating"
	case Validating:
		return "Validating"
	case Finalizing:
		return "Finalizing"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Observer receives run events. Calls come from the goroutine running the
// engine, in order.
type Observer interface {
	StateChanged(from, to State)
	CandidateChecked(c grid.Candidate, v drc.Verdict)
	RunFinished(res *RunResult)
}

// ProgressFunc receives a completion percentage (0-100) and a status line.
type ProgressFunc func(percent float64, status string)
