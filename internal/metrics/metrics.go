// Package metrics exports stitching run statistics as Prometheus metrics.
package metrics

import (
	"fmt"

	"via-stitcher/internal/drc"
	"via-stitcher/internal/grid"
	"via-stitcher/internal/placement"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "via_stitcher"

// Recorder is a placement.Observer that counts runs, candidates and
// verdicts. It is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	Runs       *prometheus.CounterVec // Labels: outcome (done, cancelled, failed)
	Candidates prometheus.Counter
	Accepted   prometheus.Counter
	Rejected   *prometheus.CounterVec // Labels: reason
	State      prometheus.Gauge       // Current placement.State as a number
	Duration   prometheus.Histogram
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Stitching runs by outcome.",
		}, []string{"outcome"}),
		Candidates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Grid candidates checked.",
		}),
		Accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vias_accepted_total",
			Help:      "Candidates accepted as vias.",
		}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_rejected_total",
			Help:      "Rejected candidates by reason.",
		}, []string{"reason"}),
		State: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_state",
			Help:      "Engine state (0 Idle, 1 DetectingRegions, 2 Generating, 3 Validating, 4 Finalizing, 5 Done, 6 Failed).",
		}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished runs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
	}
	// Report every reason, including those never seen in a run.
	for _, reason := range drc.Reasons() {
		r.Rejected.WithLabelValues(string(reason))
	}
	return r
}

// Registry returns the registry the metrics are registered with.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// StateChanged implements placement.Observer.
func (r *Recorder) StateChanged(_, to placement.State) {
	r.State.Set(float64(to))
	if to == placement.Failed {
		r.Runs.WithLabelValues("failed").Inc()
	}
}

// CandidateChecked implements placement.Observer.
func (r *Recorder) CandidateChecked(_ grid.Candidate, v drc.Verdict) {
	r.Candidates.Inc()
	if v.Accepted {
		r.Accepted.Inc()
		return
	}
	r.Rejected.WithLabelValues(string(v.Reason)).Inc()
}

// RunFinished implements placement.Observer.
func (r *Recorder) RunFinished(res *placement.RunResult) {
	outcome := "done"
	if res.Cancelled {
		outcome = "cancelled"
	}
	r.Runs.WithLabelValues(outcome).Inc()
	r.Duration.Observe(res.Duration.Seconds())
}

// WriteTextfile writes the current metrics in the Prometheus text format, for
// node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
