package placement

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"via-stitcher/internal/board"
	"via-stitcher/internal/drc"
	"via-stitcher/internal/grid"
	"via-stitcher/internal/overlap"
	"via-stitcher/internal/via"
	"via-stitcher/pkg/geometry"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultBatchSize = 256

// Engine runs stitching jobs against one board. An Engine holds no state
// between runs and may be reused; runs must not overlap.
type Engine struct {
	board     board.Adapter
	logger    *slog.Logger
	progress  ProgressFunc
	observers []Observer
	rules     []drc.Rule
	batchSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithRules adds clearance rules checked after the board rules.
func WithRules(rules ...drc.Rule) Option {
	return func(e *Engine) { e.rules = append(e.rules, rules...) }
}

// WithBatchSize sets how many candidates are checked in parallel at a time.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// New creates an engine for a board.
func New(b board.Adapter, opts ...Option) *Engine {
	e := &Engine{
		board:     b,
		logger:    slog.Default(),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run is the state of one Run call.
type run struct {
	e         *Engine
	cfg       Config
	res       *RunResult
	state     State
	validator *drc.Validator
	accepted  *drc.AcceptedSet
	workers   int
	verdicts  []drc.Verdict
	start     time.Time
}

func (r *run) transition(to State) {
	if r.state == to {
		return
	}
	from := r.state
	r.state = to
	r.res.State = to
	r.e.logger.Debug("engine state", "run_id", r.res.RunID, "from", from, "to", to)
	for _, o := range r.e.observers {
		o.StateChanged(from, to)
	}
}

func (r *run) fail(err error) (*RunResult, error) {
	r.transition(Failed)
	r.e.logger.Error("stitching run failed", "run_id", r.res.RunID, "net", r.cfg.Net, "state", r.state, "error", err)
	return r.res, err
}

func (r *run) report(percent float64, status string) {
	if r.e.progress != nil {
		r.e.progress(percent, status)
	}
}

// Run detects the stitchable regions of cfg.Net, generates candidates and
// validates them. It creates nothing on the board; see Commit.
//
// A ConfigError or GeometryError fails the run and is returned together with
// the partial result in state Failed. When ctx is cancelled the vias accepted
// so far are returned with Cancelled set, along with the context error.
func (e *Engine) Run(ctx context.Context, cfg Config) (*RunResult, error) {
	r := &run{e: e, cfg: cfg, res: newResult(uuid.NewString(), cfg.Net), start: time.Now()}
	defer func() { r.res.Duration = time.Since(r.start) }()

	if err := cfg.ValidateFor(e.board); err != nil {
		return r.fail(err)
	}
	r.workers = cfg.Workers
	if r.workers <= 0 {
		r.workers = runtime.GOMAXPROCS(0)
	}

	e.logger.Info("stitching run started",
		"run_id", r.res.RunID,
		"net", cfg.Net,
		"layers", cfg.Layers,
		"via", cfg.Via.String(),
		"spacing_x", cfg.Grid.SpacingX,
		"spacing_y", cfg.Grid.SpacingY,
		"stagger", cfg.Grid.Stagger,
		"punch_through", cfg.PunchThrough,
		"workers", r.workers)

	r.transition(DetectingRegions)
	regions, err := overlap.DetectFor(e.board, cfg.Net, cfg.Layers)
	if err != nil {
		return r.fail(fmt.Errorf("detect regions: %w", err))
	}
	r.res.Regions = regions
	r.report(10, fmt.Sprintf("Found %d stitchable regions", len(regions)))

	if len(regions) > 0 {
		dctx, err := drc.NewContext(e.board, drc.Options{
			Net:               cfg.Net,
			Via:               cfg.Via,
			PunchThrough:      cfg.PunchThrough,
			PunchThroughZones: cfg.PunchThroughZones,
			Area:              unionBounds(regions),
			CellSize:          math.Max(cfg.Grid.SpacingX, cfg.Grid.SpacingY),
		})
		if err != nil {
			return r.fail(fmt.Errorf("clearance context: %w", err))
		}
		r.validator = drc.NewValidator(dctx, e.rules...)
		r.accepted = drc.NewAcceptedSet(cfg.Via.Diameter)

		r.transition(Generating)
		for i, reg := range regions {
			before := len(r.res.Accepted)
			if err := r.stitchRegion(ctx, reg); err != nil {
				r.res.Cancelled = true
				r.finish()
				e.logger.Warn("stitching run cancelled",
					"run_id", r.res.RunID,
					"candidates", r.res.Candidates,
					"accepted", len(r.res.Accepted))
				return r.res, err
			}
			e.logger.Debug("region stitched",
				"run_id", r.res.RunID,
				"region", reg.Index,
				"area_mm2", reg.Size(),
				"accepted", len(r.res.Accepted)-before)
			r.report(10+80*float64(i+1)/float64(len(regions)),
				fmt.Sprintf("Region %d/%d: %d vias", i+1, len(regions), len(r.res.Accepted)))
		}
	}

	r.finish()
	e.logger.Info("stitching run finished",
		"run_id", r.res.RunID,
		"net", cfg.Net,
		"regions", len(regions),
		"candidates", r.res.Candidates,
		"accepted", len(r.res.Accepted),
		"rejected", r.res.Rejected,
		"duration", r.res.Duration)
	return r.res, nil
}

func (r *run) finish() {
	r.transition(Finalizing)
	r.transition(Done)
	r.res.Duration = time.Since(r.start)
	for _, o := range r.e.observers {
		o.RunFinished(r.res)
	}
}

// stitchRegion streams one region's candidates through the validator in
// batches. It returns the context error when cancelled.
func (r *run) stitchRegion(ctx context.Context, reg overlap.Region) error {
	batch := make([]grid.Candidate, 0, r.e.batchSize)
	for c := range grid.Generate(reg, r.cfg.Grid) {
		batch = append(batch, c)
		if len(batch) < r.e.batchSize {
			continue
		}
		if err := r.validateBatch(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
	}
	return r.validateBatch(ctx, batch)
}

// validateBatch runs the board checks for a batch in parallel, then applies
// the self-overlap check and records verdicts serially in generation order.
func (r *run) validateBatch(ctx context.Context, batch []grid.Candidate) error {
	if len(batch) == 0 {
		return ctx.Err()
	}
	r.transition(Validating)

	if cap(r.verdicts) < len(batch) {
		r.verdicts = make([]drc.Verdict, len(batch))
	}
	verdicts := r.verdicts[:len(batch)]

	if r.workers == 1 {
		for i, c := range batch {
			if ctx.Err() != nil {
				break
			}
			verdicts[i] = r.validator.Check(c.Point)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.workers)
		for i, c := range batch {
			g.Go(func() error {
				if ctx.Err() == nil {
					verdicts[i] = r.validator.Check(c.Point)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, c := range batch {
		// A verdict skipped above implies ctx is already done here.
		if err := ctx.Err(); err != nil {
			return err
		}
		v := verdicts[i]
		if v.Accepted && r.accepted.Overlaps(c.Point) {
			v = drc.Verdict{Reason: drc.SelfOverlap}
		}
		r.record(c, v)
	}
	return nil
}

func (r *run) record(c grid.Candidate, v drc.Verdict) {
	r.res.Candidates++
	if v.Accepted {
		r.accepted.Add(c.Point)
		r.res.Accepted = append(r.res.Accepted, via.Accepted{
			Position: c.Point,
			Spec:     r.cfg.Via,
			Net:      r.cfg.Net,
			Region:   c.Region,
			Row:      c.Row,
			Col:      c.Col,
		})
	} else {
		r.res.Rejected[v.Reason]++
		r.res.Rejections = append(r.res.Rejections, Rejection{Position: c.Point, Reason: v.Reason, Region: c.Region})
	}
	for _, o := range r.e.observers {
		o.CandidateChecked(c, v)
	}
}

// Commit creates every accepted via through creator, in order, then groups
// them. When refill is non-nil and cfg.RefillAfter was set for the run,
// zones are refilled afterwards. Results that failed or were cancelled are
// not committed. Vias created before a creator error are not removed.
func (e *Engine) Commit(ctx context.Context, res *RunResult, cfg Config, creator via.Creator, refill via.Refiller) (via.GroupHandle, error) {
	if !res.Committable() {
		return "", fmt.Errorf("run %s is not committable (state %s, cancelled %t)", res.RunID, res.State, res.Cancelled)
	}
	if len(res.Accepted) == 0 {
		return "", nil
	}
	if e.progress != nil {
		e.progress(95, fmt.Sprintf("Creating %d vias", len(res.Accepted)))
	}

	handles := make([]via.Handle, 0, len(res.Accepted))
	for _, a := range res.Accepted {
		h, err := creator.CreateVia(ctx, a.Position, a.Spec, a.Net)
		if err != nil {
			return "", fmt.Errorf("create via at (%.3f, %.3f): %w", a.Position.X, a.Position.Y, err)
		}
		handles = append(handles, h)
	}
	group, err := creator.GroupVias(ctx, handles)
	if err != nil {
		return "", fmt.Errorf("group %d vias: %w", len(handles), err)
	}

	if cfg.RefillAfter && refill != nil {
		if e.progress != nil {
			e.progress(98, "Refilling zones")
		}
		if err := refill.RefillZones(ctx); err != nil {
			return group, fmt.Errorf("refill zones: %w", err)
		}
	}

	e.logger.Info("vias committed", "run_id", res.RunID, "count", len(handles), "group", group)
	if e.progress != nil {
		e.progress(100, fmt.Sprintf("Added %d vias", len(handles)))
	}
	return group, nil
}

// Stitch runs cfg and commits the result. Nothing is created when the run
// fails or is cancelled.
func (e *Engine) Stitch(ctx context.Context, cfg Config, creator via.Creator, refill via.Refiller) (*RunResult, via.GroupHandle, error) {
	res, err := e.Run(ctx, cfg)
	if err != nil {
		return res, "", err
	}
	group, err := e.Commit(ctx, res, cfg, creator, refill)
	return res, group, err
}

// unionBounds returns the bounding box of all regions.
func unionBounds(regions []overlap.Region) geometry.Rect {
	var out geometry.Rect
	for i, reg := range regions {
		if i == 0 {
			out = reg.Bounds()
			continue
		}
		out = out.Union(reg.Bounds())
	}
	return out
}
