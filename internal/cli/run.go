package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"via-stitcher/internal/board"
	"via-stitcher/internal/config"
	"via-stitcher/internal/drc"
	"via-stitcher/internal/metrics"
	"via-stitcher/internal/placement"
	"via-stitcher/internal/prefs"
	"via-stitcher/internal/preview"
	"via-stitcher/internal/via"
	"via-stitcher/pkg/geometry"

	"github.com/spf13/cobra"
)

// runOptions holds the flags of the run command.
type runOptions struct {
	jobPath   string
	boardPath string
	output    string
	apply     bool
	boardOut  string
	preview   string
	metrics   string
	dryRun    bool
	asJSON    bool

	net               string
	layers            []string
	diameter          float64
	drill             float64
	spacingX          float64
	spacingY          float64
	offset            []float64
	stagger           bool
	punchThrough      bool
	punchThroughZones []string
	workers           int
	noRefill          bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	o := &runOptions{}
	def := placement.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stitch a net",
		Long: `Run via stitching for one net and write the accepted vias.

Parameters come from the built-in defaults, then the remembered preferences,
then the job file, then the command line.`,
		Example: `  via-stitcher run -b board.yaml -n GND
  via-stitcher run -b board.yaml -n GND -l F.Cu,B.Cu --spacing 1.27 --stagger --preview gnd.png
  via-stitcher run --job gnd-stitch.yaml --apply --board-out stitched.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, root)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.jobPath, "job", "j", "", "Job file (YAML or JSON)")
	f.StringVarP(&o.boardPath, "board", "b", "", "Board file (YAML or JSON)")
	f.StringVarP(&o.output, "output", "o", "", "Placement file to write (default <board>.vias.json)")
	f.BoolVar(&o.apply, "apply", false, "Add the vias to the board and save it")
	f.StringVar(&o.boardOut, "board-out", "", "Where --apply saves the board (default: overwrite --board)")
	f.StringVar(&o.preview, "preview", "", "Render a preview image (.png, .svg, .pdf or .tiff)")
	f.StringVar(&o.metrics, "metrics-file", "", "Write Prometheus metrics in textfile format")
	f.BoolVar(&o.dryRun, "dry-run", false, "Validate only; write no placement file")
	f.BoolVar(&o.asJSON, "json", false, "Print the run result as JSON")

	f.StringVarP(&o.net, "net", "n", "", "Net to stitch")
	f.StringSliceVarP(&o.layers, "layers", "l", nil, "Layers the vias must connect (default: every layer with the net's copper)")
	f.Float64Var(&o.diameter, "via-diameter", def.Via.Diameter, "Via copper diameter, mm")
	f.Float64Var(&o.drill, "via-drill", def.Via.Drill, "Via drill diameter, mm")
	f.Float64Var(&o.spacingX, "spacing-x", def.Grid.SpacingX, "Grid column pitch, mm")
	f.Float64Var(&o.spacingY, "spacing-y", def.Grid.SpacingY, "Grid row pitch, mm")
	f.Float64Slice("spacing", nil, "Grid pitch for both axes, mm")
	f.Float64SliceVar(&o.offset, "offset", nil, "Grid origin as x,y in mm (default: each region's corner)")
	f.BoolVar(&o.stagger, "stagger", def.Grid.Stagger, "Shift odd rows by half a column")
	f.BoolVar(&o.punchThrough, "punch-through", false, "Allow vias through any other-net zone")
	f.StringSliceVar(&o.punchThroughZones, "punch-through-zone", nil, "Allow vias through these other-net zones")
	f.IntVarP(&o.workers, "workers", "w", 0, "Parallel clearance checks (0 = one per CPU)")
	f.BoolVar(&o.noRefill, "no-refill", false, "Do not request a zone refill after stitching")
	return cmd
}

// job merges defaults, preferences, the job file and the flags.
func (o *runOptions) job(cmd *cobra.Command, p prefsStore) (*config.Job, error) {
	job := config.Default()
	if p != nil {
		p.Apply(&job.Config)
	}
	if o.jobPath != "" {
		var err error
		if job, err = config.LoadOver(o.jobPath, job); err != nil {
			return nil, err
		}
	}

	f := cmd.Flags()
	if f.Changed("board") {
		job.Board = o.boardPath
	}
	if f.Changed("output") {
		job.Output = o.output
	}
	if f.Changed("preview") {
		job.Preview = o.preview
	}
	if f.Changed("metrics-file") {
		job.MetricsFile = o.metrics
	}

	cfg := &job.Config
	if f.Changed("net") {
		cfg.Net = o.net
	}
	if f.Changed("layers") {
		cfg.Layers = nil
		for _, l := range o.layers {
			cfg.Layers = append(cfg.Layers, board.Layer(strings.TrimSpace(l)))
		}
	}
	if f.Changed("via-diameter") {
		cfg.Via.Diameter = o.diameter
	}
	if f.Changed("via-drill") {
		cfg.Via.Drill = o.drill
	}
	if f.Changed("spacing") {
		s, _ := f.GetFloat64Slice("spacing")
		switch len(s) {
		case 1:
			cfg.Grid.SpacingX, cfg.Grid.SpacingY = s[0], s[0]
		case 2:
			cfg.Grid.SpacingX, cfg.Grid.SpacingY = s[0], s[1]
		default:
			return nil, fmt.Errorf("--spacing takes one or two values, got %d", len(s))
		}
	}
	if f.Changed("spacing-x") {
		cfg.Grid.SpacingX = o.spacingX
	}
	if f.Changed("spacing-y") {
		cfg.Grid.SpacingY = o.spacingY
	}
	if f.Changed("offset") {
		if len(o.offset) != 2 {
			return nil, fmt.Errorf("--offset takes x,y, got %d values", len(o.offset))
		}
		off := geometry.NewPoint2D(o.offset[0], o.offset[1])
		cfg.Grid.Offset = &off
	}
	if f.Changed("stagger") {
		cfg.Grid.Stagger = o.stagger
	}
	if f.Changed("punch-through") {
		cfg.PunchThrough = o.punchThrough
	}
	if f.Changed("punch-through-zone") {
		cfg.PunchThroughZones = o.punchThroughZones
	}
	if f.Changed("workers") {
		cfg.Workers = o.workers
	}
	if f.Changed("no-refill") {
		cfg.RefillAfter = !o.noRefill
	}

	if job.Board == "" {
		return nil, errors.New("no board: pass --board or set board in the job file")
	}
	if job.Output == "" {
		job.Output = strings.TrimSuffix(job.Board, filepath.Ext(job.Board)) + ".vias.json"
	}
	return job, nil
}

// prefsStore is the part of prefs.Prefs the run command uses.
type prefsStore interface {
	Apply(cfg *placement.Config)
	Remember(cfg placement.Config)
	SetString(key, val string)
	Save() error
}

func (o *runOptions) run(cmd *cobra.Command, root *rootOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := root.logger

	var store prefsStore
	if p := root.prefs(); p != nil {
		store = p
	}
	job, err := o.job(cmd, store)
	if err != nil {
		return err
	}
	b, err := root.loadBoard(job.Board)
	if err != nil {
		return err
	}
	cfg := job.Config
	if len(cfg.Layers) == 0 && cfg.Net != "" {
		if !board.HasNet(b, cfg.Net) {
			return &placement.ConfigError{Field: "net", Reason: fmt.Sprintf("%q does not exist on the board", cfg.Net)}
		}
		cfg.Layers = board.NetLayers(b, cfg.Net)
		log.Debug("layers from net copper", "net", cfg.Net, "layers", cfg.Layers)
	}

	opts := []placement.Option{
		placement.WithLogger(log),
		placement.WithProgress(func(percent float64, status string) {
			log.Debug("progress", "percent", percent, "status", status)
		}),
	}
	var rec *metrics.Recorder
	if job.MetricsFile != "" {
		rec = metrics.New()
		opts = append(opts, placement.WithObserver(rec))
	}
	engine := placement.New(b, opts...)

	res, runErr := engine.Run(ctx, cfg)
	if rec != nil {
		if err := rec.WriteTextfile(job.MetricsFile); err != nil {
			log.Warn("metrics not written", "error", err)
		}
	}
	if runErr != nil && (res == nil || !res.Cancelled) {
		return runErr
	}

	out := cmd.OutOrStdout()
	if o.asJSON {
		if err := writeJSON(cmd, res); err != nil {
			return err
		}
	} else {
		printSummary(out, res)
	}
	if job.Preview != "" {
		if err := preview.Save(job.Preview, b, res, preview.DefaultOptions()); err != nil {
			return err
		}
		log.Info("preview written", "path", job.Preview)
	}
	if runErr != nil {
		return fmt.Errorf("run cancelled, nothing written: %w", runErr)
	}
	if o.dryRun {
		return nil
	}

	pf := via.NewPlacementFile(b.Name)
	if _, err := engine.Commit(ctx, res, cfg, pf, pf); err != nil {
		return err
	}
	if err := pf.Save(job.Output); err != nil {
		return fmt.Errorf("save placement file: %w", err)
	}
	log.Info("placement file written", "path", job.Output, "vias", len(pf.Vias))

	if o.apply {
		if _, err := engine.Commit(ctx, res, cfg, via.NewBoardCreator(b), nil); err != nil {
			return err
		}
		dst := o.boardOut
		if dst == "" {
			dst = job.Board
		}
		if err := b.SaveToFile(dst); err != nil {
			return fmt.Errorf("save board: %w", err)
		}
		log.Info("board written", "path", dst)
	}

	if store != nil {
		store.Remember(cfg)
		store.SetString(prefs.KeyLastBoard, job.Board)
		if err := store.Save(); err != nil {
			log.Warn("preferences not saved", "error", err)
		}
	}
	return nil
}

func printSummary(w io.Writer, res *placement.RunResult) {
	status := okColor.Sprint("done")
	if res.Cancelled {
		status = warnColor.Sprint("cancelled")
	}
	titleColor.Fprintf(w, "Stitched %s", res.Net)
	fmt.Fprintf(w, " (%s): %d vias, %d rejected of %d candidates in %d regions, %s\n",
		status, len(res.Accepted), res.RejectedTotal(), res.Candidates, len(res.Regions), res.Duration.Round(time.Millisecond))
	for _, reason := range drc.Reasons() {
		if n := res.Rejected[reason]; n > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", reason, n)
		}
	}
}

func (o *rootOptions) loadBoard(path string) (*board.Snapshot, error) {
	b, err := board.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("board loaded", "path", path, "name", b.Name, "layers", b.Layers(), "nets", len(b.ListNets()))
	return b, nil
}
