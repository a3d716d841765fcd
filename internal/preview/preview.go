// Package preview renders a stitching run over its board as an image.
package preview

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"via-stitcher/internal/board"
	"via-stitcher/internal/drc"
	"via-stitcher/internal/placement"
	"via-stitcher/pkg/colorutil"
	"via-stitcher/pkg/geometry"

	"golang.org/x/image/tiff"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// circleSegments is the number of sides used for round pads and vias.
const circleSegments = 24

// Formats lists the supported output formats, by file extension.
var Formats = []string{"png", "svg", "pdf", "tiff"}

// ReasonColors maps each rejection reason to its marker color.
var ReasonColors = map[drc.Reason]color.RGBA{
	drc.EdgeClearance:  colorutil.Black,
	drc.OtherNetCopper: colorutil.Magenta,
	drc.OtherNetTrace:  colorutil.Blue,
	drc.OtherNetPad:    colorutil.Red,
	drc.HoleToHole:     colorutil.Yellow,
	drc.SelfOverlap:    colorutil.Gray,
}

// Options controls rendering.
type Options struct {
	Width  vg.Length // Image width; the height follows the board aspect
	Title  string
	Reject bool // Draw rejected candidates
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{Width: 8 * vg.Inch, Reject: true}
}

// Render builds the plot for res on b.
func Render(b board.Adapter, res *placement.RunResult, opts Options) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s: %d vias", res.Net, len(res.Accepted))
	}
	p.X.Label.Text = "x (mm)"
	p.Y.Label.Text = "y (mm)"
	p.Legend.Top = true

	nets := b.ListNets()
	palette := colorutil.Distinct(len(nets))
	for i, net := range nets {
		if net == res.Net {
			continue
		}
		for _, fa := range b.FilledAreasFor(net) {
			if err := addPolygons(p, fa.Polygons, colorutil.WithAlpha(palette[i], 40), nil); err != nil {
				return nil, fmt.Errorf("zone %s: %w", fa.ZoneID, err)
			}
		}
	}

	regionFill := colorutil.WithAlpha(colorutil.Green, 70)
	for _, reg := range res.Regions {
		for _, t := range reg.Area.Trapezoids {
			poly, err := plotter.NewPolygon(xys(t.Corners()))
			if err != nil {
				return nil, fmt.Errorf("region %d: %w", reg.Index, err)
			}
			poly.Color = regionFill
			poly.LineStyle.Width = 0
			p.Add(poly)
		}
	}

	if outline := b.BoardOutline(); outline != nil {
		if err := addPolygons(p, []geometry.Polygon{*outline}, nil, colorutil.Black); err != nil {
			return nil, fmt.Errorf("board outline: %w", err)
		}
	}

	var bounds geometry.Rect
	if outline := b.BoardOutline(); outline != nil {
		bounds = outline.Bounds()
	}
	for _, reg := range res.Regions {
		bounds = union(bounds, reg.Bounds())
	}
	obs := b.TracesAndPadsNear(bounds.Inflate(1))
	for _, t := range obs.Tracks {
		line, err := plotter.NewLine(xys([]geometry.Point2D{t.Start, t.End}))
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", t.ID, err)
		}
		line.Color = colorutil.Copper
		line.Width = vg.Points(1.5)
		p.Add(line)
	}
	for _, pad := range obs.Pads {
		if err := addPolygons(p, []geometry.Polygon{padPolygon(pad)}, colorutil.Copper, nil); err != nil {
			return nil, fmt.Errorf("pad %s: %w", pad.ID, err)
		}
	}

	for _, a := range res.Accepted {
		poly, err := plotter.NewPolygon(xys(a.Outline(circleSegments)))
		if err != nil {
			return nil, fmt.Errorf("via %s: %w", a, err)
		}
		poly.Color = colorutil.Cyan
		poly.LineStyle.Color = colorutil.Black
		poly.LineStyle.Width = vg.Points(0.3)
		p.Add(poly)
	}

	if opts.Reject {
		if err := addRejections(p, res.Rejections); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func addRejections(p *plot.Plot, rejections []placement.Rejection) error {
	byReason := map[drc.Reason]plotter.XYs{}
	for _, r := range rejections {
		byReason[r.Reason] = append(byReason[r.Reason], plotter.XY{X: r.Position.X, Y: r.Position.Y})
	}
	for _, reason := range drc.Reasons() {
		pts := byReason[reason]
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("rejections %s: %w", reason, err)
		}
		s.GlyphStyle = draw.GlyphStyle{
			Color:  ReasonColors[reason],
			Radius: vg.Points(1.5),
			Shape:  draw.CrossGlyph{},
		}
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%s (%d)", reason, len(pts)), s)
	}
	return nil
}

func addPolygons(p *plot.Plot, polys []geometry.Polygon, fill color.Color, stroke color.Color) error {
	for _, poly := range polys {
		rings := make([]plotter.XYer, 0, 1+len(poly.Holes))
		rings = append(rings, xys(poly.Outline))
		for _, h := range poly.Holes {
			rings = append(rings, xys(h))
		}
		pp, err := plotter.NewPolygon(rings...)
		if err != nil {
			return err
		}
		pp.Color = fill
		if stroke != nil {
			pp.LineStyle.Color = stroke
			pp.LineStyle.Width = vg.Points(1)
		} else {
			pp.LineStyle.Width = 0
		}
		p.Add(pp)
	}
	return nil
}

func padPolygon(pad board.Pad) geometry.Polygon {
	if pad.Shape == board.PadCircle {
		return geometry.Polygon{Outline: geometry.GenerateCirclePoints(pad.Position.X, pad.Position.Y, pad.Size.Width/2, circleSegments)}
	}
	return geometry.NewRectPolygon(pad.Bounds())
}

func xys(pts []geometry.Point2D) plotter.XYs {
	out := make(plotter.XYs, len(pts))
	for i, pt := range pts {
		out[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return out
}

func union(a, b geometry.Rect) geometry.Rect {
	if a.Width == 0 && a.Height == 0 {
		return b
	}
	return a.Union(b)
}

// size returns the image size for p at the given width, keeping the plotted
// area roughly to scale.
func size(p *plot.Plot, width vg.Length) (vg.Length, vg.Length) {
	if width <= 0 {
		width = DefaultOptions().Width
	}
	dx, dy := p.X.Max-p.X.Min, p.Y.Max-p.Y.Min
	if dx <= 0 || dy <= 0 {
		return width, width
	}
	h := width * vg.Length(dy/dx)
	return width, min(max(h, width/4), width*4)
}

// Write renders res and encodes it to w in the given format.
func Write(w io.Writer, format string, b board.Adapter, res *placement.RunResult, opts Options) error {
	p, err := Render(b, res, opts)
	if err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	width, height := size(p, opts.Width)

	switch format {
	case "tiff", "tif":
		c := vgimg.New(width, height)
		p.Draw(draw.New(c))
		if err := tiff.Encode(w, c.Image(), &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return fmt.Errorf("encode tiff: %w", err)
		}
		return nil
	case "png", "svg", "pdf":
		wt, err := p.WriterTo(width, height, format)
		if err != nil {
			return fmt.Errorf("preview writer: %w", err)
		}
		if _, err := wt.WriteTo(w); err != nil {
			return fmt.Errorf("write %s: %w", format, err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported preview format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// Save renders res to path. The format is taken from the file extension.
func Save(path string, b board.Adapter, res *placement.RunResult, opts Options) error {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	if err := Write(f, format, b, res, opts); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
