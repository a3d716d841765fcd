// Command gridtest prints the candidate lattice for a rectangle or for the
// stitchable regions of a board net.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"via-stitcher/internal/board"
	"via-stitcher/internal/grid"
	"via-stitcher/internal/overlap"
	"via-stitcher/pkg/geometry"
)

func main() {
	width := flag.Float64("w", 10, "Rectangle width, mm")
	height := flag.Float64("h", 10, "Rectangle height, mm")
	sx := flag.Float64("sx", 2.5, "Column pitch, mm")
	sy := flag.Float64("sy", 2.5, "Row pitch, mm")
	stagger := flag.Bool("stagger", false, "Shift odd rows by half a column")
	ox := flag.Float64("ox", 0, "Lattice origin x, mm (with -offset)")
	oy := flag.Float64("oy", 0, "Lattice origin y, mm (with -offset)")
	useOffset := flag.Bool("offset", false, "Use -ox/-oy as the lattice origin")
	boardPath := flag.String("board", "", "Board file; when set, use the regions of -net instead of a rectangle")
	net := flag.String("net", "", "Net whose regions to use with -board")
	layers := flag.String("layers", "", "Comma separated layers for -board (default: all with the net's copper)")
	flag.Parse()

	cfg := grid.Config{SpacingX: *sx, SpacingY: *sy, Stagger: *stagger}
	if *useOffset {
		o := geometry.NewPoint2D(*ox, *oy)
		cfg.Offset = &o
	}
	fmt.Printf("Grid: %.3f x %.3f mm, stagger %v\n", cfg.SpacingX, cfg.SpacingY, cfg.Stagger)

	var regions []grid.Region
	if *boardPath == "" {
		fmt.Printf("Region: rectangle %.3f x %.3f mm\n", *width, *height)
		regions = rectRegions(*width, *height)
	} else {
		b, err := board.LoadFromFile(*boardPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load board: %v\n", err)
			os.Exit(1)
		}
		ls := parseLayers(*layers)
		if len(ls) == 0 {
			ls = board.NetLayers(b, *net)
		}
		regions, err = boardRegions(b, *net, ls)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Region detection failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Board %s, net %s on %v: %d regions\n", b.Name, *net, ls, len(regions))
	}

	total := printLattice(os.Stdout, regions, cfg)
	fmt.Printf("\nTotal: %d candidates\n", total)
}

// rectRegions returns a w x h rectangle at the origin as a single region.
// A degenerate rectangle yields no region.
func rectRegions(w, h float64) []grid.Region {
	var out []grid.Region
	for _, a := range geometry.IntersectLayers([]geometry.Polygon{geometry.NewRectPolygon(geometry.NewRect(0, 0, w, h))}) {
		out = append(out, a)
	}
	return out
}

func boardRegions(b board.Adapter, net string, layers []board.Layer) ([]grid.Region, error) {
	found, err := overlap.DetectFor(b, net, layers)
	if err != nil {
		return nil, err
	}
	out := make([]grid.Region, 0, len(found))
	for _, r := range found {
		out = append(out, r)
	}
	return out, nil
}

func parseLayers(s string) []board.Layer {
	var out []board.Layer
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, board.Layer(l))
		}
	}
	return out
}

// printLattice writes one table per region and returns the candidate total.
func printLattice(w io.Writer, regions []grid.Region, cfg grid.Config) int {
	total := 0
	for i, r := range regions {
		bb := r.Bounds()
		fmt.Fprintf(w, "\nRegion %d: (%.3f, %.3f) - (%.3f, %.3f), %d candidates\n",
			i, bb.X, bb.Y, bb.MaxX(), bb.MaxY(), grid.Count(r, cfg))
		fmt.Fprintf(w, "%6s %6s %10s %10s\n", "Row", "Col", "X", "Y")
		for c := range grid.Generate(r, cfg) {
			fmt.Fprintf(w, "%6d %6d %10.3f %10.3f\n", c.Row, c.Col, c.Point.X, c.Point.Y)
			total++
		}
	}
	return total
}
