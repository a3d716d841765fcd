package board

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"via-stitcher/internal/spatial"
	"via-stitcher/pkg/geometry"

	"gopkg.in/yaml.v3"
)

// XY is a point written as a two-element [x, y] list in board files.
type XY [2]float64

// Point converts to a geometry point.
func (p XY) Point() geometry.Point2D { return geometry.NewPoint2D(p[0], p[1]) }

func toXY(p geometry.Point2D) XY { return XY{p.X, p.Y} }

// PolygonFile is a polygon with holes as stored in board files.
type PolygonFile struct {
	Outline []XY   `json:"outline" yaml:"outline"`
	Holes   [][]XY `json:"holes,omitempty" yaml:"holes,omitempty"`
}

func (p PolygonFile) polygon() geometry.Polygon {
	out := geometry.Polygon{Outline: ring(p.Outline)}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, ring(h))
	}
	return out
}

func ring(pts []XY) geometry.Ring {
	r := make(geometry.Ring, len(pts))
	for i, p := range pts {
		r[i] = p.Point()
	}
	return r
}

func polygonFile(p geometry.Polygon) PolygonFile {
	out := PolygonFile{Outline: xyList(p.Outline)}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, xyList(h))
	}
	return out
}

func xyList(r geometry.Ring) []XY {
	out := make([]XY, len(r))
	for i, p := range r {
		out[i] = toXY(p)
	}
	return out
}

// ZoneFile is a copper zone poured with the same fill on one or more layers.
type ZoneFile struct {
	ID        string        `json:"id" yaml:"id"`
	Net       string        `json:"net" yaml:"net"`
	Layers    []string      `json:"layers" yaml:"layers"`
	Clearance float64       `json:"clearance,omitempty" yaml:"clearance,omitempty"`
	Polygons  []PolygonFile `json:"polygons" yaml:"polygons"`
}

// TrackFile is a copper track segment.
type TrackFile struct {
	ID        string  `json:"id,omitempty" yaml:"id,omitempty"`
	Net       string  `json:"net" yaml:"net"`
	Layer     string  `json:"layer" yaml:"layer"`
	Start     XY      `json:"start" yaml:"start"`
	End       XY      `json:"end" yaml:"end"`
	Width     float64 `json:"width" yaml:"width"`
	Clearance float64 `json:"clearance,omitempty" yaml:"clearance,omitempty"`
}

// PadFile is a component pad. Size is [w, h]; circles use w as the diameter.
type PadFile struct {
	ID        string  `json:"id,omitempty" yaml:"id,omitempty"`
	Net       string  `json:"net" yaml:"net"`
	At        XY      `json:"at" yaml:"at"`
	Shape     string  `json:"shape,omitempty" yaml:"shape,omitempty"`
	Size      XY      `json:"size" yaml:"size"`
	Drill     float64 `json:"drill,omitempty" yaml:"drill,omitempty"`
	Clearance float64 `json:"clearance,omitempty" yaml:"clearance,omitempty"`
}

// ViaFile is an existing through via.
type ViaFile struct {
	ID       string  `json:"id,omitempty" yaml:"id,omitempty"`
	Net      string  `json:"net" yaml:"net"`
	At       XY      `json:"at" yaml:"at"`
	Diameter float64 `json:"diameter" yaml:"diameter"`
	Drill    float64 `json:"drill" yaml:"drill"`
}

// HoleFile is an unplated mounting hole.
type HoleFile struct {
	At       XY      `json:"at" yaml:"at"`
	Diameter float64 `json:"diameter" yaml:"diameter"`
}

// File is the on-disk board snapshot. Units are millimetres.
type File struct {
	Name          string       `json:"name" yaml:"name"`
	Layers        []string     `json:"layers" yaml:"layers"`
	Rules         DesignRules  `json:"rules" yaml:"rules"`
	Nets          []string     `json:"nets,omitempty" yaml:"nets,omitempty"`
	Outline       *PolygonFile `json:"outline,omitempty" yaml:"outline,omitempty"`
	Zones         []ZoneFile   `json:"zones,omitempty" yaml:"zones,omitempty"`
	Tracks        []TrackFile  `json:"tracks,omitempty" yaml:"tracks,omitempty"`
	Pads          []PadFile    `json:"pads,omitempty" yaml:"pads,omitempty"`
	Vias          []ViaFile    `json:"vias,omitempty" yaml:"vias,omitempty"`
	MountingHoles []HoleFile   `json:"mounting_holes,omitempty" yaml:"mounting_holes,omitempty"`
}

// Validate checks the file for structural errors. Polygon geometry is
// checked later by the consumers that need it.
func (f *File) Validate() error {
	if len(f.Layers) == 0 {
		return fmt.Errorf("board has no copper layers")
	}
	stack := make(map[string]bool, len(f.Layers))
	for _, l := range f.Layers {
		if l == "" {
			return fmt.Errorf("empty layer name")
		}
		if stack[l] {
			return fmt.Errorf("duplicate layer %q", l)
		}
		stack[l] = true
	}
	if f.Rules.CopperClearance < 0 || f.Rules.EdgeClearance < 0 || f.Rules.HoleToHole < 0 {
		return fmt.Errorf("design rules must not be negative")
	}
	for i, z := range f.Zones {
		if z.Net == "" {
			return fmt.Errorf("zone %d: missing net", i)
		}
		if len(z.Layers) == 0 {
			return fmt.Errorf("zone %d: no layers", i)
		}
		for _, l := range z.Layers {
			if !stack[l] {
				return fmt.Errorf("zone %d: unknown layer %q", i, l)
			}
		}
	}
	for i, t := range f.Tracks {
		if !stack[t.Layer] {
			return fmt.Errorf("track %d: unknown layer %q", i, t.Layer)
		}
		if t.Width <= 0 {
			return fmt.Errorf("track %d: width must be positive", i)
		}
	}
	for i, p := range f.Pads {
		if _, err := ParsePadShape(p.Shape); err != nil {
			return fmt.Errorf("pad %d: %w", i, err)
		}
		if p.Size[0] <= 0 {
			return fmt.Errorf("pad %d: size must be positive", i)
		}
		if p.Drill < 0 {
			return fmt.Errorf("pad %d: drill must not be negative", i)
		}
	}
	for i, v := range f.Vias {
		if v.Drill <= 0 || v.Diameter <= v.Drill {
			return fmt.Errorf("via %d: need diameter > drill > 0", i)
		}
	}
	for i, h := range f.MountingHoles {
		if h.Diameter <= 0 {
			return fmt.Errorf("mounting hole %d: diameter must be positive", i)
		}
	}
	return nil
}

// Zone is a copper zone as held by a Snapshot.
type Zone struct {
	ID        string
	Net       string
	Layers    []Layer
	Clearance float64
	Polygons  []geometry.Polygon
}

// Via is an existing through via.
type Via struct {
	ID       string
	Net      string
	Position geometry.Point2D
	Diameter float64
	Drill    float64
}

// Pad returns the via as a round drilled pad.
func (v Via) Pad() Pad {
	return Pad{
		ID:       v.ID,
		Net:      v.Net,
		Position: v.Position,
		Shape:    PadCircle,
		Size:     geometry.NewSize(v.Diameter, v.Diameter),
		Drill:    v.Drill,
	}
}

// Snapshot is an in-memory board implementing Adapter.
// Reads are safe for concurrent use; AddVia must not run during a placement run.
type Snapshot struct {
	Name string

	layers  []Layer
	rules   DesignRules
	nets    []string
	outline *geometry.Polygon
	zones   []Zone
	tracks  []Track
	pads    []Pad
	vias    []Via
	viaIDs  map[string]bool
	holes   []Hole // mounting holes only

	mu    sync.Mutex
	index *obstacleIndex
}

type obstacleIndex struct {
	tracks *spatial.Index
	pads   *spatial.Index
	all    []Pad // pads followed by vias
}

// NewSnapshot builds a snapshot from a parsed board file.
func NewSnapshot(f *File) (*Snapshot, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board %q: %w", f.Name, err)
	}

	s := &Snapshot{Name: f.Name, rules: f.Rules}
	for _, l := range f.Layers {
		s.layers = append(s.layers, Layer(l))
	}
	if f.Outline != nil {
		p := f.Outline.polygon()
		s.outline = &p
	}
	for i, z := range f.Zones {
		id := z.ID
		if id == "" {
			id = fmt.Sprintf("zone-%d", i+1)
		}
		zone := Zone{ID: id, Net: z.Net, Clearance: z.Clearance}
		for _, l := range z.Layers {
			zone.Layers = append(zone.Layers, Layer(l))
		}
		for _, p := range z.Polygons {
			zone.Polygons = append(zone.Polygons, p.polygon())
		}
		s.zones = append(s.zones, zone)
	}
	for i, t := range f.Tracks {
		id := t.ID
		if id == "" {
			id = fmt.Sprintf("track-%d", i+1)
		}
		s.tracks = append(s.tracks, Track{
			ID: id, Net: t.Net, Layer: Layer(t.Layer),
			Start: t.Start.Point(), End: t.End.Point(),
			Width: t.Width, Clearance: t.Clearance,
		})
	}
	for i, p := range f.Pads {
		id := p.ID
		if id == "" {
			id = fmt.Sprintf("pad-%d", i+1)
		}
		shape, _ := ParsePadShape(p.Shape)
		h := p.Size[1]
		if h <= 0 || shape == PadCircle {
			h = p.Size[0]
		}
		s.pads = append(s.pads, Pad{
			ID: id, Net: p.Net, Position: p.At.Point(), Shape: shape,
			Size: geometry.NewSize(p.Size[0], h), Drill: p.Drill, Clearance: p.Clearance,
		})
	}
	s.viaIDs = make(map[string]bool, len(f.Vias))
	for _, v := range f.Vias {
		if v.ID != "" {
			s.viaIDs[v.ID] = true
		}
	}
	for i, v := range f.Vias {
		id := v.ID
		if id == "" {
			id = nextID("via", i+1, s.viaIDs)
		}
		s.vias = append(s.vias, Via{ID: id, Net: v.Net, Position: v.At.Point(), Diameter: v.Diameter, Drill: v.Drill})
	}
	for _, h := range f.MountingHoles {
		s.holes = append(s.holes, Hole{Position: h.At.Point(), Radius: h.Diameter / 2})
	}

	seen := map[string]bool{}
	addNet := func(n string) {
		if n != "" && !seen[n] {
			seen[n] = true
			s.nets = append(s.nets, n)
		}
	}
	for _, n := range f.Nets {
		addNet(n)
	}
	for _, z := range s.zones {
		addNet(z.Net)
	}
	for _, t := range s.tracks {
		addNet(t.Net)
	}
	for _, p := range s.pads {
		addNet(p.Net)
	}
	for _, v := range s.vias {
		addNet(v.Net)
	}
	sort.Strings(s.nets)

	return s, nil
}

// Parse decodes a YAML (or JSON, which is valid YAML) board file.
func Parse(data []byte) (*Snapshot, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse board: %w", err)
	}
	return NewSnapshot(&f)
}

// LoadFromFile loads a board snapshot from a .yaml, .yml or .json file.
func LoadFromFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// File converts the snapshot back to its on-disk form.
func (s *Snapshot) File() *File {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &File{Name: s.Name, Rules: s.rules, Nets: append([]string(nil), s.nets...)}
	for _, l := range s.layers {
		f.Layers = append(f.Layers, string(l))
	}
	if s.outline != nil {
		p := polygonFile(*s.outline)
		f.Outline = &p
	}
	for _, z := range s.zones {
		zf := ZoneFile{ID: z.ID, Net: z.Net, Clearance: z.Clearance}
		for _, l := range z.Layers {
			zf.Layers = append(zf.Layers, string(l))
		}
		for _, p := range z.Polygons {
			zf.Polygons = append(zf.Polygons, polygonFile(p))
		}
		f.Zones = append(f.Zones, zf)
	}
	for _, t := range s.tracks {
		f.Tracks = append(f.Tracks, TrackFile{
			ID: t.ID, Net: t.Net, Layer: string(t.Layer),
			Start: toXY(t.Start), End: toXY(t.End), Width: t.Width, Clearance: t.Clearance,
		})
	}
	for _, p := range s.pads {
		f.Pads = append(f.Pads, PadFile{
			ID: p.ID, Net: p.Net, At: toXY(p.Position), Shape: p.Shape.String(),
			Size: XY{p.Size.Width, p.Size.Height}, Drill: p.Drill, Clearance: p.Clearance,
		})
	}
	for _, v := range s.vias {
		f.Vias = append(f.Vias, ViaFile{ID: v.ID, Net: v.Net, At: toXY(v.Position), Diameter: v.Diameter, Drill: v.Drill})
	}
	for _, h := range s.holes {
		f.MountingHoles = append(f.MountingHoles, HoleFile{At: toXY(h.Position), Diameter: h.Radius * 2})
	}
	return f
}

// SaveToFile writes the snapshot as YAML, or JSON when path ends in .json.
func (s *Snapshot) SaveToFile(path string) error {
	f := s.File()
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(f, "", "  ")
	} else {
		data, err = yaml.Marshal(f)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// AddVia appends a through via and returns its id.
func (s *Snapshot) AddVia(pos geometry.Point2D, diameter, drill float64, net string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viaIDs == nil {
		s.viaIDs = make(map[string]bool)
		for _, v := range s.vias {
			s.viaIDs[v.ID] = true
		}
	}
	id := nextID("via", len(s.vias)+1, s.viaIDs)
	s.vias = append(s.vias, Via{ID: id, Net: net, Position: pos, Diameter: diameter, Drill: drill})
	s.index = nil
	return id
}

// nextID returns the first prefix-N, counting up from n, that is not taken,
// and marks it taken.
func nextID(prefix string, n int, taken map[string]bool) string {
	for ; ; n++ {
		id := fmt.Sprintf("%s-%d", prefix, n)
		if !taken[id] {
			taken[id] = true
			return id
		}
	}
}

// Zones returns every zone on the board.
func (s *Snapshot) Zones() []Zone { return s.zones }

// Vias returns the existing vias.
func (s *Snapshot) Vias() []Via {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Via(nil), s.vias...)
}

// ListNets implements Adapter.
func (s *Snapshot) ListNets() []string { return append([]string(nil), s.nets...) }

// FilledAreasFor implements Adapter.
func (s *Snapshot) FilledAreasFor(net string) []FilledArea {
	var out []FilledArea
	for _, z := range s.zones {
		if z.Net != net {
			continue
		}
		for _, l := range z.Layers {
			out = append(out, FilledArea{ZoneID: z.ID, Net: z.Net, Layer: l, Polygons: z.Polygons, Clearance: z.Clearance})
		}
	}
	return out
}

// TracesAndPadsNear implements Adapter. Existing vias are reported as pads.
func (s *Snapshot) TracesAndPadsNear(bbox geometry.Rect) Obstacles {
	ix := s.obstacles()
	var obs Obstacles
	seen := map[int]bool{}
	ix.tracks.Query(bbox, func(id int) bool {
		if !seen[id] {
			seen[id] = true
			obs.Tracks = append(obs.Tracks, s.tracks[id])
		}
		return true
	})
	clear(seen)
	ix.pads.Query(bbox, func(id int) bool {
		if !seen[id] {
			seen[id] = true
			obs.Pads = append(obs.Pads, ix.all[id])
		}
		return true
	})
	sort.Slice(obs.Tracks, func(i, j int) bool { return obs.Tracks[i].ID < obs.Tracks[j].ID })
	sort.Slice(obs.Pads, func(i, j int) bool { return obs.Pads[i].ID < obs.Pads[j].ID })
	return obs
}

// BoardOutline implements Adapter.
func (s *Snapshot) BoardOutline() *geometry.Polygon { return s.outline }

// ExistingHoles implements Adapter: drilled pads, vias and mounting holes.
func (s *Snapshot) ExistingHoles() []Hole {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Hole
	for _, p := range s.pads {
		if p.Drill > 0 {
			out = append(out, Hole{Position: p.Position, Radius: p.Drill / 2})
		}
	}
	for _, v := range s.vias {
		out = append(out, Hole{Position: v.Position, Radius: v.Drill / 2})
	}
	return append(out, s.holes...)
}

// Layers implements Adapter.
func (s *Snapshot) Layers() []Layer { return append([]Layer(nil), s.layers...) }

// Rules implements Adapter.
func (s *Snapshot) Rules() DesignRules { return s.rules }

func (s *Snapshot) obstacles() *obstacleIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index
	}

	ix := &obstacleIndex{
		tracks: spatial.NewIndex(indexCellSize),
		pads:   spatial.NewIndex(indexCellSize),
	}
	for _, t := range s.tracks {
		ix.tracks.Insert(t.Bounds())
	}
	ix.all = append(ix.all, s.pads...)
	for _, v := range s.vias {
		ix.all = append(ix.all, v.Pad())
	}
	for _, p := range ix.all {
		ix.pads.Insert(p.Bounds())
	}
	s.index = ix
	return ix
}

// indexCellSize is the bucket size in mm for track and pad lookups.
const indexCellSize = 2.5
