// Package overlap finds the regions where a net has filled copper on every
// selected layer. Those regions are where a through via can stitch the layers.
package overlap

import (
	"fmt"

	"via-stitcher/internal/board"
	"via-stitcher/pkg/geometry"
)

// Region is a connected stitchable area. Its boundary belongs to it.
type Region struct {
	Index  int           // Position in detector order
	Net    string        // Target net
	Layers []board.Layer // Layers the region covers
	Area   geometry.Area // Trapezoid decomposition
}

// Bounds returns the region bounding box.
func (r Region) Bounds() geometry.Rect { return r.Area.Bounds() }

// Contains reports whether p lies in the region, boundary included.
func (r Region) Contains(p geometry.Point2D) bool { return r.Area.Contains(p) }

// RegionIndex returns the region's position in detector order.
func (r Region) RegionIndex() int { return r.Index }

// Size returns the region area in mm².
func (r Region) Size() float64 { return r.Area.Size() }

// Detect computes the stitchable regions of net over layers from the given
// filled areas. Areas of other nets or other layers are ignored.
//
// A layer without target-net copper, or an empty intersection, yields no
// regions and no error. Malformed polygons fail with a *geometry.GeometryError.
func Detect(areas []board.FilledArea, net string, layers []board.Layer) ([]Region, error) {
	if len(layers) == 0 {
		return nil, nil
	}

	slot := make(map[board.Layer]int, len(layers))
	for _, l := range layers {
		if _, dup := slot[l]; !dup {
			slot[l] = len(slot)
		}
	}
	byLayer := make([][]geometry.Polygon, len(slot))

	for _, fa := range areas {
		if fa.Net != net {
			continue
		}
		i, ok := slot[fa.Layer]
		if !ok {
			continue
		}
		for j, p := range fa.Polygons {
			p = p.Normalize()
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("zone %s on %s, polygon %d: %w", fa.ZoneID, fa.Layer, j, err)
			}
			byLayer[i] = append(byLayer[i], p)
		}
	}

	for _, polys := range byLayer {
		if len(polys) == 0 {
			return nil, nil
		}
	}

	found := geometry.IntersectLayers(byLayer...)
	regions := make([]Region, len(found))
	uniq := make([]board.Layer, 0, len(slot))
	for _, l := range layers {
		if slot[l] == len(uniq) {
			uniq = append(uniq, l)
		}
	}
	for i, a := range found {
		regions[i] = Region{Index: i, Net: net, Layers: uniq, Area: a}
	}
	return regions, nil
}

// DetectFor fetches the net's filled areas from the adapter and runs Detect.
func DetectFor(a board.Adapter, net string, layers []board.Layer) ([]Region, error) {
	return Detect(a.FilledAreasFor(net), net, layers)
}
