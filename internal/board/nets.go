package board

import "sort"

// CandidateNets returns the nets that have filled copper on at least two
// layers, sorted by name. These are the nets stitching can connect.
func CandidateNets(a Adapter) []string {
	var out []string
	for _, net := range a.ListNets() {
		layers := map[Layer]bool{}
		for _, fa := range a.FilledAreasFor(net) {
			if len(fa.Polygons) > 0 {
				layers[fa.Layer] = true
			}
		}
		if len(layers) >= 2 {
			out = append(out, net)
		}
	}
	sort.Strings(out)
	return out
}

// NetLayers returns the stack layers that carry filled copper of net, in
// stack order.
func NetLayers(a Adapter, net string) []Layer {
	has := map[Layer]bool{}
	for _, fa := range a.FilledAreasFor(net) {
		if len(fa.Polygons) > 0 {
			has[fa.Layer] = true
		}
	}
	var out []Layer
	for _, l := range a.Layers() {
		if has[l] {
			out = append(out, l)
		}
	}
	return out
}

// ZoneInfo describes a filled zone for listing.
type ZoneInfo struct {
	ID     string  `json:"id"`
	Net    string  `json:"net"`
	Layers []Layer `json:"layers"`
}

// OtherNetZones lists the zones of every net except net, in net then zone
// order. Layers follow the board stack order.
func OtherNetZones(a Adapter, net string) []ZoneInfo {
	order := map[Layer]int{}
	for i, l := range a.Layers() {
		order[l] = i
	}

	var out []ZoneInfo
	for _, other := range a.ListNets() {
		if other == net {
			continue
		}
		byID := map[string]int{}
		for _, fa := range a.FilledAreasFor(other) {
			i, ok := byID[fa.ZoneID]
			if !ok {
				i = len(out)
				byID[fa.ZoneID] = i
				out = append(out, ZoneInfo{ID: fa.ZoneID, Net: other})
			}
			out[i].Layers = append(out[i].Layers, fa.Layer)
		}
	}
	for i := range out {
		layers := out[i].Layers
		sort.SliceStable(layers, func(a, b int) bool { return order[layers[a]] < order[layers[b]] })
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Net != out[j].Net {
			return out[i].Net < out[j].Net
		}
		return out[i].ID < out[j].ID
	})
	return out
}
