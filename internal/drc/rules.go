package drc

import (
	"via-stitcher/pkg/geometry"
)

// Rule is one clearance check. Check returns the violated reason and true,
// or false when p passes. Rules must be safe for concurrent use.
type Rule interface {
	Check(c *Context, p geometry.Point2D) (Reason, bool)
}

// RuleFunc adapts a function to a Rule.
type RuleFunc func(c *Context, p geometry.Point2D) (Reason, bool)

// Check implements Rule.
func (f RuleFunc) Check(c *Context, p geometry.Point2D) (Reason, bool) { return f(c, p) }

// BuiltinRules returns the board rules in check order: board edge, other-net
// zones, tracks and pads, then hole-to-hole.
func BuiltinRules() []Rule {
	return []Rule{
		RuleFunc(checkEdge),
		RuleFunc(checkZones),
		RuleFunc(checkTracks),
		RuleFunc(checkPads),
		RuleFunc(checkHoles),
	}
}

// checkEdge requires the via centre inside the board and the pad edge at
// least EdgeClearance from every outline and cutout edge. Boards without an
// outline pass.
func checkEdge(c *Context, p geometry.Point2D) (Reason, bool) {
	if c.outline == nil {
		return "", false
	}
	inside := false
	for _, a := range c.outlineAreas {
		if a.Contains(p) {
			inside = true
			break
		}
	}
	if !inside || c.outlineEdges.tooClose(p, c.opts.Via.Radius()) {
		return EdgeClearance, true
	}
	return "", false
}

func checkZones(c *Context, p geometry.Point2D) (Reason, bool) {
	if len(c.zones) == 0 {
		return "", false
	}
	inside := c.zoneIndex.Any(geometry.NewRect(p.X, p.Y, 0, 0), func(id int) bool {
		return c.zones[id].Polygon.Contains(p)
	})
	if inside || c.zoneEdges.tooClose(p, c.opts.Via.Radius()) {
		return OtherNetCopper, true
	}
	return "", false
}

func checkTracks(c *Context, p geometry.Point2D) (Reason, bool) {
	r := c.opts.Via.Radius()
	hit := c.trackIndex.Any(square(p, r), func(id int) bool {
		t := c.tracks[id]
		gap := t.Segment().DistanceToPoint(p) - t.Width/2 - r
		return gap < c.clearance(t.Clearance)-geometry.Epsilon
	})
	if hit {
		return OtherNetTrace, true
	}
	return "", false
}

func checkPads(c *Context, p geometry.Point2D) (Reason, bool) {
	r := c.opts.Via.Radius()
	hit := c.padIndex.Any(square(p, r), func(id int) bool {
		pad := c.pads[id]
		return pad.DistanceToPoint(p)-r < c.clearance(pad.Clearance)-geometry.Epsilon
	})
	if hit {
		return OtherNetPad, true
	}
	return "", false
}

// checkHoles measures drill edge to drill edge against every existing hole
// regardless of net.
func checkHoles(c *Context, p geometry.Point2D) (Reason, bool) {
	dr := c.opts.Via.DrillRadius()
	hit := c.holeIndex.Any(square(p, dr), func(id int) bool {
		h := c.holes[id]
		gap := h.Position.Distance(p) - h.Radius - dr
		return gap < c.rules.HoleToHole-geometry.Epsilon
	})
	if hit {
		return HoleToHole, true
	}
	return "", false
}

func square(p geometry.Point2D, r float64) geometry.Rect {
	return geometry.NewRect(p.X-r, p.Y-r, 2*r, 2*r)
}
