package via

// DefaultSpec returns the default stitching via: 0.6 mm pad, 0.3 mm drill.
func DefaultSpec() Spec {
	return Spec{
		Diameter: 0.6,
		Drill:    0.3,
	}
}

// WithDiameter returns a copy of s with a different pad diameter.
func (s Spec) WithDiameter(d float64) Spec {
	s.Diameter = d
	return s
}

// WithDrill returns a copy of s with a different drill diameter.
func (s Spec) WithDrill(d float64) Spec {
	s.Drill = d
	return s
}
