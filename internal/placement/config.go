// Package placement runs via stitching: it finds the regions a net can be
// stitched in, lays a candidate grid over them, checks every candidate
// against the board rules and hands the accepted vias to a via creator.
package placement

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"via-stitcher/internal/board"
	"via-stitcher/internal/grid"
	"via-stitcher/internal/via"

	"github.com/go-playground/validator/v10"
)

// Config is the user-facing configuration of one stitching run.
type Config struct {
	Net    string        `json:"net" yaml:"net" validate:"required"`
	Layers []board.Layer `json:"layers" yaml:"layers" validate:"min=1,unique,dive,required"`
	Via    via.Spec      `json:"via" yaml:"via"`
	Grid   grid.Config   `json:"grid" yaml:"grid"`

	// PunchThrough lets vias sit on any other-net zone copper.
	PunchThrough bool `json:"punch_through" yaml:"punch_through"`
	// PunchThroughZones lets vias sit on these other-net zones only.
	PunchThroughZones []string `json:"punch_through_zones,omitempty" yaml:"punch_through_zones,omitempty" validate:"dive,required"`

	Workers     int  `json:"workers,omitempty" yaml:"workers,omitempty" validate:"gte=0"` // 0 = GOMAXPROCS
	RefillAfter bool `json:"refill_after" yaml:"refill_after"`
}

// DefaultConfig returns the defaults for a new run. Net and Layers must still
// be set.
func DefaultConfig() Config {
	return Config{
		Via: via.DefaultSpec(),
		Grid: grid.Config{
			SpacingX: 2.5,
			SpacingY: 2.5,
		},
		RefillAfter: true,
	}
}

// ConfigError reports an invalid configuration. No geometry work is done
// when a run fails with a ConfigError.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

// configValidate is the validator instance for run configurations.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// Validate checks the configuration on its own, without a board.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return &ConfigError{Field: "config", Reason: err.Error()}
	}

	finite := []struct {
		field string
		v     float64
	}{
		{"via.diameter", c.Via.Diameter},
		{"via.drill", c.Via.Drill},
		{"grid.spacing_x", c.Grid.SpacingX},
		{"grid.spacing_y", c.Grid.SpacingY},
	}
	for _, f := range finite {
		if math.IsInf(f.v, 0) {
			return &ConfigError{Field: f.field, Reason: "must be finite"}
		}
	}
	if o := c.Grid.Offset; o != nil {
		if !o.IsFinite() {
			return &ConfigError{Field: "grid.offset", Reason: "must be finite"}
		}
		if math.Abs(o.X)/c.Grid.SpacingX > grid.MaxIndex || math.Abs(o.Y)/c.Grid.SpacingY > grid.MaxIndex {
			return &ConfigError{Field: "grid.offset", Reason: "too far from the origin for the grid spacing"}
		}
	}
	return nil
}

// ValidateFor checks the configuration against a board: the net must exist
// and every layer must be in the stack.
func (c Config) ValidateFor(a board.Adapter) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !board.HasNet(a, c.Net) {
		return &ConfigError{Field: "net", Reason: fmt.Sprintf("%q does not exist on the board", c.Net)}
	}
	for _, l := range c.Layers {
		if !board.HasLayer(a, l) {
			return &ConfigError{Field: "layers", Reason: fmt.Sprintf("%q is not in the layer stack", l)}
		}
	}
	return nil
}

func fieldError(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "min":
		reason = fmt.Sprintf("needs at least %s entries", fe.Param())
	case "unique":
		reason = "must not contain duplicates"
	case "gt":
		reason = fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		reason = fmt.Sprintf("must be at least %s", fe.Param())
	case "gtfield":
		reason = fmt.Sprintf("must be greater than %s", strings.ToLower(fe.Param()))
	default:
		reason = fmt.Sprintf("failed %q check", fe.Tag())
	}
	return &ConfigError{Field: field, Reason: reason}
}
