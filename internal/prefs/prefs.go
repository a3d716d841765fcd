// Package prefs remembers the last used stitching parameters.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"via-stitcher/internal/placement"
)

const prefsFile = "preferences.json"

// Keys of the remembered parameters.
const (
	KeyViaDiameter  = "via.diameter"
	KeyViaDrill     = "via.drill"
	KeySpacingX     = "grid.spacing_x"
	KeySpacingY     = "grid.spacing_y"
	KeyStagger      = "grid.stagger"
	KeyPunchThrough = "punch_through"
	KeyRefillAfter  = "refill_after"
	KeyLastNet      = "last_net"
	KeyLastBoard    = "last_board"
)

// Prefs stores preferences as a key-value map.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]any
	path   string
}

// DefaultPath returns the preferences file under the user config directory.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "via-stitcher", prefsFile)
}

// Load reads preferences from DefaultPath.
func Load() *Prefs {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads preferences from path. A missing, unreadable or malformed
// file gives empty preferences.
func LoadFrom(path string) *Prefs {
	p := &Prefs{
		values: make(map[string]any),
		path:   path,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err == nil && values != nil {
		p.values = values
	}
	return p
}

// Path returns the file the preferences are saved to.
func (p *Prefs) Path() string { return p.path }

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	return os.WriteFile(p.path, data, 0o644)
}

// FloatWithFallback returns a float64 preference, or fallback if not set.
func (p *Prefs) FloatWithFallback(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.values[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// String returns a string preference, or "" if not set.
func (p *Prefs) String(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.values[key].(string); ok {
		return s
	}
	return ""
}

// SetString stores a string preference.
func (p *Prefs) SetString(key string, val string) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// Bool returns a bool preference, or fallback if not set.
func (p *Prefs) Bool(key string, fallback bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if b, ok := p.values[key].(bool); ok {
		return b
	}
	return fallback
}

// SetBool stores a bool preference.
func (p *Prefs) SetBool(key string, val bool) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// Apply overlays the remembered parameters on cfg. Net and layers are not
// touched.
func (p *Prefs) Apply(cfg *placement.Config) {
	cfg.Via.Diameter = p.FloatWithFallback(KeyViaDiameter, cfg.Via.Diameter)
	cfg.Via.Drill = p.FloatWithFallback(KeyViaDrill, cfg.Via.Drill)
	cfg.Grid.SpacingX = p.FloatWithFallback(KeySpacingX, cfg.Grid.SpacingX)
	cfg.Grid.SpacingY = p.FloatWithFallback(KeySpacingY, cfg.Grid.SpacingY)
	cfg.Grid.Stagger = p.Bool(KeyStagger, cfg.Grid.Stagger)
	cfg.PunchThrough = p.Bool(KeyPunchThrough, cfg.PunchThrough)
	cfg.RefillAfter = p.Bool(KeyRefillAfter, cfg.RefillAfter)
}

// Remember stores the parameters of cfg.
func (p *Prefs) Remember(cfg placement.Config) {
	p.SetFloat(KeyViaDiameter, cfg.Via.Diameter)
	p.SetFloat(KeyViaDrill, cfg.Via.Drill)
	p.SetFloat(KeySpacingX, cfg.Grid.SpacingX)
	p.SetFloat(KeySpacingY, cfg.Grid.SpacingY)
	p.SetBool(KeyStagger, cfg.Grid.Stagger)
	p.SetBool(KeyPunchThrough, cfg.PunchThrough)
	p.SetBool(KeyRefillAfter, cfg.RefillAfter)
	p.SetString(KeyLastNet, cfg.Net)
}
