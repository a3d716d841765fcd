package via

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"via-stitcher/pkg/geometry"

	"github.com/google/uuid"
)

// FileVersion is the current placement file format version.
const FileVersion = 1

// PlacedVia is a via entry in a placement file.
type PlacedVia struct {
	Handle   Handle           `json:"handle"`
	Position geometry.Point2D `json:"position"`
	Net      string           `json:"net"`
	Diameter float64          `json:"diameter"`
	Drill    float64          `json:"drill"`
}

// Group is a named set of vias in a placement file.
type Group struct {
	Handle GroupHandle `json:"handle"`
	Vias   []Handle    `json:"vias"`
}

// PlacementFile is a JSON record of vias created by a stitching run
// (.vias.json). It implements Creator and Refiller so a run can be committed
// to disk when no live board is attached.
type PlacementFile struct {
	Version         int         `json:"version"`
	Board           string      `json:"board,omitempty"`
	Created         time.Time   `json:"created"`
	Modified        time.Time   `json:"modified"`
	Vias            []PlacedVia `json:"vias"`
	Groups          []Group     `json:"groups,omitempty"`
	RefillRequested bool        `json:"refill_requested,omitempty"`

	mu sync.Mutex
}

// NewPlacementFile creates an empty placement record for a board.
func NewPlacementFile(boardName string) *PlacementFile {
	now := time.Now()
	return &PlacementFile{
		Version:  FileVersion,
		Board:    boardName,
		Created:  now,
		Modified: now,
		Vias:     []PlacedVia{},
	}
}

// CreateVia implements Creator with a random UUID handle.
func (f *PlacementFile) CreateVia(ctx context.Context, pos geometry.Point2D, spec Spec, net string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	h := Handle(uuid.NewString())
	f.Vias = append(f.Vias, PlacedVia{Handle: h, Position: pos, Net: net, Diameter: spec.Diameter, Drill: spec.Drill})
	return h, nil
}

// GroupVias implements Creator.
func (f *PlacementFile) GroupVias(ctx context.Context, handles []Handle) (GroupHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g := GroupHandle(uuid.NewString())
	f.Groups = append(f.Groups, Group{Handle: g, Vias: append([]Handle(nil), handles...)})
	return g, nil
}

// RefillZones implements Refiller by flagging the file; the host tool
// performs the refill when it imports the vias.
func (f *PlacementFile) RefillZones(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RefillRequested = true
	return nil
}

// Save writes the file as indented JSON.
func (f *PlacementFile) Save(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Modified = time.Now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// LoadPlacementFile reads a placement file.
func LoadPlacementFile(path string) (*PlacementFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f PlacementFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Version > FileVersion {
		return nil, fmt.Errorf("placement file version %d is newer than supported %d", f.Version, FileVersion)
	}
	return &f, nil
}
