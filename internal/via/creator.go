package via

import (
	"context"
	"fmt"
	"sync"

	"via-stitcher/internal/board"
	"via-stitcher/pkg/geometry"
)

// Creator creates vias in the host board and groups them.
type Creator interface {
	CreateVia(ctx context.Context, pos geometry.Point2D, spec Spec, net string) (Handle, error)
	GroupVias(ctx context.Context, handles []Handle) (GroupHandle, error)
}

// Refiller refills copper zones after vias have been added.
type Refiller interface {
	RefillZones(ctx context.Context) error
}

// Created is one via handed to a Creator.
type Created struct {
	Handle   Handle
	Position geometry.Point2D
	Spec     Spec
	Net      string
}

// Recorder is an in-memory Creator and Refiller. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	vias    []Created
	groups  [][]Handle
	refills int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// CreateVia records the via and returns a sequential handle.
func (r *Recorder) CreateVia(ctx context.Context, pos geometry.Point2D, spec Spec, net string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	h := Handle(fmt.Sprintf("via-%03d", len(r.vias)+1))
	r.vias = append(r.vias, Created{Handle: h, Position: pos, Spec: spec, Net: net})
	return h, nil
}

// GroupVias records the group.
func (r *Recorder) GroupVias(ctx context.Context, handles []Handle) (GroupHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, append([]Handle(nil), handles...))
	return GroupHandle(fmt.Sprintf("group-%03d", len(r.groups))), nil
}

// RefillZones counts the call.
func (r *Recorder) RefillZones(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refills++
	return nil
}

// Vias returns the created vias in creation order.
func (r *Recorder) Vias() []Created {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Created(nil), r.vias...)
}

// Groups returns the recorded groups.
func (r *Recorder) Groups() [][]Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Handle(nil), r.groups...)
}

// Refills returns how many times RefillZones was called.
func (r *Recorder) Refills() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refills
}

// BoardCreator adds created vias to a board snapshot so that a later run, or
// a saved board file, sees them as existing vias.
type BoardCreator struct {
	Board *board.Snapshot

	mu     sync.Mutex
	groups map[GroupHandle][]Handle
}

// NewBoardCreator wraps a snapshot.
func NewBoardCreator(b *board.Snapshot) *BoardCreator {
	return &BoardCreator{Board: b, groups: make(map[GroupHandle][]Handle)}
}

// CreateVia implements Creator.
func (c *BoardCreator) CreateVia(ctx context.Context, pos geometry.Point2D, spec Spec, net string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Handle(c.Board.AddVia(pos, spec.Diameter, spec.Drill, net)), nil
}

// GroupVias implements Creator. Groups are kept in memory only; the board
// file format has no group records.
func (c *BoardCreator) GroupVias(ctx context.Context, handles []Handle) (GroupHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	g := GroupHandle(fmt.Sprintf("group-%d", len(c.groups)+1))
	c.groups[g] = append([]Handle(nil), handles...)
	return g, nil
}

// Group returns the members of a group.
func (c *BoardCreator) Group(g GroupHandle) []Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groups[g]
}
