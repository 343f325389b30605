package vfx

import (
	"fmt"
	"sync"

	"github.com/gogpu/vfx/graph"
	"github.com/gogpu/vfx/internal/affinity"
	"github.com/gogpu/vfx/render"
)

// Sink receives finished frames for one chain. Present is called after
// the frame's commands have been submitted. The texture is borrowed
// for the duration of the call; a sink that keeps it longer must
// Retain it.
type Sink interface {
	Present(chain ChainID, node graph.NodeID, tex *render.TextureRef) error
}

// Driver runs the per-frame loop against an editor-owned snapshot:
// poll the clock, pick up library changes, update the context, paint
// every chain, and hand visible outputs to sinks.
//
// SetSnapshot, Snapshot and AddSink are safe from any goroutine.
// Frame belongs on one goroutine; the first call binds it and later
// cross-goroutine calls log a warning.
type Driver struct {
	ctx      *Context
	timebase Timebase
	guard    affinity.Guard

	mu    sync.Mutex
	snap  *Snapshot
	sinks map[ChainID][]Sink
}

// NewDriver creates a frame driver for ctx. The default timebase is
// the system wall clock.
func NewDriver(ctx *Context, opts ...DriverOption) *Driver {
	var o driverOptions
	for _, opt := range opts {
		opt(&o)
	}
	tb := o.timebase
	if tb == nil {
		tb = NewSystemTimebase()
	}
	return &Driver{
		ctx:      ctx,
		timebase: tb,
		sinks:    make(map[ChainID][]Sink),
	}
}

// SetSnapshot installs the document to render. The driver reads it
// every frame and never mutates it; the editor may swap in a new one
// between frames at any time.
func (d *Driver) SetSnapshot(s *Snapshot) {
	d.mu.Lock()
	d.snap = s
	d.mu.Unlock()
}

// Snapshot returns the installed document.
func (d *Driver) Snapshot() *Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

// AddSink subscribes a sink to one chain's visible outputs.
func (d *Driver) AddSink(chain ChainID, sink Sink) {
	d.mu.Lock()
	d.sinks[chain] = append(d.sinks[chain], sink)
	d.mu.Unlock()
}

// Frame renders one frame: update from the snapshot merged with a
// fresh clock sample, then paint, submit and present every chain.
// With no snapshot installed Frame is a no-op. Sink errors are logged
// and skipped; update, paint and submit errors abort the frame.
func (d *Driver) Frame() error {
	if !d.guard.Check() {
		Logger().Warn("frame from a different goroutine; frames belong on one goroutine")
	}

	ti := d.timebase.Poll()

	// Live reload: invalidate changed library entries before updating.
	if lib, ok := d.ctx.library.(interface{ Changed() []string }); ok {
		for _, name := range lib.Changed() {
			d.ctx.InvalidateEffect(name)
		}
	}

	d.mu.Lock()
	snap := d.snap
	d.mu.Unlock()
	if snap == nil {
		return nil
	}

	// Working copy: the clock merges here, never into the document.
	working := *snap
	working.Time, working.Dt, working.Audio = ti.Time, ti.Dt, ti.Audio

	if err := d.ctx.Update(&working); err != nil {
		return err
	}

	dev := d.ctx.Device()
	for _, id := range d.ctx.Chains() {
		enc, err := dev.CreateCommandEncoder(fmt.Sprintf("chain_%d", id))
		if err != nil {
			return fmt.Errorf("chain %d: %w", id, err)
		}
		results, err := d.ctx.Paint(enc, id)
		if err != nil {
			return err
		}
		cb, err := enc.Finish()
		if err != nil {
			return fmt.Errorf("chain %d: %w", id, err)
		}
		if err := dev.Submit(cb); err != nil {
			return fmt.Errorf("chain %d: %w", id, err)
		}
		d.present(id, &working, results)
	}
	return nil
}

// present hands visible output textures to the chain's sinks.
func (d *Driver) present(id ChainID, snap *Snapshot, results map[graph.NodeID]*render.TextureRef) {
	d.mu.Lock()
	sinks := d.sinks[id]
	d.mu.Unlock()
	if len(sinks) == 0 {
		return
	}
	for _, nid := range snap.Graph.Nodes {
		props, ok := snap.NodeProps[nid].(*OutputProps)
		if !ok || !props.Visible {
			continue
		}
		tex := results[nid]
		if tex == nil {
			continue
		}
		for _, s := range sinks {
			if err := s.Present(id, nid, tex); err != nil {
				Logger().Warn("sink present failed",
					"chain", id, "node", nid, "error", err)
			}
		}
	}
}
