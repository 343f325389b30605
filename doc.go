// Package vfx is a real-time video-effect graph engine for Go.
//
// # Overview
//
// vfx animates a directed graph of video nodes: effect nodes run WGSL
// fragment shaders over their inputs, image nodes feed decoded stills
// into the graph, and screen output nodes mark where finished frames
// leave the engine. An external editor owns the graph document; the
// engine reconciles against it every frame and keeps painting even
// while shaders compile, sources load, or the graph is mid-edit.
//
// # Quick Start
//
//	import "github.com/gogpu/vfx"
//
//	ctx, err := vfx.New()
//	chain, err := ctx.AddChain(1920, 1080)
//
//	drv := vfx.NewDriver(ctx)
//	drv.SetSnapshot(snapshot) // editor-owned document
//	for running {
//	    if err := drv.Frame(); err != nil {
//	        break
//	    }
//	}
//
// # Architecture
//
// The engine is organized into:
//   - Public API: Context, Driver, Snapshot, node properties
//   - graph/: node graph model and deterministic scheduler
//   - render/: GPU resource abstraction with native and software backends
//   - Internal: work (background pool), affinity (goroutine guard)
//
// Rendering happens into offscreen chains, one per output resolution.
// The engine never owns a window or swapchain: the host hands it a GPU
// device (or a gpucontext.DeviceProvider) and collects output textures
// through sinks.
//
// # Concurrency
//
// Update, Paint and Frame belong on a single scheduling goroutine.
// Shader compilation and image decoding run on a background worker
// pool and are polled without blocking, so a frame never waits on a
// compile.
package vfx

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
