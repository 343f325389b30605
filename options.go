package vfx

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/vfx/render"
)

// ContextOption configures a Context during creation.
//
// Example:
//
//	// Pick the best registered backend automatically
//	ctx, err := vfx.New()
//
//	// Render on the host window's device
//	ctx, err := vfx.New(vfx.WithDeviceProvider(window))
type ContextOption func(*contextOptions)

// contextOptions holds optional configuration for Context creation.
type contextOptions struct {
	device   render.Device
	provider gpucontext.DeviceProvider
	compiler Compiler
	library  ContentSource
	workers  int
}

// WithDevice renders on an existing device. The caller keeps ownership:
// Close will not destroy it.
func WithDevice(dev render.Device) ContextOption {
	return func(o *contextOptions) {
		o.device = dev
	}
}

// WithDeviceProvider takes the GPU device from a host integration that
// implements gpucontext.DeviceProvider, typically a window context.
// Ignored when WithDevice is also given.
func WithDeviceProvider(p gpucontext.DeviceProvider) ContextOption {
	return func(o *contextOptions) {
		o.provider = p
	}
}

// WithCompiler replaces the default naga-backed shader compiler.
func WithCompiler(c Compiler) ContextOption {
	return func(o *contextOptions) {
		o.compiler = c
	}
}

// WithLibrary replaces the default content library (embedded stock
// effects only). Use NewLibrary to serve an on-disk directory with
// live reload.
func WithLibrary(lib ContentSource) ContextOption {
	return func(o *contextOptions) {
		o.library = lib
	}
}

// WithWorkers sets the number of background workers for shader
// compilation and image decoding. Values below 1 select a default
// based on the machine's core count.
func WithWorkers(n int) ContextOption {
	return func(o *contextOptions) {
		o.workers = n
	}
}

// DriverOption configures a Driver during creation.
type DriverOption func(*driverOptions)

// driverOptions holds optional configuration for Driver creation.
type driverOptions struct {
	timebase Timebase
}

// WithTimebase drives frames from a custom clock instead of the
// system wall clock.
func WithTimebase(tb Timebase) DriverOption {
	return func(o *driverOptions) {
		o.timebase = tb
	}
}
