package vfx

import (
	"testing"

	"github.com/gogpu/vfx/render"
	"github.com/gogpu/vfx/render/software"
)

func TestWithDeviceCallerKeepsOwnership(t *testing.T) {
	dev := software.New()
	tex, err := dev.CreateTexture(&render.TextureDescriptor{
		Label: "host", Width: 2, Height: 2, Format: render.PixelFormat,
	})
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}

	ctx, err := New(WithDevice(dev), WithCompiler(&stubCompiler{}), WithLibrary(newStubLibrary()))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	ctx.Close()

	// Closing the context must not destroy a device it does not own;
	// the host's texture survives.
	if _, err := dev.ReadTexture(tex); err != nil {
		t.Errorf("host texture destroyed by Close: %v", err)
	}
}

func TestOwnedDeviceDestroyedOnClose(t *testing.T) {
	ctx, err := New(WithCompiler(&stubCompiler{}), WithLibrary(newStubLibrary()))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	dev, ok := ctx.Device().(*software.Device)
	if !ok {
		t.Fatalf("default device is %T, want the software backend", ctx.Device())
	}

	tex, err := dev.CreateTexture(&render.TextureDescriptor{
		Label: "probe", Width: 2, Height: 2, Format: render.PixelFormat,
	})
	if err != nil {
		t.Fatalf("CreateTexture() = %v", err)
	}
	ctx.Close()
	if _, err := dev.ReadTexture(tex); err == nil {
		t.Error("owned device survived Close")
	}
}

func TestWithWorkers(t *testing.T) {
	rig := newTestRig(t, WithWorkers(3))
	if got := rig.ctx.pool.Workers(); got != 3 {
		t.Errorf("pool workers = %d, want 3", got)
	}
}

func TestWithWorkersDefault(t *testing.T) {
	rig := newTestRig(t)
	if got := rig.ctx.pool.Workers(); got < 1 {
		t.Errorf("default pool workers = %d, want at least 1", got)
	}
}
