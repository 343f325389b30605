package native

import (
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/vfx/render"
)

// nullProvider satisfies gpucontext.DeviceProvider without exposing
// HAL handles.
type nullProvider struct{}

func (nullProvider) Device() gpucontext.Device   { return nil }
func (nullProvider) Queue() gpucontext.Queue     { return nil }
func (nullProvider) Adapter() gpucontext.Adapter { return nil }
func (nullProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// badHALProvider exposes HAL accessors with the wrong dynamic types.
type badHALProvider struct {
	nullProvider
}

func (badHALProvider) HalDevice() any { return "not a device" }
func (badHALProvider) HalQueue() any  { return "not a queue" }

func TestFromProviderWithoutHALHandles(t *testing.T) {
	_, err := FromProvider(nullProvider{})
	if err == nil {
		t.Fatal("FromProvider should fail for a provider without HAL accessors")
	}
	if !strings.Contains(err.Error(), "HAL") {
		t.Errorf("error = %v, want mention of HAL handles", err)
	}
}

func TestFromProviderWithWrongHALTypes(t *testing.T) {
	_, err := FromProvider(badHALProvider{})
	if err == nil {
		t.Fatal("FromProvider should fail for non-hal handle types")
	}
	if !strings.Contains(err.Error(), "hal.Device") {
		t.Errorf("error = %v, want mention of hal.Device", err)
	}
}

func TestRegistryAvailabilityTracksProvider(t *testing.T) {
	defer SetDefaultProvider(nil)

	SetDefaultProvider(nil)
	for _, name := range render.Available() {
		if name == Name {
			t.Fatal("native backend available without a provider")
		}
	}

	SetDefaultProvider(nullProvider{})
	found := false
	for _, name := range render.Available() {
		if name == Name {
			found = true
		}
	}
	if !found {
		t.Fatal("native backend not available after SetDefaultProvider")
	}

	// Construction still fails because this provider has no HAL handles.
	if _, err := render.NewDevice(Name); err == nil {
		t.Error("NewDevice should fail when the provider lacks HAL handles")
	}
}
