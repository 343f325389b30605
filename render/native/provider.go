package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/vfx/render"
)

// FromProvider extracts the HAL device and queue from a gpucontext
// device provider and wraps them in a Device.
//
// The provider must expose HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue, as gogpu's shared-context providers do.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	hp, ok := provider.(interface {
		HalDevice() any
		HalQueue() any
	})
	if !ok {
		return nil, fmt.Errorf("native: provider %T does not expose HAL handles", provider)
	}

	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("native: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("native: provider HalQueue is not hal.Queue")
	}

	return NewDevice(device, queue), nil
}

var (
	providerMu      sync.RWMutex
	defaultProvider gpucontext.DeviceProvider
)

// SetDefaultProvider installs the provider the registry factory uses
// when the native backend is selected. Pass nil to clear it; the
// backend then reports itself unavailable.
func SetDefaultProvider(p gpucontext.DeviceProvider) {
	providerMu.Lock()
	defaultProvider = p
	providerMu.Unlock()
}

func currentProvider() gpucontext.DeviceProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider
}

func init() {
	render.Register(Name, 100, func() bool {
		return currentProvider() != nil
	}, func() (render.Device, error) {
		p := currentProvider()
		if p == nil {
			return nil, fmt.Errorf("native: no device provider set")
		}
		return FromProvider(p)
	})
}
