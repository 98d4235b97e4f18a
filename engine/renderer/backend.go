package renderer

import (
	"fmt"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/headless"
)

type RendererType uint8

const (
	Headless RendererType = iota
	DirectX
	Vulkan
)

func ParseRendererType(s string) (RendererType, error) {
	switch s {
	case "headless":
		return Headless, nil
	case "d3d12", "directx":
		return DirectX, nil
	case "vulkan":
		return Vulkan, nil
	}
	return Headless, fmt.Errorf("%w: backend %q", core.ErrInvalidConfig, s)
}

// NewDevice opens the device named by config. Only the headless backend is
// built into this module; hardware backends plug in through gpu.Device.
func NewDevice(config *core.Config) (gpu.Device, error) {
	t, err := ParseRendererType(config.Device.Backend)
	if err != nil {
		return nil, err
	}
	switch t {
	case Headless:
		return headless.New(headless.Options{
			Width:           config.Device.Width,
			Height:          config.Device.Height,
			BackBufferCount: int(config.Device.BackBufferCount),
			Latency:         config.Latency(),
		})
	}
	return nil, fmt.Errorf("backend %q is not available in this build", config.Device.Backend)
}
