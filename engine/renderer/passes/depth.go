package passes

import (
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/systems"
)

// DepthTarget is the scene depth buffer shared by the occlusion and main
// passes. It rests in DEPTH_READ so the occlusion stage can sample it.
type DepthTarget struct {
	device  gpu.Device
	dsv     *systems.DescriptorRange
	texture gpu.Texture
}

func NewDepthTarget(device gpu.Device, sm *systems.SystemManager, width, height uint32) (*DepthTarget, error) {
	dsv, err := sm.Descriptors().Reserve("scene_dsv", gpu.HeapDepthStencil, 1)
	if err != nil {
		return nil, err
	}
	d := &DepthTarget{device: device, dsv: dsv}
	if err := d.Resize(width, height); err != nil {
		return nil, err
	}
	return d, nil
}

// Resize recreates the buffer; its view keeps the same handle.
func (d *DepthTarget) Resize(width, height uint32) error {
	d.Release()
	tex, err := d.device.CreateTexture(gpu.TextureDesc{
		Name:         "scene_depth",
		Width:        width,
		Height:       height,
		Format:       gpu.FormatR24G8Typeless,
		DepthStencil: true,
	}, gpu.StateDepthRead)
	if err != nil {
		return err
	}
	if err := d.device.CreateView(gpu.ViewDepthStencil, tex, d.dsv.CPU(0)); err != nil {
		d.device.Release(tex)
		return err
	}
	d.texture = tex
	return nil
}

func (d *DepthTarget) Texture() gpu.Texture {
	return d.texture
}

func (d *DepthTarget) View() gpu.CPUHandle {
	return d.dsv.CPU(0)
}

func (d *DepthTarget) Release() {
	if d.texture != nil {
		d.device.Release(d.texture)
		d.texture = nil
	}
}
