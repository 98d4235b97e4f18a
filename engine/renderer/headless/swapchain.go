package headless

import (
	"fmt"

	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

type swapchain struct {
	device  *Device
	width   uint32
	height  uint32
	current int
	buffers []gpu.Texture
	rtvHeap gpu.DescriptorHeap
}

func newSwapchain(d *Device, width, height uint32, count int) (*swapchain, error) {
	heap, err := d.CreateDescriptorHeap(gpu.HeapRenderTarget, count)
	if err != nil {
		return nil, err
	}
	sc := &swapchain{device: d, rtvHeap: heap, buffers: make([]gpu.Texture, count)}
	if err := sc.createBuffers(width, height); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *swapchain) createBuffers(width, height uint32) error {
	for i := range sc.buffers {
		if sc.buffers[i] != nil {
			sc.device.Release(sc.buffers[i])
		}
		t, err := sc.device.CreateTexture(gpu.TextureDesc{
			Name:         fmt.Sprintf("back_buffer_%d", i),
			Width:        width,
			Height:       height,
			Format:       gpu.FormatRGBA8Unorm,
			RenderTarget: true,
		}, gpu.StatePresent)
		if err != nil {
			return err
		}
		if err := sc.device.CreateView(gpu.ViewRenderTarget, t, sc.rtvHeap.CPUStart().Offset(i, sc.rtvHeap.IncrementSize())); err != nil {
			return err
		}
		sc.buffers[i] = t
	}
	sc.width, sc.height = width, height
	sc.current = 0
	return nil
}

func (sc *swapchain) BufferCount() int {
	return len(sc.buffers)
}

func (sc *swapchain) CurrentIndex() int {
	return sc.current
}

func (sc *swapchain) CurrentBackBuffer() gpu.Texture {
	return sc.buffers[sc.current]
}

func (sc *swapchain) CurrentBackBufferView() gpu.CPUHandle {
	return sc.rtvHeap.CPUStart().Offset(sc.current, sc.rtvHeap.IncrementSize())
}

func (sc *swapchain) Format() gpu.Format {
	return gpu.FormatRGBA8Unorm
}

func (sc *swapchain) Size() (uint32, uint32) {
	return sc.width, sc.height
}

func (sc *swapchain) Present() error {
	if err := sc.device.queue.present(sc.buffers[sc.current]); err != nil {
		return err
	}
	sc.current = (sc.current + 1) % len(sc.buffers)
	return nil
}

func (sc *swapchain) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("headless: invalid swapchain size %dx%d", width, height)
	}
	return sc.createBuffers(width, height)
}
