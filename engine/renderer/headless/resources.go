package headless

import (
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

type buffer struct {
	id      uint64
	name    string
	size    uint64
	address gpu.GPUAddress
	memory  []byte
	upload  bool

	mapped atomic.Int32
	maps   atomic.Int32
	unmaps atomic.Int32
}

func (b *buffer) ID() uint64                 { return b.id }
func (b *buffer) Name() string               { return b.name }
func (b *buffer) Size() uint64               { return b.size }
func (b *buffer) GPUAddress() gpu.GPUAddress { return b.address }

func (b *buffer) Map() ([]byte, error) {
	if !b.upload {
		return nil, fmt.Errorf("headless: buffer %s is not host visible", b.name)
	}
	b.mapped.Add(1)
	b.maps.Add(1)
	return b.memory, nil
}

func (b *buffer) Unmap() {
	if b.mapped.Add(-1) < 0 {
		panic(fmt.Sprintf("headless: buffer %s unmapped more often than mapped", b.name))
	}
	b.unmaps.Add(1)
}

// MapCounts reports how often a buffer created by this package was mapped
// and unmapped.
func MapCounts(b gpu.Buffer) (maps, unmaps int) {
	hb, ok := b.(*buffer)
	if !ok {
		return 0, 0
	}
	return int(hb.maps.Load()), int(hb.unmaps.Load())
}

type texture struct {
	id   uint64
	desc gpu.TextureDesc
}

func (t *texture) ID() uint64            { return t.id }
func (t *texture) Name() string          { return t.desc.Name }
func (t *texture) Desc() gpu.TextureDesc { return t.desc }

type descriptorHeap struct {
	kind     gpu.DescriptorHeapKind
	capacity int
	cpuStart gpu.CPUHandle
	gpuStart gpu.GPUHandle
}

func (h *descriptorHeap) Kind() gpu.DescriptorHeapKind { return h.kind }
func (h *descriptorHeap) Capacity() int                { return h.capacity }
func (h *descriptorHeap) IncrementSize() uint32        { return descriptorStride }
func (h *descriptorHeap) CPUStart() gpu.CPUHandle      { return h.cpuStart }
func (h *descriptorHeap) GPUStart() gpu.GPUHandle      { return h.gpuStart }

func (h *descriptorHeap) containsCPU(c gpu.CPUHandle) bool {
	end := h.cpuStart.Ptr + uint64(h.capacity)*descriptorStride
	return c.Ptr >= h.cpuStart.Ptr && c.Ptr < end && (c.Ptr-h.cpuStart.Ptr)%descriptorStride == 0
}

func (h *descriptorHeap) containsGPU(g gpu.GPUHandle) bool {
	if h.gpuStart.Ptr == 0 {
		return false
	}
	end := h.gpuStart.Ptr + uint64(h.capacity)*descriptorStride
	return g.Ptr >= h.gpuStart.Ptr && g.Ptr < end
}

type rootSignature struct {
	desc gpu.RootSignatureDesc
}

func (r *rootSignature) Name() string                { return r.desc.Name }
func (r *rootSignature) Desc() gpu.RootSignatureDesc { return r.desc }

type pipelineState struct {
	desc gpu.PipelineDesc
}

func (p *pipelineState) Name() string           { return p.desc.Name }
func (p *pipelineState) Desc() gpu.PipelineDesc { return p.desc }
