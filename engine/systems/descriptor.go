package systems

import (
	"fmt"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

type DescriptorSystemConfig struct {
	ShaderResourceCount int
	RenderTargetCount   int
	DepthStencilCount   int
}

// DescriptorRange is a contiguous block of descriptors reserved under a
// name. Its handles never move once reserved.
type DescriptorRange struct {
	Name   string
	Kind   gpu.DescriptorHeapKind
	Offset int
	Count  int
	heap   gpu.DescriptorHeap
}

func (r *DescriptorRange) CPU(i int) gpu.CPUHandle {
	return r.heap.CPUStart().Offset(r.Offset+i, r.heap.IncrementSize())
}

// GPU is only valid for shader visible ranges.
func (r *DescriptorRange) GPU(i int) gpu.GPUHandle {
	return r.heap.GPUStart().Offset(r.Offset+i, r.heap.IncrementSize())
}

// DescriptorSystem hands out append-only descriptor ranges during setup.
// After Freeze no new range can be reserved; views inside existing ranges
// may still be rewritten, e.g. when targets are recreated on resize.
type DescriptorSystem struct {
	Config *DescriptorSystemConfig
	heaps  map[gpu.DescriptorHeapKind]gpu.DescriptorHeap
	used   map[gpu.DescriptorHeapKind]int
	ranges map[string]*DescriptorRange
	frozen bool
}

func NewDescriptorSystem(config *DescriptorSystemConfig, device gpu.Device) (*DescriptorSystem, error) {
	if config.ShaderResourceCount <= 0 {
		err := fmt.Errorf("func NewDescriptorSystem - config.ShaderResourceCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	ds := &DescriptorSystem{
		Config: config,
		heaps:  make(map[gpu.DescriptorHeapKind]gpu.DescriptorHeap),
		used:   make(map[gpu.DescriptorHeapKind]int),
		ranges: make(map[string]*DescriptorRange),
	}
	sizes := map[gpu.DescriptorHeapKind]int{
		gpu.HeapShaderResource: config.ShaderResourceCount,
		gpu.HeapRenderTarget:   config.RenderTargetCount,
		gpu.HeapDepthStencil:   config.DepthStencilCount,
	}
	for kind, n := range sizes {
		if n <= 0 {
			continue
		}
		h, err := device.CreateDescriptorHeap(kind, n)
		if err != nil {
			return nil, err
		}
		ds.heaps[kind] = h
	}
	return ds, nil
}

// Reserve appends a range of count descriptors to the heap of kind.
func (ds *DescriptorSystem) Reserve(name string, kind gpu.DescriptorHeapKind, count int) (*DescriptorRange, error) {
	if ds.frozen {
		return nil, fmt.Errorf("%w: cannot reserve '%s'", core.ErrDescriptorsFrozen, name)
	}
	if _, ok := ds.ranges[name]; ok {
		return nil, fmt.Errorf("descriptor range '%s' already reserved", name)
	}
	heap, ok := ds.heaps[kind]
	if !ok {
		return nil, fmt.Errorf("no descriptor heap of kind %d", kind)
	}
	if ds.used[kind]+count > heap.Capacity() {
		err := fmt.Errorf("%w: descriptor range '%s' needs %d, %d of %d used", core.ErrCapacityExceeded, name, count, ds.used[kind], heap.Capacity())
		core.LogWarn(err.Error())
		return nil, err
	}
	r := &DescriptorRange{Name: name, Kind: kind, Offset: ds.used[kind], Count: count, heap: heap}
	ds.used[kind] += count
	ds.ranges[name] = r
	return r, nil
}

func (ds *DescriptorSystem) Range(name string) (*DescriptorRange, bool) {
	r, ok := ds.ranges[name]
	return r, ok
}

func (ds *DescriptorSystem) Heap(kind gpu.DescriptorHeapKind) gpu.DescriptorHeap {
	return ds.heaps[kind]
}

// Freeze ends the setup phase.
func (ds *DescriptorSystem) Freeze() {
	ds.frozen = true
}

func (ds *DescriptorSystem) Frozen() bool {
	return ds.frozen
}

func (ds *DescriptorSystem) Shutdown() error {
	ds.ranges = make(map[string]*DescriptorRange)
	ds.used = make(map[gpu.DescriptorHeapKind]int)
	return nil
}
