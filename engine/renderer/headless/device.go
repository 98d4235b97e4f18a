// Package headless implements gpu.Device without a GPU. Command lists are
// replayed by an executor goroutine that plays the role of the hardware
// queue: it validates resource states, records draws and advances fences.
package headless

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

type Options struct {
	Width           uint32
	Height          uint32
	BackBufferCount int
	// Latency is the simulated execution time of every command list.
	Latency time.Duration
}

// Stats are the executor counters.
type Stats struct {
	Submissions uint64
	Barriers    uint64
	Draws       uint64
	Presents    uint64
	Signals     uint64
}

type Device struct {
	id   uuid.UUID
	name string
	opts Options

	nextID      atomic.Uint64
	nextAddress atomic.Uint64

	mu      sync.Mutex
	buffers []*buffer
	views   map[uint64]viewEntry
	heaps   []*descriptorHeap
	hold    chan struct{}

	queue     *queue
	swapchain *swapchain

	lost     chan struct{}
	lostOnce sync.Once
	lostErr  atomic.Value

	closeOnce sync.Once
}

type viewEntry struct {
	kind     gpu.ViewKind
	resource gpu.Resource
}

const (
	addressBase      = 0x1_0000_0000
	addressAlignment = 64 * 1024
	descriptorStride = 32
)

func New(opts Options) (*Device, error) {
	if opts.Width == 0 || opts.Height == 0 {
		return nil, fmt.Errorf("headless: invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.BackBufferCount < 2 {
		opts.BackBufferCount = 2
	}

	d := &Device{
		id:    uuid.New(),
		opts:  opts,
		views: make(map[uint64]viewEntry),
		lost:  make(chan struct{}),
	}
	d.name = fmt.Sprintf("headless-%s", d.id.String()[:8])
	d.nextAddress.Store(addressBase)

	d.queue = newQueue(d)
	go d.queue.run()

	sc, err := newSwapchain(d, opts.Width, opts.Height, opts.BackBufferCount)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.swapchain = sc

	core.LogDebug("headless device %s created (%dx%d, %d back buffers, latency %s)", d.name, opts.Width, opts.Height, opts.BackBufferCount, opts.Latency)
	return d, nil
}

func (d *Device) Name() string {
	return d.name
}

func (d *Device) ID() uuid.UUID {
	return d.id
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1)
}

func (d *Device) CreateFence(initial uint64) (gpu.Fence, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	return newFence(d, initial), nil
}

func (d *Device) CreateCommandAllocator() (gpu.CommandAllocator, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	return &allocator{id: d.newID()}, nil
}

func (d *Device) CreateCommandList(alloc gpu.CommandAllocator) (gpu.CommandList, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	a, ok := alloc.(*allocator)
	if !ok {
		return nil, fmt.Errorf("headless: foreign command allocator %T", alloc)
	}
	// Lists are created in the recording state, like D3D12.
	return &CommandList{
		device:    d,
		allocator: a,
		state:     listRecording,
	}, nil
}

func (d *Device) CreateUploadBuffer(name string, size uint64) (gpu.Buffer, error) {
	return d.createBuffer(name, size, true, nil)
}

func (d *Device) CreateBuffer(name string, data []byte) (gpu.Buffer, error) {
	return d.createBuffer(name, uint64(len(data)), false, data)
}

func (d *Device) createBuffer(name string, size uint64, upload bool, data []byte) (gpu.Buffer, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("headless: buffer %s has zero size", name)
	}
	span := (size + addressAlignment - 1) &^ (addressAlignment - 1)
	b := &buffer{
		id:      d.newID(),
		name:    name,
		size:    size,
		address: gpu.GPUAddress(d.nextAddress.Add(span) - span),
		memory:  make([]byte, size),
		upload:  upload,
	}
	copy(b.memory, data)

	d.mu.Lock()
	d.buffers = append(d.buffers, b)
	d.mu.Unlock()

	d.queue.declare(b, gpu.StateGenericRead)
	return b, nil
}

func (d *Device) CreateTexture(desc gpu.TextureDesc, initial gpu.ResourceState) (gpu.Texture, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("headless: texture %s has zero size", desc.Name)
	}
	if desc.ArraySize == 0 {
		desc.ArraySize = 1
	}
	if desc.Dimension == gpu.DimensionTextureCube && desc.ArraySize != 6 {
		return nil, fmt.Errorf("headless: cube texture %s needs 6 faces, got %d", desc.Name, desc.ArraySize)
	}
	t := &texture{id: d.newID(), desc: desc}
	d.queue.declare(t, initial)
	return t, nil
}

func (d *Device) Release(r gpu.Resource) {
	d.mu.Lock()
	for i, b := range d.buffers {
		if b.id == r.ID() {
			d.buffers = append(d.buffers[:i], d.buffers[i+1:]...)
			break
		}
	}
	d.mu.Unlock()
	d.queue.forget(r)
}

func (d *Device) CreateDescriptorHeap(kind gpu.DescriptorHeapKind, capacity int) (gpu.DescriptorHeap, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("headless: descriptor heap capacity must be > 0")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	// Every heap gets its own 4GiB window so handles never collide.
	base := uint64(len(d.heaps)+1) << 32
	h := &descriptorHeap{
		kind:     kind,
		capacity: capacity,
		cpuStart: gpu.CPUHandle{Ptr: base},
	}
	if kind == gpu.HeapShaderResource {
		h.gpuStart = gpu.GPUHandle{Ptr: base | 1<<63}
	}
	d.heaps = append(d.heaps, h)
	return h, nil
}

func (d *Device) CreateView(kind gpu.ViewKind, r gpu.Resource, dest gpu.CPUHandle) error {
	if err := d.Err(); err != nil {
		return err
	}
	if _, ok := d.heapOf(dest); !ok {
		return fmt.Errorf("headless: handle %#x is outside every descriptor heap", dest.Ptr)
	}
	d.mu.Lock()
	d.views[dest.Ptr] = viewEntry{kind: kind, resource: r}
	d.mu.Unlock()
	return nil
}

func (d *Device) heapOf(h gpu.CPUHandle) (*descriptorHeap, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, heap := range d.heaps {
		if heap.containsCPU(h) {
			return heap, true
		}
	}
	return nil, false
}

func (d *Device) view(h gpu.CPUHandle) (viewEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.views[h.Ptr]
	return v, ok
}

// resolve maps a GPU virtual address back to its buffer.
func (d *Device) resolve(addr gpu.GPUAddress) (*buffer, uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.buffers {
		if addr >= b.address && uint64(addr) < uint64(b.address)+b.size {
			return b, uint64(addr - b.address), true
		}
	}
	return nil, 0, false
}

func (d *Device) CreateRootSignature(desc gpu.RootSignatureDesc) (gpu.RootSignature, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	if len(desc.Parameters) == 0 {
		return nil, fmt.Errorf("headless: root signature %s has no parameters", desc.Name)
	}
	return &rootSignature{desc: desc}, nil
}

func (d *Device) CreatePipelineState(desc gpu.PipelineDesc) (gpu.PipelineState, error) {
	if err := d.Err(); err != nil {
		return nil, err
	}
	if desc.RootSignature == nil {
		return nil, fmt.Errorf("headless: pipeline %s has no root signature", desc.Name)
	}
	if desc.VertexShader == "" {
		return nil, fmt.Errorf("headless: pipeline %s has no vertex shader", desc.Name)
	}
	return &pipelineState{desc: desc}, nil
}

func (d *Device) Queue() gpu.Queue {
	return d.queue
}

func (d *Device) Swapchain() gpu.Swapchain {
	return d.swapchain
}

// Lose removes the device as a driver would after a hang or a fault.
// Every pending and future wait fails with core.ErrDeviceLost.
func (d *Device) Lose(reason string) {
	d.lostOnce.Do(func() {
		d.lostErr.Store(fmt.Errorf("%w: %s", core.ErrDeviceLost, reason))
		close(d.lost)
		core.LogError("device %s removed: %s", d.name, reason)
	})
}

// Err returns the removal reason, or nil while the device is healthy.
func (d *Device) Err() error {
	if v := d.lostErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Pause stops the executor before its next operation, Resume lets it go.
// Tests use it to keep work in flight.
func (d *Device) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hold == nil {
		d.hold = make(chan struct{})
	}
}

func (d *Device) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hold != nil {
		close(d.hold)
		d.hold = nil
	}
}

func (d *Device) gate() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hold
}

func (d *Device) Stats() Stats {
	return d.queue.stats()
}

// Draws returns the draws of the most recently executed command list.
func (d *Device) Draws() []DrawRecord {
	return d.queue.lastDraws()
}

// States returns a copy of the executor's view of resource states. Only
// meaningful while the queue is idle.
func (d *Device) States() *gpu.StateLedger {
	return d.queue.ledgerSnapshot()
}

func (d *Device) Close() error {
	d.closeOnce.Do(func() {
		d.Resume()
		d.queue.stop()
		core.LogDebug("headless device %s closed", d.name)
	})
	return nil
}
