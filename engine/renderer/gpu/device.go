package gpu

import "time"

// Resource is anything that can carry a declared GPU state.
type Resource interface {
	ID() uint64
	Name() string
}

// Buffer is linear GPU memory. Upload buffers can be mapped for CPU writes.
type Buffer interface {
	Resource
	Size() uint64
	GPUAddress() GPUAddress
	// Map returns a CPU view of the whole buffer. It stays valid until Unmap.
	Map() ([]byte, error)
	Unmap()
}

type Texture interface {
	Resource
	Desc() TextureDesc
}

// Fence is a monotonic counter advanced by the GPU queue.
type Fence interface {
	CompletedValue() uint64
	// WaitFor blocks until CompletedValue() >= value or timeout elapses.
	// A timeout <= 0 waits forever. It returns false on timeout and an
	// error when the device is lost.
	WaitFor(value uint64, timeout time.Duration) (bool, error)
}

// CommandAllocator owns the memory behind recorded commands. It can only be
// reset once the GPU finished every list recorded into it.
type CommandAllocator interface {
	Reset() error
}

type DescriptorHeap interface {
	Kind() DescriptorHeapKind
	Capacity() int
	IncrementSize() uint32
	CPUStart() CPUHandle
	// GPUStart is only meaningful for shader visible heaps.
	GPUStart() GPUHandle
}

type RootSignature interface {
	Name() string
	Desc() RootSignatureDesc
}

type PipelineState interface {
	Name() string
	Desc() PipelineDesc
}

// CommandList records GPU work. Recording calls never fail; problems surface
// from Close or when the list is executed.
type CommandList interface {
	Reset(allocator CommandAllocator, initial PipelineState) error
	Close() error

	ResourceBarrier(transitions ...Transition)

	SetDescriptorHeaps(heaps ...DescriptorHeap)
	SetGraphicsRootSignature(rs RootSignature)
	SetPipelineState(ps PipelineState)
	SetGraphicsRootConstantBufferView(param uint32, address GPUAddress)
	SetGraphicsRootShaderResourceView(param uint32, address GPUAddress)
	SetGraphicsRootDescriptorTable(param uint32, handle GPUHandle)
	SetGraphicsRoot32BitConstant(param uint32, value uint32, offset uint32)

	SetViewports(viewports ...Viewport)
	SetScissorRects(rects ...Rect)
	ClearRenderTargetView(rtv CPUHandle, color [4]float32)
	ClearDepthStencilView(dsv CPUHandle, flags ClearFlags, depth float32, stencil uint8)
	// SetRenderTargets binds color targets and an optional depth target.
	SetRenderTargets(rtvs []CPUHandle, dsv *CPUHandle)

	SetVertexBuffers(views ...VertexBufferView)
	SetIndexBuffer(view *IndexBufferView)
	SetPrimitiveTopology(topology Topology)
	DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)
	DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32)
}

type Queue interface {
	ExecuteCommandLists(lists ...CommandList) error
	// Signal sets fence to value once all previously submitted work completed.
	Signal(fence Fence, value uint64) error
}

type Swapchain interface {
	BufferCount() int
	CurrentIndex() int
	CurrentBackBuffer() Texture
	CurrentBackBufferView() CPUHandle
	Format() Format
	Size() (width, height uint32)
	// Present queues the current back buffer, which must be in StatePresent.
	Present() error
	// Resize recreates the back buffers. The queue must be idle.
	Resize(width, height uint32) error
}

type Device interface {
	Name() string

	CreateFence(initial uint64) (Fence, error)
	CreateCommandAllocator() (CommandAllocator, error)
	CreateCommandList(allocator CommandAllocator) (CommandList, error)

	// CreateUploadBuffer allocates host visible memory, declared GenericRead.
	CreateUploadBuffer(name string, size uint64) (Buffer, error)
	// CreateBuffer allocates device local memory holding data, declared GenericRead.
	CreateBuffer(name string, data []byte) (Buffer, error)
	CreateTexture(desc TextureDesc, initial ResourceState) (Texture, error)
	// Release forgets a resource. Callers must make sure the GPU is done with it.
	Release(r Resource)

	CreateDescriptorHeap(kind DescriptorHeapKind, capacity int) (DescriptorHeap, error)
	CreateView(kind ViewKind, r Resource, dest CPUHandle) error

	CreateRootSignature(desc RootSignatureDesc) (RootSignature, error)
	CreatePipelineState(desc PipelineDesc) (PipelineState, error)

	Queue() Queue
	Swapchain() Swapchain

	Close() error
}
