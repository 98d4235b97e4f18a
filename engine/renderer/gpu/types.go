package gpu

import "fmt"

// GPUAddress is a virtual address in GPU memory, as bound to root CBV/SRV slots.
type GPUAddress uint64

// CPUHandle addresses a descriptor for CPU-side writes (view creation, clears).
type CPUHandle struct {
	Ptr uint64
}

// GPUHandle addresses a descriptor as seen by shaders (descriptor tables).
type GPUHandle struct {
	Ptr uint64
}

func (h CPUHandle) Offset(index int, incrementSize uint32) CPUHandle {
	return CPUHandle{Ptr: h.Ptr + uint64(index)*uint64(incrementSize)}
}

func (h GPUHandle) Offset(index int, incrementSize uint32) GPUHandle {
	return GPUHandle{Ptr: h.Ptr + uint64(index)*uint64(incrementSize)}
}

// ConstantBufferAlignment is the hardware alignment of constant buffer views.
const ConstantBufferAlignment = 256

// ConstantBufferSize rounds byteSize up to the next multiple of 256.
func ConstantBufferSize(byteSize uint32) uint32 {
	return (byteSize + ConstantBufferAlignment - 1) &^ (ConstantBufferAlignment - 1)
}

type ResourceState uint8

const (
	StateCommon ResourceState = iota
	StatePresent
	StateGenericRead
	StateRenderTarget
	StateDepthWrite
	StateDepthRead
	StatePixelShaderResource
	StateCopySource
	StateCopyDest
)

func (s ResourceState) String() string {
	switch s {
	case StateCommon:
		return "COMMON"
	case StatePresent:
		return "PRESENT"
	case StateGenericRead:
		return "GENERIC_READ"
	case StateRenderTarget:
		return "RENDER_TARGET"
	case StateDepthWrite:
		return "DEPTH_WRITE"
	case StateDepthRead:
		return "DEPTH_READ"
	case StatePixelShaderResource:
		return "PIXEL_SHADER_RESOURCE"
	case StateCopySource:
		return "COPY_SOURCE"
	case StateCopyDest:
		return "COPY_DEST"
	}
	return fmt.Sprintf("ResourceState(%d)", uint8(s))
}

// IsWrite reports whether the GPU may write the resource in this state.
func (s ResourceState) IsWrite() bool {
	switch s {
	case StateRenderTarget, StateDepthWrite, StateCopyDest:
		return true
	}
	return false
}

// Transition declares that Resource moves from Before to After at this
// point of the command stream.
type Transition struct {
	Resource Resource
	Before   ResourceState
	After    ResourceState
}

func (t Transition) String() string {
	return fmt.Sprintf("%s: %s -> %s", t.Resource.Name(), t.Before, t.After)
}

type Format uint8

const (
	FormatUnknown Format = iota
	FormatRGBA8Unorm
	FormatRGBA16Float
	FormatR16Float
	FormatR24G8Typeless
	FormatD24UnormS8Uint
	FormatR32Uint
	FormatR16Uint
	FormatRGB32Float
)

type Dimension uint8

const (
	DimensionTexture2D Dimension = iota
	DimensionTextureCube
)

type TextureDesc struct {
	Name      string
	Width     uint32
	Height    uint32
	ArraySize uint16
	Format    Format
	Dimension Dimension
	// Usage flags.
	RenderTarget bool
	DepthStencil bool
	// Optimized clear value for render targets.
	ClearColor [4]float32
	// Optional initial contents, copied at creation.
	InitialData []byte
}

type Topology uint8

const (
	TopologyUndefined Topology = iota
	TopologyTriangleList
	TopologyTriangleStrip
	TopologyLineList
)

type VertexBufferView struct {
	Location      GPUAddress
	SizeInBytes   uint32
	StrideInBytes uint32
}

type IndexBufferView struct {
	Location    GPUAddress
	SizeInBytes uint32
	Format      Format
}

type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

type Rect struct {
	Left, Top, Right, Bottom int32
}

type ClearFlags uint8

const (
	ClearDepth ClearFlags = 1 << iota
	ClearStencil
)

type ViewKind uint8

const (
	ViewShaderResource ViewKind = iota
	ViewRenderTarget
	ViewDepthStencil
)

type DescriptorHeapKind uint8

const (
	HeapShaderResource DescriptorHeapKind = iota
	HeapRenderTarget
	HeapDepthStencil
)

type RootParameterKind uint8

const (
	RootConstantBufferView RootParameterKind = iota
	RootShaderResourceView
	RootDescriptorTable
	RootConstants
)

type RootParameter struct {
	Kind RootParameterKind
	// Shader register (b#/t#) and space.
	Register uint32
	Space    uint32
	// Descriptor count for tables, 32-bit value count for constants.
	Count uint32
}

type RootSignatureDesc struct {
	Name       string
	Parameters []RootParameter
}

type CullMode uint8

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

type DepthFunc uint8

const (
	DepthLess DepthFunc = iota
	DepthLessEqual
	DepthEqual
	DepthAlways
)

// PipelineDesc names the shaders by their compiled bytecode key; compiling
// them is outside of this package.
type PipelineDesc struct {
	Name            string
	RootSignature   RootSignature
	VertexShader    string
	PixelShader     string
	RenderTargets   []Format
	DepthFormat     Format
	Blend           bool
	DepthWrite      bool
	DepthFunc       DepthFunc
	Cull            CullMode
	DepthBias       int32
	SlopeScaledBias float32
	Topology        Topology
	NoVertexInput   bool
}
