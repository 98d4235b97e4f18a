package frame

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

type RegionKind uint8

const (
	// Each record starts on a 256 byte boundary so it can be bound as a CBV.
	RegionConstant RegionKind = iota
	// Records are tightly packed, read by shaders as a structured buffer.
	RegionStructured
)

// UploadRegion is a persistently mapped upload buffer holding Capacity
// records of type T. T must be plain data with no pointers.
type UploadRegion[T any] struct {
	name     string
	kind     RegionKind
	buffer   gpu.Buffer
	mapped   []byte
	size     uint32
	stride   uint32
	capacity uint32
}

func NewUploadRegion[T any](device gpu.Device, name string, capacity uint32, kind RegionKind) (*UploadRegion[T], error) {
	if capacity == 0 {
		return nil, fmt.Errorf("upload region %s: capacity must be > 0", name)
	}
	var zero T
	size := uint32(unsafe.Sizeof(zero))
	stride := size
	if kind == RegionConstant {
		stride = gpu.ConstantBufferSize(size)
	}

	buf, err := device.CreateUploadBuffer(name, uint64(stride)*uint64(capacity))
	if err != nil {
		return nil, fmt.Errorf("upload region %s: %w", name, err)
	}
	// Mapped once for the lifetime of the region. The CPU must not write a
	// record the GPU is still reading; the frame fences guarantee that.
	mapped, err := buf.Map()
	if err != nil {
		device.Release(buf)
		return nil, fmt.Errorf("upload region %s: %w", name, err)
	}

	return &UploadRegion[T]{
		name:     name,
		kind:     kind,
		buffer:   buf,
		mapped:   mapped,
		size:     size,
		stride:   stride,
		capacity: capacity,
	}, nil
}

// Write copies record into slot index.
func (r *UploadRegion[T]) Write(index uint32, record *T) error {
	if index >= r.capacity {
		return fmt.Errorf("%w: %s[%d], capacity %d", core.ErrRegionIndexOutOfRange, r.name, index, r.capacity)
	}
	if r.mapped == nil {
		return fmt.Errorf("upload region %s is closed", r.name)
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(record)), r.size)
	off := index * r.stride
	copy(r.mapped[off:off+r.size], src)
	return nil
}

// Read returns the record currently stored at index.
func (r *UploadRegion[T]) Read(index uint32) (T, error) {
	var out T
	if index >= r.capacity {
		return out, fmt.Errorf("%w: %s[%d], capacity %d", core.ErrRegionIndexOutOfRange, r.name, index, r.capacity)
	}
	if r.mapped == nil {
		return out, fmt.Errorf("upload region %s is closed", r.name)
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(&out)), r.size)
	off := index * r.stride
	copy(dst, r.mapped[off:off+r.size])
	return out, nil
}

// Bytes exposes the raw mapped memory of slot index, stride bytes long.
func (r *UploadRegion[T]) Bytes(index uint32) ([]byte, error) {
	if index >= r.capacity {
		return nil, fmt.Errorf("%w: %s[%d], capacity %d", core.ErrRegionIndexOutOfRange, r.name, index, r.capacity)
	}
	if r.mapped == nil {
		return nil, fmt.Errorf("upload region %s is closed", r.name)
	}
	off := index * r.stride
	return r.mapped[off : off+r.stride], nil
}

// Address is the GPU address of slot index.
func (r *UploadRegion[T]) Address(index uint32) gpu.GPUAddress {
	return r.buffer.GPUAddress() + gpu.GPUAddress(index*r.stride)
}

func (r *UploadRegion[T]) Resource() gpu.Buffer {
	return r.buffer
}

func (r *UploadRegion[T]) Stride() uint32 {
	return r.stride
}

func (r *UploadRegion[T]) RecordSize() uint32 {
	return r.size
}

func (r *UploadRegion[T]) Capacity() uint32 {
	return r.capacity
}

func (r *UploadRegion[T]) Kind() RegionKind {
	return r.kind
}

// Close unmaps the buffer. The GPU must be done with it.
func (r *UploadRegion[T]) Close() {
	if r.mapped == nil {
		return
	}
	r.buffer.Unmap()
	r.mapped = nil
}
