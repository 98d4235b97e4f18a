package frame

import (
	"fmt"

	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
)

// Pass constant indices inside Slot.Passes.
const (
	PassMain uint32 = iota
	PassShadow
	PassCount
)

// Slot is everything the CPU writes for one frame in flight. The GPU
// buffers are allocated once and only their contents change.
type Slot struct {
	Index int
	// Reset only once the GPU finished the slot's previous frame.
	Allocator gpu.CommandAllocator
	Objects   *UploadRegion[metadata.ObjectConstants]
	Passes    *UploadRegion[metadata.PassConstants]
	Materials *UploadRegion[metadata.MaterialData]
	Occlusion *UploadRegion[metadata.OcclusionConstants]
	// Fence value signaled after this slot's last submission, 0 if never submitted.
	Fence uint64
}

func newSlot(device gpu.Device, index int, maxObjects, maxMaterials uint32) (*Slot, error) {
	alloc, err := device.CreateCommandAllocator()
	if err != nil {
		return nil, err
	}
	s := &Slot{Index: index, Allocator: alloc}

	if s.Objects, err = NewUploadRegion[metadata.ObjectConstants](device, fmt.Sprintf("slot%d_objects", index), maxObjects, RegionConstant); err != nil {
		s.Close()
		return nil, err
	}
	if s.Passes, err = NewUploadRegion[metadata.PassConstants](device, fmt.Sprintf("slot%d_passes", index), PassCount, RegionConstant); err != nil {
		s.Close()
		return nil, err
	}
	if s.Materials, err = NewUploadRegion[metadata.MaterialData](device, fmt.Sprintf("slot%d_materials", index), maxMaterials, RegionStructured); err != nil {
		s.Close()
		return nil, err
	}
	if s.Occlusion, err = NewUploadRegion[metadata.OcclusionConstants](device, fmt.Sprintf("slot%d_occlusion", index), 1, RegionConstant); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close unmaps every region of the slot.
func (s *Slot) Close() {
	if s.Objects != nil {
		s.Objects.Close()
	}
	if s.Passes != nil {
		s.Passes.Close()
	}
	if s.Materials != nil {
		s.Materials.Close()
	}
	if s.Occlusion != nil {
		s.Occlusion.Close()
	}
}
