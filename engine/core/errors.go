package core

import (
	"errors"
)

var (
	// Fatal device errors. Nothing recovers from these, the engine logs and exits.
	ErrDeviceLost         = errors.New("device removed or lost")
	ErrPipelineTerminated = errors.New("frame pipeline terminated")

	// Capacity violations. The single offending operation is rejected.
	ErrCapacityExceeded      = errors.New("capacity exceeded")
	ErrRegionIndexOutOfRange = errors.New("upload region index out of range")

	ErrAllocatorInUse       = errors.New("command allocator still in use by the GPU")
	ErrInvalidTransition    = errors.New("invalid resource state transition")
	ErrInvalidState         = errors.New("resource is not in the required state")
	ErrCommandListState     = errors.New("command list is in the wrong state for this call")
	ErrUnknownPipelineState = errors.New("unknown pipeline state")
	ErrUnknownMaterial      = errors.New("unknown material")
	ErrUnknownMesh          = errors.New("unknown mesh")
	ErrUnknownTexture       = errors.New("unknown texture")
	ErrDescriptorsFrozen    = errors.New("descriptor heap is frozen")
	ErrInvalidConfig        = errors.New("invalid configuration")
	ErrUnknown              = errors.New("unknown")
)
