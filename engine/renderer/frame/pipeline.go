package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/triframe/engine/containers"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

type PipelineConfig struct {
	// Frames the CPU may run ahead of the GPU.
	RingDepth    uint32
	MaxObjects   uint32
	MaxMaterials uint32
	// Fence waits longer than this are reported, 0 disables the report.
	StallWarning time.Duration
}

// StallObserver is told about every BeginFrame that had to wait.
type StallObserver func(wait time.Duration, long bool)

// Pipeline owns the ring of frame slots and the fence protocol that keeps
// the CPU from touching a slot the GPU still reads. It is driven by a
// single producer goroutine and holds no locks.
type Pipeline struct {
	id        uuid.UUID
	queue     gpu.Queue
	swapchain gpu.Swapchain
	fence     gpu.Fence
	commands  gpu.CommandList
	ring      *containers.Ring[*Slot]

	current uint64
	// last value the queue accepted a signal for
	signaled     uint64
	stallWarning time.Duration
	onStall      StallObserver
	recording    bool
	err          error
}

func NewPipeline(device gpu.Device, cfg PipelineConfig) (*Pipeline, error) {
	if cfg.RingDepth == 0 {
		return nil, fmt.Errorf("%w: ring depth must be > 0", core.ErrInvalidConfig)
	}

	slots := make([]*Slot, cfg.RingDepth)
	for i := range slots {
		s, err := newSlot(device, i, cfg.MaxObjects, cfg.MaxMaterials)
		if err != nil {
			for _, prev := range slots[:i] {
				prev.Close()
			}
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		slots[i] = s
	}

	closeSlots := func() {
		for _, s := range slots {
			s.Close()
		}
	}
	fence, err := device.CreateFence(0)
	if err != nil {
		closeSlots()
		return nil, err
	}
	commands, err := device.CreateCommandList(slots[0].Allocator)
	if err != nil {
		closeSlots()
		return nil, err
	}
	// Lists start out recording; BeginFrame expects a closed one.
	if err := commands.Close(); err != nil {
		closeSlots()
		return nil, err
	}

	p := &Pipeline{
		id:           uuid.New(),
		queue:        device.Queue(),
		swapchain:    device.Swapchain(),
		fence:        fence,
		commands:     commands,
		ring:         containers.NewRing(slots),
		stallWarning: cfg.StallWarning,
	}
	core.LogDebug("frame pipeline %s: %d slots, %d objects, %d materials", p.id, cfg.RingDepth, cfg.MaxObjects, cfg.MaxMaterials)
	return p, nil
}

func (p *Pipeline) OnStall(fn StallObserver) {
	p.onStall = fn
}

// BeginFrame advances to the next slot, blocks until the GPU finished the
// slot's previous frame and opens the command list on its allocator.
func (p *Pipeline) BeginFrame() (*Slot, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.recording {
		return nil, fmt.Errorf("%w: BeginFrame without EndFrame", core.ErrCommandListState)
	}

	slot := p.ring.Advance()
	if err := p.waitFor(slot.Fence); err != nil {
		return nil, p.terminate(err)
	}
	if err := slot.Allocator.Reset(); err != nil {
		return nil, p.terminate(err)
	}
	if err := p.commands.Reset(slot.Allocator, nil); err != nil {
		return nil, p.terminate(err)
	}
	p.recording = true
	return slot, nil
}

// EndFrame submits the recorded commands, presents, and signals the next
// fence value, which becomes the slot's completion point.
func (p *Pipeline) EndFrame(slot *Slot) error {
	if p.err != nil {
		return p.err
	}
	if !p.recording {
		return fmt.Errorf("%w: EndFrame without BeginFrame", core.ErrCommandListState)
	}
	p.recording = false

	if err := p.commands.Close(); err != nil {
		return p.terminate(err)
	}
	if err := p.queue.ExecuteCommandLists(p.commands); err != nil {
		return p.terminate(err)
	}
	if err := p.swapchain.Present(); err != nil {
		return p.terminate(err)
	}

	p.current++
	slot.Fence = p.current
	if err := p.queue.Signal(p.fence, p.current); err != nil {
		return p.terminate(err)
	}
	p.signaled = p.current
	return nil
}

// AbortFrame drops what was recorded since BeginFrame. Nothing is submitted,
// the slot keeps its previous fence value and the next BeginFrame moves on.
func (p *Pipeline) AbortFrame() error {
	if p.err != nil {
		return p.err
	}
	if !p.recording {
		return fmt.Errorf("%w: AbortFrame without BeginFrame", core.ErrCommandListState)
	}
	p.recording = false
	if err := p.commands.Close(); err != nil {
		return p.terminate(err)
	}
	core.LogWarn("frame pipeline %s: frame on slot %d discarded", p.id, p.ring.Index())
	return nil
}

// Flush blocks until the GPU finished everything submitted so far.
func (p *Pipeline) Flush() error {
	if p.err != nil {
		return p.err
	}
	p.current++
	if err := p.queue.Signal(p.fence, p.current); err != nil {
		return p.terminate(err)
	}
	p.signaled = p.current
	if _, err := p.fence.WaitFor(p.current, 0); err != nil {
		return p.terminate(err)
	}
	return nil
}

func (p *Pipeline) waitFor(value uint64) error {
	if value == 0 || p.fence.CompletedValue() >= value {
		return nil
	}

	start := time.Now()
	reached, err := p.fence.WaitFor(value, p.stallWarning)
	if err != nil {
		return err
	}
	long := !reached
	if long {
		core.LogWarn("frame pipeline %s: slot %d waited %s for fence %d (completed %d), the GPU may be hung",
			p.id, p.ring.Index(), p.stallWarning, value, p.fence.CompletedValue())
		if _, err := p.fence.WaitFor(value, 0); err != nil {
			return err
		}
	}
	if p.onStall != nil {
		p.onStall(time.Since(start), long)
	}
	return nil
}

func (p *Pipeline) terminate(err error) error {
	p.err = fmt.Errorf("%w: %w", core.ErrPipelineTerminated, err)
	p.recording = false
	core.LogError("frame pipeline %s terminated: %s", p.id, err.Error())
	return p.err
}

// Err is the terminal error, nil while the pipeline is healthy.
func (p *Pipeline) Err() error {
	return p.err
}

func (p *Pipeline) ID() uuid.UUID {
	return p.id
}

// Commands is the list opened by BeginFrame.
func (p *Pipeline) Commands() gpu.CommandList {
	return p.commands
}

func (p *Pipeline) Depth() int {
	return p.ring.Len()
}

func (p *Pipeline) Slot(i int) *Slot {
	return p.ring.At(i)
}

// CurrentFence is the last value handed to the queue.
func (p *Pipeline) CurrentFence() uint64 {
	return p.current
}

func (p *Pipeline) CompletedFence() uint64 {
	return p.fence.CompletedValue()
}

// Close waits for the GPU and unmaps every slot. A frame still being
// recorded is discarded. Only a lost device skips the wait, it will never
// read the slots again.
func (p *Pipeline) Close() error {
	err := p.drain()
	p.ring.Each(func(_ int, s *Slot) {
		s.Close()
	})
	return err
}

func (p *Pipeline) drain() error {
	if p.recording {
		if err := p.AbortFrame(); err != nil && p.err == nil {
			return err
		}
	}
	if p.err == nil {
		return p.Flush()
	}
	if errors.Is(p.err, core.ErrDeviceLost) {
		return nil
	}
	if _, err := p.fence.WaitFor(p.signaled, 0); err != nil && !errors.Is(err, core.ErrDeviceLost) {
		return err
	}
	return nil
}
