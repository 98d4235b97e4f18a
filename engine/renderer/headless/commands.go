package headless

import (
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

type allocator struct {
	id uint64
	// lists recorded into this allocator that the executor has not finished
	pending atomic.Int32
}

func (a *allocator) Reset() error {
	if n := a.pending.Load(); n > 0 {
		return fmt.Errorf("%w: %d list(s) pending", core.ErrAllocatorInUse, n)
	}
	return nil
}

type listState int

const (
	listRecording listState = iota
	listClosed
)

type Op uint8

const (
	OpBarrier Op = iota
	OpSetHeaps
	OpSetRootSignature
	OpSetPipeline
	OpSetRootCBV
	OpSetRootSRV
	OpSetRootTable
	OpSetRootConstant
	OpSetViewports
	OpSetScissors
	OpClearRTV
	OpClearDSV
	OpSetRenderTargets
	OpSetVertexBuffers
	OpSetIndexBuffer
	OpSetTopology
	OpDrawIndexed
	OpDraw
)

// Command is one recorded call. Only the fields relevant to Op are set.
type Command struct {
	Op          Op
	Transitions []gpu.Transition
	Heaps       []gpu.DescriptorHeap
	Root        gpu.RootSignature
	Pipeline    gpu.PipelineState
	Param       uint32
	Address     gpu.GPUAddress
	Table       gpu.GPUHandle
	Handle      gpu.CPUHandle
	RTVs        []gpu.CPUHandle
	DSV         *gpu.CPUHandle
	Vertex      []gpu.VertexBufferView
	Index       *gpu.IndexBufferView
	Topology    gpu.Topology
	Values      [5]uint32
	BaseVertex  int32
	Viewports   []gpu.Viewport
	Scissors    []gpu.Rect
}

// CommandList records calls into a slice. Nothing is validated while
// recording; the executor checks the stream when it runs it.
type CommandList struct {
	device    *Device
	allocator *allocator
	state     listState
	commands  []Command
}

func (l *CommandList) Reset(alloc gpu.CommandAllocator, initial gpu.PipelineState) error {
	if l.state != listClosed {
		return fmt.Errorf("%w: reset while recording", core.ErrCommandListState)
	}
	a, ok := alloc.(*allocator)
	if !ok {
		return fmt.Errorf("headless: foreign command allocator %T", alloc)
	}
	l.allocator = a
	l.commands = l.commands[:0]
	l.state = listRecording
	if initial != nil {
		l.SetPipelineState(initial)
	}
	return nil
}

func (l *CommandList) Close() error {
	if l.state != listRecording {
		return fmt.Errorf("%w: close while not recording", core.ErrCommandListState)
	}
	l.state = listClosed
	return nil
}

// Commands returns what has been recorded since the last Reset.
func (l *CommandList) Commands() []Command {
	return l.commands
}

func (l *CommandList) record(c Command) {
	l.commands = append(l.commands, c)
}

func (l *CommandList) ResourceBarrier(transitions ...gpu.Transition) {
	l.record(Command{Op: OpBarrier, Transitions: append([]gpu.Transition(nil), transitions...)})
}

func (l *CommandList) SetDescriptorHeaps(heaps ...gpu.DescriptorHeap) {
	l.record(Command{Op: OpSetHeaps, Heaps: append([]gpu.DescriptorHeap(nil), heaps...)})
}

func (l *CommandList) SetGraphicsRootSignature(rs gpu.RootSignature) {
	l.record(Command{Op: OpSetRootSignature, Root: rs})
}

func (l *CommandList) SetPipelineState(ps gpu.PipelineState) {
	l.record(Command{Op: OpSetPipeline, Pipeline: ps})
}

func (l *CommandList) SetGraphicsRootConstantBufferView(param uint32, address gpu.GPUAddress) {
	l.record(Command{Op: OpSetRootCBV, Param: param, Address: address})
}

func (l *CommandList) SetGraphicsRootShaderResourceView(param uint32, address gpu.GPUAddress) {
	l.record(Command{Op: OpSetRootSRV, Param: param, Address: address})
}

func (l *CommandList) SetGraphicsRootDescriptorTable(param uint32, handle gpu.GPUHandle) {
	l.record(Command{Op: OpSetRootTable, Param: param, Table: handle})
}

func (l *CommandList) SetGraphicsRoot32BitConstant(param uint32, value uint32, offset uint32) {
	l.record(Command{Op: OpSetRootConstant, Param: param, Values: [5]uint32{value, offset}})
}

func (l *CommandList) SetViewports(viewports ...gpu.Viewport) {
	l.record(Command{Op: OpSetViewports, Viewports: append([]gpu.Viewport(nil), viewports...)})
}

func (l *CommandList) SetScissorRects(rects ...gpu.Rect) {
	l.record(Command{Op: OpSetScissors, Scissors: append([]gpu.Rect(nil), rects...)})
}

func (l *CommandList) ClearRenderTargetView(rtv gpu.CPUHandle, color [4]float32) {
	l.record(Command{Op: OpClearRTV, Handle: rtv})
}

func (l *CommandList) ClearDepthStencilView(dsv gpu.CPUHandle, flags gpu.ClearFlags, depth float32, stencil uint8) {
	l.record(Command{Op: OpClearDSV, Handle: dsv, Values: [5]uint32{uint32(flags), uint32(stencil)}})
}

func (l *CommandList) SetRenderTargets(rtvs []gpu.CPUHandle, dsv *gpu.CPUHandle) {
	c := Command{Op: OpSetRenderTargets, RTVs: append([]gpu.CPUHandle(nil), rtvs...)}
	if dsv != nil {
		h := *dsv
		c.DSV = &h
	}
	l.record(c)
}

func (l *CommandList) SetVertexBuffers(views ...gpu.VertexBufferView) {
	l.record(Command{Op: OpSetVertexBuffers, Vertex: append([]gpu.VertexBufferView(nil), views...)})
}

func (l *CommandList) SetIndexBuffer(view *gpu.IndexBufferView) {
	c := Command{Op: OpSetIndexBuffer}
	if view != nil {
		v := *view
		c.Index = &v
	}
	l.record(c)
}

func (l *CommandList) SetPrimitiveTopology(topology gpu.Topology) {
	l.record(Command{Op: OpSetTopology, Topology: topology})
}

func (l *CommandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	l.record(Command{
		Op:         OpDrawIndexed,
		Values:     [5]uint32{indexCount, instanceCount, startIndex, startInstance},
		BaseVertex: baseVertex,
	})
}

func (l *CommandList) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	l.record(Command{
		Op:     OpDraw,
		Values: [5]uint32{vertexCount, instanceCount, startVertex, startInstance},
	})
}

// ReplayStates applies the barriers of a recorded stream to ledger. It is
// the recording-side counterpart of what the executor enforces.
func ReplayStates(ledger *gpu.StateLedger, commands []Command) error {
	for _, c := range commands {
		if c.Op != OpBarrier {
			continue
		}
		for _, t := range c.Transitions {
			if err := ledger.Apply(t); err != nil {
				return err
			}
		}
	}
	return nil
}
