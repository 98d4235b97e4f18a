package headless

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

// DrawRecord is what the executor saw for one draw call.
type DrawRecord struct {
	Pipeline string
	Indexed  bool
	// Root CBVs 0 and 1 at the time of the draw.
	ObjectAddress gpu.GPUAddress
	PassAddress   gpu.GPUAddress
	IndexCount    uint32
	StartIndex    uint32
	BaseVertex    int32
	VertexCount   uint32
	RenderTargets []string
	DepthTarget   string
}

type opKind uint8

const (
	opExecute opKind = iota
	opSignal
	opPresent
	opDeclare
	opForget
	opSnapshot
)

type op struct {
	kind     opKind
	commands []Command
	alloc    *allocator
	fence    *fence
	value    uint64
	resource gpu.Resource
	state    gpu.ResourceState
	reply    chan *gpu.StateLedger
}

type queue struct {
	device  *Device
	ops     chan op
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// executor goroutine only
	ledger *gpu.StateLedger

	mu       sync.Mutex
	counters Stats
	draws    []DrawRecord
}

func newQueue(d *Device) *queue {
	return &queue{
		device:  d,
		ops:     make(chan op, 256),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		ledger:  gpu.NewStateLedger(),
	}
}

func (q *queue) send(o op) bool {
	select {
	case q.ops <- o:
		return true
	case <-q.quit:
		return false
	}
}

func (q *queue) ExecuteCommandLists(lists ...gpu.CommandList) error {
	if err := q.device.Err(); err != nil {
		return err
	}
	for _, l := range lists {
		cl, ok := l.(*CommandList)
		if !ok || cl.device != q.device {
			return fmt.Errorf("headless: command list %T does not belong to %s", l, q.device.name)
		}
		if cl.state != listClosed {
			return fmt.Errorf("%w: executing a list that is still recording", core.ErrCommandListState)
		}
		cl.allocator.pending.Add(1)
		o := op{
			kind:     opExecute,
			commands: append([]Command(nil), cl.commands...),
			alloc:    cl.allocator,
		}
		if !q.send(o) {
			cl.allocator.pending.Add(-1)
			return fmt.Errorf("headless: device %s closed", q.device.name)
		}
	}
	return nil
}

func (q *queue) Signal(f gpu.Fence, value uint64) error {
	if err := q.device.Err(); err != nil {
		return err
	}
	hf, ok := f.(*fence)
	if !ok || hf.device != q.device {
		return fmt.Errorf("headless: fence %T does not belong to %s", f, q.device.name)
	}
	if !q.send(op{kind: opSignal, fence: hf, value: value}) {
		return fmt.Errorf("headless: device %s closed", q.device.name)
	}
	return nil
}

func (q *queue) present(backBuffer gpu.Resource) error {
	if err := q.device.Err(); err != nil {
		return err
	}
	if !q.send(op{kind: opPresent, resource: backBuffer}) {
		return fmt.Errorf("headless: device %s closed", q.device.name)
	}
	return nil
}

func (q *queue) declare(r gpu.Resource, s gpu.ResourceState) {
	q.send(op{kind: opDeclare, resource: r, state: s})
}

func (q *queue) forget(r gpu.Resource) {
	q.send(op{kind: opForget, resource: r})
}

func (q *queue) ledgerSnapshot() *gpu.StateLedger {
	reply := make(chan *gpu.StateLedger, 1)
	if !q.send(op{kind: opSnapshot, reply: reply}) {
		return gpu.NewStateLedger()
	}
	select {
	case l := <-reply:
		return l
	case <-q.quit:
		return gpu.NewStateLedger()
	}
}

func (q *queue) stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counters
}

func (q *queue) lastDraws() []DrawRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DrawRecord(nil), q.draws...)
}

func (q *queue) stop() {
	q.once.Do(func() {
		close(q.quit)
		<-q.stopped
	})
}

func (q *queue) run() {
	defer close(q.stopped)
	for {
		select {
		case o := <-q.ops:
			if hold := q.device.gate(); hold != nil {
				select {
				case <-hold:
				case <-q.quit:
					return
				}
			}
			q.process(o)
		case <-q.quit:
			return
		}
	}
}

func (q *queue) process(o op) {
	switch o.kind {
	case opDeclare:
		q.ledger.Declare(o.resource, o.state)
	case opForget:
		q.ledger.Forget(o.resource)
	case opSnapshot:
		o.reply <- q.ledger.Clone()
	case opExecute:
		defer o.alloc.pending.Add(-1)
		if q.device.Err() != nil {
			return
		}
		draws, barriers, err := q.execute(o.commands)
		q.mu.Lock()
		q.counters.Submissions++
		q.counters.Barriers += barriers
		q.counters.Draws += uint64(len(draws))
		q.draws = draws
		q.mu.Unlock()
		if err != nil {
			q.device.Lose(err.Error())
			return
		}
		if latency := q.device.opts.Latency; latency > 0 {
			select {
			case <-time.After(latency):
			case <-q.quit:
			}
		}
	case opSignal:
		if q.device.Err() != nil {
			return
		}
		o.fence.signal(o.value)
		q.mu.Lock()
		q.counters.Signals++
		q.mu.Unlock()
	case opPresent:
		if q.device.Err() != nil {
			return
		}
		if err := q.ledger.Require(o.resource, gpu.StatePresent); err != nil {
			q.device.Lose(fmt.Sprintf("present: %v", err))
			return
		}
		q.mu.Lock()
		q.counters.Presents++
		q.mu.Unlock()
	}
}

type bindings struct {
	root     gpu.RootSignature
	pipeline gpu.PipelineState
	heaps    []*descriptorHeap
	cbv      map[uint32]gpu.GPUAddress
	rtvs     []gpu.Resource
	dsv      gpu.Resource
	index    *gpu.IndexBufferView
	topology gpu.Topology
}

func (q *queue) execute(commands []Command) ([]DrawRecord, uint64, error) {
	var (
		draws    []DrawRecord
		barriers uint64
		b        = bindings{cbv: make(map[uint32]gpu.GPUAddress)}
	)
	for i, c := range commands {
		if err := q.step(&b, c, &draws, &barriers); err != nil {
			return draws, barriers, fmt.Errorf("command %d (%s): %w", i, opName(c.Op), err)
		}
	}
	return draws, barriers, nil
}

func (q *queue) step(b *bindings, c Command, draws *[]DrawRecord, barriers *uint64) error {
	switch c.Op {
	case OpBarrier:
		for _, t := range c.Transitions {
			if err := q.ledger.Apply(t); err != nil {
				return err
			}
			*barriers++
		}

	case OpSetHeaps:
		b.heaps = b.heaps[:0]
		for _, h := range c.Heaps {
			hh, ok := h.(*descriptorHeap)
			if !ok || hh.kind != gpu.HeapShaderResource {
				return fmt.Errorf("only shader visible heaps can be bound")
			}
			b.heaps = append(b.heaps, hh)
		}

	case OpSetRootSignature:
		b.root = c.Root
		b.cbv = make(map[uint32]gpu.GPUAddress)

	case OpSetPipeline:
		b.pipeline = c.Pipeline

	case OpSetRootCBV, OpSetRootSRV:
		want := gpu.RootConstantBufferView
		if c.Op == OpSetRootSRV {
			want = gpu.RootShaderResourceView
		}
		if err := q.checkParam(b, c.Param, want); err != nil {
			return err
		}
		if _, _, ok := q.device.resolve(c.Address); !ok {
			return fmt.Errorf("root parameter %d: address %#x is not inside any buffer", c.Param, uint64(c.Address))
		}
		b.cbv[c.Param] = c.Address

	case OpSetRootTable:
		if err := q.checkParam(b, c.Param, gpu.RootDescriptorTable); err != nil {
			return err
		}
		found := false
		for _, h := range b.heaps {
			if h.containsGPU(c.Table) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("root parameter %d: table %#x is outside the bound heaps", c.Param, c.Table.Ptr)
		}

	case OpSetRootConstant:
		if err := q.checkParam(b, c.Param, gpu.RootConstants); err != nil {
			return err
		}

	case OpSetViewports, OpSetScissors, OpSetVertexBuffers:

	case OpClearRTV:
		r, err := q.viewResource(c.Handle, gpu.ViewRenderTarget)
		if err != nil {
			return err
		}
		return q.ledger.Require(r, gpu.StateRenderTarget)

	case OpClearDSV:
		r, err := q.viewResource(c.Handle, gpu.ViewDepthStencil)
		if err != nil {
			return err
		}
		return q.ledger.Require(r, gpu.StateDepthWrite)

	case OpSetRenderTargets:
		b.rtvs = b.rtvs[:0]
		b.dsv = nil
		for _, h := range c.RTVs {
			r, err := q.viewResource(h, gpu.ViewRenderTarget)
			if err != nil {
				return err
			}
			b.rtvs = append(b.rtvs, r)
		}
		if c.DSV != nil {
			r, err := q.viewResource(*c.DSV, gpu.ViewDepthStencil)
			if err != nil {
				return err
			}
			b.dsv = r
		}
		return q.checkTargets(b)

	case OpSetIndexBuffer:
		b.index = c.Index
		if c.Index != nil {
			if _, _, ok := q.device.resolve(c.Index.Location); !ok {
				return fmt.Errorf("index buffer address %#x is not inside any buffer", uint64(c.Index.Location))
			}
		}

	case OpSetTopology:
		b.topology = c.Topology

	case OpDrawIndexed, OpDraw:
		if b.root == nil || b.pipeline == nil {
			return fmt.Errorf("draw without root signature or pipeline state")
		}
		if b.topology == gpu.TopologyUndefined {
			return fmt.Errorf("draw without primitive topology")
		}
		if err := q.checkTargets(b); err != nil {
			return err
		}
		rec := DrawRecord{
			Pipeline:      b.pipeline.Name(),
			ObjectAddress: b.cbv[0],
			PassAddress:   b.cbv[1],
		}
		for _, r := range b.rtvs {
			rec.RenderTargets = append(rec.RenderTargets, r.Name())
		}
		if b.dsv != nil {
			rec.DepthTarget = b.dsv.Name()
		}
		if c.Op == OpDrawIndexed {
			if b.index == nil {
				return fmt.Errorf("indexed draw without index buffer")
			}
			rec.Indexed = true
			rec.IndexCount = c.Values[0]
			rec.StartIndex = c.Values[2]
			rec.BaseVertex = c.BaseVertex
		} else {
			rec.VertexCount = c.Values[0]
		}
		*draws = append(*draws, rec)

	default:
		return fmt.Errorf("unknown op %d", c.Op)
	}
	return nil
}

func (q *queue) checkParam(b *bindings, param uint32, kind gpu.RootParameterKind) error {
	if b.root == nil {
		return fmt.Errorf("root argument set before the root signature")
	}
	params := b.root.Desc().Parameters
	if int(param) >= len(params) {
		return fmt.Errorf("root parameter %d out of range for %s", param, b.root.Name())
	}
	if params[param].Kind != kind {
		return fmt.Errorf("root parameter %d of %s has kind %d, bound as %d", param, b.root.Name(), params[param].Kind, kind)
	}
	return nil
}

func (q *queue) checkTargets(b *bindings) error {
	for _, r := range b.rtvs {
		if err := q.ledger.Require(r, gpu.StateRenderTarget); err != nil {
			return err
		}
	}
	if b.dsv != nil {
		return q.ledger.Require(b.dsv, gpu.StateDepthWrite, gpu.StateDepthRead)
	}
	return nil
}

func (q *queue) viewResource(h gpu.CPUHandle, kind gpu.ViewKind) (gpu.Resource, error) {
	v, ok := q.device.view(h)
	if !ok {
		return nil, fmt.Errorf("no view at handle %#x", h.Ptr)
	}
	if v.kind != kind {
		return nil, fmt.Errorf("view at handle %#x has kind %d, want %d", h.Ptr, v.kind, kind)
	}
	return v.resource, nil
}

var opNames = [...]string{
	OpBarrier:          "ResourceBarrier",
	OpSetHeaps:         "SetDescriptorHeaps",
	OpSetRootSignature: "SetGraphicsRootSignature",
	OpSetPipeline:      "SetPipelineState",
	OpSetRootCBV:       "SetGraphicsRootConstantBufferView",
	OpSetRootSRV:       "SetGraphicsRootShaderResourceView",
	OpSetRootTable:     "SetGraphicsRootDescriptorTable",
	OpSetRootConstant:  "SetGraphicsRoot32BitConstant",
	OpSetViewports:     "SetViewports",
	OpSetScissors:      "SetScissorRects",
	OpClearRTV:         "ClearRenderTargetView",
	OpClearDSV:         "ClearDepthStencilView",
	OpSetRenderTargets: "SetRenderTargets",
	OpSetVertexBuffers: "SetVertexBuffers",
	OpSetIndexBuffer:   "SetIndexBuffer",
	OpSetTopology:      "SetPrimitiveTopology",
	OpDrawIndexed:      "DrawIndexedInstanced",
	OpDraw:             "DrawInstanced",
}

func opName(o Op) string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}
