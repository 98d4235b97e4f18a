package headless

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	d, err := New(Options{Width: 64, Height: 32, BackBufferCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func newList(t *testing.T, d *Device) (gpu.CommandAllocator, *CommandList) {
	t.Helper()
	alloc, err := d.CreateCommandAllocator()
	if err != nil {
		t.Fatal(err)
	}
	l, err := d.CreateCommandList(alloc)
	if err != nil {
		t.Fatal(err)
	}
	return alloc, l.(*CommandList)
}

// submit holds the executor while queueing so a validation failure cannot
// race the Signal call.
func submit(t *testing.T, d *Device, l *CommandList, f gpu.Fence, value uint64) {
	t.Helper()
	d.Pause()
	defer d.Resume()
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Queue().ExecuteCommandLists(l); err != nil {
		t.Fatal(err)
	}
	if err := d.Queue().Signal(f, value); err != nil {
		t.Fatal(err)
	}
}

func TestFenceAdvancesAfterSubmission(t *testing.T) {
	d := newTestDevice(t)
	f, _ := d.CreateFence(0)
	_, l := newList(t, d)

	submit(t, d, l, f, 1)
	ok, err := f.WaitFor(1, time.Second)
	if err != nil || !ok {
		t.Fatalf("wait = %v, %v", ok, err)
	}
	if f.CompletedValue() != 1 {
		t.Errorf("completed = %d", f.CompletedValue())
	}
	if s := d.Stats(); s.Submissions != 1 || s.Signals != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestAllocatorResetWhilePending(t *testing.T) {
	d := newTestDevice(t)
	f, _ := d.CreateFence(0)
	alloc, l := newList(t, d)

	d.Pause()
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Queue().ExecuteCommandLists(l); err != nil {
		t.Fatal(err)
	}
	if err := d.Queue().Signal(f, 1); err != nil {
		t.Fatal(err)
	}
	if err := alloc.Reset(); !errors.Is(err, core.ErrAllocatorInUse) {
		t.Fatalf("reset while pending = %v", err)
	}
	if ok, _ := f.WaitFor(1, 20*time.Millisecond); ok {
		t.Fatal("fence reached while the executor is paused")
	}

	d.Resume()
	if ok, err := f.WaitFor(1, 0); !ok || err != nil {
		t.Fatalf("wait = %v, %v", ok, err)
	}
	if err := alloc.Reset(); err != nil {
		t.Fatalf("reset after completion = %v", err)
	}
	if err := l.Reset(alloc, nil); err != nil {
		t.Fatal(err)
	}
}

func TestInvalidBarrierLosesDevice(t *testing.T) {
	d := newTestDevice(t)
	f, _ := d.CreateFence(0)
	_, l := newList(t, d)

	bb := d.Swapchain().CurrentBackBuffer()
	// back buffers start in PRESENT
	l.ResourceBarrier(gpu.Transition{Resource: bb, Before: gpu.StateRenderTarget, After: gpu.StatePresent})
	submit(t, d, l, f, 1)

	_, err := f.WaitFor(1, time.Second)
	if !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("wait = %v, want ErrDeviceLost", err)
	}
	if !errors.Is(d.Err(), core.ErrDeviceLost) {
		t.Fatalf("device err = %v", d.Err())
	}
	if err := d.Queue().ExecuteCommandLists(l); !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("execute after loss = %v", err)
	}
}

func TestClearRequiresRenderTargetState(t *testing.T) {
	d := newTestDevice(t)
	f, _ := d.CreateFence(0)
	_, l := newList(t, d)

	l.ClearRenderTargetView(d.Swapchain().CurrentBackBufferView(), [4]float32{})
	submit(t, d, l, f, 1)
	if _, err := f.WaitFor(1, time.Second); !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("clear of a presentable back buffer = %v", err)
	}
}

func TestPresentRequiresPresentState(t *testing.T) {
	d := newTestDevice(t)
	f, _ := d.CreateFence(0)
	_, l := newList(t, d)
	sc := d.Swapchain()

	bb := sc.CurrentBackBuffer()
	l.ResourceBarrier(gpu.Transition{Resource: bb, Before: gpu.StatePresent, After: gpu.StateRenderTarget})
	l.ClearRenderTargetView(sc.CurrentBackBufferView(), [4]float32{})
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	d.Pause()
	if err := d.Queue().ExecuteCommandLists(l); err != nil {
		t.Fatal(err)
	}
	if err := sc.Present(); err != nil {
		t.Fatal(err)
	}
	if err := d.Queue().Signal(f, 2); err != nil {
		t.Fatal(err)
	}
	d.Resume()
	if _, err := f.WaitFor(2, time.Second); !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("present of a render target = %v", err)
	}
}

func TestDrawRecords(t *testing.T) {
	d := newTestDevice(t)
	f, _ := d.CreateFence(0)
	_, l := newList(t, d)
	sc := d.Swapchain()

	cb, _ := d.CreateUploadBuffer("objects", 1024)
	vb, _ := d.CreateBuffer("vertices", make([]byte, 96))
	ib, _ := d.CreateBuffer("indices", make([]byte, 12))
	rs, _ := d.CreateRootSignature(gpu.RootSignatureDesc{Name: "rs", Parameters: []gpu.RootParameter{
		{Kind: gpu.RootConstantBufferView, Register: 0},
		{Kind: gpu.RootConstantBufferView, Register: 1},
	}})
	ps, _ := d.CreatePipelineState(gpu.PipelineDesc{Name: "opaque", RootSignature: rs, VertexShader: "vs"})

	bb := sc.CurrentBackBuffer()
	l.ResourceBarrier(gpu.Transition{Resource: bb, Before: gpu.StatePresent, After: gpu.StateRenderTarget})
	l.SetRenderTargets([]gpu.CPUHandle{sc.CurrentBackBufferView()}, nil)
	l.SetGraphicsRootSignature(rs)
	l.SetPipelineState(ps)
	l.SetGraphicsRootConstantBufferView(1, cb.GPUAddress())
	l.SetVertexBuffers(gpu.VertexBufferView{Location: vb.GPUAddress(), SizeInBytes: 96, StrideInBytes: 32})
	l.SetIndexBuffer(&gpu.IndexBufferView{Location: ib.GPUAddress(), SizeInBytes: 12, Format: gpu.FormatR32Uint})
	l.SetPrimitiveTopology(gpu.TopologyTriangleList)
	l.SetGraphicsRootConstantBufferView(0, cb.GPUAddress()+256)
	l.DrawIndexedInstanced(3, 1, 0, 0, 0)
	l.ResourceBarrier(gpu.Transition{Resource: bb, Before: gpu.StateRenderTarget, After: gpu.StatePresent})
	submit(t, d, l, f, 1)
	if ok, err := f.WaitFor(1, time.Second); !ok || err != nil {
		t.Fatalf("wait = %v, %v", ok, err)
	}

	draws := d.Draws()
	if len(draws) != 1 {
		t.Fatalf("draws = %d", len(draws))
	}
	got := draws[0]
	if got.Pipeline != "opaque" || got.ObjectAddress != cb.GPUAddress()+256 || got.IndexCount != 3 || !got.Indexed {
		t.Errorf("draw = %+v", got)
	}
	if len(got.RenderTargets) != 1 || got.RenderTargets[0] != bb.Name() {
		t.Errorf("render targets = %v", got.RenderTargets)
	}
	if st, _ := d.States().State(bb); st != gpu.StatePresent {
		t.Errorf("back buffer ended in %s", st)
	}
}

func TestRootArgumentValidation(t *testing.T) {
	d := newTestDevice(t)
	f, _ := d.CreateFence(0)
	_, l := newList(t, d)

	cb, _ := d.CreateUploadBuffer("objects", 256)
	rs, _ := d.CreateRootSignature(gpu.RootSignatureDesc{Name: "rs", Parameters: []gpu.RootParameter{
		{Kind: gpu.RootConstantBufferView},
	}})
	l.SetGraphicsRootSignature(rs)
	// one past the end of the buffer
	l.SetGraphicsRootConstantBufferView(0, cb.GPUAddress()+256)
	submit(t, d, l, f, 1)
	if _, err := f.WaitFor(1, time.Second); !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("out of bounds CBV = %v", err)
	}
}

func TestLoseWakesWaiters(t *testing.T) {
	d := newTestDevice(t)
	f, _ := d.CreateFence(0)

	errc := make(chan error, 1)
	go func() {
		_, err := f.WaitFor(5, 0)
		errc <- err
	}()
	d.Lose("test hang")
	select {
	case err := <-errc:
		if !errors.Is(err, core.ErrDeviceLost) {
			t.Fatalf("wait = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by device loss")
	}
}

func TestUploadBufferMapping(t *testing.T) {
	d := newTestDevice(t)
	b, _ := d.CreateUploadBuffer("upload", 16)
	mem, err := b.Map()
	if err != nil || len(mem) != 16 {
		t.Fatalf("map = %d bytes, %v", len(mem), err)
	}
	b.Unmap()
	if maps, unmaps := MapCounts(b); maps != 1 || unmaps != 1 {
		t.Errorf("map counts = %d/%d", maps, unmaps)
	}

	dl, _ := d.CreateBuffer("device_local", []byte{1, 2, 3})
	if _, err := dl.Map(); err == nil {
		t.Fatal("device local buffer mapped")
	}
}
