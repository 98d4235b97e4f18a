package frame

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/headless"
)

func newPipeline(t *testing.T, d *headless.Device, stall time.Duration) *Pipeline {
	t.Helper()
	p, err := NewPipeline(d, PipelineConfig{RingDepth: 3, MaxObjects: 8, MaxMaterials: 4, StallWarning: stall})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func runFrame(t *testing.T, p *Pipeline) *Slot {
	t.Helper()
	s, err := p.BeginFrame()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.EndFrame(s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPipelineCyclesSlots(t *testing.T) {
	d := newDevice(t)
	p := newPipeline(t, d, 0)

	for i := 0; i < 7; i++ {
		s := runFrame(t, p)
		if s.Index != i%3 {
			t.Fatalf("frame %d used slot %d", i, s.Index)
		}
		if s.Fence != uint64(i+1) {
			t.Fatalf("frame %d fence = %d", i, s.Fence)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if p.CompletedFence() != p.CurrentFence() {
		t.Errorf("close left work in flight: %d < %d", p.CompletedFence(), p.CurrentFence())
	}
	if st := d.Stats(); st.Presents != 7 {
		t.Errorf("presents = %d", st.Presents)
	}
}

func TestBeginFrameWaitsForSlot(t *testing.T) {
	d := newDevice(t)
	p := newPipeline(t, d, 10*time.Millisecond)

	var mu sync.Mutex
	var stalls []bool
	p.OnStall(func(_ time.Duration, long bool) {
		mu.Lock()
		stalls = append(stalls, long)
		mu.Unlock()
	})

	d.Pause()
	for i := 0; i < 3; i++ {
		runFrame(t, p)
	}

	type result struct {
		slot *Slot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		s, err := p.BeginFrame()
		done <- result{s, err}
	}()

	select {
	case <-done:
		t.Fatal("BeginFrame returned a slot the GPU still owns")
	case <-time.After(50 * time.Millisecond):
	}

	d.Resume()
	var r result
	select {
	case r = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BeginFrame did not return after the GPU caught up")
	}
	if r.err != nil {
		t.Fatal(r.err)
	}
	if r.slot.Index != 0 {
		t.Errorf("slot = %d, want 0", r.slot.Index)
	}
	if p.CompletedFence() < 1 {
		t.Errorf("completed fence = %d while slot 0 is reused", p.CompletedFence())
	}
	if err := p.EndFrame(r.slot); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(stalls) != 1 || !stalls[0] {
		t.Errorf("stalls = %v, want one long stall", stalls)
	}
}

func TestDeviceLossTerminatesPipeline(t *testing.T) {
	d := newDevice(t)
	p := newPipeline(t, d, 0)
	runFrame(t, p)

	d.Lose("test hang")
	s, err := p.BeginFrame()
	if err == nil {
		err = p.EndFrame(s)
	}
	if !errors.Is(err, core.ErrPipelineTerminated) || !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("err = %v", err)
	}
	if _, err := p.BeginFrame(); !errors.Is(err, core.ErrPipelineTerminated) {
		t.Fatalf("BeginFrame after termination = %v", err)
	}
	if !errors.Is(p.Err(), core.ErrDeviceLost) {
		t.Errorf("Err() = %v", p.Err())
	}
}

func TestDeviceLossDuringWait(t *testing.T) {
	d := newDevice(t)
	p := newPipeline(t, d, 0)

	d.Pause()
	for i := 0; i < 3; i++ {
		runFrame(t, p)
	}
	done := make(chan error, 1)
	go func() {
		_, err := p.BeginFrame()
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	d.Lose("hung")

	select {
	case err := <-done:
		if !errors.Is(err, core.ErrDeviceLost) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released by device loss")
	}
}

func TestFrameCallOrder(t *testing.T) {
	d := newDevice(t)
	p := newPipeline(t, d, 0)

	s := runFrame(t, p)
	if err := p.EndFrame(s); !errors.Is(err, core.ErrCommandListState) {
		t.Errorf("EndFrame twice = %v", err)
	}
	if _, err := p.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.BeginFrame(); !errors.Is(err, core.ErrCommandListState) {
		t.Errorf("BeginFrame twice = %v", err)
	}
}

func TestAbortFrameKeepsPipelineUsable(t *testing.T) {
	d := newDevice(t)
	p := newPipeline(t, d, 0)

	if err := p.AbortFrame(); !errors.Is(err, core.ErrCommandListState) {
		t.Fatalf("AbortFrame without a frame = %v", err)
	}
	runFrame(t, p)
	if _, err := p.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := p.AbortFrame(); err != nil {
		t.Fatal(err)
	}
	if p.Err() != nil {
		t.Fatalf("discarding a frame terminated the pipeline: %v", p.Err())
	}

	s := runFrame(t, p)
	if s.Index != 2 || s.Fence != 2 {
		t.Errorf("frame after discard: slot %d, fence %d", s.Index, s.Fence)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if st := d.Stats(); st.Presents != 2 {
		t.Errorf("presents = %d, the discarded frame was submitted", st.Presents)
	}
}

func TestCloseWaitsWhileRecording(t *testing.T) {
	d := newDevice(t)
	p := newPipeline(t, d, 0)

	d.Pause()
	runFrame(t, p)
	runFrame(t, p)
	if _, err := p.BeginFrame(); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Close()
	}()
	select {
	case <-done:
		t.Fatal("Close returned while frames were in flight")
	case <-time.After(50 * time.Millisecond):
	}
	if _, unmaps := headless.MapCounts(p.Slot(0).Objects.Resource()); unmaps != 0 {
		t.Fatal("slot 0 unmapped while the GPU still reads it")
	}

	d.Resume()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the GPU caught up")
	}
	if p.CompletedFence() < 2 {
		t.Errorf("completed fence = %d after Close", p.CompletedFence())
	}
	for i := 0; i < p.Depth(); i++ {
		if maps, unmaps := headless.MapCounts(p.Slot(i).Objects.Resource()); maps != 1 || unmaps != 1 {
			t.Errorf("slot %d map/unmap = %d/%d", i, maps, unmaps)
		}
	}
	if st := d.Stats(); st.Submissions != 2 {
		t.Errorf("submissions = %d, the open frame was submitted", st.Submissions)
	}
}

// fenceless fails fence creation and remembers every upload buffer it hands out.
type fenceless struct {
	*headless.Device
	buffers []gpu.Buffer
}

func (d *fenceless) CreateFence(uint64) (gpu.Fence, error) {
	return nil, errors.New("out of fences")
}

func (d *fenceless) CreateUploadBuffer(name string, size uint64) (gpu.Buffer, error) {
	b, err := d.Device.CreateUploadBuffer(name, size)
	if err == nil {
		d.buffers = append(d.buffers, b)
	}
	return b, err
}

func TestNewPipelineUnmapsSlotsOnFailure(t *testing.T) {
	d := &fenceless{Device: newDevice(t)}
	if _, err := NewPipeline(d, PipelineConfig{RingDepth: 3, MaxObjects: 8, MaxMaterials: 4}); err == nil {
		t.Fatal("pipeline created without a fence")
	}
	if len(d.buffers) == 0 {
		t.Fatal("no slot was built")
	}
	for _, b := range d.buffers {
		if maps, unmaps := headless.MapCounts(b); maps != unmaps {
			t.Errorf("%s left mapped: %d/%d", b.Name(), maps, unmaps)
		}
	}
}
