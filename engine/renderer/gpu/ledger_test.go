package gpu

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/triframe/engine/core"
)

type fakeResource struct {
	id   uint64
	name string
}

func (f *fakeResource) ID() uint64   { return f.id }
func (f *fakeResource) Name() string { return f.name }

func TestStateLedgerApply(t *testing.T) {
	shadow := &fakeResource{1, "shadow_map"}
	l := NewStateLedger()
	l.Declare(shadow, StateGenericRead)
	before := l.Clone()

	if err := l.Apply(Transition{shadow, StateGenericRead, StateDepthWrite}); err != nil {
		t.Fatal(err)
	}
	if err := l.Require(shadow, StateDepthWrite); err != nil {
		t.Fatal(err)
	}
	if d := before.Diff(l); len(d) != 1 {
		t.Fatalf("diff = %v", d)
	}

	// stale Before
	err := l.Apply(Transition{shadow, StateGenericRead, StateDepthWrite})
	if !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
	if err := l.Apply(Transition{shadow, StateDepthWrite, StateGenericRead}); err != nil {
		t.Fatal(err)
	}
	if d := before.Diff(l); len(d) != 0 {
		t.Fatalf("round trip left a diff: %v", d)
	}

	if err := l.Require(shadow, StateRenderTarget, StateDepthWrite); !errors.Is(err, core.ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
	if err := l.Apply(Transition{&fakeResource{2, "ghost"}, StateCommon, StateRenderTarget}); !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("untracked resource accepted: %v", err)
	}
}

func TestConstantBufferSize(t *testing.T) {
	cases := map[uint32]uint32{0: 0, 1: 256, 144: 256, 256: 256, 257: 512, 1000: 1024}
	for in, want := range cases {
		if got := ConstantBufferSize(in); got != want {
			t.Errorf("ConstantBufferSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestStateIsWrite(t *testing.T) {
	for _, s := range []ResourceState{StateRenderTarget, StateDepthWrite, StateCopyDest} {
		if !s.IsWrite() {
			t.Errorf("%s should be a write state", s)
		}
	}
	for _, s := range []ResourceState{StatePresent, StateGenericRead, StateDepthRead, StatePixelShaderResource} {
		if s.IsWrite() {
			t.Errorf("%s should be a read state", s)
		}
	}
}
