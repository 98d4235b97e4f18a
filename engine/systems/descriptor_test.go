package systems

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

func TestDescriptorRanges(t *testing.T) {
	d := newDevice(t)
	ds, err := NewDescriptorSystem(&DescriptorSystemConfig{ShaderResourceCount: 8, RenderTargetCount: 2}, d)
	if err != nil {
		t.Fatal(err)
	}

	a, err := ds.Reserve("a", gpu.HeapShaderResource, 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ds.Reserve("b", gpu.HeapShaderResource, 3)
	if err != nil {
		t.Fatal(err)
	}
	if b.Offset != 5 {
		t.Errorf("b offset = %d", b.Offset)
	}
	if a.CPU(5) != b.CPU(0) || a.GPU(5) != b.GPU(0) {
		t.Error("ranges are not contiguous")
	}
	if _, err := ds.Reserve("c", gpu.HeapShaderResource, 1); !errors.Is(err, core.ErrCapacityExceeded) {
		t.Errorf("overflow = %v", err)
	}
	if _, err := ds.Reserve("a", gpu.HeapRenderTarget, 1); err == nil {
		t.Error("duplicate name accepted")
	}
	if _, err := ds.Reserve("dsv", gpu.HeapDepthStencil, 1); err == nil {
		t.Error("reserved from a heap that does not exist")
	}

	ds.Freeze()
	if _, err := ds.Reserve("late", gpu.HeapRenderTarget, 1); !errors.Is(err, core.ErrDescriptorsFrozen) {
		t.Errorf("reserve after freeze = %v", err)
	}
	if r, ok := ds.Range("b"); !ok || r != b {
		t.Error("range lookup failed")
	}
}

func TestTextureTable(t *testing.T) {
	_, sm := newManager(t)
	ts := sm.Textures()

	if idx, err := ts.Index(""); err != nil || idx != 0 {
		t.Fatalf("default index = %d, %v", idx, err)
	}
	cube, err := ts.Create(gpu.TextureDesc{Name: "sky", Width: 8, Height: 8, ArraySize: 6, Dimension: gpu.DimensionTextureCube})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Index(cube.Name); err == nil {
		t.Error("cube map got a texture table slot")
	}
	for i := 1; i < 4; i++ {
		tex, err := ts.Create(gpu.TextureDesc{Name: string(rune('a' + i)), Width: 1, Height: 1})
		if err != nil {
			t.Fatal(err)
		}
		if tex.Index != uint32(i) {
			t.Errorf("texture %d got index %d", i, tex.Index)
		}
	}
	if _, err := ts.Create(gpu.TextureDesc{Name: "overflow", Width: 1, Height: 1}); !errors.Is(err, core.ErrCapacityExceeded) {
		t.Errorf("overflow = %v", err)
	}
	if _, err := ts.Get("missing"); !errors.Is(err, core.ErrUnknownTexture) {
		t.Errorf("missing = %v", err)
	}
}
