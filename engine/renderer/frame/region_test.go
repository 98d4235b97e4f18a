package frame

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/headless"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
)

func TestRegionStride(t *testing.T) {
	d := newDevice(t)

	objects, err := NewUploadRegion[metadata.ObjectConstants](d, "objects", 4, RegionConstant)
	if err != nil {
		t.Fatal(err)
	}
	if objects.Stride() != 256 {
		t.Errorf("constant stride = %d, want 256", objects.Stride())
	}
	if objects.Resource().Size() != 4*256 {
		t.Errorf("buffer size = %d", objects.Resource().Size())
	}

	materials, err := NewUploadRegion[metadata.MaterialData](d, "materials", 4, RegionStructured)
	if err != nil {
		t.Fatal(err)
	}
	want := uint32(unsafe.Sizeof(metadata.MaterialData{}))
	if materials.Stride() != want || materials.RecordSize() != want {
		t.Errorf("structured stride = %d, want %d", materials.Stride(), want)
	}
	if got := materials.Address(2) - materials.Address(1); uint32(got) != want {
		t.Errorf("address step = %d", got)
	}
}

func TestRegionWriteBounds(t *testing.T) {
	d := newDevice(t)
	r, err := NewUploadRegion[metadata.ObjectConstants](d, "objects", 3, RegionConstant)
	if err != nil {
		t.Fatal(err)
	}

	rec := metadata.ObjectConstants{World: mgl32.Translate3D(1, 2, 3), MaterialIndex: 7}
	if err := r.Write(2, &rec); err != nil {
		t.Fatalf("write at capacity-1 = %v", err)
	}
	if err := r.Write(3, &rec); !errors.Is(err, core.ErrRegionIndexOutOfRange) {
		t.Fatalf("write at capacity = %v", err)
	}

	got, err := r.Read(2)
	if err != nil {
		t.Fatal(err)
	}
	if got.MaterialIndex != 7 || got.World != rec.World {
		t.Errorf("read back %+v", got)
	}

	// the bytes behind slot 2 are the record, the padding stays zero
	raw, err := r.Bytes(2)
	if err != nil {
		t.Fatal(err)
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&rec)), r.RecordSize())
	if !bytes.Equal(raw[:r.RecordSize()], src) {
		t.Error("mapped bytes differ from the record")
	}
	for _, b := range raw[r.RecordSize():] {
		if b != 0 {
			t.Fatal("padding was written")
		}
	}
	// neighbours untouched
	if n, _ := r.Read(1); n.MaterialIndex != 0 {
		t.Error("slot 1 was written")
	}
	if _, err := r.Bytes(3); !errors.Is(err, core.ErrRegionIndexOutOfRange) {
		t.Fatalf("bytes at capacity = %v", err)
	}
	r.Close()
	if _, err := r.Bytes(0); err == nil {
		t.Error("bytes after close succeeded")
	}
}

func TestRegionMapsOnce(t *testing.T) {
	d := newDevice(t)
	r, err := NewUploadRegion[metadata.PassConstants](d, "passes", 2, RegionConstant)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		p := metadata.PassConstants{TotalTime: float32(i)}
		if err := r.Write(uint32(i%2), &p); err != nil {
			t.Fatal(err)
		}
	}
	r.Close()
	r.Close()
	if maps, unmaps := headless.MapCounts(r.Resource()); maps != 1 || unmaps != 1 {
		t.Errorf("map/unmap = %d/%d, want 1/1", maps, unmaps)
	}
	p := metadata.PassConstants{}
	if err := r.Write(0, &p); err == nil {
		t.Error("write after close succeeded")
	}
}

func TestRegionZeroCapacity(t *testing.T) {
	d := newDevice(t)
	if _, err := NewUploadRegion[metadata.ObjectConstants](d, "empty", 0, RegionConstant); err == nil {
		t.Fatal("zero capacity accepted")
	}
}
