package renderer

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/headless"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
	"github.com/spaghettifunk/triframe/engine/renderer/views"
	"github.com/spaghettifunk/triframe/engine/systems"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func testConfig() *core.Config {
	cfg := core.DefaultConfig()
	cfg.Device.Width, cfg.Device.Height = 64, 48
	cfg.Device.LatencyMS = 0
	cfg.Pipeline.MaxObjects = 8
	cfg.Pipeline.MaxMaterials = 4
	cfg.Pipeline.MaxTextures = 4
	cfg.Shadow.MapSize = 64
	return cfg
}

func newRenderer(t *testing.T, cfg *core.Config) (*Renderer, *headless.Device, *core.Metrics) {
	t.Helper()
	device, err := NewDevice(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { device.Close() })
	metrics := core.NewMetrics()
	r, err := New(device, cfg, metrics)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Shutdown() })
	return r, device.(*headless.Device), metrics
}

func addBox(t *testing.T, sm *systems.SystemManager, layer metadata.RenderLayer, world mgl32.Mat4) *metadata.SceneItem {
	t.Helper()
	g, err := sm.Geometry().GetByName("box")
	if err != nil {
		g, err = sm.Geometry().Create(systems.GenerateCubeConfig(1, 1, 1, "box"))
		if err != nil {
			t.Fatal(err)
		}
	}
	item, err := sm.Scene().CreateItem(&metadata.SceneItemConfig{
		Layer:   layer,
		World:   world,
		Mesh:    g.ID,
		Submesh: g.Submeshes["box"],
	})
	if err != nil {
		t.Fatal(err)
	}
	return item
}

func TestNewDeviceRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Device.Backend = "software"
	if _, err := NewDevice(cfg); !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("err = %v", err)
	}
	cfg.Device.Backend = "vulkan"
	if _, err := NewDevice(cfg); err == nil {
		t.Fatal("vulkan backend opened")
	}
}

func TestDrawFrames(t *testing.T) {
	r, d, _ := newRenderer(t, testConfig())
	addBox(t, r.Systems(), metadata.RenderLayerOpaque, mgl32.Ident4())
	r.Camera().LookAt(mgl32.Vec3{0, 2, -6}, mgl32.Vec3{})

	for i := 0; i < 10; i++ {
		if err := r.DrawFrame(float32(i)/60, 1.0/60); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if err := r.Pipeline().Flush(); err != nil {
		t.Fatal(err)
	}
	if err := d.Err(); err != nil {
		t.Fatal(err)
	}
	if s := d.Stats(); s.Presents != 10 {
		t.Errorf("presents = %d", s.Presents)
	}
	if got := r.Pipeline().CompletedFence(); got != r.Pipeline().CurrentFence() {
		t.Errorf("completed %d, current %d", got, r.Pipeline().CurrentFence())
	}
}

func TestSceneEditsReachEverySlot(t *testing.T) {
	cfg := testConfig()
	r, _, _ := newRenderer(t, cfg)
	item := addBox(t, r.Systems(), metadata.RenderLayerOpaque, mgl32.Ident4())

	for i := 0; i < 3; i++ {
		if err := r.DrawFrame(0, 0); err != nil {
			t.Fatal(err)
		}
	}
	if item.DirtyCount != 0 {
		t.Fatalf("dirty count after a full ring = %d", item.DirtyCount)
	}

	r.Systems().Scene().SetWorld(item, mgl32.Translate3D(0, 1, 0))
	for i := 0; i < int(cfg.Pipeline.RingDepth); i++ {
		if item.DirtyCount != int(cfg.Pipeline.RingDepth)-i {
			t.Fatalf("frame %d: dirty = %d", i, item.DirtyCount)
		}
		if err := r.DrawFrame(0, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Pipeline().Flush(); err != nil {
		t.Fatal(err)
	}
	want := mgl32.Translate3D(0, 1, 0).Transpose()
	for i := 0; i < r.Pipeline().Depth(); i++ {
		got, err := r.Pipeline().Slot(i).Objects.Read(item.ObjectIndex)
		if err != nil {
			t.Fatal(err)
		}
		if got.World != want {
			t.Errorf("slot %d world = %v", i, got.World)
		}
	}
}

func TestResize(t *testing.T) {
	r, d, _ := newRenderer(t, testConfig())
	addBox(t, r.Systems(), metadata.RenderLayerOpaque, mgl32.Ident4())

	if err := r.DrawFrame(0, 0); err != nil {
		t.Fatal(err)
	}
	if err := r.OnResize(128, 32); err != nil {
		t.Fatal(err)
	}
	if w, h := d.Swapchain().Size(); w != 128 || h != 32 {
		t.Fatalf("swapchain = %dx%d", w, h)
	}
	if r.Camera().Aspect != 4 {
		t.Errorf("aspect = %f", r.Camera().Aspect)
	}
	for i := 0; i < 4; i++ {
		if err := r.DrawFrame(0, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Pipeline().Flush(); err != nil {
		t.Fatal(err)
	}
	if err := d.Err(); err != nil {
		t.Fatal(err)
	}
	// minimized
	if err := r.OnResize(0, 0); err != nil {
		t.Fatal(err)
	}
	if w, h := r.Size(); w != 128 || h != 32 {
		t.Errorf("size after zero resize = %dx%d", w, h)
	}
}

func TestApplyConfig(t *testing.T) {
	cfg := testConfig()
	r, _, _ := newRenderer(t, cfg)

	next := testConfig()
	next.Picker.Mode = core.PickModeNearest
	next.Debug.DrawDebugLayer = true
	if err := r.ApplyConfig(next); err != nil {
		t.Fatal(err)
	}
	if r.Picker().Mode != views.PickNearest {
		t.Error("picker mode not applied")
	}

	bad := testConfig()
	bad.Picker.Mode = "random"
	if err := r.ApplyConfig(bad); err == nil {
		t.Fatal("bad picker mode accepted")
	}
}

func TestDeviceLossIsFatal(t *testing.T) {
	r, d, _ := newRenderer(t, testConfig())
	if err := r.DrawFrame(0, 0); err != nil {
		t.Fatal(err)
	}
	d.Lose("test")

	var err error
	for i := 0; i < 4 && err == nil; i++ {
		err = r.DrawFrame(0, 0)
	}
	if !errors.Is(err, core.ErrPipelineTerminated) || !errors.Is(err, core.ErrDeviceLost) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetSky(t *testing.T) {
	r, d, _ := newRenderer(t, testConfig())
	cube, err := d.CreateTexture(gpu.TextureDesc{
		Name:      "sky",
		Width:     4,
		Height:    4,
		ArraySize: 6,
		Dimension: gpu.DimensionTextureCube,
		Format:    gpu.FormatRGBA8Unorm,
	}, gpu.StateGenericRead)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SetSky(cube); err != nil {
		t.Fatal(err)
	}
	addBox(t, r.Systems(), metadata.RenderLayerSky, mgl32.Scale3D(50, 50, 50))
	if err := r.DrawFrame(0, 0); err != nil {
		t.Fatal(err)
	}
}

func TestFailedFrameIsDiscarded(t *testing.T) {
	r, d, _ := newRenderer(t, testConfig())
	item := addBox(t, r.Systems(), metadata.RenderLayerOpaque, mgl32.Ident4())
	for i := 0; i < 2; i++ {
		if err := r.DrawFrame(0, 0); err != nil {
			t.Fatal(err)
		}
	}

	d.Pause()
	slot := item.ObjectIndex
	item.ObjectIndex = 1000
	r.Systems().Scene().SetWorld(item, mgl32.Translate3D(0, 2, 0))
	if err := r.DrawFrame(0, 0); !errors.Is(err, core.ErrRegionIndexOutOfRange) {
		t.Fatalf("broken frame = %v", err)
	}
	if r.Pipeline().Err() != nil {
		t.Fatalf("pipeline terminated: %v", r.Pipeline().Err())
	}

	item.ObjectIndex = slot
	done := make(chan error, 1)
	go func() { done <- r.DrawFrame(0, 0) }()
	d.Resume()
	if err := <-done; err != nil {
		t.Fatalf("frame after a discarded one: %v", err)
	}
	if err := r.Pipeline().Flush(); err != nil {
		t.Fatal(err)
	}
	if s := d.Stats(); s.Presents != 3 {
		t.Errorf("presents = %d", s.Presents)
	}
}

func TestShutdownWaitsForFramesInFlight(t *testing.T) {
	cfg := testConfig()
	device, err := NewDevice(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer device.Close()
	d := device.(*headless.Device)
	r, err := New(device, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	addBox(t, r.Systems(), metadata.RenderLayerOpaque, mgl32.Ident4())

	d.Pause()
	for i := 0; i < 2; i++ {
		if err := r.DrawFrame(0, 0); err != nil {
			t.Fatal(err)
		}
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		d.Resume()
	}()
	if err := r.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if got, want := r.Pipeline().CompletedFence(), r.Pipeline().CurrentFence(); got != want {
		t.Errorf("shutdown returned at fence %d of %d", got, want)
	}
	if s := d.Stats(); s.Presents != 2 {
		t.Errorf("presents = %d", s.Presents)
	}
}
