package views

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/math"
	"github.com/spaghettifunk/triframe/engine/renderer/components"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
	"github.com/spaghettifunk/triframe/engine/systems"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

var unitBox = math.NewExtents3DFromCenter(mgl32.Vec3{}, mgl32.Vec3{0.5, 0.5, 0.5})

// newPicker builds a camera at (0, 0, 10) looking at the origin and a scene
// with one box at the origin followed by one further away at z = -5.
func newPicker(t *testing.T, mode string) (*Picker, *systems.SceneSystem, []*metadata.SceneItem) {
	t.Helper()
	scene, err := systems.NewSceneSystem(&systems.SceneSystemConfig{MaxItemCount: 8, FrameCount: 3}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	var items []*metadata.SceneItem
	for _, z := range []float32{0, -5} {
		item, err := scene.CreateItem(&metadata.SceneItemConfig{
			Layer:   metadata.RenderLayerOpaque,
			World:   mgl32.Translate3D(0, 0, z),
			Submesh: metadata.Submesh{IndexCount: 36, Bounds: unitBox},
		})
		if err != nil {
			t.Fatal(err)
		}
		items = append(items, item)
	}

	camera := components.NewCamera()
	camera.SetLens(mgl32.DegToRad(45), 1, 1, 100)
	camera.LookAt(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{})

	p, err := NewPicker(scene, camera, 100, 100, &core.PickerConfig{Mode: mode, MinDistance: 0.001})
	if err != nil {
		t.Fatal(err)
	}
	return p, scene, items
}

func TestPickLastMatch(t *testing.T) {
	p, _, items := newPicker(t, core.PickModeLast)
	if got := p.Pick(50, 50); got != items[1] {
		t.Fatalf("picked %v, want the last item hit", got)
	}
}

func TestPickNearest(t *testing.T) {
	p, _, items := newPicker(t, core.PickModeNearest)
	if got := p.Pick(50, 50); got != items[0] {
		t.Fatalf("picked %v, want the nearest item", got)
	}
}

func TestPickNearestWithScale(t *testing.T) {
	p, scene, items := newPicker(t, core.PickModeNearest)
	// a large box far away must not win over the small close one
	scene.SetWorld(items[1], mgl32.Translate3D(0, 0, -5).Mul4(mgl32.Scale3D(6, 6, 6)))
	if got := p.Pick(50, 50); got != items[0] {
		t.Fatalf("picked %v, want the nearest item", got)
	}
}

func TestPickMiss(t *testing.T) {
	p, _, _ := newPicker(t, core.PickModeLast)
	if got := p.Pick(0, 0); got != nil {
		t.Fatalf("corner pick = %v, want nil", got)
	}
}

func TestPickIgnoresHiddenItems(t *testing.T) {
	p, scene, items := newPicker(t, core.PickModeLast)
	scene.SetVisible(items[1], false)
	if got := p.Pick(50, 50); got != items[0] {
		t.Fatalf("picked %v", got)
	}
}

func TestPickIgnoresOtherLayers(t *testing.T) {
	p, scene, _ := newPicker(t, core.PickModeLast)
	sky, err := scene.CreateItem(&metadata.SceneItemConfig{
		Layer:   metadata.RenderLayerSky,
		World:   mgl32.Translate3D(0, 0, 5),
		Submesh: metadata.Submesh{IndexCount: 36, Bounds: unitBox},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Pick(50, 50); got == sky {
		t.Fatal("picked an item of the sky layer")
	}
}

func TestSelectHidesAndDeselectRestores(t *testing.T) {
	p, _, items := newPicker(t, core.PickModeLast)

	p.Select(items[0])
	if items[0].Visible || p.Selected() != items[0] {
		t.Fatalf("after select: visible=%v selected=%v", items[0].Visible, p.Selected())
	}
	p.Select(items[1])
	if !items[0].Visible || items[1].Visible {
		t.Fatal("selecting another item did not restore the previous one")
	}
	if prev := p.Deselect(); prev != items[1] || !items[1].Visible || p.Selected() != nil {
		t.Fatalf("deselect = %v", prev)
	}
	if prev := p.Deselect(); prev != nil {
		t.Fatalf("second deselect = %v", prev)
	}
}

func TestApplyRejectsUnknownMode(t *testing.T) {
	p, _, _ := newPicker(t, core.PickModeLast)
	if err := p.Apply(&core.PickerConfig{Mode: "closest"}); !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("apply = %v", err)
	}
	if err := p.Apply(&core.PickerConfig{Mode: core.PickModeNearest}); err != nil || p.Mode != PickNearest {
		t.Fatalf("apply nearest = %v, mode %d", err, p.Mode)
	}
}
