package views

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/math"
	"github.com/spaghettifunk/triframe/engine/renderer/components"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
	"github.com/spaghettifunk/triframe/engine/systems"
)

type PickMode uint8

const (
	// PickLastMatch keeps the last item hit in iteration order.
	PickLastMatch PickMode = iota
	// PickNearest keeps the item whose hit point is closest to the camera.
	PickNearest
)

func ParsePickMode(s string) (PickMode, error) {
	switch s {
	case core.PickModeLast:
		return PickLastMatch, nil
	case core.PickModeNearest:
		return PickNearest, nil
	}
	return PickLastMatch, fmt.Errorf("%w: picker mode %q", core.ErrInvalidConfig, s)
}

// Picker casts a ray from a screen position against the bounds of the
// pickable layers and tracks the selected item.
type Picker struct {
	scene       *systems.SceneSystem
	camera      *components.Camera
	width       uint32
	height      uint32
	Mode        PickMode
	MinDistance float32

	selected *metadata.SceneItem
}

// Layers tested by Pick, in iteration order.
var pickableLayers = [...]metadata.RenderLayer{
	metadata.RenderLayerOpaque,
	metadata.RenderLayerTransparent,
}

func NewPicker(scene *systems.SceneSystem, camera *components.Camera, width, height uint32, config *core.PickerConfig) (*Picker, error) {
	mode, err := ParsePickMode(config.Mode)
	if err != nil {
		return nil, err
	}
	return &Picker{
		scene:       scene,
		camera:      camera,
		width:       width,
		height:      height,
		Mode:        mode,
		MinDistance: config.MinDistance,
	}, nil
}

func (p *Picker) Apply(config *core.PickerConfig) error {
	mode, err := ParsePickMode(config.Mode)
	if err != nil {
		return err
	}
	p.Mode = mode
	p.MinDistance = config.MinDistance
	return nil
}

func (p *Picker) OnResize(width, height uint32) {
	p.width, p.height = width, height
}

// Pick returns the item under the screen position (x, y), or nil. Hidden
// items are ignored. The ray is tested in each item's local space against
// its submesh bounds.
func (p *Picker) Pick(x, y float32) *metadata.SceneItem {
	viewRay := math.ScreenRay(x, y, p.width, p.height, p.camera.GetProjection())
	view := p.camera.GetView()
	invView := view.Inv()

	var (
		hit     *metadata.SceneItem
		hitDist float32
	)
	for _, layer := range pickableLayers {
		for _, item := range p.scene.Layer(layer) {
			if !item.Visible {
				continue
			}
			toLocal := item.World.Inv().Mul4(invView)
			ray := viewRay.Transform(toLocal)
			t, ok := ray.IntersectExtents(item.Bounds, p.MinDistance)
			if !ok {
				continue
			}
			if p.Mode == PickLastMatch {
				hit = item
				continue
			}
			// compare in view space, local distances are scaled by World
			point := mgl32.TransformCoordinate(ray.At(t), view.Mul4(item.World))
			d := point.Len()
			if hit == nil || d < hitDist {
				hit, hitDist = item, d
			}
		}
	}
	return hit
}

// Select hides item and remembers it; the previous selection is restored.
func (p *Picker) Select(item *metadata.SceneItem) {
	p.Deselect()
	if item == nil {
		return
	}
	p.scene.SetVisible(item, false)
	p.selected = item
}

// Deselect shows the selected item again and clears the selection.
func (p *Picker) Deselect() *metadata.SceneItem {
	prev := p.selected
	if prev != nil {
		p.scene.SetVisible(prev, true)
		p.selected = nil
	}
	return prev
}

func (p *Picker) Selected() *metadata.SceneItem {
	return p.selected
}
