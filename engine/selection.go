package engine

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
	"github.com/spaghettifunk/triframe/engine/renderer/views"
	"github.com/spaghettifunk/triframe/engine/systems"
)

const highlightMaterialName = "highlight"

// selection keeps the picked item hidden and draws a translucent copy of it
// in the highlight layer until it is cleared. The copy is a single scene item
// reused by every pick, so picking never consumes more than one object slot.
type selection struct {
	systems   *systems.SystemManager
	picker    *views.Picker
	highlight *metadata.SceneItem
}

func newSelection(sm *systems.SystemManager, picker *views.Picker) *selection {
	return &selection{systems: sm, picker: picker}
}

// Pick replaces the current selection with the item under (x, y). A miss
// only clears the selection.
func (s *selection) Pick(x, y float32) *metadata.SceneItem {
	s.Clear()
	item := s.picker.Pick(x, y)
	if item == nil {
		return nil
	}
	s.picker.Select(item)

	if s.highlight == nil {
		if err := s.createHighlight(item); err != nil {
			// out of object slots: keep the selection, skip the highlight
			core.LogWarn("no highlight for object %d: %s", item.ObjectIndex, err.Error())
			return item
		}
	}

	scene := s.systems.Scene()
	s.highlight.Mesh = item.Mesh
	s.highlight.IndexCount = item.IndexCount
	s.highlight.StartIndex = item.StartIndex
	s.highlight.BaseVertex = item.BaseVertex
	s.highlight.Bounds = item.Bounds
	scene.SetWorld(s.highlight, item.World)
	scene.SetTexTransform(s.highlight, item.TexTransform)
	scene.SetVisible(s.highlight, true)
	return item
}

// Clear restores the selected item and hides its highlight copy.
func (s *selection) Clear() {
	if s.picker.Deselect() == nil {
		return
	}
	if s.highlight != nil {
		s.systems.Scene().SetVisible(s.highlight, false)
	}
}

func (s *selection) createHighlight(item *metadata.SceneItem) error {
	material, err := s.highlightMaterial()
	if err != nil {
		material = item.Material
	}
	s.highlight, err = s.systems.Scene().CreateItem(&metadata.SceneItemConfig{
		Layer:    metadata.RenderLayerHighlight,
		Material: material,
		Mesh:     item.Mesh,
	})
	return err
}

func (s *selection) Highlight() *metadata.SceneItem {
	return s.highlight
}

func (s *selection) highlightMaterial() (metadata.MaterialID, error) {
	materials := s.systems.Materials()
	if m, err := materials.GetByName(highlightMaterialName); err == nil {
		return m.ID, nil
	} else if !errors.Is(err, core.ErrUnknownMaterial) {
		return 0, err
	}
	m, err := materials.Create(&metadata.MaterialConfig{
		Name:          highlightMaterialName,
		DiffuseAlbedo: mgl32.Vec4{1, 1, 0, 0.6},
		FresnelR0:     mgl32.Vec3{0.06, 0.06, 0.06},
		Roughness:     0,
		Transform:     mgl32.Ident4(),
	})
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}
