package systems

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/frame"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
)

type SceneSystemConfig struct {
	/** @brief Size of every frame's object region. Object slots are never reused. */
	MaxItemCount uint32
	/** @brief Number of frame slots; a change must reach every one of them. */
	FrameCount int
}

// SceneSystem is the scene item table. Every item lives in the owning list
// and in the list of its layer. Only the producer goroutine touches it.
type SceneSystem struct {
	Config          *SceneSystemConfig
	items           []*metadata.SceneItem
	layers          [metadata.RenderLayerCount][]*metadata.SceneItem
	nextObjectIndex uint32
	geometrySystem  *GeometrySystem
	materialSystem  *MaterialSystem
}

func NewSceneSystem(config *SceneSystemConfig, gs *GeometrySystem, ms *MaterialSystem) (*SceneSystem, error) {
	if config.MaxItemCount == 0 {
		err := fmt.Errorf("func NewSceneSystem - config.MaxItemCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if config.FrameCount <= 0 {
		err := fmt.Errorf("func NewSceneSystem - config.FrameCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &SceneSystem{
		Config:         config,
		geometrySystem: gs,
		materialSystem: ms,
	}, nil
}

/**
 * @brief Creates a visible item and appends it to its layer. The item takes
 * the next object slot and is dirty in every frame slot.
 * Items past the object region capacity are dropped with ErrCapacityExceeded.
 */
func (ss *SceneSystem) CreateItem(config *metadata.SceneItemConfig) (*metadata.SceneItem, error) {
	if config.Layer >= metadata.RenderLayerCount {
		return nil, fmt.Errorf("invalid render layer %d", config.Layer)
	}
	if ss.nextObjectIndex >= ss.Config.MaxItemCount {
		err := fmt.Errorf("%w: scene item in layer %s, %d object slots used", core.ErrCapacityExceeded, config.Layer, ss.nextObjectIndex)
		core.LogWarn(err.Error())
		return nil, err
	}
	if ss.geometrySystem != nil {
		if _, err := ss.geometrySystem.Get(config.Mesh); err != nil {
			return nil, err
		}
	}
	if ss.materialSystem != nil {
		if _, err := ss.materialSystem.Get(config.Material); err != nil {
			return nil, err
		}
	}

	item := &metadata.SceneItem{
		Layer:        config.Layer,
		World:        config.World,
		TexTransform: config.TexTransform,
		Material:     config.Material,
		Mesh:         config.Mesh,
		IndexCount:   config.Submesh.IndexCount,
		StartIndex:   config.Submesh.StartIndex,
		BaseVertex:   config.Submesh.BaseVertex,
		Bounds:       config.Submesh.Bounds,
		ObjectIndex:  ss.nextObjectIndex,
		Visible:      true,
		DirtyCount:   ss.Config.FrameCount,
	}
	if item.World == (mgl32.Mat4{}) {
		item.World = mgl32.Ident4()
	}
	if item.TexTransform == (mgl32.Mat4{}) {
		item.TexTransform = mgl32.Ident4()
	}
	ss.nextObjectIndex++

	ss.items = append(ss.items, item)
	ss.layers[item.Layer] = append(ss.layers[item.Layer], item)
	return item, nil
}

/**
 * @brief Removes the most recently created item of layer. Its object slot is
 * not reclaimed. If the item is the picker's selection, the selection must be
 * cleared before calling this.
 */
func (ss *SceneSystem) DeleteLast(layer metadata.RenderLayer) (*metadata.SceneItem, bool) {
	if layer >= metadata.RenderLayerCount {
		return nil, false
	}
	list := ss.layers[layer]
	if len(list) == 0 {
		return nil, false
	}
	item := list[len(list)-1]
	list[len(list)-1] = nil
	ss.layers[layer] = list[:len(list)-1]

	for i := len(ss.items) - 1; i >= 0; i-- {
		if ss.items[i] == item {
			copy(ss.items[i:], ss.items[i+1:])
			ss.items[len(ss.items)-1] = nil
			ss.items = ss.items[:len(ss.items)-1]
			break
		}
	}
	return item, true
}

// RefreshDirty writes every item still stale in the current frame slot into
// region at its object slot and returns how many were written. Once every
// item has settled it writes nothing.
func (ss *SceneSystem) RefreshDirty(region *frame.UploadRegion[metadata.ObjectConstants]) (int, error) {
	written := 0
	for _, item := range ss.items {
		if item.DirtyCount <= 0 {
			continue
		}
		rec := metadata.ObjectConstants{
			World:         item.World.Transpose(),
			TexTransform:  item.TexTransform.Transpose(),
			MaterialIndex: uint32(item.Material),
		}
		if err := region.Write(item.ObjectIndex, &rec); err != nil {
			return written, err
		}
		item.DirtyCount--
		written++
	}
	return written, nil
}

func (ss *SceneSystem) SetWorld(item *metadata.SceneItem, world mgl32.Mat4) {
	item.World = world
	item.DirtyCount = ss.Config.FrameCount
}

func (ss *SceneSystem) SetTexTransform(item *metadata.SceneItem, tex mgl32.Mat4) {
	item.TexTransform = tex
	item.DirtyCount = ss.Config.FrameCount
}

func (ss *SceneSystem) SetMaterial(item *metadata.SceneItem, id metadata.MaterialID) error {
	if ss.materialSystem != nil {
		if _, err := ss.materialSystem.Get(id); err != nil {
			return err
		}
	}
	item.Material = id
	item.DirtyCount = ss.Config.FrameCount
	return nil
}

// SetVisible only affects draw submission, the constants stay current.
func (ss *SceneSystem) SetVisible(item *metadata.SceneItem, visible bool) {
	item.Visible = visible
}

// Items returns the owning list in creation order.
func (ss *SceneSystem) Items() []*metadata.SceneItem {
	return ss.items
}

// Layer returns the items of layer in creation order.
func (ss *SceneSystem) Layer(layer metadata.RenderLayer) []*metadata.SceneItem {
	if layer >= metadata.RenderLayerCount {
		return nil
	}
	return ss.layers[layer]
}

func (ss *SceneSystem) Count() int {
	return len(ss.items)
}

// ObjectSlotsUsed is the number of object slots ever handed out.
func (ss *SceneSystem) ObjectSlotsUsed() uint32 {
	return ss.nextObjectIndex
}

func (ss *SceneSystem) Shutdown() error {
	ss.items = nil
	for i := range ss.layers {
		ss.layers[i] = nil
	}
	return nil
}
