package metadata

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/math"
)

/**
 * @brief A drawable instance of a submesh. The mesh and material are
 * referenced by index; the catalogs outlive every item.
 */
type SceneItem struct {
	Layer        RenderLayer
	World        mgl32.Mat4
	TexTransform mgl32.Mat4
	Material     MaterialID
	Mesh         MeshID
	IndexCount   uint32
	StartIndex   uint32
	BaseVertex   int32
	/** @brief Local space bounds. */
	Bounds math.Extents3D
	/**
	 * @brief Slot of this item in every frame's object region. Assigned
	 * once and never handed to another item, even after deletion.
	 */
	ObjectIndex uint32
	Visible     bool
	/** @brief Frame slots still holding stale constants for this item. */
	DirtyCount int
}

/** @brief Everything needed to create a scene item. */
type SceneItemConfig struct {
	Layer        RenderLayer
	World        mgl32.Mat4
	TexTransform mgl32.Mat4
	Material     MaterialID
	Mesh         MeshID
	/** @brief Index range and bounds inside the mesh. */
	Submesh Submesh
}
