package metadata

import "github.com/go-gl/mathgl/mgl32"

/**
 * @brief Material configuration, created in code or loaded from a file.
 */
type MaterialConfig struct {
	Name          string
	DiffuseAlbedo mgl32.Vec4
	FresnelR0     mgl32.Vec3
	Roughness     float32
	/** @brief UV transform applied on top of the item's texture transform. */
	Transform mgl32.Mat4
	/** @brief Names resolved to SRV indices by the texture system. */
	DiffuseMapName string
	NormalMapName  string
}

/**
 * @brief A material. Its ID is also its slot in the per-frame material
 * buffer. Do not edit the properties directly, use the material system so the
 * dirty counter is reset.
 */
type Material struct {
	ID              MaterialID
	Name            string
	DiffuseAlbedo   mgl32.Vec4
	FresnelR0       mgl32.Vec3
	Roughness       float32
	Transform       mgl32.Mat4
	DiffuseMapIndex uint32
	NormalMapIndex  uint32
	/**
	 * @brief Number of frame slots still holding stale data for this material.
	 * Reset to the ring depth on every change.
	 */
	DirtyCount int
}
