package math

import "github.com/go-gl/mathgl/mgl32"

/**
 * @brief Represents the extents of a 3d object. Used as the axis aligned
 * bounding box of a mesh in its local space.
 */
type Extents3D struct {
	/** @brief The minimum extents of the object. */
	Min mgl32.Vec3
	/** @brief The maximum extents of the object. */
	Max mgl32.Vec3
}

/** @brief A bounding sphere, used to fit the shadow projection around the scene. */
type BoundingSphere struct {
	Center mgl32.Vec3
	Radius float32
}

/** @brief A ray with an origin and a (usually normalized) direction. */
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

/**
 * @brief Represents the transform of an object in the world.
 * Transforms can have a parent whose own transform is then
 * taken into account. NOTE: The properties of this should not
 * be edited directly, but done via the functions in transform.go
 * to ensure proper matrix generation.
 */
type Transform struct {
	/** @brief The position in the world. */
	Position mgl32.Vec3
	/** @brief The rotation in the world. */
	Rotation mgl32.Quat
	/** @brief The scale in the world. */
	Scale mgl32.Vec3
	/**
	 * @brief Indicates if the position, rotation or scale have changed,
	 * indicating that the local matrix needs to be recalculated.
	 */
	IsDirty bool
	/**
	 * @brief The local transformation matrix, updated whenever
	 * the position, rotation or scale have changed.
	 */
	Local mgl32.Mat4
	/** @brief A pointer to a parent transform if one is assigned. Can also be nil. */
	Parent *Transform
}
