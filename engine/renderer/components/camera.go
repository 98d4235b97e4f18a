package components

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/math"
)

/**
 * @brief A perspective camera. Right handed, looking down -Z in view space.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position mgl32.Vec3
	/**
	 * @brief The rotation of this camera using Euler angles (pitch, yaw, roll).
	 * NOTE: Do not set this directly, use SetEulerRotation() instead
	 * so the view matrix is recalculated when needed.
	 */
	EulerRotation mgl32.Vec3
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/**
	 * @brief The view matrix of this camera.
	 * NOTE: IMPORTANT: Do not get this directly, use GetView() instead
	 * so the view matrix is recalculated when needed.
	 */
	ViewMatrix mgl32.Mat4
	world      mgl32.Mat4

	// lens
	FovY   float32
	Aspect float32
	NearZ  float32
	FarZ   float32
}

// 89 degrees
const pitchLimit = float32(1.55334306)

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.EulerRotation = mgl32.Vec3{}
	c.Position = mgl32.Vec3{}
	c.ViewMatrix = mgl32.Ident4()
	c.world = mgl32.Ident4()
	c.IsDirty = false
	c.SetLens(0.25*stdmath.Pi, 1, 1, 1000)
}

/** @brief Sets the perspective projection; fovY in radians. */
func (c *Camera) SetLens(fovY, aspect, nearZ, farZ float32) {
	c.FovY = fovY
	c.Aspect = aspect
	c.NearZ = nearZ
	c.FarZ = farZ
}

func (c *Camera) GetProjection() mgl32.Mat4 {
	return math.Perspective(c.FovY, c.Aspect, c.NearZ, c.FarZ)
}

func (c *Camera) GetPosition() mgl32.Vec3 {
	return c.Position
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) GetEulerRotation() mgl32.Vec3 {
	return c.EulerRotation
}

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.EulerRotation = rotation
	c.EulerRotation[0] = math.Clamp(c.EulerRotation[0], -pitchLimit, pitchLimit)
	c.IsDirty = true
}

/** @brief Places the camera at position, facing target. Roll is reset. */
func (c *Camera) LookAt(position, target mgl32.Vec3) {
	d := target.Sub(position)
	if d.Len() == 0 {
		c.SetPosition(position)
		return
	}
	d = d.Normalize()
	pitch := float32(stdmath.Asin(float64(math.Clamp(d.Y(), -1, 1))))
	yaw := float32(stdmath.Atan2(float64(-d.X()), float64(-d.Z())))
	c.Position = position
	c.SetEulerRotation(mgl32.Vec3{pitch, yaw, 0})
}

func (c *Camera) update() {
	if !c.IsDirty {
		return
	}
	rotation := mgl32.HomogRotate3DY(c.EulerRotation.Y()).
		Mul4(mgl32.HomogRotate3DX(c.EulerRotation.X())).
		Mul4(mgl32.HomogRotate3DZ(c.EulerRotation.Z()))
	c.world = mgl32.Translate3D(c.Position.Elem()).Mul4(rotation)
	c.ViewMatrix = c.world.Inv()
	c.IsDirty = false
}

func (c *Camera) GetView() mgl32.Mat4 {
	c.update()
	return c.ViewMatrix
}

/** @brief The camera to world transform, the inverse of the view. */
func (c *Camera) GetWorld() mgl32.Mat4 {
	c.update()
	return c.world
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.GetWorld().Col(2).Vec3().Mul(-1)
}

func (c *Camera) Backward() mgl32.Vec3 {
	return c.GetWorld().Col(2).Vec3()
}

func (c *Camera) Left() mgl32.Vec3 {
	return c.GetWorld().Col(0).Vec3().Mul(-1)
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.GetWorld().Col(0).Vec3()
}

func (c *Camera) MoveForward(amount float32) {
	c.Position = c.Position.Add(c.Forward().Mul(amount))
	c.IsDirty = true
}

func (c *Camera) MoveBackward(amount float32) {
	c.Position = c.Position.Add(c.Backward().Mul(amount))
	c.IsDirty = true
}

func (c *Camera) MoveLeft(amount float32) {
	c.Position = c.Position.Add(c.Left().Mul(amount))
	c.IsDirty = true
}

func (c *Camera) MoveRight(amount float32) {
	c.Position = c.Position.Add(c.Right().Mul(amount))
	c.IsDirty = true
}

func (c *Camera) MoveUp(amount float32) {
	c.Position = c.Position.Add(mgl32.Vec3{0, amount, 0})
	c.IsDirty = true
}

func (c *Camera) MoveDown(amount float32) {
	c.Position = c.Position.Sub(mgl32.Vec3{0, amount, 0})
	c.IsDirty = true
}

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation[1] += amount
	c.IsDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation[0] += amount

	// Clamp to avoid Gimbal lock.
	c.EulerRotation[0] = math.Clamp(c.EulerRotation[0], -pitchLimit, pitchLimit)

	c.IsDirty = true
}
