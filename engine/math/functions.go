package math

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// NDCToTexture maps normalized device coordinates [-1,1]² to texture space
// [0,1]² with v pointing down.
var NDCToTexture = mgl32.Mat4{
	0.5, 0.0, 0.0, 0.0,
	0.0, -0.5, 0.0, 0.0,
	0.0, 0.0, 1.0, 0.0,
	0.5, 0.5, 0.0, 1.0,
}

// ClipDepthToUnit remaps clip-space depth from [-1,1] to [0,1], the range the
// device's viewports and depth buffers use.
var ClipDepthToUnit = mgl32.Mat4{
	1.0, 0.0, 0.0, 0.0,
	0.0, 1.0, 0.0, 0.0,
	0.0, 0.0, 0.5, 0.0,
	0.0, 0.0, 0.5, 1.0,
}

// Perspective is mgl32.Perspective with depth in [0,1]: nearZ maps to 0 and
// farZ to 1.
func Perspective(fovY, aspect, nearZ, farZ float32) mgl32.Mat4 {
	return ClipDepthToUnit.Mul4(mgl32.Perspective(fovY, aspect, nearZ, farZ))
}

// Ortho is mgl32.Ortho with depth in [0,1].
func Ortho(left, right, bottom, top, nearZ, farZ float32) mgl32.Mat4 {
	return ClipDepthToUnit.Mul4(mgl32.Ortho(left, right, bottom, top, nearZ, farZ))
}

func NewExtents3DFromCenter(center, halfSize mgl32.Vec3) Extents3D {
	return Extents3D{
		Min: center.Sub(halfSize),
		Max: center.Add(halfSize),
	}
}

func (e Extents3D) Center() mgl32.Vec3 {
	return e.Min.Add(e.Max).Mul(0.5)
}

func (e Extents3D) HalfSize() mgl32.Vec3 {
	return e.Max.Sub(e.Min).Mul(0.5)
}

func (e Extents3D) Contains(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < e.Min[i] || p[i] > e.Max[i] {
			return false
		}
	}
	return true
}

// Transform returns the ray expressed in the space described by m. The
// direction is renormalized because m may scale.
func (r Ray) Transform(m mgl32.Mat4) Ray {
	return Ray{
		Origin:    mgl32.TransformCoordinate(r.Origin, m),
		Direction: mgl32.TransformNormal(r.Direction, m).Normalize(),
	}
}

func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectExtents runs the slab test over the interval [tmin, +inf) and
// returns the entry distance along the ray.
func (r Ray) IntersectExtents(e Extents3D, tmin float32) (float32, bool) {
	t0 := tmin
	t1 := float32(stdmath.MaxFloat32)
	for i := 0; i < 3; i++ {
		o, d := r.Origin[i], r.Direction[i]
		if Abs(d) < 1e-8 {
			// Parallel to the slab: inside it or never.
			if o < e.Min[i] || o > e.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1.0 / d
		tNear := (e.Min[i] - o) * inv
		tFar := (e.Max[i] - o) * inv
		if tNear > tFar {
			tNear, tFar = tFar, tNear
		}
		if tNear > t0 {
			t0 = tNear
		}
		if tFar < t1 {
			t1 = tFar
		}
		if t0 > t1 {
			return 0, false
		}
	}
	return t0, true
}

func Abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

/**
 * @brief Builds a view-space ray through a screen position using the
 * projection scale coefficients P[0][0] and P[1][1]. Screen origin is the
 * top-left corner, the camera looks down -Z.
 */
func ScreenRay(x, y float32, width, height uint32, proj mgl32.Mat4) Ray {
	vx := (2.0*x/float32(width) - 1.0) / proj.At(0, 0)
	vy := (-2.0*y/float32(height) + 1.0) / proj.At(1, 1)
	return Ray{
		Origin:    mgl32.Vec3{0, 0, 0},
		Direction: mgl32.Vec3{vx, vy, -1.0},
	}
}
