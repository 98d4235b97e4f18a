package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestRayIntersectExtents(t *testing.T) {
	box := NewExtents3DFromCenter(mgl32.Vec3{0, 0, -10}, mgl32.Vec3{1, 1, 1})

	cases := []struct {
		name string
		ray  Ray
		hit  bool
		dist float32
	}{
		{"straight hit", Ray{mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}}, true, 9},
		{"miss above", Ray{mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, 0, -1}}, false, 0},
		{"pointing away", Ray{mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}}, false, 0},
		{"parallel on edge", Ray{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}}, true, 9},
		{"origin inside", Ray{mgl32.Vec3{0, 0, -10}, mgl32.Vec3{1, 0, 0}}, true, 0.001},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, ok := c.ray.IntersectExtents(box, 0.001)
			if ok != c.hit {
				t.Fatalf("hit = %v, want %v", ok, c.hit)
			}
			if ok && mgl32.Abs(d-c.dist) > 1e-4 {
				t.Errorf("dist = %f, want %f", d, c.dist)
			}
		})
	}
}

func TestRayTransformRenormalizes(t *testing.T) {
	r := Ray{mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0, 0, -1}}
	m := mgl32.Translate3D(1, 0, 0).Mul4(mgl32.Scale3D(3, 3, 3))
	out := r.Transform(m)
	if !out.Origin.ApproxEqual(mgl32.Vec3{4, 6, 9}) {
		t.Errorf("origin = %v", out.Origin)
	}
	if mgl32.Abs(out.Direction.Len()-1) > 1e-5 {
		t.Errorf("direction not normalized: %v", out.Direction)
	}
}

func TestScreenRayCenter(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(45), 16.0/9.0, 1, 1000)
	r := ScreenRay(640, 360, 1280, 720, proj)
	if !r.Direction.ApproxEqual(mgl32.Vec3{0, 0, -1}) {
		t.Errorf("center ray = %v", r.Direction)
	}
	// top-left corner points up and left
	r = ScreenRay(0, 0, 1280, 720, proj)
	if r.Direction.X() >= 0 || r.Direction.Y() <= 0 {
		t.Errorf("corner ray = %v", r.Direction)
	}
}

func TestNDCToTexture(t *testing.T) {
	cases := map[mgl32.Vec3]mgl32.Vec3{
		{-1, 1, 0.5}: {0, 0, 0.5},
		{1, -1, 0.5}: {1, 1, 0.5},
		{0, 0, 0}:    {0.5, 0.5, 0},
	}
	for ndc, want := range cases {
		got := mgl32.TransformCoordinate(ndc, NDCToTexture)
		if !got.ApproxEqual(want) {
			t.Errorf("%v -> %v, want %v", ndc, got, want)
		}
	}
}

func TestTransformHierarchy(t *testing.T) {
	parent := TransformFromPosition(mgl32.Vec3{10, 0, 0})
	child := TransformFromPositionRotationScale(mgl32.Vec3{0, 1, 0}, mgl32.QuatIdent(), mgl32.Vec3{2, 2, 2})
	child.Parent = parent

	p := mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, child.GetWorld())
	if !p.ApproxEqual(mgl32.Vec3{12, 1, 0}) {
		t.Errorf("world point = %v", p)
	}

	child.SetPosition(mgl32.Vec3{0, 0, 0})
	if !child.IsDirty {
		t.Fatal("SetPosition must mark dirty")
	}
	p = mgl32.TransformCoordinate(mgl32.Vec3{1, 0, 0}, child.GetWorld())
	if !p.ApproxEqual(mgl32.Vec3{12, 0, 0}) {
		t.Errorf("world point after move = %v", p)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1.5, -1.0, 1.0) != -1.0 || Clamp(uint32(2), 1, 4) != 2 {
		t.Fatal("clamp")
	}
}

func TestProjectionDepthRange(t *testing.T) {
	cases := []struct {
		name string
		proj mgl32.Mat4
	}{
		{"perspective", Perspective(mgl32.DegToRad(45), 16.0/9.0, 1, 100)},
		{"ortho", Ortho(-5, 5, -5, 5, 1, 100)},
	}
	for _, c := range cases {
		near := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, -1}, c.proj)
		far := mgl32.TransformCoordinate(mgl32.Vec3{0, 0, -100}, c.proj)
		if mgl32.Abs(near.Z()) > 1e-5 || mgl32.Abs(far.Z()-1) > 1e-5 {
			t.Errorf("%s: near depth %f, far depth %f", c.name, near.Z(), far.Z())
		}
	}
	// x and y are untouched
	if got, want := Perspective(1, 2, 1, 10).At(0, 0), mgl32.Perspective(1, 2, 1, 10).At(0, 0); got != want {
		t.Errorf("x scale = %f, want %f", got, want)
	}
}
