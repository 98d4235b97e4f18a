package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestLookAt(t *testing.T) {
	c := NewCamera()
	pos := mgl32.Vec3{0, 5, 10}
	target := mgl32.Vec3{4, 0, -2}
	c.LookAt(pos, target)

	want := target.Sub(pos).Normalize()
	if !c.Forward().ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("forward = %v, want %v", c.Forward(), want)
	}
	// the target is straight ahead in view space
	v := mgl32.TransformCoordinate(target, c.GetView())
	if mgl32.Abs(v.X()) > 1e-4 || mgl32.Abs(v.Y()) > 1e-4 || v.Z() >= 0 {
		t.Errorf("target in view space = %v", v)
	}
}

func TestViewIsInverseOfWorld(t *testing.T) {
	c := NewCamera()
	c.SetPosition(mgl32.Vec3{1, 2, 3})
	c.Yaw(0.7)
	c.Pitch(-0.3)
	if !c.GetView().Mul4(c.GetWorld()).ApproxEqualThreshold(mgl32.Ident4(), 1e-5) {
		t.Error("view * world != identity")
	}
	if c.IsDirty {
		t.Error("camera still dirty after GetView")
	}
}

func TestPitchClamped(t *testing.T) {
	c := NewCamera()
	c.Pitch(10)
	if c.EulerRotation.X() != pitchLimit {
		t.Errorf("pitch = %f", c.EulerRotation.X())
	}
	c.Pitch(-20)
	if c.EulerRotation.X() != -pitchLimit {
		t.Errorf("pitch = %f", c.EulerRotation.X())
	}
}

func TestMoveForward(t *testing.T) {
	c := NewCamera()
	c.MoveForward(3)
	if !c.GetPosition().ApproxEqual(mgl32.Vec3{0, 0, -3}) {
		t.Errorf("position = %v", c.GetPosition())
	}
	c.MoveRight(2)
	c.MoveUp(1)
	if !c.GetPosition().ApproxEqual(mgl32.Vec3{2, 1, -3}) {
		t.Errorf("position = %v", c.GetPosition())
	}
}
