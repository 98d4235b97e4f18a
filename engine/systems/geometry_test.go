package systems

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestGeometrySubmeshes(t *testing.T) {
	_, sm := newManager(t)

	shapes := &GeometryConfig{Name: "shapes"}
	shapes.Append("box", GenerateCubeConfig(2, 4, 6, "box"))
	shapes.Append("grid", GeneratePlaneConfig(20, 30, 4, 3, 1, 1, "grid"))

	g, err := sm.Geometry().Create(shapes)
	if err != nil {
		t.Fatal(err)
	}
	box, err := sm.Geometry().Submesh(g.ID, "box")
	if err != nil {
		t.Fatal(err)
	}
	grid, err := sm.Geometry().Submesh(g.ID, "grid")
	if err != nil {
		t.Fatal(err)
	}
	if box.IndexCount != 36 || box.StartIndex != 0 || box.BaseVertex != 0 {
		t.Errorf("box = %+v", box)
	}
	if grid.StartIndex != 36 || grid.BaseVertex != 24 || grid.IndexCount != 4*3*6 {
		t.Errorf("grid = %+v", grid)
	}
	if box.Bounds.Min != (mgl32.Vec3{-1, -2, -3}) || box.Bounds.Max != (mgl32.Vec3{1, 2, 3}) {
		t.Errorf("box bounds = %+v", box.Bounds)
	}
	if grid.Bounds.Max != (mgl32.Vec3{10, 0, 15}) {
		t.Errorf("grid bounds = %+v", grid.Bounds)
	}
	if g.VertexBuffer.Size() != uint64(len(shapes.Vertices))*uint64(g.VertexStride) {
		t.Errorf("vertex buffer size = %d", g.VertexBuffer.Size())
	}
	if _, err := sm.Geometry().Create(shapes); err == nil {
		t.Error("duplicate geometry accepted")
	}
}

func TestSphereIndicesInRange(t *testing.T) {
	s := GenerateSphereConfig(0.5, 20, 20, "sphere")
	if len(s.Indices)%3 != 0 {
		t.Fatalf("%d indices", len(s.Indices))
	}
	for _, i := range s.Indices {
		if int(i) >= len(s.Vertices) {
			t.Fatalf("index %d out of %d vertices", i, len(s.Vertices))
		}
	}
	b := s.Bounds()
	if b.Max.Y() != 0.5 || b.Min.Y() != -0.5 {
		t.Errorf("bounds = %+v", b)
	}
}

func TestGenerateConfigsKeepsOrder(t *testing.T) {
	_, sm := newManager(t)
	configs := GenerateConfigs(sm.Jobs(),
		func() *GeometryConfig { return GenerateCubeConfig(1, 1, 1, "box") },
		func() *GeometryConfig { return GenerateSphereConfig(1, 8, 8, "sphere") },
		func() *GeometryConfig { return GenerateQuadConfig(0, 0, 1, 1, "quad") },
	)
	for i, want := range []string{"box", "sphere", "quad"} {
		if configs[i] == nil || configs[i].Name != want {
			t.Errorf("config %d = %v", i, configs[i])
		}
	}
}
