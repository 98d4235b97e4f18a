package systems

import (
	"fmt"
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/math"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
)

/**
 * @brief CPU side geometry waiting to be uploaded by the geometry system.
 * Several configs can be packed into one with Append, each becoming a
 * named submesh of the same buffers.
 */
type GeometryConfig struct {
	Name      string
	Vertices  []metadata.Vertex
	Indices   []uint32
	Submeshes map[string]metadata.Submesh
}

/** @brief Axis aligned bounds of every vertex in the config. */
func (c *GeometryConfig) Bounds() math.Extents3D {
	return boundsOf(c.Vertices)
}

/**
 * @brief Appends other to c as the submesh name. Indices are kept relative
 * to the submesh, the base vertex offsets them at draw time.
 */
func (c *GeometryConfig) Append(name string, other *GeometryConfig) {
	if c.Submeshes == nil {
		c.Submeshes = make(map[string]metadata.Submesh)
	}
	c.Submeshes[name] = metadata.Submesh{
		IndexCount: uint32(len(other.Indices)),
		StartIndex: uint32(len(c.Indices)),
		BaseVertex: int32(len(c.Vertices)),
		Bounds:     other.Bounds(),
	}
	c.Vertices = append(c.Vertices, other.Vertices...)
	c.Indices = append(c.Indices, other.Indices...)
}

func boundsOf(vertices []metadata.Vertex) math.Extents3D {
	if len(vertices) == 0 {
		return math.Extents3D{}
	}
	e := math.Extents3D{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		for i := 0; i < 3; i++ {
			e.Min[i] = float32(stdmath.Min(float64(e.Min[i]), float64(v.Position[i])))
			e.Max[i] = float32(stdmath.Max(float64(e.Max[i]), float64(v.Position[i])))
		}
	}
	return e
}

/**
 * @brief Generates a grid on the XZ plane, centered at the origin.
 *
 * @param width The overall width of the plane. Must be non-zero.
 * @param depth The overall depth of the plane. Must be non-zero.
 * @param xSegmentCount The number of segments along the x-axis. Must be non-zero.
 * @param zSegmentCount The number of segments along the z-axis. Must be non-zero.
 * @param tileX The number of times the texture tiles across the x-axis.
 * @param tileY The number of times the texture tiles across the z-axis.
 */
func GeneratePlaneConfig(width, depth float32, xSegmentCount, zSegmentCount uint32, tileX, tileY float32, name string) *GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if zSegmentCount < 1 {
		core.LogWarn("zSegmentCount must be a positive number. Defaulting to one.")
		zSegmentCount = 1
	}
	if tileX == 0 {
		tileX = 1.0
	}
	if tileY == 0 {
		tileY = 1.0
	}

	config := &GeometryConfig{
		Name:     name,
		Vertices: make([]metadata.Vertex, xSegmentCount*zSegmentCount*4),
		Indices:  make([]uint32, xSegmentCount*zSegmentCount*6),
	}

	segWidth := width / float32(xSegmentCount)
	segDepth := depth / float32(zSegmentCount)
	halfWidth := width * 0.5
	halfDepth := depth * 0.5
	up := mgl32.Vec3{0, 1, 0}
	tangent := mgl32.Vec3{1, 0, 0}
	for z := uint32(0); z < zSegmentCount; z++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := float32(x)*segWidth - halfWidth
			minZ := float32(z)*segDepth - halfDepth
			maxX := minX + segWidth
			maxZ := minZ + segDepth
			minU := float32(x) / float32(xSegmentCount) * tileX
			minV := float32(z) / float32(zSegmentCount) * tileY
			maxU := float32(x+1) / float32(xSegmentCount) * tileX
			maxV := float32(z+1) / float32(zSegmentCount) * tileY

			vOffset := (z*xSegmentCount + x) * 4
			config.Vertices[vOffset+0] = metadata.Vertex{Position: mgl32.Vec3{minX, 0, minZ}, Normal: up, TexC: mgl32.Vec2{minU, minV}, TangentU: tangent}
			config.Vertices[vOffset+1] = metadata.Vertex{Position: mgl32.Vec3{maxX, 0, maxZ}, Normal: up, TexC: mgl32.Vec2{maxU, maxV}, TangentU: tangent}
			config.Vertices[vOffset+2] = metadata.Vertex{Position: mgl32.Vec3{minX, 0, maxZ}, Normal: up, TexC: mgl32.Vec2{minU, maxV}, TangentU: tangent}
			config.Vertices[vOffset+3] = metadata.Vertex{Position: mgl32.Vec3{maxX, 0, minZ}, Normal: up, TexC: mgl32.Vec2{maxU, minV}, TangentU: tangent}

			iOffset := (z*xSegmentCount + x) * 6
			config.Indices[iOffset+0] = vOffset + 0
			config.Indices[iOffset+1] = vOffset + 1
			config.Indices[iOffset+2] = vOffset + 2
			config.Indices[iOffset+3] = vOffset + 0
			config.Indices[iOffset+4] = vOffset + 3
			config.Indices[iOffset+5] = vOffset + 1
		}
	}
	return config
}

/** @brief Generates an axis aligned box centered at the origin, 4 vertices per face. */
func GenerateCubeConfig(width, height, depth float32, name string) *GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1
	}

	hx, hy, hz := width*0.5, height*0.5, depth*0.5

	// corners of each face, counter clockwise seen from outside, and its normal
	faces := [6]struct {
		corners [4]mgl32.Vec3
		normal  mgl32.Vec3
		tangent mgl32.Vec3
	}{
		{[4]mgl32.Vec3{{-hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}, {hx, -hy, hz}}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}},
		{[4]mgl32.Vec3{{hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}, {-hx, -hy, -hz}}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}},
		{[4]mgl32.Vec3{{-hx, -hy, -hz}, {-hx, hy, hz}, {-hx, hy, -hz}, {-hx, -hy, hz}}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{[4]mgl32.Vec3{{hx, -hy, hz}, {hx, hy, -hz}, {hx, hy, hz}, {hx, -hy, -hz}}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{[4]mgl32.Vec3{{hx, -hy, hz}, {-hx, -hy, -hz}, {hx, -hy, -hz}, {-hx, -hy, hz}}, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{-1, 0, 0}},
		{[4]mgl32.Vec3{{-hx, hy, hz}, {hx, hy, -hz}, {-hx, hy, -hz}, {hx, hy, hz}}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}},
	}
	uvs := [4]mgl32.Vec2{{0, 0}, {1, 1}, {0, 1}, {1, 0}}

	config := &GeometryConfig{
		Name:     name,
		Vertices: make([]metadata.Vertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	for i, f := range faces {
		for c := 0; c < 4; c++ {
			config.Vertices = append(config.Vertices, metadata.Vertex{
				Position: f.corners[c],
				Normal:   f.normal,
				TexC:     uvs[c],
				TangentU: f.tangent,
			})
		}
		o := uint32(i * 4)
		config.Indices = append(config.Indices, o+0, o+1, o+2, o+0, o+3, o+1)
	}
	return config
}

/** @brief Generates a UV sphere centered at the origin. */
func GenerateSphereConfig(radius float32, sliceCount, stackCount uint32, name string) *GeometryConfig {
	if radius <= 0 {
		core.LogWarn("Radius must be positive. Defaulting to one.")
		radius = 1
	}
	if sliceCount < 3 {
		sliceCount = 3
	}
	if stackCount < 2 {
		stackCount = 2
	}

	config := &GeometryConfig{Name: name}
	config.Vertices = append(config.Vertices, metadata.Vertex{
		Position: mgl32.Vec3{0, radius, 0}, Normal: mgl32.Vec3{0, 1, 0}, TangentU: mgl32.Vec3{1, 0, 0},
	})

	phiStep := float32(stdmath.Pi) / float32(stackCount)
	thetaStep := 2 * float32(stdmath.Pi) / float32(sliceCount)
	for i := uint32(1); i < stackCount; i++ {
		phi := float32(i) * phiStep
		for j := uint32(0); j <= sliceCount; j++ {
			theta := float32(j) * thetaStep
			sinPhi, cosPhi := float32(stdmath.Sin(float64(phi))), float32(stdmath.Cos(float64(phi)))
			sinTheta, cosTheta := float32(stdmath.Sin(float64(theta))), float32(stdmath.Cos(float64(theta)))
			p := mgl32.Vec3{radius * sinPhi * cosTheta, radius * cosPhi, radius * sinPhi * sinTheta}
			config.Vertices = append(config.Vertices, metadata.Vertex{
				Position: p,
				Normal:   p.Normalize(),
				TexC:     mgl32.Vec2{theta / (2 * float32(stdmath.Pi)), phi / float32(stdmath.Pi)},
				TangentU: mgl32.Vec3{-radius * sinPhi * sinTheta, 0, radius * sinPhi * cosTheta}.Normalize(),
			})
		}
	}
	config.Vertices = append(config.Vertices, metadata.Vertex{
		Position: mgl32.Vec3{0, -radius, 0}, Normal: mgl32.Vec3{0, -1, 0}, TexC: mgl32.Vec2{0, 1}, TangentU: mgl32.Vec3{1, 0, 0},
	})

	// top cap
	for i := uint32(1); i <= sliceCount; i++ {
		config.Indices = append(config.Indices, 0, i+1, i)
	}
	// inner stacks, offset by the top pole
	ring := sliceCount + 1
	for i := uint32(0); i < stackCount-2; i++ {
		for j := uint32(0); j < sliceCount; j++ {
			a := 1 + i*ring + j
			b := 1 + (i+1)*ring + j
			config.Indices = append(config.Indices, a, a+1, b, b, a+1, b+1)
		}
	}
	// bottom cap
	south := uint32(len(config.Vertices) - 1)
	base := south - ring
	for i := uint32(0); i < sliceCount; i++ {
		config.Indices = append(config.Indices, south, base+i, base+i+1)
	}
	return config
}

/** @brief Generates a quad in normalized device coordinates, used for screen space previews. */
func GenerateQuadConfig(x, y, w, h float32, name string) *GeometryConfig {
	n := mgl32.Vec3{0, 0, -1}
	t := mgl32.Vec3{1, 0, 0}
	return &GeometryConfig{
		Name: name,
		Vertices: []metadata.Vertex{
			{Position: mgl32.Vec3{x, y - h, 0}, Normal: n, TexC: mgl32.Vec2{0, 1}, TangentU: t},
			{Position: mgl32.Vec3{x, y, 0}, Normal: n, TexC: mgl32.Vec2{0, 0}, TangentU: t},
			{Position: mgl32.Vec3{x + w, y, 0}, Normal: n, TexC: mgl32.Vec2{1, 0}, TangentU: t},
			{Position: mgl32.Vec3{x + w, y - h, 0}, Normal: n, TexC: mgl32.Vec2{1, 1}, TangentU: t},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// GenerateConfigs runs the generators on the job system and returns their
// configs in the same order.
func GenerateConfigs(js *JobSystem, generators ...func() *GeometryConfig) []*GeometryConfig {
	out := make([]*GeometryConfig, len(generators))
	for i, gen := range generators {
		i, gen := i, gen
		js.Submit(JobTask{
			Name: fmt.Sprintf("geometry %d", i),
			Run: func() error {
				out[i] = gen()
				if out[i] == nil {
					return fmt.Errorf("generator %d returned no geometry", i)
				}
				return nil
			},
		})
	}
	js.Wait()
	return out
}
