package metadata

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/math"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

/** @brief Stable index of a mesh in the geometry catalog. */
type MeshID uint32

/** @brief Stable index of a material in the material catalog and the material buffer. */
type MaterialID uint32

const InvalidID uint32 = 4294967295

/**
 * @brief A named range inside a mesh's shared vertex and index buffers.
 */
type Submesh struct {
	IndexCount uint32
	StartIndex uint32
	BaseVertex int32
	/** @brief Local space bounds, used for picking. */
	Bounds math.Extents3D
}

/**
 * @brief Vertex and index buffers shared by several submeshes.
 */
type MeshGeometry struct {
	ID           MeshID
	Name         string
	VertexBuffer gpu.Buffer
	IndexBuffer  gpu.Buffer
	VertexStride uint32
	IndexFormat  gpu.Format
	Topology     gpu.Topology
	Submeshes    map[string]Submesh
}

func (g *MeshGeometry) VertexBufferView() gpu.VertexBufferView {
	return gpu.VertexBufferView{
		Location:      g.VertexBuffer.GPUAddress(),
		SizeInBytes:   uint32(g.VertexBuffer.Size()),
		StrideInBytes: g.VertexStride,
	}
}

func (g *MeshGeometry) IndexBufferView() gpu.IndexBufferView {
	return gpu.IndexBufferView{
		Location:    g.IndexBuffer.GPUAddress(),
		SizeInBytes: uint32(g.IndexBuffer.Size()),
		Format:      g.IndexFormat,
	}
}

/** @brief The vertex layout shared by every lit pipeline. */
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexC     mgl32.Vec2
	TangentU mgl32.Vec3
}
