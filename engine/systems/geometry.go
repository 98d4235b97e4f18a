package systems

import (
	"fmt"
	"unsafe"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
)

type GeometrySystemConfig struct {
	/** @brief The maximum number of meshes that can be registered at once. */
	MaxGeometryCount uint32
}

// GeometrySystem is the geometry catalog. Meshes are stored in an arena and
// referenced everywhere else by MeshID.
type GeometrySystem struct {
	Config *GeometrySystemConfig
	// Array of registered meshes, indexed by MeshID.
	RegisteredGeometries []*metadata.MeshGeometry
	// Hashtable for name lookups.
	RegisteredGeometryTable map[string]metadata.MeshID
	device                  gpu.Device
}

func NewGeometrySystem(config *GeometrySystemConfig, device gpu.Device) (*GeometrySystem, error) {
	if config.MaxGeometryCount == 0 {
		err := fmt.Errorf("func NewGeometrySystem - config.MaxGeometryCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	return &GeometrySystem{
		Config:                  config,
		RegisteredGeometries:    make([]*metadata.MeshGeometry, 0, config.MaxGeometryCount),
		RegisteredGeometryTable: make(map[string]metadata.MeshID),
		device:                  device,
	}, nil
}

/**
 * @brief Uploads the geometry described by config and registers it.
 * Every submesh of the config shares the same vertex and index buffers.
 */
func (gs *GeometrySystem) Create(config *GeometryConfig) (*metadata.MeshGeometry, error) {
	if _, ok := gs.RegisteredGeometryTable[config.Name]; ok {
		return nil, fmt.Errorf("geometry '%s' already registered", config.Name)
	}
	if uint32(len(gs.RegisteredGeometries)) >= gs.Config.MaxGeometryCount {
		err := fmt.Errorf("%w: geometry '%s', max %d", core.ErrCapacityExceeded, config.Name, gs.Config.MaxGeometryCount)
		core.LogWarn(err.Error())
		return nil, err
	}
	if len(config.Vertices) == 0 || len(config.Indices) == 0 {
		return nil, fmt.Errorf("geometry '%s' has no vertices or indices", config.Name)
	}

	vertexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&config.Vertices[0])), len(config.Vertices)*int(unsafe.Sizeof(metadata.Vertex{})))
	vb, err := gs.device.CreateBuffer(config.Name+"_vertices", vertexBytes)
	if err != nil {
		return nil, err
	}
	indexBytes := unsafe.Slice((*byte)(unsafe.Pointer(&config.Indices[0])), len(config.Indices)*4)
	ib, err := gs.device.CreateBuffer(config.Name+"_indices", indexBytes)
	if err != nil {
		gs.device.Release(vb)
		return nil, err
	}

	submeshes := config.Submeshes
	if len(submeshes) == 0 {
		submeshes = map[string]metadata.Submesh{
			config.Name: {IndexCount: uint32(len(config.Indices)), Bounds: config.Bounds()},
		}
	}

	g := &metadata.MeshGeometry{
		ID:           metadata.MeshID(len(gs.RegisteredGeometries)),
		Name:         config.Name,
		VertexBuffer: vb,
		IndexBuffer:  ib,
		VertexStride: uint32(unsafe.Sizeof(metadata.Vertex{})),
		IndexFormat:  gpu.FormatR32Uint,
		Topology:     gpu.TopologyTriangleList,
		Submeshes:    submeshes,
	}
	gs.RegisteredGeometries = append(gs.RegisteredGeometries, g)
	gs.RegisteredGeometryTable[g.Name] = g.ID
	core.LogDebug("geometry '%s' registered with id %d (%d vertices, %d indices)", g.Name, g.ID, len(config.Vertices), len(config.Indices))
	return g, nil
}

func (gs *GeometrySystem) Get(id metadata.MeshID) (*metadata.MeshGeometry, error) {
	if int(id) >= len(gs.RegisteredGeometries) {
		return nil, fmt.Errorf("%w: mesh id %d", core.ErrUnknownMesh, id)
	}
	return gs.RegisteredGeometries[id], nil
}

func (gs *GeometrySystem) GetByName(name string) (*metadata.MeshGeometry, error) {
	id, ok := gs.RegisteredGeometryTable[name]
	if !ok {
		return nil, fmt.Errorf("%w: mesh '%s'", core.ErrUnknownMesh, name)
	}
	return gs.RegisteredGeometries[id], nil
}

/** @brief Looks up a named index range of a mesh. */
func (gs *GeometrySystem) Submesh(id metadata.MeshID, name string) (metadata.Submesh, error) {
	g, err := gs.Get(id)
	if err != nil {
		return metadata.Submesh{}, err
	}
	sm, ok := g.Submeshes[name]
	if !ok {
		return metadata.Submesh{}, fmt.Errorf("%w: submesh '%s' of '%s'", core.ErrUnknownMesh, name, g.Name)
	}
	return sm, nil
}

func (gs *GeometrySystem) Count() int {
	return len(gs.RegisteredGeometries)
}

func (gs *GeometrySystem) Shutdown() error {
	for _, g := range gs.RegisteredGeometries {
		gs.device.Release(g.VertexBuffer)
		gs.device.Release(g.IndexBuffer)
	}
	gs.RegisteredGeometries = nil
	gs.RegisteredGeometryTable = make(map[string]metadata.MeshID)
	return nil
}
