package systems

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/frame"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

type MaterialSystemConfig struct {
	/** @brief The maximum number of materials, also the size of the material buffer. */
	MaxMaterialCount uint32
	/** @brief Number of frame slots; a change must reach every one of them. */
	FrameCount int
}

// MaterialSystem is the material catalog. A material's ID is its index in
// every frame's material buffer.
type MaterialSystem struct {
	Config *MaterialSystemConfig
	// Array of registered materials, indexed by MaterialID.
	RegisteredMaterials []*metadata.Material
	// Hashtable for material lookups.
	RegisteredMaterialTable map[string]metadata.MaterialID
	textureSystem           *TextureSystem
}

func NewMaterialSystem(config *MaterialSystemConfig, ts *TextureSystem) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if config.FrameCount <= 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.FrameCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	ms := &MaterialSystem{
		Config:                  config,
		RegisteredMaterials:     make([]*metadata.Material, 0, config.MaxMaterialCount),
		RegisteredMaterialTable: make(map[string]metadata.MaterialID),
		textureSystem:           ts,
	}
	if _, err := ms.Create(&metadata.MaterialConfig{
		Name:          DefaultMaterialName,
		DiffuseAlbedo: mgl32.Vec4{1, 1, 1, 1},
		FresnelR0:     mgl32.Vec3{0.01, 0.01, 0.01},
		Roughness:     0.5,
		Transform:     mgl32.Ident4(),
	}); err != nil {
		return nil, err
	}
	return ms, nil
}

// Create registers a material. It starts dirty in every frame slot.
func (ms *MaterialSystem) Create(config *metadata.MaterialConfig) (*metadata.Material, error) {
	if _, ok := ms.RegisteredMaterialTable[config.Name]; ok {
		return nil, fmt.Errorf("material '%s' already registered", config.Name)
	}
	if uint32(len(ms.RegisteredMaterials)) >= ms.Config.MaxMaterialCount {
		err := fmt.Errorf("%w: material '%s', max %d", core.ErrCapacityExceeded, config.Name, ms.Config.MaxMaterialCount)
		core.LogWarn(err.Error())
		return nil, err
	}

	m := &metadata.Material{
		ID:            metadata.MaterialID(len(ms.RegisteredMaterials)),
		Name:          config.Name,
		DiffuseAlbedo: config.DiffuseAlbedo,
		FresnelR0:     config.FresnelR0,
		Roughness:     config.Roughness,
		Transform:     config.Transform,
		DirtyCount:    ms.Config.FrameCount,
	}
	if m.Transform == (mgl32.Mat4{}) {
		m.Transform = mgl32.Ident4()
	}
	if ms.textureSystem != nil {
		var err error
		if m.DiffuseMapIndex, err = ms.textureSystem.Index(config.DiffuseMapName); err != nil {
			return nil, err
		}
		if m.NormalMapIndex, err = ms.textureSystem.Index(config.NormalMapName); err != nil {
			return nil, err
		}
	}

	ms.RegisteredMaterials = append(ms.RegisteredMaterials, m)
	ms.RegisteredMaterialTable[m.Name] = m.ID
	return m, nil
}

func (ms *MaterialSystem) Get(id metadata.MaterialID) (*metadata.Material, error) {
	if int(id) >= len(ms.RegisteredMaterials) {
		return nil, fmt.Errorf("%w: material id %d", core.ErrUnknownMaterial, id)
	}
	return ms.RegisteredMaterials[id], nil
}

func (ms *MaterialSystem) GetByName(name string) (*metadata.Material, error) {
	id, ok := ms.RegisteredMaterialTable[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", core.ErrUnknownMaterial, name)
	}
	return ms.RegisteredMaterials[id], nil
}

func (ms *MaterialSystem) GetDefault() *metadata.Material {
	return ms.RegisteredMaterials[0]
}

// Update applies fn to the material and marks it dirty in every frame slot.
func (ms *MaterialSystem) Update(id metadata.MaterialID, fn func(m *metadata.Material)) error {
	m, err := ms.Get(id)
	if err != nil {
		return err
	}
	fn(m)
	m.DirtyCount = ms.Config.FrameCount
	return nil
}

// RefreshDirty writes every material still stale in the current frame slot
// into region and returns how many were written.
func (ms *MaterialSystem) RefreshDirty(region *frame.UploadRegion[metadata.MaterialData]) (int, error) {
	written := 0
	for _, m := range ms.RegisteredMaterials {
		if m.DirtyCount <= 0 {
			continue
		}
		data := metadata.MaterialData{
			DiffuseAlbedo:   m.DiffuseAlbedo,
			FresnelR0:       m.FresnelR0,
			Roughness:       m.Roughness,
			MatTransform:    m.Transform.Transpose(),
			DiffuseMapIndex: m.DiffuseMapIndex,
			NormalMapIndex:  m.NormalMapIndex,
		}
		if err := region.Write(uint32(m.ID), &data); err != nil {
			return written, err
		}
		m.DirtyCount--
		written++
	}
	return written, nil
}

func (ms *MaterialSystem) Count() int {
	return len(ms.RegisteredMaterials)
}

func (ms *MaterialSystem) Shutdown() error {
	ms.RegisteredMaterials = nil
	ms.RegisteredMaterialTable = make(map[string]metadata.MaterialID)
	return nil
}
