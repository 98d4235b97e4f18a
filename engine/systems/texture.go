package systems

import (
	"fmt"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
)

/** @brief The name of the default texture, always at index 0 of the texture table. */
const DefaultTextureName string = "default"

type TextureSystemConfig struct {
	/** @brief The maximum number of 2D textures in the shader texture table. */
	MaxTextureCount uint32
}

/** @brief A registered texture. */
type Texture struct {
	Name     string
	Resource gpu.Texture
	/** @brief Position in the texture table, metadata.InvalidID for cube maps. */
	Index uint32
}

// TextureSystem keeps every texture by name. 2D textures get a slot of the
// texture table bound by the main pass; cube maps are bound on their own.
type TextureSystem struct {
	Config *TextureSystemConfig
	// Hashtable for texture lookups.
	RegisteredTextureTable map[string]*Texture
	table                  *DescriptorRange
	next                   uint32
	device                 gpu.Device
}

func NewTextureSystem(config *TextureSystemConfig, device gpu.Device, ds *DescriptorSystem) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	table, err := ds.Reserve("textures", gpu.HeapShaderResource, int(config.MaxTextureCount))
	if err != nil {
		return nil, err
	}
	ts := &TextureSystem{
		Config:                 config,
		RegisteredTextureTable: make(map[string]*Texture),
		table:                  table,
		device:                 device,
	}

	// Create default textures for use in the system.
	if _, err := ts.Create(gpu.TextureDesc{
		Name:        DefaultTextureName,
		Width:       1,
		Height:      1,
		Format:      gpu.FormatRGBA8Unorm,
		InitialData: []byte{255, 255, 255, 255},
	}); err != nil {
		return nil, err
	}
	return ts, nil
}

/**
 * @brief Creates a texture from desc. Decoding image files is the caller's
 * job, the pixels arrive already in desc.InitialData.
 */
func (ts *TextureSystem) Create(desc gpu.TextureDesc) (*Texture, error) {
	if _, ok := ts.RegisteredTextureTable[desc.Name]; ok {
		return nil, fmt.Errorf("texture '%s' already registered", desc.Name)
	}
	cube := desc.Dimension == gpu.DimensionTextureCube
	if !cube && ts.next >= ts.Config.MaxTextureCount {
		err := fmt.Errorf("%w: texture '%s', max %d", core.ErrCapacityExceeded, desc.Name, ts.Config.MaxTextureCount)
		core.LogWarn(err.Error())
		return nil, err
	}

	res, err := ts.device.CreateTexture(desc, gpu.StateGenericRead)
	if err != nil {
		return nil, err
	}
	t := &Texture{Name: desc.Name, Resource: res, Index: metadata.InvalidID}
	if !cube {
		if err := ts.device.CreateView(gpu.ViewShaderResource, res, ts.table.CPU(int(ts.next))); err != nil {
			ts.device.Release(res)
			return nil, err
		}
		t.Index = ts.next
		ts.next++
	}
	ts.RegisteredTextureTable[t.Name] = t
	return t, nil
}

func (ts *TextureSystem) Get(name string) (*Texture, error) {
	t, ok := ts.RegisteredTextureTable[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", core.ErrUnknownTexture, name)
	}
	return t, nil
}

// Index resolves a texture name to its table slot. The empty name is the
// default texture.
func (ts *TextureSystem) Index(name string) (uint32, error) {
	if name == "" {
		name = DefaultTextureName
	}
	t, err := ts.Get(name)
	if err != nil {
		return 0, err
	}
	if t.Index == metadata.InvalidID {
		return 0, fmt.Errorf("texture '%s' is not in the texture table", name)
	}
	return t.Index, nil
}

/** @brief The descriptor range holding the texture table. */
func (ts *TextureSystem) Table() *DescriptorRange {
	return ts.table
}

func (ts *TextureSystem) Count() int {
	return len(ts.RegisteredTextureTable)
}

func (ts *TextureSystem) Shutdown() error {
	for _, t := range ts.RegisteredTextureTable {
		ts.device.Release(t.Resource)
	}
	ts.RegisteredTextureTable = make(map[string]*Texture)
	ts.next = 0
	return nil
}
