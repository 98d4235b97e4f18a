package systems

import (
	"runtime"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

// Descriptors kept aside for render targets owned by the passes.
const (
	reservedShaderResources = 16
	reservedRenderTargets   = 8
	reservedDepthStencils   = 4
)

// SystemManager is the context handed to every pass: the catalogs and the
// scene item table for one device.
type SystemManager struct {
	jobSystem        *JobSystem
	geometrySystem   *GeometrySystem
	materialSystem   *MaterialSystem
	pipelineSystem   *PipelineSystem
	descriptorSystem *DescriptorSystem
	textureSystem    *TextureSystem
	sceneSystem      *SceneSystem
}

func NewSystemManager(device gpu.Device, config *core.Config) (*SystemManager, error) {
	frames := int(config.Pipeline.RingDepth)

	js, err := NewJobSystem(runtime.NumCPU(), 64)
	if err != nil {
		return nil, err
	}

	ds, err := NewDescriptorSystem(&DescriptorSystemConfig{
		ShaderResourceCount: int(config.Pipeline.MaxTextures) + reservedShaderResources,
		RenderTargetCount:   reservedRenderTargets,
		DepthStencilCount:   reservedDepthStencils,
	}, device)
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: config.Pipeline.MaxTextures,
	}, device, ds)
	if err != nil {
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MaxMaterialCount: config.Pipeline.MaxMaterials,
		FrameCount:       frames,
	}, ts)
	if err != nil {
		return nil, err
	}
	gs, err := NewGeometrySystem(&GeometrySystemConfig{
		MaxGeometryCount: 64,
	}, device)
	if err != nil {
		return nil, err
	}
	ps, err := NewPipelineSystem(&PipelineSystemConfig{
		MaxPipelineCount: 32,
	}, device)
	if err != nil {
		return nil, err
	}
	ss, err := NewSceneSystem(&SceneSystemConfig{
		MaxItemCount: config.Pipeline.MaxObjects,
		FrameCount:   frames,
	}, gs, ms)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		jobSystem:        js,
		geometrySystem:   gs,
		materialSystem:   ms,
		pipelineSystem:   ps,
		descriptorSystem: ds,
		textureSystem:    ts,
		sceneSystem:      ss,
	}, nil
}

func (sm *SystemManager) Jobs() *JobSystem {
	return sm.jobSystem
}

func (sm *SystemManager) Geometry() *GeometrySystem {
	return sm.geometrySystem
}

func (sm *SystemManager) Materials() *MaterialSystem {
	return sm.materialSystem
}

func (sm *SystemManager) Pipelines() *PipelineSystem {
	return sm.pipelineSystem
}

func (sm *SystemManager) Descriptors() *DescriptorSystem {
	return sm.descriptorSystem
}

func (sm *SystemManager) Textures() *TextureSystem {
	return sm.textureSystem
}

func (sm *SystemManager) Scene() *SceneSystem {
	return sm.sceneSystem
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.sceneSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.geometrySystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.materialSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.pipelineSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.textureSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.descriptorSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.jobSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
