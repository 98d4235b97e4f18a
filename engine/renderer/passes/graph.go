package passes

import (
	"fmt"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/components"
	"github.com/spaghettifunk/triframe/engine/renderer/frame"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/systems"
)

// Graph owns the three passes and runs them in their fixed order.
type Graph struct {
	device    gpu.Device
	systems   *systems.SystemManager
	root      gpu.RootSignature
	sceneMaps *systems.DescriptorRange

	shadow    *ShadowPass
	occlusion *OcclusionPass
	main      *MainPass
	order     [3]Pass
}

// NewGraph creates the pipelines, the shared descriptors and the passes.
// depth is the scene depth buffer, resting in DEPTH_READ.
func NewGraph(device gpu.Device, sm *systems.SystemManager, settings *Settings, cfg *core.Config, depth gpu.Texture) (*Graph, error) {
	width, height := device.Swapchain().Size()

	if err := CreatePipelines(sm.Pipelines(), device.Swapchain().Format(), cfg.Pipeline.MaxTextures); err != nil {
		return nil, fmt.Errorf("pipelines: %w", err)
	}
	root, err := sm.Pipelines().RootSignature(MainRootSignature)
	if err != nil {
		return nil, err
	}
	sceneMaps, err := sm.Descriptors().Reserve("scene_maps", gpu.HeapShaderResource, SceneMapCount)
	if err != nil {
		return nil, err
	}

	shadow, err := NewShadowPass(device, sm, settings, cfg.Shadow.MapSize, sceneMaps)
	if err != nil {
		return nil, fmt.Errorf("shadow pass: %w", err)
	}
	occlusion, err := NewOcclusionPass(device, sm, settings, sceneMaps, width, height, depth)
	if err != nil {
		return nil, fmt.Errorf("occlusion pass: %w", err)
	}
	main := NewMainPass(settings, shadow, width, height)

	g := &Graph{
		device:    device,
		systems:   sm,
		root:      root,
		sceneMaps: sceneMaps,
		shadow:    shadow,
		occlusion: occlusion,
		main:      main,
	}
	g.order = [3]Pass{shadow, occlusion, main}
	return g, nil
}

// SetSky binds the environment cube map sampled by the sky layer.
func (g *Graph) SetSky(cube gpu.Texture) error {
	return g.device.CreateView(gpu.ViewShaderResource, cube, g.sceneMaps.CPU(SceneMapSky))
}

func (g *Graph) Update(slot *frame.Slot, camera *components.Camera) error {
	for _, p := range g.order {
		if err := p.Update(slot, camera); err != nil {
			return fmt.Errorf("%s pass update: %w", p.Kind(), err)
		}
	}
	return nil
}

// Render records every pass into ctx.Commands.
func (g *Graph) Render(ctx *RenderContext) error {
	ctx.Root = g.root
	ctx.SceneMaps = g.sceneMaps
	if ctx.Systems == nil {
		ctx.Systems = g.systems
	}

	ctx.Commands.SetDescriptorHeaps(g.systems.Descriptors().Heap(gpu.HeapShaderResource))
	ctx.Commands.SetGraphicsRootSignature(g.root)
	for _, p := range g.order {
		if err := p.Render(ctx); err != nil {
			return fmt.Errorf("%s pass: %w", p.Kind(), err)
		}
	}
	return nil
}

// OnResize forwards the new size to the passes owning screen sized targets.
// The GPU must be idle.
func (g *Graph) OnResize(width, height uint32, depth gpu.Texture) error {
	for _, p := range g.order {
		if r, ok := p.(Resizer); ok {
			if err := r.OnResize(width, height, depth); err != nil {
				return fmt.Errorf("%s pass resize: %w", p.Kind(), err)
			}
		}
	}
	return nil
}

// Passes returns the passes in execution order.
func (g *Graph) Passes() []Pass {
	return g.order[:]
}

func (g *Graph) Shadow() *ShadowPass {
	return g.shadow
}

func (g *Graph) Occlusion() *OcclusionPass {
	return g.occlusion
}

func (g *Graph) Main() *MainPass {
	return g.main
}

func (g *Graph) Release() {
	g.shadow.Release(g.device)
	g.occlusion.Release()
}
