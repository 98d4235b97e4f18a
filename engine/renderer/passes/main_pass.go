package passes

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/renderer/components"
	"github.com/spaghettifunk/triframe/engine/renderer/frame"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
)

// Number of directional lights written to the main pass, light 0 casts shadows.
const DirectionalLightCount = 3

// MainPass shades the scene into the back buffer. It reuses the depth laid
// down by the occlusion pass, so only the color target is cleared.
type MainPass struct {
	settings   *Settings
	shadow     *ShadowPass
	width      uint32
	height     uint32
	ClearColor [4]float32
}

func NewMainPass(settings *Settings, shadow *ShadowPass, width, height uint32) *MainPass {
	return &MainPass{
		settings:   settings,
		shadow:     shadow,
		width:      width,
		height:     height,
		ClearColor: [4]float32{0.69, 0.77, 0.87, 1},
	}
}

func (p *MainPass) Kind() Kind {
	return KindMain
}

func (p *MainPass) OnResize(width, height uint32, _ gpu.Texture) error {
	p.width, p.height = width, height
	return nil
}

func (p *MainPass) Update(slot *frame.Slot, camera *components.Camera) error {
	pc := passConstants(camera.GetView(), camera.GetProjection(), camera.GetPosition(), p.width, p.height, camera.NearZ, camera.FarZ)
	pc.ShadowTransform = p.shadow.ShadowTransform().Transpose()
	pc.TotalTime = p.settings.TotalTime
	pc.DeltaTime = p.settings.DeltaTime
	pc.AmbientLight = mgl32.Vec4(p.settings.Lighting.Ambient)
	for i := 0; i < DirectionalLightCount; i++ {
		pc.Lights[i].Direction = p.settings.LightDirection(i)
		pc.Lights[i].Strength = mgl32.Vec3(p.settings.Lighting.Strengths[i])
	}
	return slot.Passes.Write(frame.PassMain, &pc)
}

func (p *MainPass) Render(ctx *RenderContext) error {
	cmd := ctx.Commands
	pipelines := ctx.Systems.Pipelines()
	scene := ctx.Systems.Scene()

	cmd.SetViewports(ctx.Viewport)
	cmd.SetScissorRects(ctx.Scissor)

	cmd.ResourceBarrier(
		transition(ctx.BackBuffer, gpu.StatePresent, gpu.StateRenderTarget),
		transition(ctx.DepthBuffer, gpu.StateDepthRead, gpu.StateDepthWrite),
	)
	cmd.ClearRenderTargetView(ctx.BackBufferView, p.ClearColor)
	cmd.SetRenderTargets([]gpu.CPUHandle{ctx.BackBufferView}, &ctx.DepthView)

	cmd.SetGraphicsRootSignature(ctx.Root)
	cmd.SetGraphicsRootShaderResourceView(RootMaterials, ctx.Slot.Materials.Resource().GPUAddress())
	cmd.SetGraphicsRootConstantBufferView(RootPass, ctx.Slot.Passes.Address(frame.PassMain))
	cmd.SetGraphicsRootDescriptorTable(RootSceneMaps, ctx.SceneMaps.GPU(SceneMapSky))
	cmd.SetGraphicsRootDescriptorTable(RootTextures, ctx.Systems.Textures().Table().GPU(0))

	for layer := metadata.RenderLayerOpaque; layer < metadata.RenderLayerCount; layer++ {
		if layer == metadata.RenderLayerDebug && !p.settings.DrawDebugLayer {
			continue
		}
		items := scene.Layer(layer)
		if len(items) == 0 {
			continue
		}
		pso, err := pipelines.Get(layerPipelines[layer])
		if err != nil {
			return err
		}
		cmd.SetPipelineState(pso)
		if err := drawItems(ctx, items); err != nil {
			return err
		}
	}

	cmd.ResourceBarrier(
		transition(ctx.BackBuffer, gpu.StateRenderTarget, gpu.StatePresent),
		transition(ctx.DepthBuffer, gpu.StateDepthWrite, gpu.StateDepthRead),
	)
	return nil
}

var _ Resizer = (*MainPass)(nil)
var _ Resizer = (*OcclusionPass)(nil)
