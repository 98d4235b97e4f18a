package passes

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/math"
	"github.com/spaghettifunk/triframe/engine/renderer/components"
	"github.com/spaghettifunk/triframe/engine/renderer/frame"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
	"github.com/spaghettifunk/triframe/engine/systems"
)

// ShadowPass renders the depth of the scene as seen by the first light
// into the shadow map. The map rests in GENERIC_READ.
type ShadowPass struct {
	settings  *Settings
	size      uint32
	shadowMap gpu.Texture
	dsv       gpu.CPUHandle
	viewport  gpu.Viewport
	scissor   gpu.Rect

	lightView       mgl32.Mat4
	lightProj       mgl32.Mat4
	shadowTransform mgl32.Mat4
	lightPos        mgl32.Vec3
	nearZ, farZ     float32
}

func NewShadowPass(device gpu.Device, sm *systems.SystemManager, settings *Settings, size uint32, sceneMaps *systems.DescriptorRange) (*ShadowPass, error) {
	shadowMap, err := device.CreateTexture(gpu.TextureDesc{
		Name:         "shadow_map",
		Width:        size,
		Height:       size,
		Format:       ShadowMapFormat,
		DepthStencil: true,
	}, gpu.StateGenericRead)
	if err != nil {
		return nil, err
	}
	dsvs, err := sm.Descriptors().Reserve("shadow_dsv", gpu.HeapDepthStencil, 1)
	if err != nil {
		return nil, err
	}
	if err := device.CreateView(gpu.ViewDepthStencil, shadowMap, dsvs.CPU(0)); err != nil {
		return nil, err
	}
	if err := device.CreateView(gpu.ViewShaderResource, shadowMap, sceneMaps.CPU(SceneMapShadow)); err != nil {
		return nil, err
	}

	p := &ShadowPass{
		settings:        settings,
		size:            size,
		shadowMap:       shadowMap,
		dsv:             dsvs.CPU(0),
		lightView:       mgl32.Ident4(),
		lightProj:       mgl32.Ident4(),
		shadowTransform: mgl32.Ident4(),
	}
	p.viewport, p.scissor = fullViewport(size, size)
	return p, nil
}

func (p *ShadowPass) Kind() Kind {
	return KindShadow
}

// Update fits an orthographic light frustum around the scene bounds and
// writes the shadow pass constants. The camera does not matter here.
func (p *ShadowPass) Update(slot *frame.Slot, _ *components.Camera) error {
	p.updateTransform()

	pc := passConstants(p.lightView, p.lightProj, p.lightPos, p.size, p.size, p.nearZ, p.farZ)
	pc.TotalTime = p.settings.TotalTime
	pc.DeltaTime = p.settings.DeltaTime
	return slot.Passes.Write(frame.PassShadow, &pc)
}

func (p *ShadowPass) updateTransform() {
	bounds := p.settings.SceneBounds
	dir := p.settings.LightDirection(0)

	p.lightPos = bounds.Center.Sub(dir.Mul(2 * bounds.Radius))
	up := mgl32.Vec3{0, 1, 0}
	if math.Abs(dir.Dot(up)) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	p.lightView = mgl32.LookAtV(p.lightPos, bounds.Center, up)

	// scene sphere in light space
	c := mgl32.TransformCoordinate(bounds.Center, p.lightView)
	r := bounds.Radius
	p.nearZ = -c.Z() - r
	p.farZ = -c.Z() + r
	p.lightProj = math.Ortho(c.X()-r, c.X()+r, c.Y()-r, c.Y()+r, p.nearZ, p.farZ)

	p.shadowTransform = math.NDCToTexture.Mul4(p.lightProj).Mul4(p.lightView)
}

func (p *ShadowPass) Render(ctx *RenderContext) error {
	cmd := ctx.Commands
	pso, err := ctx.Systems.Pipelines().Get(PipelineShadow)
	if err != nil {
		return err
	}

	cmd.SetViewports(p.viewport)
	cmd.SetScissorRects(p.scissor)

	cmd.ResourceBarrier(transition(p.shadowMap, gpu.StateGenericRead, gpu.StateDepthWrite))
	cmd.ClearDepthStencilView(p.dsv, gpu.ClearDepth|gpu.ClearStencil, 1.0, 0)
	// depth only
	cmd.SetRenderTargets(nil, &p.dsv)

	cmd.SetGraphicsRootSignature(ctx.Root)
	cmd.SetGraphicsRootConstantBufferView(RootPass, ctx.Slot.Passes.Address(frame.PassShadow))
	cmd.SetPipelineState(pso)

	scene := ctx.Systems.Scene()
	if err := drawItems(ctx, scene.Layer(metadata.RenderLayerOpaque)); err != nil {
		return err
	}
	if err := drawItems(ctx, scene.Layer(metadata.RenderLayerTransparent)); err != nil {
		return err
	}

	cmd.ResourceBarrier(transition(p.shadowMap, gpu.StateDepthWrite, gpu.StateGenericRead))
	return nil
}

// ShadowTransform maps world space to shadow map texture space, column major.
func (p *ShadowPass) ShadowTransform() mgl32.Mat4 {
	return p.shadowTransform
}

func (p *ShadowPass) LightPosition() mgl32.Vec3 {
	return p.lightPos
}

func (p *ShadowPass) ShadowMap() gpu.Texture {
	return p.shadowMap
}

func (p *ShadowPass) Release(device gpu.Device) {
	device.Release(p.shadowMap)
}
