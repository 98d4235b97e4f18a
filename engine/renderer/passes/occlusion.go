package passes

import (
	"fmt"
	stdmath "math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/math"
	"github.com/spaghettifunk/triframe/engine/renderer/components"
	"github.com/spaghettifunk/triframe/engine/renderer/frame"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
	"github.com/spaghettifunk/triframe/engine/systems"
)

// Positions inside the occlusion descriptor ranges.
const (
	occlusionNormal = iota
	occlusionDepth
	occlusionAmbient0
	occlusionAmbient1
)

// OcclusionPass computes screen space ambient occlusion in two stages: the
// opaque layer's view space normals and depth, then occlusion from those
// followed by a separable blur. The result is left in ambient map 0, read
// by the main pass. The ambient maps are half resolution.
type OcclusionPass struct {
	device   gpu.Device
	settings *Settings

	normalMap gpu.Texture
	ambient   [2]gpu.Texture
	// normal, ambient0, ambient1
	rtvs *systems.DescriptorRange
	// normal, depth, ambient0, ambient1
	srvs      *systems.DescriptorRange
	sceneMaps *systems.DescriptorRange

	width, height uint32
	viewport      gpu.Viewport
	scissor       gpu.Rect
	halfViewport  gpu.Viewport
	halfScissor   gpu.Rect

	rng     *rand.Rand
	offsets [metadata.OcclusionSampleCount]mgl32.Vec4
	weights []float32
}

func NewOcclusionPass(device gpu.Device, sm *systems.SystemManager, settings *Settings, sceneMaps *systems.DescriptorRange, width, height uint32, depth gpu.Texture) (*OcclusionPass, error) {
	rtvs, err := sm.Descriptors().Reserve("occlusion_rtv", gpu.HeapRenderTarget, 3)
	if err != nil {
		return nil, err
	}
	srvs, err := sm.Descriptors().Reserve("occlusion_srv", gpu.HeapShaderResource, 4)
	if err != nil {
		return nil, err
	}
	p := &OcclusionPass{
		device:    device,
		settings:  settings,
		rtvs:      rtvs,
		srvs:      srvs,
		sceneMaps: sceneMaps,
		rng:       rand.New(rand.NewSource(1)),
	}
	if err := p.OnResize(width, height, depth); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *OcclusionPass) Kind() Kind {
	return KindOcclusion
}

// OnResize recreates the targets and their views, then rebuilds the sample
// kernel and the blur weights.
func (p *OcclusionPass) OnResize(width, height uint32, depth gpu.Texture) error {
	p.Release()

	p.width, p.height = width, height
	p.viewport, p.scissor = fullViewport(width, height)
	p.halfViewport, p.halfScissor = fullViewport(p.ambientSize())

	var err error
	p.normalMap, err = p.device.CreateTexture(gpu.TextureDesc{
		Name:         "normal_map",
		Width:        width,
		Height:       height,
		Format:       NormalFormat,
		RenderTarget: true,
		ClearColor:   [4]float32{0, 0, 1, 0},
	}, gpu.StateGenericRead)
	if err != nil {
		return err
	}
	aw, ah := p.ambientSize()
	for i := range p.ambient {
		p.ambient[i], err = p.device.CreateTexture(gpu.TextureDesc{
			Name:         fmt.Sprintf("ambient_map_%d", i),
			Width:        aw,
			Height:       ah,
			Format:       AmbientFormat,
			RenderTarget: true,
			ClearColor:   [4]float32{1, 1, 1, 1},
		}, gpu.StateGenericRead)
		if err != nil {
			return err
		}
	}

	views := []struct {
		kind gpu.ViewKind
		res  gpu.Resource
		at   gpu.CPUHandle
	}{
		{gpu.ViewRenderTarget, p.normalMap, p.rtvs.CPU(0)},
		{gpu.ViewRenderTarget, p.ambient[0], p.rtvs.CPU(1)},
		{gpu.ViewRenderTarget, p.ambient[1], p.rtvs.CPU(2)},
		{gpu.ViewShaderResource, p.normalMap, p.srvs.CPU(occlusionNormal)},
		{gpu.ViewShaderResource, depth, p.srvs.CPU(occlusionDepth)},
		{gpu.ViewShaderResource, p.ambient[0], p.srvs.CPU(occlusionAmbient0)},
		{gpu.ViewShaderResource, p.ambient[1], p.srvs.CPU(occlusionAmbient1)},
		{gpu.ViewShaderResource, p.ambient[0], p.sceneMaps.CPU(SceneMapAmbient)},
	}
	for _, v := range views {
		if err := p.device.CreateView(v.kind, v.res, v.at); err != nil {
			return err
		}
	}

	p.buildOffsets()
	p.weights = GaussianWeights(p.settings.Occlusion.BlurSigma)
	return nil
}

func (p *OcclusionPass) ambientSize() (uint32, uint32) {
	w, h := p.width/2, p.height/2
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}
	return w, h
}

// buildOffsets spreads the samples over the 8 cube corners and the 6 face
// centers, each with a random length in [0.25, 1].
func (p *OcclusionPass) buildOffsets() {
	dirs := [metadata.OcclusionSampleCount]mgl32.Vec3{
		{+1, +1, +1}, {-1, -1, -1},
		{-1, +1, +1}, {+1, -1, -1},
		{+1, +1, -1}, {-1, -1, +1},
		{-1, +1, -1}, {+1, -1, +1},
		{-1, 0, 0}, {+1, 0, 0},
		{0, -1, 0}, {0, +1, 0},
		{0, 0, -1}, {0, 0, +1},
	}
	for i, d := range dirs {
		s := 0.25 + 0.75*p.rng.Float32()
		p.offsets[i] = d.Normalize().Mul(s).Vec4(0)
	}
}

// GaussianWeights returns 2r+1 normalized weights, r = ceil(2 sigma)
// capped at metadata.MaxBlurRadius.
func GaussianWeights(sigma float32) []float32 {
	if sigma <= 0 {
		return []float32{1}
	}
	twoSigma2 := 2 * float64(sigma) * float64(sigma)
	radius := int(stdmath.Ceil(2 * float64(sigma)))
	radius = math.Clamp(radius, 0, metadata.MaxBlurRadius)

	weights := make([]float32, 2*radius+1)
	var sum float32
	for i := -radius; i <= radius; i++ {
		x := float64(i)
		weights[i+radius] = float32(stdmath.Exp(-x * x / twoSigma2))
		sum += weights[i+radius]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

func (p *OcclusionPass) Update(slot *frame.Slot, camera *components.Camera) error {
	proj := camera.GetProjection()
	aw, ah := p.ambientSize()
	oc := metadata.OcclusionConstants{
		Proj:                proj.Transpose(),
		InvProj:             proj.Inv().Transpose(),
		ProjTex:             math.NDCToTexture.Mul4(proj).Transpose(),
		OffsetVectors:       p.offsets,
		InvRenderTargetSize: mgl32.Vec2{1 / float32(aw), 1 / float32(ah)},
		OcclusionRadius:     p.settings.Occlusion.Radius,
		OcclusionFadeStart:  p.settings.Occlusion.FadeStart,
		OcclusionFadeEnd:    p.settings.Occlusion.FadeEnd,
		SurfaceEpsilon:      p.settings.Occlusion.SurfaceEpsilon,
	}
	for i, w := range p.weights {
		oc.BlurWeights[i/4][i%4] = w
	}
	return slot.Occlusion.Write(0, &oc)
}

func (p *OcclusionPass) Render(ctx *RenderContext) error {
	if err := p.drawNormalsAndDepth(ctx); err != nil {
		return err
	}
	return p.computeOcclusion(ctx)
}

func (p *OcclusionPass) drawNormalsAndDepth(ctx *RenderContext) error {
	cmd := ctx.Commands
	pso, err := ctx.Systems.Pipelines().Get(PipelineNormals)
	if err != nil {
		return err
	}
	normalRTV := p.rtvs.CPU(0)

	cmd.SetViewports(p.viewport)
	cmd.SetScissorRects(p.scissor)

	cmd.ResourceBarrier(
		transition(p.normalMap, gpu.StateGenericRead, gpu.StateRenderTarget),
		transition(ctx.DepthBuffer, gpu.StateDepthRead, gpu.StateDepthWrite),
	)
	cmd.ClearRenderTargetView(normalRTV, [4]float32{0, 0, 1, 0})
	cmd.ClearDepthStencilView(ctx.DepthView, gpu.ClearDepth|gpu.ClearStencil, 1.0, 0)
	cmd.SetRenderTargets([]gpu.CPUHandle{normalRTV}, &ctx.DepthView)

	cmd.SetGraphicsRootSignature(ctx.Root)
	cmd.SetGraphicsRootConstantBufferView(RootPass, ctx.Slot.Passes.Address(frame.PassMain))
	cmd.SetGraphicsRootShaderResourceView(RootMaterials, ctx.Slot.Materials.Resource().GPUAddress())
	cmd.SetGraphicsRootDescriptorTable(RootTextures, ctx.Systems.Textures().Table().GPU(0))
	cmd.SetPipelineState(pso)
	if err := drawItems(ctx, ctx.Systems.Scene().Layer(metadata.RenderLayerOpaque)); err != nil {
		return err
	}

	cmd.ResourceBarrier(
		transition(p.normalMap, gpu.StateRenderTarget, gpu.StateGenericRead),
		transition(ctx.DepthBuffer, gpu.StateDepthWrite, gpu.StateDepthRead),
	)
	return nil
}

func (p *OcclusionPass) computeOcclusion(ctx *RenderContext) error {
	cmd := ctx.Commands
	pipelines := ctx.Systems.Pipelines()
	root, err := pipelines.RootSignature(OcclusionRootSignature)
	if err != nil {
		return err
	}
	ssao, err := pipelines.Get(PipelineOcclusion)
	if err != nil {
		return err
	}
	blur, err := pipelines.Get(PipelineBlur)
	if err != nil {
		return err
	}

	cmd.SetGraphicsRootSignature(root)
	cmd.SetViewports(p.halfViewport)
	cmd.SetScissorRects(p.halfScissor)
	cmd.SetGraphicsRootConstantBufferView(OcclusionRootPass, ctx.Slot.Occlusion.Address(0))
	cmd.SetGraphicsRoot32BitConstant(OcclusionRootConstants, 0, 0)

	cmd.ResourceBarrier(transition(p.ambient[0], gpu.StateGenericRead, gpu.StateRenderTarget))
	cmd.ClearRenderTargetView(p.rtvs.CPU(1), [4]float32{1, 1, 1, 1})
	cmd.SetRenderTargets([]gpu.CPUHandle{p.rtvs.CPU(1)}, nil)
	cmd.SetGraphicsRootDescriptorTable(OcclusionRootNormalDepth, p.srvs.GPU(occlusionNormal))
	cmd.SetPipelineState(ssao)
	drawFullscreen(cmd)
	cmd.ResourceBarrier(transition(p.ambient[0], gpu.StateRenderTarget, gpu.StateGenericRead))

	cmd.SetPipelineState(blur)
	for i := uint32(0); i < p.settings.Occlusion.BlurCount; i++ {
		p.blur(cmd, true)
		p.blur(cmd, false)
	}
	return nil
}

// blur runs one direction: horizontal reads map 0 into map 1, vertical
// reads map 1 back into map 0.
func (p *OcclusionPass) blur(cmd gpu.CommandList, horizontal bool) {
	in, out := 0, 1
	flag := uint32(1)
	if !horizontal {
		in, out = 1, 0
		flag = 0
	}
	rtv := p.rtvs.CPU(1 + out)

	cmd.SetGraphicsRoot32BitConstant(OcclusionRootConstants, flag, 0)
	cmd.ResourceBarrier(transition(p.ambient[out], gpu.StateGenericRead, gpu.StateRenderTarget))
	cmd.ClearRenderTargetView(rtv, [4]float32{1, 1, 1, 1})
	cmd.SetRenderTargets([]gpu.CPUHandle{rtv}, nil)
	cmd.SetGraphicsRootDescriptorTable(OcclusionRootNormalDepth, p.srvs.GPU(occlusionNormal))
	cmd.SetGraphicsRootDescriptorTable(OcclusionRootInput, p.srvs.GPU(occlusionAmbient0+in))
	drawFullscreen(cmd)
	cmd.ResourceBarrier(transition(p.ambient[out], gpu.StateRenderTarget, gpu.StateGenericRead))
}

// Offsets returns the sample kernel.
func (p *OcclusionPass) Offsets() [metadata.OcclusionSampleCount]mgl32.Vec4 {
	return p.offsets
}

func (p *OcclusionPass) BlurWeights() []float32 {
	return p.weights
}

func (p *OcclusionPass) AmbientMap() gpu.Texture {
	return p.ambient[0]
}

func (p *OcclusionPass) NormalMap() gpu.Texture {
	return p.normalMap
}

// Release frees the targets. The GPU must be idle.
func (p *OcclusionPass) Release() {
	if p.normalMap != nil {
		p.device.Release(p.normalMap)
		p.normalMap = nil
	}
	for i := range p.ambient {
		if p.ambient[i] != nil {
			p.device.Release(p.ambient[i])
			p.ambient[i] = nil
		}
	}
}
