package passes

import (
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/systems"
)

// Root parameters of the main root signature.
const (
	// CBV b0, per object.
	RootObject uint32 = iota
	// CBV b1, per pass.
	RootPass
	// SRV t0 space1, material buffer.
	RootMaterials
	// Table t0..t2: sky cube, shadow map, ambient map.
	RootSceneMaps
	// Table t3..: texture table.
	RootTextures
)

// Root parameters of the occlusion root signature.
const (
	// CBV b0, occlusion constants.
	OcclusionRootPass uint32 = iota
	// One 32-bit constant b1, 1 for the horizontal blur.
	OcclusionRootConstants
	// Table t0,t1: normal map, depth map.
	OcclusionRootNormalDepth
	// Table t2: blur input.
	OcclusionRootInput
)

// Slots of the scene map table.
const (
	SceneMapSky = iota
	SceneMapShadow
	SceneMapAmbient
	SceneMapCount
)

const (
	MainRootSignature      = "main"
	OcclusionRootSignature = "occlusion"
)

// Pipeline state names.
const (
	PipelineOpaque      = "opaque"
	PipelineSky         = "sky"
	PipelineTransparent = "transparent"
	PipelineHighlight   = "highlight"
	PipelineDebug       = "debug"
	PipelineShadow      = "shadow_opaque"
	PipelineNormals     = "drawNormals"
	PipelineOcclusion   = "ssao"
	PipelineBlur        = "ssaoBlur"
)

const (
	DepthFormat     = gpu.FormatD24UnormS8Uint
	NormalFormat    = gpu.FormatRGBA16Float
	AmbientFormat   = gpu.FormatR16Float
	ShadowMapFormat = gpu.FormatR24G8Typeless
)

// Pipeline state for each drawable layer in the main pass.
var layerPipelines = [...]string{
	PipelineOpaque,
	PipelineSky,
	PipelineTransparent,
	PipelineHighlight,
	PipelineDebug,
}

// CreatePipelines registers both root signatures and every pipeline state
// the passes use.
func CreatePipelines(ps *systems.PipelineSystem, backBuffer gpu.Format, maxTextures uint32) error {
	root, err := ps.CreateRootSignature(gpu.RootSignatureDesc{
		Name: MainRootSignature,
		Parameters: []gpu.RootParameter{
			{Kind: gpu.RootConstantBufferView, Register: 0},
			{Kind: gpu.RootConstantBufferView, Register: 1},
			{Kind: gpu.RootShaderResourceView, Register: 0, Space: 1},
			{Kind: gpu.RootDescriptorTable, Register: 0, Count: SceneMapCount},
			{Kind: gpu.RootDescriptorTable, Register: SceneMapCount, Count: maxTextures},
		},
	})
	if err != nil {
		return err
	}
	occlusion, err := ps.CreateRootSignature(gpu.RootSignatureDesc{
		Name: OcclusionRootSignature,
		Parameters: []gpu.RootParameter{
			{Kind: gpu.RootConstantBufferView, Register: 0},
			{Kind: gpu.RootConstants, Register: 1, Count: 1},
			{Kind: gpu.RootDescriptorTable, Register: 0, Count: 2},
			{Kind: gpu.RootDescriptorTable, Register: 2, Count: 1},
		},
	})
	if err != nil {
		return err
	}

	lit := gpu.PipelineDesc{
		RootSignature: root,
		VertexShader:  "standardVS",
		PixelShader:   "opaquePS",
		RenderTargets: []gpu.Format{backBuffer},
		DepthFormat:   DepthFormat,
		DepthFunc:     gpu.DepthLess,
		DepthWrite:    true,
		Topology:      gpu.TopologyTriangleList,
	}

	descs := make([]gpu.PipelineDesc, 0, 9)

	// depth was laid down by the normal pass
	opaque := lit
	opaque.Name = PipelineOpaque
	opaque.DepthFunc = gpu.DepthEqual
	opaque.DepthWrite = false
	descs = append(descs, opaque)

	sky := lit
	sky.Name = PipelineSky
	sky.VertexShader, sky.PixelShader = "skyVS", "skyPS"
	sky.Cull = gpu.CullNone
	sky.DepthFunc = gpu.DepthLessEqual
	descs = append(descs, sky)

	transparent := lit
	transparent.Name = PipelineTransparent
	transparent.Blend = true
	descs = append(descs, transparent)

	highlight := lit
	highlight.Name = PipelineHighlight
	highlight.PixelShader = "highlightPS"
	highlight.Blend = true
	highlight.DepthFunc = gpu.DepthLessEqual
	highlight.DepthWrite = false
	descs = append(descs, highlight)

	debug := lit
	debug.Name = PipelineDebug
	debug.VertexShader, debug.PixelShader = "debugVS", "debugPS"
	debug.DepthFunc = gpu.DepthAlways
	debug.DepthWrite = false
	descs = append(descs, debug)

	shadow := lit
	shadow.Name = PipelineShadow
	shadow.VertexShader, shadow.PixelShader = "shadowVS", "shadowOpaquePS"
	shadow.RenderTargets = nil
	shadow.DepthBias = 100000
	shadow.SlopeScaledBias = 1.0
	descs = append(descs, shadow)

	normals := lit
	normals.Name = PipelineNormals
	normals.VertexShader, normals.PixelShader = "drawNormalsVS", "drawNormalsPS"
	normals.RenderTargets = []gpu.Format{NormalFormat}
	descs = append(descs, normals)

	descs = append(descs,
		gpu.PipelineDesc{
			Name:          PipelineOcclusion,
			RootSignature: occlusion,
			VertexShader:  "ssaoVS",
			PixelShader:   "ssaoPS",
			RenderTargets: []gpu.Format{AmbientFormat},
			DepthFunc:     gpu.DepthAlways,
			Topology:      gpu.TopologyTriangleList,
			NoVertexInput: true,
		},
		gpu.PipelineDesc{
			Name:          PipelineBlur,
			RootSignature: occlusion,
			VertexShader:  "ssaoBlurVS",
			PixelShader:   "ssaoBlurPS",
			RenderTargets: []gpu.Format{AmbientFormat},
			DepthFunc:     gpu.DepthAlways,
			Topology:      gpu.TopologyTriangleList,
			NoVertexInput: true,
		},
	)

	for _, d := range descs {
		if _, err := ps.Create(d); err != nil {
			return err
		}
	}
	return nil
}
