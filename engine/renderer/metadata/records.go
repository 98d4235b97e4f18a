package metadata

import "github.com/go-gl/mathgl/mgl32"

// MaxLights matches the light array size compiled into the shaders.
const MaxLights = 16

// Number of sample offsets used by the occlusion pass.
const OcclusionSampleCount = 14

// Maximum blur radius supported by the blur shader; the weights are packed
// in 3 float4.
const MaxBlurRadius = 5

// The records below are copied verbatim into GPU memory, their layout
// follows the HLSL constant buffer packing rules. Matrices are stored
// transposed (row-major for HLSL).

type ObjectConstants struct {
	World         mgl32.Mat4
	TexTransform  mgl32.Mat4
	MaterialIndex uint32
	_             [3]uint32
}

type Light struct {
	Strength mgl32.Vec3
	// point/spot light only
	FalloffStart float32
	// directional/spot light only
	Direction mgl32.Vec3
	// point/spot light only
	FalloffEnd float32
	// point/spot light only
	Position mgl32.Vec3
	// spot light only
	SpotPower float32
}

type PassConstants struct {
	View                mgl32.Mat4
	InvView             mgl32.Mat4
	Proj                mgl32.Mat4
	InvProj             mgl32.Mat4
	ViewProj            mgl32.Mat4
	InvViewProj         mgl32.Mat4
	ViewProjTex         mgl32.Mat4
	ShadowTransform     mgl32.Mat4
	EyePosW             mgl32.Vec3
	_                   float32
	RenderTargetSize    mgl32.Vec2
	InvRenderTargetSize mgl32.Vec2
	NearZ               float32
	FarZ                float32
	TotalTime           float32
	DeltaTime           float32
	AmbientLight        mgl32.Vec4
	// Indices [0, NUM_DIR_LIGHTS) are directional lights.
	Lights [MaxLights]Light
}

type MaterialData struct {
	DiffuseAlbedo   mgl32.Vec4
	FresnelR0       mgl32.Vec3
	Roughness       float32
	MatTransform    mgl32.Mat4
	DiffuseMapIndex uint32
	NormalMapIndex  uint32
	_               [2]uint32
}

type OcclusionConstants struct {
	Proj          mgl32.Mat4
	InvProj       mgl32.Mat4
	ProjTex       mgl32.Mat4
	OffsetVectors [OcclusionSampleCount]mgl32.Vec4
	// 2*MaxBlurRadius+1 weights packed in float4s.
	BlurWeights         [3]mgl32.Vec4
	InvRenderTargetSize mgl32.Vec2
	OcclusionRadius     float32
	OcclusionFadeStart  float32
	OcclusionFadeEnd    float32
	SurfaceEpsilon      float32
	_                   [2]float32
}
