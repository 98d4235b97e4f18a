// Package passes records the passes of a frame. The order is fixed:
// shadow depth, ambient occlusion, then main shading. Every pass leaves each
// resource it transitions in the state it found it in.
package passes

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/math"
	"github.com/spaghettifunk/triframe/engine/renderer/components"
	"github.com/spaghettifunk/triframe/engine/renderer/frame"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
	"github.com/spaghettifunk/triframe/engine/systems"
)

type Kind uint8

const (
	KindShadow Kind = iota
	KindOcclusion
	KindMain
)

func (k Kind) String() string {
	switch k {
	case KindShadow:
		return "shadow"
	case KindOcclusion:
		return "occlusion"
	case KindMain:
		return "main"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Pass is one stage of the frame. Update runs for every pass before the
// first Render of the frame.
type Pass interface {
	Kind() Kind
	Update(slot *frame.Slot, camera *components.Camera) error
	Render(ctx *RenderContext) error
}

// Resizer is implemented by passes owning screen sized targets.
type Resizer interface {
	OnResize(width, height uint32, depth gpu.Texture) error
}

// RenderContext is what a pass records into. The renderer fills the frame
// fields, the graph the shared ones.
type RenderContext struct {
	Commands gpu.CommandList
	Slot     *frame.Slot
	Systems  *systems.SystemManager

	Root      gpu.RootSignature
	SceneMaps *systems.DescriptorRange

	// Rests in DEPTH_READ between passes.
	DepthBuffer gpu.Texture
	DepthView   gpu.CPUHandle
	// Rests in PRESENT between frames.
	BackBuffer     gpu.Texture
	BackBufferView gpu.CPUHandle

	Viewport gpu.Viewport
	Scissor  gpu.Rect
}

// Settings are the live values the passes read on every Update.
type Settings struct {
	Lighting       core.LightingConfig
	Occlusion      core.OcclusionConfig
	SceneBounds    math.BoundingSphere
	DrawDebugLayer bool
	TotalTime      float32
	DeltaTime      float32
}

func NewSettings(cfg *core.Config) *Settings {
	s := &Settings{}
	s.Apply(cfg)
	return s
}

// Apply copies the live fields of cfg.
func (s *Settings) Apply(cfg *core.Config) {
	s.Lighting = cfg.Lighting
	s.Occlusion = cfg.Occlusion
	s.SceneBounds = math.BoundingSphere{
		Center: mgl32.Vec3(cfg.Shadow.SceneCenter),
		Radius: cfg.Shadow.SceneRadius,
	}
	s.DrawDebugLayer = cfg.Debug.DrawDebugLayer
}

// LightDirection returns light i normalized.
func (s *Settings) LightDirection(i int) mgl32.Vec3 {
	d := mgl32.Vec3(s.Lighting.Directions[i])
	if d.Len() == 0 {
		return mgl32.Vec3{0, -1, 0}
	}
	return d.Normalize()
}

// drawItems records one indexed draw per visible item, each reading its
// own object constants.
func drawItems(ctx *RenderContext, items []*metadata.SceneItem) error {
	cmd := ctx.Commands
	geometry := ctx.Systems.Geometry()
	for _, item := range items {
		if !item.Visible {
			continue
		}
		g, err := geometry.Get(item.Mesh)
		if err != nil {
			return err
		}
		ibv := g.IndexBufferView()
		cmd.SetVertexBuffers(g.VertexBufferView())
		cmd.SetIndexBuffer(&ibv)
		cmd.SetPrimitiveTopology(g.Topology)
		cmd.SetGraphicsRootConstantBufferView(RootObject, ctx.Slot.Objects.Address(item.ObjectIndex))
		cmd.DrawIndexedInstanced(item.IndexCount, 1, item.StartIndex, item.BaseVertex, 0)
	}
	return nil
}

// drawFullscreen draws the screen covering quad generated in the vertex shader.
func drawFullscreen(cmd gpu.CommandList) {
	cmd.SetVertexBuffers()
	cmd.SetIndexBuffer(nil)
	cmd.SetPrimitiveTopology(gpu.TopologyTriangleList)
	cmd.DrawInstanced(6, 1, 0, 0)
}

func transition(r gpu.Resource, before, after gpu.ResourceState) gpu.Transition {
	return gpu.Transition{Resource: r, Before: before, After: after}
}

// passConstants fills the camera part of a pass record, matrices transposed.
func passConstants(view, proj mgl32.Mat4, eye mgl32.Vec3, width, height uint32, nearZ, farZ float32) metadata.PassConstants {
	viewProj := proj.Mul4(view)
	return metadata.PassConstants{
		View:                view.Transpose(),
		InvView:             view.Inv().Transpose(),
		Proj:                proj.Transpose(),
		InvProj:             proj.Inv().Transpose(),
		ViewProj:            viewProj.Transpose(),
		InvViewProj:         viewProj.Inv().Transpose(),
		ViewProjTex:         math.NDCToTexture.Mul4(viewProj).Transpose(),
		EyePosW:             eye,
		RenderTargetSize:    mgl32.Vec2{float32(width), float32(height)},
		InvRenderTargetSize: mgl32.Vec2{1 / float32(width), 1 / float32(height)},
		NearZ:               nearZ,
		FarZ:                farZ,
	}
}

func fullViewport(width, height uint32) (gpu.Viewport, gpu.Rect) {
	return gpu.Viewport{Width: float32(width), Height: float32(height), MaxDepth: 1},
		gpu.Rect{Right: int32(width), Bottom: int32(height)}
}
