package testbed

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/math"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/metadata"
	"github.com/spaghettifunk/triframe/engine/systems"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	grid     *metadata.SceneItem
	spheres  []*metadata.SceneItem
	glass    *metadata.SceneItem
	lightYaw float32

	// the glass box spins on a turntable that slowly turns itself
	turntable      *math.Transform
	glassTransform *math.Transform
}

var (
	tempMoveSpeed   float32 = 10.0
	tempTurnSpeed   float32 = 1.0
	lightRotateRate float32 = 0.25
)

func NewTestGame(app *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: app,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.Renderer == nil {
		return fmt.Errorf("the engine is not yet initialized with a renderer")
	}
	sm := g.Renderer.Systems()
	state := g.State.(*gameState)

	if err := g.loadTextures(sm); err != nil {
		return err
	}
	if err := g.loadMaterials(sm); err != nil {
		return err
	}

	// geometry is generated in parallel, uploads stay on this goroutine
	configs := systems.GenerateConfigs(sm.Jobs(),
		func() *systems.GeometryConfig { return systems.GeneratePlaneConfig(20, 30, 60, 40, 8, 12, "grid") },
		func() *systems.GeometryConfig { return systems.GenerateSphereConfig(0.5, 20, 20, "sphere") },
		func() *systems.GeometryConfig { return systems.GenerateCubeConfig(1.5, 1.5, 1.5, "box") },
		func() *systems.GeometryConfig { return systems.GenerateSphereConfig(1, 20, 20, "sky") },
		func() *systems.GeometryConfig { return systems.GenerateQuadConfig(0.5, -0.5, 0.5, 0.5, "debug_quad") },
	)
	shapes := &systems.GeometryConfig{Name: "shapes"}
	for _, c := range configs {
		shapes.Append(c.Name, c)
	}
	mesh, err := sm.Geometry().Create(shapes)
	if err != nil {
		return err
	}

	add := func(layer metadata.RenderLayer, submesh, material string, world mgl32.Mat4) (*metadata.SceneItem, error) {
		m, err := sm.Materials().GetByName(material)
		if err != nil {
			return nil, err
		}
		return sm.Scene().CreateItem(&metadata.SceneItemConfig{
			Layer:        layer,
			World:        world,
			TexTransform: mgl32.Ident4(),
			Material:     m.ID,
			Mesh:         mesh.ID,
			Submesh:      mesh.Submeshes[submesh],
		})
	}

	if state.grid, err = add(metadata.RenderLayerOpaque, "grid", "tile", mgl32.Ident4()); err != nil {
		return err
	}
	for i := 0; i < 5; i++ {
		z := -10 + float32(i)*5
		for _, x := range []float32{-5, 5} {
			sphere, err := add(metadata.RenderLayerOpaque, "sphere", "stone", mgl32.Translate3D(x, 3.5, z))
			if err != nil {
				return err
			}
			state.spheres = append(state.spheres, sphere)
		}
	}
	if _, err := add(metadata.RenderLayerOpaque, "box", "stone", mgl32.Translate3D(0, 0.75, 0)); err != nil {
		return err
	}
	state.turntable = math.TransformFromPosition(mgl32.Vec3{0, 0, 4})
	state.glassTransform = math.TransformFromPosition(mgl32.Vec3{1.5, 0.75, 0})
	state.glassTransform.Parent = state.turntable
	if state.glass, err = add(metadata.RenderLayerTransparent, "box", "glass", state.glassTransform.GetWorld()); err != nil {
		return err
	}
	if _, err := add(metadata.RenderLayerSky, "sky", "sky", mgl32.Scale3D(500, 500, 500)); err != nil {
		return err
	}
	if _, err := add(metadata.RenderLayerDebug, "debug_quad", "tile", mgl32.Ident4()); err != nil {
		return err
	}

	g.Renderer.Camera().LookAt(mgl32.Vec3{0, 6, -18}, mgl32.Vec3{0, 1, 0})
	core.LogInfo("testbed scene ready: %d items, %d materials", sm.Scene().Count(), sm.Materials().Count())
	return nil
}

func (g *TestGame) loadTextures(sm *systems.SystemManager) error {
	if _, err := sm.Textures().Create(gpu.TextureDesc{
		Name:        "checker",
		Width:       64,
		Height:      64,
		ArraySize:   1,
		Format:      gpu.FormatRGBA8Unorm,
		InitialData: checker(64, 8),
	}); err != nil {
		return err
	}

	const face = 16
	sky := make([]byte, 0, 6*face*face*4)
	for f := 0; f < 6; f++ {
		for y := 0; y < face; y++ {
			v := byte(255 - y*8)
			for x := 0; x < face; x++ {
				sky = append(sky, v/2, v/2+40, 255, 255)
			}
		}
	}
	cube, err := sm.Textures().Create(gpu.TextureDesc{
		Name:        "sky",
		Width:       face,
		Height:      face,
		ArraySize:   6,
		Dimension:   gpu.DimensionTextureCube,
		Format:      gpu.FormatRGBA8Unorm,
		InitialData: sky,
	})
	if err != nil {
		return err
	}
	return g.Renderer.SetSky(cube.Resource)
}

func (g *TestGame) loadMaterials(sm *systems.SystemManager) error {
	materials := []*metadata.MaterialConfig{
		{
			Name:           "tile",
			DiffuseAlbedo:  mgl32.Vec4{0.9, 0.9, 0.9, 1},
			FresnelR0:      mgl32.Vec3{0.2, 0.2, 0.2},
			Roughness:      0.1,
			DiffuseMapName: "checker",
		},
		{
			Name:          "stone",
			DiffuseAlbedo: mgl32.Vec4{0.6, 0.55, 0.5, 1},
			FresnelR0:     mgl32.Vec3{0.05, 0.05, 0.05},
			Roughness:     0.6,
		},
		{
			Name:          "glass",
			DiffuseAlbedo: mgl32.Vec4{0.3, 0.6, 0.9, 0.35},
			FresnelR0:     mgl32.Vec3{0.1, 0.1, 0.1},
			Roughness:     0.0,
		},
		{
			Name:          "sky",
			DiffuseAlbedo: mgl32.Vec4{1, 1, 1, 1},
			FresnelR0:     mgl32.Vec3{0.1, 0.1, 0.1},
			Roughness:     1.0,
		},
	}
	for _, m := range materials {
		if _, err := sm.Materials().Create(m); err != nil {
			return err
		}
	}
	return nil
}

// checker returns size x size RGBA pixels in cells of cell pixels.
func checker(size, cell int) []byte {
	pixels := make([]byte, 0, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := byte(60)
			if (x/cell+y/cell)%2 == 0 {
				v = 230
			}
			pixels = append(pixels, v, v, v, 255)
		}
	}
	return pixels
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	camera := g.Renderer.Camera()
	input := g.Input
	dt := float32(deltaTime)

	// HACK: temp hack to move camera around.
	if input.IsKeyDown(core.KEY_A) {
		camera.MoveLeft(tempMoveSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_D) {
		camera.MoveRight(tempMoveSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_W) {
		camera.MoveForward(tempMoveSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_S) {
		camera.MoveBackward(tempMoveSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_Q) {
		camera.MoveUp(tempMoveSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_E) {
		camera.MoveDown(tempMoveSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_LEFT) {
		camera.Yaw(tempTurnSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_RIGHT) {
		camera.Yaw(-tempTurnSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_UP) {
		camera.Pitch(tempTurnSpeed * dt)
	}
	if input.IsKeyDown(core.KEY_DOWN) {
		camera.Pitch(-tempTurnSpeed * dt)
	}

	if input.IsKeyUp(core.KEY_F1) && input.WasKeyDown(core.KEY_F1) {
		pos := camera.GetPosition()
		core.LogDebug("Pos:[%.2f, %.2f, %.2f]", pos.X(), pos.Y(), pos.Z())
	}
	if input.IsKeyUp(core.KEY_F2) && input.WasKeyDown(core.KEY_F2) {
		settings := g.Renderer.Settings()
		settings.DrawDebugLayer = !settings.DrawDebugLayer
	}

	// the shadow casting light circles the scene
	state.lightYaw += lightRotateRate * dt
	settings := g.Renderer.Settings()
	dir := mgl32.Rotate3DY(state.lightYaw).Mul3x1(mgl32.Vec3{0.57735, -0.57735, 0.57735})
	settings.Lighting.Directions[0] = [3]float32(dir)
	return nil
}

func (g *TestGame) Render(deltaTime float64) error {
	state := g.State.(*gameState)
	// Perform a small rotation on the glass box and its turntable.
	spin := mgl32.QuatRotate(float32(0.5*deltaTime), mgl32.Vec3{0, 1, 0})
	state.glassTransform.Rotate(spin)
	state.turntable.Rotate(mgl32.QuatRotate(float32(0.1*deltaTime), mgl32.Vec3{0, 1, 0}))
	g.Renderer.Systems().Scene().SetWorld(state.glass, state.glassTransform.GetWorld())
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogDebug("TestGame Shutdown fn....")
	return nil
}
