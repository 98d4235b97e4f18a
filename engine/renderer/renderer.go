package renderer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer/components"
	"github.com/spaghettifunk/triframe/engine/renderer/frame"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
	"github.com/spaghettifunk/triframe/engine/renderer/passes"
	"github.com/spaghettifunk/triframe/engine/renderer/views"
	"github.com/spaghettifunk/triframe/engine/systems"
)

// Renderer ties the frame pipeline to the pass graph. All of its methods
// must be called from the producer goroutine.
type Renderer struct {
	config   *core.Config
	device   gpu.Device
	pipeline *frame.Pipeline
	systems  *systems.SystemManager
	settings *passes.Settings
	depth    *passes.DepthTarget
	graph    *passes.Graph
	camera   *components.Camera
	picker   *views.Picker
	metrics  *core.Metrics

	width, height uint32
}

func New(device gpu.Device, config *core.Config, metrics *core.Metrics) (*Renderer, error) {
	width, height := device.Swapchain().Size()

	sm, err := systems.NewSystemManager(device, config)
	if err != nil {
		return nil, err
	}
	pipeline, err := frame.NewPipeline(device, frame.PipelineConfig{
		RingDepth:    config.Pipeline.RingDepth,
		MaxObjects:   config.Pipeline.MaxObjects,
		MaxMaterials: config.Pipeline.MaxMaterials,
		StallWarning: config.StallWarning(),
	})
	if err != nil {
		return nil, err
	}
	if metrics != nil {
		pipeline.OnStall(metrics.RecordStall)
	}

	settings := passes.NewSettings(config)
	depth, err := passes.NewDepthTarget(device, sm, width, height)
	if err != nil {
		return nil, fmt.Errorf("depth buffer: %w", err)
	}
	graph, err := passes.NewGraph(device, sm, settings, config, depth.Texture())
	if err != nil {
		return nil, err
	}
	// every range is reserved, views may still be rewritten
	sm.Descriptors().Freeze()

	camera := components.NewCamera()
	camera.SetLens(mgl32.DegToRad(config.Pipeline.FieldOfView), float32(width)/float32(height), config.Pipeline.NearZ, config.Pipeline.FarZ)

	picker, err := views.NewPicker(sm.Scene(), camera, width, height, &config.Picker)
	if err != nil {
		return nil, err
	}

	core.LogInfo("renderer ready on %s: %dx%d, %d frame slots", device.Name(), width, height, pipeline.Depth())
	return &Renderer{
		config:   config,
		device:   device,
		pipeline: pipeline,
		systems:  sm,
		settings: settings,
		depth:    depth,
		graph:    graph,
		camera:   camera,
		picker:   picker,
		metrics:  metrics,
		width:    width,
		height:   height,
	}, nil
}

// DrawFrame records and submits one frame. It blocks only when the next
// frame slot is still in use by the GPU.
func (r *Renderer) DrawFrame(totalTime, deltaTime float32) error {
	slot, err := r.pipeline.BeginFrame()
	if err != nil {
		return err
	}
	if err := r.record(slot, totalTime, deltaTime); err != nil {
		// the slot is free again, a later frame rewrites it
		if aerr := r.pipeline.AbortFrame(); aerr != nil {
			return errors.Join(err, aerr)
		}
		return err
	}
	return r.pipeline.EndFrame(slot)
}

func (r *Renderer) record(slot *frame.Slot, totalTime, deltaTime float32) error {
	scene := r.systems.Scene()
	if _, err := scene.RefreshDirty(slot.Objects); err != nil {
		return err
	}
	if _, err := r.systems.Materials().RefreshDirty(slot.Materials); err != nil {
		return err
	}

	r.settings.TotalTime = totalTime
	r.settings.DeltaTime = deltaTime
	if err := r.graph.Update(slot, r.camera); err != nil {
		return err
	}

	sc := r.device.Swapchain()
	viewport := gpu.Viewport{Width: float32(r.width), Height: float32(r.height), MaxDepth: 1}
	scissor := gpu.Rect{Right: int32(r.width), Bottom: int32(r.height)}
	ctx := &passes.RenderContext{
		Commands:       r.pipeline.Commands(),
		Slot:           slot,
		Systems:        r.systems,
		DepthBuffer:    r.depth.Texture(),
		DepthView:      r.depth.View(),
		BackBuffer:     sc.CurrentBackBuffer(),
		BackBufferView: sc.CurrentBackBufferView(),
		Viewport:       viewport,
		Scissor:        scissor,
	}
	return r.graph.Render(ctx)
}

// OnResize waits for the GPU, then recreates every size dependent target.
// A zero size is ignored; the caller suspends drawing instead.
func (r *Renderer) OnResize(width, height uint32) error {
	if width == 0 || height == 0 || (width == r.width && height == r.height) {
		return nil
	}
	if err := r.pipeline.Flush(); err != nil {
		return err
	}
	if err := r.device.Swapchain().Resize(width, height); err != nil {
		return err
	}
	if err := r.depth.Resize(width, height); err != nil {
		return err
	}
	if err := r.graph.OnResize(width, height, r.depth.Texture()); err != nil {
		return err
	}
	r.width, r.height = width, height
	r.camera.SetLens(r.camera.FovY, float32(width)/float32(height), r.camera.NearZ, r.camera.FarZ)
	r.picker.OnResize(width, height)
	core.LogDebug("renderer resized to %dx%d", width, height)
	return nil
}

// ApplyConfig takes over the live fields of config. Capacities, sizes and
// the backend need a restart.
func (r *Renderer) ApplyConfig(config *core.Config) error {
	if err := r.picker.Apply(&config.Picker); err != nil {
		return err
	}
	if err := core.SetLogLevel(config.LogLevel); err != nil {
		return err
	}
	if config.Pipeline != r.config.Pipeline || config.Device != r.config.Device || config.Shadow.MapSize != r.config.Shadow.MapSize {
		core.LogWarn("device, pipeline and shadow map size changes apply on the next start")
	}
	r.settings.Apply(config)
	r.config = config
	return nil
}

// SetSky binds the environment cube map sampled by the sky layer.
func (r *Renderer) SetSky(cube gpu.Texture) error {
	return r.graph.SetSky(cube)
}

func (r *Renderer) Systems() *systems.SystemManager {
	return r.systems
}

func (r *Renderer) Camera() *components.Camera {
	return r.camera
}

func (r *Renderer) Picker() *views.Picker {
	return r.picker
}

// Settings holds the live lighting and occlusion values read every frame.
func (r *Renderer) Settings() *passes.Settings {
	return r.settings
}

func (r *Renderer) Pipeline() *frame.Pipeline {
	return r.pipeline
}

func (r *Renderer) Graph() *passes.Graph {
	return r.graph
}

func (r *Renderer) Device() gpu.Device {
	return r.device
}

func (r *Renderer) Size() (uint32, uint32) {
	return r.width, r.height
}

// Shutdown drains the GPU and releases everything the renderer created.
// The device itself is closed by its owner.
func (r *Renderer) Shutdown() error {
	err := r.pipeline.Close()
	if err == nil {
		r.graph.Release()
		r.depth.Release()
	}
	if serr := r.systems.Shutdown(); err == nil {
		err = serr
	}
	return err
}
