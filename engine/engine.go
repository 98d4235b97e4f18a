package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer"
	"github.com/spaghettifunk/triframe/engine/renderer/gpu"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool
	isSuspended  bool
	config       *core.Config
	device       gpu.Device
	renderer     *renderer.Renderer
	bus          *core.EventBus
	input        *core.Input
	watcher      *core.ConfigWatcher
	metrics      *core.Metrics
	clock        *core.Clock
	width        uint32
	height       uint32
	lastTime     float64
	selection    *selection
}

// New loads the configuration and opens the device. Nothing is drawn
// before Initialize.
func New(g *Game) (*Engine, error) {
	e := &Engine{
		currentStage: EngineStageBooting,
		gameInstance: g,
		bus:          core.NewEventBus(),
		metrics:      core.NewMetrics(),
		clock:        core.NewClock(),
	}
	e.input = core.NewInput(e.bus)

	config := core.DefaultConfig()
	if path := g.ApplicationConfig.ConfigPath; path != "" {
		c, err := core.LoadConfig(path)
		if err != nil {
			core.LogError("config %s: %s", path, err.Error())
			return nil, err
		}
		config = c
	}
	if err := core.SetLogLevel(config.LogLevel); err != nil {
		return nil, err
	}
	e.config = config

	device, err := renderer.NewDevice(config)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	e.device = device
	e.width, e.height = device.Swapchain().Size()
	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageBootComplete {
		return fmt.Errorf("engine not booted, stage %d", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	// register some events
	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.bus.Register(core.EVENT_CODE_BUTTON_PRESSED, e, e.onButton)
	e.bus.Register(core.EVENT_CODE_PICK, e, e.onPick)
	e.bus.Register(core.EVENT_CODE_DESELECT, e, e.onDeselect)
	e.bus.Register(core.EVENT_CODE_RESIZED, e, e.onResized)
	e.bus.Register(core.EVENT_CODE_CONFIG_RELOADED, e, e.onConfigReloaded)

	r, err := renderer.New(e.device, e.config, e.metrics)
	if err != nil {
		return err
	}
	e.renderer = r
	e.selection = newSelection(r.Systems(), r.Picker())
	e.gameInstance.Renderer = r
	e.gameInstance.Input = e.input

	if path := e.gameInstance.ApplicationConfig.ConfigPath; path != "" && e.gameInstance.ApplicationConfig.WatchConfig {
		w, err := core.NewConfigWatcher(path)
		if err != nil {
			return err
		}
		e.watcher = w
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives frames until Quit, the frame limit or a fatal error. A lost
// device terminates the run with an error wrapping core.ErrDeviceLost.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine not initialized, stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	maxFrames := e.gameInstance.ApplicationConfig.MaxFrames
	var frames uint64

	for e.isRunning.Load() {
		e.pollConfig()

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStart := time.Now()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err.Error())
				return err
			}
		}
		if e.isSuspended {
			e.lastTime = currentTime
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if e.gameInstance.FnRender != nil {
			if err := e.gameInstance.FnRender(delta); err != nil {
				core.LogError("game render failed, shutting down: %s", err.Error())
				return err
			}
		}

		if err := e.renderer.DrawFrame(float32(currentTime), float32(delta)); err != nil {
			if errors.Is(err, core.ErrDeviceLost) {
				core.LogError("device lost after %d frames: %s", frames, err.Error())
			}
			return err
		}

		e.metrics.Update(time.Since(frameStart).Seconds())
		// Input state copying is the last thing to happen in a frame.
		e.input.Update()
		e.lastTime = currentTime

		frames++
		if maxFrames > 0 && frames >= maxFrames {
			e.isRunning.Store(false)
		}
	}

	count, long, worst := e.metrics.Stalls()
	core.LogInfo("%d frames, %.1f fps, %.2f ms avg, %d stalls (%d long, worst %s)",
		e.metrics.TotalFrames(), e.metrics.FPS(), e.metrics.FrameTime(), count, long, worst)
	return nil
}

// pollConfig forwards a pending configuration revision, never blocking.
func (e *Engine) pollConfig() {
	if e.watcher == nil {
		return
	}
	select {
	case cfg, ok := <-e.watcher.Updates():
		if !ok {
			e.watcher = nil
			return
		}
		e.bus.Fire(core.EVENT_CODE_CONFIG_RELOADED, e, core.EventContext{Payload: cfg})
	default:
	}
}

// Quit stops the run loop after the current frame. Safe from any goroutine.
func (e *Engine) Quit() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.watcher != nil {
		e.watcher.Close()
	}
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	var err error
	if e.renderer != nil {
		err = e.renderer.Shutdown()
	}
	if err := e.bus.Shutdown(); err != nil {
		return err
	}
	if cerr := e.device.Close(); err == nil {
		err = cerr
	}
	return err
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Bus() *core.EventBus {
	return e.bus
}

func (e *Engine) Input() *core.Input {
	return e.input
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}

func (e *Engine) Config() *core.Config {
	return e.config
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Quit()
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	switch core.KeyCode(context.Data.U16[0]) {
	case core.KEY_ESCAPE:
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		e.bus.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
		return true
	case core.KEY_SPACE:
		e.bus.Fire(core.EVENT_CODE_DESELECT, e, core.EventContext{})
		return true
	}
	return false
}

// The right mouse button picks at the cursor.
func (e *Engine) onButton(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	if core.Button(context.Data.U16[0]) != core.BUTTON_RIGHT {
		return false
	}
	pick := core.EventContext{}
	pick.Data.U32[0] = uint32(context.Data.U16[1])
	pick.Data.U32[1] = uint32(context.Data.U16[2])
	return e.bus.Fire(core.EVENT_CODE_PICK, e, pick)
}

func (e *Engine) onPick(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	x, y := float32(context.Data.U32[0]), float32(context.Data.U32[1])
	if item := e.selection.Pick(x, y); item != nil {
		core.LogDebug("picked object %d in layer %s at %.0f,%.0f", item.ObjectIndex, item.Layer, x, y)
	}
	return true
}

func (e *Engine) onDeselect(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	e.selection.Clear()
	return true
}

func (e *Engine) onResized(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	width, height := context.Data.U32[0], context.Data.U32[1]
	if width == e.width && height == e.height {
		return true
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.renderer.OnResize(width, height); err != nil {
		core.LogError(err.Error())
		e.Quit()
		return true
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	return true
}

func (e *Engine) onConfigReloaded(code core.SystemEventCode, sender interface{}, listener interface{}, context core.EventContext) bool {
	cfg, ok := context.Payload.(*core.Config)
	if !ok {
		core.LogError("wrong payload associated with the event type `%d`", code)
		return false
	}
	if err := e.renderer.ApplyConfig(cfg); err != nil {
		core.LogWarn("config not applied: %s", err.Error())
		return true
	}
	e.config = cfg
	return true
}
