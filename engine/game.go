package engine

import (
	"github.com/spaghettifunk/triframe/engine/core"
	"github.com/spaghettifunk/triframe/engine/renderer"
)

// Game is the application driven by the engine. Renderer and Input are set
// by the engine before FnInitialize is called.
type Game struct {
	ApplicationConfig *ApplicationConfig
	Renderer          *renderer.Renderer
	Input             *core.Input
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render runs right before the frame is recorded, the last chance to edit the scene.
type Render func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
