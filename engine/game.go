package engine

import "github.com/spaghettifunk/anima-gfx/engine/renderer"

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

type Initialize func(rd *renderer.RenderDevice) error
type Update func(deltaTime float64) error

// Render records the frame's draws. The back buffer is already cleared and
// the engine presents once it returns.
type Render func(rd *renderer.RenderDevice, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func(rd *renderer.RenderDevice) error
