package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-gfx/engine/assets"
	"github.com/spaghettifunk/anima-gfx/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/platform"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"

	// Register the software and hardware drivers.
	_ "github.com/spaghettifunk/anima-gfx/engine/renderer/driver/soft"
	_ "github.com/spaghettifunk/anima-gfx/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageShutdown
)

// Size of the hot reload change queue.
const changeQueueSize = 64

type Engine struct {
	currentStage Stage
	gameInstance *Game
	cfg          *config.Config
	isRunning    bool
	isSuspended  bool
	wireframe    bool
	events       *core.EventBus
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.RenderDevice
	metrics      *core.Metrics
	clock        *core.Clock
	width        uint32
	height       uint32
	lastTime     float64
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game and application config are required")
	}
	cfg := g.ApplicationConfig.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	events := core.NewEventBus()
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		cfg:          cfg,
		events:       events,
		platform:     platform.New(events),
		metrics:      core.NewMetrics(),
		clock:        core.NewClock(),
		wireframe:    cfg.Device.ForceWireframe,
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}, nil
}

// Initialize opens the window, the render device and the shader watcher,
// then runs the game's initialize and resize hooks. A device that cannot
// be created aborts with a *core.FatalError panic.
func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine already initialized (stage %d)", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	level, err := core.ParseLogLevel(e.cfg.Log.Level)
	if err != nil {
		return err
	}
	core.SetLogLevel(level)

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_KEY_RELEASED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	var opts []renderer.Option
	if !e.cfg.Device.Headless {
		if err := e.platform.Startup(e.cfg.Window); err != nil {
			return err
		}
		opts = append(opts, renderer.WithWindow(e.platform.Window))
		if w, h := e.platform.FramebufferSize(); w > 0 && h > 0 {
			e.width, e.height = w, h
			e.cfg.Window.Width, e.cfg.Window.Height = w, h
		}
	}

	if e.cfg.Shaders.Watch {
		am, err := assets.NewAssetManager(changeQueueSize)
		if err != nil {
			core.LogError("%s", err)
			return err
		}
		if err := am.Initialize(e.cfg.Shaders.Dir); err != nil {
			am.Close()
			return err
		}
		e.assetManager = am
	}

	e.renderer = renderer.NewRenderDevice(e.cfg, opts...)
	e.renderer.InitDevice()

	if fn := e.gameInstance.FnInitialize; fn != nil {
		if err := fn(e.renderer); err != nil {
			return err
		}
	}
	if fn := e.gameInstance.FnOnResize; fn != nil {
		if err := fn(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives frames until the window closes, ESC is pressed or ctx is done.
// It must be called from the goroutine that called Initialize.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized (stage %d)", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true

	if e.assetManager != nil {
		go func() {
			if err := e.assetManager.Run(ctx); err != nil {
				core.LogError("asset watcher stopped: %s", err)
			}
		}()
	}

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64 = 1.0 / 60.0

	for e.isRunning {
		select {
		case <-ctx.Done():
			core.LogInfo("context done, stopping the engine loop")
			e.isRunning = false
			continue
		default:
		}

		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}
		e.pollAssets()

		if e.isSuspended {
			e.platform.Sleep(10)
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.GetAbsoluteTime()

		if fn := e.gameInstance.FnUpdate; fn != nil {
			if err := fn(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				return err
			}
		}

		e.renderer.BeginFrame(e.gameInstance.ApplicationConfig.ClearColour)
		if fn := e.gameInstance.FnRender; fn != nil {
			if err := fn(e.renderer, delta); err != nil {
				core.LogError("game render failed, shutting down: %s", err)
				return err
			}
		}
		e.renderer.Present()

		// Figure out how long the frame took and, if below
		frameElapsedTime := e.platform.GetAbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		if remaining := targetFrameSeconds - frameElapsedTime; remaining > 0 && e.gameInstance.ApplicationConfig.LimitFrames {
			// If there is time left, give it back to the OS.
			if ms := uint64(remaining * 1000); ms > 1 {
				e.platform.Sleep(ms - 1)
			}
		}

		e.lastTime = currentTime
	}
	core.LogInfo("engine loop stopped: %.2f ms average frame, %.0f fps", e.metrics.FrameTime(), e.metrics.FPS())
	return nil
}

// pollAssets applies the shader edits recorded by the watcher since the
// previous frame. A shader that fails to compile keeps its old binary.
func (e *Engine) pollAssets() {
	if e.assetManager == nil {
		return
	}
	for _, c := range e.assetManager.Poll() {
		if c.Removed || (c.Type != loaders.ResourceTypeShader && c.Type != loaders.ResourceTypeShaderBinary) {
			continue
		}
		n, err := e.renderer.ReloadShaderFile(c.Path)
		if err != nil {
			core.LogError("hot reload of %s: %s", c.Path, err)
		}
		if n > 0 {
			e.events.Fire(core.EventContext{Type: core.EVENT_CODE_SHADER_RELOADED, Data: c.Path})
		}
	}
}

// Shutdown releases everything in reverse order of Initialize. Calling it
// twice is a no-op.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown || e.currentStage == EngineStageShuttingDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	var errs []error
	if e.renderer != nil {
		if fn := e.gameInstance.FnShutdown; fn != nil {
			if err := fn(e.renderer); err != nil {
				errs = append(errs, err)
			}
		}
		e.renderer.CleanupDevice()
	}
	if e.assetManager != nil {
		if err := e.assetManager.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.events.Shutdown()
	if err := e.platform.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	e.currentStage = EngineStageShutdown
	return errors.Join(errs...)
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

// Renderer is nil before Initialize.
func (e *Engine) Renderer() *renderer.RenderDevice {
	return e.renderer
}

func (e *Engine) onEvent(context core.EventContext) bool {
	if context.Type == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	if context.Type == core.EVENT_CODE_KEY_PRESSED {
		switch ke.KeyCode {
		case core.KEY_ESCAPE:
			// Technically firing an event to itself, but there may be other listeners.
			e.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
			return true
		case core.KEY_F1:
			tracked := !e.renderer.Registry().Enabled()
			e.renderer.SetObjectTracking(tracked)
			core.LogInfo("object tracking: %t", tracked)
			return true
		case core.KEY_F2:
			e.wireframe = !e.wireframe
			e.renderer.SetForceWireframe(e.wireframe)
			return true
		}
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	width, height := se.WindowWidth, se.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.renderer != nil {
		e.renderer.Resize(width, height)
	}
	if fn := e.gameInstance.FnOnResize; fn != nil {
		if err := fn(width, height); err != nil {
			core.LogError("%s", err)
		}
	}
	return false
}
