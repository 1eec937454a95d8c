package platform

import (
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

func init() {
	// GLFW event handling and the render device must stay on the main OS thread
	runtime.LockOSThread()
}

var keyCodes = map[glfw.Key]core.KeyCode{
	glfw.KeyEnter:  core.KEY_ENTER,
	glfw.KeyEscape: core.KEY_ESCAPE,
	glfw.KeySpace:  core.KEY_SPACE,
	glfw.KeyF1:     core.KEY_F1,
	glfw.KeyF2:     core.KEY_F2,
}

/**
 * @brief The OS window. Input and window events are forwarded to the event
 * bus from PumpMessages, on the calling goroutine.
 */
type Platform struct {
	Window    *glfw.Window
	events    *core.EventBus
	startTime float64
}

func New(events *core.EventBus) *Platform {
	return &Platform{events: events}
}

func (p *Platform) Startup(cfg config.WindowConfig) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(cfg.Width), int(cfg.Height), cfg.Title, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(cfg.X), int(cfg.Y))
	p.Window.Show()

	p.startTime = glfw.GetTime()
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
		glfw.Terminate()
	}
	return nil
}

// PumpMessages processes pending window events. It returns false once the
// window has been asked to close.
func (p *Platform) PumpMessages() bool {
	if p.Window == nil {
		return true
	}
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// FramebufferSize is the drawable size in pixels, zero when minimized.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	if p.Window == nil {
		return 0, 0
	}
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

// GetAbsoluteTime is the number of seconds since Startup.
func (p *Platform) GetAbsoluteTime() float64 {
	if p.Window == nil {
		return float64(time.Now().UnixNano()) / float64(time.Second)
	}
	return glfw.GetTime() - p.startTime
}

func (p *Platform) Sleep(ms uint64) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := keyCodes[key]
	if !ok {
		return
	}
	switch action {
	case glfw.Press:
		p.events.Fire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: code}})
	case glfw.Release:
		p.events.Fire(core.EventContext{Type: core.EVENT_CODE_KEY_RELEASED, Data: &core.KeyEvent{KeyCode: code}})
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.events.Fire(core.EventContext{
		Type: core.EVENT_CODE_RESIZED,
		Data: &core.SystemEvent{WindowWidth: uint32(width), WindowHeight: uint32(height)},
	})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}
