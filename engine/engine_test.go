package engine

import (
	"context"
	"io"
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func headlessGame(update Update) *Game {
	cfg := config.Default()
	cfg.Device.Headless = true
	cfg.Device.Drivers = []string{"hardware", "reference"}
	cfg.Shaders.Watch = false
	cfg.Log.Level = "error"
	return &Game{
		ApplicationConfig: &ApplicationConfig{Name: "test", Config: cfg},
		FnUpdate:          update,
	}
}

func TestEngineRunsHeadlessUntilQuit(t *testing.T) {
	var (
		e       *Engine
		frames  int
		resized []uint32
	)
	g := headlessGame(func(float64) error {
		frames++
		if frames == 3 {
			e.events.Fire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: core.KEY_ESCAPE}})
		}
		return nil
	})
	g.FnOnResize = func(w, h uint32) error {
		resized = append(resized, w, h)
		return nil
	}
	var rendered int
	g.FnRender = func(rd *renderer.RenderDevice, _ float64) error {
		rendered++
		return nil
	}

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	assert.Equal(t, driver.Reference, e.Renderer().DriverType())
	assert.Equal(t, []uint32{1280, 720}, resized)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 3, frames)
	assert.Equal(t, 3, rendered)
	assert.Equal(t, uint32(1), e.Renderer().Rotation())

	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())
	dev, _, _ := e.Renderer().Native()
	assert.Nil(t, dev)
	assert.Zero(t, e.Renderer().Registry().Count())
}

func TestEngineStopsWhenContextIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	frames := 0
	e, err := New(headlessGame(func(float64) error {
		frames++
		if frames == 2 {
			cancel()
		}
		return nil
	}))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	require.NoError(t, e.Run(ctx))
	assert.Equal(t, 2, frames)
	assert.Error(t, e.Initialize())
}

func TestResizeSuspendsWhenMinimized(t *testing.T) {
	e, err := New(headlessGame(nil))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	fire := func(w, h uint32) {
		e.events.Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: w, WindowHeight: h}})
	}
	fire(0, 0)
	assert.True(t, e.isSuspended)

	fire(640, 480)
	assert.False(t, e.isSuspended)
	w, h := e.Renderer().Size()
	assert.Equal(t, uint32(640), w)
	assert.Equal(t, uint32(480), h)
	assert.Equal(t, [2]uint32{640, 480}, [2]uint32{e.width, e.height})
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	g := headlessGame(nil)
	g.ApplicationConfig.Config.Device.BufferCount = 0
	_, err := New(g)
	assert.Error(t, err)

	_, err = New(&Game{})
	assert.Error(t, err)
}
