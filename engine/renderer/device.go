package renderer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/containers"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

var errNoDriver = errors.New("no driver type could create a device")

func (rd *RenderDevice) ready(op string) {
	if rd.device == nil {
		core.Fatal(op, core.ErrNotInitialized)
	}
}

func (rd *RenderDevice) check(op string, err error) {
	if err != nil {
		core.Fatal(op, err)
	}
}

// InitDevice opens the first driver type of the configured preference list
// that succeeds, then builds the raster states, the back-buffer view and the
// default sampler. It aborts if no driver type can create a device.
func (rd *RenderDevice) InitDevice() {
	if rd.device != nil {
		core.LogWarn("InitDevice called on an initialized device")
		return
	}
	if rd.width == 0 || rd.height == 0 {
		rd.width, rd.height = 1, 1
	}

	params := driver.CreateParams{
		AppName:     rd.cfg.Window.Title,
		Width:       rd.width,
		Height:      rd.height,
		BufferCount: rd.cfg.Device.BufferCount,
		Format:      driver.FormatB8G8R8A8Unorm,
		Debug:       rd.cfg.Device.Debug,
		VSync:       rd.cfg.Device.VSync,
		Window:      rd.window,
	}

	var failures []string
	for _, name := range rd.cfg.Device.Drivers {
		typ, err := driver.ParseDriverType(name)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		if typ == driver.Hardware && (rd.cfg.Device.Headless || rd.window == nil) {
			core.LogDebug("skipping %s driver: no window", typ)
			continue
		}
		drv, err := rd.lookup(typ)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		dev, ctx, sc, err := drv.Open(params)
		if err != nil {
			core.LogWarn("%s driver failed: %s", typ, err.Error())
			failures = append(failures, fmt.Sprintf("%s: %s", typ, err.Error()))
			continue
		}
		rd.driverType = typ
		rd.device, rd.context, rd.swapchain = dev, ctx, sc
		break
	}
	if rd.device == nil {
		core.Fatal("InitDevice", fmt.Errorf("%w: %s", errNoDriver, strings.Join(failures, "; ")))
	}
	core.LogInfo("render device created with the %s driver (%dx%d)", rd.driverType, rd.width, rd.height)

	rd.generation++
	rd.rotationCount = rd.swapchain.BufferCount()
	rd.rotation = 0
	rd.dynamic = containers.NewSlotTable[uint32, *dynamicSlot](int(rd.cfg.Dynamic.MaxSlots))

	rd.buildRasterCache()
	rd.createBackBufferView()

	rd.defaultSampler = rd.createSamplerState(metadata.FilterPoint, metadata.AddressClamp)
	rd.context.PSSetSamplers(0, []driver.SamplerState{rd.defaultSampler})

	rd.bindBackBuffer()
	rd.bindRasterState()
	rd.context.IASetPrimitiveTopology(driver.TopologyTriangleList)
	rd.pipeline = PipelineNoLayoutNoShaders
}

func (rd *RenderDevice) createBackBufferView() {
	tex, err := rd.swapchain.GetBuffer(0)
	rd.check("SwapChain.GetBuffer", err)
	rtv, err := rd.device.CreateRenderTargetView(tex)
	tex.Release()
	rd.check("CreateRenderTargetView", err)
	rd.registry.Register(rtv, "CreateRenderTargetView")
	rd.backBufferView = rtv
}

func (rd *RenderDevice) bindBackBuffer() {
	rd.context.OMSetRenderTargets([]driver.RenderTargetView{rd.backBufferView})
	rd.context.RSSetViewports([]driver.Viewport{{
		Width:    float32(rd.width),
		Height:   float32(rd.height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
}

// Resize rebuilds the back buffers and viewport for a new client area. A zero
// size (minimized window) is ignored.
func (rd *RenderDevice) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		core.LogDebug("ignoring resize to %dx%d", width, height)
		return
	}
	if rd.device == nil {
		rd.width, rd.height = width, height
		return
	}
	if width == rd.width && height == rd.height {
		return
	}
	rd.context.OMSetRenderTargets(nil)
	rd.registry.Release(rd.backBufferView)
	rd.backBufferView = nil

	rd.check("SwapChain.ResizeBuffers", rd.swapchain.ResizeBuffers(width, height))
	rd.width, rd.height = width, height
	rd.createBackBufferView()
	rd.bindBackBuffer()
	core.LogDebug("render device resized to %dx%d", width, height)
}

// CleanupDevice tears everything down in dependency order. Calling it on a
// device that was never initialized, or twice, is a no-op.
func (rd *RenderDevice) CleanupDevice() {
	if rd.device == nil {
		return
	}
	rd.context.ClearState()
	rd.boundVS, rd.boundFS, rd.boundDesc, rd.boundDescHash = nil, nil, nil, 0
	rd.vertexSlots = [MaxVertexBufferSlots]vertexBinding{}
	rd.dirty = false

	rd.DisposeInputLayouts()
	rd.releaseRasterCache()
	if rd.defaultSampler != nil {
		rd.registry.Release(rd.defaultSampler)
		rd.defaultSampler = nil
	}
	if rd.backBufferView != nil {
		rd.registry.Release(rd.backBufferView)
		rd.backBufferView = nil
	}
	rd.disposeDynamicBuffers()
	rd.disposeShaders()

	if dbg, ok := rd.device.(driver.Debug); ok && rd.cfg.Device.Debug {
		for _, obj := range dbg.ReportLiveObjects() {
			core.LogDebug("live object: %s #%d (%d refs)", obj.Kind, obj.ID, obj.Refs)
		}
	}
	if n := rd.registry.ReleaseAll(); n > 0 {
		core.LogWarn("released %d leaked objects at shutdown", n)
	}

	// Destroy in the opposite order of creation.
	rd.swapchain.Release()
	rd.context.Release()
	rd.device.Release()
	rd.swapchain, rd.context, rd.device = nil, nil, nil
	rd.pipeline = PipelineNoLayoutNoShaders
	core.LogInfo("render device destroyed")
}
