package renderer

import "github.com/spaghettifunk/anima-gfx/engine/core"

// BeginFrame rebinds the back buffer with a full viewport and clears it.
func (rd *RenderDevice) BeginFrame(clearColor [4]float32) {
	rd.ready("BeginFrame")
	rd.bindBackBuffer()
	rd.context.ClearRenderTargetView(rd.backBufferView, clearColor)
}

// Present flips the swapchain and advances the dynamic buffer rotation by one.
func (rd *RenderDevice) Present() {
	rd.ready("Present")
	var sync uint32
	if rd.cfg.Device.VSync {
		sync = 1
	}
	rd.check("SwapChain.Present", rd.swapchain.Present(sync))
	rd.rotation = (rd.rotation + 1) % rd.rotationCount
	if rd.rotation == 0 {
		core.LogDebug("dynamic buffer rotation wrapped after %d frames", rd.rotationCount)
	}
}
