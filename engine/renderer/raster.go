package renderer

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

type rasterKey struct {
	fill    metadata.FillMode
	cull    metadata.CullMode
	scissor metadata.ScissorMode
}

// rasterCache holds one immutable state per fill, cull and scissor combination.
type rasterCache [metadata.FillModeCount][metadata.CullModeCount][metadata.ScissorModeCount]driver.RasterizerState

func rasterDesc(k rasterKey) driver.RasterizerDesc {
	desc := driver.RasterizerDesc{
		FillMode:        driver.FillSolid,
		CullMode:        driver.CullNone,
		DepthClipEnable: true,
		ScissorEnable:   k.scissor == metadata.ScissorEnabled,
	}
	if k.fill == metadata.FillWireframe {
		desc.FillMode = driver.FillWireframe
	}
	switch k.cull {
	case metadata.CullFront:
		desc.CullMode = driver.CullFront
	case metadata.CullBack:
		desc.CullMode = driver.CullBack
	}
	return desc
}

func (rd *RenderDevice) buildRasterCache() {
	for fill := metadata.FillMode(0); fill < metadata.FillModeCount; fill++ {
		for cull := metadata.CullMode(0); cull < metadata.CullModeCount; cull++ {
			for scissor := metadata.ScissorMode(0); scissor < metadata.ScissorModeCount; scissor++ {
				state, err := rd.device.CreateRasterizerState(rasterDesc(rasterKey{fill, cull, scissor}))
				rd.check("CreateRasterizerState", err)
				rd.registry.Register(state, "CreateRasterizerState")
				rd.raster[fill][cull][scissor] = state
			}
		}
	}
}

func (rd *RenderDevice) releaseRasterCache() {
	for fill := range rd.raster {
		for cull := range rd.raster[fill] {
			for scissor, state := range rd.raster[fill][cull] {
				if state != nil {
					rd.registry.Release(state)
					rd.raster[fill][cull][scissor] = nil
				}
			}
		}
	}
}

// RasterState returns the cached state for the combination.
func (rd *RenderDevice) RasterState(fill metadata.FillMode, cull metadata.CullMode, scissor metadata.ScissorMode) driver.RasterizerState {
	core.Assert(fill < metadata.FillModeCount && cull < metadata.CullModeCount && scissor < metadata.ScissorModeCount,
		"RasterState", "raster mode (%d, %d, %d) out of range", fill, cull, scissor)
	return rd.raster[fill][cull][scissor]
}

// SetRasterizerMode binds the cached state for the combination. Forced
// wireframe replaces the fill mode at bind time.
func (rd *RenderDevice) SetRasterizerMode(fill metadata.FillMode, cull metadata.CullMode, scissor metadata.ScissorMode) {
	rd.ready("SetRasterizerMode")
	rd.rasterMode = rasterKey{fill, cull, scissor}
	rd.bindRasterState()
}

func (rd *RenderDevice) SetForceWireframe(force bool) {
	if rd.forceWireframe == force {
		return
	}
	rd.forceWireframe = force
	if rd.device != nil {
		rd.bindRasterState()
	}
}

func (rd *RenderDevice) bindRasterState() {
	k := rd.rasterMode
	if rd.forceWireframe {
		k.fill = metadata.FillWireframe
	}
	rd.context.RSSetState(rd.RasterState(k.fill, k.cull, k.scissor))
}
