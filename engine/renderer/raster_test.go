package renderer

import (
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRasterCacheIsComplete(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 12, f.dev.Created[driver.KindRasterizerState])

	seen := map[driver.RasterizerState]bool{}
	for fill := metadata.FillMode(0); fill < metadata.FillModeCount; fill++ {
		for cull := metadata.CullMode(0); cull < metadata.CullModeCount; cull++ {
			for scissor := metadata.ScissorMode(0); scissor < metadata.ScissorModeCount; scissor++ {
				state := f.rd.RasterState(fill, cull, scissor)
				require.NotNil(t, state)
				assert.False(t, seen[state])
				seen[state] = true
				assert.True(t, state.RasterizerDesc().DepthClipEnable)
			}
		}
	}
	requireFatal(t, func() { f.rd.RasterState(metadata.FillModeCount, 0, 0) })
}

func TestSetRasterizerMode(t *testing.T) {
	f := newFixture(t)
	desc := f.ctx.RasterizerState().RasterizerDesc()
	assert.Equal(t, driver.FillSolid, desc.FillMode)
	assert.Equal(t, driver.CullBack, desc.CullMode)
	assert.False(t, desc.ScissorEnable)

	f.rd.SetRasterizerMode(metadata.FillWireframe, metadata.CullNone, metadata.ScissorEnabled)
	desc = f.ctx.RasterizerState().RasterizerDesc()
	assert.Equal(t, driver.FillWireframe, desc.FillMode)
	assert.Equal(t, driver.CullNone, desc.CullMode)
	assert.True(t, desc.ScissorEnable)
}

func TestForceWireframe(t *testing.T) {
	f := newFixture(t)
	f.rd.SetRasterizerMode(metadata.FillSolid, metadata.CullFront, metadata.ScissorDisabled)
	f.rd.SetForceWireframe(true)
	desc := f.ctx.RasterizerState().RasterizerDesc()
	assert.Equal(t, driver.FillWireframe, desc.FillMode)
	assert.Equal(t, driver.CullFront, desc.CullMode)

	// the requested mode survives the override
	f.rd.SetRasterizerMode(metadata.FillSolid, metadata.CullNone, metadata.ScissorDisabled)
	assert.Equal(t, driver.FillWireframe, f.ctx.RasterizerState().RasterizerDesc().FillMode)

	f.rd.SetForceWireframe(false)
	desc = f.ctx.RasterizerState().RasterizerDesc()
	assert.Equal(t, driver.FillSolid, desc.FillMode)
	assert.Equal(t, driver.CullNone, desc.CullMode)
}

func TestForceWireframeFromConfig(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Device.ForceWireframe = true })
	assert.Equal(t, driver.FillWireframe, f.ctx.RasterizerState().RasterizerDesc().FillMode)
}
