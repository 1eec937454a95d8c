package renderer

import (
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineStateString(t *testing.T) {
	assert.Equal(t, "no-layout-no-shaders", PipelineNoLayoutNoShaders.String())
	assert.Equal(t, "layout-dirty", PipelineLayoutDirty.String())
	assert.Equal(t, "ready", PipelineReady.String())
	assert.Equal(t, "unknown", PipelineState(9).String())
}

func TestDrawBuildsPipelineOnce(t *testing.T) {
	f := newFixture(t)
	vs, fs, _ := f.readyToDraw(t)
	assert.Equal(t, PipelineLayoutDirty, f.rd.PipelineState())

	f.ctx.ResetCounters()
	f.rd.Draw(3, 0)
	f.rd.Draw(3, 0)
	assert.Equal(t, PipelineReady, f.rd.PipelineState())
	assert.Equal(t, 1, f.ctx.CallCount("IASetInputLayout"))
	assert.Equal(t, 1, f.ctx.CallCount("VSSetShader"))
	assert.Equal(t, 1, f.ctx.CallCount("PSSetShader"))
	assert.Equal(t, 2, f.ctx.CallCount("Draw"))
	assert.Empty(t, f.ctx.ValidationErrors)

	// rebinding what is bound, or an equal description, changes nothing
	f.rd.BindVertexShader(vs)
	f.rd.BindFragmentShader(fs)
	f.rd.SetInputLayoutDescription(quadFormat())
	assert.Equal(t, PipelineReady, f.rd.PipelineState())
	f.rd.Draw(3, 0)
	assert.Equal(t, 1, f.ctx.CallCount("IASetInputLayout"))

	require.Len(t, f.ctx.Draws, 3)
	draw := f.ctx.Draws[2]
	assert.Equal(t, "Draw", draw.Op)
	assert.Equal(t, uint32(3), draw.Count)
	assert.Same(t, f.ctx.InputLayout(), draw.Layout)
	assert.Equal(t, vs.Binary(), draw.VertexShader.VertexBytecode())
	assert.Equal(t, fs.Binary(), draw.PixelShader.PixelBytecode())
}

func TestShaderChangeRebuildsPipeline(t *testing.T) {
	f := newFixture(t)
	f.readyToDraw(t)
	f.rd.Draw(3, 0)

	path := f.shaderFile(t, "alt.wgsl")
	alt, err := f.rd.CompileFragmentShader(path, "fs_main")
	require.NoError(t, err)
	f.ctx.ResetCounters()
	f.rd.BindFragmentShader(alt)
	assert.Equal(t, PipelineLayoutDirty, f.rd.PipelineState())
	f.rd.Draw(3, 0)
	assert.Equal(t, 1, f.ctx.CallCount("PSSetShader"))
	// the layout is served from the cache
	assert.Equal(t, 1, f.rd.InputLayoutCount())
	assert.Equal(t, 1, f.dev.Created[driver.KindInputLayout])
}

func TestStepRateChangeIsNoticedAtDraw(t *testing.T) {
	f := newFixture(t)
	vs, fs := f.quadShaders(t)
	desc := metadata.NewVertexFormat(
		metadata.VertexElement{SemanticName: "POSITION", Format: metadata.FormatRGB32Float, Offset: metadata.AppendAligned},
		metadata.VertexElement{SemanticName: "TEXCOORD", Format: metadata.FormatRG32Float, Offset: metadata.AppendAligned},
		metadata.VertexElement{SemanticName: "WORLD", Format: metadata.FormatRGBA32Float, Offset: metadata.AppendAligned},
	)
	vb := f.rd.CreateVertexBuffer(make([]byte, 256))
	defer vb.Release()
	f.rd.BindVertexBuffer(0, vb, desc.Stride(), 0)
	f.rd.BindVertexBuffer(1, vb, 16, 0)
	f.rd.BindVertexShader(vs)
	f.rd.BindFragmentShader(fs)
	f.rd.SetInputLayoutDescription(desc)
	f.rd.DrawInstanced(3, 1, 0, 0)

	desc.SetStepRate(2, 1)
	f.rd.DrawInstanced(3, 4, 0, 0)
	assert.Equal(t, 2, f.rd.InputLayoutCount())
	elements := f.ctx.InputLayout().Elements()
	assert.Equal(t, driver.InputPerInstanceData, elements[2].InputSlotClass)
	assert.Empty(t, f.ctx.ValidationErrors)
}

func TestDrawVariants(t *testing.T) {
	f := newFixture(t)
	f.readyToDraw(t)
	ib := f.rd.CreateIndexBuffer(Bytes([]uint16{0, 1, 2}), metadata.FormatR16Uint)
	defer ib.Release()
	f.rd.BindIndexBuffer(ib, 0)

	f.ctx.ResetCounters()
	f.rd.DrawIndexed(3, 0, 0)
	f.rd.DrawInstanced(3, 2, 0, 0)
	f.rd.DrawIndexedInstanced(3, 2, 0, 0, 1)
	require.Len(t, f.ctx.Draws, 3)
	assert.Equal(t, "DrawIndexed", f.ctx.Draws[0].Op)
	assert.Equal(t, uint32(2), f.ctx.Draws[1].Instances)
	assert.Equal(t, uint32(1), f.ctx.Draws[2].StartInstance)
	assert.Empty(t, f.ctx.ValidationErrors)
}

func TestDrawWithoutShadersAborts(t *testing.T) {
	f := newFixture(t)
	f.rd.SetInputLayoutDescription(quadFormat())
	requireFatal(t, func() { f.rd.Draw(3, 0) })
}

func TestDrawOnFreshDeviceAborts(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, PipelineNoLayoutNoShaders, f.rd.PipelineState())
	requireFatal(t, func() { f.rd.Draw(3, 0) })
	requireFatal(t, func() { f.rd.DrawIndexed(3, 0, 0) })
	assert.Empty(t, f.ctx.Draws)

	vs, _ := f.quadShaders(t)
	f.rd.BindVertexShader(vs)
	requireFatal(t, func() { f.rd.Draw(3, 0) })
	assert.Empty(t, f.ctx.Draws)
}

func TestSetPrimitiveTopology(t *testing.T) {
	f := newFixture(t)
	f.rd.SetPrimitiveTopology(metadata.TopologyLineStrip)
	assert.Equal(t, driver.TopologyLineStrip, f.ctx.Topology())
}
