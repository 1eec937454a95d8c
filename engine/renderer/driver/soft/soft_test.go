package soft

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func open(t *testing.T) (*Device, *Context, *SwapChain) {
	t.Helper()
	dev, ctx, sc, err := NewReference().Open(driver.CreateParams{Width: 64, Height: 32, BufferCount: 2})
	require.NoError(t, err)
	return dev.(*Device), ctx.(*Context), sc.(*SwapChain)
}

func module() []byte {
	out := make([]byte, 20)
	binary.LittleEndian.PutUint32(out, spirvMagic)
	return out
}

func TestRegisteredDrivers(t *testing.T) {
	drv, err := driver.Lookup(driver.Reference)
	require.NoError(t, err)
	assert.Equal(t, "soft-reference", drv.Name())
	_, err = driver.Lookup(driver.Warp)
	assert.NoError(t, err)
}

func TestOpenRejectsBadParams(t *testing.T) {
	_, _, _, err := NewWarp().Open(driver.CreateParams{Width: 64, Height: 64})
	assert.ErrorIs(t, err, driver.ErrInvalidArg)
}

func TestReleaseOrderLeavesNothing(t *testing.T) {
	dev, ctx, sc := open(t)
	assert.Equal(t, uint32(2), sc.BufferCount())

	ctx.Release()
	sc.Release()
	assert.Equal(t, 0, dev.LiveCount())
	dev.Release()
	assert.Equal(t, 0, dev.DanglingAtRelease)
}

func TestDanglingChildrenAreCounted(t *testing.T) {
	dev, ctx, sc := open(t)
	_, err := dev.CreateSamplerState(driver.SamplerDesc{
		AddressU: driver.AddressClamp, AddressV: driver.AddressClamp, AddressW: driver.AddressClamp,
	})
	require.NoError(t, err)
	ctx.Release()
	sc.Release()
	dev.Release()
	assert.Equal(t, 1, dev.DanglingAtRelease)
}

func TestBufferValidation(t *testing.T) {
	dev, _, _ := open(t)

	_, err := dev.CreateBuffer(driver.BufferDesc{ByteWidth: 12, BindFlags: driver.BindConstantBuffer}, nil)
	assert.ErrorIs(t, err, driver.ErrInvalidArg)

	_, err = dev.CreateBuffer(driver.BufferDesc{ByteWidth: 64, Usage: driver.UsageDynamic, BindFlags: driver.BindVertexBuffer}, nil)
	assert.ErrorIs(t, err, driver.ErrInvalidArg)

	_, err = dev.CreateBuffer(driver.BufferDesc{ByteWidth: 64, Usage: driver.UsageImmutable, BindFlags: driver.BindVertexBuffer}, nil)
	assert.ErrorIs(t, err, driver.ErrInvalidArg)

	b, err := dev.CreateBuffer(driver.BufferDesc{ByteWidth: 4, Usage: driver.UsageImmutable, BindFlags: driver.BindIndexBuffer},
		&driver.SubresourceData{Data: []byte{1, 2, 3, 4}})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, b.(*Buffer).Data())
}

func TestDiscardMapRenames(t *testing.T) {
	dev, ctx, _ := open(t)
	b, err := dev.CreateBuffer(driver.BufferDesc{
		ByteWidth: 16, Usage: driver.UsageDynamic, BindFlags: driver.BindVertexBuffer, CPUAccess: driver.CPUAccessWrite,
	}, nil)
	require.NoError(t, err)

	m, err := ctx.Map(b, driver.MapWriteDiscard)
	require.NoError(t, err)
	copy(m.Data, []byte{9, 9})
	_, err = ctx.Map(b, driver.MapWriteDiscard)
	assert.ErrorIs(t, err, driver.ErrInvalidCall)
	ctx.Unmap(b)

	assert.Equal(t, byte(9), b.(*Buffer).Data()[0])
	assert.Equal(t, 1, b.(*Buffer).Renames)
	assert.Equal(t, 2, ctx.CallCount("Map"))
	assert.Empty(t, ctx.ValidationErrors)

	ctx.Unmap(b)
	assert.Len(t, ctx.ValidationErrors, 1)
}

func TestMapRequiresDynamicUsage(t *testing.T) {
	dev, ctx, _ := open(t)
	b, err := dev.CreateBuffer(driver.BufferDesc{ByteWidth: 16, BindFlags: driver.BindVertexBuffer}, nil)
	require.NoError(t, err)
	_, err = ctx.Map(b, driver.MapWriteDiscard)
	assert.ErrorIs(t, err, driver.ErrInvalidCall)
}

func TestInputLayoutChecksSignature(t *testing.T) {
	dev, _, _ := open(t)
	sig := driver.EncodeSignature([]driver.SignatureParameter{
		{Location: 0, ComponentType: driver.ComponentFloat32, ComponentCount: 3, Name: "position"},
	})
	elements := []driver.InputElementDesc{
		{SemanticName: "POSITION", Format: driver.FormatR32G32B32Float, AlignedByteOffset: driver.AppendAlignedElement},
		{SemanticName: "COLOR", Format: driver.FormatR8G8B8A8Unorm, AlignedByteOffset: driver.AppendAlignedElement},
	}
	l, err := dev.CreateInputLayout(elements, sig)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 12}, l.(*InputLayout).Offsets())

	_, err = dev.CreateInputLayout([]driver.InputElementDesc{
		{SemanticName: "BLENDINDICES", Format: driver.FormatR8G8B8A8Uint},
	}, sig)
	assert.ErrorIs(t, err, driver.ErrInvalidArg)

	_, err = dev.CreateInputLayout(elements, []byte{1})
	assert.ErrorIs(t, err, driver.ErrInvalidArg)

	dup := append([]driver.InputElementDesc{}, elements[0], elements[0])
	_, err = dev.CreateInputLayout(dup, sig)
	assert.ErrorIs(t, err, driver.ErrInvalidArg)
}

func TestShaderModuleMagic(t *testing.T) {
	dev, _, _ := open(t)
	_, err := dev.CreateVertexShader([]byte("not a shader module"))
	assert.ErrorIs(t, err, driver.ErrInvalidArg)
	vs, err := dev.CreateVertexShader(module())
	require.NoError(t, err)
	assert.Len(t, vs.VertexBytecode(), 20)
}

func TestBindingHoldsReferences(t *testing.T) {
	dev, ctx, _ := open(t)
	rs, err := dev.CreateRasterizerState(driver.RasterizerDesc{FillMode: driver.FillSolid, CullMode: driver.CullBack})
	require.NoError(t, err)

	ctx.RSSetState(rs)
	assert.Equal(t, uint32(2), rs.(*RasterizerState).Refs())
	assert.Equal(t, uint32(1), rs.Release())
	assert.Same(t, rs, driver.RasterizerState(ctx.RasterizerState()))

	ctx.ClearState()
	assert.Nil(t, ctx.RasterizerState())
	assert.Equal(t, uint32(0), rs.(*RasterizerState).Refs())
}

func TestResizeRefusedWhileBackBufferHeld(t *testing.T) {
	dev, ctx, sc := open(t)
	tex, err := sc.GetBuffer(0)
	require.NoError(t, err)
	rtv, err := dev.CreateRenderTargetView(tex)
	require.NoError(t, err)
	tex.Release()
	ctx.OMSetRenderTargets([]driver.RenderTargetView{rtv})

	assert.ErrorIs(t, sc.ResizeBuffers(128, 64), driver.ErrInvalidCall)

	ctx.OMSetRenderTargets(nil)
	rtv.Release()
	require.NoError(t, sc.ResizeBuffers(128, 64))
	w, h := sc.Size()
	assert.Equal(t, uint32(128), w)
	assert.Equal(t, uint32(64), h)
	assert.Equal(t, 1, sc.Resizes)
}

func TestPresentRotatesBackBuffers(t *testing.T) {
	_, _, sc := open(t)
	require.NoError(t, sc.Present(1))
	assert.Equal(t, uint32(1), sc.Current())
	require.NoError(t, sc.Present(0))
	assert.Equal(t, uint32(0), sc.Current())
	assert.Equal(t, 2, sc.Presents)
}

func TestDrawValidation(t *testing.T) {
	dev, ctx, sc := open(t)
	ctx.Draw(3, 0)
	assert.NotEmpty(t, ctx.ValidationErrors)
	ctx.ResetCounters()

	sig := driver.EncodeSignature([]driver.SignatureParameter{
		{Location: 0, ComponentType: driver.ComponentFloat32, ComponentCount: 2, Name: "position"},
	})
	layout, err := dev.CreateInputLayout([]driver.InputElementDesc{
		{SemanticName: "POSITION", Format: driver.FormatR32G32Float},
	}, sig)
	require.NoError(t, err)
	vs, err := dev.CreateVertexShader(module())
	require.NoError(t, err)
	ps, err := dev.CreatePixelShader(module())
	require.NoError(t, err)
	vb, err := dev.CreateBuffer(driver.BufferDesc{ByteWidth: 24, BindFlags: driver.BindVertexBuffer}, nil)
	require.NoError(t, err)
	tex, err := sc.GetBuffer(0)
	require.NoError(t, err)
	rtv, err := dev.CreateRenderTargetView(tex)
	require.NoError(t, err)

	ctx.IASetInputLayout(layout)
	ctx.IASetVertexBuffers(0, []driver.Buffer{vb}, []uint32{8}, []uint32{0})
	ctx.IASetPrimitiveTopology(driver.TopologyTriangleList)
	ctx.VSSetShader(vs)
	ctx.PSSetShader(ps)
	ctx.OMSetRenderTargets([]driver.RenderTargetView{rtv})
	ctx.Draw(3, 0)
	assert.Empty(t, ctx.ValidationErrors)

	ctx.DrawIndexed(3, 0, 0)
	assert.Len(t, ctx.ValidationErrors, 1)
	require.Len(t, ctx.Draws, 2)
	assert.Same(t, vb.(*Buffer), ctx.Draws[0].VertexBuffer.Buffer)
	assert.Equal(t, uint32(8), ctx.Draws[0].VertexBuffer.Stride)
}

func TestWarpSkipsValidation(t *testing.T) {
	_, ctx, _, err := NewWarp().Open(driver.CreateParams{Width: 8, Height: 8, BufferCount: 1})
	require.NoError(t, err)
	c := ctx.(*Context)
	c.Draw(3, 0)
	assert.Empty(t, c.ValidationErrors)
	assert.Equal(t, 1, c.CallCount("Draw"))
}

func TestLiveObjectReport(t *testing.T) {
	dev, _, _ := open(t)
	report := dev.ReportLiveObjects()
	// context, two back buffers, swapchain
	require.Len(t, report, 4)
	assert.Equal(t, driver.KindContext, report[0].Kind)
	assert.Equal(t, driver.KindSwapChain, report[3].Kind)
}
