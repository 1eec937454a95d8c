package renderer

import (
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes(t *testing.T) {
	assert.Nil(t, Bytes([]float32(nil)))
	assert.Equal(t, []byte{1, 0, 2, 0}, Bytes([]uint16{1, 2}))
	type vertex struct{ X, Y, Z, U, V float32 }
	assert.Len(t, Bytes(make([]vertex, 3)), 60)
}

func TestTexture(t *testing.T) {
	f := newFixture(t)
	bm := &metadata.Bitmap{
		Width:  2,
		Height: 2,
		Format: metadata.FormatRGBA8Unorm,
		Pixels: []byte{
			255, 0, 0, 255, 0, 255, 0, 255,
			0, 0, 255, 255, 255, 255, 255, 255,
		},
	}
	tex := f.rd.CreateTexture(bm)
	w, h := tex.Size()
	assert.Equal(t, uint32(2), w)
	assert.Equal(t, uint32(2), h)

	f.rd.BindTexture(0, tex)
	srv := f.ctx.ShaderResource(0)
	require.NotNil(t, srv)
	assert.Equal(t, bm.Pixels, srv.ViewedTexture().(interface{ Data() []byte }).Data())

	before := f.rd.Registry().Count()
	tex.Release()
	assert.Equal(t, before-2, f.rd.Registry().Count())
	requireFatal(t, func() { f.rd.BindTexture(0, tex) })
	assert.NotPanics(t, tex.Release)

	requireFatal(t, func() { f.rd.CreateTexture(&metadata.Bitmap{Width: 2, Height: 2, Format: metadata.FormatRGBA8Unorm}) })
}

func TestIndexBuffer(t *testing.T) {
	f := newFixture(t)
	ib := f.rd.CreateIndexBuffer(Bytes([]uint32{0, 1, 2, 2, 1, 3}), metadata.FormatR32Uint)
	defer ib.Release()
	assert.Equal(t, uint32(6), ib.Count())

	f.rd.BindIndexBuffer(ib, 4)
	buf, format, offset := f.ctx.IndexBuffer()
	require.NotNil(t, buf)
	assert.Equal(t, driver.FormatR32Uint, format)
	assert.Equal(t, uint32(4), offset)

	requireFatal(t, func() { f.rd.CreateIndexBuffer(make([]byte, 8), metadata.FormatR32Float) })
	requireFatal(t, func() { f.rd.CreateIndexBuffer(make([]byte, 3), metadata.FormatR16Uint) })
}

func TestConstantBuffer(t *testing.T) {
	f := newFixture(t)
	cb := f.rd.CreateConstantBuffer(20)
	defer cb.Release()
	assert.Equal(t, uint32(32), cb.Size())

	f.rd.UpdateConstantBuffer(cb, []byte{1, 2, 3})
	f.rd.BindConstantBuffer(metadata.StageVertex, 0, cb)
	f.rd.BindConstantBuffer(metadata.StageFragment, 2, cb)
	vsCB := f.ctx.VSConstantBuffer(0)
	require.NotNil(t, vsCB)
	assert.Same(t, vsCB, f.ctx.PSConstantBuffer(2))
	assert.Equal(t, []byte{1, 2, 3, 0}, vsCB.Data()[:4])
	assert.Len(t, vsCB.Data(), 32)

	requireFatal(t, func() { f.rd.UpdateConstantBuffer(cb, make([]byte, 33)) })
	assert.Empty(t, f.ctx.ValidationErrors)
}

func TestSampler(t *testing.T) {
	f := newFixture(t)
	s := f.rd.CreateSampler(metadata.FilterLinear, metadata.AddressWrap)
	defer s.Release()

	f.rd.BindSampler(1, s)
	desc := f.ctx.Sampler(1).SamplerDesc()
	assert.Equal(t, driver.FilterMinMagMipLinear, desc.Filter)
	assert.Equal(t, driver.AddressWrap, desc.AddressU)
	assert.Equal(t, driver.AddressWrap, desc.AddressV)

	f.rd.BindSampler(1, nil)
	desc = f.ctx.Sampler(1).SamplerDesc()
	assert.Equal(t, driver.FilterMinMagMipPoint, desc.Filter)
	assert.Equal(t, driver.AddressClamp, desc.AddressU)
}
