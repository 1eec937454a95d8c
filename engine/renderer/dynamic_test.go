package renderer

import (
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver/soft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicBufferRotation(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Device.BufferCount = 3 })
	h := f.rd.AllocateDynamicBuffer(64)
	require.True(t, h.Valid())
	assert.Equal(t, 3, f.dev.Created[driver.KindBuffer])

	targets := make([]driver.Buffer, 7)
	for i := range targets {
		targets[i] = f.rd.DynamicTarget(h)
		f.rd.Present()
	}
	for i := range targets {
		for j := range targets {
			if i%3 == j%3 {
				assert.Same(t, targets[i].(*soft.Buffer), targets[j].(*soft.Buffer), "frames %d and %d", i, j)
			} else {
				assert.NotSame(t, targets[i].(*soft.Buffer), targets[j].(*soft.Buffer), "frames %d and %d", i, j)
			}
		}
	}
}

func TestUploadDynamicDiscards(t *testing.T) {
	f := newFixture(t)
	h := f.rd.AllocateDynamicBuffer(16)

	f.rd.UploadDynamic(h, []byte{1, 2, 3, 4})
	buf := f.rd.DynamicTarget(h).(*soft.Buffer)
	assert.Equal(t, 1, buf.Renames)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.Data()[:4])

	f.rd.UploadDynamic(h, []byte{9})
	assert.Equal(t, 2, buf.Renames)
	assert.Equal(t, byte(9), buf.Data()[0])
	// discard hands out fresh storage
	assert.Equal(t, byte(0), buf.Data()[1])

	f.rd.Present()
	next := f.rd.DynamicTarget(h).(*soft.Buffer)
	assert.NotSame(t, buf, next)
	assert.Equal(t, 0, next.Renames)

	requireFatal(t, func() { f.rd.UploadDynamic(h, make([]byte, 17)) })
}

func TestBindDynamicVertexBuffer(t *testing.T) {
	f := newFixture(t)
	h := f.rd.AllocateDynamicBuffer(256)
	f.rd.BindDynamicVertexBuffer(0, h, 20, 4)

	binding := f.ctx.VertexBuffer(0)
	assert.Same(t, f.rd.DynamicTarget(h).(*soft.Buffer), binding.Buffer)
	assert.Equal(t, uint32(20), binding.Stride)
	assert.Equal(t, uint32(4), binding.Offset)
}

func TestDynamicBindingFollowsRotation(t *testing.T) {
	f := newFixture(t)
	_, _, desc := f.readyToDraw(t)
	h := f.rd.AllocateDynamicBuffer(3 * desc.Stride())
	f.rd.BindDynamicVertexBuffer(0, h, desc.Stride(), 0)
	f.rd.Draw(3, 0)
	first := f.ctx.VertexBuffer(0).Buffer

	f.rd.Present()
	f.rd.UploadDynamic(h, []byte{1, 2, 3})
	f.rd.Draw(3, 0)

	binding := f.ctx.VertexBuffer(0)
	current := f.rd.DynamicTarget(h).(*soft.Buffer)
	assert.NotSame(t, first, binding.Buffer)
	assert.Same(t, current, binding.Buffer)
	assert.Equal(t, desc.Stride(), binding.Stride)
	assert.Equal(t, []byte{1, 2, 3}, current.Data()[:3])
	assert.Empty(t, f.ctx.ValidationErrors)
}

func TestDynamicBufferExhaustion(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Dynamic.MaxSlots = 2 })
	a := f.rd.AllocateDynamicBuffer(32)
	f.rd.AllocateDynamicBuffer(32)
	assert.Equal(t, 2, f.rd.DynamicBufferCount())

	fe := requireFatal(t, func() { f.rd.AllocateDynamicBuffer(32) })
	assert.Contains(t, fe.Error(), "ran out of handles")

	f.rd.ReleaseDynamicBuffer(a)
	again := f.rd.AllocateDynamicBuffer(32)
	assert.Equal(t, a.Index(), again.Index())
}

func TestReleaseDynamicBuffer(t *testing.T) {
	f := newFixture(t)
	before := f.rd.Registry().Count()
	h := f.rd.AllocateDynamicBuffer(64)
	assert.Equal(t, before+2, f.rd.Registry().Count())

	f.rd.BindDynamicVertexBuffer(1, h, 16, 0)
	requireFatal(t, func() { f.rd.ReleaseDynamicBuffer(h) })

	vb := f.rd.CreateVertexBuffer(make([]byte, 64))
	defer vb.Release()
	f.rd.BindVertexBuffer(1, vb, 16, 0)
	f.rd.ReleaseDynamicBuffer(h)
	assert.Equal(t, 0, f.rd.DynamicBufferCount())
	// the vertex buffer is the only addition left
	assert.Equal(t, before+1, f.rd.Registry().Count())

	requireFatal(t, func() { f.rd.UploadDynamic(h, []byte{1}) })
	requireFatal(t, func() { f.rd.UploadDynamic(DynamicBuffer{}, []byte{1}) })
}
