package vulkan

import (
	"encoding/binary"
	"io"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	core.SetLogOutput(io.Discard)
}

// hostDevice is a Device with no GPU behind it, enough for the paths that
// only do bookkeeping.
func hostDevice() *Device {
	d := &Device{vc: &VulkanContext{}, live: make(map[uint64]*object), pipes: newPipelineCache()}
	d.object = object{kind: driver.KindDevice, refs: 1}
	return d
}

func hostBuffer(size uint64) *VulkanBuffer {
	backing := make([]byte, size)
	return &VulkanBuffer{Size: size, mapped: unsafe.Pointer(&backing[0])}
}

func TestOpenWithoutWindowIsUnsupported(t *testing.T) {
	drv, err := driver.Lookup(driver.Hardware)
	require.NoError(t, err)
	assert.Equal(t, "vulkan", drv.Name())

	_, _, _, err = drv.Open(driver.CreateParams{Width: 64, Height: 64, BufferCount: 2})
	assert.ErrorIs(t, err, driver.ErrUnsupported)
}

func TestFormatMappingRoundTrips(t *testing.T) {
	for f := range vkFormats {
		v, ok := toVkFormat(f)
		require.True(t, ok, f.String())
		assert.Equal(t, f, fromVkFormat(v))
	}
	_, ok := toVkFormat(driver.Format(999))
	assert.False(t, ok)
	assert.Equal(t, driver.FormatUnknown, fromVkFormat(vk.FormatUndefined))
}

func TestCheckResultMapsCodes(t *testing.T) {
	assert.NoError(t, checkResult("op", vk.Success))
	assert.NoError(t, checkResult("op", vk.Suboptimal))

	err := checkResult("vkAllocateMemory", vk.ErrorOutOfDeviceMemory)
	assert.ErrorIs(t, err, driver.ErrOutOfMemory)
	assert.Contains(t, err.Error(), "VK_ERROR_OUT_OF_DEVICE_MEMORY")

	assert.ErrorIs(t, checkResult("op", vk.ErrorDeviceLost), driver.ErrDeviceRemoved)
	assert.ErrorIs(t, checkResult("op", vk.Result(-12345)), driver.ErrFail)
	assert.True(t, VulkanResultIsSuccess(vk.Result(7)))
}

func TestFilterDecoding(t *testing.T) {
	minF, magF, mip := toVkFilter(driver.FilterMinMagMipPoint)
	assert.Equal(t, vk.FilterNearest, minF)
	assert.Equal(t, vk.FilterNearest, magF)
	assert.Equal(t, vk.SamplerMipmapModeNearest, mip)

	minF, magF, mip = toVkFilter(driver.FilterMinMagMipLinear)
	assert.Equal(t, vk.FilterLinear, minF)
	assert.Equal(t, vk.FilterLinear, magF)
	assert.Equal(t, vk.SamplerMipmapModeLinear, mip)
}

func TestViewportIsFlipped(t *testing.T) {
	v := toVkViewport(driver.Viewport{TopLeftX: 10, TopLeftY: 20, Width: 640, Height: 480, MaxDepth: 1})
	assert.Equal(t, float32(500), v.Y)
	assert.Equal(t, float32(-480), v.Height)
	assert.Equal(t, float32(640), v.Width)

	r := toVkRect(driver.Rect{Left: 5, Top: 6, Right: 3, Bottom: 16})
	assert.Equal(t, uint32(0), r.Extent.Width)
	assert.Equal(t, uint32(10), r.Extent.Height)
	assert.Equal(t, int32(5), r.Offset.X)
}

func TestVertexInputGroupsSlots(t *testing.T) {
	elements := []driver.InputElementDesc{
		{SemanticName: "POSITION", Format: driver.FormatR32G32B32Float, AlignedByteOffset: driver.AppendAlignedElement},
		{SemanticName: "TEXCOORD", Format: driver.FormatR32G32Float, AlignedByteOffset: driver.AppendAlignedElement},
		{SemanticName: "OFFSET", Format: driver.FormatR32G32Float, InputSlot: 1, InputSlotClass: driver.InputPerInstanceData, InstanceDataStepRate: 1},
	}
	var strides [MaxVertexBufferSlots]uint32
	strides[0], strides[1] = 20, 8

	bindings, attributes, err := vertexInput(elements, driver.ResolveElementOffsets(elements), &strides)
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, uint32(20), bindings[0].Stride)
	assert.Equal(t, vk.VertexInputRateVertex, bindings[0].InputRate)
	assert.Equal(t, vk.VertexInputRateInstance, bindings[1].InputRate)

	require.Len(t, attributes, 3)
	assert.Equal(t, uint32(12), attributes[1].Offset)
	assert.Equal(t, uint32(2), attributes[2].Location)
	assert.Equal(t, uint32(1), attributes[2].Binding)
}

func TestPipelineKeyIncludesStrides(t *testing.T) {
	a := pipelineKey{vs: 1, ps: 2, layout: 3, raster: defaultRasterizer, topology: driver.TopologyTriangleList}
	b := a
	assert.Equal(t, a, b)
	b.strides[0] = 32
	assert.NotEqual(t, a, b)

	cache := newPipelineCache()
	builds := 0
	build := func() (*VulkanPipeline, error) {
		builds++
		return &VulkanPipeline{}, nil
	}
	_, err := cache.get(a, build)
	require.NoError(t, err)
	_, err = cache.get(a, build)
	require.NoError(t, err)
	_, err = cache.get(b, build)
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}

func TestUploadArenaAligns(t *testing.T) {
	arena := &uploadArena{buffer: hostBuffer(512), alignment: 256}
	off, ok := arena.push(make([]byte, 16))
	require.True(t, ok)
	assert.Equal(t, uint64(0), off)

	off, ok = arena.push([]byte{1, 2, 3, 4})
	require.True(t, ok)
	assert.Equal(t, uint64(256), off)
	assert.Equal(t, byte(3), arena.buffer.Bytes()[258])

	_, ok = arena.push(make([]byte, 16))
	assert.False(t, ok)

	arena.reset()
	off, ok = arena.push(make([]byte, 16))
	assert.True(t, ok)
	assert.Equal(t, uint64(0), off)
	assert.Equal(t, uint64(256), alignUp(1, 256))
}

func TestCheckModule(t *testing.T) {
	code := make([]byte, 20)
	assert.ErrorIs(t, checkModule("op", code), driver.ErrInvalidArg)
	binary.LittleEndian.PutUint32(code, spirvMagic)
	assert.NoError(t, checkModule("op", code))
	assert.ErrorIs(t, checkModule("op", code[:18]), driver.ErrInvalidArg)
}

func TestRetiredWorkWaitsForItsFrame(t *testing.T) {
	d := hostDevice()
	ran := 0
	d.retire(func(*VulkanContext) { ran++ })

	d.frameSubmitted(0)
	d.frameComplete(1)
	assert.Equal(t, 0, ran)

	d.frameComplete(0)
	assert.Equal(t, 1, ran)
	assert.Empty(t, d.retired)
}

func TestRenameReusesIdleVersion(t *testing.T) {
	d := hostDevice()
	busy := &bufferVersion{gpu: hostBuffer(64), lastUse: 5}
	idle := &bufferVersion{gpu: hostBuffer(64), lastUse: 3}
	b := &Buffer{desc: driver.BufferDesc{ByteWidth: 64, Usage: driver.UsageDynamic, BindFlags: driver.BindVertexBuffer}}
	b.dev = d
	b.versions = []*bufferVersion{busy, idle}
	b.current = busy
	d.completed = 4

	require.NoError(t, b.rename())
	assert.Same(t, idle, b.current)
	b.markUsed()
	assert.Equal(t, d.recordingFrame(), idle.lastUse)
}

func TestInputLayoutRules(t *testing.T) {
	d := hostDevice()
	sig := driver.EncodeSignature([]driver.SignatureParameter{
		{Location: 0, ComponentType: driver.ComponentFloat32, ComponentCount: 3, Name: "POSITION"},
	})

	_, err := d.CreateInputLayout([]driver.InputElementDesc{
		{SemanticName: "POSITION", Format: driver.FormatR32G32B32Float, InstanceDataStepRate: 2},
	}, sig)
	assert.ErrorIs(t, err, driver.ErrInvalidArg)

	l, err := d.CreateInputLayout([]driver.InputElementDesc{
		{SemanticName: "POSITION", Format: driver.FormatR32G32B32Float},
		{SemanticName: "OFFSET", Format: driver.FormatR32G32Float, InputSlot: 1, InputSlotClass: driver.InputPerInstanceData, InstanceDataStepRate: 4},
	}, sig)
	require.NoError(t, err)
	assert.Len(t, l.Elements(), 2)
	assert.Len(t, d.ReportLiveObjects(), 1)
	assert.Equal(t, uint32(0), l.Release())
	assert.Empty(t, d.ReportLiveObjects())
}

func TestContextHoldsReferences(t *testing.T) {
	d := hostDevice()
	rs, err := d.CreateRasterizerState(driver.RasterizerDesc{FillMode: driver.FillWireframe, CullMode: driver.CullNone})
	require.NoError(t, err)
	_, err = d.CreateRasterizerState(driver.RasterizerDesc{FillMode: 9, CullMode: driver.CullNone})
	assert.ErrorIs(t, err, driver.ErrInvalidArg)

	c := &Context{}
	d.track(&c.object, driver.KindContext)
	c.RSSetState(rs)
	assert.Equal(t, uint32(1), rs.Release())
	assert.Len(t, d.ReportLiveObjects(), 2)

	c.ClearState()
	assert.Len(t, d.ReportLiveObjects(), 1)
	assert.Panics(t, func() { rs.AddRef() })
}
