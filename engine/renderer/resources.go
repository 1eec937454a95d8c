package renderer

import (
	"unsafe"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

// Bytes reinterprets a slice of plain values (vertices, indices, constants)
// as its backing bytes.
func Bytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// handle ties a native object to the device generation that created it.
// Releasing after the device went away is a no-op.
type handle struct {
	rd         *RenderDevice
	generation uint64
}

func (rd *RenderDevice) handle() handle {
	return handle{rd: rd, generation: rd.generation}
}

func (h handle) live() bool {
	return h.rd != nil && h.rd.device != nil && h.rd.generation == h.generation
}

func (h *handle) release(objs ...driver.Object) {
	if h.live() {
		for _, obj := range objs {
			if obj != nil {
				h.rd.registry.Release(obj)
			}
		}
	}
	h.rd = nil
}

func (rd *RenderDevice) createSamplerState(filter metadata.FilterMode, address metadata.AddressMode) driver.SamplerState {
	const op = "CreateSamplerState"
	mode := translateAddress(address)
	state, err := rd.device.CreateSamplerState(driver.SamplerDesc{
		Filter:   translateFilter(filter),
		AddressU: mode,
		AddressV: mode,
		AddressW: mode,
		MaxLOD:   1000,
	})
	rd.check(op, err)
	rd.registry.Register(state, op)
	return state
}

type Texture struct {
	handle
	width  uint32
	height uint32
	format metadata.ResourceFormat
	tex    driver.Texture2D
	view   driver.ShaderResourceView
}

func (t *Texture) Size() (uint32, uint32)          { return t.width, t.height }
func (t *Texture) Format() metadata.ResourceFormat { return t.format }

func (t *Texture) Release() {
	t.release(t.view, t.tex)
	t.view, t.tex = nil, nil
}

// CreateTexture uploads bm into an immutable texture with a shader resource view.
func (rd *RenderDevice) CreateTexture(bm *metadata.Bitmap) *Texture {
	const op = "CreateTexture"
	rd.ready(op)
	if err := bm.Validate(); err != nil {
		core.Fatal(op, err)
	}
	tex, err := rd.device.CreateTexture2D(driver.Texture2DDesc{
		Width:     bm.Width,
		Height:    bm.Height,
		MipLevels: 1,
		ArraySize: 1,
		Format:    TranslateFormat(bm.Format),
		Usage:     driver.UsageImmutable,
		BindFlags: driver.BindShaderResource,
	}, []driver.SubresourceData{{Data: bm.Pixels, RowPitch: bm.RowPitch()}})
	rd.check(op, err)
	rd.registry.Register(tex, op)

	view, err := rd.device.CreateShaderResourceView(tex)
	rd.check(op, err)
	rd.registry.Register(view, op)

	return &Texture{
		handle: rd.handle(),
		width:  bm.Width,
		height: bm.Height,
		format: bm.Format,
		tex:    tex,
		view:   view,
	}
}

func (rd *RenderDevice) BindTexture(slot uint32, t *Texture) {
	const op = "BindTexture"
	rd.ready(op)
	core.Assert(t != nil && t.live(), op, "texture is released")
	rd.context.PSSetShaderResources(slot, []driver.ShaderResourceView{t.view})
}

type VertexBuffer struct {
	handle
	size uint32
	buf  driver.Buffer
}

func (b *VertexBuffer) Size() uint32 { return b.size }

func (b *VertexBuffer) Release() {
	b.release(b.buf)
	b.buf = nil
}

// CreateVertexBuffer uploads data into an immutable vertex buffer.
func (rd *RenderDevice) CreateVertexBuffer(data []byte) *VertexBuffer {
	const op = "CreateVertexBuffer"
	rd.ready(op)
	core.Assert(len(data) > 0, op, "empty vertex data")
	buf, err := rd.device.CreateBuffer(driver.BufferDesc{
		ByteWidth: uint32(len(data)),
		Usage:     driver.UsageImmutable,
		BindFlags: driver.BindVertexBuffer,
	}, &driver.SubresourceData{Data: data})
	rd.check(op, err)
	rd.registry.Register(buf, op)
	return &VertexBuffer{handle: rd.handle(), size: uint32(len(data)), buf: buf}
}

func (rd *RenderDevice) BindVertexBuffer(slot uint32, vb *VertexBuffer, stride, offset uint32) {
	const op = "BindVertexBuffer"
	rd.ready(op)
	core.Assert(vb != nil && vb.live(), op, "vertex buffer is released")
	rd.bindVertexBuffer(slot, vb.buf, stride, offset)
}

type IndexBuffer struct {
	handle
	count  uint32
	format metadata.ResourceFormat
	buf    driver.Buffer
}

func (b *IndexBuffer) Count() uint32                   { return b.count }
func (b *IndexBuffer) Format() metadata.ResourceFormat { return b.format }

func (b *IndexBuffer) Release() {
	b.release(b.buf)
	b.buf = nil
}

// CreateIndexBuffer uploads data into an immutable index buffer. format must
// be FormatR16Uint or FormatR32Uint.
func (rd *RenderDevice) CreateIndexBuffer(data []byte, format metadata.ResourceFormat) *IndexBuffer {
	const op = "CreateIndexBuffer"
	rd.ready(op)
	core.Assert(format == metadata.FormatR16Uint || format == metadata.FormatR32Uint, op, "invalid index format %s", format)
	core.Assert(len(data) > 0 && uint32(len(data))%format.Size() == 0, op,
		"%d bytes is not a whole number of %s indices", len(data), format)
	buf, err := rd.device.CreateBuffer(driver.BufferDesc{
		ByteWidth: uint32(len(data)),
		Usage:     driver.UsageImmutable,
		BindFlags: driver.BindIndexBuffer,
	}, &driver.SubresourceData{Data: data})
	rd.check(op, err)
	rd.registry.Register(buf, op)
	return &IndexBuffer{
		handle: rd.handle(),
		count:  uint32(len(data)) / format.Size(),
		format: format,
		buf:    buf,
	}
}

func (rd *RenderDevice) BindIndexBuffer(ib *IndexBuffer, offset uint32) {
	const op = "BindIndexBuffer"
	rd.ready(op)
	core.Assert(ib != nil && ib.live(), op, "index buffer is released")
	rd.context.IASetIndexBuffer(ib.buf, TranslateFormat(ib.format), offset)
}

type ConstantBuffer struct {
	handle
	size uint32
	buf  driver.Buffer
}

func (b *ConstantBuffer) Size() uint32 { return b.size }

func (b *ConstantBuffer) Release() {
	b.release(b.buf)
	b.buf = nil
}

// CreateConstantBuffer allocates a GPU-updated constant buffer. The size is
// rounded up to a multiple of 16 bytes.
func (rd *RenderDevice) CreateConstantBuffer(size uint32) *ConstantBuffer {
	const op = "CreateConstantBuffer"
	rd.ready(op)
	core.Assert(size > 0, op, "zero size")
	size = (size + 15) &^ 15
	buf, err := rd.device.CreateBuffer(driver.BufferDesc{
		ByteWidth: size,
		Usage:     driver.UsageDefault,
		BindFlags: driver.BindConstantBuffer,
	}, nil)
	rd.check(op, err)
	rd.registry.Register(buf, op)
	return &ConstantBuffer{handle: rd.handle(), size: size, buf: buf}
}

// UpdateConstantBuffer replaces the contents of cb. Short data is zero padded.
func (rd *RenderDevice) UpdateConstantBuffer(cb *ConstantBuffer, data []byte) {
	const op = "UpdateConstantBuffer"
	rd.ready(op)
	core.Assert(cb != nil && cb.live(), op, "constant buffer is released")
	core.Assert(uint32(len(data)) <= cb.size, op, "%d bytes exceed size %d", len(data), cb.size)
	if uint32(len(data)) < cb.size {
		padded := make([]byte, cb.size)
		copy(padded, data)
		data = padded
	}
	rd.context.UpdateSubresource(cb.buf, data)
}

func (rd *RenderDevice) BindConstantBuffer(stage metadata.ShaderStage, slot uint32, cb *ConstantBuffer) {
	const op = "BindConstantBuffer"
	rd.ready(op)
	core.Assert(cb != nil && cb.live(), op, "constant buffer is released")
	switch stage {
	case metadata.StageVertex:
		rd.context.VSSetConstantBuffers(slot, []driver.Buffer{cb.buf})
	case metadata.StageFragment:
		rd.context.PSSetConstantBuffers(slot, []driver.Buffer{cb.buf})
	default:
		core.Fatalf(op, "invalid shader stage %d", stage)
	}
}

type Sampler struct {
	handle
	state driver.SamplerState
}

func (s *Sampler) Release() {
	s.release(s.state)
	s.state = nil
}

func (rd *RenderDevice) CreateSampler(filter metadata.FilterMode, address metadata.AddressMode) *Sampler {
	rd.ready("CreateSampler")
	return &Sampler{handle: rd.handle(), state: rd.createSamplerState(filter, address)}
}

// BindSampler binds s to slot. A nil sampler restores the default point/clamp sampler.
func (rd *RenderDevice) BindSampler(slot uint32, s *Sampler) {
	const op = "BindSampler"
	rd.ready(op)
	state := rd.defaultSampler
	if s != nil {
		core.Assert(s.live(), op, "sampler is released")
		state = s.state
	}
	rd.context.PSSetSamplers(slot, []driver.SamplerState{state})
}
