package soft

import (
	"fmt"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

const (
	MaxVertexBufferSlots   = 16
	MaxConstantBufferSlots = 14
	MaxShaderResourceSlots = 16
	MaxSamplerSlots        = 16
)

type counted interface {
	comparable
	AddRef() uint32
	Release() uint32
}

// rebind moves the reference held in slot from its current value to v.
func rebind[T counted](slot *T, v T) {
	var zero T
	if *slot == v {
		return
	}
	if v != zero {
		v.AddRef()
	}
	if *slot != zero {
		(*slot).Release()
	}
	*slot = v
}

func native[T any](op string, v interface{}) T {
	var zero T
	if v == nil {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("soft: %s given a foreign %T", op, v))
	}
	return t
}

type VertexBufferBinding struct {
	Buffer *Buffer
	Stride uint32
	Offset uint32
}

// DrawCall is a snapshot of the pipeline taken when a draw was issued.
type DrawCall struct {
	Op            string
	Count         uint32
	Instances     uint32
	Start         uint32
	BaseVertex    int32
	StartInstance uint32
	Topology      driver.PrimitiveTopology
	Layout        *InputLayout
	VertexShader  *VertexShader
	PixelShader   *PixelShader
	Rasterizer    *RasterizerState
	VertexBuffer  VertexBufferBinding
	IndexBuffer   *Buffer
}

type Context struct {
	object
	validate bool

	layout    *InputLayout
	vbs       [MaxVertexBufferSlots]VertexBufferBinding
	ib        *Buffer
	ibFormat  driver.Format
	ibOffset  uint32
	topology  driver.PrimitiveTopology
	vs        *VertexShader
	ps        *PixelShader
	vsCBs     [MaxConstantBufferSlots]*Buffer
	psCBs     [MaxConstantBufferSlots]*Buffer
	srvs      [MaxShaderResourceSlots]*ShaderResourceView
	samplers  [MaxSamplerSlots]*SamplerState
	raster    *RasterizerState
	viewports []driver.Viewport
	scissors  []driver.Rect
	rtvs      []*RenderTargetView

	calls map[string]int
	// Draws records every draw issued since creation or ResetCounters.
	Draws []DrawCall
	// ValidationErrors collects what the reference driver rejected.
	ValidationErrors []string
}

func newContext(dev *Device) *Context {
	c := &Context{validate: dev.validate, calls: make(map[string]int)}
	dev.track(&c.object, driver.KindContext)
	c.onDestroy = c.unbindAll
	return c
}

// CallCount reports how many times the named context method was called.
func (c *Context) CallCount(name string) int {
	return c.calls[name]
}

func (c *Context) ResetCounters() {
	c.calls = make(map[string]int)
	c.Draws = nil
	c.ValidationErrors = nil
}

func (c *Context) count(name string) {
	c.calls[name]++
}

func (c *Context) invalid(format string, args ...interface{}) {
	if !c.validate {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.ValidationErrors = append(c.ValidationErrors, msg)
	core.LogWarn("soft: validation: %s", msg)
}

func (c *Context) unbindAll() {
	rebind(&c.layout, nil)
	for i := range c.vbs {
		rebind(&c.vbs[i].Buffer, nil)
		c.vbs[i] = VertexBufferBinding{}
	}
	rebind(&c.ib, nil)
	c.ibFormat, c.ibOffset = driver.FormatUnknown, 0
	c.topology = driver.TopologyUndefined
	rebind(&c.vs, nil)
	rebind(&c.ps, nil)
	for i := range c.vsCBs {
		rebind(&c.vsCBs[i], nil)
		rebind(&c.psCBs[i], nil)
	}
	for i := range c.srvs {
		rebind(&c.srvs[i], nil)
	}
	for i := range c.samplers {
		rebind(&c.samplers[i], nil)
	}
	rebind(&c.raster, nil)
	c.viewports, c.scissors = nil, nil
	for i := range c.rtvs {
		rebind(&c.rtvs[i], nil)
	}
	c.rtvs = nil
}

func (c *Context) ClearState() {
	c.count("ClearState")
	c.unbindAll()
}

func (c *Context) IASetInputLayout(layout driver.InputLayout) {
	c.count("IASetInputLayout")
	rebind(&c.layout, native[*InputLayout]("IASetInputLayout", layout))
}

func (c *Context) IASetVertexBuffers(startSlot uint32, buffers []driver.Buffer, strides []uint32, offsets []uint32) {
	c.count("IASetVertexBuffers")
	if len(strides) < len(buffers) || len(offsets) < len(buffers) {
		c.invalid("IASetVertexBuffers: %d buffers with %d strides and %d offsets", len(buffers), len(strides), len(offsets))
		return
	}
	for i, b := range buffers {
		slot := startSlot + uint32(i)
		if slot >= MaxVertexBufferSlots {
			c.invalid("IASetVertexBuffers: slot %d out of range", slot)
			return
		}
		buf := native[*Buffer]("IASetVertexBuffers", b)
		if buf != nil && buf.desc.BindFlags&driver.BindVertexBuffer == 0 {
			c.invalid("IASetVertexBuffers: buffer #%d lacks BindVertexBuffer", buf.id)
		}
		rebind(&c.vbs[slot].Buffer, buf)
		c.vbs[slot].Stride = strides[i]
		c.vbs[slot].Offset = offsets[i]
	}
}

func (c *Context) IASetIndexBuffer(buffer driver.Buffer, format driver.Format, offset uint32) {
	c.count("IASetIndexBuffer")
	buf := native[*Buffer]("IASetIndexBuffer", buffer)
	if buf != nil {
		if buf.desc.BindFlags&driver.BindIndexBuffer == 0 {
			c.invalid("IASetIndexBuffer: buffer #%d lacks BindIndexBuffer", buf.id)
		}
		if format != driver.FormatR16Uint && format != driver.FormatR32Uint {
			c.invalid("IASetIndexBuffer: index format %s", format)
		}
	}
	rebind(&c.ib, buf)
	c.ibFormat, c.ibOffset = format, offset
}

func (c *Context) IASetPrimitiveTopology(topology driver.PrimitiveTopology) {
	c.count("IASetPrimitiveTopology")
	c.topology = topology
}

func (c *Context) VSSetShader(shader driver.VertexShader) {
	c.count("VSSetShader")
	rebind(&c.vs, native[*VertexShader]("VSSetShader", shader))
}

func (c *Context) setConstantBuffers(op string, dst *[MaxConstantBufferSlots]*Buffer, startSlot uint32, buffers []driver.Buffer) {
	c.count(op)
	for i, b := range buffers {
		slot := startSlot + uint32(i)
		if slot >= MaxConstantBufferSlots {
			c.invalid("%s: slot %d out of range", op, slot)
			return
		}
		buf := native[*Buffer](op, b)
		if buf != nil && buf.desc.BindFlags&driver.BindConstantBuffer == 0 {
			c.invalid("%s: buffer #%d lacks BindConstantBuffer", op, buf.id)
		}
		rebind(&dst[slot], buf)
	}
}

func (c *Context) VSSetConstantBuffers(startSlot uint32, buffers []driver.Buffer) {
	c.setConstantBuffers("VSSetConstantBuffers", &c.vsCBs, startSlot, buffers)
}

func (c *Context) PSSetShader(shader driver.PixelShader) {
	c.count("PSSetShader")
	rebind(&c.ps, native[*PixelShader]("PSSetShader", shader))
}

func (c *Context) PSSetConstantBuffers(startSlot uint32, buffers []driver.Buffer) {
	c.setConstantBuffers("PSSetConstantBuffers", &c.psCBs, startSlot, buffers)
}

func (c *Context) PSSetShaderResources(startSlot uint32, views []driver.ShaderResourceView) {
	c.count("PSSetShaderResources")
	for i, v := range views {
		slot := startSlot + uint32(i)
		if slot >= MaxShaderResourceSlots {
			c.invalid("PSSetShaderResources: slot %d out of range", slot)
			return
		}
		rebind(&c.srvs[slot], native[*ShaderResourceView]("PSSetShaderResources", v))
	}
}

func (c *Context) PSSetSamplers(startSlot uint32, samplers []driver.SamplerState) {
	c.count("PSSetSamplers")
	for i, s := range samplers {
		slot := startSlot + uint32(i)
		if slot >= MaxSamplerSlots {
			c.invalid("PSSetSamplers: slot %d out of range", slot)
			return
		}
		rebind(&c.samplers[slot], native[*SamplerState]("PSSetSamplers", s))
	}
}

func (c *Context) RSSetState(state driver.RasterizerState) {
	c.count("RSSetState")
	rebind(&c.raster, native[*RasterizerState]("RSSetState", state))
}

func (c *Context) RSSetViewports(viewports []driver.Viewport) {
	c.count("RSSetViewports")
	c.viewports = append([]driver.Viewport(nil), viewports...)
}

func (c *Context) RSSetScissorRects(rects []driver.Rect) {
	c.count("RSSetScissorRects")
	c.scissors = append([]driver.Rect(nil), rects...)
}

func (c *Context) OMSetRenderTargets(views []driver.RenderTargetView) {
	c.count("OMSetRenderTargets")
	next := make([]*RenderTargetView, len(views))
	for i, v := range views {
		rebind(&next[i], native[*RenderTargetView]("OMSetRenderTargets", v))
	}
	for i := range c.rtvs {
		rebind(&c.rtvs[i], nil)
	}
	c.rtvs = next
}

func (c *Context) ClearRenderTargetView(view driver.RenderTargetView, color [4]float32) {
	c.count("ClearRenderTargetView")
	rtv := native[*RenderTargetView]("ClearRenderTargetView", view)
	if rtv == nil {
		c.invalid("ClearRenderTargetView: nil view")
		return
	}
	rtv.ClearColor = color
	rtv.Clears++
}

func (c *Context) Map(buffer driver.Buffer, mapType driver.MapType) (driver.MappedSubresource, error) {
	const op = "Map"
	c.count(op)
	buf := native[*Buffer](op, buffer)
	if buf == nil || !buf.alive() {
		return driver.MappedSubresource{}, invalidArg(op, "no buffer")
	}
	if buf.mapped {
		return driver.MappedSubresource{}, driver.Errorf(op, driver.ResultInvalidCall, "buffer #%d is already mapped", buf.id)
	}
	desc := buf.desc
	switch mapType {
	case driver.MapWriteDiscard, driver.MapWriteNoOverwrite:
		if desc.Usage != driver.UsageDynamic {
			return driver.MappedSubresource{}, driver.Errorf(op, driver.ResultInvalidCall, "buffer #%d is not dynamic", buf.id)
		}
		if mapType == driver.MapWriteDiscard {
			buf.data = make([]byte, desc.ByteWidth)
			buf.Renames++
		}
	case driver.MapRead, driver.MapWrite, driver.MapReadWrite:
		if desc.Usage != driver.UsageStaging {
			return driver.MappedSubresource{}, driver.Errorf(op, driver.ResultInvalidCall, "buffer #%d is not a staging buffer", buf.id)
		}
		if mapType != driver.MapWrite && desc.CPUAccess&driver.CPUAccessRead == 0 {
			return driver.MappedSubresource{}, driver.Errorf(op, driver.ResultInvalidCall, "buffer #%d has no CPU read access", buf.id)
		}
		if mapType != driver.MapRead && desc.CPUAccess&driver.CPUAccessWrite == 0 {
			return driver.MappedSubresource{}, driver.Errorf(op, driver.ResultInvalidCall, "buffer #%d has no CPU write access", buf.id)
		}
	default:
		return driver.MappedSubresource{}, invalidArg(op, "map type %d", mapType)
	}
	buf.mapped = true
	return driver.MappedSubresource{Data: buf.data, RowPitch: desc.ByteWidth}, nil
}

func (c *Context) Unmap(buffer driver.Buffer) {
	c.count("Unmap")
	buf := native[*Buffer]("Unmap", buffer)
	if buf == nil || !buf.mapped {
		c.invalid("Unmap: buffer is not mapped")
		return
	}
	buf.mapped = false
}

func (c *Context) UpdateSubresource(buffer driver.Buffer, data []byte) {
	c.count("UpdateSubresource")
	buf := native[*Buffer]("UpdateSubresource", buffer)
	if buf == nil {
		c.invalid("UpdateSubresource: nil buffer")
		return
	}
	if buf.desc.Usage != driver.UsageDefault {
		c.invalid("UpdateSubresource: buffer #%d has usage %d", buf.id, buf.desc.Usage)
		return
	}
	if uint32(len(data)) > buf.desc.ByteWidth {
		c.invalid("UpdateSubresource: %d bytes into %d byte buffer", len(data), buf.desc.ByteWidth)
		return
	}
	copy(buf.data, data)
}

func (c *Context) checkDraw(op string, indexed bool) {
	if !c.validate {
		return
	}
	if len(c.rtvs) == 0 || c.rtvs[0] == nil {
		c.invalid("%s: no render target bound", op)
	}
	if c.vs == nil {
		c.invalid("%s: no vertex shader bound", op)
	}
	if c.ps == nil {
		c.invalid("%s: no pixel shader bound", op)
	}
	if c.topology == driver.TopologyUndefined {
		c.invalid("%s: primitive topology undefined", op)
	}
	if c.layout == nil {
		c.invalid("%s: no input layout bound", op)
	} else {
		for _, e := range c.layout.elements {
			vb := c.vbs[e.InputSlot]
			if vb.Buffer == nil {
				c.invalid("%s: element %s%d reads empty vertex buffer slot %d", op, e.SemanticName, e.SemanticIndex, e.InputSlot)
				continue
			}
			if vb.Buffer.mapped {
				c.invalid("%s: vertex buffer #%d is still mapped", op, vb.Buffer.id)
			}
		}
	}
	if indexed {
		if c.ib == nil {
			c.invalid("%s: no index buffer bound", op)
		} else if c.ib.mapped {
			c.invalid("%s: index buffer #%d is still mapped", op, c.ib.id)
		}
	}
	for i, cb := range c.vsCBs {
		if cb != nil && cb.mapped {
			c.invalid("%s: vertex constant buffer %d is still mapped", op, i)
		}
	}
}

func (c *Context) record(call DrawCall) {
	call.Topology = c.topology
	call.Layout = c.layout
	call.VertexShader = c.vs
	call.PixelShader = c.ps
	call.Rasterizer = c.raster
	call.VertexBuffer = c.vbs[0]
	call.IndexBuffer = c.ib
	c.Draws = append(c.Draws, call)
}

func (c *Context) Draw(vertexCount, startVertex uint32) {
	c.count("Draw")
	c.checkDraw("Draw", false)
	c.record(DrawCall{Op: "Draw", Count: vertexCount, Instances: 1, Start: startVertex})
}

func (c *Context) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	c.count("DrawIndexed")
	c.checkDraw("DrawIndexed", true)
	c.record(DrawCall{Op: "DrawIndexed", Count: indexCount, Instances: 1, Start: startIndex, BaseVertex: baseVertex})
}

func (c *Context) DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32) {
	c.count("DrawInstanced")
	c.checkDraw("DrawInstanced", false)
	c.record(DrawCall{Op: "DrawInstanced", Count: vertexCountPerInstance, Instances: instanceCount, Start: startVertex, StartInstance: startInstance})
}

func (c *Context) DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	c.count("DrawIndexedInstanced")
	c.checkDraw("DrawIndexedInstanced", true)
	c.record(DrawCall{
		Op:            "DrawIndexedInstanced",
		Count:         indexCountPerInstance,
		Instances:     instanceCount,
		Start:         startIndex,
		BaseVertex:    baseVertex,
		StartInstance: startInstance,
	})
}

func (c *Context) Flush() {
	c.count("Flush")
}

func (c *Context) InputLayout() *InputLayout {
	return c.layout
}

func (c *Context) VertexBuffer(slot uint32) VertexBufferBinding {
	return c.vbs[slot]
}

func (c *Context) IndexBuffer() (*Buffer, driver.Format, uint32) {
	return c.ib, c.ibFormat, c.ibOffset
}

func (c *Context) Topology() driver.PrimitiveTopology {
	return c.topology
}

func (c *Context) VertexShader() *VertexShader {
	return c.vs
}

func (c *Context) PixelShader() *PixelShader {
	return c.ps
}

func (c *Context) VSConstantBuffer(slot uint32) *Buffer {
	return c.vsCBs[slot]
}

func (c *Context) PSConstantBuffer(slot uint32) *Buffer {
	return c.psCBs[slot]
}

func (c *Context) ShaderResource(slot uint32) *ShaderResourceView {
	return c.srvs[slot]
}

func (c *Context) Sampler(slot uint32) *SamplerState {
	return c.samplers[slot]
}

func (c *Context) RasterizerState() *RasterizerState {
	return c.raster
}

func (c *Context) Viewports() []driver.Viewport {
	return c.viewports
}

func (c *Context) RenderTargets() []*RenderTargetView {
	return c.rtvs
}
