package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

type vertexBufferBinding struct {
	buffer *Buffer
	stride uint32
	offset uint32
}

var defaultRasterizer = driver.RasterizerDesc{
	FillMode:        driver.FillSolid,
	CullMode:        driver.CullBack,
	DepthClipEnable: true,
}

/**
 * @brief The immediate context. State calls only record bindings; the first
 * clear or draw of a frame waits for the frame slot, acquires a back buffer
 * and opens the render pass. Present submits.
 */
type Context struct {
	object

	layout    *InputLayout
	vbs       [MaxVertexBufferSlots]vertexBufferBinding
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

	pools  [maxFramesInFlight]*VulkanDescriptorPool
	arenas [maxFramesInFlight]*uploadArena
	writer descriptorWriter

	recording bool
	inPass    bool
}

func newContext(dev *Device) (*Context, error) {
	c := &Context{}
	for i := range c.pools {
		pool, err := DescriptorPoolCreate(dev.vc)
		if err != nil {
			c.destroyFrames(dev.vc)
			return nil, err
		}
		c.pools[i] = pool
		arena, err := newUploadArena(dev.vc, uploadArenaSize)
		if err != nil {
			c.destroyFrames(dev.vc)
			return nil, err
		}
		c.arenas[i] = arena
	}
	dev.track(&c.object, driver.KindContext)
	dev.ctx = c
	c.onDestroy = func() {
		c.unbindAll()
		if dev.vc != nil {
			vk.DeviceWaitIdle(dev.vc.logical())
			c.destroyFrames(dev.vc)
		}
		dev.ctx = nil
	}
	return c, nil
}

func (c *Context) destroyFrames(vc *VulkanContext) {
	for i := range c.pools {
		if c.pools[i] != nil {
			c.pools[i].Destroy(vc)
			c.pools[i] = nil
		}
		if c.arenas[i] != nil {
			c.arenas[i].destroy(vc)
			c.arenas[i] = nil
		}
	}
}

func (c *Context) unbindAll() {
	rebind(&c.layout, nil)
	for i := range c.vbs {
		rebind(&c.vbs[i].buffer, nil)
		c.vbs[i] = vertexBufferBinding{}
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
	c.unbindAll()
}

func (c *Context) IASetInputLayout(layout driver.InputLayout) {
	rebind(&c.layout, native[*InputLayout]("IASetInputLayout", layout))
}

func (c *Context) IASetVertexBuffers(startSlot uint32, buffers []driver.Buffer, strides []uint32, offsets []uint32) {
	if len(strides) < len(buffers) || len(offsets) < len(buffers) {
		core.LogWarn("vulkan: IASetVertexBuffers: %d buffers with %d strides and %d offsets", len(buffers), len(strides), len(offsets))
		return
	}
	for i, b := range buffers {
		slot := startSlot + uint32(i)
		if slot >= MaxVertexBufferSlots {
			core.LogWarn("vulkan: IASetVertexBuffers: slot %d out of range", slot)
			return
		}
		rebind(&c.vbs[slot].buffer, native[*Buffer]("IASetVertexBuffers", b))
		c.vbs[slot].stride = strides[i]
		c.vbs[slot].offset = offsets[i]
	}
}

func (c *Context) IASetIndexBuffer(buffer driver.Buffer, format driver.Format, offset uint32) {
	rebind(&c.ib, native[*Buffer]("IASetIndexBuffer", buffer))
	c.ibFormat, c.ibOffset = format, offset
}

func (c *Context) IASetPrimitiveTopology(topology driver.PrimitiveTopology) {
	c.topology = topology
}

func (c *Context) VSSetShader(shader driver.VertexShader) {
	rebind(&c.vs, native[*VertexShader]("VSSetShader", shader))
}

func setConstantBuffers(op string, dst *[MaxConstantBufferSlots]*Buffer, startSlot uint32, buffers []driver.Buffer) {
	for i, b := range buffers {
		slot := startSlot + uint32(i)
		if slot >= MaxConstantBufferSlots {
			core.LogWarn("vulkan: %s: slot %d out of range", op, slot)
			return
		}
		rebind(&dst[slot], native[*Buffer](op, b))
	}
}

func (c *Context) VSSetConstantBuffers(startSlot uint32, buffers []driver.Buffer) {
	setConstantBuffers("VSSetConstantBuffers", &c.vsCBs, startSlot, buffers)
}

func (c *Context) PSSetShader(shader driver.PixelShader) {
	rebind(&c.ps, native[*PixelShader]("PSSetShader", shader))
}

func (c *Context) PSSetConstantBuffers(startSlot uint32, buffers []driver.Buffer) {
	setConstantBuffers("PSSetConstantBuffers", &c.psCBs, startSlot, buffers)
}

func (c *Context) PSSetShaderResources(startSlot uint32, views []driver.ShaderResourceView) {
	for i, v := range views {
		slot := startSlot + uint32(i)
		if slot >= MaxShaderResourceSlots {
			core.LogWarn("vulkan: PSSetShaderResources: slot %d out of range", slot)
			return
		}
		rebind(&c.srvs[slot], native[*ShaderResourceView]("PSSetShaderResources", v))
	}
}

func (c *Context) PSSetSamplers(startSlot uint32, samplers []driver.SamplerState) {
	for i, s := range samplers {
		slot := startSlot + uint32(i)
		if slot >= MaxSamplerSlots {
			core.LogWarn("vulkan: PSSetSamplers: slot %d out of range", slot)
			return
		}
		rebind(&c.samplers[slot], native[*SamplerState]("PSSetSamplers", s))
	}
}

func (c *Context) RSSetState(state driver.RasterizerState) {
	rebind(&c.raster, native[*RasterizerState]("RSSetState", state))
}

func (c *Context) RSSetViewports(viewports []driver.Viewport) {
	c.viewports = append([]driver.Viewport(nil), viewports...)
}

func (c *Context) RSSetScissorRects(rects []driver.Rect) {
	c.scissors = append([]driver.Rect(nil), rects...)
}

func (c *Context) OMSetRenderTargets(views []driver.RenderTargetView) {
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
	if native[*RenderTargetView]("ClearRenderTargetView", view) == nil {
		core.LogWarn("vulkan: ClearRenderTargetView: nil view")
		return
	}
	vc := c.dev.vc
	if !c.recording {
		if !c.beginFrame() {
			return
		}
	}
	if !c.inPass {
		// The pass clears on load.
		vc.MainRenderpass.SetClearColor(color)
		c.beginPass()
		return
	}
	vc.MainRenderpass.ClearInPass(c.commandBuffer(), color)
}

func (c *Context) Map(buffer driver.Buffer, mapType driver.MapType) (driver.MappedSubresource, error) {
	const op = "Map"
	buf := native[*Buffer](op, buffer)
	if buf == nil || !buf.alive() {
		return driver.MappedSubresource{}, invalidArg(op, "no buffer")
	}
	if buf.mapped {
		return driver.MappedSubresource{}, driver.Errorf(op, driver.ResultInvalidCall, "buffer #%d is already mapped", buf.id)
	}
	desc := buf.desc
	var data []byte
	switch mapType {
	case driver.MapWriteDiscard, driver.MapWriteNoOverwrite:
		if desc.Usage != driver.UsageDynamic {
			return driver.MappedSubresource{}, driver.Errorf(op, driver.ResultInvalidCall, "buffer #%d is not dynamic", buf.id)
		}
		if !buf.onGPU() {
			data = buf.shadow
			break
		}
		if mapType == driver.MapWriteDiscard {
			if err := buf.rename(); err != nil {
				return driver.MappedSubresource{}, err
			}
		}
		data = buf.current.gpu.Bytes()[:desc.ByteWidth]
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
		data = buf.shadow
	default:
		return driver.MappedSubresource{}, invalidArg(op, "map type %d", mapType)
	}
	buf.mapped = true
	return driver.MappedSubresource{Data: data, RowPitch: desc.ByteWidth}, nil
}

func (c *Context) Unmap(buffer driver.Buffer) {
	buf := native[*Buffer]("Unmap", buffer)
	if buf == nil || !buf.mapped {
		core.LogWarn("vulkan: Unmap: buffer is not mapped")
		return
	}
	buf.mapped = false
}

func (c *Context) UpdateSubresource(buffer driver.Buffer, data []byte) {
	buf := native[*Buffer]("UpdateSubresource", buffer)
	if buf == nil {
		return
	}
	if buf.desc.Usage != driver.UsageDefault || uint32(len(data)) > buf.desc.ByteWidth {
		core.LogWarn("vulkan: UpdateSubresource: %d bytes into buffer #%d with usage %d", len(data), buf.id, buf.desc.Usage)
		return
	}
	if !buf.onGPU() {
		copy(buf.shadow, data)
		return
	}
	// Keep the rest of the contents, the old version may still be read.
	prev := buf.current
	if err := buf.rename(); err != nil {
		core.LogError("vulkan: UpdateSubresource: %v", err)
		return
	}
	dst := buf.current.gpu.Bytes()
	if prev != nil && prev != buf.current {
		copy(dst, prev.gpu.Bytes())
	}
	copy(dst, data)
}

func (c *Context) commandBuffer() *VulkanCommandBuffer {
	vc := c.dev.vc
	return vc.GraphicsCommandBuffers[vc.CurrentFrame]
}

// beginFrame waits for the current frame slot, acquires a back buffer and
// starts recording. It reports false when no image could be acquired.
func (c *Context) beginFrame() bool {
	dev := c.dev
	vc := dev.vc
	if vc == nil || dev.sc == nil {
		return false
	}
	slot := vc.CurrentFrame
	fence := vc.InFlightFences[slot]
	if ok, err := fence.FenceWait(vc, frameTimeoutNS); !ok {
		if err != nil {
			core.LogError("vulkan: frame fence: %v", err)
		}
		return false
	}
	dev.frameComplete(slot)

	index, err := vc.Swapchain.SwapchainAcquireNextImageIndex(vc, frameTimeoutNS, vc.ImageAvailableSemaphores[slot], vk.NullFence)
	if err != nil {
		if err == errOutOfDate {
			dev.sc.recreate(vc.FramebufferWidth, vc.FramebufferHeight)
		} else {
			core.LogError("vulkan: acquire: %v", err)
		}
		return false
	}
	vc.ImageIndex = index

	// Wait on whichever frame last used this image.
	if prior := vc.ImagesInFlight[index]; prior != nil && prior != fence {
		if _, err := prior.FenceWait(vc, frameTimeoutNS); err != nil {
			core.LogError("vulkan: image fence: %v", err)
		}
	}
	vc.ImagesInFlight[index] = fence

	if err := c.pools[slot].Reset(vc); err != nil {
		core.LogError("vulkan: %v", err)
	}
	c.arenas[slot].reset()

	cb := vc.GraphicsCommandBuffers[slot]
	if err := cb.Reset(); err != nil {
		core.LogError("vulkan: %v", err)
		return false
	}
	if err := cb.Begin(true, false, false); err != nil {
		core.LogError("vulkan: %v", err)
		return false
	}
	c.recording = true
	c.inPass = false
	return true
}

func (c *Context) beginPass() {
	vc := c.dev.vc
	rp := vc.MainRenderpass
	rp.W, rp.H = float32(vc.Swapchain.Extent.Width), float32(vc.Swapchain.Extent.Height)
	rp.RenderpassBegin(c.commandBuffer(), vc.Swapchain.Framebuffers[vc.ImageIndex].Handle)
	c.inPass = true
}

// endFrame closes the pass and submits the frame. The image acquire is
// waited on before color output; the queue complete semaphore and the slot
// fence are signaled.
func (c *Context) endFrame() error {
	dev := c.dev
	vc := dev.vc
	slot := vc.CurrentFrame
	cb := vc.GraphicsCommandBuffers[slot]
	if !c.inPass {
		c.beginPass()
	}
	vc.MainRenderpass.RenderpassEnd(cb)
	c.inPass = false
	c.recording = false
	if err := cb.End(); err != nil {
		return err
	}

	fence := vc.InFlightFences[slot]
	if err := fence.FenceReset(vc); err != nil {
		return err
	}
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vc.ImageAvailableSemaphores[slot]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vc.QueueCompleteSemaphores[slot]},
	}
	if err := checkResult("vkQueueSubmit", vk.QueueSubmit(vc.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle)); err != nil {
		return err
	}
	cb.UpdateSubmitted()
	dev.frameSubmitted(slot)
	return nil
}

// prepareDraw makes sure the frame and pass are open and binds everything
// the draw needs. It reports false when the draw has to be dropped.
func (c *Context) prepareDraw(op string, indexed bool) bool {
	if c.vs == nil || c.ps == nil || c.layout == nil {
		core.LogWarn("vulkan: %s: incomplete pipeline, draw dropped", op)
		return false
	}
	topology, ok := toVkTopology(c.topology)
	if !ok {
		core.LogWarn("vulkan: %s: primitive topology %d, draw dropped", op, c.topology)
		return false
	}
	if indexed && c.ib == nil {
		core.LogWarn("vulkan: %s: no index buffer bound, draw dropped", op)
		return false
	}
	if !c.recording && !c.beginFrame() {
		return false
	}
	if !c.inPass {
		c.beginPass()
	}

	dev := c.dev
	vc := dev.vc
	cb := c.commandBuffer()

	raster := defaultRasterizer
	if c.raster != nil {
		raster = c.raster.desc
	}
	key := pipelineKey{
		vs:       c.vs.id,
		ps:       c.ps.id,
		layout:   c.layout.id,
		raster:   raster,
		topology: c.topology,
	}
	for _, e := range c.layout.elements {
		key.strides[e.InputSlot] = c.vbs[e.InputSlot].stride
	}
	pipeline, err := dev.pipes.get(key, func() (*VulkanPipeline, error) {
		bindings, attributes, err := vertexInput(c.layout.elements, c.layout.offsets, &key.strides)
		if err != nil {
			return nil, err
		}
		return NewGraphicsPipeline(vc, &VulkanPipelineConfig{
			Renderpass:     vc.MainRenderpass,
			Bindings:       bindings,
			Attributes:     attributes,
			PipelineLayout: dev.layouts.PipelineLayout,
			Stages: []vk.PipelineShaderStageCreateInfo{
				c.vs.stage.ShaderStageCreateInfo,
				c.ps.stage.ShaderStageCreateInfo,
			},
			Topology: topology,
			Raster:   raster,
		})
	})
	if err != nil {
		core.LogError("vulkan: %s: %v", op, err)
		return false
	}
	pipeline.Bind(cb, vk.PipelineBindPointGraphics)

	bound := map[uint32]bool{}
	for _, e := range c.layout.elements {
		slot := e.InputSlot
		if bound[slot] {
			continue
		}
		bound[slot] = true
		vb := c.vbs[slot]
		if vb.buffer == nil || vb.buffer.current == nil {
			core.LogWarn("vulkan: %s: vertex buffer slot %d is empty, draw dropped", op, slot)
			return false
		}
		vb.buffer.markUsed()
		vk.CmdBindVertexBuffers(cb.Handle, slot, 1, []vk.Buffer{vb.buffer.current.gpu.Handle}, []vk.DeviceSize{vk.DeviceSize(vb.offset)})
	}
	if indexed {
		indexType, ok := toVkIndexType(c.ibFormat)
		if !ok || c.ib.current == nil {
			core.LogWarn("vulkan: %s: index format %s, draw dropped", op, c.ibFormat)
			return false
		}
		c.ib.markUsed()
		vk.CmdBindIndexBuffer(cb.Handle, c.ib.current.gpu.Handle, vk.DeviceSize(c.ibOffset), indexType)
	}

	extent := vc.Swapchain.Extent
	viewport := vk.Viewport{Y: float32(extent.Height), Width: float32(extent.Width), Height: -float32(extent.Height), MaxDepth: 1}
	if len(c.viewports) > 0 {
		viewport = toVkViewport(c.viewports[0])
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{Extent: extent}
	if raster.ScissorEnable && len(c.scissors) > 0 {
		scissor = toVkRect(c.scissors[0])
	}
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})

	sets, ok := c.writeDescriptors(op)
	if !ok {
		return false
	}
	vk.CmdBindDescriptorSets(cb.Handle, vk.PipelineBindPointGraphics, dev.layouts.PipelineLayout, 0, uint32(len(sets)), sets, 0, nil)
	return true
}

// writeDescriptors snapshots the bound constant buffers into the frame's
// upload arena and fills one set per stage.
func (c *Context) writeDescriptors(op string) ([]vk.DescriptorSet, bool) {
	dev := c.dev
	vc := dev.vc
	slot := vc.CurrentFrame
	pool, arena := c.pools[slot], c.arenas[slot]

	sets := make([]vk.DescriptorSet, 2)
	for i := range sets {
		set, err := pool.Allocate(vc, dev.layouts.Sets[i])
		if err != nil {
			return nil, false
		}
		sets[i] = set
	}

	stages := [2]*[MaxConstantBufferSlots]*Buffer{vertexSet: &c.vsCBs, pixelSet: &c.psCBs}
	for set, cbs := range stages {
		c.writer.set = sets[set]
		for i, buf := range cbs {
			if buf == nil {
				continue
			}
			offset, ok := arena.push(buf.shadow)
			if !ok {
				core.LogWarn("vulkan: %s: upload arena full, draw dropped", op)
				c.writer.writes = c.writer.writes[:0]
				return nil, false
			}
			c.writer.uniform(uint32(i), arena.buffer.Handle, offset, uint64(len(buf.shadow)))
		}
		if set != pixelSet {
			c.writer.flush(vc)
			continue
		}
		for i, srv := range c.srvs {
			if srv != nil {
				c.writer.texture(uint32(textureBindingBase+i), srv.tex.image.View)
			}
		}
		for i, s := range c.samplers {
			if s != nil {
				c.writer.sampler(uint32(samplerBindingBase+i), s.handle)
			}
		}
		c.writer.flush(vc)
	}
	return sets, true
}

func (c *Context) Draw(vertexCount, startVertex uint32) {
	if c.prepareDraw("Draw", false) {
		vk.CmdDraw(c.commandBuffer().Handle, vertexCount, 1, startVertex, 0)
	}
}

func (c *Context) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	if c.prepareDraw("DrawIndexed", true) {
		vk.CmdDrawIndexed(c.commandBuffer().Handle, indexCount, 1, startIndex, baseVertex, 0)
	}
}

func (c *Context) DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32) {
	if c.prepareDraw("DrawInstanced", false) {
		vk.CmdDraw(c.commandBuffer().Handle, vertexCountPerInstance, instanceCount, startVertex, startInstance)
	}
}

func (c *Context) DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	if c.prepareDraw("DrawIndexedInstanced", true) {
		vk.CmdDrawIndexed(c.commandBuffer().Handle, indexCountPerInstance, instanceCount, startIndex, baseVertex, startInstance)
	}
}

// Flush is a no-op: recorded work is submitted by Present.
func (c *Context) Flush() {}
