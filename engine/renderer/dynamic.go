package renderer

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

type DynamicKind uint8

const (
	DynamicKindNone DynamicKind = iota
	DynamicKindVertex
)

// DynamicBuffer is a handle to a slot of the dynamic buffer pool.
type DynamicBuffer struct {
	index uint32
	valid bool
}

func (h DynamicBuffer) Valid() bool   { return h.valid }
func (h DynamicBuffer) Index() uint32 { return h.index }

// dynamicSlot keeps one native buffer per rotation index.
type dynamicSlot struct {
	kind     DynamicKind
	capacity uint32
	buffers  []driver.Buffer
}

// AllocateDynamicBuffer takes the first free slot and creates one CPU
// writable vertex buffer of capacity bytes per rotation index. It aborts
// when the pool is exhausted.
func (rd *RenderDevice) AllocateDynamicBuffer(capacity uint32) DynamicBuffer {
	const op = "AllocateDynamicBuffer"
	rd.ready(op)
	core.Assert(capacity > 0, op, "zero capacity")

	slot := &dynamicSlot{kind: DynamicKindVertex, capacity: capacity}
	index, ok := rd.dynamic.Acquire(slot)
	if !ok {
		core.Fatalf(op, "ran out of handles (%d slots)", rd.dynamic.Cap())
	}
	desc := driver.BufferDesc{
		ByteWidth: capacity,
		Usage:     driver.UsageDynamic,
		BindFlags: driver.BindVertexBuffer,
		CPUAccess: driver.CPUAccessWrite,
	}
	slot.buffers = make([]driver.Buffer, rd.rotationCount)
	for i := range slot.buffers {
		buf, err := rd.device.CreateBuffer(desc, nil)
		rd.check(op, err)
		rd.registry.Register(buf, op)
		slot.buffers[i] = buf
	}
	return DynamicBuffer{index: index, valid: true}
}

func (rd *RenderDevice) dynamicSlot(op string, h DynamicBuffer) *dynamicSlot {
	core.Assert(h.valid, op, "invalid dynamic buffer handle")
	slot, ok := rd.dynamic.Get(h.index)
	core.Assert(ok, op, "dynamic buffer slot %d is not allocated", h.index)
	core.Assert(slot.kind == DynamicKindVertex, op, "dynamic buffer slot %d is not a vertex buffer", h.index)
	return slot
}

// UploadDynamic discard-maps the buffer of the current rotation index and
// copies data into it.
func (rd *RenderDevice) UploadDynamic(h DynamicBuffer, data []byte) {
	const op = "UploadDynamic"
	rd.ready(op)
	slot := rd.dynamicSlot(op, h)
	core.Assert(uint32(len(data)) <= slot.capacity, op, "%d bytes exceed capacity %d", len(data), slot.capacity)

	buf := slot.buffers[rd.rotation]
	mapped, err := rd.context.Map(buf, driver.MapWriteDiscard)
	rd.check(op, err)
	copy(mapped.Data, data)
	rd.context.Unmap(buf)
}

// DynamicTarget is the native buffer uploads and binds use this frame.
func (rd *RenderDevice) DynamicTarget(h DynamicBuffer) driver.Buffer {
	return rd.dynamicSlot("DynamicTarget", h).buffers[rd.rotation]
}

func (rd *RenderDevice) BindDynamicVertexBuffer(slot uint32, h DynamicBuffer, stride, offset uint32) {
	const op = "BindDynamicVertexBuffer"
	rd.ready(op)
	core.Assert(slot < MaxVertexBufferSlots, op, "vertex buffer slot %d out of range", slot)
	ds := rd.dynamicSlot(op, h)
	buf := ds.buffers[rd.rotation]
	rd.context.IASetVertexBuffers(slot, []driver.Buffer{buf}, []uint32{stride}, []uint32{offset})
	rd.vertexSlots[slot] = vertexBinding{buffer: buf, dynamic: ds, stride: stride, offset: offset}
}

// rebindDynamic points every dynamic vertex slot at the buffer of the
// current rotation. Bindings made before a Present still name the old one.
func (rd *RenderDevice) rebindDynamic() {
	for i := range rd.vertexSlots {
		b := &rd.vertexSlots[i]
		if b.dynamic == nil {
			continue
		}
		buf := b.dynamic.buffers[rd.rotation]
		if buf == b.buffer {
			continue
		}
		rd.context.IASetVertexBuffers(uint32(i), []driver.Buffer{buf}, []uint32{b.stride}, []uint32{b.offset})
		b.buffer = buf
	}
}

// ReleaseDynamicBuffer returns the slot to the pool. Releasing a slot that is
// still bound to a vertex input aborts.
func (rd *RenderDevice) ReleaseDynamicBuffer(h DynamicBuffer) {
	const op = "ReleaseDynamicBuffer"
	rd.ready(op)
	slot := rd.dynamicSlot(op, h)
	for i, b := range rd.vertexSlots {
		core.Assert(b.dynamic != slot, op, "dynamic buffer slot %d is bound to vertex input %d", h.index, i)
	}
	for _, buf := range slot.buffers {
		rd.registry.Release(buf)
	}
	slot.buffers = nil
	slot.kind = DynamicKindNone
	rd.dynamic.Release(h.index)
}

// DynamicBufferCount is the number of allocated slots.
func (rd *RenderDevice) DynamicBufferCount() int {
	if rd.dynamic == nil {
		return 0
	}
	return rd.dynamic.Len()
}

func (rd *RenderDevice) disposeDynamicBuffers() {
	if rd.dynamic == nil {
		return
	}
	var used []uint32
	rd.dynamic.Each(func(id uint32, slot *dynamicSlot) {
		for _, buf := range slot.buffers {
			rd.registry.Release(buf)
		}
		slot.buffers = nil
		used = append(used, id)
	})
	for _, id := range used {
		rd.dynamic.Release(id)
	}
}
