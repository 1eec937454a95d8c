package renderer

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

type PipelineState uint8

const (
	PipelineNoLayoutNoShaders PipelineState = iota
	PipelineLayoutDirty
	PipelineReady
)

func (s PipelineState) String() string {
	switch s {
	case PipelineNoLayoutNoShaders:
		return "no-layout-no-shaders"
	case PipelineLayoutDirty:
		return "layout-dirty"
	case PipelineReady:
		return "ready"
	}
	return "unknown"
}

func (rd *RenderDevice) PipelineState() PipelineState {
	return rd.pipeline
}

func (rd *RenderDevice) markDirty() {
	rd.dirty = true
	rd.pipeline = PipelineLayoutDirty
}

// BindVertexShader records vs for the next draw. Rebinding the shader that
// is already bound changes nothing.
func (rd *RenderDevice) BindVertexShader(vs *VertexShader) {
	const op = "BindVertexShader"
	core.Assert(vs != nil && vs.native != nil && len(vs.binary) > 0, op, "vertex shader has no compiled binary")
	if vs == rd.boundVS {
		return
	}
	rd.boundVS = vs
	rd.markDirty()
}

func (rd *RenderDevice) BindFragmentShader(fs *FragmentShader) {
	const op = "BindFragmentShader"
	core.Assert(fs != nil && fs.native != nil && len(fs.binary) > 0, op, "fragment shader has no compiled binary")
	if fs == rd.boundFS {
		return
	}
	rd.boundFS = fs
	rd.markDirty()
}

// SetInputLayoutDescription records desc for the next draw. Only a change of
// the description hash invalidates the bound layout.
func (rd *RenderDevice) SetInputLayoutDescription(desc *metadata.VertexFormat) {
	rd.boundDesc = desc
	var h uint64
	if desc != nil {
		h = desc.Hash()
	}
	if h != rd.boundDescHash {
		rd.boundDescHash = h
		rd.markDirty()
	}
}

func (rd *RenderDevice) SetPrimitiveTopology(topology metadata.PrimitiveTopology) {
	rd.ready("SetPrimitiveTopology")
	rd.context.IASetPrimitiveTopology(translateTopology(topology))
}

// preDrawPrep brings the native input layout and shaders up to date. It does
// nothing unless a bind changed since the last draw.
func (rd *RenderDevice) preDrawPrep(op string) {
	rd.ready(op)
	if rd.boundDesc != nil {
		// step rates may have changed since the description was set
		if h := rd.boundDesc.Hash(); h != rd.boundDescHash {
			rd.boundDescHash = h
			rd.markDirty()
		}
	}
	core.Assert(rd.boundVS != nil, op, "no vertex shader bound")
	core.Assert(rd.boundFS != nil, op, "no fragment shader bound")
	rd.rebindDynamic()
	if !rd.dirty {
		return
	}

	layout := rd.ResolveInputLayout(rd.boundDesc, rd.boundVS)
	rd.context.IASetInputLayout(layout)
	rd.context.VSSetShader(rd.boundVS.native)
	rd.context.PSSetShader(rd.boundFS.native)
	rd.dirty = false
	rd.pipeline = PipelineReady
}

func (rd *RenderDevice) Draw(vertexCount, startVertex uint32) {
	rd.preDrawPrep("Draw")
	rd.context.Draw(vertexCount, startVertex)
}

func (rd *RenderDevice) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) {
	rd.preDrawPrep("DrawIndexed")
	rd.context.DrawIndexed(indexCount, startIndex, baseVertex)
}

func (rd *RenderDevice) DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32) {
	rd.preDrawPrep("DrawInstanced")
	rd.context.DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance)
}

func (rd *RenderDevice) DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	rd.preDrawPrep("DrawIndexedInstanced")
	rd.context.DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex, baseVertex, startInstance)
}

// bindVertexBuffer records a static buffer on slot, replacing any dynamic binding.
func (rd *RenderDevice) bindVertexBuffer(slot uint32, buf driver.Buffer, stride, offset uint32) {
	core.Assert(slot < MaxVertexBufferSlots, "BindVertexBuffer", "vertex buffer slot %d out of range", slot)
	rd.context.IASetVertexBuffers(slot, []driver.Buffer{buf}, []uint32{stride}, []uint32{offset})
	rd.vertexSlots[slot] = vertexBinding{buffer: buf}
}
