package renderer

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

type inputLayoutEntry struct {
	layout        driver.InputLayout
	descHash      uint64
	signatureHash uint64
	elements      []driver.InputElementDesc
}

// layoutKey folds the description and signature hashes into the cache key.
func layoutKey(descHash, signatureHash uint64) uint32 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], descHash)
	binary.LittleEndian.PutUint64(buf[8:], signatureHash)
	return crc32.ChecksumIEEE(buf[:])
}

// splitSemantic separates a trailing decimal digit from a semantic name:
// TEXCOORD1 is TEXCOORD with index 1, POSITION is POSITION with index 0.
func splitSemantic(name string) (string, uint32) {
	n := len(name)
	if n > 1 && name[n-1] >= '0' && name[n-1] <= '9' {
		return name[:n-1], uint32(name[n-1] - '0')
	}
	return name, 0
}

// translateElements builds the native element array. Element i feeds shader
// input location i; per-instance elements read from input slot 1.
func translateElements(desc *metadata.VertexFormat) []driver.InputElementDesc {
	out := make([]driver.InputElementDesc, desc.Len())
	for i := range out {
		e := desc.Element(i)
		name, index := splitSemantic(e.SemanticName)
		native := driver.InputElementDesc{
			SemanticName:      name,
			SemanticIndex:     index,
			Format:            TranslateFormat(e.Format),
			InputSlot:         e.InputSlot(),
			AlignedByteOffset: driver.AppendAlignedElement,
			InputSlotClass:    driver.InputPerVertexData,
		}
		if e.Offset != metadata.AppendAligned {
			native.AlignedByteOffset = uint32(e.Offset)
		}
		if e.InstanceStepRate > 0 {
			native.InputSlotClass = driver.InputPerInstanceData
			native.InstanceDataStepRate = e.InstanceStepRate
		}
		out[i] = native
	}
	return out
}

// ResolveInputLayout returns the native layout binding desc to vs, creating
// and caching it on first use.
func (rd *RenderDevice) ResolveInputLayout(desc *metadata.VertexFormat, vs *VertexShader) driver.InputLayout {
	const op = "ResolveInputLayout"
	rd.ready(op)
	core.Assert(desc != nil && desc.Len() > 0, op, "no vertex format description bound")
	core.Assert(vs != nil && vs.native != nil, op, "no vertex shader bound")

	descHash := desc.Hash()
	key := layoutKey(descHash, vs.signatureHash)
	for _, e := range rd.layouts[key] {
		if e.descHash == descHash && e.signatureHash == vs.signatureHash {
			return e.layout
		}
	}

	elements := translateElements(desc)
	layout, err := rd.device.CreateInputLayout(elements, vs.signature)
	rd.check(op, err)
	rd.registry.Register(layout, "CreateInputLayout")
	rd.layouts[key] = append(rd.layouts[key], &inputLayoutEntry{
		layout:        layout,
		descHash:      descHash,
		signatureHash: vs.signatureHash,
		elements:      elements,
	})
	core.LogDebug("created input layout %08x for %s:%s", key, vs.path, vs.entry)
	return layout
}

// InputLayoutCount is the number of cached layouts.
func (rd *RenderDevice) InputLayoutCount() int {
	n := 0
	for _, bucket := range rd.layouts {
		n += len(bucket)
	}
	return n
}

// DisposeInputLayouts releases every cached layout.
func (rd *RenderDevice) DisposeInputLayouts() {
	for key, bucket := range rd.layouts {
		for _, e := range bucket {
			rd.registry.Release(e.layout)
		}
		delete(rd.layouts, key)
	}
}

// WipeInputLayouts drops every cached layout while the device keeps running.
// The next draw recreates the one it needs.
func (rd *RenderDevice) WipeInputLayouts() {
	rd.ready("WipeInputLayouts")
	rd.context.IASetInputLayout(nil)
	rd.DisposeInputLayouts()
	if rd.boundVS != nil || rd.boundFS != nil {
		rd.markDirty()
	}
	core.LogInfo("input layout cache wiped")
}
