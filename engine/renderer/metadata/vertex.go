package metadata

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/bits"
)

/** @brief Maximum number of elements in one vertex format description. */
const MaxVertexElements = 16

/** @brief Offset sentinel: place the element right after the previous one. */
const AppendAligned int32 = -1

/** @brief Set on every hash of a description that has at least one element. */
const vertexHashAssignedBit uint64 = 1 << 63

/**
 * @brief One per-vertex (or per-instance) input channel.
 */
type VertexElement struct {
	/** @brief Semantic name, a trailing digit selects the semantic index (TEXCOORD1). */
	SemanticName string
	/** @brief Data format of the element. */
	Format ResourceFormat
	/** @brief Byte offset inside the vertex, or AppendAligned. */
	Offset int32
	/** @brief Zero for per-vertex data, otherwise instances drawn per element step. */
	InstanceStepRate uint32
}

/**
 * @brief Ordered description of the vertex layout fed to a vertex shader.
 * Element names, formats and offsets are fixed once added; only step rates may change.
 */
type VertexFormat struct {
	elements    [MaxVertexElements]VertexElement
	count       int
	contentHash uint64
}

func NewVertexFormat(elements ...VertexElement) *VertexFormat {
	vf := &VertexFormat{}
	for _, e := range elements {
		if err := vf.Add(e); err != nil {
			panic(err)
		}
	}
	return vf
}

/**
 * @brief Appends an element. Fails on overflow, duplicate semantic or invalid format.
 */
func (vf *VertexFormat) Add(e VertexElement) error {
	if vf.count == MaxVertexElements {
		return fmt.Errorf("vertex format is full (%d elements)", MaxVertexElements)
	}
	if e.SemanticName == "" {
		return fmt.Errorf("vertex element %d has no semantic name", vf.count)
	}
	if !e.Format.Valid() {
		return fmt.Errorf("vertex element `%s` has invalid format %s", e.SemanticName, e.Format)
	}
	if e.Offset < AppendAligned {
		return fmt.Errorf("vertex element `%s` has invalid offset %d", e.SemanticName, e.Offset)
	}
	for i := 0; i < vf.count; i++ {
		if vf.elements[i].SemanticName == e.SemanticName {
			return fmt.Errorf("duplicate semantic `%s` in vertex format", e.SemanticName)
		}
	}
	vf.elements[vf.count] = e
	vf.count++
	vf.contentHash = hashElements(vf.elements[:vf.count])
	return nil
}

/**
 * @brief Changes the instance step rate of element i. The hash stays coherent.
 */
func (vf *VertexFormat) SetStepRate(i int, rate uint32) {
	if i < 0 || i >= vf.count {
		panic(fmt.Sprintf("vertex format: element %d out of range (%d elements)", i, vf.count))
	}
	vf.elements[i].InstanceStepRate = rate
}

func (vf *VertexFormat) Len() int {
	return vf.count
}

func (vf *VertexFormat) Element(i int) VertexElement {
	return vf.elements[i]
}

func (vf *VertexFormat) Elements() []VertexElement {
	out := make([]VertexElement, vf.count)
	copy(out, vf.elements[:vf.count])
	return out
}

/**
 * @brief 64-bit order and content sensitive hash of the description.
 * Zero only for an empty description.
 */
func (vf *VertexFormat) Hash() uint64 {
	if vf == nil || vf.count == 0 {
		return 0
	}
	var rates uint64
	for i := 0; i < vf.count; i++ {
		r := uint64(vf.elements[i].InstanceStepRate)
		rates ^= bits.RotateLeft64(r*0x9E3779B97F4A7C15, i*4)
	}
	return (vf.contentHash ^ bits.RotateLeft64(rates, 17)) | vertexHashAssignedBit
}

/**
 * @brief Vertex buffer slot the element reads from: 0 for per-vertex data, 1 for per-instance data.
 */
func (e VertexElement) InputSlot() uint32 {
	if e.InstanceStepRate != 0 {
		return 1
	}
	return 0
}

/**
 * @brief Offsets with AppendAligned resolved against the preceding element of the same slot.
 */
func (vf *VertexFormat) ResolvedOffsets() []uint32 {
	out := make([]uint32, vf.count)
	var next [2]uint32
	for i := 0; i < vf.count; i++ {
		e := vf.elements[i]
		slot := e.InputSlot()
		off := next[slot]
		if e.Offset != AppendAligned {
			off = uint32(e.Offset)
		}
		out[i] = off
		next[slot] = off + e.Format.Size()
	}
	return out
}

/**
 * @brief Size in bytes of one vertex of the per-vertex elements.
 */
func (vf *VertexFormat) Stride() uint32 {
	return vf.slotStride(0)
}

/**
 * @brief Size in bytes of one instance of the per-instance elements.
 */
func (vf *VertexFormat) InstanceStride() uint32 {
	return vf.slotStride(1)
}

func (vf *VertexFormat) slotStride(slot uint32) uint32 {
	var stride uint32
	for i, off := range vf.ResolvedOffsets() {
		if vf.elements[i].InputSlot() != slot {
			continue
		}
		if end := off + vf.elements[i].Format.Size(); end > stride {
			stride = end
		}
	}
	return stride
}

func hashElements(elements []VertexElement) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for i, e := range elements {
		binary.LittleEndian.PutUint32(buf[:4], uint32(i))
		h.Write(buf[:4])
		h.Write([]byte(e.SemanticName))
		buf[0] = 0
		buf[1] = byte(e.Format)
		binary.LittleEndian.PutUint32(buf[2:6], uint32(e.Offset))
		h.Write(buf[:6])
	}
	return h.Sum64()
}
