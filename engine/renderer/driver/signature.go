package driver

import (
	"encoding/binary"
	"fmt"
	"sort"
)

/**
 * @brief One input of a vertex shader, as stored in its input signature blob.
 */
type SignatureParameter struct {
	Location       uint32
	ComponentType  ComponentType
	ComponentCount uint32
	SemanticIndex  uint32
	Name           string
}

// EncodeSignature serializes params sorted by location. Layout, little endian:
// u32 count, then per parameter u32 location, u32 component type,
// u32 component count, u32 semantic index, u32 name length, name bytes.
func EncodeSignature(params []SignatureParameter) []byte {
	sorted := make([]SignatureParameter, len(params))
	copy(sorted, params)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Location < sorted[j].Location })

	out := binary.LittleEndian.AppendUint32(nil, uint32(len(sorted)))
	for _, p := range sorted {
		out = binary.LittleEndian.AppendUint32(out, p.Location)
		out = binary.LittleEndian.AppendUint32(out, uint32(p.ComponentType))
		out = binary.LittleEndian.AppendUint32(out, p.ComponentCount)
		out = binary.LittleEndian.AppendUint32(out, p.SemanticIndex)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(p.Name)))
		out = append(out, p.Name...)
	}
	return out
}

func DecodeSignature(blob []byte) ([]SignatureParameter, error) {
	r := sigReader{buf: blob}
	count, err := r.u32()
	if err != nil {
		return nil, err
	}
	if uint64(count)*20 > uint64(len(blob)) {
		return nil, fmt.Errorf("signature claims %d parameters in %d bytes", count, len(blob))
	}
	params := make([]SignatureParameter, count)
	for i := range params {
		var fields [5]uint32
		for f := range fields {
			if fields[f], err = r.u32(); err != nil {
				return nil, err
			}
		}
		name, err := r.bytes(fields[4])
		if err != nil {
			return nil, err
		}
		params[i] = SignatureParameter{
			Location:       fields[0],
			ComponentType:  ComponentType(fields[1]),
			ComponentCount: fields[2],
			SemanticIndex:  fields[3],
			Name:           string(name),
		}
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("signature has %d trailing bytes", len(r.buf))
	}
	return params, nil
}

type sigReader struct {
	buf []byte
}

func (r *sigReader) u32() (uint32, error) {
	if len(r.buf) < 4 {
		return 0, fmt.Errorf("signature truncated")
	}
	v := binary.LittleEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v, nil
}

func (r *sigReader) bytes(n uint32) ([]byte, error) {
	if uint64(len(r.buf)) < uint64(n) {
		return nil, fmt.Errorf("signature truncated")
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b, nil
}

// MatchSignature checks that elements can feed every shader input. Element i
// feeds location i; its component type must agree with the shader's.
func MatchSignature(elements []InputElementDesc, params []SignatureParameter) error {
	for _, p := range params {
		if p.Location >= uint32(len(elements)) {
			return fmt.Errorf("shader input at location %d (%s) has no input element", p.Location, p.Name)
		}
		e := elements[p.Location]
		if !e.Format.Known() {
			return fmt.Errorf("input element %s%d has unknown format %s", e.SemanticName, e.SemanticIndex, e.Format)
		}
		if p.ComponentType != ComponentUnknown && e.Format.ComponentType() != p.ComponentType {
			return fmt.Errorf("input element %s%d is %s but location %d expects component type %d",
				e.SemanticName, e.SemanticIndex, e.Format, p.Location, p.ComponentType)
		}
	}
	return nil
}

// ResolveElementOffsets replaces AppendAlignedElement with the byte offset
// following the previous element of the same input slot.
func ResolveElementOffsets(elements []InputElementDesc) []uint32 {
	out := make([]uint32, len(elements))
	next := map[uint32]uint32{}
	for i, e := range elements {
		off := e.AlignedByteOffset
		if off == AppendAlignedElement {
			off = next[e.InputSlot]
		}
		out[i] = off
		next[e.InputSlot] = off + e.Format.Size()
	}
	return out
}
