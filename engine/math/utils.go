package math

import (
	"encoding/binary"
	m "math"

	"golang.org/x/exp/constraints"
)

const (
	/** @brief An approximate representation of PI. */
	K_PI float32 = 3.14159265358979323846
	/** @brief A multiplier used to convert degrees to radians. */
	K_DEG2RAD_MULTIPLIER float32 = K_PI / 180.0
	/** @brief Smallest positive number where 1.0 + FLOAT_EPSILON != 0 */
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func DegToRad(degrees float32) float32 {
	return degrees * K_DEG2RAD_MULTIPLIER
}

// appendFloats encodes values little endian, the layout GPU buffers expect.
func appendFloats(out []byte, values ...float32) []byte {
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, m.Float32bits(v))
	}
	return out
}

// Vertex2DBytes packs vertices for a vertex buffer with a 16 byte stride.
func Vertex2DBytes(vertices []Vertex2D) []byte {
	out := make([]byte, 0, len(vertices)*16)
	for _, v := range vertices {
		out = appendFloats(out, v.Position.X, v.Position.Y, v.Texcoord.X, v.Texcoord.Y)
	}
	return out
}

// Vertex3DBytes packs vertices for a vertex buffer with a 28 byte stride.
func Vertex3DBytes(vertices []Vertex3D) []byte {
	out := make([]byte, 0, len(vertices)*28)
	for _, v := range vertices {
		out = appendFloats(out, v.Position.X, v.Position.Y, v.Position.Z,
			v.Colour.X, v.Colour.Y, v.Colour.Z, v.Colour.W)
	}
	return out
}

// Uint16Bytes packs a 16 bit index list.
func Uint16Bytes(indices []uint16) []byte {
	out := make([]byte, 0, len(indices)*2)
	for _, i := range indices {
		out = binary.LittleEndian.AppendUint16(out, i)
	}
	return out
}
