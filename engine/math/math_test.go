package math

import (
	"encoding/binary"
	m "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMat4MulIdentity(t *testing.T) {
	tr := NewMat4Translation(NewVec3(1, 2, 3))
	assert.Equal(t, tr, tr.Mul(NewMat4Identity()))
	assert.Equal(t, tr, NewMat4Identity().Mul(tr))
}

func TestTransformOrder(t *testing.T) {
	tf := TransformFromPosition(NewVec3(10, 0, 0))
	tf.SetScale(NewVec3(2, 2, 1))
	tf.SetRotation(DegToRad(90))

	// (1,0) scaled to (2,0), rotated to (0,2), moved to (10,2).
	p := NewVec3(1, 0, 0).Transform(tf.GetLocal())
	assert.True(t, p.Compare(NewVec3(10, 2, 0), 1e-5), "%+v", p)

	tf.Translate(NewVec3(0, 1, 0))
	p = NewVec3(1, 0, 0).Transform(tf.GetLocal())
	assert.True(t, p.Compare(NewVec3(10, 3, 0), 1e-5), "%+v", p)

	var none *Transform
	assert.Equal(t, NewMat4Identity(), none.GetLocal())
}

func TestOrthographicMapsCorners(t *testing.T) {
	proj := NewMat4Orthographic(0, 800, 0, 600, 0, 1)
	assert.True(t, NewVec3(0, 0, 0).Transform(proj).Compare(NewVec3(-1, -1, 0), 1e-6))
	assert.True(t, NewVec3(800, 600, 1).Transform(proj).Compare(NewVec3(1, 1, 1), 1e-6))
}

func TestPacking(t *testing.T) {
	b := Vertex2DBytes([]Vertex2D{{Position: NewVec2(1, 2), Texcoord: NewVec2(0.5, 1)}})
	require.Len(t, b, 16)
	assert.Equal(t, float32(0.5), m.Float32frombits(binary.LittleEndian.Uint32(b[8:])))

	assert.Len(t, Vertex3DBytes(make([]Vertex3D, 3)), 84)
	assert.Equal(t, []byte{1, 0, 2, 1}, Uint16Bytes([]uint16{1, 258}))

	mb := NewMat4Translation(NewVec3(0, 0, 7)).Bytes()
	require.Len(t, mb, 64)
	assert.Equal(t, float32(7), m.Float32frombits(binary.LittleEndian.Uint32(mb[56:])))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(9, 0, 5))
	assert.Equal(t, float32(0), Clamp(float32(-1), 0, 1))
	assert.Equal(t, uint32(3), Clamp(uint32(3), 1, 4))
}
