package math

import m "math"

/**
 * @brief Creates and returns an identity matrix.
 */
func NewMat4Identity() Mat4 {
	out := Mat4{}
	out.Data[0] = 1.0
	out.Data[5] = 1.0
	out.Data[10] = 1.0
	out.Data[15] = 1.0
	return out
}

/**
 * @brief Returns mt * other. Applied to a point, mt goes first.
 */
func (mt Mat4) Mul(other Mat4) Mat4 {
	out := Mat4{}
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[row*4+i] * other.Data[i*4+col]
			}
			out.Data[row*4+col] = sum
		}
	}
	return out
}

/**
 * @brief Creates an orthographic projection mapping the box to clip space,
 * depth to [0, 1].
 */
func NewMat4Orthographic(left, right, bottom, top, nearClip, farClip float32) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = 2.0 / (right - left)
	out.Data[5] = 2.0 / (top - bottom)
	out.Data[10] = 1.0 / (farClip - nearClip)
	out.Data[12] = -(right + left) / (right - left)
	out.Data[13] = -(top + bottom) / (top - bottom)
	out.Data[14] = -nearClip / (farClip - nearClip)
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}

/**
 * @brief Creates a counter-clockwise rotation around the Z axis.
 */
func NewMat4EulerZ(angleRadians float32) Mat4 {
	out := NewMat4Identity()
	c := float32(m.Cos(float64(angleRadians)))
	s := float32(m.Sin(float64(angleRadians)))
	out.Data[0] = c
	out.Data[1] = s
	out.Data[4] = -s
	out.Data[5] = c
	return out
}

// Bytes encodes the matrix for a constant buffer, 64 bytes.
func (mt Mat4) Bytes() []byte {
	return appendFloats(make([]byte, 0, 64), mt.Data[:]...)
}
