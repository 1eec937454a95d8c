package math

import m "math"

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func NewVec3One() Vec3 {
	return Vec3{X: 1, Y: 1, Z: 1}
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vec3) Length() float32 {
	return float32(m.Sqrt(float64(v.Dot(v))))
}

/**
 * @brief Returns v transformed by matrix mt as a point (w = 1).
 */
func (v Vec3) Transform(mt Mat4) Vec3 {
	d := mt.Data
	return Vec3{
		X: v.X*d[0] + v.Y*d[4] + v.Z*d[8] + d[12],
		Y: v.X*d[1] + v.Y*d[5] + v.Z*d[9] + d[13],
		Z: v.X*d[2] + v.Y*d[6] + v.Z*d[10] + d[14],
	}
}

// Compare reports whether every component is within tolerance.
func (v Vec3) Compare(other Vec3, tolerance float32) bool {
	d := v.Sub(other)
	return abs(d.X) <= tolerance && abs(d.Y) <= tolerance && abs(d.Z) <= tolerance
}

func abs(x float32) float32 {
	return float32(m.Abs(float64(x)))
}
