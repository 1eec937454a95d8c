package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector, also used for RGBA colours.
type Vec4 struct {
	X, Y, Z, W float32
}

/**
 * @brief a 4x4 matrix. Translation lives in elements 12 to 14, so the
 * elements upload as-is into a WGSL mat4x4<f32> applied as `m * v`.
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief A textured 2D vertex: POSITION then TEXCOORD, 16 bytes.
 */
type Vertex2D struct {
	Position Vec2
	Texcoord Vec2
}

/**
 * @brief A coloured 3D vertex: POSITION then COLOR, 28 bytes.
 */
type Vertex3D struct {
	Position Vec3
	Colour   Vec4
}

/**
 * @brief Position, rotation around Z and scale of an object. The local
 * matrix is rebuilt lazily after any setter.
 */
type Transform struct {
	Position Vec3
	/** @brief Rotation around the Z axis, in radians. */
	Rotation float32
	Scale    Vec3
	isDirty  bool
	local    Mat4
}
