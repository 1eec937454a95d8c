package math

func TransformCreate() *Transform {
	return TransformFromPosition(NewVec3Zero())
}

func TransformFromPosition(position Vec3) *Transform {
	return &Transform{
		Position: position,
		Scale:    NewVec3One(),
		isDirty:  true,
	}
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.isDirty = true
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
	t.isDirty = true
}

func (t *Transform) SetRotation(radians float32) {
	t.Rotation = radians
	t.isDirty = true
}

func (t *Transform) Rotate(radians float32) {
	t.Rotation += radians
	t.isDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.isDirty = true
}

// GetLocal returns scale, then rotation, then translation.
func (t *Transform) GetLocal() Mat4 {
	if t == nil {
		return NewMat4Identity()
	}
	if t.isDirty {
		t.local = NewMat4Scale(t.Scale).Mul(NewMat4EulerZ(t.Rotation)).Mul(NewMat4Translation(t.Position))
		t.isDirty = false
	}
	return t.local
}
