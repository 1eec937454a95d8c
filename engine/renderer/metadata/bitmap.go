package metadata

import "fmt"

/**
 * @brief Decoded pixels handed to the renderer for texture upload.
 */
type Bitmap struct {
	Width  uint32
	Height uint32
	Format ResourceFormat
	/** @brief Tightly packed rows, Width * Format.Size() bytes each. */
	Pixels []byte
}

func (b *Bitmap) RowPitch() uint32 {
	return b.Width * b.Format.Size()
}

func (b *Bitmap) Validate() error {
	if b.Width == 0 || b.Height == 0 {
		return fmt.Errorf("bitmap has empty size %dx%d", b.Width, b.Height)
	}
	if !b.Format.Valid() || b.Format.IsDepth() {
		return fmt.Errorf("bitmap has unsupported format %s", b.Format)
	}
	if want := int(b.RowPitch() * b.Height); len(b.Pixels) != want {
		return fmt.Errorf("bitmap holds %d bytes, %dx%d %s needs %d", len(b.Pixels), b.Width, b.Height, b.Format, want)
	}
	return nil
}
