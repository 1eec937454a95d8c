package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

type ImageParams struct {
	// FlipY stores the bottom row first.
	FlipY bool
	// MaxSize scales the image down so neither side exceeds it. Zero keeps the size.
	MaxSize uint32
}

// ImageLoader decodes png, jpeg, bmp and tiff files into RGBA8 bitmaps.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, params interface{}) (*Resource, error) {
	var p ImageParams
	switch typed := params.(type) {
	case nil:
	case *ImageParams:
		p = *typed
	case ImageParams:
		p = typed
	default:
		return nil, fmt.Errorf("image loader: unexpected params %T", params)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding `%s`: %w", path, err)
	}
	bm := ToBitmap(img, p)
	return &Resource{
		Name:     nameOf(path) + "." + format,
		FullPath: path,
		Type:     ResourceTypeImage,
		DataSize: uint64(len(bm.Pixels)),
		Data:     bm,
	}, nil
}

func (il *ImageLoader) Unload(*Resource) error {
	return nil
}

// ToBitmap converts any decoded image to a tightly packed RGBA8 bitmap.
func ToBitmap(img image.Image, p ImageParams) *metadata.Bitmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if p.MaxSize > 0 && (w > int(p.MaxSize) || h > int(p.MaxSize)) {
		if w >= h {
			h = max(1, h*int(p.MaxSize)/w)
			w = int(p.MaxSize)
		} else {
			w = max(1, w*int(p.MaxSize)/h)
			h = int(p.MaxSize)
		}
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, bounds, draw.Src, nil)
	}

	pitch := w * 4
	pixels := make([]byte, pitch*h)
	for y := 0; y < h; y++ {
		src := y
		if p.FlipY {
			src = h - 1 - y
		}
		copy(pixels[y*pitch:(y+1)*pitch], rgba.Pix[src*rgba.Stride:src*rgba.Stride+pitch])
	}
	return &metadata.Bitmap{
		Width:  uint32(w),
		Height: uint32(h),
		Format: metadata.FormatRGBA8Unorm,
		Pixels: pixels,
	}
}
