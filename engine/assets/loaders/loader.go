package loaders

import "path/filepath"

type ResourceType uint8

const (
	ResourceTypeNone ResourceType = iota
	// ResourceTypeShader is WGSL source text.
	ResourceTypeShader
	// ResourceTypeShaderBinary is a precompiled SPIR-V module.
	ResourceTypeShaderBinary
	ResourceTypeImage
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeShaderBinary:
		return "shader-binary"
	case ResourceTypeImage:
		return "image"
	}
	return "none"
}

type Resource struct {
	Name     string
	FullPath string
	Type     ResourceType
	DataSize uint64
	// Data is a string for shaders, []byte for shader binaries and
	// *metadata.Bitmap for images.
	Data interface{}
}

type Loader interface {
	Load(path string, params interface{}) (*Resource, error)
	Unload(*Resource) error
}

// TypeOf classifies a file by extension.
func TypeOf(path string) ResourceType {
	switch filepath.Ext(path) {
	case ".wgsl":
		return ResourceTypeShader
	case ".spv":
		return ResourceTypeShaderBinary
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return ResourceTypeImage
	default:
		return ResourceTypeNone
	}
}

func nameOf(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
