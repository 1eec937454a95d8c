package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

var vkFormats = map[driver.Format]vk.Format{
	driver.FormatR32G32B32A32Float: vk.FormatR32g32b32a32Sfloat,
	driver.FormatR32G32B32Float:    vk.FormatR32g32b32Sfloat,
	driver.FormatR16G16B16A16Float: vk.FormatR16g16b16a16Sfloat,
	driver.FormatR32G32Float:       vk.FormatR32g32Sfloat,
	driver.FormatR8G8B8A8Unorm:     vk.FormatR8g8b8a8Unorm,
	driver.FormatR8G8B8A8UnormSRGB: vk.FormatR8g8b8a8Srgb,
	driver.FormatR8G8B8A8Uint:      vk.FormatR8g8b8a8Uint,
	driver.FormatR16G16Float:       vk.FormatR16g16Sfloat,
	driver.FormatD32Float:          vk.FormatD32Sfloat,
	driver.FormatR32Float:          vk.FormatR32Sfloat,
	driver.FormatR32Uint:           vk.FormatR32Uint,
	driver.FormatD24UnormS8Uint:    vk.FormatD24UnormS8Uint,
	driver.FormatR8G8Unorm:         vk.FormatR8g8Unorm,
	driver.FormatR16Uint:           vk.FormatR16Uint,
	driver.FormatR8Unorm:           vk.FormatR8Unorm,
	driver.FormatB8G8R8A8Unorm:     vk.FormatB8g8r8a8Unorm,
}

// toVkFormat maps a native format, false when Vulkan has no equivalent here.
func toVkFormat(f driver.Format) (vk.Format, bool) {
	v, ok := vkFormats[f]
	return v, ok
}

// fromVkFormat is the reverse lookup used for the swapchain surface format.
func fromVkFormat(f vk.Format) driver.Format {
	for k, v := range vkFormats {
		if v == f {
			return k
		}
	}
	return driver.FormatUnknown
}

func toVkTopology(t driver.PrimitiveTopology) (vk.PrimitiveTopology, bool) {
	switch t {
	case driver.TopologyPointList:
		return vk.PrimitiveTopologyPointList, true
	case driver.TopologyLineList:
		return vk.PrimitiveTopologyLineList, true
	case driver.TopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip, true
	case driver.TopologyTriangleList:
		return vk.PrimitiveTopologyTriangleList, true
	case driver.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip, true
	}
	return vk.PrimitiveTopologyTriangleList, false
}

func toVkCullMode(c driver.CullMode) vk.CullModeFlags {
	switch c {
	case driver.CullFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case driver.CullBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

func toVkPolygonMode(f driver.FillMode) vk.PolygonMode {
	if f == driver.FillWireframe {
		return vk.PolygonModeLine
	}
	return vk.PolygonModeFill
}

// toVkFrontFace relies on the flipped viewport of toVkViewport, which keeps
// the winding seen on screen the same as the software drivers.
func toVkFrontFace(counterClockwise bool) vk.FrontFace {
	if counterClockwise {
		return vk.FrontFaceCounterClockwise
	}
	return vk.FrontFaceClockwise
}

func toVkAddressMode(a driver.TextureAddressMode) vk.SamplerAddressMode {
	switch a {
	case driver.AddressWrap:
		return vk.SamplerAddressModeRepeat
	case driver.AddressMirror:
		return vk.SamplerAddressModeMirroredRepeat
	}
	return vk.SamplerAddressModeClampToEdge
}

// toVkFilter splits the packed filter into min, mag and mip filters. Only
// the point and linear families are decoded.
func toVkFilter(f driver.Filter) (minFilter, magFilter vk.Filter, mip vk.SamplerMipmapMode) {
	minFilter, magFilter, mip = vk.FilterNearest, vk.FilterNearest, vk.SamplerMipmapModeNearest
	if f&0x10 != 0 {
		minFilter = vk.FilterLinear
	}
	if f&0x04 != 0 {
		magFilter = vk.FilterLinear
	}
	if f&0x01 != 0 {
		mip = vk.SamplerMipmapModeLinear
	}
	return
}

func toVkIndexType(f driver.Format) (vk.IndexType, bool) {
	switch f {
	case driver.FormatR16Uint:
		return vk.IndexTypeUint16, true
	case driver.FormatR32Uint:
		return vk.IndexTypeUint32, true
	}
	return vk.IndexTypeUint16, false
}

// toVkViewport converts a top-left origin viewport into a Vulkan one with a
// negative height, so shaders see the same y direction as the software drivers.
func toVkViewport(v driver.Viewport) vk.Viewport {
	return vk.Viewport{
		X:        v.TopLeftX,
		Y:        v.TopLeftY + v.Height,
		Width:    v.Width,
		Height:   -v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}
}

func toVkRect(r driver.Rect) vk.Rect2D {
	w, h := r.Right-r.Left, r.Bottom-r.Top
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return vk.Rect2D{
		Offset: vk.Offset2D{X: r.Left, Y: r.Top},
		Extent: vk.Extent2D{Width: uint32(w), Height: uint32(h)},
	}
}
