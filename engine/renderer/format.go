package renderer

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

var nativeFormats = map[metadata.ResourceFormat]driver.Format{
	metadata.FormatRGBA8Unorm:     driver.FormatR8G8B8A8Unorm,
	metadata.FormatRGBA8UnormSRGB: driver.FormatR8G8B8A8UnormSRGB,
	metadata.FormatBGRA8Unorm:     driver.FormatB8G8R8A8Unorm,
	metadata.FormatRGBA8Uint:      driver.FormatR8G8B8A8Uint,
	metadata.FormatR8Unorm:        driver.FormatR8Unorm,
	metadata.FormatRG8Unorm:       driver.FormatR8G8Unorm,
	metadata.FormatR16Uint:        driver.FormatR16Uint,
	metadata.FormatR32Uint:        driver.FormatR32Uint,
	metadata.FormatR32Float:       driver.FormatR32Float,
	metadata.FormatRG32Float:      driver.FormatR32G32Float,
	metadata.FormatRGB32Float:     driver.FormatR32G32B32Float,
	metadata.FormatRGBA32Float:    driver.FormatR32G32B32A32Float,
	metadata.FormatRG16Float:      driver.FormatR16G16Float,
	metadata.FormatRGBA16Float:    driver.FormatR16G16B16A16Float,
	metadata.FormatD24UnormS8Uint: driver.FormatD24UnormS8Uint,
	metadata.FormatD32Float:       driver.FormatD32Float,
}

// TranslateFormat maps an engine format to its native equivalent. An
// unknown format is a programming error and aborts.
func TranslateFormat(f metadata.ResourceFormat) driver.Format {
	native, ok := nativeFormats[f]
	if !ok {
		core.Fatalf("TranslateFormat", "invalid resource format %s", f)
	}
	return native
}

var nativeTopologies = map[metadata.PrimitiveTopology]driver.PrimitiveTopology{
	metadata.TopologyTriangleList:  driver.TopologyTriangleList,
	metadata.TopologyTriangleStrip: driver.TopologyTriangleStrip,
	metadata.TopologyLineList:      driver.TopologyLineList,
	metadata.TopologyLineStrip:     driver.TopologyLineStrip,
	metadata.TopologyPointList:     driver.TopologyPointList,
}

func translateTopology(t metadata.PrimitiveTopology) driver.PrimitiveTopology {
	native, ok := nativeTopologies[t]
	if !ok {
		core.Fatalf("SetPrimitiveTopology", "invalid primitive topology %d", t)
	}
	return native
}

func translateFilter(f metadata.FilterMode) driver.Filter {
	switch f {
	case metadata.FilterPoint:
		return driver.FilterMinMagMipPoint
	case metadata.FilterLinear:
		return driver.FilterMinMagMipLinear
	}
	core.Fatalf("CreateSampler", "invalid filter mode %d", f)
	return 0
}

func translateAddress(a metadata.AddressMode) driver.TextureAddressMode {
	switch a {
	case metadata.AddressClamp:
		return driver.AddressClamp
	case metadata.AddressWrap:
		return driver.AddressWrap
	case metadata.AddressMirror:
		return driver.AddressMirror
	}
	core.Fatalf("CreateSampler", "invalid address mode %d", a)
	return 0
}
