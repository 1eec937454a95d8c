package metadata

import "fmt"

/**
 * @brief Engine-neutral resource formats. The zero value is not a format.
 */
type ResourceFormat uint8

const (
	FormatUnknown ResourceFormat = iota
	/** @brief 8 bits per channel RGBA, normalized. */
	FormatRGBA8Unorm
	/** @brief 8 bits per channel RGBA, normalized, sRGB encoded. */
	FormatRGBA8UnormSRGB
	/** @brief 8 bits per channel BGRA, normalized. Usual back-buffer format. */
	FormatBGRA8Unorm
	FormatRGBA8Uint
	FormatR8Unorm
	FormatRG8Unorm
	/** @brief 16 bit index format. */
	FormatR16Uint
	/** @brief 32 bit index format. */
	FormatR32Uint
	FormatR32Float
	FormatRG32Float
	FormatRGB32Float
	FormatRGBA32Float
	FormatRG16Float
	FormatRGBA16Float
	FormatD24UnormS8Uint
	FormatD32Float

	formatCount
)

/**
 * @brief Every defined format, in declaration order.
 */
func AllFormats() []ResourceFormat {
	out := make([]ResourceFormat, 0, formatCount-1)
	for f := FormatRGBA8Unorm; f < formatCount; f++ {
		out = append(out, f)
	}
	return out
}

var formatInfos = [formatCount]struct {
	name string
	size uint32
}{
	FormatUnknown:        {"Unknown", 0},
	FormatRGBA8Unorm:     {"RGBA8Unorm", 4},
	FormatRGBA8UnormSRGB: {"RGBA8UnormSRGB", 4},
	FormatBGRA8Unorm:     {"BGRA8Unorm", 4},
	FormatRGBA8Uint:      {"RGBA8Uint", 4},
	FormatR8Unorm:        {"R8Unorm", 1},
	FormatRG8Unorm:       {"RG8Unorm", 2},
	FormatR16Uint:        {"R16Uint", 2},
	FormatR32Uint:        {"R32Uint", 4},
	FormatR32Float:       {"R32Float", 4},
	FormatRG32Float:      {"RG32Float", 8},
	FormatRGB32Float:     {"RGB32Float", 12},
	FormatRGBA32Float:    {"RGBA32Float", 16},
	FormatRG16Float:      {"RG16Float", 4},
	FormatRGBA16Float:    {"RGBA16Float", 8},
	FormatD24UnormS8Uint: {"D24UnormS8Uint", 4},
	FormatD32Float:       {"D32Float", 4},
}

func (f ResourceFormat) Valid() bool {
	return f > FormatUnknown && f < formatCount
}

/**
 * @brief Size in bytes of one element (pixel or vertex attribute) of this format.
 */
func (f ResourceFormat) Size() uint32 {
	if !f.Valid() {
		return 0
	}
	return formatInfos[f].size
}

func (f ResourceFormat) IsDepth() bool {
	return f == FormatD24UnormS8Uint || f == FormatD32Float
}

func (f ResourceFormat) String() string {
	if int(f) < len(formatInfos) {
		return formatInfos[f].name
	}
	return fmt.Sprintf("ResourceFormat(%d)", uint8(f))
}
