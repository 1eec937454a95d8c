package driver

import "fmt"

// Format values match the DXGI numbering.
type Format uint32

const (
	FormatUnknown           Format = 0
	FormatR32G32B32A32Float Format = 2
	FormatR32G32B32Float    Format = 6
	FormatR16G16B16A16Float Format = 10
	FormatR32G32Float       Format = 16
	FormatR8G8B8A8Unorm     Format = 28
	FormatR8G8B8A8UnormSRGB Format = 29
	FormatR8G8B8A8Uint      Format = 30
	FormatR16G16Float       Format = 34
	FormatD32Float          Format = 40
	FormatR32Float          Format = 41
	FormatR32Uint           Format = 42
	FormatD24UnormS8Uint    Format = 45
	FormatR8G8Unorm         Format = 49
	FormatR16Uint           Format = 57
	FormatR8Unorm           Format = 61
	FormatB8G8R8A8Unorm     Format = 87
)

// ComponentType is the scalar kind of a format channel or shader input.
type ComponentType uint32

const (
	ComponentUnknown ComponentType = 0
	ComponentUint32  ComponentType = 1
	ComponentSint32  ComponentType = 2
	ComponentFloat32 ComponentType = 3
)

type formatInfo struct {
	name       string
	size       uint32
	components uint32
	kind       ComponentType
}

var formatInfos = map[Format]formatInfo{
	FormatR32G32B32A32Float: {"R32G32B32A32_FLOAT", 16, 4, ComponentFloat32},
	FormatR32G32B32Float:    {"R32G32B32_FLOAT", 12, 3, ComponentFloat32},
	FormatR16G16B16A16Float: {"R16G16B16A16_FLOAT", 8, 4, ComponentFloat32},
	FormatR32G32Float:       {"R32G32_FLOAT", 8, 2, ComponentFloat32},
	FormatR8G8B8A8Unorm:     {"R8G8B8A8_UNORM", 4, 4, ComponentFloat32},
	FormatR8G8B8A8UnormSRGB: {"R8G8B8A8_UNORM_SRGB", 4, 4, ComponentFloat32},
	FormatR8G8B8A8Uint:      {"R8G8B8A8_UINT", 4, 4, ComponentUint32},
	FormatR16G16Float:       {"R16G16_FLOAT", 4, 2, ComponentFloat32},
	FormatD32Float:          {"D32_FLOAT", 4, 1, ComponentFloat32},
	FormatR32Float:          {"R32_FLOAT", 4, 1, ComponentFloat32},
	FormatR32Uint:           {"R32_UINT", 4, 1, ComponentUint32},
	FormatD24UnormS8Uint:    {"D24_UNORM_S8_UINT", 4, 2, ComponentFloat32},
	FormatR8G8Unorm:         {"R8G8_UNORM", 2, 2, ComponentFloat32},
	FormatR16Uint:           {"R16_UINT", 2, 1, ComponentUint32},
	FormatR8Unorm:           {"R8_UNORM", 1, 1, ComponentFloat32},
	FormatB8G8R8A8Unorm:     {"B8G8R8A8_UNORM", 4, 4, ComponentFloat32},
}

func (f Format) Known() bool {
	_, ok := formatInfos[f]
	return ok
}

// Size is the byte size of one element, 0 for unknown formats.
func (f Format) Size() uint32 {
	return formatInfos[f].size
}

func (f Format) ComponentCount() uint32 {
	return formatInfos[f].components
}

func (f Format) ComponentType() ComponentType {
	return formatInfos[f].kind
}

func (f Format) String() string {
	if info, ok := formatInfos[f]; ok {
		return info.name
	}
	return fmt.Sprintf("FORMAT(%d)", uint32(f))
}
