package metadata

/** @brief Polygon fill mode. */
type FillMode uint8

const (
	FillSolid FillMode = iota
	FillWireframe
	FillModeCount
)

/** @brief Which faces get culled. */
type CullMode uint8

const (
	CullNone CullMode = iota
	CullFront
	CullBack
	CullModeCount
)

/** @brief Whether the scissor rectangle clips rasterization. */
type ScissorMode uint8

const (
	ScissorDisabled ScissorMode = iota
	ScissorEnabled
	ScissorModeCount
)

/** @brief Primitive topology used by draw calls. */
type PrimitiveTopology uint8

const (
	TopologyTriangleList PrimitiveTopology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyLineStrip
	TopologyPointList
)

/** @brief Texture filtering used by samplers. */
type FilterMode uint8

const (
	FilterPoint FilterMode = iota
	FilterLinear
)

/** @brief Texture addressing used by samplers. */
type AddressMode uint8

const (
	AddressClamp AddressMode = iota
	AddressWrap
	AddressMirror
)

/** @brief Shader stage a constant buffer or resource is bound to. */
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	}
	return "unknown"
}
