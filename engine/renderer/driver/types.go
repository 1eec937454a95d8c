package driver

import "fmt"

type ObjectKind uint8

const (
	KindDevice ObjectKind = iota
	KindContext
	KindSwapChain
	KindBuffer
	KindTexture2D
	KindShaderResourceView
	KindRenderTargetView
	KindVertexShader
	KindPixelShader
	KindInputLayout
	KindRasterizerState
	KindSamplerState
)

var kindNames = [...]string{
	KindDevice:             "Device",
	KindContext:            "Context",
	KindSwapChain:          "SwapChain",
	KindBuffer:             "Buffer",
	KindTexture2D:          "Texture2D",
	KindShaderResourceView: "ShaderResourceView",
	KindRenderTargetView:   "RenderTargetView",
	KindVertexShader:       "VertexShader",
	KindPixelShader:        "PixelShader",
	KindInputLayout:        "InputLayout",
	KindRasterizerState:    "RasterizerState",
	KindSamplerState:       "SamplerState",
}

func (k ObjectKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ObjectKind(%d)", uint8(k))
}

type Usage uint8

const (
	UsageDefault Usage = iota
	UsageImmutable
	UsageDynamic
	UsageStaging
)

type BindFlag uint32

const (
	BindVertexBuffer   BindFlag = 0x1
	BindIndexBuffer    BindFlag = 0x2
	BindConstantBuffer BindFlag = 0x4
	BindShaderResource BindFlag = 0x8
	BindRenderTarget   BindFlag = 0x20
	BindDepthStencil   BindFlag = 0x40
)

type CPUAccess uint32

const (
	CPUAccessWrite CPUAccess = 0x10000
	CPUAccessRead  CPUAccess = 0x20000
)

type BufferDesc struct {
	ByteWidth uint32
	Usage     Usage
	BindFlags BindFlag
	CPUAccess CPUAccess
}

type Texture2DDesc struct {
	Width     uint32
	Height    uint32
	MipLevels uint32
	ArraySize uint32
	Format    Format
	Usage     Usage
	BindFlags BindFlag
	CPUAccess CPUAccess
}

type SubresourceData struct {
	Data     []byte
	RowPitch uint32
}

// AppendAlignedElement places an input element directly after the previous one.
const AppendAlignedElement uint32 = 0xFFFFFFFF

type InputClassification uint8

const (
	InputPerVertexData InputClassification = iota
	InputPerInstanceData
)

type InputElementDesc struct {
	SemanticName         string
	SemanticIndex        uint32
	Format               Format
	InputSlot            uint32
	AlignedByteOffset    uint32
	InputSlotClass       InputClassification
	InstanceDataStepRate uint32
}

type FillMode uint8

const (
	FillWireframe FillMode = 2
	FillSolid     FillMode = 3
)

type CullMode uint8

const (
	CullNone  CullMode = 1
	CullFront CullMode = 2
	CullBack  CullMode = 3
)

type RasterizerDesc struct {
	FillMode              FillMode
	CullMode              CullMode
	FrontCounterClockwise bool
	DepthClipEnable       bool
	ScissorEnable         bool
}

type Filter uint32

const (
	FilterMinMagMipPoint  Filter = 0x0
	FilterMinMagMipLinear Filter = 0x15
)

type TextureAddressMode uint8

const (
	AddressWrap   TextureAddressMode = 1
	AddressMirror TextureAddressMode = 2
	AddressClamp  TextureAddressMode = 3
)

type SamplerDesc struct {
	Filter        Filter
	AddressU      TextureAddressMode
	AddressV      TextureAddressMode
	AddressW      TextureAddressMode
	MaxAnisotropy uint32
	MinLOD        float32
	MaxLOD        float32
}

type PrimitiveTopology uint8

const (
	TopologyUndefined     PrimitiveTopology = 0
	TopologyPointList     PrimitiveTopology = 1
	TopologyLineList      PrimitiveTopology = 2
	TopologyLineStrip     PrimitiveTopology = 3
	TopologyTriangleList  PrimitiveTopology = 4
	TopologyTriangleStrip PrimitiveTopology = 5
)

type MapType uint8

const (
	MapRead             MapType = 1
	MapWrite            MapType = 2
	MapReadWrite        MapType = 3
	MapWriteDiscard     MapType = 4
	MapWriteNoOverwrite MapType = 5
)

type MappedSubresource struct {
	Data     []byte
	RowPitch uint32
}

type Viewport struct {
	TopLeftX float32
	TopLeftY float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

type Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}
