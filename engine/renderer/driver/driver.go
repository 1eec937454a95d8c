// Package driver defines the native GPU API the renderer is written against.
//
// The contract follows an immediate-context, immutable-state-object model:
// a Device creates resources and state objects, a Context binds them and
// records draws, and a SwapChain owns the presentable back buffers.
// Every object is reference counted and must be released exactly once per
// reference held.
package driver

/**
 * @brief Base of every native object.
 */
type Object interface {
	// AddRef takes an extra reference and returns the new count.
	AddRef() uint32
	// Release drops one reference and returns the remaining count.
	// The object is destroyed when the count reaches zero.
	Release() uint32
	Kind() ObjectKind
}

type Buffer interface {
	Object
	BufferDesc() BufferDesc
}

type Texture2D interface {
	Object
	TextureDesc() Texture2DDesc
}

type ShaderResourceView interface {
	Object
	ViewedTexture() Texture2D
}

type RenderTargetView interface {
	Object
	TargetTexture() Texture2D
}

type VertexShader interface {
	Object
	VertexBytecode() []byte
}

type PixelShader interface {
	Object
	PixelBytecode() []byte
}

type InputLayout interface {
	Object
	Elements() []InputElementDesc
}

type RasterizerState interface {
	Object
	RasterizerDesc() RasterizerDesc
}

type SamplerState interface {
	Object
	SamplerDesc() SamplerDesc
}

/**
 * @brief Creates resources and immutable state objects.
 */
type Device interface {
	Object
	CreateBuffer(desc BufferDesc, initial *SubresourceData) (Buffer, error)
	CreateTexture2D(desc Texture2DDesc, initial []SubresourceData) (Texture2D, error)
	CreateShaderResourceView(tex Texture2D) (ShaderResourceView, error)
	CreateRenderTargetView(tex Texture2D) (RenderTargetView, error)
	CreateVertexShader(bytecode []byte) (VertexShader, error)
	CreatePixelShader(bytecode []byte) (PixelShader, error)
	// CreateInputLayout validates elements against the vertex shader input
	// signature blob (see EncodeSignature).
	CreateInputLayout(elements []InputElementDesc, signature []byte) (InputLayout, error)
	CreateRasterizerState(desc RasterizerDesc) (RasterizerState, error)
	CreateSamplerState(desc SamplerDesc) (SamplerState, error)
}

/**
 * @brief Immediate context. Calls are recorded in order on the calling goroutine.
 */
type Context interface {
	Object
	// ClearState unbinds everything, releasing the context's references.
	ClearState()

	IASetInputLayout(layout InputLayout)
	IASetVertexBuffers(startSlot uint32, buffers []Buffer, strides []uint32, offsets []uint32)
	IASetIndexBuffer(buffer Buffer, format Format, offset uint32)
	IASetPrimitiveTopology(topology PrimitiveTopology)

	VSSetShader(shader VertexShader)
	VSSetConstantBuffers(startSlot uint32, buffers []Buffer)

	PSSetShader(shader PixelShader)
	PSSetConstantBuffers(startSlot uint32, buffers []Buffer)
	PSSetShaderResources(startSlot uint32, views []ShaderResourceView)
	PSSetSamplers(startSlot uint32, samplers []SamplerState)

	RSSetState(state RasterizerState)
	RSSetViewports(viewports []Viewport)
	RSSetScissorRects(rects []Rect)

	OMSetRenderTargets(views []RenderTargetView)
	ClearRenderTargetView(view RenderTargetView, color [4]float32)

	Map(buffer Buffer, mapType MapType) (MappedSubresource, error)
	Unmap(buffer Buffer)
	UpdateSubresource(buffer Buffer, data []byte)

	Draw(vertexCount, startVertex uint32)
	DrawIndexed(indexCount, startIndex uint32, baseVertex int32)
	DrawInstanced(vertexCountPerInstance, instanceCount, startVertex, startInstance uint32)
	DrawIndexedInstanced(indexCountPerInstance, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)

	Flush()
}

/**
 * @brief Presentable back buffers bound to a window (or to memory for software drivers).
 */
type SwapChain interface {
	Object
	BufferCount() uint32
	// GetBuffer returns back buffer i with an added reference.
	GetBuffer(i uint32) (Texture2D, error)
	// ResizeBuffers fails while any reference to a back buffer is held outside the swapchain.
	ResizeBuffers(width, height uint32) error
	Present(syncInterval uint32) error
}

/**
 * @brief Optional Device extension reporting objects still alive.
 */
type Debug interface {
	ReportLiveObjects() []LiveObject
}

type LiveObject struct {
	Kind ObjectKind
	ID   uint64
	Refs uint32
}
