package vulkan

// Frames recorded ahead of the GPU.
const maxFramesInFlight uint32 = 2

// Slot limits shared with the software drivers.
const (
	MaxVertexBufferSlots   = 16
	MaxConstantBufferSlots = 14
	MaxShaderResourceSlots = 16
	MaxSamplerSlots        = 16
	maxInputElements       = 16
)

/**
 * @brief Descriptor bindings. Set 0 holds the vertex stage constant buffers,
 * set 1 the pixel stage ones. Within a set a constant buffer in slot n uses
 * binding n, a texture binding textureBindingBase+n and a sampler
 * samplerBindingBase+n.
 */
const (
	vertexSet          = 0
	pixelSet           = 1
	textureBindingBase = 16
	samplerBindingBase = 32
)

const (
	// Bytes of constant buffer snapshots one frame may upload.
	uploadArenaSize uint64 = 4 << 20
	// Descriptor sets one frame may allocate, two per draw.
	maxDescriptorSetsPerFrame uint32 = 8192

	constantAlignment = 16
	spirvMagic        = 0x07230203

	// Nanoseconds to wait on a frame fence or an image acquire.
	frameTimeoutNS uint64 = 1_000_000_000
)
