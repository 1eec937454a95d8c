package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

type object struct {
	dev       *Device
	id        uint64
	kind      driver.ObjectKind
	refs      uint32
	onDestroy func()
}

func (o *object) AddRef() uint32 {
	if o.refs == 0 {
		panic(fmt.Sprintf("vulkan: AddRef on destroyed %s #%d", o.kind, o.id))
	}
	o.refs++
	return o.refs
}

func (o *object) Release() uint32 {
	if o.refs == 0 {
		panic(fmt.Sprintf("vulkan: Release on destroyed %s #%d", o.kind, o.id))
	}
	o.refs--
	if o.refs == 0 {
		if o.onDestroy != nil {
			o.onDestroy()
		}
		if o.dev != nil {
			o.dev.forget(o)
		}
	}
	return o.refs
}

func (o *object) Kind() driver.ObjectKind {
	return o.kind
}

func (o *object) ID() uint64 {
	return o.id
}

func (o *object) alive() bool {
	return o.refs > 0
}

/**
 * @brief One storage generation of a GPU visible buffer, with the number of
 * the last frame that read it.
 */
type bufferVersion struct {
	gpu     *VulkanBuffer
	lastUse uint64
}

/**
 * @brief Vertex and index buffers live in host visible memory and are
 * renamed on discard. Constant and staging buffers keep a CPU copy only; a
 * constant buffer is snapshotted into the frame's upload arena per draw.
 */
type Buffer struct {
	object
	desc     driver.BufferDesc
	shadow   []byte
	versions []*bufferVersion
	current  *bufferVersion
	mapped   bool
}

func (b *Buffer) BufferDesc() driver.BufferDesc {
	return b.desc
}

// onGPU reports whether the buffer is read by the input assembler.
func (b *Buffer) onGPU() bool {
	return b.desc.BindFlags&(driver.BindVertexBuffer|driver.BindIndexBuffer) != 0 && b.desc.Usage != driver.UsageStaging
}

// rename makes current a version no in-flight frame reads, allocating one
// when every version is still busy.
func (b *Buffer) rename() error {
	completed := b.dev.completed
	for _, v := range b.versions {
		if v != b.current && v.lastUse <= completed {
			b.current = v
			return nil
		}
	}
	gpu, err := BufferCreate(b.dev.vc, uint64(b.desc.ByteWidth), bufferUsage(b.desc.BindFlags))
	if err != nil {
		return err
	}
	v := &bufferVersion{gpu: gpu}
	b.versions = append(b.versions, v)
	b.current = v
	return nil
}

// markUsed records that the frame being recorded reads the current version.
func (b *Buffer) markUsed() {
	if b.current != nil {
		b.current.lastUse = b.dev.recordingFrame()
	}
}

func (b *Buffer) destroy() {
	versions := b.versions
	b.versions, b.current = nil, nil
	b.dev.retire(func(vc *VulkanContext) {
		for _, v := range versions {
			v.gpu.Destroy(vc)
		}
	})
}

func bufferUsage(bind driver.BindFlag) vk.BufferUsageFlags {
	var usage vk.BufferUsageFlags
	if bind&driver.BindVertexBuffer != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if bind&driver.BindIndexBuffer != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	return usage
}

/**
 * @brief A sampled image, or a proxy for one of the swapchain images.
 */
type Texture2D struct {
	object
	desc  driver.Texture2DDesc
	image *VulkanImage
	// backBuffer is set for swapchain proxies.
	backBuffer bool
	index      uint32
}

func (t *Texture2D) TextureDesc() driver.Texture2DDesc {
	return t.desc
}

type ShaderResourceView struct {
	object
	tex *Texture2D
}

func (v *ShaderResourceView) ViewedTexture() driver.Texture2D {
	return v.tex
}

// RenderTargetView always targets the back buffer acquired for the frame
// being recorded.
type RenderTargetView struct {
	object
	tex *Texture2D
}

func (v *RenderTargetView) TargetTexture() driver.Texture2D {
	return v.tex
}

type VertexShader struct {
	object
	bytecode []byte
	stage    *VulkanShaderStage
}

func (s *VertexShader) VertexBytecode() []byte {
	return s.bytecode
}

type PixelShader struct {
	object
	bytecode []byte
	stage    *VulkanShaderStage
}

func (s *PixelShader) PixelBytecode() []byte {
	return s.bytecode
}

type InputLayout struct {
	object
	elements []driver.InputElementDesc
	offsets  []uint32
}

func (l *InputLayout) Elements() []driver.InputElementDesc {
	out := make([]driver.InputElementDesc, len(l.elements))
	copy(out, l.elements)
	return out
}

type RasterizerState struct {
	object
	desc driver.RasterizerDesc
}

func (s *RasterizerState) RasterizerDesc() driver.RasterizerDesc {
	return s.desc
}

type SamplerState struct {
	object
	desc   driver.SamplerDesc
	handle vk.Sampler
}

func (s *SamplerState) SamplerDesc() driver.SamplerDesc {
	return s.desc
}

type counted interface {
	comparable
	AddRef() uint32
	Release() uint32
}

// rebind moves the reference held in slot from its current value to v.
func rebind[T counted](slot *T, v T) {
	var zero T
	if *slot == v {
		return
	}
	if v != zero {
		v.AddRef()
	}
	if *slot != zero {
		(*slot).Release()
	}
	*slot = v
}

func native[T any](op string, v interface{}) T {
	var zero T
	if v == nil {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("vulkan: %s given a foreign %T", op, v))
	}
	return t
}
