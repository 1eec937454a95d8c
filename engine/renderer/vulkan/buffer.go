package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

/**
 * @brief A buffer in host visible, coherent memory. It stays persistently
 * mapped for its whole life.
 */
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlags

	mapped unsafe.Pointer
}

const hostMemoryFlags = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit

func BufferCreate(context *VulkanContext, size uint64, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{Size: size, Usage: usage}
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if err := checkResult("vkCreateBuffer", vk.CreateBuffer(context.logical(), &bufferInfo, context.Allocator, &handle)); err != nil {
		return nil, err
	}
	buffer.Handle = handle

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.logical(), handle, &requirements)
	requirements.Deref()

	memoryType := context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(hostMemoryFlags))
	if memoryType == -1 {
		buffer.Destroy(context)
		return nil, driver.Errorf("BufferCreate", driver.ResultOutOfMemory, "no host visible memory type")
	}
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if err := checkResult("vkAllocateMemory", vk.AllocateMemory(context.logical(), &allocateInfo, context.Allocator, &memory)); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	buffer.Memory = memory
	if err := checkResult("vkBindBufferMemory", vk.BindBufferMemory(context.logical(), handle, memory, 0)); err != nil {
		buffer.Destroy(context)
		return nil, err
	}

	var ptr unsafe.Pointer
	if err := checkResult("vkMapMemory", vk.MapMemory(context.logical(), memory, 0, vk.DeviceSize(size), 0, &ptr)); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	buffer.mapped = ptr
	return buffer, nil
}

// Bytes is the persistently mapped memory of the buffer.
func (b *VulkanBuffer) Bytes() []byte {
	if b.mapped == nil {
		return nil
	}
	return unsafe.Slice((*byte)(b.mapped), b.Size)
}

// LoadData copies data into the buffer at offset.
func (b *VulkanBuffer) LoadData(offset uint64, data []byte) {
	copy(b.Bytes()[offset:], data)
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.mapped != nil {
		vk.UnmapMemory(context.logical(), b.Memory)
		b.mapped = nil
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.logical(), b.Memory, context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(context.logical(), b.Handle, context.Allocator)
		b.Handle = vk.NullBuffer
	}
}

/**
 * @brief Linear per-frame upload arena for constant buffer snapshots. Reset
 * once the frame's fence has signaled.
 */
type uploadArena struct {
	buffer    *VulkanBuffer
	alignment uint64
	offset    uint64
}

func newUploadArena(context *VulkanContext, size uint64) (*uploadArena, error) {
	buffer, err := BufferCreate(context, size, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit))
	if err != nil {
		return nil, err
	}
	alignment := uint64(context.Device.Properties.Limits.MinUniformBufferOffsetAlignment)
	if alignment == 0 {
		alignment = 256
	}
	return &uploadArena{buffer: buffer, alignment: alignment}, nil
}

// push copies data into the arena and returns its offset, false when full.
func (a *uploadArena) push(data []byte) (uint64, bool) {
	start := alignUp(a.offset, a.alignment)
	if start+uint64(len(data)) > a.buffer.Size {
		return 0, false
	}
	a.buffer.LoadData(start, data)
	a.offset = start + uint64(len(data))
	return start, true
}

func (a *uploadArena) reset() {
	a.offset = 0
}

func (a *uploadArena) destroy(context *VulkanContext) {
	a.buffer.Destroy(context)
}
