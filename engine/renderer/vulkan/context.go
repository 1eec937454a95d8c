package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

// VulkanContext is the instance level state shared by every object of one
// opened device.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	// One per frame in flight.
	GraphicsCommandBuffers   []*VulkanCommandBuffer
	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore
	InFlightFences           []*VulkanFence

	// Holds pointers to fences which exist and are owned elsewhere, one per
	// swapchain image.
	ImagesInFlight []*VulkanFence

	ImageIndex   uint32
	CurrentFrame uint32
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has all of propertyFlags, or -1.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// logical is a shorthand used by every create and destroy call.
func (vc *VulkanContext) logical() vk.Device {
	return vc.Device.LogicalDevice
}
