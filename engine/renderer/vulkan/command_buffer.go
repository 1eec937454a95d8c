package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}
	handles := make([]vk.CommandBuffer, 1)
	if err := checkResult("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(context.logical(), &allocateInfo, handles)); err != nil {
		return nil, err
	}
	return &VulkanCommandBuffer{Handle: handles[0], State: COMMAND_BUFFER_STATE_READY}, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v.Handle != nil {
		vk.FreeCommandBuffers(context.logical(), pool, 1, []vk.CommandBuffer{v.Handle})
	}
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}
	if err := checkResult("vkBeginCommandBuffer", vk.BeginCommandBuffer(v.Handle, beginInfo)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if err := checkResult("vkEndCommandBuffer", vk.EndCommandBuffer(v.Handle)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() error {
	if err := checkResult("vkResetCommandBuffer", vk.ResetCommandBuffer(v.Handle, 0)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

/**
 * Allocates a primary command buffer and begins one time recording.
 */
func AllocateAndBeginSingleUse(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(context, pool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(context, pool)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for queue operation and frees the provided command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(context *VulkanContext, pool vk.CommandPool, queue vk.Queue) error {
	defer v.Free(context, pool)
	if err := v.End(); err != nil {
		return err
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	if err := checkResult("vkQueueSubmit", vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence)); err != nil {
		return err
	}
	// Wait for it to finish
	return checkResult("vkQueueWaitIdle", vk.QueueWaitIdle(queue))
}

// runSingleUse records fn into a one time command buffer on the graphics
// queue and waits for it.
func runSingleUse(context *VulkanContext, fn func(cb *VulkanCommandBuffer)) error {
	pool := context.Device.GraphicsCommandPool
	cb, err := AllocateAndBeginSingleUse(context, pool)
	if err != nil {
		return err
	}
	fn(cb)
	return cb.EndSingleUse(context, pool, context.Device.GraphicsQueue)
}
