package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var pFence vk.Fence
	if err := checkResult("vkCreateFence", vk.CreateFence(context.logical(), &fenceCreateInfo, context.Allocator, &pFence)); err != nil {
		return nil, err
	}
	return &VulkanFence{Handle: pFence, IsSignaled: createSignaled}, nil
}

func (vf *VulkanFence) FenceDestroy(context *VulkanContext) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(context.logical(), vf.Handle, context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// FenceWait blocks until the fence signals or timeoutNs passes. A timeout is
// logged and reported as false; device errors are returned.
func (vf *VulkanFence) FenceWait(context *VulkanContext, timeoutNs uint64) (bool, error) {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return true, nil
	}
	result := vk.WaitForFences(context.logical(), 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return true, nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return false, nil
	}
	return false, checkResult("vkWaitForFences", result)
}

func (vf *VulkanFence) FenceReset(context *VulkanContext) error {
	if !vf.IsSignaled {
		return nil
	}
	if err := checkResult("vkResetFences", vk.ResetFences(context.logical(), 1, []vk.Fence{vf.Handle})); err != nil {
		return err
	}
	vf.IsSignaled = false
	return nil
}
