package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

/**
 * @brief The driver.SwapChain. Back buffers are proxy textures; whichever
 * one is bound as render target, the frame renders into the image acquired
 * from the Vulkan swapchain.
 */
type SwapChain struct {
	object
	format  driver.Format
	vsync   bool
	buffers []*Texture2D
}

func newSwapChain(dev *Device, count uint32, vsync bool) *SwapChain {
	vc := dev.vc
	sc := &SwapChain{
		format: fromVkFormat(vc.Swapchain.ImageFormat.Format),
		vsync:  vsync,
	}
	sc.allocate(dev, count, vc.Swapchain.Extent.Width, vc.Swapchain.Extent.Height)
	dev.track(&sc.object, driver.KindSwapChain)
	dev.sc = sc
	sc.onDestroy = func() {
		sc.releaseBuffers()
		dev.sc = nil
	}
	return sc
}

func (sc *SwapChain) allocate(dev *Device, count, width, height uint32) {
	desc := driver.Texture2DDesc{
		Width:     width,
		Height:    height,
		MipLevels: 1,
		ArraySize: 1,
		Format:    sc.format,
		Usage:     driver.UsageDefault,
		BindFlags: driver.BindRenderTarget,
	}
	sc.buffers = make([]*Texture2D, count)
	for i := range sc.buffers {
		t := &Texture2D{desc: desc, backBuffer: true, index: uint32(i)}
		dev.track(&t.object, driver.KindTexture2D)
		sc.buffers[i] = t
	}
}

func (sc *SwapChain) releaseBuffers() {
	for _, b := range sc.buffers {
		b.Release()
	}
	sc.buffers = nil
}

func (sc *SwapChain) BufferCount() uint32 {
	return uint32(len(sc.buffers))
}

func (sc *SwapChain) GetBuffer(i uint32) (driver.Texture2D, error) {
	if i >= uint32(len(sc.buffers)) {
		return nil, invalidArg("GetBuffer", "back buffer %d of %d", i, len(sc.buffers))
	}
	b := sc.buffers[i]
	b.AddRef()
	return b, nil
}

func (sc *SwapChain) ResizeBuffers(width, height uint32) error {
	const op = "ResizeBuffers"
	if width == 0 || height == 0 {
		return invalidArg(op, "size %dx%d", width, height)
	}
	for i, b := range sc.buffers {
		if b.refs > 1 {
			return driver.Errorf(op, driver.ResultInvalidCall, "back buffer %d still has %d outside references", i, b.refs-1)
		}
	}
	dev := sc.dev
	if ctx := dev.ctx; ctx != nil && ctx.recording {
		if err := ctx.endFrame(); err != nil {
			return err
		}
	}
	dev.vc.FramebufferWidth, dev.vc.FramebufferHeight = width, height
	if err := sc.recreate(width, height); err != nil {
		return err
	}
	extent := dev.vc.Swapchain.Extent
	count := uint32(len(sc.buffers))
	sc.releaseBuffers()
	sc.allocate(dev, count, extent.Width, extent.Height)
	return nil
}

// recreate rebuilds the Vulkan swapchain and its framebuffers at the given
// size. Images in flight are forgotten since the old images are gone.
func (sc *SwapChain) recreate(width, height uint32) error {
	vc := sc.dev.vc
	next, err := vc.Swapchain.SwapchainRecreate(vc, width, height, sc.vsync)
	if err != nil {
		core.LogError("vulkan: swapchain recreate: %v", err)
		return err
	}
	vc.Swapchain = next
	if err := next.regenerateFramebuffers(vc, vc.MainRenderpass); err != nil {
		return err
	}
	vc.ImagesInFlight = make([]*VulkanFence, next.ImageCount)
	core.LogDebug("vulkan: swapchain recreated at %dx%d", next.Extent.Width, next.Extent.Height)
	return nil
}

func (sc *SwapChain) Present(syncInterval uint32) error {
	if syncInterval > 4 {
		return invalidArg("Present", "sync interval %d", syncInterval)
	}
	dev := sc.dev
	ctx := dev.ctx
	if ctx == nil {
		return driver.Errorf("Present", driver.ResultInvalidCall, "context released")
	}
	// A frame with no clear and no draw still presents the cleared image.
	if !ctx.recording && !ctx.beginFrame() {
		return nil
	}
	if err := ctx.endFrame(); err != nil {
		return err
	}
	vc := dev.vc
	slot := vc.CurrentFrame
	err := vc.Swapchain.SwapchainPresent(vc, vc.Device.PresentQueue, vc.QueueCompleteSemaphores[slot], vc.ImageIndex)
	if err == errOutOfDate {
		return sc.recreate(vc.FramebufferWidth, vc.FramebufferHeight)
	}
	return err
}

// destroySyncObjects releases the per frame command buffers, semaphores
// and fences.
func destroySyncObjects(vc *VulkanContext) {
	for i := range vc.ImageAvailableSemaphores {
		if vc.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vc.logical(), vc.ImageAvailableSemaphores[i], vc.Allocator)
		}
	}
	for i := range vc.QueueCompleteSemaphores {
		if vc.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vc.logical(), vc.QueueCompleteSemaphores[i], vc.Allocator)
		}
	}
	for _, f := range vc.InFlightFences {
		if f != nil {
			f.FenceDestroy(vc)
		}
	}
	for _, cb := range vc.GraphicsCommandBuffers {
		if cb != nil {
			cb.Free(vc, vc.Device.GraphicsCommandPool)
		}
	}
	vc.ImageAvailableSemaphores, vc.QueueCompleteSemaphores = nil, nil
	vc.InFlightFences, vc.ImagesInFlight, vc.GraphicsCommandBuffers = nil, nil, nil
}

func createSyncObjects(vc *VulkanContext) error {
	frames := vc.Swapchain.MaxFramesInFlight
	vc.GraphicsCommandBuffers = make([]*VulkanCommandBuffer, frames)
	vc.ImageAvailableSemaphores = make([]vk.Semaphore, frames)
	vc.QueueCompleteSemaphores = make([]vk.Semaphore, frames)
	vc.InFlightFences = make([]*VulkanFence, frames)
	vc.ImagesInFlight = make([]*VulkanFence, vc.Swapchain.ImageCount)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	for i := uint32(0); i < frames; i++ {
		cb, err := NewVulkanCommandBuffer(vc, vc.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vc.GraphicsCommandBuffers[i] = cb
		if err := checkResult("vkCreateSemaphore", vk.CreateSemaphore(vc.logical(), &semaphoreCreateInfo, vc.Allocator, &vc.ImageAvailableSemaphores[i])); err != nil {
			return err
		}
		if err := checkResult("vkCreateSemaphore", vk.CreateSemaphore(vc.logical(), &semaphoreCreateInfo, vc.Allocator, &vc.QueueCompleteSemaphores[i])); err != nil {
			return err
		}
		// Created signaled so the first frame does not wait.
		fence, err := NewFence(vc, true)
		if err != nil {
			return err
		}
		vc.InFlightFences[i] = fence
	}
	return nil
}
