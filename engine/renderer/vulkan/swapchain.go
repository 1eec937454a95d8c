package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

type VulkanSwapchain struct {
	ImageFormat       vk.SurfaceFormat
	Extent            vk.Extent2D
	MaxFramesInFlight uint32
	Handle            vk.Swapchain
	ImageCount        uint32
	Images            []vk.Image
	Views             []vk.ImageView

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// SwapchainCreate builds a swapchain of at least minImages images. vsync
// selects FIFO presentation, otherwise mailbox or immediate when available.
func SwapchainCreate(context *VulkanContext, width, height, minImages uint32, preferred vk.Format, vsync bool) (*VulkanSwapchain, error) {
	return createSwapchain(context, width, height, minImages, preferred, vsync, vk.NullSwapchain)
}

// SwapchainRecreate replaces vs with a swapchain of the new size. The old
// handle is passed as the retired swapchain and destroyed afterwards.
func (vs *VulkanSwapchain) SwapchainRecreate(context *VulkanContext, width, height uint32, vsync bool) (*VulkanSwapchain, error) {
	vk.DeviceWaitIdle(context.logical())
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, &context.Device.SwapchainSupport); err != nil {
		return nil, err
	}
	vs.destroyViews(context)
	next, err := createSwapchain(context, width, height, vs.ImageCount, vs.ImageFormat.Format, vsync, vs.Handle)
	vk.DestroySwapchain(context.logical(), vs.Handle, context.Allocator)
	vs.Handle = vk.NullSwapchain
	return next, err
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vk.DeviceWaitIdle(context.logical())
	vs.destroyViews(context)
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.logical(), vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

// SwapchainAcquireNextImageIndex returns ErrOutOfDate wrapped in a
// *driver.Error when the surface changed under the swapchain.
func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(context *VulkanContext, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore, fence vk.Fence) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.logical(), vs.Handle, timeoutNS, imageAvailableSemaphore, fence, &imageIndex)
	switch result {
	case vk.Success, vk.Suboptimal:
		return imageIndex, nil
	case vk.ErrorOutOfDate:
		return 0, errOutOfDate
	}
	return 0, checkResult("vkAcquireNextImage", result)
}

// SwapchainPresent gives the image back to the swapchain. A suboptimal or
// out of date result is reported as errOutOfDate after the present.
func (vs *VulkanSwapchain) SwapchainPresent(context *VulkanContext, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}
	result := vk.QueuePresent(presentQueue, &presentInfo)
	// Increment (and loop) the index.
	context.CurrentFrame = (context.CurrentFrame + 1) % vs.MaxFramesInFlight
	switch result {
	case vk.Success:
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return errOutOfDate
	}
	return checkResult("vkQueuePresent", result)
}

var errOutOfDate = &driver.Error{Op: "swapchain", Code: driver.ResultInvalidCall, Detail: "out of date"}

func choosePresentMode(modes []vk.PresentMode, vsync bool) vk.PresentMode {
	if vsync {
		return vk.PresentModeFifo
	}
	mode := vk.PresentModeFifo
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
		if m == vk.PresentModeImmediate {
			mode = m
		}
	}
	return mode
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat, preferred vk.Format) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == preferred && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

func createSwapchain(context *VulkanContext, width, height, minImages uint32, preferred vk.Format, vsync bool, old vk.Swapchain) (*VulkanSwapchain, error) {
	support := &context.Device.SwapchainSupport
	caps := support.Capabilities
	swapchain := &VulkanSwapchain{
		MaxFramesInFlight: maxFramesInFlight,
		ImageFormat:       chooseSurfaceFormat(support.Formats, preferred),
	}

	// Swapchain extent
	extent := vk.Extent2D{Width: width, Height: height}
	if caps.CurrentExtent.Width != math.MaxUint32 {
		extent = caps.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	extent.Width = clamp(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	extent.Height = clamp(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return nil, driver.Errorf("vkCreateSwapchain", driver.ResultInvalidArg, "surface extent %dx%d", extent.Width, extent.Height)
	}
	swapchain.Extent = extent

	imageCount := minImages
	if imageCount < caps.MinImageCount {
		imageCount = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      choosePresentMode(support.PresentModes, vsync),
		Clipped:          vk.True,
		OldSwapchain:     old,
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if err := checkResult("vkCreateSwapchain", vk.CreateSwapchain(context.logical(), &swapchainCreateInfo, context.Allocator, &handle)); err != nil {
		return nil, err
	}
	swapchain.Handle = handle

	// Start with a zero frame index.
	context.CurrentFrame = 0

	if err := checkResult("vkGetSwapchainImages", vk.GetSwapchainImages(context.logical(), handle, &swapchain.ImageCount, nil)); err != nil {
		swapchain.SwapchainDestroy(context)
		return nil, err
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	if err := checkResult("vkGetSwapchainImages", vk.GetSwapchainImages(context.logical(), handle, &swapchain.ImageCount, swapchain.Images)); err != nil {
		swapchain.SwapchainDestroy(context)
		return nil, err
	}

	for i := range swapchain.Images {
		view, err := createImageView(context, swapchain.Images[i], swapchain.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			swapchain.SwapchainDestroy(context)
			return nil, err
		}
		swapchain.Views[i] = view
	}

	core.LogInfo("Swapchain created: %dx%d, %d images.", extent.Width, extent.Height, swapchain.ImageCount)
	return swapchain, nil
}

// destroyViews drops the framebuffers and views. The images are owned by
// the swapchain and go away with it.
func (vs *VulkanSwapchain) destroyViews(context *VulkanContext) {
	for _, fb := range vs.Framebuffers {
		if fb != nil {
			fb.Destroy(context)
		}
	}
	vs.Framebuffers = nil
	for i := range vs.Views {
		if vs.Views[i] != vk.NullImageView {
			vk.DestroyImageView(context.logical(), vs.Views[i], context.Allocator)
		}
	}
	vs.Views = nil
}

// regenerateFramebuffers creates one framebuffer per swapchain image view.
func (vs *VulkanSwapchain) regenerateFramebuffers(context *VulkanContext, renderpass *VulkanRenderpass) error {
	vs.Framebuffers = make([]*VulkanFramebuffer, vs.ImageCount)
	for i := range vs.Views {
		fb, err := FramebufferCreate(context, renderpass, vs.Extent.Width, vs.Extent.Height, []vk.ImageView{vs.Views[i]})
		if err != nil {
			core.LogError("failed to execute framebuffer create function")
			return err
		}
		vs.Framebuffers[i] = fb
	}
	return nil
}
