package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
	Layout vk.ImageLayout
}

// ImageCreate allocates a 2D image with one mip level and, when createView is
// set, a view on viewAspectFlags.
func ImageCreate(context *VulkanContext, width, height uint32, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags, memoryFlags vk.MemoryPropertyFlags, createView bool, viewAspectFlags vk.ImageAspectFlags) (*VulkanImage, error) {
	image := &VulkanImage{Width: width, Height: height, Format: format, Layout: vk.ImageLayoutUndefined}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	var handle vk.Image
	if err := checkResult("vkCreateImage", vk.CreateImage(context.logical(), &imageCreateInfo, context.Allocator, &handle)); err != nil {
		return nil, err
	}
	image.Handle = handle

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.logical(), handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryType == -1 {
		image.ImageDestroy(context)
		return nil, driver.Errorf("ImageCreate", driver.ResultOutOfMemory, "required memory type not found")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: uint32(memoryType),
	}
	var memory vk.DeviceMemory
	if err := checkResult("vkAllocateMemory", vk.AllocateMemory(context.logical(), &allocateInfo, context.Allocator, &memory)); err != nil {
		image.ImageDestroy(context)
		return nil, err
	}
	image.Memory = memory
	if err := checkResult("vkBindImageMemory", vk.BindImageMemory(context.logical(), handle, memory, 0)); err != nil {
		image.ImageDestroy(context)
		return nil, err
	}

	if createView {
		view, err := createImageView(context, handle, format, viewAspectFlags)
		if err != nil {
			image.ImageDestroy(context)
			return nil, err
		}
		image.View = view
	}
	return image, nil
}

func createImageView(context *VulkanContext, image vk.Image, format vk.Format, aspectFlags vk.ImageAspectFlags) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := checkResult("vkCreateImageView", vk.CreateImageView(context.logical(), &viewCreateInfo, context.Allocator, &view)); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

// TransitionLayout records a barrier moving the image to newLayout. Only the
// transitions needed for uploads are supported.
func (vi *VulkanImage) TransitionLayout(cb *VulkanCommandBuffer, newLayout vk.ImageLayout) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           vi.Layout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var srcStage, dstStage vk.PipelineStageFlagBits
	switch {
	case vi.Layout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage, dstStage = vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit
	case vi.Layout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage, dstStage = vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit
	case vi.Layout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage, dstStage = vk.PipelineStageTopOfPipeBit, vk.PipelineStageFragmentShaderBit
	default:
		return driver.Errorf("TransitionLayout", driver.ResultInvalidArg, "unsupported transition %d -> %d", vi.Layout, newLayout)
	}
	vk.CmdPipelineBarrier(cb.Handle,
		vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	vi.Layout = newLayout
	return nil
}

// CopyFromBuffer records a copy of tightly packed pixels from buffer into the
// image, which must be in the transfer destination layout.
func (vi *VulkanImage) CopyFromBuffer(cb *VulkanCommandBuffer, buffer vk.Buffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{Width: vi.Width, Height: vi.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb.Handle, buffer, vi.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (vi *VulkanImage) ImageDestroy(context *VulkanContext) {
	if vi.View != vk.NullImageView {
		vk.DestroyImageView(context.logical(), vi.View, context.Allocator)
		vi.View = vk.NullImageView
	}
	if vi.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(context.logical(), vi.Memory, context.Allocator)
		vi.Memory = vk.NullDeviceMemory
	}
	if vi.Handle != vk.NullImage {
		vk.DestroyImage(context.logical(), vi.Handle, context.Allocator)
		vi.Handle = vk.NullImage
	}
}
