package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanRenderpass struct {
	Handle     vk.RenderPass
	X, Y, W, H float32
	R, G, B, A float32
}

// RenderpassCreate builds the single color pass rendering into the swapchain
// images. The attachment is cleared on load with the pass clear color.
func RenderpassCreate(context *VulkanContext, format vk.Format, x, y, w, h float32) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{X: x, Y: y, W: w, H: h, A: 1.0}

	colorAttachment := vk.AttachmentDescription{
		Format:         format,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,  // Do not expect any particular layout before render pass starts.
		FinalLayout:    vk.ImageLayoutPresentSrc, // Transitioned to after the render pass
	}

	colorAttachmentReference := []vk.AttachmentReference{{
		Attachment: 0, // Attachment description array index
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    colorAttachmentReference,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var pRenderPass vk.RenderPass
	if err := checkResult("vkCreateRenderPass", vk.CreateRenderPass(context.logical(), &renderpassCreateInfo, context.Allocator, &pRenderPass)); err != nil {
		return nil, err
	}
	outRenderpass.Handle = pRenderPass
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(context.logical(), vr.Handle, context.Allocator)
		vr.Handle = vk.NullRenderPass
	}
}

func (vr *VulkanRenderpass) SetClearColor(color [4]float32) {
	vr.R, vr.G, vr.B, vr.A = color[0], color[1], color[2], color[3]
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer) {
	clearValues := make([]vk.ClearValue, 1)
	clearValues[0].SetColor([]float32{vr.R, vr.G, vr.B, vr.A})

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: int32(vr.X), Y: int32(vr.Y)},
			Extent: vk.Extent2D{Width: uint32(vr.W), Height: uint32(vr.H)},
		},
		ClearValueCount: 1,
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}

// ClearInPass clears the whole color attachment while the pass is open.
func (vr *VulkanRenderpass) ClearInPass(commandBuffer *VulkanCommandBuffer, color [4]float32) {
	var value vk.ClearValue
	value.SetColor(color[:])
	vk.CmdClearAttachments(commandBuffer.Handle, 1, []vk.ClearAttachment{{
		AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
		ColorAttachment: 0,
		ClearValue:      value,
	}}, 1, []vk.ClearRect{{
		Rect: vk.Rect2D{
			Offset: vk.Offset2D{X: int32(vr.X), Y: int32(vr.Y)},
			Extent: vk.Extent2D{Width: uint32(vr.W), Height: uint32(vr.H)},
		},
		BaseArrayLayer: 0,
		LayerCount:     1,
	}})
}
