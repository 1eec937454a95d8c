package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

/**
 * @brief Holds a Vulkan pipeline. The layout is shared and owned by
 * VulkanDescriptorLayouts.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	/** @brief The renderpass to associate with the pipeline. */
	Renderpass *VulkanRenderpass
	/** @brief One binding per vertex buffer slot the layout reads. */
	Bindings []vk.VertexInputBindingDescription
	/** @brief An array of attributes. */
	Attributes []vk.VertexInputAttributeDescription
	/** @brief The shared pipeline layout. */
	PipelineLayout vk.PipelineLayout
	/** @brief An array of stages. */
	Stages   []vk.PipelineShaderStageCreateInfo
	Topology vk.PrimitiveTopology
	Raster   driver.RasterizerDesc
}

/**
 * @brief Identifies a pipeline by everything baked into it.
 */
type pipelineKey struct {
	vs, ps, layout uint64
	raster         driver.RasterizerDesc
	topology       driver.PrimitiveTopology
	strides        [MaxVertexBufferSlots]uint32
}

// vertexInput builds the binding and attribute descriptions for elements.
// Element i is read at location i; each used input slot becomes a binding
// with the stride currently bound to it.
func vertexInput(elements []driver.InputElementDesc, offsets []uint32, strides *[MaxVertexBufferSlots]uint32) ([]vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription, error) {
	var bindings []vk.VertexInputBindingDescription
	seen := map[uint32]bool{}
	attributes := make([]vk.VertexInputAttributeDescription, 0, len(elements))
	for i, e := range elements {
		format, ok := toVkFormat(e.Format)
		if !ok {
			return nil, nil, driver.Errorf("vertexInput", driver.ResultUnsupported, "element %s%d format %s", e.SemanticName, e.SemanticIndex, e.Format)
		}
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  e.InputSlot,
			Format:   format,
			Offset:   offsets[i],
		})
		if seen[e.InputSlot] {
			continue
		}
		seen[e.InputSlot] = true
		rate := vk.VertexInputRateVertex
		if e.InputSlotClass == driver.InputPerInstanceData {
			rate = vk.VertexInputRateInstance
		}
		bindings = append(bindings, vk.VertexInputBindingDescription{
			Binding:   e.InputSlot,
			Stride:    strides[e.InputSlot],
			InputRate: rate,
		})
	}
	return bindings, attributes, nil
}

func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{PipelineLayout: config.PipelineLayout}

	// Viewport and scissor are dynamic, only the counts are baked.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             toVkPolygonMode(config.Raster.FillMode),
		LineWidth:               1.0,
		CullMode:                toVkCullMode(config.Raster.CullMode),
		FrontFace:               toVkFrontFace(config.Raster.FrontCounterClockwise),
		DepthBiasEnable:         vk.False,
	}
	if context.Device.Features.FillModeNonSolid != vk.True {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeFill
	}
	if !config.Raster.DepthClipEnable && context.Device.Features.DepthClamp == vk.True {
		rasterizerCreateInfo.DepthClampEnable = vk.True
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorSrcAlpha,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Attributes
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(config.Bindings)),
		PVertexBindingDescriptions:      config.Bindings,
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               config.Topology,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              config.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := checkResult("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
		context.logical(),
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		context.Allocator,
		pipelines)); err != nil {
		return nil, err
	}
	outPipeline.Handle = pipelines[0]

	core.LogDebug("Graphics pipeline created!")
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle != vk.NullPipeline {
		vk.DestroyPipeline(context.logical(), pipeline.Handle, context.Allocator)
		pipeline.Handle = vk.NullPipeline
	}
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}

/**
 * @brief Pipelines built so far, keyed by the state baked into them.
 */
type pipelineCache struct {
	pipelines map[pipelineKey]*VulkanPipeline
}

func newPipelineCache() *pipelineCache {
	return &pipelineCache{pipelines: make(map[pipelineKey]*VulkanPipeline)}
}

// get returns the pipeline for key, building it with build on a miss.
func (c *pipelineCache) get(key pipelineKey, build func() (*VulkanPipeline, error)) (*VulkanPipeline, error) {
	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}
	p, err := build()
	if err != nil {
		return nil, err
	}
	c.pipelines[key] = p
	return p, nil
}

// evict destroys every pipeline referencing the object id, called when a
// shader or input layout is destroyed.
func (c *pipelineCache) evict(context *VulkanContext, id uint64) {
	for k, p := range c.pipelines {
		if k.vs == id || k.ps == id || k.layout == id {
			p.Destroy(context)
			delete(c.pipelines, k)
		}
	}
}

func (c *pipelineCache) destroy(context *VulkanContext) {
	for k, p := range c.pipelines {
		p.Destroy(context)
		delete(c.pipelines, k)
	}
}
