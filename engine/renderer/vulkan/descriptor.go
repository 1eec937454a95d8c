package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

/**
 * @brief The two descriptor set layouts every pipeline shares, plus the
 * pipeline layout built from them.
 */
type VulkanDescriptorLayouts struct {
	Sets           [2]vk.DescriptorSetLayout
	PipelineLayout vk.PipelineLayout
}

func setLayoutBindings(stage vk.ShaderStageFlagBits, withTextures bool) []vk.DescriptorSetLayoutBinding {
	binds := make([]vk.DescriptorSetLayoutBinding, 0, MaxConstantBufferSlots+MaxShaderResourceSlots+MaxSamplerSlots)
	for i := 0; i < MaxConstantBufferSlots; i++ {
		binds = append(binds, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(stage),
		})
	}
	if !withTextures {
		return binds
	}
	for i := 0; i < MaxShaderResourceSlots; i++ {
		binds = append(binds, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(textureBindingBase + i),
			DescriptorType:  vk.DescriptorTypeSampledImage,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(stage),
		})
	}
	for i := 0; i < MaxSamplerSlots; i++ {
		binds = append(binds, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(samplerBindingBase + i),
			DescriptorType:  vk.DescriptorTypeSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(stage),
		})
	}
	return binds
}

func DescriptorLayoutsCreate(context *VulkanContext) (*VulkanDescriptorLayouts, error) {
	layouts := &VulkanDescriptorLayouts{}
	stages := [2]struct {
		stage        vk.ShaderStageFlagBits
		withTextures bool
	}{
		vertexSet: {vk.ShaderStageVertexBit, false},
		pixelSet:  {vk.ShaderStageFragmentBit, true},
	}
	for i, s := range stages {
		binds := setLayoutBindings(s.stage, s.withTextures)
		createInfo := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(binds)),
			PBindings:    binds,
		}
		var handle vk.DescriptorSetLayout
		if err := checkResult("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(context.logical(), &createInfo, context.Allocator, &handle)); err != nil {
			layouts.Destroy(context)
			return nil, err
		}
		layouts.Sets[i] = handle
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts.Sets)),
		PSetLayouts:    layouts.Sets[:],
	}
	var pipelineLayout vk.PipelineLayout
	if err := checkResult("vkCreatePipelineLayout", vk.CreatePipelineLayout(context.logical(), &pipelineLayoutCreateInfo, context.Allocator, &pipelineLayout)); err != nil {
		layouts.Destroy(context)
		return nil, err
	}
	layouts.PipelineLayout = pipelineLayout
	return layouts, nil
}

func (l *VulkanDescriptorLayouts) Destroy(context *VulkanContext) {
	if l.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(context.logical(), l.PipelineLayout, context.Allocator)
		l.PipelineLayout = vk.NullPipelineLayout
	}
	for i := range l.Sets {
		if l.Sets[i] != nil {
			vk.DestroyDescriptorSetLayout(context.logical(), l.Sets[i], context.Allocator)
			l.Sets[i] = nil
		}
	}
}

/**
 * @brief A descriptor pool owned by one frame in flight. Sets are allocated
 * per draw and all freed together by Reset once the frame's fence signaled.
 */
type VulkanDescriptorPool struct {
	Handle vk.DescriptorPool
	// Allocated counts sets handed out since the last reset.
	Allocated uint32
}

func DescriptorPoolCreate(context *VulkanContext) (*VulkanDescriptorPool, error) {
	perSet := maxDescriptorSetsPerFrame / 2
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxDescriptorSetsPerFrame * 4},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: perSet * 4},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: perSet * 4},
	}
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxDescriptorSetsPerFrame,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var handle vk.DescriptorPool
	if err := checkResult("vkCreateDescriptorPool", vk.CreateDescriptorPool(context.logical(), &createInfo, context.Allocator, &handle)); err != nil {
		return nil, err
	}
	return &VulkanDescriptorPool{Handle: handle}, nil
}

func (p *VulkanDescriptorPool) Reset(context *VulkanContext) error {
	p.Allocated = 0
	return checkResult("vkResetDescriptorPool", vk.ResetDescriptorPool(context.logical(), p.Handle, 0))
}

// Allocate returns one set of the given layout.
func (p *VulkanDescriptorPool) Allocate(context *VulkanContext, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.Handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	if err := checkResult("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(context.logical(), &allocateInfo, &set)); err != nil {
		core.LogWarn("descriptor pool exhausted after %d sets this frame", p.Allocated)
		return nil, err
	}
	p.Allocated++
	return set, nil
}

func (p *VulkanDescriptorPool) Destroy(context *VulkanContext) {
	if p.Handle != nil {
		vk.DestroyDescriptorPool(context.logical(), p.Handle, context.Allocator)
		p.Handle = nil
	}
}

/**
 * @brief Collects the writes of one descriptor set before a single
 * vkUpdateDescriptorSets call.
 */
type descriptorWriter struct {
	set    vk.DescriptorSet
	writes []vk.WriteDescriptorSet
}

func (w *descriptorWriter) uniform(binding uint32, buffer vk.Buffer, offset, size uint64) {
	w.writes = append(w.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          w.set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer,
			Offset: vk.DeviceSize(offset),
			Range:  vk.DeviceSize(size),
		}},
	})
}

func (w *descriptorWriter) texture(binding uint32, view vk.ImageView) {
	w.writes = append(w.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          w.set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeSampledImage,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	})
}

func (w *descriptorWriter) sampler(binding uint32, sampler vk.Sampler) {
	w.writes = append(w.writes, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          w.set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeSampler,
		PImageInfo:      []vk.DescriptorImageInfo{{Sampler: sampler}},
	})
}

func (w *descriptorWriter) flush(context *VulkanContext) {
	if len(w.writes) > 0 {
		vk.UpdateDescriptorSets(context.logical(), uint32(len(w.writes)), w.writes, 0, nil)
	}
	w.writes = w.writes[:0]
}
