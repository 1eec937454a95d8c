package vulkan

import (
	"encoding/binary"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/shader"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module handle. */
	Handle vk.ShaderModule
	/** @brief The entry point the stage runs. */
	EntryName string
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// checkModule rejects anything that is not a word aligned SPIR-V module.
func checkModule(op string, code []byte) error {
	if len(code) < 20 || len(code)%4 != 0 {
		return driver.Errorf(op, driver.ResultInvalidArg, "bytecode of %d bytes is not a module", len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != spirvMagic {
		return driver.Errorf(op, driver.ResultInvalidArg, "bad module magic 0x%08X", magic)
	}
	return nil
}

// NewShaderModule creates the module for code, which holds a single entry
// point for stage.
func NewShaderModule(context *VulkanContext, op string, code []byte, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if err := checkModule(op, code); err != nil {
		return nil, err
	}
	module, err := shader.ParseModule(code)
	if err != nil {
		return nil, driver.Errorf(op, driver.ResultInvalidArg, "%v", err)
	}
	if len(module.EntryPoints) == 0 {
		return nil, driver.Errorf(op, driver.ResultInvalidArg, "module has no entry point")
	}

	words := unsafe.Slice((*uint32)(unsafe.Pointer(&code[0])), len(code)/4)
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}
	var handle vk.ShaderModule
	if err := checkResult("vkCreateShaderModule", vk.CreateShaderModule(context.logical(), &createInfo, context.Allocator, &handle)); err != nil {
		return nil, err
	}

	s := &VulkanShaderStage{Handle: handle, EntryName: module.EntryPoints[0].Name}
	s.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: handle,
		PName:  VulkanSafeString(s.EntryName),
	}
	return s, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.logical(), s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}
