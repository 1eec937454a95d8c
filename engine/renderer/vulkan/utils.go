package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

type resultInfo struct {
	name   string
	detail string
	code   driver.Result
}

// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
var resultInfos = map[vk.Result]resultInfo{
	vk.Success:                    {"VK_SUCCESS", "Command successfully completed", driver.ResultOK},
	vk.NotReady:                   {"VK_NOT_READY", "A fence or query has not yet completed", driver.ResultOK},
	vk.Timeout:                    {"VK_TIMEOUT", "A wait operation has not completed in the specified time", driver.ResultOK},
	vk.EventSet:                   {"VK_EVENT_SET", "An event is signaled", driver.ResultOK},
	vk.EventReset:                 {"VK_EVENT_RESET", "An event is unsignaled", driver.ResultOK},
	vk.Incomplete:                 {"VK_INCOMPLETE", "A return array was too small for the result", driver.ResultOK},
	vk.Suboptimal:                 {"VK_SUBOPTIMAL_KHR", "A swapchain no longer matches the surface properties exactly, but can still be used to present", driver.ResultOK},
	vk.ErrorOutOfHostMemory:       {"VK_ERROR_OUT_OF_HOST_MEMORY", "A host memory allocation has failed", driver.ResultOutOfMemory},
	vk.ErrorOutOfDeviceMemory:     {"VK_ERROR_OUT_OF_DEVICE_MEMORY", "A device memory allocation has failed", driver.ResultOutOfMemory},
	vk.ErrorInitializationFailed:  {"VK_ERROR_INITIALIZATION_FAILED", "Initialization of an object could not be completed", driver.ResultFail},
	vk.ErrorDeviceLost:            {"VK_ERROR_DEVICE_LOST", "The logical or physical device has been lost", driver.ResultDeviceRemoved},
	vk.ErrorMemoryMapFailed:       {"VK_ERROR_MEMORY_MAP_FAILED", "Mapping of a memory object has failed", driver.ResultOutOfMemory},
	vk.ErrorLayerNotPresent:       {"VK_ERROR_LAYER_NOT_PRESENT", "A requested layer is not present or could not be loaded", driver.ResultNotInstalled},
	vk.ErrorExtensionNotPresent:   {"VK_ERROR_EXTENSION_NOT_PRESENT", "A requested extension is not supported", driver.ResultUnsupported},
	vk.ErrorFeatureNotPresent:     {"VK_ERROR_FEATURE_NOT_PRESENT", "A requested feature is not supported", driver.ResultUnsupported},
	vk.ErrorIncompatibleDriver:    {"VK_ERROR_INCOMPATIBLE_DRIVER", "The requested version of Vulkan is not supported by the driver", driver.ResultNotInstalled},
	vk.ErrorTooManyObjects:        {"VK_ERROR_TOO_MANY_OBJECTS", "Too many objects of the type have already been created", driver.ResultOutOfMemory},
	vk.ErrorFormatNotSupported:    {"VK_ERROR_FORMAT_NOT_SUPPORTED", "A requested format is not supported on this device", driver.ResultUnsupported},
	vk.ErrorFragmentedPool:        {"VK_ERROR_FRAGMENTED_POOL", "A pool allocation has failed due to fragmentation", driver.ResultOutOfMemory},
	vk.ErrorSurfaceLost:           {"VK_ERROR_SURFACE_LOST_KHR", "A surface is no longer available", driver.ResultDeviceRemoved},
	vk.ErrorNativeWindowInUse:     {"VK_ERROR_NATIVE_WINDOW_IN_USE_KHR", "The requested window is already in use", driver.ResultInvalidCall},
	vk.ErrorOutOfDate:             {"VK_ERROR_OUT_OF_DATE_KHR", "The surface changed and the swapchain must be recreated", driver.ResultInvalidCall},
	vk.ErrorIncompatibleDisplay:   {"VK_ERROR_INCOMPATIBLE_DISPLAY_KHR", "The display is incompatible with the swapchain", driver.ResultUnsupported},
	vk.ErrorInvalidShaderNv:       {"VK_ERROR_INVALID_SHADER_NV", "One or more shaders failed to compile or link", driver.ResultInvalidArg},
	vk.ErrorOutOfPoolMemory:       {"VK_ERROR_OUT_OF_POOL_MEMORY", "A pool memory allocation has failed", driver.ResultOutOfMemory},
	vk.ErrorInvalidExternalHandle: {"VK_ERROR_INVALID_EXTERNAL_HANDLE", "An external handle is not a valid handle of the specified type", driver.ResultInvalidArg},
	vk.ErrorFragmentation:         {"VK_ERROR_FRAGMENTATION", "A descriptor pool creation has failed due to fragmentation", driver.ResultOutOfMemory},
	vk.ErrorUnknown:               {"VK_ERROR_UNKNOWN", "An unknown error has occurred", driver.ResultFail},
}

// VulkanResultString names result, with its description when getExtended is set.
func VulkanResultString(result vk.Result, getExtended bool) string {
	info, ok := resultInfos[result]
	if !ok {
		return fmt.Sprintf("VkResult(%d)", int32(result))
	}
	if getExtended {
		return info.name + " " + info.detail
	}
	return info.name
}

// VulkanResultIsSuccess reports whether result is a success code. Unknown
// negative values are errors.
func VulkanResultIsSuccess(result vk.Result) bool {
	if info, ok := resultInfos[result]; ok {
		return info.code == driver.ResultOK
	}
	return result >= 0
}

// checkResult turns a failed Vulkan call into a *driver.Error and logs it.
func checkResult(op string, result vk.Result) error {
	if VulkanResultIsSuccess(result) {
		return nil
	}
	code := driver.ResultFail
	if info, ok := resultInfos[result]; ok {
		code = info.code
	}
	err := &driver.Error{Op: op, Code: code, Detail: VulkanResultString(result, true)}
	core.LogError("%s", err)
	return err
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = VulkanSafeString(list[i])
	}
	return out
}

// cString reads a NUL terminated name out of a fixed size Vulkan array.
func cString(arr []byte) string {
	for i, b := range arr {
		if b == 0 {
			return string(arr[:i])
		}
	}
	return string(arr)
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}
