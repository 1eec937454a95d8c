package vulkan

import (
	"runtime"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	SwapchainSupport   VulkanSwapchainSupportInfo
	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
	DiscreteGPU          bool
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
}

func (q VulkanPhysicalDeviceQueueFamilyInfo) meets(req *VulkanPhysicalDeviceRequirements) bool {
	return (!req.Graphics || q.GraphicsFamilyIndex >= 0) && (!req.Present || q.PresentFamilyIndex >= 0)
}

func deviceRequirements(discrete bool) VulkanPhysicalDeviceRequirements {
	req := VulkanPhysicalDeviceRequirements{
		Graphics:             true,
		Present:              true,
		DiscreteGPU:          discrete,
		DeviceExtensionNames: []string{vk.KhrSwapchainExtensionName},
	}
	if runtime.GOOS == "darwin" {
		req.DiscreteGPU = false
	}
	return req
}

// DeviceCreate picks a physical device, preferring a discrete GPU, and
// creates the logical device, its queues and the graphics command pool.
func DeviceCreate(context *VulkanContext) error {
	context.Device = &VulkanDevice{GraphicsQueueIndex: -1, PresentQueueIndex: -1}
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}
	dev := context.Device

	core.LogInfo("Creating logical device...")

	// NOTE: Do not create additional queues for shared indices.
	indices := []uint32{uint32(dev.GraphicsQueueIndex)}
	if dev.PresentQueueIndex != dev.GraphicsQueueIndex {
		indices = append(indices, uint32(dev.PresentQueueIndex))
	}
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i, index := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if dev.Features.SamplerAnisotropy == vk.True {
		deviceFeatures.SamplerAnisotropy = vk.True
	}
	if dev.Features.FillModeNonSolid == vk.True {
		deviceFeatures.FillModeNonSolid = vk.True
	} else {
		core.LogWarn("Device has no fillModeNonSolid, wireframe draws fill.")
	}
	if dev.Features.DepthClamp == vk.True {
		deviceFeatures.DepthClamp = vk.True
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if hasDeviceExtension(dev.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logical vk.Device
	if err := checkResult("vkCreateDevice", vk.CreateDevice(dev.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logical)); err != nil {
		return err
	}
	dev.LogicalDevice = logical
	core.LogInfo("Logical device created.")

	var graphics, present vk.Queue
	vk.GetDeviceQueue(logical, uint32(dev.GraphicsQueueIndex), 0, &graphics)
	vk.GetDeviceQueue(logical, uint32(dev.PresentQueueIndex), 0, &present)
	dev.GraphicsQueue, dev.PresentQueue = graphics, present
	core.LogDebug("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(dev.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := checkResult("vkCreateCommandPool", vk.CreateCommandPool(logical, &poolCreateInfo, context.Allocator, &pool)); err != nil {
		return err
	}
	dev.GraphicsCommandPool = pool
	core.LogDebug("Graphics command pool created.")
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	dev := context.Device
	if dev == nil {
		return
	}
	dev.GraphicsQueue = nil
	dev.PresentQueue = nil

	if dev.GraphicsCommandPool != vk.NullCommandPool {
		core.LogDebug("Destroying command pools...")
		vk.DestroyCommandPool(dev.LogicalDevice, dev.GraphicsCommandPool, context.Allocator)
		dev.GraphicsCommandPool = vk.NullCommandPool
	}

	if dev.LogicalDevice != nil {
		core.LogDebug("Destroying logical device...")
		vk.DestroyDevice(dev.LogicalDevice, context.Allocator)
		dev.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	dev.PhysicalDevice = nil
	dev.SwapchainSupport = VulkanSwapchainSupportInfo{}
	dev.GraphicsQueueIndex = -1
	dev.PresentQueueIndex = -1
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	// Surface capabilities
	if err := checkResult("vkGetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &supportInfo.Capabilities)); err != nil {
		return err
	}
	supportInfo.Capabilities.Deref()
	supportInfo.Capabilities.CurrentExtent.Deref()
	supportInfo.Capabilities.MinImageExtent.Deref()
	supportInfo.Capabilities.MaxImageExtent.Deref()

	// Surface formats
	var formatCount uint32
	if err := checkResult("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil)); err != nil {
		return err
	}
	supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
	if formatCount != 0 {
		if err := checkResult("vkGetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats)); err != nil {
			return err
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	// Present modes
	var modeCount uint32
	if err := checkResult("vkGetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, nil)); err != nil {
		return err
	}
	supportInfo.PresentModes = make([]vk.PresentMode, modeCount)
	if modeCount != 0 {
		if err := checkResult("vkGetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &modeCount, supportInfo.PresentModes)); err != nil {
			return err
		}
	}
	return nil
}

// SelectPhysicalDevice tries the discrete GPUs first and settles for any
// device meeting the requirements otherwise.
func SelectPhysicalDevice(context *VulkanContext) error {
	const op = "SelectPhysicalDevice"
	var physicalDeviceCount uint32
	if err := checkResult("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil)); err != nil {
		return err
	}
	if physicalDeviceCount == 0 {
		return driver.Errorf(op, driver.ResultNotFound, "no devices which support Vulkan were found")
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if err := checkResult("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices)); err != nil {
		return err
	}

	for _, discrete := range []bool{true, false} {
		requirements := deviceRequirements(discrete)
		for _, candidate := range physicalDevices {
			var properties vk.PhysicalDeviceProperties
			vk.GetPhysicalDeviceProperties(candidate, &properties)
			properties.Deref()
			properties.Limits.Deref()

			var features vk.PhysicalDeviceFeatures
			vk.GetPhysicalDeviceFeatures(candidate, &features)
			features.Deref()

			var support VulkanSwapchainSupportInfo
			queueInfo, ok := PhysicalDeviceMeetsRequirements(candidate, context.Surface, &properties, &features, &requirements, &support)
			if !ok {
				continue
			}

			var memory vk.PhysicalDeviceMemoryProperties
			vk.GetPhysicalDeviceMemoryProperties(candidate, &memory)
			memory.Deref()

			logDeviceInfo(&properties, &memory)

			dev := context.Device
			dev.PhysicalDevice = candidate
			dev.GraphicsQueueIndex = queueInfo.GraphicsFamilyIndex
			dev.PresentQueueIndex = queueInfo.PresentFamilyIndex
			dev.SwapchainSupport = support
			// Keep a copy of properties, features and memory info for later use.
			dev.Properties = properties
			dev.Features = features
			dev.Memory = memory
			core.LogInfo("Physical device selected.")
			return nil
		}
	}
	return driver.Errorf(op, driver.ResultNotFound, "no physical devices meet the requirements")
}

func logDeviceInfo(properties *vk.PhysicalDeviceProperties, memory *vk.PhysicalDeviceMemoryProperties) {
	core.LogInfo("Selected device: '%s'.", cString(properties.DeviceName[:]))
	switch properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}
	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(properties.DriverVersion).Major(),
		vk.Version(properties.DriverVersion).Minor(),
		vk.Version(properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(properties.ApiVersion).Major(),
		vk.Version(properties.ApiVersion).Minor(),
		vk.Version(properties.ApiVersion).Patch(),
	)
	for j := uint32(0); j < memory.MemoryHeapCount; j++ {
		memory.MemoryHeaps[j].Deref()
		memorySizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
}

func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties, features *vk.PhysicalDeviceFeatures, requirements *VulkanPhysicalDeviceRequirements, outSwapchainSupport *VulkanSwapchainSupportInfo) (VulkanPhysicalDeviceQueueFamilyInfo, bool) {
	queueInfo := VulkanPhysicalDeviceQueueFamilyInfo{GraphicsFamilyIndex: -1, PresentFamilyIndex: -1}
	name := cString(properties.DeviceName[:])

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		core.LogDebug("Device '%s' is not a discrete GPU, and one is required. Skipping.", name)
		return queueInfo, false
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if queueInfo.GraphicsFamilyIndex < 0 && vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			queueInfo.GraphicsFamilyIndex = int32(i)
		}
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &supportsPresent); res != vk.Success {
			return queueInfo, false
		}
		// Prefer a family that does both.
		if supportsPresent == vk.True && (queueInfo.PresentFamilyIndex < 0 || int32(i) == queueInfo.GraphicsFamilyIndex) {
			queueInfo.PresentFamilyIndex = int32(i)
		}
	}

	core.LogDebug("Graphics %d | Present %d | %s", queueInfo.GraphicsFamilyIndex, queueInfo.PresentFamilyIndex, name)
	if !queueInfo.meets(requirements) {
		return queueInfo, false
	}

	if err := DeviceQuerySwapchainSupport(device, surface, outSwapchainSupport); err != nil {
		return queueInfo, false
	}
	if len(outSwapchainSupport.Formats) < 1 || len(outSwapchainSupport.PresentModes) < 1 {
		core.LogDebug("Required swapchain support not present, skipping device.")
		return queueInfo, false
	}

	for _, ext := range requirements.DeviceExtensionNames {
		if !hasDeviceExtension(device, ext) {
			core.LogDebug("Required extension not found: '%s', skipping device.", ext)
			return queueInfo, false
		}
	}
	if requirements.SamplerAnisotropy && features.SamplerAnisotropy == vk.False {
		core.LogDebug("Device does not support samplerAnisotropy, skipping.")
		return queueInfo, false
	}
	return queueInfo, true
}

func hasDeviceExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if cString(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}
