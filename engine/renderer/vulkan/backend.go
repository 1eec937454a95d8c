// Package vulkan implements the hardware driver on top of Vulkan. It
// registers itself as driver.Hardware and needs a platform window to
// present into.
package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

func init() {
	driver.Register(&Driver{})
}

/**
 * @brief What the driver needs from the platform window. *glfw.Window
 * satisfies it.
 */
type Window interface {
	GetRequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

type Driver struct{}

func (d *Driver) Type() driver.DriverType {
	return driver.Hardware
}

func (d *Driver) Name() string {
	return "vulkan"
}

func (d *Driver) Open(params driver.CreateParams) (driver.Device, driver.Context, driver.SwapChain, error) {
	const op = "Open"
	window, ok := params.Window.(Window)
	if !ok {
		return nil, nil, nil, driver.Errorf(op, driver.ResultUnsupported, "no window to present into")
	}
	if params.BufferCount == 0 {
		return nil, nil, nil, driver.Errorf(op, driver.ResultInvalidArg, "buffer count is zero")
	}
	if params.Width == 0 || params.Height == 0 {
		return nil, nil, nil, driver.Errorf(op, driver.ResultInvalidArg, "swapchain size %dx%d", params.Width, params.Height)
	}
	format := params.Format
	if format == driver.FormatUnknown {
		format = driver.FormatB8G8R8A8Unorm
	}
	preferred, ok := toVkFormat(format)
	if !ok {
		return nil, nil, nil, driver.Errorf(op, driver.ResultUnsupported, "back buffer format %s", format)
	}

	vc := &VulkanContext{FramebufferWidth: params.Width, FramebufferHeight: params.Height}
	if err := createInstance(vc, window, params.AppName, params.Debug); err != nil {
		destroyContext(vc)
		return nil, nil, nil, err
	}
	if err := openDevice(vc, window, params, preferred); err != nil {
		destroyContext(vc)
		return nil, nil, nil, err
	}

	dev, err := newDevice(vc)
	if err != nil {
		destroyContext(vc)
		return nil, nil, nil, err
	}
	ctx, err := newContext(dev)
	if err != nil {
		dev.Release()
		return nil, nil, nil, err
	}
	sc := newSwapChain(dev, params.BufferCount, params.VSync)
	core.LogInfo("vulkan device opened: %dx%d, %d back buffers", vc.Swapchain.Extent.Width, vc.Swapchain.Extent.Height, params.BufferCount)
	return dev, ctx, sc, nil
}

func createInstance(vc *VulkanContext, window Window, appName string, debug bool) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return driver.Errorf("Open", driver.ResultNotInstalled, "GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return driver.Errorf("Open", driver.ResultNotInstalled, "failed to initialize vk: %v", err)
	}

	// Negative viewport heights need 1.1.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Anima GFX"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := append([]string{}, window.GetRequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}

	var layers []string
	if debug {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		if hasInstanceLayer("VK_LAYER_KHRONOS_validation") {
			layers = append(layers, "VK_LAYER_KHRONOS_validation")
		} else {
			core.LogWarn("Validation layer VK_LAYER_KHRONOS_validation is missing, continuing without it.")
		}
	}
	for _, e := range extensions {
		core.LogDebug("Required extension: %s", e)
	}
	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := checkResult("vkCreateInstance", vk.CreateInstance(&createInfo, vc.Allocator, &instance)); err != nil {
		return err
	}
	vc.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return driver.Errorf("Open", driver.ResultFail, "vk.InitInstance: %v", err)
	}
	core.LogInfo("Vulkan Instance created.")

	if debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := checkResult("vkCreateDebugReportCallback", vk.CreateDebugReportCallback(instance, &debugCreateInfo, vc.Allocator, &dbg)); err != nil {
			core.LogWarn("Continuing without the Vulkan debugger.")
		} else {
			vc.debugMessenger = dbg
			core.LogDebug("Vulkan debugger created.")
		}
	}
	return nil
}

func hasInstanceLayer(name string) bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, layers) != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if cString(layers[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

// openDevice creates the surface, the logical device and everything the
// frame loop needs.
func openDevice(vc *VulkanContext, window Window, params driver.CreateParams, preferred vk.Format) error {
	surface, err := window.CreateWindowSurface(vc.Instance, nil)
	if err != nil {
		return driver.Errorf("Open", driver.ResultFail, "surface creation failed: %v", err)
	}
	vc.Surface = vk.SurfaceFromPointer(surface)

	if err := DeviceCreate(vc); err != nil {
		return err
	}
	minImages := params.BufferCount
	if minImages < 2 {
		minImages = 2
	}
	sc, err := SwapchainCreate(vc, params.Width, params.Height, minImages, preferred, params.VSync)
	if err != nil {
		return err
	}
	vc.Swapchain = sc

	rp, err := RenderpassCreate(vc, sc.ImageFormat.Format, 0, 0, float32(sc.Extent.Width), float32(sc.Extent.Height))
	if err != nil {
		return err
	}
	vc.MainRenderpass = rp
	if err := sc.regenerateFramebuffers(vc, rp); err != nil {
		return err
	}
	return createSyncObjects(vc)
}

// destroyContext tears down whatever part of vc was created, in reverse order.
func destroyContext(vc *VulkanContext) {
	if vc.Device != nil && vc.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vc.logical())
		destroySyncObjects(vc)
		if vc.Swapchain != nil {
			vc.Swapchain.SwapchainDestroy(vc)
			vc.Swapchain = nil
		}
		if vc.MainRenderpass != nil {
			vc.MainRenderpass.RenderpassDestroy(vc)
			vc.MainRenderpass = nil
		}
		core.LogDebug("Destroying Vulkan device...")
		DeviceDestroy(vc)
	}
	if vc.Surface != vk.NullSurface {
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}
	if vc.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}
	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
