// Package renderer is the engine-facing side of the GPU layer. A RenderDevice
// owns the native device and every cache built on top of it: the object
// registry, raster states, compiled shaders, input layouts and the dynamic
// buffer pool. Bind calls only record engine state; the native pipeline is
// brought up to date lazily right before each draw.
//
// A RenderDevice is not safe for concurrent use. All calls must come from the
// goroutine that called InitDevice, which the platform layer pins to its OS
// thread when a window is attached.
package renderer

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/containers"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/shader"
)

// MaxVertexBufferSlots is the number of vertex buffer bind points tracked.
const MaxVertexBufferSlots = 16

type vertexBinding struct {
	buffer  driver.Buffer
	dynamic *dynamicSlot
	stride  uint32
	offset  uint32
}

type RenderDevice struct {
	cfg      *config.Config
	lookup   func(driver.DriverType) (driver.Driver, error)
	compiler shader.Compiler
	window   interface{}

	driverType driver.DriverType
	device     driver.Device
	context    driver.Context
	swapchain  driver.SwapChain
	width      uint32
	height     uint32
	generation uint64

	registry       *Registry
	raster         rasterCache
	rasterMode     rasterKey
	forceWireframe bool
	backBufferView driver.RenderTargetView
	defaultSampler driver.SamplerState

	vertexShaders   map[uuid.UUID]*VertexShader
	fragmentShaders map[uuid.UUID]*FragmentShader
	layouts         map[uint32][]*inputLayoutEntry

	dynamic       *containers.SlotTable[uint32, *dynamicSlot]
	rotation      uint32
	rotationCount uint32

	pipeline      PipelineState
	dirty         bool
	boundVS       *VertexShader
	boundFS       *FragmentShader
	boundDesc     *metadata.VertexFormat
	boundDescHash uint64
	vertexSlots   [MaxVertexBufferSlots]vertexBinding
}

type Option func(*RenderDevice)

// WithWindow attaches the platform window the hardware driver presents to.
func WithWindow(window interface{}) Option {
	return func(rd *RenderDevice) {
		rd.window = window
	}
}

// WithCompiler replaces the WGSL compiler.
func WithCompiler(c shader.Compiler) Option {
	return func(rd *RenderDevice) {
		rd.compiler = c
	}
}

// WithDriverLookup replaces the driver registry lookup used by InitDevice.
func WithDriverLookup(lookup func(driver.DriverType) (driver.Driver, error)) Option {
	return func(rd *RenderDevice) {
		rd.lookup = lookup
	}
}

func NewRenderDevice(cfg *config.Config, opts ...Option) *RenderDevice {
	if cfg == nil {
		cfg = config.Default()
	}
	rd := &RenderDevice{
		cfg:             cfg,
		lookup:          driver.Lookup,
		compiler:        shader.NagaCompiler{},
		registry:        NewRegistry(cfg.Device.Debug),
		forceWireframe:  cfg.Device.ForceWireframe,
		vertexShaders:   make(map[uuid.UUID]*VertexShader),
		fragmentShaders: make(map[uuid.UUID]*FragmentShader),
		layouts:         make(map[uint32][]*inputLayoutEntry),
		width:           cfg.Window.Width,
		height:          cfg.Window.Height,
		rasterMode:      rasterKey{metadata.FillSolid, metadata.CullBack, metadata.ScissorDisabled},
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// Registry exposes the object registry for diagnostics.
func (rd *RenderDevice) Registry() *Registry {
	return rd.registry
}

// SetObjectTracking toggles the object registry at runtime.
func (rd *RenderDevice) SetObjectTracking(enabled bool) {
	rd.registry.SetEnabled(enabled)
}

// Native returns the native objects, nil before InitDevice and after CleanupDevice.
func (rd *RenderDevice) Native() (driver.Device, driver.Context, driver.SwapChain) {
	return rd.device, rd.context, rd.swapchain
}

func (rd *RenderDevice) DriverType() driver.DriverType {
	return rd.driverType
}

func (rd *RenderDevice) Size() (uint32, uint32) {
	return rd.width, rd.height
}

// Rotation is the current dynamic buffer rotation index.
func (rd *RenderDevice) Rotation() uint32 {
	return rd.rotation
}
