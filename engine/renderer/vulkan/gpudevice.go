package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"golang.org/x/exp/slices"
)

type retiredWork struct {
	frame uint64
	fn    func(vc *VulkanContext)
}

/**
 * @brief The driver.Device of the Vulkan driver. It owns the VulkanContext
 * and tears it down when its last reference goes.
 */
type Device struct {
	object
	vc      *VulkanContext
	nextID  uint64
	live    map[uint64]*object
	layouts *VulkanDescriptorLayouts
	pipes   *pipelineCache
	ctx     *Context
	sc      *SwapChain

	// submitted counts frames handed to the queue; completed is the newest
	// one whose fence has been waited on.
	submitted uint64
	completed uint64
	slotFrame [maxFramesInFlight]uint64
	retired   []retiredWork
}

func newDevice(vc *VulkanContext) (*Device, error) {
	d := &Device{
		vc:    vc,
		live:  make(map[uint64]*object),
		pipes: newPipelineCache(),
	}
	d.object = object{id: 0, kind: driver.KindDevice, refs: 1}
	layouts, err := DescriptorLayoutsCreate(vc)
	if err != nil {
		return nil, err
	}
	d.layouts = layouts
	d.object.onDestroy = d.shutdown
	return d, nil
}

func (d *Device) track(o *object, kind driver.ObjectKind) {
	d.nextID++
	o.dev = d
	o.id = d.nextID
	o.kind = kind
	o.refs = 1
	d.live[o.id] = o
}

func (d *Device) forget(o *object) {
	delete(d.live, o.id)
}

func (d *Device) ReportLiveObjects() []driver.LiveObject {
	out := make([]driver.LiveObject, 0, len(d.live))
	for _, o := range d.live {
		out = append(out, driver.LiveObject{Kind: o.kind, ID: o.id, Refs: o.refs})
	}
	slices.SortFunc(out, func(a, b driver.LiveObject) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// recordingFrame is the number the frame currently being recorded will be
// submitted under.
func (d *Device) recordingFrame() uint64 {
	return d.submitted + 1
}

// retire runs fn once no frame that may have used the object is in flight.
func (d *Device) retire(fn func(vc *VulkanContext)) {
	if d.vc == nil {
		return
	}
	d.retired = append(d.retired, retiredWork{frame: d.recordingFrame(), fn: fn})
}

// frameComplete is called after the fence of slot has been waited on.
func (d *Device) frameComplete(slot uint32) {
	if f := d.slotFrame[slot]; f > d.completed {
		d.completed = f
	}
	kept := d.retired[:0]
	for _, r := range d.retired {
		if r.frame <= d.completed {
			r.fn(d.vc)
			continue
		}
		kept = append(kept, r)
	}
	d.retired = kept
}

func (d *Device) frameSubmitted(slot uint32) {
	d.submitted++
	d.slotFrame[slot] = d.submitted
}

// drain waits for the GPU and runs every retired destruction.
func (d *Device) drain() {
	if d.vc == nil {
		return
	}
	vk.DeviceWaitIdle(d.vc.logical())
	d.completed = d.submitted
	for _, r := range d.retired {
		r.fn(d.vc)
	}
	d.retired = nil
}

func (d *Device) shutdown() {
	if n := len(d.live); n > 0 {
		core.LogWarn("vulkan: device destroyed with %d dangling child objects", n)
	}
	if d.vc == nil {
		return
	}
	d.drain()
	d.pipes.destroy(d.vc)
	d.layouts.Destroy(d.vc)
	destroyContext(d.vc)
	d.vc = nil
}

func invalidArg(op string, format string, args ...interface{}) error {
	return driver.Errorf(op, driver.ResultInvalidArg, format, args...)
}

func (d *Device) CreateBuffer(desc driver.BufferDesc, initial *driver.SubresourceData) (driver.Buffer, error) {
	const op = "CreateBuffer"
	if desc.ByteWidth == 0 {
		return nil, invalidArg(op, "zero byte width")
	}
	if desc.BindFlags&driver.BindConstantBuffer != 0 && desc.ByteWidth%constantAlignment != 0 {
		return nil, invalidArg(op, "constant buffer size %d is not a multiple of %d", desc.ByteWidth, constantAlignment)
	}
	if desc.Usage == driver.UsageDynamic && desc.CPUAccess&driver.CPUAccessWrite == 0 {
		return nil, invalidArg(op, "dynamic buffer without CPU write access")
	}
	if desc.Usage == driver.UsageImmutable && initial == nil {
		return nil, invalidArg(op, "immutable buffer without initial data")
	}
	if initial != nil && uint32(len(initial.Data)) > desc.ByteWidth {
		return nil, invalidArg(op, "initial data of %d bytes exceeds %d", len(initial.Data), desc.ByteWidth)
	}
	b := &Buffer{desc: desc}
	b.dev = d
	if b.onGPU() {
		if err := b.rename(); err != nil {
			return nil, err
		}
		if initial != nil {
			b.current.gpu.LoadData(0, initial.Data)
		}
	} else {
		b.shadow = make([]byte, desc.ByteWidth)
		if initial != nil {
			copy(b.shadow, initial.Data)
		}
	}
	d.track(&b.object, driver.KindBuffer)
	b.onDestroy = b.destroy
	return b, nil
}

func (d *Device) CreateTexture2D(desc driver.Texture2DDesc, initial []driver.SubresourceData) (driver.Texture2D, error) {
	const op = "CreateTexture2D"
	if desc.Width == 0 || desc.Height == 0 {
		return nil, invalidArg(op, "empty size %dx%d", desc.Width, desc.Height)
	}
	format, ok := toVkFormat(desc.Format)
	if !ok {
		return nil, driver.Errorf(op, driver.ResultUnsupported, "format %s", desc.Format)
	}
	if desc.BindFlags&(driver.BindRenderTarget|driver.BindDepthStencil) != 0 {
		return nil, driver.Errorf(op, driver.ResultUnsupported, "offscreen targets")
	}
	if desc.Usage == driver.UsageImmutable && len(initial) == 0 {
		return nil, invalidArg(op, "immutable texture without initial data")
	}

	pitch := desc.Width * desc.Format.Size()
	var pixels []byte
	if len(initial) > 0 {
		src := initial[0]
		rowPitch := src.RowPitch
		if rowPitch == 0 {
			rowPitch = pitch
		}
		if rowPitch < pitch || uint64(len(src.Data)) < uint64(rowPitch)*uint64(desc.Height-1)+uint64(pitch) {
			return nil, invalidArg(op, "initial data of %d bytes with pitch %d is too small", len(src.Data), rowPitch)
		}
		pixels = make([]byte, pitch*desc.Height)
		for y := uint32(0); y < desc.Height; y++ {
			copy(pixels[y*pitch:(y+1)*pitch], src.Data[y*rowPitch:y*rowPitch+pitch])
		}
	}

	image, err := ImageCreate(d.vc, desc.Width, desc.Height, format, vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageSampledBit|vk.ImageUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), true,
		vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return nil, err
	}
	if err := d.upload(image, pixels); err != nil {
		image.ImageDestroy(d.vc)
		return nil, err
	}

	t := &Texture2D{desc: desc, image: image}
	d.track(&t.object, driver.KindTexture2D)
	t.onDestroy = func() {
		d.retire(func(vc *VulkanContext) { image.ImageDestroy(vc) })
	}
	return t, nil
}

// upload fills image through a staging buffer and leaves it ready for
// sampling. A nil pixels only transitions the layout.
func (d *Device) upload(image *VulkanImage, pixels []byte) error {
	var staging *VulkanBuffer
	if len(pixels) > 0 {
		var err error
		staging, err = BufferCreate(d.vc, uint64(len(pixels)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
		if err != nil {
			return err
		}
		defer staging.Destroy(d.vc)
		staging.LoadData(0, pixels)
	}
	var recordErr error
	err := runSingleUse(d.vc, func(cb *VulkanCommandBuffer) {
		if staging == nil {
			recordErr = image.TransitionLayout(cb, vk.ImageLayoutShaderReadOnlyOptimal)
			return
		}
		if recordErr = image.TransitionLayout(cb, vk.ImageLayoutTransferDstOptimal); recordErr != nil {
			return
		}
		image.CopyFromBuffer(cb, staging.Handle)
		recordErr = image.TransitionLayout(cb, vk.ImageLayoutShaderReadOnlyOptimal)
	})
	if recordErr != nil {
		return recordErr
	}
	return err
}

func (d *Device) asTexture(op string, tex driver.Texture2D) (*Texture2D, error) {
	t, ok := tex.(*Texture2D)
	if !ok || !t.alive() || t.dev != d {
		return nil, invalidArg(op, "texture does not belong to this device")
	}
	return t, nil
}

func (d *Device) CreateShaderResourceView(tex driver.Texture2D) (driver.ShaderResourceView, error) {
	const op = "CreateShaderResourceView"
	t, err := d.asTexture(op, tex)
	if err != nil {
		return nil, err
	}
	if t.desc.BindFlags&driver.BindShaderResource == 0 {
		return nil, invalidArg(op, "texture was not created with BindShaderResource")
	}
	if t.backBuffer {
		return nil, driver.Errorf(op, driver.ResultUnsupported, "sampling a back buffer")
	}
	t.AddRef()
	v := &ShaderResourceView{tex: t}
	v.onDestroy = func() { t.Release() }
	d.track(&v.object, driver.KindShaderResourceView)
	return v, nil
}

func (d *Device) CreateRenderTargetView(tex driver.Texture2D) (driver.RenderTargetView, error) {
	const op = "CreateRenderTargetView"
	t, err := d.asTexture(op, tex)
	if err != nil {
		return nil, err
	}
	if !t.backBuffer {
		return nil, driver.Errorf(op, driver.ResultUnsupported, "only back buffers can be render targets")
	}
	t.AddRef()
	v := &RenderTargetView{tex: t}
	v.onDestroy = func() { t.Release() }
	d.track(&v.object, driver.KindRenderTargetView)
	return v, nil
}

func (d *Device) shaderDestroyer(stage *VulkanShaderStage, id func() uint64) func() {
	return func() {
		objectID := id()
		d.retire(func(vc *VulkanContext) {
			d.pipes.evict(vc, objectID)
			stage.Destroy(vc)
		})
	}
}

func (d *Device) CreateVertexShader(bytecode []byte) (driver.VertexShader, error) {
	stage, err := NewShaderModule(d.vc, "CreateVertexShader", bytecode, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, err
	}
	s := &VertexShader{bytecode: slices.Clone(bytecode), stage: stage}
	d.track(&s.object, driver.KindVertexShader)
	s.onDestroy = d.shaderDestroyer(stage, s.ID)
	return s, nil
}

func (d *Device) CreatePixelShader(bytecode []byte) (driver.PixelShader, error) {
	stage, err := NewShaderModule(d.vc, "CreatePixelShader", bytecode, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, err
	}
	s := &PixelShader{bytecode: slices.Clone(bytecode), stage: stage}
	d.track(&s.object, driver.KindPixelShader)
	s.onDestroy = d.shaderDestroyer(stage, s.ID)
	return s, nil
}

// validateElements applies the element rules shared with the software drivers.
func validateElements(op string, elements []driver.InputElementDesc) error {
	if len(elements) == 0 || len(elements) > maxInputElements {
		return invalidArg(op, "%d elements", len(elements))
	}
	seen := map[string]struct{}{}
	for _, e := range elements {
		if e.SemanticName == "" {
			return invalidArg(op, "element without semantic name")
		}
		key := fmt.Sprintf("%s%d", e.SemanticName, e.SemanticIndex)
		if _, dup := seen[key]; dup {
			return invalidArg(op, "duplicate semantic %s", key)
		}
		seen[key] = struct{}{}
		if e.InputSlot >= MaxVertexBufferSlots {
			return invalidArg(op, "element %s reads slot %d", key, e.InputSlot)
		}
		if e.InputSlotClass == driver.InputPerVertexData && e.InstanceDataStepRate != 0 {
			return invalidArg(op, "per-vertex element %s has a step rate", key)
		}
		if _, ok := toVkFormat(e.Format); !ok {
			return driver.Errorf(op, driver.ResultUnsupported, "element %s format %s", key, e.Format)
		}
	}
	return nil
}

func (d *Device) CreateInputLayout(elements []driver.InputElementDesc, signature []byte) (driver.InputLayout, error) {
	const op = "CreateInputLayout"
	if err := validateElements(op, elements); err != nil {
		return nil, err
	}
	params, err := driver.DecodeSignature(signature)
	if err != nil {
		return nil, invalidArg(op, "bad input signature: %v", err)
	}
	if err := driver.MatchSignature(elements, params); err != nil {
		return nil, invalidArg(op, "%v", err)
	}
	for _, e := range elements {
		if e.InputSlotClass == driver.InputPerInstanceData && e.InstanceDataStepRate > 1 {
			core.LogWarn("vulkan: element %s%d steps every %d instances, stepping every instance instead",
				e.SemanticName, e.SemanticIndex, e.InstanceDataStepRate)
		}
	}
	l := &InputLayout{
		elements: slices.Clone(elements),
		offsets:  driver.ResolveElementOffsets(elements),
	}
	d.track(&l.object, driver.KindInputLayout)
	l.onDestroy = func() {
		id := l.id
		d.retire(func(vc *VulkanContext) { d.pipes.evict(vc, id) })
	}
	return l, nil
}

func (d *Device) CreateRasterizerState(desc driver.RasterizerDesc) (driver.RasterizerState, error) {
	const op = "CreateRasterizerState"
	if desc.FillMode != driver.FillSolid && desc.FillMode != driver.FillWireframe {
		return nil, invalidArg(op, "fill mode %d", desc.FillMode)
	}
	if desc.CullMode < driver.CullNone || desc.CullMode > driver.CullBack {
		return nil, invalidArg(op, "cull mode %d", desc.CullMode)
	}
	s := &RasterizerState{desc: desc}
	d.track(&s.object, driver.KindRasterizerState)
	return s, nil
}

func (d *Device) CreateSamplerState(desc driver.SamplerDesc) (driver.SamplerState, error) {
	const op = "CreateSamplerState"
	for _, a := range []driver.TextureAddressMode{desc.AddressU, desc.AddressV, desc.AddressW} {
		if a < driver.AddressWrap || a > driver.AddressClamp {
			return nil, invalidArg(op, "address mode %d", a)
		}
	}
	if desc.MinLOD > desc.MaxLOD {
		return nil, invalidArg(op, "min LOD %f above max LOD %f", desc.MinLOD, desc.MaxLOD)
	}
	handle, err := d.createSampler(desc)
	if err != nil {
		return nil, err
	}
	s := &SamplerState{desc: desc, handle: handle}
	d.track(&s.object, driver.KindSamplerState)
	s.onDestroy = func() {
		d.retire(func(vc *VulkanContext) {
			vk.DestroySampler(vc.logical(), handle, vc.Allocator)
		})
	}
	return s, nil
}

func (d *Device) createSampler(desc driver.SamplerDesc) (vk.Sampler, error) {
	minFilter, magFilter, mip := toVkFilter(desc.Filter)
	createInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               magFilter,
		MinFilter:               minFilter,
		MipmapMode:              mip,
		AddressModeU:            toVkAddressMode(desc.AddressU),
		AddressModeV:            toVkAddressMode(desc.AddressV),
		AddressModeW:            toVkAddressMode(desc.AddressW),
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  desc.MinLOD,
		MaxLod:                  desc.MaxLOD,
		BorderColor:             vk.BorderColorFloatOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	if desc.MaxAnisotropy > 1 && d.vc.Device.Features.SamplerAnisotropy == vk.True {
		createInfo.AnisotropyEnable = vk.True
		createInfo.MaxAnisotropy = float32(desc.MaxAnisotropy)
		if limit := d.vc.Device.Properties.Limits.MaxSamplerAnisotropy; createInfo.MaxAnisotropy > limit {
			createInfo.MaxAnisotropy = limit
		}
	}
	var handle vk.Sampler
	if err := checkResult("vkCreateSampler", vk.CreateSampler(d.vc.logical(), &createInfo, d.vc.Allocator, &handle)); err != nil {
		return nil, err
	}
	return handle, nil
}
