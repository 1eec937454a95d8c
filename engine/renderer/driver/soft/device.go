package soft

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"golang.org/x/exp/slices"
)

const (
	spirvMagic        uint32 = 0x07230203
	maxInputElements         = 16
	constantAlignment        = 16
)

type Device struct {
	object
	validate bool
	nextID   uint64
	live     map[uint64]*object
	// Created counts successful creations per object kind.
	Created map[driver.ObjectKind]int
	// DanglingAtRelease is the number of child objects still alive when the
	// device itself was destroyed.
	DanglingAtRelease int
}

func newDevice(validate bool) *Device {
	d := &Device{
		validate: validate,
		live:     make(map[uint64]*object),
		Created:  make(map[driver.ObjectKind]int),
	}
	d.object = object{id: 0, kind: driver.KindDevice, refs: 1}
	d.object.onDestroy = func() {
		if n := len(d.live); n > 0 {
			d.DanglingAtRelease = n
			core.LogWarn("soft: device destroyed with %d dangling child objects", n)
		}
	}
	return d
}

func (d *Device) track(o *object, kind driver.ObjectKind) {
	d.nextID++
	o.dev = d
	o.id = d.nextID
	o.kind = kind
	o.refs = 1
	d.live[o.id] = o
	d.Created[kind]++
}

func (d *Device) forget(o *object) {
	delete(d.live, o.id)
}

// LiveCount is the number of child objects not yet destroyed.
func (d *Device) LiveCount() int {
	return len(d.live)
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
	b := &Buffer{desc: desc, data: make([]byte, desc.ByteWidth)}
	if initial != nil {
		if uint32(len(initial.Data)) > desc.ByteWidth {
			return nil, invalidArg(op, "initial data of %d bytes exceeds %d", len(initial.Data), desc.ByteWidth)
		}
		copy(b.data, initial.Data)
	}
	d.track(&b.object, driver.KindBuffer)
	return b, nil
}

func (d *Device) CreateTexture2D(desc driver.Texture2DDesc, initial []driver.SubresourceData) (driver.Texture2D, error) {
	const op = "CreateTexture2D"
	if desc.Width == 0 || desc.Height == 0 {
		return nil, invalidArg(op, "empty size %dx%d", desc.Width, desc.Height)
	}
	if !desc.Format.Known() {
		return nil, driver.Errorf(op, driver.ResultUnsupported, "format %s", desc.Format)
	}
	if desc.Usage == driver.UsageImmutable && len(initial) == 0 {
		return nil, invalidArg(op, "immutable texture without initial data")
	}
	pitch := desc.Width * desc.Format.Size()
	t := &Texture2D{desc: desc, data: make([]byte, pitch*desc.Height)}
	if len(initial) > 0 {
		src := initial[0]
		rowPitch := src.RowPitch
		if rowPitch == 0 {
			rowPitch = pitch
		}
		if rowPitch < pitch || uint64(len(src.Data)) < uint64(rowPitch)*uint64(desc.Height-1)+uint64(pitch) {
			return nil, invalidArg(op, "initial data of %d bytes with pitch %d is too small", len(src.Data), rowPitch)
		}
		for y := uint32(0); y < desc.Height; y++ {
			copy(t.data[y*pitch:(y+1)*pitch], src.Data[y*rowPitch:y*rowPitch+pitch])
		}
	}
	d.track(&t.object, driver.KindTexture2D)
	return t, nil
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
	if t.desc.BindFlags&driver.BindRenderTarget == 0 {
		return nil, invalidArg(op, "texture was not created with BindRenderTarget")
	}
	t.AddRef()
	v := &RenderTargetView{tex: t}
	v.onDestroy = func() { t.Release() }
	d.track(&v.object, driver.KindRenderTargetView)
	return v, nil
}

func checkModule(op string, bytecode []byte) error {
	if len(bytecode) < 20 || len(bytecode)%4 != 0 {
		return invalidArg(op, "bytecode of %d bytes is not a module", len(bytecode))
	}
	if binary.LittleEndian.Uint32(bytecode) != spirvMagic {
		return invalidArg(op, "bad module magic 0x%08X", binary.LittleEndian.Uint32(bytecode))
	}
	return nil
}

func (d *Device) CreateVertexShader(bytecode []byte) (driver.VertexShader, error) {
	if err := checkModule("CreateVertexShader", bytecode); err != nil {
		return nil, err
	}
	s := &VertexShader{bytecode: slices.Clone(bytecode)}
	d.track(&s.object, driver.KindVertexShader)
	return s, nil
}

func (d *Device) CreatePixelShader(bytecode []byte) (driver.PixelShader, error) {
	if err := checkModule("CreatePixelShader", bytecode); err != nil {
		return nil, err
	}
	s := &PixelShader{bytecode: slices.Clone(bytecode)}
	d.track(&s.object, driver.KindPixelShader)
	return s, nil
}

func (d *Device) CreateInputLayout(elements []driver.InputElementDesc, signature []byte) (driver.InputLayout, error) {
	const op = "CreateInputLayout"
	if len(elements) == 0 || len(elements) > maxInputElements {
		return nil, invalidArg(op, "%d elements", len(elements))
	}
	seen := map[string]struct{}{}
	for _, e := range elements {
		if e.SemanticName == "" {
			return nil, invalidArg(op, "element without semantic name")
		}
		key := fmt.Sprintf("%s%d", e.SemanticName, e.SemanticIndex)
		if _, dup := seen[key]; dup {
			return nil, invalidArg(op, "duplicate semantic %s", key)
		}
		seen[key] = struct{}{}
		if e.InputSlotClass == driver.InputPerVertexData && e.InstanceDataStepRate != 0 {
			return nil, invalidArg(op, "per-vertex element %s has a step rate", key)
		}
	}
	params, err := driver.DecodeSignature(signature)
	if err != nil {
		return nil, invalidArg(op, "bad input signature: %v", err)
	}
	if err := driver.MatchSignature(elements, params); err != nil {
		return nil, invalidArg(op, "%v", err)
	}
	l := &InputLayout{
		elements:  slices.Clone(elements),
		offsets:   driver.ResolveElementOffsets(elements),
		signature: params,
	}
	d.track(&l.object, driver.KindInputLayout)
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
	s := &SamplerState{desc: desc}
	d.track(&s.object, driver.KindSamplerState)
	return s, nil
}
