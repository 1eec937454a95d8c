package soft

import (
	"fmt"

	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

type object struct {
	dev       *Device
	id        uint64
	kind      driver.ObjectKind
	refs      uint32
	onDestroy func()
}

func (o *object) AddRef() uint32 {
	if o.refs == 0 {
		panic(fmt.Sprintf("soft: AddRef on destroyed %s #%d", o.kind, o.id))
	}
	o.refs++
	return o.refs
}

func (o *object) Release() uint32 {
	if o.refs == 0 {
		panic(fmt.Sprintf("soft: Release on destroyed %s #%d", o.kind, o.id))
	}
	o.refs--
	if o.refs == 0 {
		if o.onDestroy != nil {
			o.onDestroy()
		}
		if o.dev != nil {
			o.dev.forget(o)
		}
	}
	return o.refs
}

func (o *object) Kind() driver.ObjectKind {
	return o.kind
}

// ID is unique per device and never reused.
func (o *object) ID() uint64 {
	return o.id
}

// Refs is the current reference count, zero once destroyed.
func (o *object) Refs() uint32 {
	return o.refs
}

func (o *object) alive() bool {
	return o.refs > 0
}

type Buffer struct {
	object
	desc   driver.BufferDesc
	data   []byte
	mapped bool
	// Renames counts discard maps that handed out fresh storage.
	Renames int
}

func (b *Buffer) BufferDesc() driver.BufferDesc {
	return b.desc
}

// Data is the current contents, for inspection in tests.
func (b *Buffer) Data() []byte {
	return b.data
}

type Texture2D struct {
	object
	desc driver.Texture2DDesc
	data []byte
}

func (t *Texture2D) TextureDesc() driver.Texture2DDesc {
	return t.desc
}

func (t *Texture2D) Data() []byte {
	return t.data
}

type ShaderResourceView struct {
	object
	tex *Texture2D
}

func (v *ShaderResourceView) ViewedTexture() driver.Texture2D {
	return v.tex
}

type RenderTargetView struct {
	object
	tex *Texture2D
	// ClearColor is the color of the last ClearRenderTargetView.
	ClearColor [4]float32
	Clears     int
}

func (v *RenderTargetView) TargetTexture() driver.Texture2D {
	return v.tex
}

type VertexShader struct {
	object
	bytecode []byte
}

func (s *VertexShader) VertexBytecode() []byte {
	return s.bytecode
}

type PixelShader struct {
	object
	bytecode []byte
}

func (s *PixelShader) PixelBytecode() []byte {
	return s.bytecode
}

type InputLayout struct {
	object
	elements  []driver.InputElementDesc
	offsets   []uint32
	signature []driver.SignatureParameter
}

func (l *InputLayout) Elements() []driver.InputElementDesc {
	out := make([]driver.InputElementDesc, len(l.elements))
	copy(out, l.elements)
	return out
}

// Offsets are the element byte offsets with append-aligned entries resolved.
func (l *InputLayout) Offsets() []uint32 {
	return l.offsets
}

type RasterizerState struct {
	object
	desc driver.RasterizerDesc
}

func (s *RasterizerState) RasterizerDesc() driver.RasterizerDesc {
	return s.desc
}

type SamplerState struct {
	object
	desc driver.SamplerDesc
}

func (s *SamplerState) SamplerDesc() driver.SamplerDesc {
	return s.desc
}
