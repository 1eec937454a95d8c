// Package spirvtest assembles minimal SPIR-V modules for tests that need a
// shader binary without running a WGSL compiler.
package spirvtest

import (
	"encoding/binary"
	"sync"

	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

const (
	magic = 0x07230203

	opName          = 5
	opEntryPoint    = 15
	opExecutionMode = 16
	opTypeInt       = 21
	opTypeFloat     = 22
	opTypeVector    = 23
	opTypePointer   = 32
	opVariable      = 59
	opDecorate      = 71

	decorationBuiltIn  = 11
	decorationLocation = 30

	storageInput  = 1
	storageOutput = 3

	modeOriginUpperLeft = 7
)

type Scalar uint8

const (
	Float Scalar = iota
	Uint
	Sint
)

// Input is one located entry point input.
type Input struct {
	Name       string
	Location   uint32
	Scalar     Scalar
	Components uint32
}

type Entry struct {
	Name   string
	Stage  metadata.ShaderStage
	Inputs []Input
	// BuiltinInput adds a builtin input (vertex index) the reflector must skip.
	BuiltinInput bool
}

type assembler struct {
	words  []uint32
	nextID uint32
	types  map[[2]uint32]uint32
	ptrs   map[uint32]uint32
	body   []uint32
}

func (a *assembler) id() uint32 {
	a.nextID++
	return a.nextID
}

func (a *assembler) emit(dst *[]uint32, code uint32, operands ...uint32) {
	*dst = append(*dst, uint32(len(operands)+1)<<16|code)
	*dst = append(*dst, operands...)
}

func (a *assembler) scalar(s Scalar) uint32 {
	key := [2]uint32{uint32(s), 1}
	if id, ok := a.types[key]; ok {
		return id
	}
	id := a.id()
	switch s {
	case Float:
		a.emit(&a.body, opTypeFloat, id, 32)
	case Uint:
		a.emit(&a.body, opTypeInt, id, 32, 0)
	case Sint:
		a.emit(&a.body, opTypeInt, id, 32, 1)
	}
	a.types[key] = id
	return id
}

func (a *assembler) typeOf(s Scalar, n uint32) uint32 {
	elem := a.scalar(s)
	if n <= 1 {
		return elem
	}
	key := [2]uint32{uint32(s), n}
	if id, ok := a.types[key]; ok {
		return id
	}
	id := a.id()
	a.emit(&a.body, opTypeVector, id, elem, n)
	a.types[key] = id
	return id
}

func (a *assembler) pointer(storage, pointee uint32) uint32 {
	key := storage<<24 | pointee
	if id, ok := a.ptrs[key]; ok {
		return id
	}
	id := a.id()
	a.emit(&a.body, opTypePointer, id, storage, pointee)
	a.ptrs[key] = id
	return id
}

func str(s string) []uint32 {
	b := append([]byte(s), 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}

// Module assembles a module with one entry point per entry. Function bodies
// are left out; the result is only meant for reflection and validation.
func Module(entries ...Entry) []byte {
	a := &assembler{types: map[[2]uint32]uint32{}, ptrs: map[uint32]uint32{}}
	var head, modes, debug, decorations, vars []uint32

	for _, e := range entries {
		fn := a.id()
		var iface []uint32
		for _, in := range e.Inputs {
			v := a.id()
			ptr := a.pointer(storageInput, a.typeOf(in.Scalar, in.Components))
			a.emit(&vars, opVariable, ptr, v, storageInput)
			a.emit(&debug, opName, append([]uint32{v}, str(in.Name)...)...)
			a.emit(&decorations, opDecorate, v, decorationLocation, in.Location)
			iface = append(iface, v)
		}
		if e.BuiltinInput {
			v := a.id()
			ptr := a.pointer(storageInput, a.typeOf(Uint, 1))
			a.emit(&vars, opVariable, ptr, v, storageInput)
			a.emit(&decorations, opDecorate, v, decorationBuiltIn, 42)
			iface = append(iface, v)
		}
		model := uint32(0)
		if e.Stage == metadata.StageFragment {
			model = 4
			out := a.id()
			ptr := a.pointer(storageOutput, a.typeOf(Float, 4))
			a.emit(&vars, opVariable, ptr, out, storageOutput)
			a.emit(&decorations, opDecorate, out, decorationLocation, 0)
			iface = append(iface, out)
			a.emit(&modes, opExecutionMode, fn, modeOriginUpperLeft)
		}
		operands := append([]uint32{model, fn}, str(e.Name)...)
		a.emit(&head, opEntryPoint, append(operands, iface...)...)
	}

	words := []uint32{magic, 0x00010000, 0, a.nextID + 1, 0}
	for _, part := range [][]uint32{head, modes, debug, decorations, a.body, vars} {
		words = append(words, part...)
	}
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

// Compiler returns code for every source, standing in for the WGSL compiler.
// It is safe for concurrent use.
type Compiler struct {
	Code []byte
	Err  error
	// Calls counts Compile invocations. Read it once compilation is over.
	Calls int

	mu sync.Mutex
}

func (c *Compiler) Compile(string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls++
	return c.Code, c.Err
}
