package shader

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

const (
	spirvMagic      uint32 = 0x07230203
	spirvHeaderSize        = 5
)

// SPIR-V opcodes and enumerants read by the reflector.
const (
	opName            = 5
	opEntryPoint      = 15
	opExecutionMode   = 16
	opTypeInt         = 21
	opTypeFloat       = 22
	opTypeVector      = 23
	opTypePointer     = 32
	opVariable        = 59
	opDecorate        = 71
	opExecutionModeID = 331

	decorationBuiltIn  = 11
	decorationLocation = 30

	storageInput = 1

	modelVertex   = 0
	modelFragment = 4
)

func executionModel(stage metadata.ShaderStage) uint32 {
	switch stage {
	case metadata.StageVertex:
		return modelVertex
	case metadata.StageFragment:
		return modelFragment
	default:
		panic(fmt.Sprintf("shader: unknown stage %d", stage))
	}
}

type EntryPoint struct {
	Model     uint32
	Function  uint32
	Name      string
	Interface []uint32
}

// Stage reports the pipeline stage of the entry point, false for stages the
// renderer does not drive.
func (e EntryPoint) Stage() (metadata.ShaderStage, bool) {
	switch e.Model {
	case modelVertex:
		return metadata.StageVertex, true
	case modelFragment:
		return metadata.StageFragment, true
	}
	return 0, false
}

type instruction struct {
	opcode   uint32
	operands []uint32
	start    int
	end      int
}

type scalarType struct {
	kind   driver.ComponentType
	count  uint32
	vector bool
}

/**
 * @brief A parsed SPIR-V module with the facts needed to build input signatures.
 */
type Module struct {
	words       []uint32
	insts       []instruction
	EntryPoints []EntryPoint

	names      map[uint32]string
	locations  map[uint32]uint32
	builtins   map[uint32]bool
	types      map[uint32]scalarType
	pointers   map[uint32]uint32
	variables  map[uint32]uint32
	varStorage map[uint32]uint32
}

func ParseModule(code []byte) (*Module, error) {
	words, err := toWords(code)
	if err != nil {
		return nil, err
	}
	m := &Module{
		words:      words,
		names:      map[uint32]string{},
		locations:  map[uint32]uint32{},
		builtins:   map[uint32]bool{},
		types:      map[uint32]scalarType{},
		pointers:   map[uint32]uint32{},
		variables:  map[uint32]uint32{},
		varStorage: map[uint32]uint32{},
	}
	for pos := spirvHeaderSize; pos < len(words); {
		count := int(words[pos] >> 16)
		opcode := words[pos] & 0xFFFF
		if count == 0 || pos+count > len(words) {
			return nil, fmt.Errorf("spirv: malformed instruction at word %d", pos)
		}
		inst := instruction{opcode: opcode, operands: words[pos+1 : pos+count], start: pos, end: pos + count}
		m.insts = append(m.insts, inst)
		if err := m.scan(inst); err != nil {
			return nil, err
		}
		pos += count
	}
	return m, nil
}

func toWords(b []byte) ([]uint32, error) {
	if len(b) < spirvHeaderSize*4 || len(b)%4 != 0 {
		return nil, fmt.Errorf("spirv: %d bytes is not a module", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("spirv: bad magic 0x%08X", words[0])
	}
	return words, nil
}

func need(inst instruction, n int) error {
	if len(inst.operands) < n {
		return fmt.Errorf("spirv: opcode %d has %d operands, want at least %d", inst.opcode, len(inst.operands), n)
	}
	return nil
}

func (m *Module) scan(inst instruction) error {
	ops := inst.operands
	switch inst.opcode {
	case opEntryPoint:
		if err := need(inst, 3); err != nil {
			return err
		}
		name, used := decodeString(ops[2:])
		m.EntryPoints = append(m.EntryPoints, EntryPoint{
			Model:     ops[0],
			Function:  ops[1],
			Name:      name,
			Interface: append([]uint32(nil), ops[2+used:]...),
		})
	case opName:
		if err := need(inst, 2); err != nil {
			return err
		}
		m.names[ops[0]], _ = decodeString(ops[1:])
	case opDecorate:
		if err := need(inst, 2); err != nil {
			return err
		}
		switch ops[1] {
		case decorationLocation:
			if err := need(inst, 3); err != nil {
				return err
			}
			m.locations[ops[0]] = ops[2]
		case decorationBuiltIn:
			m.builtins[ops[0]] = true
		}
	case opTypeInt:
		if err := need(inst, 3); err != nil {
			return err
		}
		kind := driver.ComponentUint32
		if ops[2] != 0 {
			kind = driver.ComponentSint32
		}
		m.types[ops[0]] = scalarType{kind: kind, count: 1}
	case opTypeFloat:
		if err := need(inst, 2); err != nil {
			return err
		}
		m.types[ops[0]] = scalarType{kind: driver.ComponentFloat32, count: 1}
	case opTypeVector:
		if err := need(inst, 3); err != nil {
			return err
		}
		if elem, ok := m.types[ops[1]]; ok && !elem.vector {
			m.types[ops[0]] = scalarType{kind: elem.kind, count: ops[2], vector: true}
		}
	case opTypePointer:
		if err := need(inst, 3); err != nil {
			return err
		}
		m.pointers[ops[0]] = ops[2]
	case opVariable:
		if err := need(inst, 3); err != nil {
			return err
		}
		m.variables[ops[1]] = ops[0]
		m.varStorage[ops[1]] = ops[2]
	}
	return nil
}

// decodeString reads a nul-terminated literal and returns it with the number
// of words it occupied.
func decodeString(words []uint32) (string, int) {
	var buf []byte
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(buf), i + 1
			}
			buf = append(buf, c)
		}
	}
	return string(buf), len(words)
}

func (m *Module) EntryPoint(name string, stage metadata.ShaderStage) (EntryPoint, bool) {
	model := executionModel(stage)
	for _, e := range m.EntryPoints {
		if e.Name == name && e.Model == model {
			return e, true
		}
	}
	return EntryPoint{}, false
}

// Inputs lists the located Input variables of an entry point. Built-ins such
// as the vertex index carry no location and are skipped.
func (m *Module) Inputs(e EntryPoint) ([]driver.SignatureParameter, error) {
	var params []driver.SignatureParameter
	for _, id := range e.Interface {
		if m.varStorage[id] != storageInput || m.builtins[id] {
			continue
		}
		loc, ok := m.locations[id]
		if !ok {
			return nil, fmt.Errorf("spirv: input %%%d of %s has no location", id, e.Name)
		}
		ty, ok := m.types[m.pointers[m.variables[id]]]
		if !ok {
			return nil, fmt.Errorf("spirv: input %%%d of %s is not a scalar or vector", id, e.Name)
		}
		params = append(params, driver.SignatureParameter{
			Location:       loc,
			ComponentType:  ty.kind,
			ComponentCount: ty.count,
			Name:           m.names[id],
		})
	}
	return params, nil
}

// Isolate returns a copy of the module whose only entry point is e. The
// functions of the other entry points stay in the module unreferenced.
func (m *Module) Isolate(e EntryPoint) []byte {
	out := make([]uint32, 0, len(m.words))
	out = append(out, m.words[:spirvHeaderSize]...)
	for _, inst := range m.insts {
		switch inst.opcode {
		case opEntryPoint:
			if inst.operands[1] != e.Function {
				continue
			}
		case opExecutionMode, opExecutionModeID:
			if len(inst.operands) > 0 && inst.operands[0] != e.Function {
				continue
			}
		}
		out = append(out, m.words[inst.start:inst.end]...)
	}
	b := make([]byte, len(out)*4)
	for i, w := range out {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}
