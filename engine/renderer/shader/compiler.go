// Package shader turns WGSL source into SPIR-V binaries and derives the input
// signature that vertex shaders hand to input-layout creation.
package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

var ErrShaderCompile = errors.New("shader compilation failed")

// CompileError carries the compiler's diagnostic text.
type CompileError struct {
	Path        string
	Entry       string
	Stage       metadata.ShaderStage
	Diagnostics string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s shader %s:%s: %s", e.Stage, e.Path, e.Entry, e.Diagnostics)
}

func (e *CompileError) Is(target error) bool {
	return target == ErrShaderCompile
}

/**
 * @brief Source-to-binary compiler. Implementations return a SPIR-V module.
 */
type Compiler interface {
	Compile(source string) ([]byte, error)
}

// NagaCompiler compiles WGSL with the pure Go naga toolchain.
type NagaCompiler struct{}

func (NagaCompiler) Compile(source string) ([]byte, error) {
	return naga.Compile(source)
}

/**
 * @brief Output of a successful Build.
 */
type Artifact struct {
	// Binary is the SPIR-V module reduced to the requested entry point.
	Binary []byte
	// Signature is the encoded input signature, empty for fragment shaders.
	Signature     []byte
	SignatureHash uint64
	Inputs        []driver.SignatureParameter
}

// Build compiles source and isolates entry. Every failure, including a
// missing entry point, is reported as a *CompileError.
func Build(c Compiler, path, source, entry string, stage metadata.ShaderStage) (*Artifact, error) {
	fail := func(format string, args ...interface{}) error {
		return &CompileError{Path: path, Entry: entry, Stage: stage, Diagnostics: fmt.Sprintf(format, args...)}
	}
	code, err := c.Compile(source)
	if err != nil {
		return nil, fail("%v", err)
	}
	mod, err := ParseModule(code)
	if err != nil {
		return nil, fail("%v", err)
	}
	ep, ok := mod.EntryPoint(entry, stage)
	if !ok {
		return nil, fail("entry point %q not found", entry)
	}
	art := &Artifact{Binary: mod.Isolate(ep)}
	if stage != metadata.StageVertex {
		return art, nil
	}
	inputs, err := mod.Inputs(ep)
	if err != nil {
		return nil, fail("%v", err)
	}
	art.Inputs = inputs
	art.Signature = driver.EncodeSignature(inputs)
	art.SignatureHash = Checksum64(art.Signature)
	return art, nil
}
