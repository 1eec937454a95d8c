package renderer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spaghettifunk/anima-gfx/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/shader"
)

type VertexShader struct {
	id            uuid.UUID
	path          string
	entry         string
	native        driver.VertexShader
	binary        []byte
	signature     []byte
	signatureHash uint64
}

func (vs *VertexShader) ID() uuid.UUID         { return vs.id }
func (vs *VertexShader) Path() string          { return vs.path }
func (vs *VertexShader) Entry() string         { return vs.entry }
func (vs *VertexShader) Binary() []byte        { return vs.binary }
func (vs *VertexShader) Signature() []byte     { return vs.signature }
func (vs *VertexShader) SignatureHash() uint64 { return vs.signatureHash }

type FragmentShader struct {
	id     uuid.UUID
	path   string
	entry  string
	native driver.PixelShader
	binary []byte
}

func (fs *FragmentShader) ID() uuid.UUID  { return fs.id }
func (fs *FragmentShader) Path() string   { return fs.path }
func (fs *FragmentShader) Entry() string  { return fs.entry }
func (fs *FragmentShader) Binary() []byte { return fs.binary }

// precompiled passes SPIR-V loaded from .spv files straight through.
type precompiled struct{}

func (precompiled) Compile(source string) ([]byte, error) {
	return []byte(source), nil
}

// build reads path and compiles entry for stage. Read failures are returned
// as plain errors, compile failures as *shader.CompileError.
func (rd *RenderDevice) build(path, entry string, stage metadata.ShaderStage) (*shader.Artifact, error) {
	var (
		source   string
		compiler = rd.compiler
	)
	switch loaders.TypeOf(path) {
	case loaders.ResourceTypeShaderBinary:
		res, err := (&loaders.BinaryLoader{}).Load(path, nil)
		if err != nil {
			return nil, err
		}
		source = string(res.Data.([]byte))
		compiler = precompiled{}
	default:
		res, err := (&loaders.ShaderLoader{}).Load(path, nil)
		if err != nil {
			return nil, err
		}
		source = res.Data.(string)
	}
	return shader.Build(compiler, path, source, entry, stage)
}

func (rd *RenderDevice) checkSource(op, path, entry string) {
	if entry == "" {
		core.Fatalf(op, "empty entry point for `%s`", path)
	}
	if _, err := os.Stat(path); err != nil {
		core.Fatal(op, err)
	}
}

func (rd *RenderDevice) compileFailed(err error) error {
	var ce *shader.CompileError
	if errors.As(err, &ce) {
		core.LogError("%s", err)
		return err
	}
	err = fmt.Errorf("loading shader: %w", err)
	core.LogError("%s", err)
	return err
}

// CompileVertexShader compiles entry from the WGSL (or SPIR-V) file at path.
// A missing file or an empty entry point aborts; a compile failure is
// returned as *shader.CompileError.
func (rd *RenderDevice) CompileVertexShader(path, entry string) (*VertexShader, error) {
	const op = "CompileVertexShader"
	rd.ready(op)
	rd.checkSource(op, path, entry)

	art, err := rd.build(path, entry, metadata.StageVertex)
	if err != nil {
		return nil, rd.compileFailed(err)
	}
	native, err := rd.device.CreateVertexShader(art.Binary)
	rd.check(op, err)
	rd.registry.Register(native, op)

	vs := &VertexShader{
		id:            uuid.New(),
		path:          filepath.Clean(path),
		entry:         entry,
		native:        native,
		binary:        art.Binary,
		signature:     art.Signature,
		signatureHash: art.SignatureHash,
	}
	rd.vertexShaders[vs.id] = vs
	core.LogDebug("compiled vertex shader %s:%s (signature %016x)", path, entry, vs.signatureHash)
	return vs, nil
}

func (rd *RenderDevice) CompileFragmentShader(path, entry string) (*FragmentShader, error) {
	const op = "CompileFragmentShader"
	rd.ready(op)
	rd.checkSource(op, path, entry)

	art, err := rd.build(path, entry, metadata.StageFragment)
	if err != nil {
		return nil, rd.compileFailed(err)
	}
	native, err := rd.device.CreatePixelShader(art.Binary)
	rd.check(op, err)
	rd.registry.Register(native, op)

	fs := &FragmentShader{
		id:     uuid.New(),
		path:   filepath.Clean(path),
		entry:  entry,
		native: native,
		binary: art.Binary,
	}
	rd.fragmentShaders[fs.id] = fs
	core.LogDebug("compiled fragment shader %s:%s", path, entry)
	return fs, nil
}

// RecompileVertexShader rebuilds vs from its source file. On failure the
// previous binary stays live and the error is returned.
func (rd *RenderDevice) RecompileVertexShader(vs *VertexShader) error {
	const op = "RecompileVertexShader"
	rd.ready(op)
	art, err := rd.build(vs.path, vs.entry, metadata.StageVertex)
	if err != nil {
		core.LogWarn("keeping previous %s:%s", vs.path, vs.entry)
		return rd.compileFailed(err)
	}
	native, err := rd.device.CreateVertexShader(art.Binary)
	rd.check(op, err)
	rd.registry.Register(native, op)
	rd.registry.Release(vs.native)

	vs.native = native
	vs.binary = art.Binary
	vs.signature = art.Signature
	vs.signatureHash = art.SignatureHash
	if rd.boundVS == vs {
		rd.markDirty()
	}
	core.LogInfo("reloaded vertex shader %s:%s", vs.path, vs.entry)
	return nil
}

func (rd *RenderDevice) RecompileFragmentShader(fs *FragmentShader) error {
	const op = "RecompileFragmentShader"
	rd.ready(op)
	art, err := rd.build(fs.path, fs.entry, metadata.StageFragment)
	if err != nil {
		core.LogWarn("keeping previous %s:%s", fs.path, fs.entry)
		return rd.compileFailed(err)
	}
	native, err := rd.device.CreatePixelShader(art.Binary)
	rd.check(op, err)
	rd.registry.Register(native, op)
	rd.registry.Release(fs.native)

	fs.native = native
	fs.binary = art.Binary
	if rd.boundFS == fs {
		rd.markDirty()
	}
	core.LogInfo("reloaded fragment shader %s:%s", fs.path, fs.entry)
	return nil
}

// ReloadShaderFile recompiles every shader built from path. It returns how
// many were reloaded and the joined failures of the rest.
func (rd *RenderDevice) ReloadShaderFile(path string) (int, error) {
	path = filepath.Clean(path)
	var (
		reloaded int
		errs     []error
	)
	for _, vs := range rd.vertexShaders {
		if vs.path != path {
			continue
		}
		if err := rd.RecompileVertexShader(vs); err != nil {
			errs = append(errs, err)
			continue
		}
		reloaded++
	}
	for _, fs := range rd.fragmentShaders {
		if fs.path != path {
			continue
		}
		if err := rd.RecompileFragmentShader(fs); err != nil {
			errs = append(errs, err)
			continue
		}
		reloaded++
	}
	return reloaded, errors.Join(errs...)
}

// DisposeVertexShader releases vs. It must not be bound.
func (rd *RenderDevice) DisposeVertexShader(vs *VertexShader) {
	core.Assert(rd.boundVS != vs, "DisposeVertexShader", "%s:%s is bound", vs.path, vs.entry)
	if _, ok := rd.vertexShaders[vs.id]; !ok {
		return
	}
	delete(rd.vertexShaders, vs.id)
	rd.registry.Release(vs.native)
	vs.native = nil
}

func (rd *RenderDevice) DisposeFragmentShader(fs *FragmentShader) {
	core.Assert(rd.boundFS != fs, "DisposeFragmentShader", "%s:%s is bound", fs.path, fs.entry)
	if _, ok := rd.fragmentShaders[fs.id]; !ok {
		return
	}
	delete(rd.fragmentShaders, fs.id)
	rd.registry.Release(fs.native)
	fs.native = nil
}

func (rd *RenderDevice) disposeShaders() {
	for id, vs := range rd.vertexShaders {
		rd.registry.Release(vs.native)
		vs.native = nil
		delete(rd.vertexShaders, id)
	}
	for id, fs := range rd.fragmentShaders {
		rd.registry.Release(fs.native)
		fs.native = nil
		delete(rd.fragmentShaders, id)
	}
}
