package renderer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver/soft"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/shader"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/shader/spirvtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileShaders(t *testing.T) {
	f := newFixture(t)
	vs, fs := f.quadShaders(t)

	assert.Equal(t, "vs_main", vs.Entry())
	assert.NotEmpty(t, vs.Signature())
	assert.NotZero(t, vs.SignatureHash())
	params, err := driver.DecodeSignature(vs.Signature())
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "uv", params[1].Name)

	assert.Equal(t, "fs_main", fs.Entry())
	assert.Equal(t, 1, f.dev.Created[driver.KindVertexShader])
	assert.Equal(t, 1, f.dev.Created[driver.KindPixelShader])
}

func TestCompileMissingEntryIsRecoverable(t *testing.T) {
	f := newFixture(t)
	path := f.shaderFile(t, "quad.wgsl")
	before := f.rd.Registry().Count()

	_, err := f.rd.CompileVertexShader(path, "fs_main")
	require.Error(t, err)
	assert.ErrorIs(t, err, shader.ErrShaderCompile)

	_, err = f.rd.CompileFragmentShader(path, "nope")
	var ce *shader.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, metadata.StageFragment, ce.Stage)
	assert.Equal(t, before, f.rd.Registry().Count())
}

func TestCompilerErrorIsRecoverable(t *testing.T) {
	f := newFixture(t)
	path := f.shaderFile(t, "broken.wgsl")
	f.compiler.Err = errors.New("expected `;`, found `}`")

	_, err := f.rd.CompileVertexShader(path, "vs_main")
	require.ErrorIs(t, err, shader.ErrShaderCompile)
	assert.Contains(t, err.Error(), "expected `;`")
}

func TestCompileBadSourceAborts(t *testing.T) {
	f := newFixture(t)
	requireFatal(t, func() { f.rd.CompileVertexShader(filepath.Join(f.dir, "missing.wgsl"), "vs_main") })
	path := f.shaderFile(t, "quad.wgsl")
	requireFatal(t, func() { f.rd.CompileFragmentShader(path, "") })
}

func TestCompilePrecompiledBinary(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "quad.spv")
	require.NoError(t, os.WriteFile(path, spirvtest.Module(quadEntries...), 0o644))

	vs, err := f.rd.CompileVertexShader(path, "vs_main")
	require.NoError(t, err)
	assert.NotEmpty(t, vs.Signature())
	assert.Zero(t, f.compiler.Calls)
}

func TestRecompileKeepsShaderOnFailure(t *testing.T) {
	f := newFixture(t)
	vs, _, _ := f.readyToDraw(t)
	f.rd.Draw(3, 0)
	old := vs.native

	f.compiler.Err = errors.New("syntax error")
	n, err := f.rd.ReloadShaderFile(vs.Path())
	assert.Equal(t, 0, n)
	require.ErrorIs(t, err, shader.ErrShaderCompile)
	assert.Same(t, old.(*soft.VertexShader), vs.native.(*soft.VertexShader))
	assert.Equal(t, PipelineReady, f.rd.PipelineState())

	// the previous shader keeps drawing
	f.rd.Draw(3, 0)
	assert.Empty(t, f.ctx.ValidationErrors)
}

func TestReloadShaderFile(t *testing.T) {
	f := newFixture(t)
	vs, fs, _ := f.readyToDraw(t)
	f.rd.Draw(3, 0)
	oldVS, oldFS := vs.native, fs.native
	before := f.rd.Registry().Count()

	n, err := f.rd.ReloadShaderFile(vs.Path())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotSame(t, oldVS.(*soft.VertexShader), vs.native.(*soft.VertexShader))
	assert.NotSame(t, oldFS.(*soft.PixelShader), fs.native.(*soft.PixelShader))
	assert.Equal(t, before, f.rd.Registry().Count())
	assert.Equal(t, PipelineLayoutDirty, f.rd.PipelineState())

	f.ctx.ResetCounters()
	f.rd.Draw(3, 0)
	assert.Equal(t, 1, f.ctx.CallCount("VSSetShader"))
	assert.Same(t, vs.native.(*soft.VertexShader), f.ctx.VertexShader())

	n, err = f.rd.ReloadShaderFile(filepath.Join(f.dir, "unrelated.wgsl"))
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestDisposeShaders(t *testing.T) {
	f := newFixture(t)
	vs, fs := f.quadShaders(t)
	f.rd.BindVertexShader(vs)
	requireFatal(t, func() { f.rd.DisposeVertexShader(vs) })

	before := f.rd.Registry().Count()
	f.rd.DisposeFragmentShader(fs)
	assert.Nil(t, fs.native)
	assert.Equal(t, before-1, f.rd.Registry().Count())
	// twice is harmless
	f.rd.DisposeFragmentShader(fs)
	assert.Equal(t, before-1, f.rd.Registry().Count())
}
