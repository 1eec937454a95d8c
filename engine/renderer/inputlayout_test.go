package renderer

import (
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver/soft"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSemantic(t *testing.T) {
	for _, tc := range []struct {
		in    string
		name  string
		index uint32
	}{
		{"POSITION", "POSITION", 0},
		{"TEXCOORD1", "TEXCOORD", 1},
		{"COLOR0", "COLOR", 0},
		{"BLEND12", "BLEND1", 2},
		{"7", "7", 0},
	} {
		name, index := splitSemantic(tc.in)
		assert.Equal(t, tc.name, name, tc.in)
		assert.Equal(t, tc.index, index, tc.in)
	}
}

func TestLayoutKeyDependsOnBothHashes(t *testing.T) {
	k := layoutKey(1, 2)
	assert.Equal(t, k, layoutKey(1, 2))
	assert.NotEqual(t, k, layoutKey(2, 1))
	assert.NotEqual(t, k, layoutKey(1, 3))
}

func TestResolveInputLayoutIsCached(t *testing.T) {
	f := newFixture(t)
	vs, _ := f.quadShaders(t)
	desc := quadFormat()

	before := f.rd.Registry().Count()
	first := f.rd.ResolveInputLayout(desc, vs)
	second := f.rd.ResolveInputLayout(quadFormat(), vs)
	assert.Same(t, first.(*soft.InputLayout), second.(*soft.InputLayout))
	assert.Equal(t, before+1, f.rd.Registry().Count())
	assert.Equal(t, 1, f.dev.Created[driver.KindInputLayout])
	assert.Equal(t, 1, f.rd.InputLayoutCount())

	// a second shader with the same inputs shares the layout
	path := f.shaderFile(t, "other.wgsl")
	other, err := f.rd.CompileVertexShader(path, "vs_main")
	require.NoError(t, err)
	assert.Equal(t, vs.SignatureHash(), other.SignatureHash())
	assert.Same(t, first.(*soft.InputLayout), f.rd.ResolveInputLayout(desc, other).(*soft.InputLayout))
	assert.Equal(t, 1, f.rd.InputLayoutCount())
}

func TestResolveInputLayoutKeyCollision(t *testing.T) {
	f := newFixture(t)
	vs, _ := f.quadShaders(t)
	desc := quadFormat()
	first := f.rd.ResolveInputLayout(desc, vs)

	// pretend the cached entry came from another description with the same key
	key := layoutKey(desc.Hash(), vs.SignatureHash())
	require.Len(t, f.rd.layouts[key], 1)
	f.rd.layouts[key][0].descHash ^= 1

	second := f.rd.ResolveInputLayout(desc, vs)
	assert.NotSame(t, first.(*soft.InputLayout), second.(*soft.InputLayout))
	assert.Len(t, f.rd.layouts[key], 2)
	assert.Equal(t, 2, f.rd.InputLayoutCount())
	assert.Same(t, second.(*soft.InputLayout), f.rd.ResolveInputLayout(desc, vs).(*soft.InputLayout))
}

func TestResolveInputLayoutElementOrderMatters(t *testing.T) {
	f := newFixture(t)
	vs, _ := f.quadShaders(t)
	swapped := metadata.NewVertexFormat(
		metadata.VertexElement{SemanticName: "TEXCOORD", Format: metadata.FormatRG32Float, Offset: metadata.AppendAligned},
		metadata.VertexElement{SemanticName: "POSITION", Format: metadata.FormatRGB32Float, Offset: metadata.AppendAligned},
	)
	a := f.rd.ResolveInputLayout(quadFormat(), vs)
	b := f.rd.ResolveInputLayout(swapped, vs)
	assert.NotSame(t, a.(*soft.InputLayout), b.(*soft.InputLayout))
	assert.Equal(t, 2, f.rd.InputLayoutCount())
}

func TestResolveInputLayoutSemanticIndex(t *testing.T) {
	f := newFixture(t)
	vs, _ := f.quadShaders(t)
	desc := metadata.NewVertexFormat(
		metadata.VertexElement{SemanticName: "POSITION", Format: metadata.FormatRGB32Float, Offset: metadata.AppendAligned},
		metadata.VertexElement{SemanticName: "TEXCOORD1", Format: metadata.FormatRG32Float, Offset: metadata.AppendAligned},
	)
	layout := f.rd.ResolveInputLayout(desc, vs).(*soft.InputLayout)
	elements := layout.Elements()
	require.Len(t, elements, 2)
	assert.Equal(t, "POSITION", elements[0].SemanticName)
	assert.Equal(t, uint32(0), elements[0].SemanticIndex)
	assert.Equal(t, driver.FormatR32G32B32Float, elements[0].Format)
	assert.Equal(t, "TEXCOORD", elements[1].SemanticName)
	assert.Equal(t, uint32(1), elements[1].SemanticIndex)
	assert.Equal(t, driver.FormatR32G32Float, elements[1].Format)
	assert.Equal(t, driver.InputPerVertexData, elements[1].InputSlotClass)
	assert.Equal(t, []uint32{0, 12}, layout.Offsets())
}

func TestResolveInputLayoutInstanceElements(t *testing.T) {
	f := newFixture(t)
	vs, _ := f.quadShaders(t)
	desc := metadata.NewVertexFormat(
		metadata.VertexElement{SemanticName: "POSITION", Format: metadata.FormatRGB32Float, Offset: metadata.AppendAligned},
		metadata.VertexElement{SemanticName: "TEXCOORD", Format: metadata.FormatRG32Float, Offset: metadata.AppendAligned},
		metadata.VertexElement{SemanticName: "WORLD", Format: metadata.FormatRGBA32Float, Offset: metadata.AppendAligned, InstanceStepRate: 1},
	)
	elements := f.rd.ResolveInputLayout(desc, vs).(*soft.InputLayout).Elements()
	require.Len(t, elements, 3)
	assert.Equal(t, uint32(1), elements[2].InputSlot)
	assert.Equal(t, driver.InputPerInstanceData, elements[2].InputSlotClass)
	assert.Equal(t, uint32(1), elements[2].InstanceDataStepRate)
}

func TestResolveInputLayoutSignatureMismatchAborts(t *testing.T) {
	f := newFixture(t)
	vs, _ := f.quadShaders(t)
	desc := metadata.NewVertexFormat(
		metadata.VertexElement{SemanticName: "BLENDINDICES", Format: metadata.FormatRGBA8Uint, Offset: metadata.AppendAligned},
		metadata.VertexElement{SemanticName: "TEXCOORD", Format: metadata.FormatRG32Float, Offset: metadata.AppendAligned},
	)
	requireFatal(t, func() { f.rd.ResolveInputLayout(desc, vs) })
	assert.Equal(t, 0, f.rd.InputLayoutCount())
}

func TestWipeInputLayouts(t *testing.T) {
	f := newFixture(t)
	f.readyToDraw(t)
	f.rd.Draw(3, 0)
	require.Equal(t, 1, f.rd.InputLayoutCount())
	require.NotNil(t, f.ctx.InputLayout())

	f.rd.WipeInputLayouts()
	assert.Equal(t, 0, f.rd.InputLayoutCount())
	assert.Nil(t, f.ctx.InputLayout())
	assert.Equal(t, PipelineLayoutDirty, f.rd.PipelineState())

	f.rd.Draw(3, 0)
	assert.Equal(t, 1, f.rd.InputLayoutCount())
	assert.Equal(t, 2, f.dev.Created[driver.KindInputLayout])
	assert.Empty(t, f.ctx.ValidationErrors)
}
