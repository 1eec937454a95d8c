package driver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDriver struct {
	t DriverType
}

func (s stubDriver) Type() DriverType { return s.t }
func (s stubDriver) Name() string     { return "stub-" + s.t.String() }
func (s stubDriver) Open(CreateParams) (Device, Context, SwapChain, error) {
	return nil, nil, nil, ErrUnsupported
}

func TestRegisterAndLookup(t *testing.T) {
	Register(stubDriver{t: Warp})
	drv, err := Lookup(Warp)
	require.NoError(t, err)
	assert.Equal(t, "stub-warp", drv.Name())

	names := []string{}
	for _, d := range Drivers() {
		names = append(names, d.Type().String())
	}
	assert.Contains(t, names, "warp")
}

func TestLookupMissing(t *testing.T) {
	_, err := Lookup(DriverType(9))
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestErrorMatching(t *testing.T) {
	err := Errorf("CreateBuffer", ResultOutOfMemory, "%d bytes", 64)
	assert.ErrorIs(t, err, ErrOutOfMemory)
	assert.False(t, errors.Is(err, ErrInvalidArg))
	assert.Equal(t, "CreateBuffer failed with E_OUTOFMEMORY: 64 bytes", err.Error())

	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, int64(ResultOutOfMemory), de.ResultCode())
	assert.True(t, de.Code.Failed())
	assert.False(t, ResultOK.Failed())
}

func TestSignatureCodec(t *testing.T) {
	params := []SignatureParameter{
		{Location: 1, ComponentType: ComponentFloat32, ComponentCount: 2, Name: "uv"},
		{Location: 0, ComponentType: ComponentFloat32, ComponentCount: 3, Name: "position"},
	}
	blob := EncodeSignature(params)
	got, err := DecodeSignature(blob)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "position", got[0].Name)
	assert.Equal(t, uint32(1), got[1].Location)

	_, err = DecodeSignature(blob[:len(blob)-1])
	assert.Error(t, err)
	_, err = DecodeSignature(append(blob, 0))
	assert.Error(t, err)
	_, err = DecodeSignature([]byte{0xff, 0xff, 0xff, 0x0f})
	assert.Error(t, err)
}

func TestMatchSignature(t *testing.T) {
	params := []SignatureParameter{
		{Location: 0, ComponentType: ComponentFloat32, ComponentCount: 3},
		{Location: 1, ComponentType: ComponentFloat32, ComponentCount: 2},
	}
	elements := []InputElementDesc{
		{SemanticName: "POSITION", Format: FormatR32G32B32Float, AlignedByteOffset: AppendAlignedElement},
		{SemanticName: "TEXCOORD", SemanticIndex: 1, Format: FormatR32G32Float, AlignedByteOffset: AppendAlignedElement},
	}
	assert.NoError(t, MatchSignature(elements, params))
	assert.Error(t, MatchSignature(elements[:1], params))

	elements[1].Format = FormatR32Uint
	assert.Error(t, MatchSignature(elements, params))
}

func TestResolveElementOffsets(t *testing.T) {
	elements := []InputElementDesc{
		{Format: FormatR32G32B32Float, AlignedByteOffset: AppendAlignedElement},
		{Format: FormatR8G8B8A8Unorm, AlignedByteOffset: 16},
		{Format: FormatR32G32Float, AlignedByteOffset: AppendAlignedElement},
		{Format: FormatR32G32B32A32Float, InputSlot: 1, AlignedByteOffset: AppendAlignedElement},
	}
	assert.Equal(t, []uint32{0, 16, 20, 0}, ResolveElementOffsets(elements))
}

func TestFormatInfo(t *testing.T) {
	assert.Equal(t, uint32(12), FormatR32G32B32Float.Size())
	assert.Equal(t, uint32(3), FormatR32G32B32Float.ComponentCount())
	assert.Equal(t, ComponentUint32, FormatR16Uint.ComponentType())
	assert.False(t, FormatUnknown.Known())
	assert.Equal(t, "FORMAT(1)", Format(1).String())
}
