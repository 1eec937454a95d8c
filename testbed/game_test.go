package testbed

import (
	"io"
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/math"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func TestHexagonIsAClosedFan(t *testing.T) {
	vertices, indices := hexagon(10)
	require.Len(t, vertices, 7)
	require.Len(t, indices, 18)
	assert.Equal(t, []uint16{0, 6, 1}, indices[15:])
	for _, v := range vertices[1:] {
		assert.InDelta(t, 10, v.Position.Length(), 1e-4)
	}
	assert.True(t, vertices[1].Position.Compare(math.NewVec3(10, 0, 0), 1e-5))
}

func TestQuadFollowsTheWindow(t *testing.T) {
	tg := &TestGame{}
	require.NoError(t, tg.OnResize(1000, 500))
	vs := tg.quadVertices()
	require.Len(t, vs, 6)
	assert.Equal(t, float32(300-quadSize/2), vs[0].Position.X)
	assert.Equal(t, float32(250+quadSize/2), vs[0].Position.Y)
	assert.Len(t, math.Vertex2DBytes(vs), 6*quadStride)

	// The projection maps the window centre to the clip space origin.
	centre := math.NewVec3(500, 250, 0).Transform(tg.projection)
	assert.True(t, centre.Compare(math.NewVec3(0, 0, 0.5), 1e-5), "%+v", centre)
}

func TestMissingTextureFallsBackToCheckerboard(t *testing.T) {
	bm, err := loadBitmap("does/not/exist.png")
	require.NoError(t, err)
	require.NoError(t, bm.Validate())
	assert.Equal(t, uint32(64), bm.Width)
	assert.Equal(t, metadata.FormatRGBA8Unorm, bm.Format)
	assert.NotEqual(t, bm.Pixels[0:4], bm.Pixels[8*4:8*4+4])
}

func TestNewTestGameWiresHooks(t *testing.T) {
	cfg := config.Default()
	cfg.Device.VSync = false
	g := NewTestGame(cfg)
	assert.True(t, g.ApplicationConfig.LimitFrames)
	assert.NotNil(t, g.FnInitialize)
	assert.NotNil(t, g.FnShutdown)
	assert.IsType(t, &TestGame{}, g.State)
	assert.Equal(t, cfg.Shaders.Dir, g.State.(*TestGame).shaderDir)
}
