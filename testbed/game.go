// Package testbed is a small game used to exercise the renderer: a textured
// quad streamed through a dynamic vertex buffer and a static indexed mesh,
// each with its own per-frame constant buffer.
package testbed

import (
	"errors"
	"image"
	"image/color"
	gomath "math"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/anima-gfx/engine"
	"github.com/spaghettifunk/anima-gfx/engine/assets/loaders"
	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/math"
	"github.com/spaghettifunk/anima-gfx/engine/renderer"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

const (
	quadStride = 16
	meshStride = 28
	quadSize   = 256
	// Texture loaded when present, a generated checkerboard otherwise.
	texturePath = "assets/textures/checker.png"
)

type TestGame struct {
	shaderDir string

	quadVS     *renderer.VertexShader
	quadFS     *renderer.FragmentShader
	quadFormat *metadata.VertexFormat
	quad       renderer.DynamicBuffer
	quadCB     *renderer.ConstantBuffer
	texture    *renderer.Texture
	sampler    *renderer.Sampler

	meshVS        *renderer.VertexShader
	meshFS        *renderer.FragmentShader
	meshFormat    *metadata.VertexFormat
	meshVB        *renderer.VertexBuffer
	meshIB        *renderer.IndexBuffer
	meshCB        *renderer.ConstantBuffer
	meshTransform *math.Transform

	projection math.Mat4
	width      uint32
	height     uint32
	elapsed    float64
}

func NewTestGame(cfg *config.Config) *engine.Game {
	if cfg == nil {
		cfg = config.Default()
	}
	tg := &TestGame{shaderDir: cfg.Shaders.Dir}
	return &engine.Game{
		ApplicationConfig: &engine.ApplicationConfig{
			Name:        cfg.Window.Title,
			Config:      cfg,
			ClearColour: [4]float32{0.05, 0.06, 0.09, 1},
			LimitFrames: !cfg.Device.VSync,
		},
		State:        tg,
		FnInitialize: tg.Initialize,
		FnUpdate:     tg.Update,
		FnRender:     tg.Render,
		FnOnResize:   tg.OnResize,
		FnShutdown:   tg.Shutdown,
	}
}

func (tg *TestGame) Initialize(rd *renderer.RenderDevice) error {
	var err error
	quadPath := filepath.Join(tg.shaderDir, "quad.wgsl")
	if tg.quadVS, err = rd.CompileVertexShader(quadPath, "vs_main"); err != nil {
		return err
	}
	if tg.quadFS, err = rd.CompileFragmentShader(quadPath, "fs_main"); err != nil {
		return err
	}
	meshPath := filepath.Join(tg.shaderDir, "mesh.wgsl")
	if tg.meshVS, err = rd.CompileVertexShader(meshPath, "vs_main"); err != nil {
		return err
	}
	if tg.meshFS, err = rd.CompileFragmentShader(meshPath, "fs_main"); err != nil {
		return err
	}

	tg.quadFormat = metadata.NewVertexFormat(
		metadata.VertexElement{SemanticName: "POSITION", Format: metadata.FormatRG32Float, Offset: metadata.AppendAligned},
		metadata.VertexElement{SemanticName: "TEXCOORD", Format: metadata.FormatRG32Float, Offset: metadata.AppendAligned},
	)
	tg.meshFormat = metadata.NewVertexFormat(
		metadata.VertexElement{SemanticName: "POSITION", Format: metadata.FormatRGB32Float, Offset: metadata.AppendAligned},
		metadata.VertexElement{SemanticName: "COLOR", Format: metadata.FormatRGBA32Float, Offset: metadata.AppendAligned},
	)

	bm, err := loadBitmap(texturePath)
	if err != nil {
		return err
	}
	tg.texture = rd.CreateTexture(bm)
	tg.sampler = rd.CreateSampler(metadata.FilterLinear, metadata.AddressWrap)
	tg.quad = rd.AllocateDynamicBuffer(6 * quadStride)
	tg.quadCB = rd.CreateConstantBuffer(64)

	vertices, indices := hexagon(120)
	tg.meshVB = rd.CreateVertexBuffer(math.Vertex3DBytes(vertices))
	tg.meshIB = rd.CreateIndexBuffer(math.Uint16Bytes(indices), metadata.FormatR16Uint)
	tg.meshCB = rd.CreateConstantBuffer(64)
	tg.meshTransform = math.TransformCreate()

	core.LogInfo("testbed ready: %d input layouts, %d dynamic buffers", rd.InputLayoutCount(), rd.DynamicBufferCount())
	return nil
}

func (tg *TestGame) Update(deltaTime float64) error {
	tg.elapsed += deltaTime
	tg.meshTransform.SetPosition(math.NewVec3(float32(tg.width)*0.7, float32(tg.height)*0.5, 0))
	tg.meshTransform.Rotate(float32(deltaTime))
	return nil
}

func (tg *TestGame) Render(rd *renderer.RenderDevice, deltaTime float64) error {
	rd.SetPrimitiveTopology(metadata.TopologyTriangleList)
	rd.SetRasterizerMode(metadata.FillSolid, metadata.CullNone, metadata.ScissorDisabled)

	// The quad bobs up and down, so its vertices are rewritten every frame.
	rd.UploadDynamic(tg.quad, math.Vertex2DBytes(tg.quadVertices()))
	rd.UpdateConstantBuffer(tg.quadCB, tg.projection.Bytes())
	rd.SetInputLayoutDescription(tg.quadFormat)
	rd.BindVertexShader(tg.quadVS)
	rd.BindFragmentShader(tg.quadFS)
	rd.BindDynamicVertexBuffer(0, tg.quad, quadStride, 0)
	rd.BindConstantBuffer(metadata.StageVertex, 0, tg.quadCB)
	rd.BindTexture(0, tg.texture)
	rd.BindSampler(0, tg.sampler)
	rd.Draw(6, 0)

	model := tg.meshTransform.GetLocal()
	rd.UpdateConstantBuffer(tg.meshCB, model.Mul(tg.projection).Bytes())
	rd.SetInputLayoutDescription(tg.meshFormat)
	rd.BindVertexShader(tg.meshVS)
	rd.BindFragmentShader(tg.meshFS)
	rd.BindVertexBuffer(0, tg.meshVB, meshStride, 0)
	rd.BindIndexBuffer(tg.meshIB, 0)
	rd.BindConstantBuffer(metadata.StageVertex, 0, tg.meshCB)
	rd.DrawIndexed(tg.meshIB.Count(), 0, 0)
	return nil
}

func (tg *TestGame) OnResize(width uint32, height uint32) error {
	tg.width, tg.height = width, height
	// Pixel coordinates with the origin in the bottom left corner.
	tg.projection = math.NewMat4Orthographic(0, float32(width), 0, float32(height), -1, 1)
	return nil
}

// Shutdown releases what the game created. The device releases anything
// left over itself.
func (tg *TestGame) Shutdown(rd *renderer.RenderDevice) error {
	if tg.meshCB == nil {
		return nil
	}
	if tg.quad.Valid() {
		rd.ReleaseDynamicBuffer(tg.quad)
		tg.quad = renderer.DynamicBuffer{}
	}
	tg.texture.Release()
	tg.sampler.Release()
	tg.quadCB.Release()
	tg.meshVB.Release()
	tg.meshIB.Release()
	tg.meshCB.Release()
	return nil
}

func (tg *TestGame) quadVertices() []math.Vertex2D {
	x := float32(tg.width) * 0.3
	y := float32(tg.height)*0.5 + 40*float32(gomath.Sin(tg.elapsed*2))
	h := float32(quadSize) / 2
	tl := math.Vertex2D{Position: math.NewVec2(x-h, y+h), Texcoord: math.NewVec2(0, 0)}
	tr := math.Vertex2D{Position: math.NewVec2(x+h, y+h), Texcoord: math.NewVec2(1, 0)}
	bl := math.Vertex2D{Position: math.NewVec2(x-h, y-h), Texcoord: math.NewVec2(0, 1)}
	br := math.Vertex2D{Position: math.NewVec2(x+h, y-h), Texcoord: math.NewVec2(1, 1)}
	return []math.Vertex2D{tl, bl, br, tl, br, tr}
}

// hexagon builds a triangle fan around the origin with a coloured rim.
func hexagon(radius float32) ([]math.Vertex3D, []uint16) {
	vertices := []math.Vertex3D{{Colour: math.NewVec4(1, 1, 1, 1)}}
	rim := []math.Vec4{
		math.NewVec4(1, 0, 0, 1), math.NewVec4(1, 1, 0, 1), math.NewVec4(0, 1, 0, 1),
		math.NewVec4(0, 1, 1, 1), math.NewVec4(0, 0, 1, 1), math.NewVec4(1, 0, 1, 1),
	}
	var indices []uint16
	for i, c := range rim {
		p := math.NewVec3(radius, 0, 0).Transform(math.NewMat4EulerZ(math.DegToRad(float32(60 * i))))
		vertices = append(vertices, math.Vertex3D{Position: p, Colour: c})
		next := uint16(i+1)%uint16(len(rim)) + 1
		indices = append(indices, 0, uint16(i+1), next)
	}
	return vertices, indices
}

func loadBitmap(path string) (*metadata.Bitmap, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return loaders.ToBitmap(checkerboard(64, 8), loaders.ImageParams{}), nil
		}
		return nil, err
	}
	res, err := (&loaders.ImageLoader{}).Load(path, &loaders.ImageParams{MaxSize: 1024})
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	return res.Data.(*metadata.Bitmap), nil
}

func checkerboard(size, cell int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	light := color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	dark := color.RGBA{R: 0x30, G: 0x60, B: 0xa0, A: 0xff}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.Set(x, y, light)
			} else {
				img.Set(x, y, dark)
			}
		}
	}
	return img
}
