package soft

import (
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

type SwapChain struct {
	object
	format  driver.Format
	width   uint32
	height  uint32
	buffers []*Texture2D
	current uint32
	// Presents counts successful Present calls.
	Presents int
	Resizes  int
}

func newSwapChain(dev *Device, count, width, height uint32, format driver.Format) (*SwapChain, error) {
	sc := &SwapChain{format: format}
	if err := sc.allocate(dev, count, width, height); err != nil {
		return nil, err
	}
	dev.track(&sc.object, driver.KindSwapChain)
	sc.onDestroy = sc.releaseBuffers
	return sc, nil
}

func (sc *SwapChain) allocate(dev *Device, count, width, height uint32) error {
	desc := driver.Texture2DDesc{
		Width:     width,
		Height:    height,
		MipLevels: 1,
		ArraySize: 1,
		Format:    sc.format,
		Usage:     driver.UsageDefault,
		BindFlags: driver.BindRenderTarget | driver.BindShaderResource,
	}
	buffers := make([]*Texture2D, 0, count)
	for i := uint32(0); i < count; i++ {
		tex, err := dev.CreateTexture2D(desc, nil)
		if err != nil {
			for _, b := range buffers {
				b.Release()
			}
			return err
		}
		buffers = append(buffers, tex.(*Texture2D))
	}
	sc.buffers = buffers
	sc.width, sc.height = width, height
	sc.current = 0
	return nil
}

func (sc *SwapChain) releaseBuffers() {
	for _, b := range sc.buffers {
		b.Release()
	}
	sc.buffers = nil
}

func (sc *SwapChain) BufferCount() uint32 {
	return uint32(len(sc.buffers))
}

func (sc *SwapChain) Size() (uint32, uint32) {
	return sc.width, sc.height
}

// Current is the index of the back buffer the next frame renders into.
func (sc *SwapChain) Current() uint32 {
	return sc.current
}

func (sc *SwapChain) GetBuffer(i uint32) (driver.Texture2D, error) {
	if i >= uint32(len(sc.buffers)) {
		return nil, invalidArg("GetBuffer", "back buffer %d of %d", i, len(sc.buffers))
	}
	b := sc.buffers[i]
	b.AddRef()
	return b, nil
}

func (sc *SwapChain) ResizeBuffers(width, height uint32) error {
	const op = "ResizeBuffers"
	if width == 0 || height == 0 {
		return invalidArg(op, "size %dx%d", width, height)
	}
	for i, b := range sc.buffers {
		if b.refs > 1 {
			return driver.Errorf(op, driver.ResultInvalidCall, "back buffer %d still has %d outside references", i, b.refs-1)
		}
	}
	count := uint32(len(sc.buffers))
	sc.releaseBuffers()
	if err := sc.allocate(sc.dev, count, width, height); err != nil {
		return err
	}
	sc.Resizes++
	return nil
}

func (sc *SwapChain) Present(syncInterval uint32) error {
	if syncInterval > 4 {
		return invalidArg("Present", "sync interval %d", syncInterval)
	}
	sc.Presents++
	sc.current = (sc.current + 1) % uint32(len(sc.buffers))
	return nil
}
