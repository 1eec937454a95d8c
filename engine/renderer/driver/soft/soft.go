// Package soft implements the driver contract in memory. It registers the
// Warp and Reference driver types. Reference additionally validates every
// bind and draw and logs what it rejects; both keep per-call counters that
// tests use as probes.
package soft

import (
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
)

func init() {
	driver.Register(&Driver{typ: driver.Warp})
	driver.Register(&Driver{typ: driver.Reference})
}

type Driver struct {
	typ driver.DriverType
}

// NewReference returns an unregistered reference driver, handy for tests.
func NewReference() *Driver {
	return &Driver{typ: driver.Reference}
}

func NewWarp() *Driver {
	return &Driver{typ: driver.Warp}
}

func (d *Driver) Type() driver.DriverType {
	return d.typ
}

func (d *Driver) Name() string {
	return "soft-" + d.typ.String()
}

func (d *Driver) Open(params driver.CreateParams) (driver.Device, driver.Context, driver.SwapChain, error) {
	if params.BufferCount == 0 {
		return nil, nil, nil, driver.Errorf("Open", driver.ResultInvalidArg, "buffer count is zero")
	}
	if params.Width == 0 || params.Height == 0 {
		return nil, nil, nil, driver.Errorf("Open", driver.ResultInvalidArg, "swapchain size %dx%d", params.Width, params.Height)
	}
	format := params.Format
	if format == driver.FormatUnknown {
		format = driver.FormatB8G8R8A8Unorm
	}

	dev := newDevice(d.typ == driver.Reference)
	ctx := newContext(dev)
	sc, err := newSwapChain(dev, params.BufferCount, params.Width, params.Height, format)
	if err != nil {
		ctx.Release()
		dev.Release()
		return nil, nil, nil, err
	}
	core.LogDebug("%s device opened: %dx%d, %d buffers", d.Name(), params.Width, params.Height, params.BufferCount)
	return dev, ctx, sc, nil
}
