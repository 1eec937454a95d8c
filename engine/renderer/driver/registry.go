package driver

import (
	"fmt"
	"sync"
)

// DriverType selects how the device is backed.
type DriverType uint8

const (
	// Hardware is the GPU backed driver.
	Hardware DriverType = iota
	// Warp is the fast software driver.
	Warp
	// Reference is the fully validating software driver.
	Reference
)

func (t DriverType) String() string {
	switch t {
	case Hardware:
		return "hardware"
	case Warp:
		return "warp"
	case Reference:
		return "reference"
	}
	return fmt.Sprintf("DriverType(%d)", uint8(t))
}

func ParseDriverType(s string) (DriverType, error) {
	switch s {
	case "hardware":
		return Hardware, nil
	case "warp":
		return Warp, nil
	case "reference":
		return Reference, nil
	}
	return 0, fmt.Errorf("unknown driver type `%s`", s)
}

/**
 * @brief Parameters for device and swapchain creation.
 */
type CreateParams struct {
	AppName     string
	Width       uint32
	Height      uint32
	BufferCount uint32
	Format      Format
	Debug       bool
	VSync       bool
	// Window is the platform window backing the swapchain, nil when headless.
	// Hardware drivers require it and fail with ErrUnsupported without one.
	Window interface{}
}

/**
 * @brief A registered driver implementation.
 */
type Driver interface {
	Type() DriverType
	Name() string
	// Open creates the device, its immediate context and the swapchain.
	Open(params CreateParams) (Device, Context, SwapChain, error)
}

var (
	driversMu sync.Mutex
	drivers   = map[DriverType]Driver{}
)

// Register makes a driver available by type. A later registration for the
// same type replaces the earlier one.
func Register(drv Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[drv.Type()] = drv
}

// Lookup returns the driver registered for t.
func Lookup(t DriverType) (Driver, error) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drv, ok := drivers[t]
	if !ok {
		return nil, &Error{Op: "Lookup", Code: ResultNotInstalled, Detail: t.String()}
	}
	return drv, nil
}

// Drivers returns the registered drivers ordered by type.
func Drivers() []Driver {
	driversMu.Lock()
	defer driversMu.Unlock()
	out := make([]Driver, 0, len(drivers))
	for t := Hardware; t <= Reference; t++ {
		if drv, ok := drivers[t]; ok {
			out = append(out, drv)
		}
	}
	return out
}
