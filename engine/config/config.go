package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/anima-gfx/engine/core"
)

type WindowConfig struct {
	Title  string `toml:"title"`
	X      uint32 `toml:"x"`
	Y      uint32 `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type DeviceConfig struct {
	// Driver types tried in order: "hardware", "warp", "reference".
	Drivers []string `toml:"drivers"`
	// Number of swapchain back buffers, also the dynamic buffer rotation count.
	BufferCount    uint32 `toml:"buffer_count"`
	Debug          bool   `toml:"debug"`
	ForceWireframe bool   `toml:"force_wireframe"`
	VSync          bool   `toml:"vsync"`
	// Headless skips the window and the hardware driver.
	Headless bool `toml:"headless"`
}

type DynamicConfig struct {
	MaxSlots uint32 `toml:"max_slots"`
}

type ShadersConfig struct {
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Window  WindowConfig  `toml:"window"`
	Device  DeviceConfig  `toml:"device"`
	Dynamic DynamicConfig `toml:"dynamic"`
	Shaders ShadersConfig `toml:"shaders"`
	Log     LogConfig     `toml:"log"`
}

var knownDrivers = map[string]struct{}{
	"hardware":  {},
	"warp":      {},
	"reference": {},
}

func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "Anima Engine",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Device: DeviceConfig{
			Drivers:     []string{"hardware", "warp", "reference"},
			BufferCount: 2,
			Debug:       true,
			VSync:       true,
		},
		Dynamic: DynamicConfig{
			MaxSlots: 64,
		},
		Shaders: ShadersConfig{
			Dir:   "assets/shaders",
			Watch: true,
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}

// Load reads a TOML file on top of the defaults. A missing file is not an
// error: the defaults are returned and a warning is logged.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			core.LogWarn("config file `%s` not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}
	if err := Parse(data, cfg); err != nil {
		err = fmt.Errorf("failed to parse config `%s`: %w", path, err)
		core.LogError("%s", err)
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if len(c.Device.Drivers) == 0 {
		return errors.New("device.drivers must list at least one driver type")
	}
	for _, d := range c.Device.Drivers {
		if _, ok := knownDrivers[d]; !ok {
			return fmt.Errorf("unknown driver type `%s`", d)
		}
	}
	if c.Device.BufferCount < 1 || c.Device.BufferCount > 4 {
		return fmt.Errorf("device.buffer_count must be in [1, 4], got %d", c.Device.BufferCount)
	}
	if c.Dynamic.MaxSlots == 0 {
		return errors.New("dynamic.max_slots must be greater than zero")
	}
	if !c.Device.Headless && (c.Window.Width == 0 || c.Window.Height == 0) {
		return fmt.Errorf("window size %dx%d is invalid", c.Window.Width, c.Window.Height)
	}
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Encode writes the configuration back out as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
