package engine

import "github.com/spaghettifunk/anima-gfx/engine/config"

type ApplicationConfig struct {
	// The application name used in windowing and logs.
	Name string
	// Loaded configuration; window, device, shader and log sections.
	Config *config.Config
	// Colour the back buffer is cleared to at the start of every frame.
	ClearColour [4]float32
	// Sleep away the rest of the frame when it finished early.
	LimitFrames bool
}
