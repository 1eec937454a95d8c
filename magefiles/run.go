//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Validates the shaders and runs the demo with config.toml.
func (Run) Engine() error {
	mg.Deps(Shaders.Validate)
	fmt.Println("Run engine...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", "config.toml"), withStream())
	return err
}
