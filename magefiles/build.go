//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Downloads the modules and builds the demo binary into bin/.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("mod", "download")); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", "bin/anima-gfx", "."), withStream())
	return err
}

type Shaders mg.Namespace

// Compiles every WGSL file under assets/shaders and fails on the first broken entry point.
func (Shaders) Validate() error {
	_, err := executeCmd("go", withArgs("run", ".", "-validate-shaders"), withStream())
	return err
}
