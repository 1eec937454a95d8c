//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every unit test.
func (Test) Unit() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs every unit test with the race detector, which needs cgo.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./..."), withEnv("CGO_ENABLED=1"), withStream())
	return err
}
