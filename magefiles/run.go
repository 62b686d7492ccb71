//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds the shaders and renders with the default configuration.
func (Run) Render() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run renderer...")
	if _, err := executeCmd("go", withArgs("run", "main.go"), withStream()); err != nil {
		return err
	}
	return nil
}
