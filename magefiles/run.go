//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed. TRIFRAME_CONFIG points at a TOML file to load and watch.
func (Run) Engine() error {
	args := []string{"run", "main.go"}
	if path := os.Getenv("TRIFRAME_CONFIG"); path != "" {
		args = append(args, "-config", path, "-watch")
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs a fixed number of headless frames and exits.
func (Run) Frames() error {
	mg.Deps(Build.Binary)
	if _, err := executeCmd("bin/triframe", withArgs("-frames", "300"), withStream()); err != nil {
		return err
	}
	return nil
}
