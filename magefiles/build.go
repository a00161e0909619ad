//go:build mage

// Package main holds the mage targets for nutrihub.
//
//	mage build       compile bin/nutrihub
//	mage install     copy the binary to GOPATH/bin
//	mage clean       remove build artifacts
//	mage test:all    run every test
//	mage test:unit   run tests in short mode
//	mage test:cover  write coverage.out and print a summary
//	mage lint        run golangci-lint
//	mage smoke       build and drive the binary through a scratch store
//	mage stats       print code and test lines per package
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "nutrihub"
	binaryDir  = "bin"
	cmdDir     = "./cmd/nutrihub"
)

// Build compiles the nutrihub binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	for _, path := range []string{binaryDir, coverProfile} {
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Smoke builds the binary and runs a short session against a scratch store.
func Smoke() error {
	mg.Deps(Build)
	dir, err := os.MkdirTemp("", "nutrihub-smoke-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	bin := filepath.Join(binaryDir, binaryName)
	base := []string{"--config-dir", filepath.Join(dir, "config"), "--data-dir", filepath.Join(dir, "data")}
	steps := [][]string{
		{"init"},
		{"plan", "create", "--name", "Smoke", "--meal", "Breakfast=Bread:1:un"},
		{"patient", "add", "--name", "Smoke", "--age", "30", "--height", "1.7", "--weight", "70"},
		{"patient", "assign-template", "1", "1"},
		{"plan", "show", "2"},
	}
	for _, step := range steps {
		if err := sh.RunV(bin, append(base, step...)...); err != nil {
			return err
		}
	}
	return nil
}
