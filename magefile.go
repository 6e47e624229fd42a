//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
var Default = Build

const binary = "sqldump2xlsx"

// Build compiles the sqldump2xlsx binary into the bin/ directory, stamping
// the version from git when available.
func Build() error {
	fmt.Println("Building...")
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	return sh.Run("go", "build", "-ldflags", ldflags, "-o", "./bin/"+binary, "./cmd/"+binary)
}

// Install copies the sqldump2xlsx binary to /usr/local/bin.
func Install() error {
	mg.Deps(Build)
	fmt.Println("Installing...")
	return sh.Run("cp", "bin/"+binary, "/usr/local/bin/"+binary)
}

// Test runs all tests in the project with verbose output.
func Test() error {
	fmt.Println("Running Tests...")
	return sh.Run("go", "test", "-v", "./...")
}

// TestDump runs the dump lexer and translator tests.
func TestDump() error {
	fmt.Println("Running Dump Tests...")
	return sh.Run("go", "test", "-test.fullpath=true", "-timeout", "30s", "./converters/sqldump/...")
}

// Bench runs the benchmarks of the common helpers.
func Bench() error {
	fmt.Println("Running Benchmarks...")
	return sh.Run("go", "test", "-run", "^$", "-bench", ".", "-benchmem", "./converters/common/...")
}

// Sample converts testdata/sample.sql into test_output/ as xlsx.
func Sample() error {
	mg.Deps(Build)
	if err := os.RemoveAll("test_output"); err != nil {
		return err
	}
	return sh.RunV("./bin/"+binary, "--keep-store", "testdata/sample.sql", "test_output")
}

// Clean removes the bin directory and test outputs.
func Clean() error {
	fmt.Println("Cleaning...")
	if err := os.RemoveAll("bin"); err != nil {
		return err
	}
	if err := os.RemoveAll("test_output"); err != nil {
		return err
	}
	return nil
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println("Running go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Check runs formatting and linting checks (fmt, vet).
func Check() error {
	mg.Deps(Fmt, Vet)
	return nil
}

// Fmt runs go fmt ./...
func Fmt() error {
	fmt.Println("Running go fmt...")
	return sh.Run("go", "fmt", "./...")
}

// Vet runs go vet ./...
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}
