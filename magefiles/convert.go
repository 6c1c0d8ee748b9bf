//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert builds the CLI and converts the documents in $DOC2PDF_INPUT into
// $DOC2PDF_OUTPUT (default: output/pdf).
func Convert() error {
	mg.Deps(Build)

	input := os.Getenv("DOC2PDF_INPUT")
	if input == "" {
		return fmt.Errorf("DOC2PDF_INPUT is not set")
	}
	output := os.Getenv("DOC2PDF_OUTPUT")
	if output == "" {
		output = filepath.Join("output", "pdf")
	}
	return sh.RunV(filepath.Join(binDir, binName), "convert", "--input", input, "--output", output)
}

// Scan builds the CLI and lists the convertible documents in $DOC2PDF_INPUT.
func Scan() error {
	mg.Deps(Build)

	input := os.Getenv("DOC2PDF_INPUT")
	if input == "" {
		return fmt.Errorf("DOC2PDF_INPUT is not set")
	}
	return sh.RunV(filepath.Join(binDir, binName), "scan", "--list", "--input", input)
}
