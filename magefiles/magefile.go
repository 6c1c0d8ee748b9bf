//go:build mage

// Package main contains Mage build targets for doc2pdf developer tooling.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "doc2pdf"
	cmdPkg  = "./cmd/doc2pdf"
)

// ldflags stamps the version reported by "doc2pdf version".
func ldflags() string {
	v := os.Getenv("VERSION")
	if v == "" {
		if out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty"); err == nil {
			v = out
		} else {
			v = "dev"
		}
	}
	return "-X main.version=" + v
}

// Build compiles the CLI for the host platform into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", ldflags(), "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Windows cross-compiles bin/doc2pdf.exe. The run history needs cgo, so a
// mingw-w64 C compiler is used unless CC is already set.
func Windows() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	cc := os.Getenv("CC")
	if cc == "" {
		cc = "x86_64-w64-mingw32-gcc"
	}
	env := map[string]string{
		"GOOS":        "windows",
		"GOARCH":      "amd64",
		"CGO_ENABLED": "1",
		"CC":          cc,
	}
	out := filepath.Join(binDir, binName+".exe")
	if err := sh.RunWithV(env, "go", "build", "-ldflags", ldflags(), "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build (windows): %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Check runs go vet and the tests.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Vet runs go vet for the host and the Windows build.
func Vet() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunWithV(map[string]string{"GOOS": "windows"}, "go", "vet", "./internal/engine/...", "./internal/dialog/...")
}

// Stats prints non-blank Go line counts per package, split into production
// and test code.
func Stats() error {
	prod := map[string]int{}
	test := map[string]int{}
	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || d.Name() == ".git" || d.Name() == binDir {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := countLines(data)
		pkg := filepath.Dir(path)
		if strings.HasSuffix(path, "_test.go") {
			test[pkg] += n
		} else {
			prod[pkg] += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	pkgs := make([]string, 0, len(prod))
	for p := range prod {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)

	var totalProd, totalTest int
	fmt.Printf("%-28s %8s %8s\n", "package", "code", "tests")
	for _, p := range pkgs {
		fmt.Printf("%-28s %8d %8d\n", p, prod[p], test[p])
		totalProd += prod[p]
		totalTest += test[p]
	}
	fmt.Printf("%-28s %8d %8d\n", "total", totalProd, totalTest)
	return nil
}

// countLines counts the lines of data that hold more than whitespace.
func countLines(data []byte) int {
	n := 0
	for line := range bytes.SplitSeq(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}
