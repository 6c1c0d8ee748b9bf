// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enumerate lists the input documents of a conversion run and
// derives one ConversionJob per file.
//
// Enumeration order follows the extension groups (.hwp before .hwpx, .doc
// before .docx) and, within an extension, the directory listing order. The
// listing order is an implementation detail and must not be relied on.
package enumerate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/doc2pdf/pkg/types"
)

var (
	// ErrInputDirUnset is returned when no input directory was given.
	ErrInputDirUnset = errors.New("input directory not set")

	// ErrDirectoryNotFound is returned when the input directory does not exist.
	ErrDirectoryNotFound = errors.New("directory not found")
)

// CheckInputDir verifies that dir is set and names an existing directory.
func CheckInputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return ErrInputDirUnset
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return fmt.Errorf("checking input directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}
	return nil
}

// Files returns the paths in dir whose extension belongs to family. A missing
// or unreadable directory yields an empty result; callers validate the
// directory with CheckInputDir first. Subdirectories are not descended.
func Files(dir string, family types.Family) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	byFormat := make(map[types.FormatKind][]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind, ok := types.FormatOf(e.Name())
		if !ok || kind.Family() != family {
			continue
		}
		byFormat[kind] = append(byFormat[kind], filepath.Join(dir, e.Name()))
	}

	var files []string
	for _, kind := range types.FamilyFormats[family] {
		files = append(files, byFormat[kind]...)
	}
	return files
}

// NewJob derives the job for source. The output path is outputDir joined
// with the source stem and ".pdf". ok is false for unsupported extensions.
func NewJob(source, outputDir string) (job types.ConversionJob, ok bool) {
	kind, ok := types.FormatOf(source)
	if !ok {
		return types.ConversionJob{}, false
	}
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return types.ConversionJob{
		SourcePath: source,
		OutputPath: filepath.Join(outputDir, stem+".pdf"),
		Format:     kind,
	}, true
}

// Jobs enumerates inputDir for family and derives one job per file.
func Jobs(inputDir, outputDir string, family types.Family) []types.ConversionJob {
	files := Files(inputDir, family)
	jobs := make([]types.ConversionJob, 0, len(files))
	for _, f := range files {
		if job, ok := NewJob(f, outputDir); ok {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// Count returns the number of matching files per family in dir.
func Count(dir string) map[types.Family]int {
	return map[types.Family]int{
		types.FamilyEditor: len(Files(dir, types.FamilyEditor)),
		types.FamilyWord:   len(Files(dir, types.FamilyWord)),
	}
}
