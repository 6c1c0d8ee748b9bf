// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders finished conversion runs as summary text and YAML.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/doc2pdf/pkg/types"
)

const rule = "=================================================="

// Summary returns the end-of-run summary lines: the terminal state and
// totals, one line per requested family followed by its failed file names,
// and the output directory.
func Summary(r *types.RunReport) []string {
	lines := []string{
		rule,
		fmt.Sprintf("run %s: %d succeeded, %d failed", r.State, r.TotalSuccess(), r.TotalFailed()),
	}

	for _, f := range r.Request.Mode.Families() {
		fr := r.Family(f)
		switch {
		case fr.Fatal != "":
			lines = append(lines, fmt.Sprintf("%s: not converted (%s)", f.Label(), fr.Fatal))
		case fr.Cancelled && fr.Attempted() == 0:
			lines = append(lines, fmt.Sprintf("%s: skipped (cancelled)", f.Label()))
		default:
			lines = append(lines, fmt.Sprintf("%s: %d succeeded, %d failed", f.Label(), fr.Success, len(fr.Failed)))
		}
		for _, name := range fr.Failed {
			lines = append(lines, "  - "+name)
		}
	}

	if r.TotalSuccess() > 0 {
		lines = append(lines, "PDF files saved to: "+r.Request.OutputDir)
	}
	return lines
}

// Text returns Summary joined with newlines.
func Text(r *types.RunReport) string {
	return strings.Join(Summary(r), "\n") + "\n"
}

// WriteYAML writes r to path as YAML, creating parent directories.
func WriteYAML(path string, r *types.RunReport) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// ReadYAML loads a report written by WriteYAML.
func ReadYAML(path string) (*types.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r types.RunReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &r, nil
}

// YAMLWriter writes every finished run to a fixed path.
type YAMLWriter struct {
	Path string
}

// Notify writes r to the writer's path.
func (w YAMLWriter) Notify(_ context.Context, r *types.RunReport) error {
	return WriteYAML(w.Path, r)
}
