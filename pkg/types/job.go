// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Mode selects which engine families a conversion run drives.
type Mode string

const (
	ModeEditor   Mode = "hwp"
	ModeWord     Mode = "word"
	ModeCombined Mode = "all"
)

// ParseMode converts a mode name ("hwp", "word", "all") to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeEditor, ModeWord, ModeCombined:
		return m, nil
	}
	return "", fmt.Errorf("unknown conversion mode %q (want hwp, word, or all)", s)
}

// Families returns the engine families the mode runs, in processing order.
// Combined mode always runs the editor family before the word family.
func (m Mode) Families() []Family {
	switch m {
	case ModeEditor:
		return []Family{FamilyEditor}
	case ModeWord:
		return []Family{FamilyWord}
	case ModeCombined:
		return []Family{FamilyEditor, FamilyWord}
	}
	return nil
}

// Family identifies an external automation engine family.
type Family string

const (
	FamilyEditor Family = "hwp"
	FamilyWord   Family = "word"
)

// Label returns the human-readable family name used in progress output.
func (f Family) Label() string {
	switch f {
	case FamilyEditor:
		return "Hangul"
	case FamilyWord:
		return "Word"
	}
	return string(f)
}

// FormatKind is the source document format, derived from the file extension.
type FormatKind string

const (
	FormatHWP  FormatKind = "hwp"  // Hangul native compound file
	FormatHWPX FormatKind = "hwpx" // Hangul packaged XML
	FormatDOC  FormatKind = "doc"  // Word legacy binary
	FormatDOCX FormatKind = "docx" // Word packaged XML
)

// Family returns the engine family able to open the format.
func (k FormatKind) Family() Family {
	switch k {
	case FormatHWP, FormatHWPX:
		return FamilyEditor
	case FormatDOC, FormatDOCX:
		return FamilyWord
	}
	return ""
}

// FamilyFormats lists the formats of each family in enumeration order.
var FamilyFormats = map[Family][]FormatKind{
	FamilyEditor: {FormatHWP, FormatHWPX},
	FamilyWord:   {FormatDOC, FormatDOCX},
}

// FormatOf returns the FormatKind for path's extension, compared
// case-insensitively. ok is false for unsupported extensions.
func FormatOf(path string) (kind FormatKind, ok bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch k := FormatKind(ext); k {
	case FormatHWP, FormatHWPX, FormatDOC, FormatDOCX:
		return k, true
	}
	return "", false
}

// ConversionRequest describes one conversion run. It is not modified while
// the run is in progress.
type ConversionRequest struct {
	InputDir  string `json:"input_dir" yaml:"input_dir"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	Mode      Mode   `json:"mode" yaml:"mode"`
}

// ConversionJob is one source file pending conversion.
type ConversionJob struct {
	SourcePath string     `json:"source_path" yaml:"source_path"`
	OutputPath string     `json:"output_path" yaml:"output_path"`
	Format     FormatKind `json:"format" yaml:"format"`
}

// Name returns the source file name without its directory.
func (j ConversionJob) Name() string {
	return filepath.Base(j.SourcePath)
}

// OutcomeResult is the result of converting one job.
type OutcomeResult string

const (
	ResultSuccess OutcomeResult = "success"
	ResultFailed  OutcomeResult = "failed"
)

// ConversionOutcome records how a single job ended.
type ConversionOutcome struct {
	Job    ConversionJob `json:"job" yaml:"job"`
	Result OutcomeResult `json:"result" yaml:"result"`

	// Reason is the failure message; empty on success.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Pages is the page count of the produced PDF when output verification
	// is enabled, zero otherwise.
	Pages int `json:"pages,omitempty" yaml:"pages,omitempty"`
}
