// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build windows

package engine

import (
	"fmt"

	"github.com/pdiddy/doc2pdf/pkg/types"
)

const (
	hwpProgID = "HWPFrame.HwpObject"

	// hwpMessageBoxMode answers every Hangul message box with its default
	// button instead of showing it.
	hwpMessageBoxMode = 0x00000020

	// hwpClearDiscard drops the open document without saving.
	hwpClearDiscard = 1
)

// hwpEngine drives the Hangul word processor automation object.
type hwpEngine struct {
	obj *comObject
}

// NewHWPEngine starts a Hangul automation session. Prompt suppression is
// best effort: older hosts lack SetMessageBoxMode or the file path checker
// module and still convert.
func NewHWPEngine() (DocumentEngine, error) {
	obj, err := startCOM(hwpProgID)
	if err != nil {
		return nil, err
	}
	_ = obj.call("SetMessageBoxMode", hwpMessageBoxMode)
	_ = obj.call("RegisterModule", "FilePathCheckDLL", "FilePathCheckerModule")
	return &hwpEngine{obj: obj}, nil
}

func (e *hwpEngine) Open(path string, format types.FormatKind, opts OpenOptions) error {
	var discriminator string
	switch format {
	case types.FormatHWP:
		discriminator = "HWP"
	case types.FormatHWPX:
		discriminator = "HWPX"
	default:
		return fmt.Errorf("hangul engine cannot open %s documents", format)
	}
	return e.obj.call("Open", path, discriminator, opts.Flags)
}

func (e *hwpEngine) ExportPDF(path string) error {
	return e.obj.call("SaveAs", path, "PDF", "")
}

func (e *hwpEngine) ClearDocument() error {
	return e.obj.call("Clear", hwpClearDiscard)
}

func (e *hwpEngine) Quit() error {
	defer e.obj.release()
	return e.obj.call("Quit")
}
