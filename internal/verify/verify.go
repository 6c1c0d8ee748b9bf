// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify checks the PDF files the automation engines produce.
package verify

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFVerifier validates a PDF with pdfcpu and returns its page count.
type PDFVerifier struct {
	conf *model.Configuration
}

// NewPDFVerifier returns a verifier using relaxed validation, which accepts
// the minor deviations common in word processor output.
func NewPDFVerifier() *PDFVerifier {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFVerifier{conf: conf}
}

// Verify checks that path holds a non-empty, valid PDF and returns its
// page count.
func (v *PDFVerifier) Verify(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("output missing: %w", err)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("output %s is empty", path)
	}

	if err := api.ValidateFile(path, v.conf); err != nil {
		return 0, fmt.Errorf("validating %s: %w", path, err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("counting pages of %s: %w", path, err)
	}
	if pages == 0 {
		return 0, fmt.Errorf("output %s has no pages", path)
	}
	return pages, nil
}
