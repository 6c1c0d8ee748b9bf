// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRejectsBadOutput(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	garbage := filepath.Join(dir, "garbage.pdf")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a pdf document"), 0o644))

	tests := []struct {
		name    string
		path    string
		wantMsg string
	}{
		{"missing file", filepath.Join(dir, "missing.pdf"), "output missing"},
		{"empty file", empty, "is empty"},
		{"not a pdf", garbage, "validating"},
	}

	v := NewPDFVerifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, err := v.Verify(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Zero(t, pages)
		})
	}
}

// writePDF writes a minimal PDF with the given number of blank pages and a
// cross-reference table pointing at each object.
func writePDF(t *testing.T, path string, pages int) {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	object("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for range pages {
		object("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestVerifyCountsPages(t *testing.T) {
	dir := t.TempDir()
	v := NewPDFVerifier()

	for _, n := range []int{1, 2} {
		path := filepath.Join(dir, fmt.Sprintf("doc%d.pdf", n))
		writePDF(t, path, n)

		pages, err := v.Verify(path)
		require.NoError(t, err)
		assert.Equal(t, n, pages)
	}
}
