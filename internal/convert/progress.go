// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"io"
	"sync"
)

// Progress receives operator-facing output: free-text lines and a
// current-status string. Implementations must be safe for concurrent use.
type Progress interface {
	Line(msg string)
	Status(msg string)
}

// Discard drops all progress output.
var Discard Progress = discard{}

type discard struct{}

func (discard) Line(string)   {}
func (discard) Status(string) {}

// WriterProgress writes lines to an io.Writer and keeps the latest status.
type WriterProgress struct {
	mu      sync.Mutex
	w       io.Writer
	statusW io.Writer
	status  string
}

// NewWriterProgress returns a Progress that prints each line to w.
func NewWriterProgress(w io.Writer) *WriterProgress {
	return &WriterProgress{w: w}
}

// EchoStatus also prints every status change to w, prefixed with "status: ".
func (p *WriterProgress) EchoStatus(w io.Writer) *WriterProgress {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusW = w
	return p
}

func (p *WriterProgress) Line(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, msg)
}

func (p *WriterProgress) Status(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = msg
	if p.statusW != nil {
		fmt.Fprintf(p.statusW, "status: %s\n", msg)
	}
}

// Current returns the most recent status string.
func (p *WriterProgress) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}
