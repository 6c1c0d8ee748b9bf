// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine defines the document automation capability the converters
// drive and the registry that maps engine families to backends.
//
// Production backends bind to the vendor COM automation objects and exist
// only on Windows. On other platforms the default registry is empty and every
// family reports ErrEngineUnavailable.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pdiddy/doc2pdf/pkg/types"
)

var (
	// ErrEngineUnavailable is returned when no automation backend is
	// registered for a family.
	ErrEngineUnavailable = errors.New("no automation backend available")

	// ErrHostUnavailable is returned when a backend exists but its host
	// application cannot be started.
	ErrHostUnavailable = errors.New("automation host unavailable")
)

// OpenOptions carries backend-specific open settings.
type OpenOptions struct {
	// Flags is passed verbatim to backends that accept an option string
	// (the Hangul Open call). Other backends ignore it.
	Flags string
}

// DocumentEngine is a live automation session holding at most one open
// document. Implementations are not safe for concurrent use; one converter
// owns a session from creation until Quit.
type DocumentEngine interface {
	// Open loads the document at path using the given format discriminator.
	Open(path string, format types.FormatKind, opts OpenOptions) error

	// ExportPDF saves the open document to path as PDF.
	ExportPDF(path string) error

	// ClearDocument closes the open document so the next Open starts clean.
	ClearDocument() error

	// Quit shuts the automation host down and releases the session.
	Quit() error
}

// Factory starts a new automation session.
type Factory func() (DocumentEngine, error)

// Registry maps engine families to backend factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[types.Family]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[types.Family]Factory)}
}

// Default returns a registry holding the backends available on this platform.
func Default() *Registry {
	r := NewRegistry()
	registerPlatform(r)
	return r
}

// Register installs f as the backend for family, replacing any previous one.
func (r *Registry) Register(family types.Family, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[family] = f
}

// Available reports whether a backend is registered for family.
func (r *Registry) Available(family types.Family) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[family]
	return ok
}

// Open starts a session for family. It returns an error wrapping
// ErrEngineUnavailable when no backend is registered, and one wrapping
// ErrHostUnavailable when the backend fails to start its host.
func (r *Registry) Open(family types.Family) (DocumentEngine, error) {
	r.mu.RLock()
	f, ok := r.factories[family]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for %s documents", ErrEngineUnavailable, family.Label())
	}

	eng, err := f()
	if err != nil {
		if errors.Is(err, ErrEngineUnavailable) || errors.Is(err, ErrHostUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: starting %s: %v", ErrHostUnavailable, family.Label(), err)
	}
	return eng, nil
}
