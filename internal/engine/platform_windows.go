// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build windows

package engine

import "github.com/pdiddy/doc2pdf/pkg/types"

func registerPlatform(r *Registry) {
	r.Register(types.FamilyEditor, NewHWPEngine)
	r.Register(types.FamilyWord, NewWordEngine)
}
