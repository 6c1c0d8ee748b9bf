// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !windows

package engine

// COM automation exists only on Windows.
func registerPlatform(r *Registry) {}
