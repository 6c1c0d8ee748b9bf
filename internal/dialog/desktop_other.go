// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !windows

package dialog

import "errors"

type noDesktop struct{}

// SystemDesktop returns a desktop with no windows; dialog suppression is
// only meaningful for the Windows automation hosts.
func SystemDesktop() Desktop {
	return noDesktop{}
}

func (noDesktop) FindWindow(string) (Window, bool) { return 0, false }

func (noDesktop) Dismiss(Window, rune) error {
	return errors.New("no desktop session")
}
