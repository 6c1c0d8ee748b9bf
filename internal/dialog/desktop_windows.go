// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build windows

package dialog

import (
	"fmt"
	"time"
	"unicode"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	wmKeyDown = 0x0100
	wmKeyUp   = 0x0101

	// focusDelay lets the dialog take focus before the key press arrives.
	focusDelay = 100 * time.Millisecond
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procFindWindowW         = user32.NewProc("FindWindowW")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procSendMessageW        = user32.NewProc("SendMessageW")
)

type user32Desktop struct{}

// SystemDesktop returns the desktop of the interactive Windows session.
func SystemDesktop() Desktop {
	return user32Desktop{}
}

func (user32Desktop) FindWindow(title string) (Window, bool) {
	p, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, false
	}
	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(p)))
	return Window(hwnd), hwnd != 0
}

func (user32Desktop) Dismiss(w Window, key rune) error {
	if err := procSendMessageW.Find(); err != nil {
		return fmt.Errorf("loading SendMessageW: %w", err)
	}
	procSetForegroundWindow.Call(uintptr(w))
	time.Sleep(focusDelay)

	vk := uintptr(unicode.ToUpper(key))
	procSendMessageW.Call(uintptr(w), wmKeyDown, vk, 0)
	procSendMessageW.Call(uintptr(w), wmKeyUp, vk, 0)
	return nil
}
