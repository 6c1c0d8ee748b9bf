// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build windows

package engine

import (
	"errors"
	"fmt"
	"runtime"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// sFalse is the HRESULT CoInitializeEx returns when COM is already
// initialized on the thread.
const sFalse = 0x1

// comObject is an apartment-threaded automation object. The goroutine that
// creates it stays locked to its OS thread until release, so every call on
// the object must come from that goroutine.
type comObject struct {
	progID string
	disp   *ole.IDispatch
}

func startCOM(progID string) (*comObject, error) {
	runtime.LockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			runtime.UnlockOSThread()
			return nil, fmt.Errorf("%w: initializing COM: %v", ErrEngineUnavailable, err)
		}
	}

	unknown, err := oleutil.CreateObject(progID)
	if err != nil {
		ole.CoUninitialize()
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("%w: creating %s: %v", ErrHostUnavailable, progID, err)
	}
	defer unknown.Release()

	disp, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		ole.CoUninitialize()
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("%w: %s has no IDispatch: %v", ErrHostUnavailable, progID, err)
	}
	return &comObject{progID: progID, disp: disp}, nil
}

// call invokes a method and reports a false boolean result as an error.
func (c *comObject) call(name string, params ...interface{}) error {
	return callOn(c.disp, name, params...)
}

func (c *comObject) put(name string, params ...interface{}) error {
	v, err := oleutil.PutProperty(c.disp, name, params...)
	if err != nil {
		return fmt.Errorf("setting %s.%s: %w", c.progID, name, err)
	}
	v.Clear()
	return nil
}

func (c *comObject) release() {
	c.disp.Release()
	ole.CoUninitialize()
	runtime.UnlockOSThread()
}

func callOn(disp *ole.IDispatch, name string, params ...interface{}) error {
	v, err := oleutil.CallMethod(disp, name, params...)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer v.Clear()
	if ok, isBool := v.Value().(bool); isBool && !ok {
		return fmt.Errorf("%s returned false", name)
	}
	return nil
}
