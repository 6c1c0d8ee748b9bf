// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build windows

package engine

import (
	"errors"
	"fmt"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/pdiddy/doc2pdf/pkg/types"
)

const (
	wordProgID = "Word.Application"

	wdAlertsNone       = 0
	wdFormatPDF        = 17
	wdDoNotSaveChanges = 0
)

// wordEngine drives Microsoft Word. It holds the application object and the
// currently open document, if any.
type wordEngine struct {
	app *comObject
	doc *ole.IDispatch
}

// NewWordEngine starts a hidden Word instance with alerts disabled.
func NewWordEngine() (DocumentEngine, error) {
	app, err := startCOM(wordProgID)
	if err != nil {
		return nil, err
	}
	if err := app.put("Visible", false); err != nil {
		app.release()
		return nil, fmt.Errorf("%w: %v", ErrHostUnavailable, err)
	}
	_ = app.put("DisplayAlerts", wdAlertsNone)
	return &wordEngine{app: app}, nil
}

func (e *wordEngine) Open(path string, format types.FormatKind, opts OpenOptions) error {
	if format.Family() != types.FamilyWord {
		return fmt.Errorf("word engine cannot open %s documents", format)
	}
	if e.doc != nil {
		_ = e.ClearDocument()
	}

	docs, err := oleutil.GetProperty(e.app.disp, "Documents")
	if err != nil {
		return fmt.Errorf("Documents: %w", err)
	}
	defer docs.Clear()

	// FileName, ConfirmConversions, ReadOnly, AddToRecentFiles.
	v, err := oleutil.CallMethod(docs.ToIDispatch(), "Open", path, false, true, false)
	if err != nil {
		return fmt.Errorf("Documents.Open: %w", err)
	}
	doc := v.ToIDispatch()
	if doc == nil {
		v.Clear()
		return fmt.Errorf("Documents.Open returned no document for %s", path)
	}
	e.doc = doc
	return nil
}

func (e *wordEngine) ExportPDF(path string) error {
	if e.doc == nil {
		return errors.New("no open document")
	}
	return callOn(e.doc, "SaveAs2", path, wdFormatPDF)
}

func (e *wordEngine) ClearDocument() error {
	if e.doc == nil {
		return nil
	}
	doc := e.doc
	e.doc = nil
	defer doc.Release()
	return callOn(doc, "Close", wdDoNotSaveChanges)
}

func (e *wordEngine) Quit() error {
	defer e.app.release()
	clearErr := e.ClearDocument()
	quitErr := e.app.call("Quit", wdDoNotSaveChanges)
	return errors.Join(clearErr, quitErr)
}
