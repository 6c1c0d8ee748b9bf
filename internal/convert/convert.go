// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert drives one automation engine family through a batch of
// conversion jobs.
//
// An Adapter opens a single engine session per batch, converts jobs strictly
// in order, isolates per-job failures, and quits the session exactly once on
// every exit path.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/doc2pdf/internal/engine"
	"github.com/pdiddy/doc2pdf/pkg/types"
)

// Engines starts automation sessions. *engine.Registry implements it.
type Engines interface {
	Open(family types.Family) (engine.DocumentEngine, error)
}

// Suppressor clears modal dialogs around a blocking open call.
// *dialog.Suppressor implements it.
type Suppressor interface {
	// Watch runs until ctx is done or it has dismissed a dialog.
	Watch(ctx context.Context) error

	// Recheck polls for dialogs raised after open returned and reports
	// how many it dismissed.
	Recheck() int

	// Dismissed returns the number of dialogs dismissed so far.
	Dismissed() int64
}

// Verifier checks a produced PDF and returns its page count.
type Verifier interface {
	Verify(path string) (int, error)
}

// Adapter converts batches of jobs for one engine family.
type Adapter struct {
	family     types.Family
	engines    Engines
	suppressor Suppressor
	verifier   Verifier
	openOpts   engine.OpenOptions
	progress   Progress
	logger     *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithSuppressor runs s concurrently with every open call.
func WithSuppressor(s Suppressor) Option {
	return func(a *Adapter) { a.suppressor = s }
}

// WithVerifier checks every exported PDF with v.
func WithVerifier(v Verifier) Option {
	return func(a *Adapter) { a.verifier = v }
}

// WithOpenOptions sets the options passed to every open call.
func WithOpenOptions(o engine.OpenOptions) Option {
	return func(a *Adapter) { a.openOpts = o }
}

// WithProgress sends operator output to p.
func WithProgress(p Progress) Option {
	return func(a *Adapter) { a.progress = p }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// NewAdapter returns an adapter for family that starts sessions from engines.
func NewAdapter(family types.Family, engines Engines, opts ...Option) *Adapter {
	a := &Adapter{
		family:   family,
		engines:  engines,
		progress: Discard,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(a)
	}
	a.logger = a.logger.With("component", "convert", "family", string(family))
	return a
}

// Family returns the engine family the adapter drives.
func (a *Adapter) Family() types.Family {
	return a.family
}

// ConvertBatch converts jobs in order with one engine session.
//
// If no session can be started it returns the error (wrapping
// engine.ErrEngineUnavailable or engine.ErrHostUnavailable) and a report with
// Fatal set and no jobs attempted. Otherwise the error is nil: job failures
// are recorded in the report and the batch continues. Cancellation of ctx is
// checked before each job; a job already in progress runs to completion.
func (a *Adapter) ConvertBatch(ctx context.Context, jobs []types.ConversionJob) (types.ConversionReport, error) {
	report := types.ConversionReport{Family: a.family}
	if len(jobs) == 0 {
		return report, nil
	}

	total := len(jobs)
	a.progress.Line(fmt.Sprintf("converting %d %s file(s)", total, a.family.Label()))

	eng, err := a.engines.Open(a.family)
	if err != nil {
		a.logger.Error("starting engine failed", "error", err)
		a.progress.Line(fmt.Sprintf("error: %v", err))
		report.Fatal = err.Error()
		return report, err
	}
	defer bestEffort(a.logger, "quit engine", eng.Quit)

	for i, job := range jobs {
		if ctx.Err() != nil {
			report.Cancelled = true
			a.progress.Line("stopping: cancellation requested")
			a.logger.Info("batch cancelled", "processed", i, "remaining", total-i)
			break
		}

		n := i + 1
		a.progress.Status(fmt.Sprintf("converting %s files... (%d/%d) %s", a.family.Label(), n, total, job.Name()))
		a.progress.Line(fmt.Sprintf("[%d/%d] converting: %s", n, total, job.Name()))

		outcome := a.convertJob(ctx, eng, job)
		report.Record(outcome)

		if outcome.Result == types.ResultSuccess {
			a.progress.Line(fmt.Sprintf("converted: %s", job.Name()))
		} else {
			a.progress.Line(fmt.Sprintf("failed:  %s (%s)", job.Name(), outcome.Reason))
		}
	}

	attrs := []any{"success", report.Success, "failed", len(report.Failed), "cancelled", report.Cancelled}
	if a.suppressor != nil {
		attrs = append(attrs, "dialogs_dismissed", a.suppressor.Dismissed())
	}
	a.logger.Info("batch finished", attrs...)
	return report, nil
}

// convertJob runs one job and turns any error, or a panic from the engine,
// into a failed outcome. After a failure the document state is cleared so
// the next job starts clean.
func (a *Adapter) convertJob(ctx context.Context, eng engine.DocumentEngine, job types.ConversionJob) types.ConversionOutcome {
	outcome := types.ConversionOutcome{Job: job}

	pages, err := a.recoverJob(ctx, eng, job)
	if err != nil {
		a.logger.Warn("conversion failed", "file", job.SourcePath, "error", err)
		bestEffort(a.logger, "clear document", eng.ClearDocument)
		outcome.Result = types.ResultFailed
		outcome.Reason = err.Error()
		return outcome
	}

	outcome.Result = types.ResultSuccess
	outcome.Pages = pages
	return outcome
}

func (a *Adapter) recoverJob(ctx context.Context, eng engine.DocumentEngine, job types.ConversionJob) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return a.runJob(ctx, eng, job)
}

func (a *Adapter) runJob(ctx context.Context, eng engine.DocumentEngine, job types.ConversionJob) (int, error) {
	src, err := filepath.Abs(job.SourcePath)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", job.SourcePath, err)
	}
	dst, err := filepath.Abs(job.OutputPath)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", job.OutputPath, err)
	}

	if err := a.open(ctx, eng, src, job.Format); err != nil {
		return 0, fmt.Errorf("opening: %w", err)
	}
	if err := eng.ExportPDF(dst); err != nil {
		return 0, fmt.Errorf("exporting PDF: %w", err)
	}
	if err := eng.ClearDocument(); err != nil {
		return 0, fmt.Errorf("closing document: %w", err)
	}

	if a.verifier == nil {
		return 0, nil
	}
	pages, err := a.verifier.Verify(dst)
	if err != nil {
		return 0, fmt.Errorf("verifying output: %w", err)
	}
	return pages, nil
}

// open calls eng.Open while the suppressor watches for dialogs, then re-polls
// for dialogs that appeared after the call returned. The watcher outlives a
// run cancellation: an open call in flight still needs its dialogs cleared.
func (a *Adapter) open(ctx context.Context, eng engine.DocumentEngine, path string, format types.FormatKind) error {
	if a.suppressor == nil {
		return eng.Open(path, format, a.openOpts)
	}

	watchCtx, stopWatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWatch()
	g, gctx := errgroup.WithContext(watchCtx)
	g.Go(func() error { return a.suppressor.Watch(gctx) })

	err := eng.Open(path, format, a.openOpts)
	stopWatch()
	_ = g.Wait()
	if err != nil {
		return err
	}

	if n := a.suppressor.Recheck(); n > 0 {
		a.logger.Info("dismissed dialogs after open", "file", path, "count", n)
	}
	return nil
}
