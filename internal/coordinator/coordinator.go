// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coordinator runs conversion requests across engine families.
//
// A Coordinator owns the run state machine (idle, running, then exactly one
// of completed, cancelled or failed), dispatches each requested family to its
// batch converter in a fixed order, honors cancellation at job boundaries,
// and hands the finished RunReport to the caller and every registered
// notifier once.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/doc2pdf/internal/convert"
	"github.com/pdiddy/doc2pdf/internal/engine"
	"github.com/pdiddy/doc2pdf/internal/enumerate"
	"github.com/pdiddy/doc2pdf/internal/report"
	"github.com/pdiddy/doc2pdf/pkg/types"
)

var (
	// ErrOutputDirUnset is returned when no output directory was given.
	ErrOutputDirUnset = errors.New("output directory not set")

	// ErrNoFiles is returned when the input directory holds no file the
	// requested mode can convert.
	ErrNoFiles = errors.New("no convertible files found")

	// ErrAlreadyRunning is returned by Start while a run is in progress.
	ErrAlreadyRunning = errors.New("a conversion run is already in progress")
)

// BatchConverter converts the jobs of one engine family.
// *convert.Adapter implements it.
type BatchConverter interface {
	ConvertBatch(ctx context.Context, jobs []types.ConversionJob) (types.ConversionReport, error)
}

// Notifier observes finished runs.
type Notifier interface {
	Notify(ctx context.Context, r *types.RunReport) error
}

// Coordinator runs one conversion request at a time.
type Coordinator struct {
	converters map[types.Family]BatchConverter
	notifiers  []Notifier
	progress   convert.Progress
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string

	mu     sync.Mutex
	state  types.RunState
	cancel context.CancelFunc
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithProgress sends operator output, including the final summary, to p.
func WithProgress(p convert.Progress) Option {
	return func(c *Coordinator) { c.progress = p }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithNotifier adds n to the observers of finished runs.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifiers = append(c.notifiers, n) }
}

// WithClock replaces the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIDs replaces the run ID generator.
func WithIDs(newID func() string) Option {
	return func(c *Coordinator) { c.newID = newID }
}

// New returns an idle coordinator dispatching each family to its converter.
// A family without a converter is reported as having no engine available.
func New(converters map[types.Family]BatchConverter, opts ...Option) *Coordinator {
	c := &Coordinator{
		converters: converters,
		progress:   convert.Discard,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
		newID:      uuid.NewString,
		state:      types.StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("component", "coordinator")
	return c
}

// State returns the state of the current or most recent run.
func (c *Coordinator) State() types.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop requests cancellation of the running run. The job in progress runs to
// completion; no further job starts. Stop returns false when no run is in
// progress.
func (c *Coordinator) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != types.StateRunning {
		return false
	}
	c.cancel()
	return true
}

// Run starts req and waits for it to finish.
func (c *Coordinator) Run(ctx context.Context, req types.ConversionRequest) (*types.RunReport, error) {
	done, err := c.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return <-done, nil
}

// Start validates req and, if it is acceptable, runs it in the background.
// Validation failures leave the coordinator state unchanged. The returned
// channel yields the finished report once and is then closed. Cancelling ctx
// has the same effect as Stop.
func (c *Coordinator) Start(ctx context.Context, req types.ConversionRequest) (<-chan *types.RunReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == types.StateRunning {
		return nil, ErrAlreadyRunning
	}

	jobs, err := c.plan(req)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.state = types.StateRunning
	c.cancel = cancel

	done := make(chan *types.RunReport, 1)
	go func() {
		defer close(done)
		done <- c.run(runCtx, req, jobs)
	}()
	return done, nil
}

// plan validates req and enumerates the jobs of each requested family.
func (c *Coordinator) plan(req types.ConversionRequest) (map[types.Family][]types.ConversionJob, error) {
	if err := enumerate.CheckInputDir(req.InputDir); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return nil, ErrOutputDirUnset
	}
	families := req.Mode.Families()
	if len(families) == 0 {
		return nil, fmt.Errorf("unknown conversion mode %q", req.Mode)
	}

	jobs := make(map[types.Family][]types.ConversionJob, len(families))
	total := 0
	for _, f := range families {
		jobs[f] = enumerate.Jobs(req.InputDir, req.OutputDir, f)
		total += len(jobs[f])
	}
	if total == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, req.InputDir)
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", req.OutputDir, err)
	}
	return jobs, nil
}

func (c *Coordinator) run(ctx context.Context, req types.ConversionRequest, jobs map[types.Family][]types.ConversionJob) *types.RunReport {
	r := &types.RunReport{
		ID:        c.newID(),
		Request:   req,
		State:     types.StateRunning,
		StartedAt: c.now(),
	}
	logger := c.logger.With("run", r.ID)
	logger.Info("run started", "mode", string(req.Mode), "input", req.InputDir, "output", req.OutputDir)
	c.warnCollisions(logger, req.Mode.Families(), jobs)

	var cancelled bool
	var attempted, fatal int
	for _, f := range req.Mode.Families() {
		fjobs := jobs[f]
		if len(fjobs) == 0 {
			continue
		}

		if ctx.Err() != nil {
			cancelled = true
			r.Families = append(r.Families, types.ConversionReport{Family: f, Cancelled: true})
			logger.Info("family skipped", "family", string(f), "reason", "cancelled")
			continue
		}

		fr := c.convertFamily(ctx, f, fjobs)
		attempted++
		if fr.Fatal != "" {
			fatal++
			logger.Error("family failed", "family", string(f), "error", fr.Fatal)
		}
		if fr.Cancelled {
			cancelled = true
		}
		r.Families = append(r.Families, fr)
	}

	switch {
	case cancelled:
		r.State = types.StateCancelled
	case attempted > 0 && fatal == attempted:
		r.State = types.StateFailed
	default:
		r.State = types.StateCompleted
	}
	r.FinishedAt = c.now()

	logger.Info("run finished", "state", string(r.State), "success", r.TotalSuccess(), "failed", r.TotalFailed())
	c.progress.Status(fmt.Sprintf("%s: %d succeeded, %d failed", r.State, r.TotalSuccess(), r.TotalFailed()))
	for _, line := range report.Summary(r) {
		c.progress.Line(line)
	}
	c.notify(context.WithoutCancel(ctx), logger, r)

	// The coordinator stays busy until every notifier has seen the report.
	c.mu.Lock()
	c.state = r.State
	c.cancel()
	c.mu.Unlock()
	return r
}

func (c *Coordinator) convertFamily(ctx context.Context, f types.Family, jobs []types.ConversionJob) types.ConversionReport {
	conv, ok := c.converters[f]
	if !ok {
		err := fmt.Errorf("%w for %s documents", engine.ErrEngineUnavailable, f.Label())
		c.progress.Line(fmt.Sprintf("error: %v", err))
		return types.ConversionReport{Family: f, Fatal: err.Error()}
	}

	fr, err := conv.ConvertBatch(ctx, jobs)
	fr.Family = f
	if err != nil && fr.Fatal == "" {
		fr.Fatal = err.Error()
	}
	return fr
}

// warnCollisions logs jobs that write the same output file. The later job
// overwrites the earlier one's PDF.
func (c *Coordinator) warnCollisions(logger *slog.Logger, families []types.Family, jobs map[types.Family][]types.ConversionJob) {
	for _, col := range collisions(families, jobs, runtime.GOOS == "windows") {
		logger.Warn("output collision, later file overwrites earlier", "output", col.output, "first", col.first, "second", col.second)
	}
}

type collision struct {
	output, first, second string
}

// collisions lists, in dispatch order, every job whose output path was
// already claimed by an earlier job. foldCase compares paths the way a
// case-insensitive filesystem does.
func collisions(families []types.Family, jobs map[types.Family][]types.ConversionJob, foldCase bool) []collision {
	var out []collision
	seen := make(map[string]string)
	for _, f := range families {
		for _, job := range jobs[f] {
			key := job.OutputPath
			if foldCase {
				key = strings.ToLower(key)
			}
			if prev, ok := seen[key]; ok {
				out = append(out, collision{output: job.OutputPath, first: prev, second: job.SourcePath})
				continue
			}
			seen[key] = job.SourcePath
		}
	}
	return out
}

func (c *Coordinator) notify(ctx context.Context, logger *slog.Logger, r *types.RunReport) {
	for _, n := range c.notifiers {
		if err := n.Notify(ctx, r); err != nil {
			logger.Warn("notifier failed", "error", err)
		}
	}
}
