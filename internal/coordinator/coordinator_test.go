// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package coordinator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc2pdf/internal/convert"
	"github.com/pdiddy/doc2pdf/internal/engine"
	"github.com/pdiddy/doc2pdf/internal/enumerate"
	"github.com/pdiddy/doc2pdf/pkg/types"
)

// scriptedEngine is a deterministic engine whose per-file failures are set
// by name. It writes a placeholder PDF for every export.
type scriptedEngine struct {
	mu       sync.Mutex
	fail     map[string]error
	block    chan struct{}
	onExport func(name string)
	opened   []string
}

func (e *scriptedEngine) Open(path string, _ types.FormatKind, _ engine.OpenOptions) error {
	name := filepath.Base(path)
	e.mu.Lock()
	e.opened = append(e.opened, name)
	block := e.block
	e.mu.Unlock()

	if block != nil {
		<-block
	}
	return e.fail[name]
}

func (e *scriptedEngine) ExportPDF(path string) error {
	if err := os.WriteFile(path, []byte("%PDF-1.4\n"), 0o644); err != nil {
		return err
	}
	if e.onExport != nil {
		e.onExport(filepath.Base(path))
	}
	return nil
}

func (e *scriptedEngine) ClearDocument() error { return nil }
func (e *scriptedEngine) Quit() error          { return nil }

func (e *scriptedEngine) Opened() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.opened...)
}

// registry returns a registry serving eng for the given families and counts
// the sessions started.
func registry(eng engine.DocumentEngine, starts *atomic.Int32, families ...types.Family) *engine.Registry {
	reg := engine.NewRegistry()
	for _, f := range families {
		reg.Register(f, func() (engine.DocumentEngine, error) {
			if starts != nil {
				starts.Add(1)
			}
			return eng, nil
		})
	}
	return reg
}

func newCoordinator(reg *engine.Registry, progress convert.Progress, opts ...Option) *Coordinator {
	if progress == nil {
		progress = convert.Discard
	}
	converters := map[types.Family]BatchConverter{
		types.FamilyEditor: convert.NewAdapter(types.FamilyEditor, reg, convert.WithProgress(progress)),
		types.FamilyWord:   convert.NewAdapter(types.FamilyWord, reg, convert.WithProgress(progress)),
	}
	return New(converters, append([]Option{WithProgress(progress)}, opts...)...)
}

func writeInputs(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("doc"), 0o644))
	}
	return dir
}

func request(t *testing.T, in string, mode types.Mode) types.ConversionRequest {
	return types.ConversionRequest{InputDir: in, OutputDir: filepath.Join(t.TempDir(), "out"), Mode: mode}
}

func assertAccounting(t *testing.T, r *types.RunReport) {
	t.Helper()
	for _, fr := range r.Families {
		assert.Equal(t, len(fr.Outcomes), fr.Success+len(fr.Failed), "family %s", fr.Family)
	}
}

func TestCombinedRunMixedResults(t *testing.T) {
	in := writeInputs(t, "a.hwp", "b.docx", "c.doc")
	eng := &scriptedEngine{fail: map[string]error{"b.docx": errors.New("host crash")}}
	c := newCoordinator(registry(eng, nil, types.FamilyEditor, types.FamilyWord), nil)
	req := request(t, in, types.ModeCombined)

	r, err := c.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, types.StateCompleted, r.State)
	assert.Equal(t, types.StateCompleted, c.State())

	editor := r.Family(types.FamilyEditor)
	assert.Equal(t, 1, editor.Success)
	assert.Empty(t, editor.Failed)

	word := r.Family(types.FamilyWord)
	assert.Equal(t, 1, word.Success)
	assert.Equal(t, []string{"b.docx"}, word.Failed)

	assert.Equal(t, 2, r.TotalSuccess())
	assert.Equal(t, 1, r.TotalFailed())
	assert.NoError(t, r.Err())
	assertAccounting(t, r)

	assert.Equal(t, []string{"a.hwp", "c.doc", "b.docx"}, eng.Opened(), "editor family runs first")
	assert.FileExists(t, filepath.Join(req.OutputDir, "a.pdf"))
	assert.FileExists(t, filepath.Join(req.OutputDir, "c.pdf"))
}

func TestEditorFatalDoesNotAffectWord(t *testing.T) {
	in := writeInputs(t, "a.hwp", "b.docx", "c.doc")
	eng := &scriptedEngine{fail: map[string]error{"b.docx": errors.New("host crash")}}
	c := newCoordinator(registry(eng, nil, types.FamilyWord), nil)

	r, err := c.Run(context.Background(), request(t, in, types.ModeCombined))
	require.NoError(t, err)

	editor := r.Family(types.FamilyEditor)
	assert.Contains(t, editor.Fatal, "no automation backend available")
	assert.Zero(t, editor.Attempted())

	word := r.Family(types.FamilyWord)
	assert.Equal(t, 1, word.Success)
	assert.Equal(t, []string{"b.docx"}, word.Failed)

	assert.Equal(t, types.StateCompleted, r.State, "a fatal sibling does not fail the run")
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "Hangul")
}

func TestHostUnavailableIsFamilyFatal(t *testing.T) {
	in := writeInputs(t, "a.hwp", "c.doc")
	reg := registry(&scriptedEngine{}, nil, types.FamilyWord)
	reg.Register(types.FamilyEditor, func() (engine.DocumentEngine, error) {
		return nil, errors.New("class not registered")
	})
	c := newCoordinator(reg, nil)

	r, err := c.Run(context.Background(), request(t, in, types.ModeCombined))
	require.NoError(t, err)

	assert.Contains(t, r.Family(types.FamilyEditor).Fatal, "automation host unavailable")
	assert.Equal(t, 1, r.Family(types.FamilyWord).Success)
	assert.Equal(t, types.StateCompleted, r.State)
}

func TestRunIsIdempotent(t *testing.T) {
	in := writeInputs(t, "a.hwp", "b.docx", "c.doc", "d.hwpx")
	eng := &scriptedEngine{fail: map[string]error{"b.docx": errors.New("host crash"), "d.hwpx": errors.New("corrupt")}}
	c := newCoordinator(registry(eng, nil, types.FamilyEditor, types.FamilyWord), nil)
	req := request(t, in, types.ModeCombined)

	first, err := c.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := c.Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	require.Len(t, second.Families, len(first.Families))
	for i := range first.Families {
		assert.Equal(t, first.Families[i].Success, second.Families[i].Success)
		assert.Equal(t, first.Families[i].Failed, second.Families[i].Failed)
	}
}

func TestCancelBeforeStart(t *testing.T) {
	in := writeInputs(t, "a.hwp", "c.doc")
	var starts atomic.Int32
	c := newCoordinator(registry(&scriptedEngine{}, &starts, types.FamilyEditor, types.FamilyWord), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := c.Run(ctx, request(t, in, types.ModeCombined))
	require.NoError(t, err)

	assert.Equal(t, types.StateCancelled, r.State)
	assert.Zero(t, r.TotalSuccess())
	assert.Zero(t, r.TotalFailed())
	assert.NoError(t, r.Err(), "a cancelled run is not fatal")
	for _, fr := range r.Families {
		assert.True(t, fr.Cancelled)
		assert.Zero(t, fr.Attempted())
	}
	assert.Zero(t, starts.Load(), "no engine session started")
}

func TestStopMidBatch(t *testing.T) {
	in := writeInputs(t, "a.doc", "b.doc", "c.doc")
	eng := &scriptedEngine{}
	c := newCoordinator(registry(eng, nil, types.FamilyWord), nil)
	eng.onExport = func(string) {
		if len(eng.Opened()) == 1 {
			assert.True(t, c.Stop())
		}
	}

	r, err := c.Run(context.Background(), request(t, in, types.ModeWord))
	require.NoError(t, err)

	assert.Equal(t, types.StateCancelled, r.State)
	word := r.Family(types.FamilyWord)
	assert.Len(t, word.Outcomes, 1)
	assert.True(t, word.Cancelled)
	assert.Equal(t, 1, word.Success, "the job in flight completes")
	assertAccounting(t, r)
}

func TestStopSkipsWordFamily(t *testing.T) {
	in := writeInputs(t, "a.hwp", "c.doc")
	eng := &scriptedEngine{}
	c := newCoordinator(registry(eng, nil, types.FamilyEditor, types.FamilyWord), nil)
	eng.onExport = func(name string) {
		if name == "a.pdf" {
			c.Stop()
		}
	}

	r, err := c.Run(context.Background(), request(t, in, types.ModeCombined))
	require.NoError(t, err)

	assert.Equal(t, types.StateCancelled, r.State)
	assert.Equal(t, 1, r.Family(types.FamilyEditor).Success)
	word := r.Family(types.FamilyWord)
	assert.True(t, word.Cancelled)
	assert.Zero(t, word.Attempted())
	assert.Equal(t, []string{"a.hwp"}, eng.Opened())
}

func TestWordOnlyEngineUnavailable(t *testing.T) {
	in := writeInputs(t, "b.docx", "c.doc")
	var out bytes.Buffer
	c := newCoordinator(engine.NewRegistry(), convert.NewWriterProgress(&out))

	r, err := c.Run(context.Background(), request(t, in, types.ModeWord))
	require.NoError(t, err)

	assert.Equal(t, types.StateFailed, r.State)
	assert.Equal(t, types.StateFailed, c.State())
	word := r.Family(types.FamilyWord)
	assert.Zero(t, word.Attempted())
	assert.Contains(t, word.Fatal, "no automation backend available")
	require.Error(t, r.Err())

	lines := strings.Split(out.String(), "\n")
	errorLine := -1
	for i, l := range lines {
		if strings.HasPrefix(l, "error:") && errorLine < 0 {
			errorLine = i
		}
		assert.NotContains(t, l, "[1/", "no file-level progress before the fatal error")
	}
	assert.GreaterOrEqual(t, errorLine, 0)
}

func TestMissingConverterIsFatal(t *testing.T) {
	in := writeInputs(t, "c.doc")
	c := New(map[types.Family]BatchConverter{})

	r, err := c.Run(context.Background(), request(t, in, types.ModeWord))
	require.NoError(t, err)

	assert.Equal(t, types.StateFailed, r.State)
	assert.Contains(t, r.Family(types.FamilyWord).Fatal, "no automation backend available")
}

func TestStartValidation(t *testing.T) {
	withText := writeInputs(t, "notes.txt", "image.png")
	withHWP := writeInputs(t, "a.hwp")
	empty := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	tests := []struct {
		name string
		req  types.ConversionRequest
		want error
	}{
		{"input unset", types.ConversionRequest{OutputDir: out, Mode: types.ModeCombined}, enumerate.ErrInputDirUnset},
		{"input missing", types.ConversionRequest{InputDir: filepath.Join(empty, "nope"), OutputDir: out, Mode: types.ModeCombined}, enumerate.ErrDirectoryNotFound},
		{"output unset", types.ConversionRequest{InputDir: withHWP, Mode: types.ModeCombined}, ErrOutputDirUnset},
		{"empty directory", types.ConversionRequest{InputDir: empty, OutputDir: out, Mode: types.ModeCombined}, ErrNoFiles},
		{"no matching extensions", types.ConversionRequest{InputDir: withText, OutputDir: out, Mode: types.ModeCombined}, ErrNoFiles},
		{"no files for mode", types.ConversionRequest{InputDir: withHWP, OutputDir: out, Mode: types.ModeWord}, ErrNoFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var starts atomic.Int32
			c := newCoordinator(registry(&scriptedEngine{}, &starts, types.FamilyEditor, types.FamilyWord), nil)

			done, err := c.Start(context.Background(), tt.req)
			assert.Nil(t, done)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, types.StateIdle, c.State())
			assert.Zero(t, starts.Load())
		})
	}
}

func TestStartRejectsUnknownMode(t *testing.T) {
	in := writeInputs(t, "a.hwp")
	c := New(nil)

	_, err := c.Start(context.Background(), types.ConversionRequest{InputDir: in, OutputDir: t.TempDir(), Mode: "pdf"})
	assert.Error(t, err)
	assert.Equal(t, types.StateIdle, c.State())
}

func TestStartCreatesOutputDirectory(t *testing.T) {
	in := writeInputs(t, "a.hwp")
	out := filepath.Join(t.TempDir(), "nested", "deeper", "out")
	c := newCoordinator(registry(&scriptedEngine{}, nil, types.FamilyEditor), nil)

	r, err := c.Run(context.Background(), types.ConversionRequest{InputDir: in, OutputDir: out, Mode: types.ModeEditor})
	require.NoError(t, err)

	assert.DirExists(t, out)
	assert.FileExists(t, filepath.Join(out, "a.pdf"))
	assert.Equal(t, types.StateCompleted, r.State)
}

func TestConcurrentStartRejected(t *testing.T) {
	in := writeInputs(t, "a.doc")
	eng := &scriptedEngine{block: make(chan struct{})}
	c := newCoordinator(registry(eng, nil, types.FamilyWord), nil)
	req := request(t, in, types.ModeWord)

	done, err := c.Start(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, types.StateRunning, c.State())

	_, err = c.Start(context.Background(), req)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(eng.block)
	r := <-done
	assert.Equal(t, types.StateCompleted, r.State)

	_, open := <-done
	assert.False(t, open, "channel closed after the report")
}

func TestStopOutsideRunning(t *testing.T) {
	in := writeInputs(t, "a.doc")
	c := newCoordinator(registry(&scriptedEngine{}, nil, types.FamilyWord), nil)

	assert.False(t, c.Stop(), "idle")

	_, err := c.Run(context.Background(), request(t, in, types.ModeWord))
	require.NoError(t, err)
	assert.False(t, c.Stop(), "after completion")
	assert.Equal(t, types.StateCompleted, c.State())
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports []*types.RunReport
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, r *types.RunReport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	n.reports = append(n.reports, r)
	return n.err
}

func TestNotifiersCalledOnce(t *testing.T) {
	in := writeInputs(t, "a.doc", "b.doc")
	failing := &recordingNotifier{err: errors.New("broker down")}
	recorder := &recordingNotifier{}
	eng := &scriptedEngine{}
	c := newCoordinator(registry(eng, nil, types.FamilyWord), nil, WithNotifier(failing), WithNotifier(recorder))
	eng.onExport = func(string) { c.Stop() }

	r, err := c.Run(context.Background(), request(t, in, types.ModeWord))
	require.NoError(t, err)

	require.Len(t, recorder.reports, 1, "cancelled runs are still reported")
	assert.Same(t, r, recorder.reports[0])
	assert.Equal(t, types.StateCancelled, recorder.reports[0].State)
	assert.Len(t, failing.reports, 1)
}

func TestSummaryWrittenToProgress(t *testing.T) {
	in := writeInputs(t, "a.hwp", "b.docx")
	eng := &scriptedEngine{fail: map[string]error{"b.docx": errors.New("host crash")}}
	var out bytes.Buffer
	req := request(t, in, types.ModeCombined)
	c := newCoordinator(registry(eng, nil, types.FamilyEditor, types.FamilyWord), convert.NewWriterProgress(&out))

	_, err := c.Run(context.Background(), req)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "[1/1] converting: a.hwp")
	assert.Contains(t, text, "run completed: 1 succeeded, 1 failed")
	assert.Contains(t, text, "  - b.docx")
	assert.Contains(t, text, "PDF files saved to: "+req.OutputDir)
}

func TestClockAndIDOptions(t *testing.T) {
	in := writeInputs(t, "a.hwp")
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := start
	clock := func() time.Time {
		now := tick
		tick = tick.Add(time.Minute)
		return now
	}
	c := newCoordinator(registry(&scriptedEngine{}, nil, types.FamilyEditor), nil,
		WithClock(clock), WithIDs(func() string { return "fixed" }))

	r, err := c.Run(context.Background(), request(t, in, types.ModeEditor))
	require.NoError(t, err)

	assert.Equal(t, "fixed", r.ID)
	assert.Equal(t, start, r.StartedAt)
	assert.Equal(t, start.Add(time.Minute), r.FinishedAt)
}

func TestOutputCollisionLastWriterWins(t *testing.T) {
	in := writeInputs(t, "report.hwp", "report.docx")
	c := newCoordinator(registry(&scriptedEngine{}, nil, types.FamilyEditor, types.FamilyWord), nil)

	r, err := c.Run(context.Background(), request(t, in, types.ModeCombined))
	require.NoError(t, err)

	assert.Equal(t, 2, r.TotalSuccess())
	assert.Equal(t, r.Family(types.FamilyEditor).Outcomes[0].Job.OutputPath,
		r.Family(types.FamilyWord).Outcomes[0].Job.OutputPath)
}

// blockingNotifier holds the run open until release is closed.
type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func (n *blockingNotifier) Notify(context.Context, *types.RunReport) error {
	close(n.entered)
	<-n.release
	return nil
}

func TestBusyUntilNotifiersReturn(t *testing.T) {
	in := writeInputs(t, "a.hwp")
	n := &blockingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	c := newCoordinator(registry(&scriptedEngine{}, nil, types.FamilyEditor), nil, WithNotifier(n))
	req := request(t, in, types.ModeEditor)

	done, err := c.Start(context.Background(), req)
	require.NoError(t, err)
	<-n.entered

	assert.Equal(t, types.StateRunning, c.State())
	_, err = c.Start(context.Background(), req)
	assert.ErrorIs(t, err, ErrAlreadyRunning, "a second run waits for the first run's notifiers")

	close(n.release)
	r := <-done
	assert.Equal(t, types.StateCompleted, r.State)
	assert.Equal(t, types.StateCompleted, c.State())

	_, err = c.Run(context.Background(), req)
	assert.NoError(t, err)
}

func TestFinalStatusCarriesTotals(t *testing.T) {
	in := writeInputs(t, "a.hwp", "b.docx", "c.doc")
	eng := &scriptedEngine{fail: map[string]error{"b.docx": errors.New("host crash")}}
	var out bytes.Buffer
	p := convert.NewWriterProgress(&out)
	c := newCoordinator(registry(eng, nil, types.FamilyEditor, types.FamilyWord), p)

	_, err := c.Run(context.Background(), request(t, in, types.ModeCombined))
	require.NoError(t, err)

	assert.Equal(t, "completed: 2 succeeded, 1 failed", p.Current())
}

func TestCollisions(t *testing.T) {
	jobs := map[types.Family][]types.ConversionJob{
		types.FamilyEditor: {
			{SourcePath: "in/A.hwp", OutputPath: "out/A.pdf"},
			{SourcePath: "in/b.hwp", OutputPath: "out/b.pdf"},
		},
		types.FamilyWord: {
			{SourcePath: "in/a.docx", OutputPath: "out/a.pdf"},
			{SourcePath: "in/b.doc", OutputPath: "out/b.pdf"},
		},
	}
	families := types.ModeCombined.Families()

	got := collisions(families, jobs, false)
	assert.Equal(t, []collision{{output: "out/b.pdf", first: "in/b.hwp", second: "in/b.doc"}}, got,
		"names differing only in case are distinct on a case-sensitive filesystem")

	got = collisions(families, jobs, true)
	assert.Equal(t, []collision{
		{output: "out/a.pdf", first: "in/A.hwp", second: "in/a.docx"},
		{output: "out/b.pdf", first: "in/b.hwp", second: "in/b.doc"},
	}, got)
}
