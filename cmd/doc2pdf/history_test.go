// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc2pdf/internal/report"
	"github.com/pdiddy/doc2pdf/pkg/types"
)

func TestLoadRunFromReportFile(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	want := &types.RunReport{
		ID:         "run-7",
		Request:    types.ConversionRequest{InputDir: "in", OutputDir: "out", Mode: types.ModeWord},
		State:      types.StateCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
	word := types.ConversionReport{Family: types.FamilyWord}
	word.Record(types.ConversionOutcome{
		Job:    types.ConversionJob{SourcePath: "in/b.docx", OutputPath: "out/b.pdf", Format: types.FormatDOCX},
		Result: types.ResultFailed,
		Reason: "opening: host crash",
	})
	want.Families = []types.ConversionReport{word}

	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, report.WriteYAML(path, want))

	got, err := loadRun(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "run-7", got.ID)
	assert.Equal(t, []string{"b.docx"}, got.Families[0].Failed)

	var out bytes.Buffer
	printRun(&out, got)
	assert.Contains(t, out.String(), "run run-7 (word)")
	assert.Contains(t, out.String(), "b.docx: opening: host crash")
}

func TestLoadRunRejectsUnfinishedReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, report.WriteYAML(path, &types.RunReport{ID: "run-8", State: types.StateRunning}))

	_, err := loadRun(context.Background(), path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not hold a finished run")
}

func TestLoadRunArguments(t *testing.T) {
	_, err := loadRun(context.Background(), "report.yaml", []string{"run-1"})
	assert.Error(t, err, "file and ID together")

	_, err = loadRun(context.Background(), "", nil)
	assert.Error(t, err, "neither file nor ID")

	_, err = loadRun(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
