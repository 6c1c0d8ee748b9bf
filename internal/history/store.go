// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists finished conversion runs and their per-file
// outcomes in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/doc2pdf/pkg/types"
)

// ErrRunNotFound is returned by Load for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

const defaultListLimit = 20

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at path, creating parent
// directories and the schema as needed.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			input_dir TEXT,
			output_dir TEXT,
			state TEXT NOT NULL,
			success INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			started_at TEXT,
			finished_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS families (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			family TEXT NOT NULL,
			cancelled INTEGER NOT NULL,
			fatal TEXT,
			PRIMARY KEY (run_id, family)
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			family TEXT NOT NULL,
			source_path TEXT NOT NULL,
			output_path TEXT NOT NULL,
			format TEXT NOT NULL,
			result TEXT NOT NULL,
			reason TEXT,
			pages INTEGER,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished run. Recording the same run ID again replaces
// the earlier record.
func (s *Store) Record(ctx context.Context, r *types.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, r.ID); err != nil {
		return fmt.Errorf("replacing run %s: %w", r.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, mode, input_dir, output_dir, state, success, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Request.Mode), r.Request.InputDir, r.Request.OutputDir, string(r.State),
		r.TotalSuccess(), r.TotalFailed(), formatTime(r.StartedAt), formatTime(r.FinishedAt),
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", r.ID, err)
	}

	seq := 0
	for i, fr := range r.Families {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO families (run_id, position, family, cancelled, fatal) VALUES (?, ?, ?, ?, ?)`,
			r.ID, i, string(fr.Family), fr.Cancelled, fr.Fatal,
		); err != nil {
			return fmt.Errorf("inserting family %s: %w", fr.Family, err)
		}

		for _, o := range fr.Outcomes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO outcomes (run_id, seq, family, source_path, output_path, format, result, reason, pages)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.ID, seq, string(fr.Family), o.Job.SourcePath, o.Job.OutputPath, string(o.Job.Format),
				string(o.Result), o.Reason, o.Pages,
			); err != nil {
				return fmt.Errorf("inserting outcome for %s: %w", o.Job.SourcePath, err)
			}
			seq++
		}
	}

	return tx.Commit()
}

// Notify records r. It lets the store observe coordinator runs.
func (s *Store) Notify(ctx context.Context, r *types.RunReport) error {
	return s.Record(ctx, r)
}

// RunSummary is one row of the run list.
type RunSummary struct {
	ID         string         `json:"id" yaml:"id"`
	Mode       types.Mode     `json:"mode" yaml:"mode"`
	State      types.RunState `json:"state" yaml:"state"`
	InputDir   string         `json:"input_dir" yaml:"input_dir"`
	OutputDir  string         `json:"output_dir" yaml:"output_dir"`
	Success    int            `json:"success" yaml:"success"`
	Failed     int            `json:"failed" yaml:"failed"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time      `json:"finished_at" yaml:"finished_at"`
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns the default number of runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, state, input_dir, output_dir, success, failed, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			rs                  RunSummary
			mode, state         string
			started, finished   sql.NullString
			inputDir, outputDir sql.NullString
		)
		if err := rows.Scan(&rs.ID, &mode, &state, &inputDir, &outputDir, &rs.Success, &rs.Failed, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rs.Mode = types.Mode(mode)
		rs.State = types.RunState(state)
		rs.InputDir = inputDir.String
		rs.OutputDir = outputDir.String
		rs.StartedAt = parseTime(started.String)
		rs.FinishedAt = parseTime(finished.String)
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}

// Load rebuilds the full report of run id.
func (s *Store) Load(ctx context.Context, id string) (*types.RunReport, error) {
	var (
		r                   types.RunReport
		mode, state         string
		started, finished   sql.NullString
		inputDir, outputDir sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mode, state, input_dir, output_dir, started_at, finished_at FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &mode, &state, &inputDir, &outputDir, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	r.Request = types.ConversionRequest{InputDir: inputDir.String, OutputDir: outputDir.String, Mode: types.Mode(mode)}
	r.State = types.RunState(state)
	r.StartedAt = parseTime(started.String)
	r.FinishedAt = parseTime(finished.String)

	if err := s.loadFamilies(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) loadFamilies(ctx context.Context, r *types.RunReport) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT family, cancelled, fatal FROM families WHERE run_id = ? ORDER BY position`, r.ID)
	if err != nil {
		return fmt.Errorf("loading families of %s: %w", r.ID, err)
	}
	defer rows.Close()

	index := make(map[types.Family]int)
	for rows.Next() {
		var (
			fr     types.ConversionReport
			family string
			fatal  sql.NullString
		)
		if err := rows.Scan(&family, &fr.Cancelled, &fatal); err != nil {
			return fmt.Errorf("scanning family: %w", err)
		}
		fr.Family = types.Family(family)
		fr.Fatal = fatal.String
		index[fr.Family] = len(r.Families)
		r.Families = append(r.Families, fr)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	orows, err := s.db.QueryContext(ctx,
		`SELECT family, source_path, output_path, format, result, reason, pages
		FROM outcomes WHERE run_id = ? ORDER BY seq`, r.ID)
	if err != nil {
		return fmt.Errorf("loading outcomes of %s: %w", r.ID, err)
	}
	defer orows.Close()

	for orows.Next() {
		var (
			o                      types.ConversionOutcome
			family, format, result string
			reason                 sql.NullString
			pages                  sql.NullInt64
		)
		if err := orows.Scan(&family, &o.Job.SourcePath, &o.Job.OutputPath, &format, &result, &reason, &pages); err != nil {
			return fmt.Errorf("scanning outcome: %w", err)
		}
		o.Job.Format = types.FormatKind(format)
		o.Result = types.OutcomeResult(result)
		o.Reason = reason.String
		o.Pages = int(pages.Int64)

		i, ok := index[types.Family(family)]
		if !ok {
			continue
		}
		r.Families[i].Record(o)
	}
	return orows.Err()
}

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
