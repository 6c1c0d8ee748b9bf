// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"time"
)

// ConversionReport aggregates the outcomes of one engine family.
type ConversionReport struct {
	Family Family `json:"family" yaml:"family"`

	// Success is the number of jobs converted.
	Success int `json:"success" yaml:"success"`

	// Failed lists the file names of jobs that failed, in processing order.
	Failed []string `json:"failed" yaml:"failed"`

	// Outcomes holds every processed job in processing order.
	Outcomes []ConversionOutcome `json:"outcomes" yaml:"outcomes"`

	// Cancelled reports whether the family stopped early on a cancellation.
	Cancelled bool `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`

	// Fatal holds the family-level error that prevented any job from running.
	Fatal string `json:"fatal,omitempty" yaml:"fatal,omitempty"`
}

// Attempted returns the number of jobs that reached an outcome.
func (r ConversionReport) Attempted() int {
	return r.Success + len(r.Failed)
}

// Record appends an outcome and updates the counters.
func (r *ConversionReport) Record(o ConversionOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Result == ResultSuccess {
		r.Success++
		return
	}
	r.Failed = append(r.Failed, o.Job.Name())
}

// RunState is the coordinator state of a conversion run.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateCancelled RunState = "cancelled"
	StateFailed    RunState = "failed"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// RunReport is the result of one conversion run across all requested families.
type RunReport struct {
	ID         string             `json:"id" yaml:"id"`
	Request    ConversionRequest  `json:"request" yaml:"request"`
	State      RunState           `json:"state" yaml:"state"`
	Families   []ConversionReport `json:"families" yaml:"families"`
	StartedAt  time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time          `json:"finished_at" yaml:"finished_at"`
}

// Family returns the report for f, or an empty report if f did not run.
func (r *RunReport) Family(f Family) ConversionReport {
	for _, fr := range r.Families {
		if fr.Family == f {
			return fr
		}
	}
	return ConversionReport{Family: f}
}

// TotalSuccess returns the number of converted files across all families.
func (r *RunReport) TotalSuccess() int {
	n := 0
	for _, fr := range r.Families {
		n += fr.Success
	}
	return n
}

// TotalFailed returns the number of failed files across all families.
func (r *RunReport) TotalFailed() int {
	n := 0
	for _, fr := range r.Families {
		n += len(fr.Failed)
	}
	return n
}

// Err joins the family-level fatal errors of the run, or returns nil.
func (r *RunReport) Err() error {
	var errs []error
	for _, fr := range r.Families {
		if fr.Fatal != "" {
			errs = append(errs, fmt.Errorf("%s: %s", fr.Family.Label(), fr.Fatal))
		}
	}
	return errors.Join(errs...)
}
