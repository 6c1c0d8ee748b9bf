// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dialog dismisses modal dialogs that an automation host raises
// while a document is opening.
//
// Detection is polling based and therefore racy: a dialog that appears and
// blocks between polls is found at most one PollInterval (plus the dismissal
// delay) later, and a dialog whose caption is not in Titles is never found.
// A missed dialog surfaces as a failure of the job being opened.
package dialog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/doc2pdf/pkg/types"
)

// Window is an opaque top-level window handle.
type Window uintptr

// Desktop gives access to the top-level windows of the interactive session.
type Desktop interface {
	// FindWindow returns a top-level window whose caption equals title.
	FindWindow(title string) (Window, bool)

	// Dismiss focuses w and sends it the key press.
	Dismiss(w Window, key rune) error
}

// Config controls what the suppressor looks for and how often.
type Config struct {
	Titles          []string
	Key             rune
	PollInterval    time.Duration
	RecheckAttempts int
	RecheckInterval time.Duration
}

const (
	defaultKey             = 'N'
	defaultPollInterval    = 300 * time.Millisecond
	defaultRecheckAttempts = 20
	defaultRecheckInterval = 300 * time.Millisecond
)

// ConfigFrom converts the file configuration, applying defaults for unset
// fields.
func ConfigFrom(c types.DialogConfig) Config {
	cfg := Config{
		Titles:          c.Titles,
		PollInterval:    c.PollInterval,
		RecheckAttempts: c.RecheckAttempts,
		RecheckInterval: c.RecheckInterval,
	}
	if r, _ := utf8.DecodeRuneInString(c.Key); r != utf8.RuneError {
		cfg.Key = r
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if len(c.Titles) == 0 {
		c.Titles = types.DefaultDialogTitles
	}
	if c.Key == 0 {
		c.Key = defaultKey
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.RecheckAttempts <= 0 {
		c.RecheckAttempts = defaultRecheckAttempts
	}
	if c.RecheckInterval <= 0 {
		c.RecheckInterval = defaultRecheckInterval
	}
	return c
}

// Suppressor finds and dismisses known dialogs. Watch may run concurrently
// with Recheck and DismissOnce as long as the Desktop is safe for that.
type Suppressor struct {
	desktop   Desktop
	cfg       Config
	logger    *slog.Logger
	dismissed atomic.Int64
}

// New returns a suppressor over desktop. A nil logger discards output.
func New(desktop Desktop, cfg Config, logger *slog.Logger) *Suppressor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Suppressor{
		desktop: desktop,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "dialog"),
	}
}

// DismissOnce dismisses the first open dialog matching a known title and
// reports whether it did.
func (s *Suppressor) DismissOnce() bool {
	for _, title := range s.cfg.Titles {
		w, ok := s.desktop.FindWindow(title)
		if !ok {
			continue
		}
		if err := s.desktop.Dismiss(w, s.cfg.Key); err != nil {
			s.logger.Warn("dismissing dialog failed", "title", title, "error", err)
			return false
		}
		s.dismissed.Add(1)
		s.logger.Info("dismissed dialog", "title", title, "key", string(s.cfg.Key))
		return true
	}
	return false
}

// Watch polls until it dismisses one dialog or ctx is done. It always
// returns nil; the error result lets it run under an errgroup.
func (s *Suppressor) Watch(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		if s.DismissOnce() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Recheck catches dialogs raised after the open call returned. It polls
// up to RecheckAttempts times, waiting RecheckInterval after each dismissal,
// and stops at the first poll that finds nothing. It returns the number of
// dialogs dismissed.
func (s *Suppressor) Recheck() int {
	n := 0
	for range s.cfg.RecheckAttempts {
		if !s.DismissOnce() {
			break
		}
		n++
		time.Sleep(s.cfg.RecheckInterval)
	}
	return n
}

// Dismissed returns the number of dialogs dismissed so far.
func (s *Suppressor) Dismissed() int64 {
	return s.dismissed.Load()
}
