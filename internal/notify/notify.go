// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify publishes finished conversion runs on a NATS subject.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pdiddy/doc2pdf/pkg/types"
)

// FamilyEvent is the per-family part of a RunEvent.
type FamilyEvent struct {
	Family    types.Family `json:"family"`
	Success   int          `json:"success"`
	Failed    []string     `json:"failed"`
	Cancelled bool         `json:"cancelled,omitempty"`
	Fatal     string       `json:"fatal,omitempty"`
}

// RunEvent is the message published when a run reaches a terminal state.
// It carries counts and failed file names, not individual outcomes.
type RunEvent struct {
	RunID      string         `json:"run_id"`
	State      types.RunState `json:"state"`
	Mode       types.Mode     `json:"mode"`
	OutputDir  string         `json:"output_dir"`
	Success    int            `json:"success"`
	Failed     int            `json:"failed"`
	Families   []FamilyEvent  `json:"families"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Event builds the published message for r.
func Event(r *types.RunReport) RunEvent {
	ev := RunEvent{
		RunID:      r.ID,
		State:      r.State,
		Mode:       r.Request.Mode,
		OutputDir:  r.Request.OutputDir,
		Success:    r.TotalSuccess(),
		Failed:     r.TotalFailed(),
		FinishedAt: r.FinishedAt,
	}
	for _, fr := range r.Families {
		failed := fr.Failed
		if failed == nil {
			failed = []string{}
		}
		ev.Families = append(ev.Families, FamilyEvent{
			Family:    fr.Family,
			Success:   fr.Success,
			Failed:    failed,
			Cancelled: fr.Cancelled,
			Fatal:     fr.Fatal,
		})
	}
	return ev
}

const flushTimeout = 5 * time.Second

// Publisher sends run events to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// Credentials authenticate the connection. The zero value connects
// anonymously; a token takes precedence over a user and password.
type Credentials struct {
	Token    string
	User     string
	Password string
}

func (c Credentials) options() []nats.Option {
	switch {
	case c.Token != "":
		return []nats.Option{nats.Token(c.Token)}
	case c.User != "":
		return []nats.Option{nats.UserInfo(c.User, c.Password)}
	}
	return nil
}

// Connect dials the NATS server at url.
func Connect(url, subject string, creds Credentials, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := append([]nats.Option{
		nats.Name("doc2pdf"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	}, creds.options()...)

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}
	return &Publisher{nc: nc, subject: subject, logger: logger.With("component", "notify")}, nil
}

// Notify publishes the event for r and waits for the server to acknowledge
// the flush or for ctx to end.
func (p *Publisher) Notify(ctx context.Context, r *types.RunReport) error {
	data, err := json.Marshal(Event(r))
	if err != nil {
		return fmt.Errorf("marshaling run event: %w", err)
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.subject, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flushing %s: %w", p.subject, err)
	}
	p.logger.Debug("run event published", "subject", p.subject, "run", r.ID)
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
