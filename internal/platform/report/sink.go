// Package report records scenario step outcomes. Actor state itself is
// never persisted; only the verdicts of a run leave the process.
package report

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StepResult is one executed step of one scenario.
type StepResult struct {
	Scenario string
	Step     string
	Actor    string
	Op       string
	// Outcome is "ok" or the classified failure kind the step observed.
	Outcome  string
	Detail   string
	Duration time.Duration
	At       time.Time
}

// Sink receives step results.
type Sink interface {
	Record(ctx context.Context, r StepResult) error
	Close(ctx context.Context) error
}

// LogSink writes results to the structured log.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Record(_ context.Context, r StepResult) error {
	evt := s.log.Info()
	if r.Outcome != "ok" {
		evt = s.log.Warn()
	}
	evt.
		Str("scenario", r.Scenario).
		Str("step", r.Step).
		Str("actor", r.Actor).
		Str("op", r.Op).
		Str("outcome", r.Outcome).
		Str("detail", r.Detail).
		Dur("duration", r.Duration).
		Msg("step")
	return nil
}

func (s *LogSink) Close(context.Context) error { return nil }
