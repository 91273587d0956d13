package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSink persists step results to Postgres for later inspection across
// CI runs.
type PGSink struct {
	pool  *pgxpool.Pool
	runID uuid.UUID
}

const resultsSchema = `
CREATE TABLE IF NOT EXISTS harness_step_result (
	id UUID PRIMARY KEY,
	run_id UUID NOT NULL,
	scenario TEXT NOT NULL,
	step TEXT NOT NULL,
	actor TEXT NOT NULL,
	op TEXT NOT NULL,
	outcome TEXT NOT NULL,
	detail TEXT,
	duration_ms BIGINT NOT NULL,
	at TIMESTAMPTZ NOT NULL
)`

// NewPGSink connects to the results database and ensures the schema.
func NewPGSink(ctx context.Context, dsn string) (*PGSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect results database: %w", err)
	}
	if _, err := pool.Exec(ctx, resultsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure results schema: %w", err)
	}
	return &PGSink{pool: pool, runID: uuid.New()}, nil
}

func (s *PGSink) Record(ctx context.Context, r StepResult) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO harness_step_result (id, run_id, scenario, step, actor, op, outcome, detail, duration_ms, at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		uuid.New(), s.runID, r.Scenario, r.Step, r.Actor, r.Op, r.Outcome, r.Detail,
		r.Duration.Milliseconds(), r.At)
	if err != nil {
		return fmt.Errorf("record step result: %w", err)
	}
	return nil
}

func (s *PGSink) Close(context.Context) error {
	s.pool.Close()
	return nil
}
