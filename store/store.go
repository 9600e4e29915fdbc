package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Outcome is how a delivery was settled.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeAbandoned    Outcome = "abandoned"
	OutcomeDeadLettered Outcome = "deadlettered"
)

const DefaultListLimit = 50

var ErrInvalidOutcome = errors.New("invalid outcome")

// ParseOutcome accepts an outcome name in any case. The empty string is
// valid and means no filter.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case "", OutcomeCompleted, OutcomeAbandoned, OutcomeDeadLettered:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// Execution is one settled delivery. Message bodies are never stored.
type Execution struct {
	ID            int64     `json:"id"`
	MessageID     string    `json:"messageId"`
	TaskID        string    `json:"taskId,omitempty"`
	TaskType      string    `json:"taskType,omitempty"`
	Outcome       Outcome   `json:"outcome"`
	DeliveryCount int       `json:"deliveryCount"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

type Filter struct {
	Outcome Outcome
	Limit   int
}

// Recorder receives an Execution for every settled delivery.
type Recorder interface {
	Record(ctx context.Context, exec Execution) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Execution) error { return nil }

// Nop returns a Recorder that drops everything.
func Nop() Recorder {
	return nopRecorder{}
}

// PostgresStore keeps the execution ledger in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS task_executions (
	id             BIGSERIAL PRIMARY KEY,
	message_id     TEXT        NOT NULL,
	task_id        TEXT        NOT NULL DEFAULT '',
	task_type      TEXT        NOT NULL DEFAULT '',
	outcome        TEXT        NOT NULL,
	delivery_count INTEGER     NOT NULL,
	error          TEXT        NOT NULL DEFAULT '',
	started_at     TIMESTAMPTZ NOT NULL,
	finished_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS task_executions_outcome_idx ON task_executions (outcome, finished_at DESC);
`

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, exec Execution) error {
	if exec.MessageID == "" {
		return errors.New("execution has no message id")
	}
	if _, err := ParseOutcome(string(exec.Outcome)); err != nil || exec.Outcome == "" {
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, exec.Outcome)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO task_executions
			(message_id, task_id, task_type, outcome, delivery_count, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		exec.MessageID, exec.TaskID, exec.TaskType, string(exec.Outcome),
		exec.DeliveryCount, exec.Error, exec.StartedAt.UTC(), exec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record execution %s: %w", exec.MessageID, err)
	}
	return nil
}

// List returns executions newest first.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Execution, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}

	var (
		rows pgx.Rows
		err  error
	)
	if f.Outcome == "" {
		rows, err = s.pool.Query(ctx, `
			SELECT id, message_id, task_id, task_type, outcome, delivery_count, error, started_at, finished_at
			FROM task_executions
			ORDER BY finished_at DESC, id DESC
			LIMIT $1`, f.Limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, message_id, task_id, task_type, outcome, delivery_count, error, started_at, finished_at
			FROM task_executions
			WHERE outcome = $1
			ORDER BY finished_at DESC, id DESC
			LIMIT $2`, string(f.Outcome), f.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	execs := []Execution{}
	for rows.Next() {
		var (
			e       Execution
			outcome string
		)
		if err := rows.Scan(
			&e.ID, &e.MessageID, &e.TaskID, &e.TaskType, &outcome,
			&e.DeliveryCount, &e.Error, &e.StartedAt, &e.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		e.Outcome = Outcome(outcome)
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read executions: %w", err)
	}
	return execs, nil
}
