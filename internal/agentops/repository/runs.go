package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"salesdesk_backend/internal/agentops/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRunNotFound = errors.New("agent run not found")
	// ErrRunTerminal signals a write against a run that already reached
	// completed or failed.
	ErrRunTerminal = errors.New("agent run already finished")
)

type Runs struct {
	pool *pgxpool.Pool
}

func NewRuns(pool *pgxpool.Pool) *Runs {
	return &Runs{pool: pool}
}

func (r *Runs) Create(ctx context.Context, agentType string) (domain.Run, error) {
	var run domain.Run
	var actions []byte
	err := r.pool.QueryRow(ctx, `
		INSERT INTO agent_runs (agent_type)
		VALUES ($1)
		RETURNING id, agent_type, status, error, actions_taken, started_at, completed_at
	`, agentType).Scan(&run.ID, &run.AgentType, &run.Status, &run.Error, &actions, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		return domain.Run{}, err
	}

	if err := json.Unmarshal(actions, &run.ActionsTaken); err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

// SaveActions snapshots the entries recorded so far. Guarded on the running
// status so a finished run stays immutable.
func (r *Runs) SaveActions(ctx context.Context, id uuid.UUID, entries []domain.ActionEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE agent_runs SET actions_taken = $2 WHERE id = $1 AND status = 'running'
	`, id, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunTerminal
	}
	return nil
}

// Finish sets the terminal status. The WHERE status='running' guard makes the
// transition one-way even under concurrent finishers.
func (r *Runs) Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, runErr *string, entries []domain.ActionEntry, at time.Time) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE agent_runs
		SET status = $2, error = $3, actions_taken = $4, completed_at = $5
		WHERE id = $1 AND status = 'running'
	`, id, status, runErr, payload, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRunTerminal
	}
	return nil
}

func (r *Runs) GetByID(ctx context.Context, id uuid.UUID) (domain.Run, error) {
	var run domain.Run
	var actions []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, agent_type, status, error, actions_taken, started_at, completed_at
		FROM agent_runs
		WHERE id = $1
	`, id).Scan(&run.ID, &run.AgentType, &run.Status, &run.Error, &actions, &run.StartedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Run{}, ErrRunNotFound
	}
	if err != nil {
		return domain.Run{}, err
	}

	if err := json.Unmarshal(actions, &run.ActionsTaken); err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

func (r *Runs) List(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, agent_type, status, error, actions_taken, started_at, completed_at
		FROM agent_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]domain.Run, 0)
	for rows.Next() {
		var run domain.Run
		var actions []byte
		if err := rows.Scan(&run.ID, &run.AgentType, &run.Status, &run.Error, &actions, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(actions, &run.ActionsTaken); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
