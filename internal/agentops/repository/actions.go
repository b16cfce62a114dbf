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
	ErrActionNotFound = errors.New("agent action not found")
	// ErrActionStateChanged signals that a conditional status update matched
	// no row: another writer moved the action first.
	ErrActionStateChanged = errors.New("agent action state changed")
)

type Actions struct {
	pool *pgxpool.Pool
}

func NewActions(pool *pgxpool.Pool) *Actions {
	return &Actions{pool: pool}
}

const actionColumns = `id, agent_type, action_type, requires_approval, status, data,
	created_at, approved_at, rejected_at, executed_at`

func scanAction(row pgx.Row) (domain.Action, error) {
	var a domain.Action
	err := row.Scan(
		&a.ID, &a.AgentType, &a.ActionType, &a.RequiresApproval, &a.Status, &a.Data,
		&a.CreatedAt, &a.ApprovedAt, &a.RejectedAt, &a.ExecutedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Action{}, ErrActionNotFound
	}
	return a, err
}

type CreateActionParams struct {
	AgentType        string
	ActionType       domain.ActionType
	RequiresApproval bool
	Status           domain.ActionStatus
	Data             json.RawMessage
}

func (r *Actions) Create(ctx context.Context, params CreateActionParams) (domain.Action, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO agent_actions (agent_type, action_type, requires_approval, status, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+actionColumns+`
	`, params.AgentType, params.ActionType, params.RequiresApproval, params.Status, params.Data)

	return scanAction(row)
}

func (r *Actions) GetByID(ctx context.Context, id uuid.UUID) (domain.Action, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+actionColumns+` FROM agent_actions WHERE id = $1`, id)
	return scanAction(row)
}

func (r *Actions) ListByStatus(ctx context.Context, status domain.ActionStatus, limit int) ([]domain.Action, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+actionColumns+`
		FROM agent_actions
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := make([]domain.Action, 0)
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// MarkApproved moves pending → approved. The status guard in the WHERE clause
// is the line of defense against double approval.
func (r *Actions) MarkApproved(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.transition(ctx, `
		UPDATE agent_actions SET status = 'approved', approved_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, at)
}

// MarkRejected moves pending → rejected.
func (r *Actions) MarkRejected(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.transition(ctx, `
		UPDATE agent_actions SET status = 'rejected', rejected_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, at)
}

// MarkExecuted moves an executable action to executed.
func (r *Actions) MarkExecuted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.transition(ctx, `
		UPDATE agent_actions SET status = 'executed', executed_at = $2
		WHERE id = $1 AND status IN ('approved', 'auto_handled')
	`, id, at)
}

func (r *Actions) transition(ctx context.Context, sql string, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, sql, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActionStateChanged
	}
	return nil
}
