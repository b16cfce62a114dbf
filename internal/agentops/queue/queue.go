// Package queue gates agent-proposed actions behind human approval. The
// queue decides nothing about what an action does; it enforces the state
// machine and dispatches executable actions to the executor registered for
// their type.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/agentops/repository"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Executor performs one action type's side effect once the gate is open.
type Executor interface {
	Execute(ctx context.Context, action domain.Action) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, action domain.Action) error

func (f ExecutorFunc) Execute(ctx context.Context, action domain.Action) error {
	return f(ctx, action)
}

// ActionStore is the persistence surface the queue needs.
type ActionStore interface {
	Create(ctx context.Context, params repository.CreateActionParams) (domain.Action, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Action, error)
	ListByStatus(ctx context.Context, status domain.ActionStatus, limit int) ([]domain.Action, error)
	MarkApproved(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkRejected(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkExecuted(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Queue struct {
	store     ActionStore
	executors map[domain.ActionType]Executor
	bus       events.Bus
	log       *logger.Logger
}

func New(store ActionStore, bus events.Bus, log *logger.Logger) *Queue {
	return &Queue{
		store:     store,
		executors: make(map[domain.ActionType]Executor),
		bus:       bus,
		log:       log,
	}
}

// RegisterExecutor binds an action type to its side effect. Registration
// happens at wiring time, before the queue serves requests.
func (q *Queue) RegisterExecutor(t domain.ActionType, ex Executor) {
	q.executors[t] = ex
}

type ProposeParams struct {
	AgentType        string
	ActionType       domain.ActionType
	RequiresApproval bool
	Data             any
}

// Propose records a new action. Actions that require approval start pending;
// the rest are created auto-handled and may be executed immediately.
func (q *Queue) Propose(ctx context.Context, params ProposeParams) (domain.Action, error) {
	payload, err := json.Marshal(params.Data)
	if err != nil {
		return domain.Action{}, apperr.Wrap(apperr.KindInternal, "encode action payload", err)
	}

	status := domain.ActionStatusAutoHandled
	if params.RequiresApproval {
		status = domain.ActionStatusPending
	}

	action, err := q.store.Create(ctx, repository.CreateActionParams{
		AgentType:        params.AgentType,
		ActionType:       params.ActionType,
		RequiresApproval: params.RequiresApproval,
		Status:           status,
		Data:             payload,
	})
	if err != nil {
		return domain.Action{}, err
	}

	q.log.AgentEvent(action.AgentType, "action_proposed_"+string(status), action.ID.String())
	return action, nil
}

func (q *Queue) Get(ctx context.Context, id uuid.UUID) (domain.Action, error) {
	action, err := q.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrActionNotFound) {
		return domain.Action{}, apperr.NotFound("action not found")
	}
	return action, err
}

func (q *Queue) ListByStatus(ctx context.Context, status domain.ActionStatus, limit int) ([]domain.Action, error) {
	return q.store.ListByStatus(ctx, status, limit)
}

// Approve moves a pending action to approved. Execution is a separate step.
func (q *Queue) Approve(ctx context.Context, id uuid.UUID) (domain.Action, error) {
	action, err := q.Get(ctx, id)
	if err != nil {
		return domain.Action{}, err
	}
	if !action.Status.CanApprove() {
		return domain.Action{}, apperr.Conflict("action is " + string(action.Status) + ", only pending actions can be approved")
	}

	if err := q.store.MarkApproved(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrActionStateChanged) {
			return domain.Action{}, apperr.Conflict("action state changed concurrently")
		}
		return domain.Action{}, err
	}

	return q.Get(ctx, id)
}

// Reject terminates a pending action. Rejected actions are never executed.
func (q *Queue) Reject(ctx context.Context, id uuid.UUID) (domain.Action, error) {
	action, err := q.Get(ctx, id)
	if err != nil {
		return domain.Action{}, err
	}
	if !action.Status.CanReject() {
		return domain.Action{}, apperr.Conflict("action is " + string(action.Status) + ", only pending actions can be rejected")
	}

	if err := q.store.MarkRejected(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrActionStateChanged) {
			return domain.Action{}, apperr.Conflict("action state changed concurrently")
		}
		return domain.Action{}, err
	}

	return q.Get(ctx, id)
}

// Execute runs an action's side effect through its registered executor. Only
// approved or auto-handled actions pass the gate; a pending action is an
// invariant violation, rejected with a descriptive error.
func (q *Queue) Execute(ctx context.Context, id uuid.UUID) (domain.Action, error) {
	action, err := q.Get(ctx, id)
	if err != nil {
		return domain.Action{}, err
	}
	if !action.Status.Executable() {
		return domain.Action{}, apperr.Conflict("action is " + string(action.Status) + ", it cannot be executed")
	}

	ex, ok := q.executors[action.ActionType]
	if !ok {
		return domain.Action{}, apperr.Internal("no executor registered for action type " + string(action.ActionType))
	}

	if err := ex.Execute(ctx, action); err != nil {
		return domain.Action{}, apperr.Wrap(apperr.KindUnavailable, "execute "+string(action.ActionType), err)
	}

	if err := q.store.MarkExecuted(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrActionStateChanged) {
			return domain.Action{}, apperr.Conflict("action state changed concurrently")
		}
		return domain.Action{}, err
	}

	q.bus.Publish(ctx, events.ActionExecuted{
		BaseEvent:  events.NewBaseEvent(),
		ActionID:   action.ID,
		ActionType: string(action.ActionType),
	})
	q.log.AgentEvent(action.AgentType, "action_executed", action.ID.String())

	return q.Get(ctx, id)
}
