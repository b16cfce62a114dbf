package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/agentops/repository"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeActionStore struct {
	actions map[uuid.UUID]domain.Action
}

func newFakeActionStore() *fakeActionStore {
	return &fakeActionStore{actions: make(map[uuid.UUID]domain.Action)}
}

func (f *fakeActionStore) Create(_ context.Context, params repository.CreateActionParams) (domain.Action, error) {
	action := domain.Action{
		ID:               uuid.New(),
		AgentType:        params.AgentType,
		ActionType:       params.ActionType,
		RequiresApproval: params.RequiresApproval,
		Status:           params.Status,
		Data:             params.Data,
		CreatedAt:        time.Now(),
	}
	f.actions[action.ID] = action
	return action, nil
}

func (f *fakeActionStore) GetByID(_ context.Context, id uuid.UUID) (domain.Action, error) {
	action, ok := f.actions[id]
	if !ok {
		return domain.Action{}, repository.ErrActionNotFound
	}
	return action, nil
}

func (f *fakeActionStore) ListByStatus(_ context.Context, status domain.ActionStatus, _ int) ([]domain.Action, error) {
	out := make([]domain.Action, 0)
	for _, a := range f.actions {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeActionStore) MarkApproved(_ context.Context, id uuid.UUID, at time.Time) error {
	return f.transition(id, domain.ActionStatusPending, domain.ActionStatusApproved, at)
}

func (f *fakeActionStore) MarkRejected(_ context.Context, id uuid.UUID, at time.Time) error {
	return f.transition(id, domain.ActionStatusPending, domain.ActionStatusRejected, at)
}

func (f *fakeActionStore) MarkExecuted(_ context.Context, id uuid.UUID, at time.Time) error {
	a, ok := f.actions[id]
	if !ok || !a.Status.Executable() {
		return repository.ErrActionStateChanged
	}
	a.Status = domain.ActionStatusExecuted
	a.ExecutedAt = &at
	f.actions[id] = a
	return nil
}

func (f *fakeActionStore) transition(id uuid.UUID, from, to domain.ActionStatus, at time.Time) error {
	a, ok := f.actions[id]
	if !ok || a.Status != from {
		return repository.ErrActionStateChanged
	}
	a.Status = to
	switch to {
	case domain.ActionStatusApproved:
		a.ApprovedAt = &at
	case domain.ActionStatusRejected:
		a.RejectedAt = &at
	}
	f.actions[id] = a
	return nil
}

type recordingExecutor struct {
	calls []domain.Action
	err   error
}

func (r *recordingExecutor) Execute(_ context.Context, action domain.Action) error {
	r.calls = append(r.calls, action)
	return r.err
}

func newTestQueue(store ActionStore) *Queue {
	log := logger.New("test")
	return New(store, events.NewInMemoryBus(log), log)
}

func TestProposeApprovalGating(t *testing.T) {
	q := newTestQueue(newFakeActionStore())

	gated, err := q.Propose(context.Background(), ProposeParams{
		AgentType:        "deal",
		ActionType:       domain.ActionTypeFollowupEmail,
		RequiresApproval: true,
		Data:             domain.FollowupEmailPayload{LeadID: uuid.New(), Subject: "re: pricing"},
	})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if gated.Status != domain.ActionStatusPending {
		t.Errorf("approval-gated action status = %s, want pending", gated.Status)
	}

	auto, err := q.Propose(context.Background(), ProposeParams{
		AgentType:  "meeting",
		ActionType: domain.ActionTypeManagerAlert,
		Data:       domain.ManagerAlertPayload{MeetingID: uuid.New(), Reason: "low confidence"},
	})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if auto.Status != domain.ActionStatusAutoHandled {
		t.Errorf("auto action status = %s, want auto_handled", auto.Status)
	}

	var payload domain.ManagerAlertPayload
	if err := json.Unmarshal(auto.Data, &payload); err != nil || payload.Reason != "low confidence" {
		t.Errorf("payload round trip failed: %v %+v", err, payload)
	}
}

func TestPendingActionCannotExecute(t *testing.T) {
	store := newFakeActionStore()
	q := newTestQueue(store)
	ex := &recordingExecutor{}
	q.RegisterExecutor(domain.ActionTypeFollowupEmail, ex)

	action, _ := q.Propose(context.Background(), ProposeParams{
		AgentType:        "deal",
		ActionType:       domain.ActionTypeFollowupEmail,
		RequiresApproval: true,
	})

	_, err := q.Execute(context.Background(), action.ID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("executing pending action: err = %v, want conflict", err)
	}
	if len(ex.calls) != 0 {
		t.Error("executor must not run for a pending action")
	}
}

func TestApproveThenExecute(t *testing.T) {
	store := newFakeActionStore()
	q := newTestQueue(store)
	ex := &recordingExecutor{}
	q.RegisterExecutor(domain.ActionTypeFollowupEmail, ex)

	action, _ := q.Propose(context.Background(), ProposeParams{
		AgentType:        "deal",
		ActionType:       domain.ActionTypeFollowupEmail,
		RequiresApproval: true,
	})

	approved, err := q.Approve(context.Background(), action.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != domain.ActionStatusApproved || approved.ApprovedAt == nil {
		t.Errorf("approved action = %+v", approved)
	}

	executed, err := q.Execute(context.Background(), action.ID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if executed.Status != domain.ActionStatusExecuted || executed.ExecutedAt == nil {
		t.Errorf("executed action = %+v", executed)
	}
	if len(ex.calls) != 1 {
		t.Fatalf("executor calls = %d, want 1", len(ex.calls))
	}
}

func TestRejectIsTerminal(t *testing.T) {
	q := newTestQueue(newFakeActionStore())

	action, _ := q.Propose(context.Background(), ProposeParams{
		AgentType:        "deal",
		ActionType:       domain.ActionTypeFollowupEmail,
		RequiresApproval: true,
	})

	if _, err := q.Reject(context.Background(), action.ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := q.Approve(context.Background(), action.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("approving rejected action: err = %v, want conflict", err)
	}
	if _, err := q.Execute(context.Background(), action.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("executing rejected action: err = %v, want conflict", err)
	}
}

func TestAutoHandledExecutesWithoutApproval(t *testing.T) {
	q := newTestQueue(newFakeActionStore())
	ex := &recordingExecutor{}
	q.RegisterExecutor(domain.ActionTypeManagerAlert, ex)

	action, _ := q.Propose(context.Background(), ProposeParams{
		AgentType:  "meeting",
		ActionType: domain.ActionTypeManagerAlert,
	})

	executed, err := q.Execute(context.Background(), action.ID)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if executed.Status != domain.ActionStatusExecuted {
		t.Errorf("status = %s", executed.Status)
	}
}

func TestExecutorFailureKeepsActionExecutable(t *testing.T) {
	q := newTestQueue(newFakeActionStore())
	ex := &recordingExecutor{err: errors.New("smtp down")}
	q.RegisterExecutor(domain.ActionTypeManagerAlert, ex)

	action, _ := q.Propose(context.Background(), ProposeParams{
		AgentType:  "meeting",
		ActionType: domain.ActionTypeManagerAlert,
	})

	if _, err := q.Execute(context.Background(), action.ID); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}

	after, _ := q.Get(context.Background(), action.ID)
	if after.Status != domain.ActionStatusAutoHandled {
		t.Errorf("failed execution must not consume the action, status = %s", after.Status)
	}
}

func TestExecuteWithoutRegisteredExecutor(t *testing.T) {
	q := newTestQueue(newFakeActionStore())

	action, _ := q.Propose(context.Background(), ProposeParams{
		AgentType:  "meeting",
		ActionType: domain.ActionTypeManagerAlert,
	})

	if _, err := q.Execute(context.Background(), action.ID); !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("err = %v, want internal", err)
	}
}
