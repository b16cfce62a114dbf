package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRunStore struct {
	createErr error
	finishErr error

	created      []string
	saved        [][]domain.ActionEntry
	finishStatus domain.RunStatus
	finishError  *string
	finishCalls  int
	finalEntries []domain.ActionEntry
}

func (f *fakeRunStore) Create(_ context.Context, agentType string) (domain.Run, error) {
	if f.createErr != nil {
		return domain.Run{}, f.createErr
	}
	f.created = append(f.created, agentType)
	return domain.Run{ID: uuid.New(), AgentType: agentType, Status: domain.RunStatusRunning, StartedAt: time.Now()}, nil
}

func (f *fakeRunStore) SaveActions(_ context.Context, _ uuid.UUID, entries []domain.ActionEntry) error {
	f.saved = append(f.saved, entries)
	return nil
}

func (f *fakeRunStore) Finish(_ context.Context, _ uuid.UUID, status domain.RunStatus, runErr *string, entries []domain.ActionEntry, _ time.Time) error {
	f.finishCalls++
	if f.finishErr != nil {
		return f.finishErr
	}
	f.finishStatus = status
	f.finishError = runErr
	f.finalEntries = entries
	return nil
}

func newTestLedger(store RunStore) *Ledger {
	return New(store, logger.New("test"))
}

func TestRunCompletesWithRecordedActions(t *testing.T) {
	store := &fakeRunStore{}
	run, err := newTestLedger(store).StartRun(context.Background(), "lead_scoring")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	run.RecordAction(context.Background(), domain.ActionEntry{EntityID: "lead-1", Action: "rescore", Outcome: "updated"})
	run.RecordAction(context.Background(), domain.ActionEntry{EntityID: "lead-2", Action: "rescore", Outcome: "unchanged"})

	if err := run.Finish(context.Background(), nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if store.finishStatus != domain.RunStatusCompleted {
		t.Errorf("status = %s, want completed", store.finishStatus)
	}
	if store.finishError != nil {
		t.Errorf("error = %v, want nil", *store.finishError)
	}
	if len(store.finalEntries) != 2 {
		t.Fatalf("persisted entries = %d, want 2", len(store.finalEntries))
	}
	if store.finalEntries[0].At.IsZero() {
		t.Error("entry timestamp not defaulted")
	}
	// Each RecordAction snapshots partial progress.
	if len(store.saved) != 2 || len(store.saved[0]) != 1 {
		t.Errorf("partial snapshots = %v", store.saved)
	}
}

func TestRunFailurePreservesPartialProgress(t *testing.T) {
	store := &fakeRunStore{}
	run, _ := newTestLedger(store).StartRun(context.Background(), "pipeline")

	run.RecordAction(context.Background(), domain.ActionEntry{EntityID: "deal-1", Action: "recompute", Outcome: "updated"})

	if err := run.Finish(context.Background(), errors.New("datastore down")); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if store.finishStatus != domain.RunStatusFailed {
		t.Errorf("status = %s, want failed", store.finishStatus)
	}
	if store.finishError == nil || *store.finishError != "datastore down" {
		t.Errorf("error = %v", store.finishError)
	}
	if len(store.finalEntries) != 1 {
		t.Errorf("partial progress lost: %d entries", len(store.finalEntries))
	}
}

func TestFinishIsOneWay(t *testing.T) {
	store := &fakeRunStore{}
	run, _ := newTestLedger(store).StartRun(context.Background(), "lead_scoring")

	if err := run.Finish(context.Background(), nil); err != nil {
		t.Fatalf("first Finish: %v", err)
	}
	if err := run.Finish(context.Background(), errors.New("late failure")); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("second Finish err = %v, want ErrAlreadyFinished", err)
	}

	if store.finishCalls != 1 {
		t.Errorf("store.Finish called %d times, want 1", store.finishCalls)
	}
	if store.finishStatus != domain.RunStatusCompleted {
		t.Errorf("terminal status overwritten to %s", store.finishStatus)
	}
}

func TestRecordAfterFinishIsDropped(t *testing.T) {
	store := &fakeRunStore{}
	run, _ := newTestLedger(store).StartRun(context.Background(), "lead_scoring")
	_ = run.Finish(context.Background(), nil)

	run.RecordAction(context.Background(), domain.ActionEntry{EntityID: "lead-9", Action: "rescore"})

	if len(store.saved) != 0 {
		t.Error("entry recorded after finish must not be persisted")
	}
}

func TestStartRunSurfacesStoreError(t *testing.T) {
	store := &fakeRunStore{createErr: errors.New("insert failed")}

	if _, err := newTestLedger(store).StartRun(context.Background(), "pipeline"); err == nil {
		t.Fatal("expected error when run record cannot be opened")
	}
}
