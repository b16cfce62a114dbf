package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/agentops/ledger"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type memoryRunStore struct {
	runs map[uuid.UUID]domain.Run
}

func newMemoryRunStore() *memoryRunStore {
	return &memoryRunStore{runs: make(map[uuid.UUID]domain.Run)}
}

func (m *memoryRunStore) Create(_ context.Context, agentType string) (domain.Run, error) {
	run := domain.Run{ID: uuid.New(), AgentType: agentType, Status: domain.RunStatusRunning, StartedAt: time.Now()}
	m.runs[run.ID] = run
	return run, nil
}

func (m *memoryRunStore) SaveActions(_ context.Context, id uuid.UUID, entries []domain.ActionEntry) error {
	run := m.runs[id]
	run.ActionsTaken = entries
	m.runs[id] = run
	return nil
}

func (m *memoryRunStore) Finish(_ context.Context, id uuid.UUID, status domain.RunStatus, runErr *string, entries []domain.ActionEntry, at time.Time) error {
	run := m.runs[id]
	run.Status = status
	run.Error = runErr
	run.ActionsTaken = entries
	run.CompletedAt = &at
	m.runs[id] = run
	return nil
}

type scriptedAgent struct {
	agentType string
	err       error
	panicMsg  string
	entries   []domain.ActionEntry
	started   chan struct{}
	release   chan struct{}
}

func (s *scriptedAgent) Type() string { return s.agentType }

func (s *scriptedAgent) Run(ctx context.Context, run *ledger.Run) error {
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}
	for _, e := range s.entries {
		run.RecordAction(ctx, e)
	}
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.err
}

func newTestOrchestrator(store ledger.RunStore) *Orchestrator {
	log := logger.New("test")
	return NewOrchestrator(ledger.New(store, log), events.NewInMemoryBus(log), log)
}

func TestRunAllAggregatesIndependentResults(t *testing.T) {
	store := newMemoryRunStore()
	o := newTestOrchestrator(store)
	o.Register(&scriptedAgent{agentType: "lead_scoring", entries: []domain.ActionEntry{{EntityID: "l1", Action: "rescore", Outcome: "updated"}}})
	o.Register(&scriptedAgent{agentType: "pipeline", err: errors.New("recompute failed")})

	results := o.RunAll(context.Background())

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].AgentType != "lead_scoring" || results[0].Status != domain.RunStatusCompleted {
		t.Errorf("lead_scoring result = %+v", results[0])
	}
	if results[1].AgentType != "pipeline" || results[1].Status != domain.RunStatusFailed || results[1].Error == "" {
		t.Errorf("pipeline result = %+v", results[1])
	}

	// Every run record reached a terminal status.
	for _, run := range store.runs {
		if !run.Status.Terminal() {
			t.Errorf("run %s left in %s", run.AgentType, run.Status)
		}
	}
}

func TestRunAllIsolatesPanics(t *testing.T) {
	store := newMemoryRunStore()
	o := newTestOrchestrator(store)
	o.Register(&scriptedAgent{agentType: "pipeline", panicMsg: "nil deref"})
	o.Register(&scriptedAgent{agentType: "lead_scoring"})

	results := o.RunAll(context.Background())

	if results[0].Status != domain.RunStatusFailed {
		t.Errorf("panicking agent result = %+v", results[0])
	}
	if results[1].Status != domain.RunStatusCompleted {
		t.Errorf("sibling of panicking agent result = %+v", results[1])
	}

	for _, run := range store.runs {
		if run.AgentType == "pipeline" {
			if run.Status != domain.RunStatusFailed || run.Error == nil {
				t.Errorf("panicking run record = %+v", run)
			}
		}
	}
}

func TestRunAllRunsAgentsConcurrently(t *testing.T) {
	store := newMemoryRunStore()
	o := newTestOrchestrator(store)

	first := &scriptedAgent{agentType: "lead_scoring", started: make(chan struct{}), release: make(chan struct{})}
	second := &scriptedAgent{agentType: "pipeline", started: make(chan struct{}), release: make(chan struct{})}
	o.Register(first)
	o.Register(second)

	done := make(chan []RunResult)
	go func() { done <- o.RunAll(context.Background()) }()

	// Both branches must be in flight at the same time.
	for _, ch := range []chan struct{}{first.started, second.started} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("agents did not start concurrently")
		}
	}
	close(first.release)
	close(second.release)

	results := <-done
	for _, r := range results {
		if r.Status != domain.RunStatusCompleted {
			t.Errorf("result = %+v", r)
		}
	}
}

func TestRunAllPreservesPartialProgressOnFailure(t *testing.T) {
	store := newMemoryRunStore()
	o := newTestOrchestrator(store)
	o.Register(&scriptedAgent{
		agentType: "pipeline",
		entries: []domain.ActionEntry{
			{EntityID: "d1", Action: "recompute", Outcome: "updated"},
			{EntityID: "d2", Action: "recompute", Outcome: "failed", Error: "bad row"},
		},
		err: errors.New("aborted at item 3"),
	})

	o.RunAll(context.Background())

	for _, run := range store.runs {
		if len(run.ActionsTaken) != 2 {
			t.Errorf("partial progress lost: %d entries", len(run.ActionsTaken))
		}
		if run.Status != domain.RunStatusFailed {
			t.Errorf("status = %s", run.Status)
		}
	}
}
