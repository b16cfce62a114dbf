// Package ledger wraps batch agent work in audited run records. A run is
// opened before the batch starts, collects per-entity outcome entries while
// it executes, and is driven to exactly one terminal status (completed or
// failed) when the batch returns, on every exit path.
package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrAlreadyFinished is returned by Finish after the first terminal
// transition. Callers using Finish in a defer may ignore it.
var ErrAlreadyFinished = errors.New("run already finished")

// RunStore is the persistence surface the ledger needs.
type RunStore interface {
	Create(ctx context.Context, agentType string) (domain.Run, error)
	SaveActions(ctx context.Context, id uuid.UUID, entries []domain.ActionEntry) error
	Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, runErr *string, entries []domain.ActionEntry, at time.Time) error
}

type Ledger struct {
	store RunStore
	log   *logger.Logger
}

func New(store RunStore, log *logger.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

// StartRun opens a run record for one batch invocation. Failure to open the
// record is fatal to the whole batch; nothing has happened yet.
func (l *Ledger) StartRun(ctx context.Context, agentType string) (*Run, error) {
	rec, err := l.store.Create(ctx, agentType)
	if err != nil {
		return nil, err
	}

	l.log.AgentEvent(agentType, "run_started", rec.ID.String())

	return &Run{
		id:        rec.ID,
		agentType: agentType,
		store:     l.store,
		log:       l.log,
	}, nil
}

// Run is the handle a batch job records progress through. It is safe for use
// from a single goroutine per batch; the mutex covers the handle being shared
// between the batch body and a deferred Finish.
type Run struct {
	id        uuid.UUID
	agentType string
	store     RunStore
	log       *logger.Logger

	mu       sync.Mutex
	entries  []domain.ActionEntry
	finished bool
}

func (r *Run) ID() uuid.UUID { return r.id }

func (r *Run) AgentType() string { return r.agentType }

// RecordAction appends one per-entity outcome. The entry is kept in memory
// and snapshotted to the store immediately, so partial progress survives a
// later failure; a snapshot error is logged, not surfaced, because the entry
// is persisted again at Finish.
func (r *Run) RecordAction(ctx context.Context, entry domain.ActionEntry) {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}

	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		r.log.Warn("action recorded after run finished, dropped",
			"agent_type", r.agentType, "run_id", r.id.String(), "action", entry.Action)
		return
	}
	r.entries = append(r.entries, entry)
	snapshot := append([]domain.ActionEntry(nil), r.entries...)
	r.mu.Unlock()

	if err := r.store.SaveActions(ctx, r.id, snapshot); err != nil {
		r.log.DatabaseError("agent_run_save_actions", err)
	}
}

// Finish drives the run to its terminal status: completed when runErr is nil,
// failed otherwise. The transition is one-way; a second call is a no-op
// returning ErrAlreadyFinished, which makes Finish safe under defer.
func (r *Run) Finish(ctx context.Context, runErr error) error {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return ErrAlreadyFinished
	}
	r.finished = true
	snapshot := append([]domain.ActionEntry(nil), r.entries...)
	r.mu.Unlock()

	status := domain.RunStatusCompleted
	var errText *string
	if runErr != nil {
		status = domain.RunStatusFailed
		msg := runErr.Error()
		errText = &msg
	}

	err := r.store.Finish(ctx, r.id, status, errText, snapshot, time.Now().UTC())
	if err != nil {
		r.log.DatabaseError("agent_run_finish", err)
		return err
	}

	r.log.AgentEvent(r.agentType, "run_"+string(status), r.id.String())
	return nil
}
