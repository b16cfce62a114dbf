// Package domain holds the agent bookkeeping models: run records that wrap a
// batch job, and the gated actions agents propose. Both are pure types with
// their transition rules; persistence and gating live in the sibling
// packages.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus tracks a batch agent run. The transition is one-way:
// running → completed or running → failed, set exactly once.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status admits no further writes.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// ActionEntry is one per-entity outcome recorded during a run. Entries are
// append-only while the run is open.
type ActionEntry struct {
	EntityID string    `json:"entityId"`
	Action   string    `json:"action"`
	Outcome  string    `json:"outcome"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Run is one execution of a batch autonomous job.
type Run struct {
	ID           uuid.UUID
	AgentType    string
	Status       RunStatus
	Error        *string
	ActionsTaken []ActionEntry
	StartedAt    time.Time
	CompletedAt  *time.Time
}
