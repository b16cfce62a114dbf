// Package domain holds the meeting model and its lifecycle rules.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is a meeting's lifecycle position:
//
//	scheduled → prepared → in_progress → completed
//
// Preparation may be skipped; in_progress is reachable directly from
// scheduled. completed is terminal.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusPrepared   Status = "prepared"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// CanPrepare reports whether the prepare transition is valid.
func (s Status) CanPrepare() bool { return s == StatusScheduled }

// CanJoin reports whether the agent may join the meeting.
func (s Status) CanJoin() bool { return s == StatusScheduled || s == StatusPrepared }

// CanAnalyze reports whether live analysis is valid. Analysis is repeatable
// while the meeting runs.
func (s Status) CanAnalyze() bool { return s == StatusInProgress }

// CanComplete reports whether the complete transition is valid.
func (s Status) CanComplete() bool { return s == StatusInProgress }

// Analysis is one stored snapshot of a live transcript reading. It is
// overwritten by each analyze pass; only the alert flag on the meeting is
// sticky.
type Analysis struct {
	Sentiment   float64   `json:"sentiment"`
	Confidence  float64   `json:"confidence"`
	Summary     string    `json:"summary,omitempty"`
	Concerns    []string  `json:"concerns,omitempty"`
	AlertNeeded bool      `json:"alertNeeded"`
	AlertReason string    `json:"alertReason,omitempty"`
	Degraded    bool      `json:"degraded"`
	At          time.Time `json:"at"`
}

// Meeting is a live sales conversation the agent attends for a lead.
type Meeting struct {
	ID                     uuid.UUID
	LeadID                 uuid.UUID
	Title                  string
	ScheduledAt            *time.Time
	Status                 Status
	AgentJoinedAt          *time.Time
	ManagerJoinedAt        *time.Time
	AIAgentConfidenceScore float64
	ManagerAlertTriggered  bool
	ManagerAlertReason     *string
	LastAnalysis           *Analysis
	ConversationSummary    *string
	Outcome                *string
	AgentNotes             *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
