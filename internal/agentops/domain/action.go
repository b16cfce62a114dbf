package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActionType tags what an action does and selects its executor and payload
// shape.
type ActionType string

const (
	ActionTypeManagerAlert  ActionType = "manager_alert"
	ActionTypeFollowupEmail ActionType = "followup_email"
)

// ActionStatus is an action's position in the approval state machine:
//
//	pending → approved → executed
//	pending → rejected (terminal)
//	auto_handled (created that way when no approval is required) → executed
type ActionStatus string

const (
	ActionStatusPending     ActionStatus = "pending"
	ActionStatusApproved    ActionStatus = "approved"
	ActionStatusRejected    ActionStatus = "rejected"
	ActionStatusExecuted    ActionStatus = "executed"
	ActionStatusAutoHandled ActionStatus = "auto_handled"
)

// CanApprove reports whether the action may move to approved.
func (s ActionStatus) CanApprove() bool { return s == ActionStatusPending }

// CanReject reports whether the action may move to rejected.
func (s ActionStatus) CanReject() bool { return s == ActionStatusPending }

// Executable reports whether the gate is open: either a human approved the
// action or it never required approval. A pending action must never execute.
func (s ActionStatus) Executable() bool {
	return s == ActionStatusApproved || s == ActionStatusAutoHandled
}

// Action is a unit of agent-proposed work held behind the approval gate.
// RequiresApproval is decided at creation and never changes.
type Action struct {
	ID               uuid.UUID
	AgentType        string
	ActionType       ActionType
	RequiresApproval bool
	Status           ActionStatus
	Data             json.RawMessage
	CreatedAt        time.Time
	ApprovedAt       *time.Time
	RejectedAt       *time.Time
	ExecutedAt       *time.Time
}

// ManagerAlertPayload is the data carried by a manager_alert action.
type ManagerAlertPayload struct {
	MeetingID uuid.UUID `json:"meetingId"`
	LeadID    uuid.UUID `json:"leadId"`
	Reason    string    `json:"reason"`
}

// FollowupEmailPayload is the data carried by a followup_email action: a
// drafted reply waiting for a human to approve and send.
type FollowupEmailPayload struct {
	LeadID  uuid.UUID `json:"leadId"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
}
