package events

import (
	"github.com/google/uuid"
)

// LeadCreated fires after a new lead row is persisted.
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (LeadCreated) EventName() string { return "lead.created" }

// LeadReplyReceived fires when an inbound email reply is matched to a lead.
// Body carries the raw, untrusted reply text.
type LeadReplyReceived struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
}

func (LeadReplyReceived) EventName() string { return "lead.reply_received" }

// DealStageChanged fires after the deal stage engine moves a deal.
type DealStageChanged struct {
	BaseEvent
	DealID   uuid.UUID `json:"dealId"`
	LeadID   uuid.UUID `json:"leadId"`
	OldStage string    `json:"oldStage"`
	NewStage string    `json:"newStage"`
}

func (DealStageChanged) EventName() string { return "deal.stage_changed" }

// ManagerAlertRaised fires when a live meeting escalates to a human manager.
type ManagerAlertRaised struct {
	BaseEvent
	MeetingID uuid.UUID `json:"meetingId"`
	LeadID    uuid.UUID `json:"leadId"`
	Reason    string    `json:"reason"`
}

func (ManagerAlertRaised) EventName() string { return "meeting.manager_alert" }

// AgentRunFinished fires when a batch agent run reaches a terminal status.
type AgentRunFinished struct {
	BaseEvent
	RunID     uuid.UUID `json:"runId"`
	AgentType string    `json:"agentType"`
	Status    string    `json:"status"`
}

func (AgentRunFinished) EventName() string { return "agent.run_finished" }

// ActionExecuted fires after an approved agent action was handed to its executor.
type ActionExecuted struct {
	BaseEvent
	ActionID   uuid.UUID `json:"actionId"`
	ActionType string    `json:"actionType"`
}

func (ActionExecuted) EventName() string { return "agent.action_executed" }
