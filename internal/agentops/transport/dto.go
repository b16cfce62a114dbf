package transport

import (
	"encoding/json"
	"time"

	"salesdesk_backend/internal/agentops/domain"

	"github.com/google/uuid"
)

type ActionEntryResponse struct {
	EntityID string    `json:"entityId"`
	Action   string    `json:"action"`
	Outcome  string    `json:"outcome"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

type RunResponse struct {
	ID           uuid.UUID             `json:"id"`
	AgentType    string                `json:"agentType"`
	Status       string                `json:"status"`
	Error        *string               `json:"error,omitempty"`
	ActionsTaken []ActionEntryResponse `json:"actionsTaken"`
	StartedAt    time.Time             `json:"startedAt"`
	CompletedAt  *time.Time            `json:"completedAt,omitempty"`
}

func ToRunResponse(run domain.Run) RunResponse {
	entries := make([]ActionEntryResponse, 0, len(run.ActionsTaken))
	for _, e := range run.ActionsTaken {
		entries = append(entries, ActionEntryResponse(e))
	}
	return RunResponse{
		ID:           run.ID,
		AgentType:    run.AgentType,
		Status:       string(run.Status),
		Error:        run.Error,
		ActionsTaken: entries,
		StartedAt:    run.StartedAt,
		CompletedAt:  run.CompletedAt,
	}
}

func ToRunResponses(runs []domain.Run) []RunResponse {
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, ToRunResponse(run))
	}
	return out
}

type ActionResponse struct {
	ID               uuid.UUID       `json:"id"`
	AgentType        string          `json:"agentType"`
	ActionType       string          `json:"actionType"`
	RequiresApproval bool            `json:"requiresApproval"`
	Status           string          `json:"status"`
	Data             json.RawMessage `json:"data"`
	CreatedAt        time.Time       `json:"createdAt"`
	ApprovedAt       *time.Time      `json:"approvedAt,omitempty"`
	RejectedAt       *time.Time      `json:"rejectedAt,omitempty"`
	ExecutedAt       *time.Time      `json:"executedAt,omitempty"`
}

func ToActionResponse(a domain.Action) ActionResponse {
	return ActionResponse{
		ID:               a.ID,
		AgentType:        a.AgentType,
		ActionType:       string(a.ActionType),
		RequiresApproval: a.RequiresApproval,
		Status:           string(a.Status),
		Data:             a.Data,
		CreatedAt:        a.CreatedAt,
		ApprovedAt:       a.ApprovedAt,
		RejectedAt:       a.RejectedAt,
		ExecutedAt:       a.ExecutedAt,
	}
}

func ToActionResponses(actions []domain.Action) []ActionResponse {
	out := make([]ActionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, ToActionResponse(a))
	}
	return out
}
