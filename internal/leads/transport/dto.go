package transport

import (
	"time"

	agenttransport "salesdesk_backend/internal/agentops/transport"
	dealtransport "salesdesk_backend/internal/deals/transport"
	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/leads/service"

	"github.com/google/uuid"
)

// Request DTOs

type CreateLeadRequest struct {
	Name    string  `json:"name" validate:"required,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Company *string `json:"company,omitempty" validate:"omitempty,max=200"`
}

type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted qualified meeting_scheduled proposal negotiation won lost"`
}

type ReplyRequest struct {
	Subject string `json:"subject" validate:"max=500"`
	Body    string `json:"body" validate:"required,min=1"`
}

// Response DTOs

type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           *string    `json:"email,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	Company         *string    `json:"company,omitempty"`
	Score           int        `json:"score"`
	Status          string     `json:"status"`
	Sentiment       float64    `json:"sentiment"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	LastReplyAt     *time.Time `json:"lastReplyAt,omitempty"`
	NextFollowupAt  *time.Time `json:"nextFollowupAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func ToLeadResponse(lead domain.Lead) LeadResponse {
	return LeadResponse{
		ID:              lead.ID,
		Name:            lead.Name,
		Email:           lead.Email,
		Phone:           lead.Phone,
		Company:         lead.Company,
		Score:           lead.Score,
		Status:          string(lead.Status),
		Sentiment:       lead.Sentiment,
		LastContactedAt: lead.LastContactedAt,
		LastReplyAt:     lead.LastReplyAt,
		NextFollowupAt:  lead.NextFollowupAt,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []domain.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}

type SignalResponse struct {
	Sentiment    float64  `json:"sentiment"`
	Confidence   float64  `json:"confidence"`
	StageKeyword string   `json:"stageKeyword,omitempty"`
	Concerns     []string `json:"concerns"`
	Degraded     bool     `json:"degraded"`
}

type ReplyOutcomeResponse struct {
	Lead           LeadResponse                   `json:"lead"`
	Signal         SignalResponse                 `json:"signal"`
	Deal           *dealtransport.DealResponse    `json:"deal,omitempty"`
	ProposedAction *agenttransport.ActionResponse `json:"proposedAction,omitempty"`
}

func ToReplyOutcomeResponse(outcome service.ReplyOutcome) ReplyOutcomeResponse {
	resp := ReplyOutcomeResponse{
		Lead: ToLeadResponse(outcome.Lead),
		Signal: SignalResponse{
			Sentiment:    outcome.Signal.Sentiment,
			Confidence:   outcome.Signal.Confidence,
			StageKeyword: outcome.Signal.StageKeyword,
			Concerns:     outcome.Signal.Concerns,
			Degraded:     outcome.Signal.Degraded,
		},
	}

	if outcome.Deal != nil {
		deal := dealtransport.ToDealResponse(*outcome.Deal)
		resp.Deal = &deal
	}
	if outcome.ProposedAction != nil {
		action := agenttransport.ToActionResponse(*outcome.ProposedAction)
		resp.ProposedAction = &action
	}

	return resp
}
