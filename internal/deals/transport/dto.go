package transport

import (
	"time"

	"salesdesk_backend/internal/deals/domain"

	"github.com/google/uuid"
)

type DealResponse struct {
	ID             uuid.UUID  `json:"id"`
	LeadID         uuid.UUID  `json:"leadId"`
	Stage          string     `json:"stage"`
	Value          float64    `json:"value"`
	Probability    float64    `json:"probability"`
	CloseDate      *time.Time `json:"closeDate,omitempty"`
	LastActivityAt time.Time  `json:"lastActivityAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func ToDealResponse(deal domain.Deal) DealResponse {
	return DealResponse{
		ID:             deal.ID,
		LeadID:         deal.LeadID,
		Stage:          string(deal.Stage),
		Value:          deal.Value,
		Probability:    deal.Probability,
		CloseDate:      deal.CloseDate,
		LastActivityAt: deal.LastActivityAt,
		CreatedAt:      deal.CreatedAt,
		UpdatedAt:      deal.UpdatedAt,
	}
}

func ToDealResponses(deals []domain.Deal) []DealResponse {
	out := make([]DealResponse, 0, len(deals))
	for _, deal := range deals {
		out = append(out, ToDealResponse(deal))
	}
	return out
}

type CloseDealRequest struct {
	Won bool `json:"won"`
}
