package leads

import (
	"context"

	"salesdesk_backend/internal/agentops/ledger"
	"salesdesk_backend/internal/leads/scoring"
)

// ScoringAgent is the batch agent that rescores every lead. It is registered
// with the orchestrator under the "lead_scoring" agent type.
type ScoringAgent struct {
	svc *scoring.Service
}

func NewScoringAgent(svc *scoring.Service) *ScoringAgent {
	return &ScoringAgent{svc: svc}
}

func (a *ScoringAgent) Type() string {
	return "lead_scoring"
}

func (a *ScoringAgent) Run(ctx context.Context, run *ledger.Run) error {
	return a.svc.RescoreAll(ctx, run)
}
