package deals

import (
	"context"

	"salesdesk_backend/internal/agentops/ledger"
	"salesdesk_backend/internal/deals/service"
)

// PipelineAgent is the batch agent that recomputes open deal probabilities.
// It is registered with the orchestrator under the "pipeline" agent type.
type PipelineAgent struct {
	svc *service.Service
}

func NewPipelineAgent(svc *service.Service) *PipelineAgent {
	return &PipelineAgent{svc: svc}
}

func (a *PipelineAgent) Type() string {
	return "pipeline"
}

func (a *PipelineAgent) Run(ctx context.Context, run *ledger.Run) error {
	return a.svc.RecomputeOpenDeals(ctx, run)
}
