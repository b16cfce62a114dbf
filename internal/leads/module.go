// Package leads is the lead management bounded context: intake, pipeline
// status, scoring, and inbound reply handling.
package leads

import (
	"context"

	dealservice "salesdesk_backend/internal/deals/service"
	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/internal/leads/handler"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/leads/scoring"
	"salesdesk_backend/internal/leads/service"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
	scoring *scoring.Service
	repo    *repository.Repository
}

func NewModule(pool *pgxpool.Pool, extractor service.SignalExtractor, deals *dealservice.Service, actions service.ActionProposer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, extractor, deals, actions, bus, log)
	scoringSvc := scoring.New(repo, log)

	// Inbound replies surface as events from the inbox poller; route them
	// through the same pipeline the HTTP endpoint uses.
	bus.Subscribe(events.LeadReplyReceived{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadReplyReceived)
		if !ok {
			return nil
		}

		if _, err := svc.HandleReply(ctx, e.LeadID, e.Subject, e.Body); err != nil {
			log.Error("reply handling failed", "error", err, "leadId", e.LeadID)
			return err
		}
		return nil
	}))

	return &Module{
		handler: handler.New(svc, deals, val),
		service: svc,
		scoring: scoringSvc,
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "leads"
}

// Service exposes lead management for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Scoring exposes the rescoring pass for the lead_scoring agent.
func (m *Module) Scoring() *scoring.Service {
	return m.scoring
}

// Repository exposes lead lookups for the inbox poller's reply attribution.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
