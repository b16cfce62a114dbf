// Package meetings is the meeting lifecycle bounded context: the agent
// prepares, attends, and analyzes live sales meetings, escalating to a
// manager when the conversation turns.
package meetings

import (
	"context"
	"errors"

	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	leadsrepo "salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/meetings/handler"
	"salesdesk_backend/internal/meetings/repository"
	"salesdesk_backend/internal/meetings/service"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, leads *leadsrepo.Repository, extractor service.SignalExtractor, actions service.ActionProposer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leadReader{repo: leads}, extractor, actions, bus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "meetings"
}

// Service exposes the lifecycle controller for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/meetings")
	m.handler.RegisterRoutes(group)

	// Meeting history also hangs off the lead resource, next to its deals.
	ctx.Protected.GET("/leads/:id/meetings", m.handler.ListByLead)
}

var _ apphttp.Module = (*Module)(nil)

// leadReader adapts the leads repository to the narrow lookup the meeting
// service needs.
type leadReader struct {
	repo *leadsrepo.Repository
}

func (r leadReader) Name(ctx context.Context, leadID uuid.UUID) (string, string, error) {
	lead, err := r.repo.GetByID(ctx, leadID)
	if errors.Is(err, leadsrepo.ErrNotFound) {
		return "", "", apperr.NotFound("lead not found")
	}
	if err != nil {
		return "", "", err
	}
	return lead.Name, string(lead.Status), nil
}
