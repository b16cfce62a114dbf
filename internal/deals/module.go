// Package deals is the deal pipeline bounded context: the stage engine that
// reacts to conversation signals and the periodic probability recompute.
package deals

import (
	"salesdesk_backend/internal/deals/handler"
	"salesdesk_backend/internal/deals/repository"
	"salesdesk_backend/internal/deals/service"
	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/internal/profile"
	"salesdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, gen service.TextGenerator, p profile.Profile, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, gen, p, bus, log)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "deals"
}

// Service exposes the stage engine for the leads module and the pipeline
// agent.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/deals")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
