// Package agentops coordinates the autonomous batch agents: the run ledger
// that audits them, the action queue that gates their side effects, and the
// orchestrator that dispatches them concurrently.
package agentops

import (
	"salesdesk_backend/internal/agentops/handler"
	"salesdesk_backend/internal/agentops/ledger"
	"salesdesk_backend/internal/agentops/orchestrator"
	"salesdesk_backend/internal/agentops/queue"
	"salesdesk_backend/internal/agentops/repository"
	"salesdesk_backend/internal/events"
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the agent operations bounded context: run ledger, action queue
// and orchestrator behind /agent routes. Agents and executors are registered
// by the composition root after construction.
type Module struct {
	handler      *handler.Handler
	ledger       *ledger.Ledger
	queue        *queue.Queue
	orchestrator *orchestrator.Orchestrator
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) *Module {
	runs := repository.NewRuns(pool)
	actions := repository.NewActions(pool)

	led := ledger.New(runs, log)
	q := queue.New(actions, bus, log)
	orch := orchestrator.NewOrchestrator(led, bus, log)

	return &Module{
		handler:      handler.New(orch, q, runs),
		ledger:       led,
		queue:        q,
		orchestrator: orch,
	}
}

func (m *Module) Name() string {
	return "agentops"
}

// Ledger exposes the run ledger for modules that record their own batches.
func (m *Module) Ledger() *ledger.Ledger {
	return m.ledger
}

// Queue exposes the action queue so other modules can propose actions and
// the composition root can register executors.
func (m *Module) Queue() *queue.Queue {
	return m.queue
}

// Orchestrator exposes the dispatcher for agent registration and scheduled
// sweeps.
func (m *Module) Orchestrator() *orchestrator.Orchestrator {
	return m.orchestrator
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/agent")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
