// Package orchestrator dispatches the registered batch agents concurrently.
package orchestrator

import (
	"context"
	"fmt"

	"salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/agentops/ledger"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Agent is one batch job the orchestrator can dispatch. Run receives an open
// ledger run to record per-entity outcomes on; it returns an error only for
// failures fatal to the whole batch.
type Agent interface {
	Type() string
	Run(ctx context.Context, run *ledger.Run) error
}

// RunResult is one branch's aggregate outcome.
type RunResult struct {
	AgentType string           `json:"agentType"`
	RunID     uuid.UUID        `json:"runId"`
	Status    domain.RunStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
}

// Orchestrator fans registered agents out concurrently. Branches are
// independent: each opens its own ledger run, captures its own errors and
// panics, and a failing branch never cancels its siblings.
type Orchestrator struct {
	ledger *ledger.Ledger
	bus    events.Bus
	log    *logger.Logger
	agents []Agent
}

func NewOrchestrator(l *ledger.Ledger, bus events.Bus, log *logger.Logger) *Orchestrator {
	return &Orchestrator{ledger: l, bus: bus, log: log}
}

// Register adds an agent to the dispatch set. Not safe to call after RunAll
// has started.
func (o *Orchestrator) Register(a Agent) {
	o.agents = append(o.agents, a)
}

// RunAll dispatches every registered agent on its own goroutine and waits
// for all of them, returning one result per agent in registration order.
func (o *Orchestrator) RunAll(ctx context.Context) []RunResult {
	results := make([]RunResult, len(o.agents))

	var g errgroup.Group
	for i, agent := range o.agents {
		g.Go(func() error {
			results[i] = o.runAgent(ctx, agent)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (o *Orchestrator) runAgent(ctx context.Context, agent Agent) RunResult {
	run, err := o.ledger.StartRun(ctx, agent.Type())
	if err != nil {
		o.log.Error("orchestrator could not open run", "agent_type", agent.Type(), "error", err)
		return RunResult{AgentType: agent.Type(), Status: domain.RunStatusFailed, Error: err.Error()}
	}

	runErr := o.executeGuarded(ctx, agent, run)

	// The run record must reach a terminal status even when the parent
	// context is already cancelled.
	if err := run.Finish(context.WithoutCancel(ctx), runErr); err != nil {
		o.log.Error("orchestrator could not finish run", "agent_type", agent.Type(), "run_id", run.ID().String(), "error", err)
	}

	result := RunResult{AgentType: agent.Type(), RunID: run.ID(), Status: domain.RunStatusCompleted}
	if runErr != nil {
		result.Status = domain.RunStatusFailed
		result.Error = runErr.Error()
	}

	o.bus.Publish(ctx, events.AgentRunFinished{
		BaseEvent: events.NewBaseEvent(),
		RunID:     run.ID(),
		AgentType: agent.Type(),
		Status:    string(result.Status),
	})

	return result
}

// executeGuarded converts a panicking agent into a failed run instead of
// letting it take down the process or its sibling branches.
func (o *Orchestrator) executeGuarded(ctx context.Context, agent Agent, run *ledger.Run) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %s panicked: %v", agent.Type(), r)
		}
	}()
	return agent.Run(ctx, run)
}
