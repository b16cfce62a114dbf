package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"salesdesk_backend/internal/agentops/orchestrator"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// SweepRunner is the orchestrator surface the worker needs.
type SweepRunner interface {
	RunAll(ctx context.Context) []orchestrator.RunResult
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner SweepRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner SweepRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskAgentSweep, w.handleAgentSweep)

	return w, nil
}

func (w *Worker) handleAgentSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAgentSweepPayload(task)
	if err != nil {
		return err
	}

	results := w.runner.RunAll(ctx)

	failed := 0
	for _, r := range results {
		if r.Status == "failed" {
			failed++
		}
	}

	w.log.Info("agent_sweep_done",
		slog.String("trigger", payload.Trigger),
		slog.Int("agents", len(results)),
		slog.Int("failed", failed),
	)

	// A failed agent is recorded in its run ledger entry; the sweep task
	// itself succeeds so asynq does not retry the whole fleet.
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
