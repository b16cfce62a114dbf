package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salesdesk_backend/internal/agentops"
	agentdomain "salesdesk_backend/internal/agentops/domain"
	"salesdesk_backend/internal/deals"
	"salesdesk_backend/internal/email"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/internal/inbox"
	"salesdesk_backend/internal/leads"
	"salesdesk_backend/internal/profile"
	"salesdesk_backend/internal/scheduler"
	sig "salesdesk_backend/internal/signal"
	"salesdesk_backend/platform/ai/textgen"
	"salesdesk_backend/platform/config"
	"salesdesk_backend/platform/db"
	"salesdesk_backend/platform/logger"
	"salesdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	gen := newGenerator(ctx, cfg, log)
	prof := loadProfile(cfg, log)
	extractor := sig.NewExtractor(gen, prof, log)

	sender := email.NewSender(cfg)
	val := validator.New()

	agentopsModule := agentops.NewModule(pool, eventBus, log)
	dealsModule := deals.NewModule(pool, extractor, prof, eventBus, log)
	leadsModule := leads.NewModule(pool, extractor, dealsModule.Service(), agentopsModule.Queue(), eventBus, val, log)

	agentopsModule.Orchestrator().Register(leads.NewScoringAgent(leadsModule.Scoring()))
	agentopsModule.Orchestrator().Register(deals.NewPipelineAgent(dealsModule.Service()))

	agentopsModule.Queue().RegisterExecutor(agentdomain.ActionTypeFollowupEmail, email.NewFollowupExecutor(sender, log))
	agentopsModule.Queue().RegisterExecutor(agentdomain.ActionTypeManagerAlert, email.NewManagerAlertExecutor(sender, leadsModule.Repository(), cfg.GetManagerAlertEmail(), log))

	// IMAP reply poller feeds inbound replies into the same pipeline as
	// the HTTP reply endpoint.
	if cfg.GetInboxEnabled() {
		poller := inbox.NewPoller(cfg, leadsModule.Repository(), eventBus, log)
		go poller.Run(ctx)
	} else {
		log.Info("inbox poller disabled")
	}

	sweepScheduler, err := scheduler.NewSweepScheduler(cfg)
	if err != nil {
		log.Error("failed to initialize sweep scheduler", "error", err)
		panic("failed to initialize sweep scheduler: " + err.Error())
	}
	go func() {
		if err := sweepScheduler.Run(ctx); err != nil {
			log.Error("sweep scheduler stopped", "error", err)
		}
	}()

	worker, err := scheduler.NewWorker(cfg, agentopsModule.Orchestrator(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("scheduler stopped")
}

func newGenerator(ctx context.Context, cfg *config.Config, log *logger.Logger) textgen.Generator {
	gen, err := textgen.NewGeminiClient(ctx, cfg)
	if errors.Is(err, textgen.ErrDisabled) {
		log.Warn("inference disabled, no API key configured")
		return textgen.Disabled{}
	}
	if err != nil {
		log.Error("failed to initialize inference client", "error", err)
		panic("failed to initialize inference client: " + err.Error())
	}
	return gen
}

func loadProfile(cfg *config.Config, log *logger.Logger) profile.Profile {
	path := cfg.GetCompanyProfilePath()
	if path == "" {
		return profile.Default()
	}

	prof, err := profile.Load(path)
	if err != nil {
		log.Error("failed to load company profile", "error", err, "path", path)
		panic("failed to load company profile: " + err.Error())
	}
	return prof
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}
