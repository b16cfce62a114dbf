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
	apphttp "salesdesk_backend/internal/http"
	"salesdesk_backend/internal/http/router"
	"salesdesk_backend/internal/leads"
	"salesdesk_backend/internal/meetings"
	"salesdesk_backend/internal/profile"
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	gen := newGenerator(ctx, cfg, log)
	prof := loadProfile(cfg, log)
	extractor := sig.NewExtractor(gen, prof, log)

	sender := email.NewSender(cfg)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	agentopsModule := agentops.NewModule(pool, eventBus, log)
	dealsModule := deals.NewModule(pool, extractor, prof, eventBus, log)
	leadsModule := leads.NewModule(pool, extractor, dealsModule.Service(), agentopsModule.Queue(), eventBus, val, log)
	meetingsModule := meetings.NewModule(pool, leadsModule.Repository(), extractor, agentopsModule.Queue(), eventBus, val, log)

	// Autonomous agents run through the shared orchestrator
	agentopsModule.Orchestrator().Register(leads.NewScoringAgent(leadsModule.Scoring()))
	agentopsModule.Orchestrator().Register(deals.NewPipelineAgent(dealsModule.Service()))

	// Action executors carry out approved and auto-handled actions
	agentopsModule.Queue().RegisterExecutor(agentdomain.ActionTypeFollowupEmail, email.NewFollowupExecutor(sender, log))
	agentopsModule.Queue().RegisterExecutor(agentdomain.ActionTypeManagerAlert, email.NewManagerAlertExecutor(sender, leadsModule.Repository(), cfg.GetManagerAlertEmail(), log))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:         cfg,
		Logger:         log,
		Health:         db.NewPoolAdapter(pool),
		EventBus:       eventBus,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Modules: []apphttp.Module{
			leadsModule,
			dealsModule,
			meetingsModule,
			agentopsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// newGenerator builds the inference backend. A missing API key is not fatal:
// every consumer degrades (fallback signals, default deal values, empty
// drafts) when generation is disabled.
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
