// Package scheduler runs the periodic agent sweep over asynq: a cron
// schedule enqueues sweep tasks on redis and a worker drains them by
// running every registered agent.
package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"salesdesk_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueAgentSweep queues one immediate sweep, used by the manual sweep
// endpoint and by tests.
func (c *Client) EnqueueAgentSweep(ctx context.Context, trigger string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewAgentSweepTask(AgentSweepPayload{
		Trigger:     trigger,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// SweepScheduler registers the recurring sweep on the configured cron spec.
type SweepScheduler struct {
	scheduler *asynq.Scheduler
	spec      string
	queue     string
}

func NewSweepScheduler(cfg config.SchedulerConfig) (*SweepScheduler, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	spec := cfg.GetAgentSweepSpec()
	if spec == "" {
		spec = "@every 15m"
	}

	return &SweepScheduler{
		scheduler: asynq.NewScheduler(opt, nil),
		spec:      spec,
		queue:     queueName(cfg),
	}, nil
}

// Run blocks until the context is canceled.
func (s *SweepScheduler) Run(ctx context.Context) error {
	task, err := NewAgentSweepTask(AgentSweepPayload{Trigger: "schedule"})
	if err != nil {
		return err
	}

	if _, err := s.scheduler.Register(s.spec, task, asynq.Queue(s.queue)); err != nil {
		return fmt.Errorf("register sweep schedule: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.scheduler.Shutdown()
	}()

	return s.scheduler.Run()
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
