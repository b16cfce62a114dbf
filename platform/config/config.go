// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetAgentSweepSpec() string
}

// AIConfig provides settings for the external text-generation API.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetAIRequestTimeout() time.Duration
	GetAIRequestsPerMinute() int
	IsAIEnabled() bool
}

// EmailConfig provides settings for outbound email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetManagerAlertEmail() string
}

// InboxConfig provides settings for the IMAP reply poller.
type InboxConfig interface {
	GetInboxEnabled() bool
	GetIMAPHost() string
	GetIMAPPort() int
	GetIMAPUsername() string
	GetIMAPPassword() string
	GetInboxPollInterval() time.Duration
}

// ProfileConfig provides the optional company profile file location.
type ProfileConfig interface {
	GetCompanyProfilePath() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	AgentSweepSpec   string

	GeminiAPIKey        string
	GeminiModel         string
	AIRequestTimeout    time.Duration
	AIRequestsPerMinute int

	EmailEnabled      bool
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	EmailFromName     string
	EmailFromAddress  string
	ManagerAlertEmail string

	InboxEnabled      bool
	IMAPHost          string
	IMAPPort          int
	IMAPUsername      string
	IMAPPassword      string
	InboxPollInterval time.Duration

	CompanyProfilePath string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from the environment, with .env support for
// local development. Required values produce an error when missing.
func Load() (*Config, error) {
	// Best effort; the file is optional outside development.
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:    getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:     getEnvList("CORS_ORIGINS"),
		CORSAllowCreds:  getEnvBool("CORS_ALLOW_CREDENTIALS", true),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: getEnvBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),
		AgentSweepSpec:   getEnv("AGENT_SWEEP_SPEC", "@every 6h"),

		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		AIRequestTimeout:    getEnvDuration("AI_REQUEST_TIMEOUT", 45*time.Second),
		AIRequestsPerMinute: getEnvInt("AI_REQUESTS_PER_MINUTE", 30),

		EmailEnabled:      getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "SalesDesk"),
		EmailFromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@salesdesk.local"),
		ManagerAlertEmail: getEnv("MANAGER_ALERT_EMAIL", ""),

		InboxEnabled:      getEnvBool("INBOX_ENABLED", false),
		IMAPHost:          getEnv("IMAP_HOST", ""),
		IMAPPort:          getEnvInt("IMAP_PORT", 993),
		IMAPUsername:      getEnv("IMAP_USERNAME", ""),
		IMAPPassword:      os.Getenv("IMAP_PASSWORD"),
		InboxPollInterval: getEnvDuration("INBOX_POLL_INTERVAL", 2*time.Minute),

		CompanyProfilePath: getEnv("COMPANY_PROFILE_PATH", ""),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool     { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string  { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool   { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetAgentSweepSpec() string { return c.AgentSweepSpec }

func (c *Config) GetGeminiAPIKey() string             { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string              { return c.GeminiModel }
func (c *Config) GetAIRequestTimeout() time.Duration  { return c.AIRequestTimeout }
func (c *Config) GetAIRequestsPerMinute() int         { return c.AIRequestsPerMinute }
func (c *Config) IsAIEnabled() bool                   { return c.GeminiAPIKey != "" }

func (c *Config) GetEmailEnabled() bool        { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string          { return c.SMTPHost }
func (c *Config) GetSMTPPort() int             { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string      { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string      { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string     { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string  { return c.EmailFromAddress }
func (c *Config) GetManagerAlertEmail() string { return c.ManagerAlertEmail }

func (c *Config) GetInboxEnabled() bool                { return c.InboxEnabled }
func (c *Config) GetIMAPHost() string                  { return c.IMAPHost }
func (c *Config) GetIMAPPort() int                     { return c.IMAPPort }
func (c *Config) GetIMAPUsername() string              { return c.IMAPUsername }
func (c *Config) GetIMAPPassword() string              { return c.IMAPPassword }
func (c *Config) GetInboxPollInterval() time.Duration  { return c.InboxPollInterval }

func (c *Config) GetCompanyProfilePath() string { return c.CompanyProfilePath }

// =============================================================================
// Env helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
