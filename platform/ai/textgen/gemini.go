package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salesdesk_backend/platform/config"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// GeminiClient implements Generator on top of the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewGeminiClient builds a Gemini-backed generator. Returns ErrDisabled when
// no API key is configured so callers can fall back to degraded behavior.
func NewGeminiClient(ctx context.Context, cfg config.AIConfig) (*GeminiClient, error) {
	if !cfg.IsAIEnabled() {
		return nil, ErrDisabled
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("textgen: create client: %w", err)
	}

	perMinute := cfg.GetAIRequestsPerMinute()
	if perMinute < 1 {
		perMinute = 30
	}

	return &GeminiClient{
		client:  client,
		model:   cfg.GetGeminiModel(),
		timeout: cfg.GetAIRequestTimeout(),
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}, nil
}

// Generate performs one generation call with a client-side timeout.
func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("textgen: rate limit wait: %w", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = req.MaxTokens
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.UserPrompt), genCfg)
	if err != nil {
		return "", fmt.Errorf("textgen: generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

var _ Generator = (*GeminiClient)(nil)
