package signal

import (
	"context"

	"salesdesk_backend/internal/profile"
	"salesdesk_backend/platform/ai/textgen"
	"salesdesk_backend/platform/logger"
)

const (
	extractTemperature = 0.2
	extractMaxTokens   = 1024
)

// Context carries the lead-side facts a prompt needs.
type Context struct {
	LeadName   string
	LeadStatus string
}

// Extractor is the single boundary between free text and Signals.
type Extractor struct {
	gen     textgen.Generator
	profile profile.Profile
	log     *logger.Logger
}

// NewExtractor builds an extractor over the given generator.
func NewExtractor(gen textgen.Generator, p profile.Profile, log *logger.Logger) *Extractor {
	return &Extractor{gen: gen, profile: p, log: log}
}

// Extract interprets text of the given kind. It never returns an error: any
// inference or decode failure yields the fallback Signal with Degraded set.
func (e *Extractor) Extract(ctx context.Context, kind Kind, text string, sctx Context) Signal {
	var userPrompt string
	switch kind {
	case KindMeetingTranscript:
		userPrompt = buildTranscriptPrompt(sctx, text)
	default:
		userPrompt = buildEmailReplyPrompt(sctx, text)
	}

	raw, err := e.gen.Generate(ctx, textgen.Request{
		SystemPrompt: systemPrompt(e.profile),
		UserPrompt:   userPrompt,
		Temperature:  extractTemperature,
		MaxTokens:    extractMaxTokens,
	})
	if err != nil {
		e.log.InferenceError("signal_extract", err)
		return Fallback(kind)
	}

	sig, err := decodeSignal(kind, raw)
	if err != nil {
		e.log.InferenceError("signal_decode", err)
		return Fallback(kind)
	}

	return sig
}

// GenerateText runs a free-text generative call (meeting preparation notes,
// conversation summaries). Unlike Extract, failures are surfaced: the caller
// decides whether the surrounding transition may proceed.
func (e *Extractor) GenerateText(ctx context.Context, userPrompt string, maxTokens int32) (string, error) {
	return e.gen.Generate(ctx, textgen.Request{
		SystemPrompt: systemPrompt(e.profile),
		UserPrompt:   userPrompt,
		Temperature:  0.7,
		MaxTokens:    maxTokens,
	})
}

// Profile exposes the company profile for prompt builders in other modules.
func (e *Extractor) Profile() profile.Profile {
	return e.profile
}
