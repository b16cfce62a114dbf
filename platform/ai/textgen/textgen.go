// Package textgen wraps the external text-generation API behind a small
// prompt-in, text-out interface. This is part of the platform layer and
// contains no business logic.
package textgen

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the inference API answers without a
// usable text candidate.
var ErrEmptyResponse = errors.New("textgen: empty response from model")

// ErrDisabled is returned when no inference backend is configured.
var ErrDisabled = errors.New("textgen: generation disabled, no API key configured")

// Request carries one generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int32
}

// Generator produces free text for a prompt. Implementations must return an
// error for every failure mode (transport error, non-2xx, empty candidates);
// callers own the recovery policy.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Disabled is the Generator used when no API key is configured. Every call
// fails with ErrDisabled, which callers degrade from the same way as any
// other inference failure.
type Disabled struct{}

func (Disabled) Generate(ctx context.Context, req Request) (string, error) {
	return "", ErrDisabled
}
