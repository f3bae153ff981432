// Package llm generates text from chat messages.
package llm

import (
	"context"
	"errors"

	"github.com/hyperjump/shirabe/internal/models"
)

// ErrGeneration is returned when the backend fails to produce text.
var ErrGeneration = errors.New("text generation failed")

// Generator turns a conversation into a single reply.
type Generator interface {
	Generate(ctx context.Context, msgs []models.Message) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, msgs []models.Message) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, msgs []models.Message) (string, error) {
	return f(ctx, msgs)
}
