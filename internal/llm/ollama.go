package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

// Ollama generates replies with a chat model served by Ollama.
type Ollama struct {
	llm          llms.Model
	modelName    string
	baseURL      string
	temperature  float64
	maxAttempts  int
	initialDelay time.Duration
	logger       *zap.Logger
}

// Option configures an Ollama generator.
type Option func(*Ollama)

// WithLogger sets a logger for retry reporting.
func WithLogger(l *zap.Logger) Option {
	return func(o *Ollama) { o.logger = l }
}

// WithInitialDelay sets the first retry delay.
func WithInitialDelay(d time.Duration) Option {
	return func(o *Ollama) { o.initialDelay = d }
}

// NewOllama creates a generator from cfg.
func NewOllama(cfg config.LLMConfig, opts ...Option) (*Ollama, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientOpts := []ollama.Option{
		ollama.WithModel(cfg.Model),
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.NumCtx > 0 {
		clientOpts = append(clientOpts, ollama.WithRunnerNumCtx(cfg.NumCtx))
	}
	model, err := ollama.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	g := &Ollama{
		llm:          model,
		modelName:    cfg.Model,
		baseURL:      cfg.BaseURL,
		temperature:  cfg.Temperature,
		maxAttempts:  cfg.MaxAttempts,
		initialDelay: 500 * time.Millisecond,
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = 3
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Model returns the model name.
func (g *Ollama) Model() string {
	return g.modelName
}

// BaseURL returns the Ollama server URL.
func (g *Ollama) BaseURL() string {
	return g.baseURL
}

func toMessageContent(msgs []models.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		role := llms.ChatMessageTypeHuman
		switch m.Role {
		case models.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case models.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

// Generate sends msgs to the model, retrying transient failures with
// exponential backoff. Every failure is reported as ErrGeneration.
func (g *Ollama) Generate(ctx context.Context, msgs []models.Message) (string, error) {
	if len(msgs) == 0 {
		return "", fmt.Errorf("%w: no messages", ErrGeneration)
	}
	content := toMessageContent(msgs)

	var reply string
	attempt := 0
	op := func() error {
		attempt++
		resp, err := g.llm.GenerateContent(ctx, content, llms.WithTemperature(g.temperature))
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no response choices")
		}
		reply = strings.TrimSpace(resp.Choices[0].Content)
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = g.initialDelay
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(g.maxAttempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		if g.logger != nil {
			g.logger.Warn("generation failed, retrying",
				zap.String("model", g.modelName),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		}
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return "", fmt.Errorf("%w: %s after %d attempts: %v", ErrGeneration, g.modelName, attempt, err)
	}
	return reply, nil
}
