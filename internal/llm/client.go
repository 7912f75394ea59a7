// Package llm mediates all large-language-model calls. Responses are
// structured JSON validated against declared schemas; in-flight calls are
// bounded globally because the model is the system's bottleneck.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ramonehamilton/deckforge/internal/apperr"
)

// Provider issues one structured-output request and returns the raw JSON.
type Provider interface {
	GenerateStructured(ctx context.Context, system, prompt string, schema *genai.Schema) (json.RawMessage, error)
}

// Config holds provider settings.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// Model is the generation model identifier.
	Model string

	// MaxInFlight bounds concurrent LLM calls across all requests.
	MaxInFlight int64

	// RequestInterval is the minimum spacing between requests.
	RequestInterval time.Duration

	// MaxRetries bounds attempts against transient upstream failures.
	MaxRetries int

	// Temperature for generation.
	Temperature float32
}

// DefaultConfig returns provider settings that work for interactive use.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:          apiKey,
		Model:           "gemini-2.5-flash",
		MaxInFlight:     4,
		RequestInterval: 100 * time.Millisecond,
		MaxRetries:      3,
		Temperature:     0.7,
	}
}

// GeminiProvider calls the Gemini API with response schemas enforced
// server-side.
type GeminiProvider struct {
	client  *genai.Client
	config  Config
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGeminiProvider creates the provider.
func NewGeminiProvider(ctx context.Context, config Config, logger *zap.Logger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-flash"
	}
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = 4
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	interval := config.RequestInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	return &GeminiProvider{
		client:  client,
		config:  config,
		sem:     semaphore.NewWeighted(config.MaxInFlight),
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}, nil
}

// GenerateStructured issues one generation request constrained to the given
// response schema and returns the raw JSON body. Transient upstream errors
// are retried with exponential backoff.
func (p *GeminiProvider) GenerateStructured(ctx context.Context, system, prompt string, schema *genai.Schema) (json.RawMessage, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, apperr.Wrap(apperr.KindTimeout, "LLM back-pressure wait cancelled", err)
	}
	defer p.sem.Release(1)

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		Temperature:      genai.Ptr(p.config.Temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			p.logger.Warn("retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, apperr.Wrap(apperr.KindTimeout, "LLM retry wait cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return nil, apperr.Wrap(apperr.KindTimeout, "LLM rate-limit wait cancelled", err)
		}

		result, err := p.client.Models.GenerateContent(ctx, p.config.Model,
			genai.Text(prompt), cfg)
		if err != nil {
			lastErr = err
			continue
		}

		text := result.Text()
		if text == "" {
			lastErr = fmt.Errorf("empty response from model")
			continue
		}
		return json.RawMessage(text), nil
	}

	return nil, apperr.Wrap(apperr.KindUpstreamUnavailable,
		fmt.Sprintf("LLM request failed after %d attempts", p.config.MaxRetries), lastErr)
}

// Generate issues a structured request and decodes it into T. A malformed
// body is retried once with the same input; the second failure surfaces a
// parse_failure.
func Generate[T any](ctx context.Context, p Provider, system, prompt string, schema *genai.Schema) (*T, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := p.GenerateStructured(ctx, system, prompt, schema)
		if err != nil {
			// Upstream failures carry their own kind; no point re-sending.
			return nil, err
		}

		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			lastErr = err
			continue
		}
		return &out, nil
	}
	return nil, apperr.Wrap(apperr.KindParseFailure, "LLM returned malformed structured output", lastErr)
}
