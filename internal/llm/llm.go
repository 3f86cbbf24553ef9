// Package llm provides the Gemini-backed model client used by the answer
// pipeline. All completions and structured classifications go through a
// single Client, which applies proactive rate limiting and retries
// transient provider errors with exponential backoff.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/sunmarke/assistant/internal/log"
	"github.com/sunmarke/assistant/internal/pipeline"
)

// ErrEmptyResponse indicates the model returned no usable text.
var ErrEmptyResponse = errors.New("model returned empty response")

// providerPrefix qualifies bare model names for the Google AI plugin.
const providerPrefix = "googleai/"

// RetryConfig configures the retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for Gemini API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Config contains the required parameters for a Client.
type Config struct {
	Genkit      *genkit.Genkit
	ModelName   string        // bare or provider-qualified, e.g. "gemini-2.5-flash"
	Temperature float32       // 0 disables the override
	MaxTokens   int           // 0 disables the override
	Retry       RetryConfig   // zero value uses defaults
	RateLimiter *rate.Limiter // nil uses the default limiter
	Logger      log.Logger
}

// Client issues completions and structured classifications against one
// configured model. It is immutable after construction and safe for
// concurrent use.
type Client struct {
	g           *genkit.Genkit
	modelName   string
	temperature float32
	maxTokens   int
	retry       RetryConfig
	limiter     *rate.Limiter
	logger      log.Logger
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("llm: genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("llm: model name is required")
	}

	modelName := qualifyModelName(cfg.ModelName)

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 {
		retryCfg = DefaultRetryConfig()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		// 10 requests/sec sustained, burst of 30.
		limiter = rate.NewLimiter(10, 30)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Client{
		g:           cfg.Genkit,
		modelName:   modelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		retry:       retryCfg,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// Complete returns the model's free-text answer for the given system
// instruction and user prompt. An empty system instruction is omitted.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.generate(ctx, c.buildOpts(system, prompt))
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// ClassifyBinary asks the model for a structured yes/no verdict.
func (c *Client) ClassifyBinary(ctx context.Context, system, prompt string) (pipeline.Grade, error) {
	opts := append(c.buildOpts(system, prompt), ai.WithOutputType(pipeline.Grade{}))

	resp, err := c.generate(ctx, opts)
	if err != nil {
		return pipeline.Grade{}, err
	}

	var grade pipeline.Grade
	if err := resp.Output(&grade); err != nil {
		return pipeline.Grade{}, fmt.Errorf("decoding grade: %w", err)
	}
	return grade, nil
}

// routeDecision is the structured output of the routing classification.
type routeDecision struct {
	Datasource string `json:"datasource"`
}

// ClassifyRoute asks the model to label a question with a datasource name.
// The label is returned verbatim; interpretation belongs to the caller.
func (c *Client) ClassifyRoute(ctx context.Context, system, question string) (string, error) {
	opts := append(c.buildOpts(system, question), ai.WithOutputType(routeDecision{}))

	resp, err := c.generate(ctx, opts)
	if err != nil {
		return "", err
	}

	var decision routeDecision
	if err := resp.Output(&decision); err != nil {
		return "", fmt.Errorf("decoding route decision: %w", err)
	}
	return strings.TrimSpace(decision.Datasource), nil
}

func (c *Client) buildOpts(system, prompt string) []ai.GenerateOption {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithPrompt(prompt),
	}
	if system != "" {
		opts = append(opts, ai.WithSystem(system))
	}
	if c.temperature > 0 || c.maxTokens > 0 {
		genCfg := map[string]any{}
		if c.temperature > 0 {
			genCfg["temperature"] = c.temperature
		}
		if c.maxTokens > 0 {
			genCfg["maxOutputTokens"] = c.maxTokens
		}
		opts = append(opts, ai.WithConfig(genCfg))
	}
	return opts
}

// generate executes one model call with rate limiting and exponential
// backoff on transient errors.
func (c *Client) generate(ctx context.Context, opts []ai.GenerateOption) (*ai.ModelResponse, error) {
	var lastErr error
	delay := c.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		// Rate limit each attempt, including retries.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := genkit.Generate(ctx, c.g, opts...)
		if err == nil {
			c.logger.Debug("model call succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return resp, nil
		}

		lastErr = err

		if !retryableError(err) {
			return nil, fmt.Errorf("generate: %w", err)
		}

		if attempt == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying after transient error",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		c.retry.MaxRetries, time.Since(start), lastErr)
}

// retryablePatterns groups transient error substrings by category.
// Matched case-insensitively against err.Error().
//
// NOTE: String matching is used because Genkit and the provider SDK do not
// expose typed errors for transient failures.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable"},
	{"connection reset", "timeout", "temporary"},
}

// qualifyModelName prefixes bare model names with the Google AI provider.
// Names that already carry a provider are kept verbatim.
func qualifyModelName(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return providerPrefix + name
}

func retryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, sub := range group {
			if strings.Contains(errStr, sub) {
				return true
			}
		}
	}
	return false
}
