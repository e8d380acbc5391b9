package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/jd-tailor/internal/config"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ContentGenerator is the part of the genai Models service the client uses.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Client sends prompts to a Gemini model.
type Client struct {
	generator  ContentGenerator
	model      string
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient creates a Client backed by the Gemini API.
func NewClient(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return NewClientWithGenerator(client.Models, logger, cfg)
}

// NewClientWithGenerator creates a Client that sends requests to generator.
func NewClientWithGenerator(generator ContentGenerator, logger *slog.Logger, cfg config.LLMConfig) (*Client, error) {
	if generator == nil {
		return nil, fmt.Errorf("%w: content generator cannot be nil", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gemini_client", "model", cfg.ModelName)

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		logger.Warn("invalid retry delay value, using default", "retry_delay", "2s")
		retryDelay = 2 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	return &Client{
		generator:  generator,
		model:      cfg.ModelName,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		timeout:    cfg.RequestTimeout,
		logger:     logger,
	}, nil
}

// Model returns the name of the model the client calls.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt with the given system instruction and returns the
// response text. Transient API errors are retried up to the configured
// number of times; the final error then wraps ErrTransientFailure.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	backoff := retry.WithMaxRetries(uint64(c.maxRetries),
		retry.WithJitterPercent(25, retry.NewExponential(c.retryDelay)))

	var (
		text    string
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c.logger.InfoContext(ctx, "making Gemini API call",
			"attempt", attempt,
			"max_attempts", c.maxRetries+1)

		out, err := c.generate(ctx, system, prompt)
		if err == nil {
			text = out
			return nil
		}

		c.logger.ErrorContext(ctx, "Gemini API call failed", "attempt", attempt, "error", err)
		if IsPermanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		if IsPermanent(err) {
			return "", err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %v", ErrTransientFailure, ctxErr)
		}
		return "", fmt.Errorf("%w: failed after %d attempts: %v", ErrTransientFailure, attempt, err)
	}

	c.logger.InfoContext(ctx, "Gemini API call successful", "attempt", attempt, "response_length", len(text))
	return text, nil
}

// generate makes a single paced API call.
func (c *Client) generate(ctx context.Context, system, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var temperature float32
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	resp, err := c.generator.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// responseText extracts the text of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	switch {
	case resp == nil:
		return "", fmt.Errorf("%w: nil response", ErrInvalidResponse)
	case len(resp.Candidates) == 0:
		return "", fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return "", ErrContentBlocked
	case resp.Candidates[0].Content == nil:
		return "", fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: empty text in response", ErrInvalidResponse)
	}
	return b.String(), nil
}

// disabledGenerator answers every request with ErrNotConfigured.
type disabledGenerator struct{}

func (disabledGenerator) GenerateContent(
	context.Context, string, []*genai.Content, *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	return nil, ErrNotConfigured
}

// NewDisabledClient returns a Client that fails every call with
// ErrNotConfigured. The service uses it when no API key is set so that the
// rest of the API keeps working.
func NewDisabledClient(logger *slog.Logger, cfg config.LLMConfig) *Client {
	if cfg.ModelName == "" {
		cfg.ModelName = "disabled"
	}
	c, _ := NewClientWithGenerator(disabledGenerator{}, logger, cfg)
	return c
}
