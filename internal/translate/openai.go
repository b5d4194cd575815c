package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/ayuda/pkg/circuitbreaker"
	"github.com/hyperjump/ayuda/pkg/retry"
	"github.com/hyperjump/ayuda/pkg/utils"
)

// OpenAIOptions configures an OpenAI-compatible chat translator.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

// OpenAITranslator asks a chat completion model for a translation. Calls go
// through a circuit breaker and are retried with backoff, except for client
// errors other than 429.
type OpenAITranslator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	breaker *circuitbreaker.Breaker
	retry   retry.Config
	logger  *zap.Logger
}

// NewOpenAITranslator builds the client. BaseURL may point at any
// OpenAI-compatible endpoint (including a local server).
func NewOpenAITranslator(opts OpenAIOptions) *OpenAITranslator {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.Model == "" {
		opts.Model = openai.GPT3Dot5Turbo
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	logger := utils.OrNop(opts.Logger)
	rc := retry.DefaultConfig()
	if opts.MaxRetries > 0 {
		rc.MaxAttempts = opts.MaxRetries
	}
	rc.InitialDelay = 250 * time.Millisecond
	rc.Logger = logger

	return &OpenAITranslator{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		timeout: opts.Timeout,
		breaker: circuitbreaker.New("translate", circuitbreaker.Config{Cooldown: 30 * time.Second, Logger: logger}),
		retry:   rc,
		logger:  logger,
	}
}

// Translate implements Translator.
func (t *OpenAITranslator) Translate(ctx context.Context, text, from, to string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Translate the user's message from %s to %s. "+
					"Reply with the translation only, without quotes or commentary.", from, to),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}

	var out string
	err := t.breaker.Execute(func() error {
		return retry.Do(ctx, t.retry, func(ctx context.Context) error {
			resp, err := t.client.CreateChatCompletion(ctx, req)
			if err != nil {
				if !retryable(err) {
					return retry.Permanent(err)
				}
				return err
			}
			if len(resp.Choices) == 0 {
				return retry.Permanent(ErrEmptyTranslation)
			}
			out = strings.TrimSpace(resp.Choices[0].Message.Content)
			t.logger.Debug("translation completed",
				zap.String("from", from),
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return out, nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusRetryable(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusRetryable(reqErr.HTTPStatusCode)
	}
	return !errors.Is(err, context.Canceled)
}

func statusRetryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500 || code == 0
}
