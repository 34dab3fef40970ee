// Package ai содержит шлюз к API языковой модели. Все генераторы сервиса
// работают через интерфейс TextGenerator и не знают о конкретном провайдере.
package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrGenerationFailed - ошибка при генерации текста моделью.
var ErrGenerationFailed = errors.New("ai text generation failed")

// Config - настройки шлюза. Передается явно из конфигурации приложения,
// никакого чтения окружения внутри пакета.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	MaxAttempts    int
	BaseRetryDelay time.Duration
}

// CompletionRequest - один запрос на генерацию текста.
// Указатели позволяют отличить "не задано" от нулевого значения.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string // переопределение модели по умолчанию, опционально
	Temperature  *float64
	MaxTokens    *int
}

// TextGenerator - интерфейс, через который сервисы обращаются к модели.
type TextGenerator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Client реализует TextGenerator поверх go-openai (совместим с любым
// OpenAI-подобным API через BaseURL).
type Client struct {
	api            *openaigo.Client
	model          string
	maxAttempts    int
	baseRetryDelay time.Duration
	logger         *zap.Logger
}

var _ TextGenerator = (*Client)(nil)

// NewClient создает шлюз к модели из явной конфигурации.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	apiCfg := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	baseDelay := cfg.BaseRetryDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}

	logger.Info("AI client created",
		zap.String("base_url", apiCfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
		zap.Int("max_attempts", maxAttempts))

	return &Client{
		api:            openaigo.NewClientWithConfig(apiCfg),
		model:          cfg.Model,
		maxAttempts:    maxAttempts,
		baseRetryDelay: baseDelay,
		logger:         logger,
	}
}

// Complete выполняет запрос к модели с повторами при сбоях.
// Пустой ответ модели считается ошибкой и тоже повторяется.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if strings.TrimSpace(req.SystemPrompt) == "" {
		return "", fmt.Errorf("%w: system prompt is empty", ErrGenerationFailed)
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: req.SystemPrompt},
	}
	if req.UserPrompt != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{
			Role: openaigo.ChatMessageRoleUser, Content: req.UserPrompt,
		})
	}

	apiReq := openaigo.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.Temperature != nil {
		apiReq.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		apiReq.MaxTokens = *req.MaxTokens
	}

	promptTokens := countTokens(model, req.SystemPrompt) + countTokens(model, req.UserPrompt)
	c.logger.Debug("sending AI request",
		zap.String("model", model),
		zap.Int("estimated_prompt_tokens", promptTokens))

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			aiRetriesTotal.With(prometheus.Labels{"model": model}).Inc()
			delay := c.retryDelay(attempt)
			c.logger.Warn("retrying AI request",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		start := time.Now()
		resp, err := c.api.CreateChatCompletion(ctx, apiReq)
		duration := time.Since(start)

		if err != nil {
			aiRequestsTotal.With(prometheus.Labels{"model": model, "status": "error"}).Inc()
			lastErr = fmt.Errorf("%w: %v", ErrGenerationFailed, err)
			if ctx.Err() != nil {
				return "", lastErr
			}
			continue
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			aiRequestsTotal.With(prometheus.Labels{"model": model, "status": "error_empty_response"}).Inc()
			lastErr = fmt.Errorf("%w: empty response from model", ErrGenerationFailed)
			continue
		}

		aiRequestsTotal.With(prometheus.Labels{"model": model, "status": "success"}).Inc()
		aiRequestDuration.With(prometheus.Labels{"model": model}).Observe(duration.Seconds())
		if resp.Usage.TotalTokens > 0 {
			aiPromptTokens.With(prometheus.Labels{"model": model}).Observe(float64(resp.Usage.PromptTokens))
			aiCompletionTokens.With(prometheus.Labels{"model": model}).Observe(float64(resp.Usage.CompletionTokens))
		}

		text := resp.Choices[0].Message.Content
		c.logger.Debug("AI response received",
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Int("response_len", len(text)),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens))
		return text, nil
	}

	return "", fmt.Errorf("all %d attempts failed: %w", c.maxAttempts, lastErr)
}

// retryDelay - экспоненциальная задержка с джиттером: base * 2^(attempt-2) ± 25%.
func (c *Client) retryDelay(attempt int) time.Duration {
	delay := c.baseRetryDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
	return delay + jitter
}

// countTokens оценивает число токенов текста для модели. При неизвестной
// модели используется кодировка cl100k_base.
func countTokens(model, text string) int {
	if text == "" {
		return 0
	}
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0
		}
	}
	return len(tke.Encode(text, nil, nil))
}
