// Package embedding turns query text into vectors for knowledge-base search.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"agriserve-query/internal/common/config"
	apperrors "agriserve-query/internal/common/errors"
	"agriserve-query/internal/common/logger"
)

// Provider generates one embedding per call.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const (
	defaultEmbeddingModel   = "text-embedding-3-small"
	defaultEmbeddingTimeout = 10 * time.Second
	initialRetryDelay       = 200 * time.Millisecond
)

// OpenAIProvider calls any OpenAI-compatible /embeddings endpoint.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	log        logger.Logger
}

func NewOpenAIProvider(cfg config.EmbeddingConfig, log logger.Logger) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultEmbeddingModel
	}
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultEmbeddingTimeout
	}

	log.Info("embedding provider initialized", map[string]interface{}{
		"model":   model,
		"baseUrl": clientCfg.BaseURL,
	})

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	delay := initialRetryDelay

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewEmbeddingTimeoutError(ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		vec, err := p.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		p.log.Warn("embedding request failed", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return nil, apperrors.NewEmbeddingTimeoutError(lastErr)
	}
	return nil, apperrors.NewEmbeddingFailedError(lastErr)
}

func (p *OpenAIProvider) embedOnce(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding response contained no vectors")
	}
	return resp.Data[0].Embedding, nil
}
