package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"banditArena/pkg/metrics"
)

var ErrEmptyCompletion = errors.New("completion has no choices")

// ChatClient is the part of an OpenAI-compatible API the strategies call.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient builds a client for an OpenAI-compatible endpoint. An empty
// baseURL keeps the library default.
func NewClient(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

type limitedClient struct {
	next    ChatClient
	limiter *rate.Limiter
}

// WithRateLimit makes every completion wait on limiter first. A nil limiter
// returns client unchanged.
func WithRateLimit(client ChatClient, limiter *rate.Limiter) ChatClient {
	if limiter == nil {
		return client
	}
	return &limitedClient{next: client, limiter: limiter}
}

func (c *limitedClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("rate limiter: %w", err)
	}
	return c.next.CreateChatCompletion(ctx, req)
}

// complete sends a single user message and returns the first choice's text.
func complete(ctx context.Context, client ChatClient, model, prompt string, temperature float32) (string, error) {
	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	metrics.LLMRequestLatency.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMRequests.WithLabelValues(model, "error").Inc()
		return "", fmt.Errorf("chat completion (%s): %w", model, err)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequests.WithLabelValues(model, "empty").Inc()
		return "", ErrEmptyCompletion
	}
	metrics.LLMRequests.WithLabelValues(model, "ok").Inc()
	return resp.Choices[0].Message.Content, nil
}
