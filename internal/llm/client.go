// Package llm talks to an OpenAI-compatible chat completion endpoint and
// coerces free-text model output into strict JSON.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"crypto-analyst/internal/api"
	"crypto-analyst/internal/errs"
	"crypto-analyst/internal/store"
	"crypto-analyst/internal/trace"
)

// Client sends chat requests to the configured inference endpoint. The
// endpoint is the slowest, least predictable dependency in the pipeline,
// so every call carries an explicit timeout.
type Client struct {
	api         *api.Client
	model       string
	maxTokens   int
	temperature float32
}

func NewClient(cfg *store.Config) *Client {
	opts := []api.ClientOption{
		api.WithBaseURL(cfg.LLM.BaseURL),
		api.WithTimeout(cfg.LLMTimeout()),
	}
	if key := os.Getenv(cfg.LLM.APIKeyEnv); key != "" {
		opts = append(opts, api.WithHeader("Authorization", "Bearer "+key))
	}
	return &Client{
		api:         api.NewClient(opts...),
		model:       cfg.LLM.Model,
		maxTokens:   cfg.LLM.MaxTokens,
		temperature: cfg.LLM.Temperature,
	}
}

// Chat sends one system instruction and one user prompt, returning the
// raw text completion.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm-chat")
	defer span.End()

	body := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	resp, err := c.api.POST(ctx, "/chat/completions", body)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", errs.ErrUpstreamUnavailable, err)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrMalformedPayload, err)
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in completion", errs.ErrMalformedPayload)
	}

	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}

// Probe is a lightweight liveness check against the inference endpoint.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.api.GET(ctx, "/models")
	return err
}
