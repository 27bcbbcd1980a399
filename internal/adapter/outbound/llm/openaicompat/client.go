// Package openaicompat talks to any OpenAI-compatible chat completion API.
// The default target is Groq.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/jonny/mediq/internal/domain/port/outbound"
)

const (
	DefaultName    = "groq"
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"
)

// Config holds configuration for an OpenAI-compatible client.
type Config struct {
	Name         string
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	Temperature  float64
	SystemPrompt string
}

// Client implements outbound.CompletionEngine with go-openai.
type Client struct {
	config Config
	api    *openai.Client
}

var _ outbound.CompletionEngine = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{config: cfg, api: openai.NewClientWithConfig(apiCfg)}
}

func (c *Client) Name() string { return c.config.Name }

// Complete sends prompt as the user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "", fmt.Errorf("%s api key not configured", c.config.Name)
	}

	messages := []openai.ChatCompletionMessage{}
	if c.config.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.config.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: float32(c.config.Temperature),
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("%s api error: %w", c.config.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", c.config.Name)
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", errors.New("empty completion")
	}
	return content, nil
}

// HealthCheck lists models and confirms the configured one is served.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.config.APIKey == "" {
		return fmt.Errorf("%s api key not configured", c.config.Name)
	}
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("%s health check failed: %w", c.config.Name, err)
	}
	for _, m := range list.Models {
		if m.ID == c.config.Model {
			return nil
		}
	}
	return fmt.Errorf("%s health check: model %q not available", c.config.Name, c.config.Model)
}

func (c *Client) ModelInfo(_ context.Context) (outbound.ModelInfo, error) {
	return outbound.ModelInfo{Provider: c.config.Name, Model: c.config.Model}, nil
}
