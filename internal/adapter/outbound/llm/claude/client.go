package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jonny/mediq/internal/domain/port/outbound"
)

const (
	EngineName       = "claude"
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultMaxTokens = 4096
)

// Config holds configuration for the Claude client.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	MaxTokens    int64
	Timeout      time.Duration
	Temperature  float64
	SystemPrompt string
}

// Client implements outbound.CompletionEngine with the Anthropic Messages API.
type Client struct {
	config Config
	api    anthropic.Client
}

var _ outbound.CompletionEngine = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{config: cfg, api: anthropic.NewClient(opts...)}
}

func (c *Client) Name() string { return EngineName }

// Complete sends prompt as a single user turn and concatenates the text
// blocks of the reply.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "", errors.New("anthropic api key not configured")
	}

	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.Model),
		MaxTokens:   c.config.MaxTokens,
		Temperature: anthropic.Float(c.config.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.config.SystemPrompt != "" {
		req.System = []anthropic.TextBlockParam{{Text: c.config.SystemPrompt}}
	}

	message, err := c.api.Messages.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", errors.New("no response from anthropic")
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic reply has no text blocks")
	}
	return sb.String(), nil
}

// HealthCheck only verifies that a key is configured; the Messages API has no
// free probe endpoint.
func (c *Client) HealthCheck(_ context.Context) error {
	if c.config.APIKey == "" {
		return errors.New("anthropic api key not configured")
	}
	return nil
}

func (c *Client) ModelInfo(_ context.Context) (outbound.ModelInfo, error) {
	return outbound.ModelInfo{
		Provider:  EngineName,
		Model:     c.config.Model,
		MaxTokens: int(c.config.MaxTokens),
	}, nil
}
