package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonny/mediq/internal/domain/port/outbound"
)

const EngineName = "ollama"

// Config holds configuration for the Ollama client.
type Config struct {
	BaseURL      string
	Model        string
	Timeout      time.Duration
	SystemPrompt string
	Temperature  float64
	// JSONMode asks Ollama to constrain the output to valid JSON.
	JSONMode bool
}

// Client implements outbound.CompletionEngine using the Ollama chat API.
type Client struct {
	config     Config
	httpClient *http.Client
}

var _ outbound.CompletionEngine = (*Client)(nil)

// NewClient creates a new Ollama Client with the given configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- Ollama API types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  chatOptions   `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	TotalDuration   int64       `json:"total_duration"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// tagsResponse is returned by GET /api/tags.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (c *Client) Name() string { return EngineName }

// Complete sends prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	messages := []chatMessage{}
	if c.config.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.config.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body := chatRequest{
		Model:    c.config.Model,
		Messages: messages,
		Stream:   false,
		Options:  chatOptions{Temperature: c.config.Temperature},
	}
	if c.config.JSONMode {
		body.Format = "json"
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}
	return c.postChat(ctx, encoded)
}

// HealthCheck performs GET /api/tags to verify Ollama is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.config.BaseURL + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check: unexpected status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("ollama health check: decoding tags: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == c.config.Model || m.Name == c.config.Model+":latest" {
			return nil
		}
	}
	return fmt.Errorf("ollama health check: model %q not pulled", c.config.Model)
}

// ModelInfo returns metadata about the configured model.
func (c *Client) ModelInfo(_ context.Context) (outbound.ModelInfo, error) {
	return outbound.ModelInfo{
		Provider: EngineName,
		Model:    c.config.Model,
	}, nil
}

func (c *Client) postChat(ctx context.Context, body []byte) (string, error) {
	url := c.config.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading ollama response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("ollama server error %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	if chatResp.Message.Content == "" {
		return "", fmt.Errorf("ollama returned an empty message")
	}

	return chatResp.Message.Content, nil
}
