package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jonny/mediq/internal/domain/port/outbound"
)

const (
	EngineName     = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-flash-latest"
)

// Config holds configuration for the Gemini client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// Client implements outbound.CompletionEngine against the Gemini
// generateContent REST API.
type Client struct {
	config Config
	http   *resty.Client
}

var _ outbound.CompletionEngine = (*Client)(nil)

// NewClient creates a Gemini client. Requests are never retried.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.Model = strings.TrimPrefix(cfg.Model, "models/")

	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey)

	return &Client{config: cfg, http: http}
}

// --- Gemini API types ---

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) Name() string { return EngineName }

// Complete calls generateContent with prompt and joins the text parts of the
// first candidate.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "", errors.New("gemini api key not configured")
	}

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      c.config.Temperature,
			ResponseMimeType: "application/json",
		},
	}

	var result generateResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.config.Model).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("calling gemini: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode(), errorMessage(apiErr, resp.String()))
	}

	if result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", result.PromptFeedback.BlockReason)
	}
	if len(result.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini returned an empty candidate (finish reason %q)", result.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

// HealthCheck fetches the configured model's metadata.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.config.APIKey == "" {
		return errors.New("gemini api key not configured")
	}
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.config.Model).
		SetError(&apiErr).
		Get("/models/{model}")
	if err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("gemini health check: status %d: %s", resp.StatusCode(), errorMessage(apiErr, resp.String()))
	}
	return nil
}

// ModelInfo returns metadata about the configured model.
func (c *Client) ModelInfo(_ context.Context) (outbound.ModelInfo, error) {
	return outbound.ModelInfo{Provider: EngineName, Model: c.config.Model}, nil
}

func errorMessage(e apiError, fallback string) string {
	if e.Error.Message != "" {
		return e.Error.Status + ": " + e.Error.Message
	}
	return fallback
}
