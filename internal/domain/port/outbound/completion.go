package outbound

import "context"

type ModelInfo struct {
	Provider    string
	Model       string
	MaxTokens   int
	ContextSize int
}

// CompletionEngine abstracts a text-completion backend. Complete returns the
// raw completion text; interpreting it is the caller's job.
type CompletionEngine interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
	HealthCheck(ctx context.Context) error
	ModelInfo(ctx context.Context) (ModelInfo, error)
}

// PromptBuilder renders the analysis prompt sent to every engine.
type PromptBuilder interface {
	BuildAnalysisPrompt(text string) (string, error)
}
