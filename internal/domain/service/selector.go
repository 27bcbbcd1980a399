package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

const (
	DefaultFallbackSummary = "Offline extraction used."
	DefaultAttemptTimeout  = 60 * time.Second
)

// EngineError wraps a failed attempt against a single engine.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Selection is the parsed result of the engine chain and the engine that
// produced it.
type Selection struct {
	Raw    RawAnalysis
	Engine string
	// Attempts holds one error per engine that failed before Engine succeeded.
	Attempts []error
}

// EngineSelector tries the primary engine, then the secondary, then settles on
// an offline result. Each engine is attempted exactly once, in order.
type EngineSelector struct {
	engines         []outbound.CompletionEngine
	prompts         outbound.PromptBuilder
	parser          *Parser
	attemptTimeout  time.Duration
	fallbackSummary string
	logger          *slog.Logger
}

type SelectorConfig struct {
	AttemptTimeout  time.Duration
	FallbackSummary string
}

// NewEngineSelector builds the chain. secondary may be nil when no second
// engine is configured.
func NewEngineSelector(
	primary, secondary outbound.CompletionEngine,
	prompts outbound.PromptBuilder,
	parser *Parser,
	cfg SelectorConfig,
	logger *slog.Logger,
) *EngineSelector {
	var engines []outbound.CompletionEngine
	for _, e := range []outbound.CompletionEngine{primary, secondary} {
		if e != nil {
			engines = append(engines, e)
		}
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.FallbackSummary == "" {
		cfg.FallbackSummary = DefaultFallbackSummary
	}
	return &EngineSelector{
		engines:         engines,
		prompts:         prompts,
		parser:          parser,
		attemptTimeout:  cfg.AttemptTimeout,
		fallbackSummary: cfg.FallbackSummary,
		logger:          logger,
	}
}

// Engines returns the configured engines in attempt order.
func (s *EngineSelector) Engines() []outbound.CompletionEngine {
	return s.engines
}

// Select runs the chain for text. It always yields a Selection; every engine
// failure degrades to the next tier.
func (s *EngineSelector) Select(ctx context.Context, text string) Selection {
	var attempts []error

	prompt, err := s.prompts.BuildAnalysisPrompt(text)
	if err != nil {
		s.logger.Error("engine.prompt_failed", "error", err)
		return s.offline(append(attempts, fmt.Errorf("build prompt: %w", err)))
	}

	for _, engine := range s.engines {
		raw, err := s.attempt(ctx, engine, prompt)
		if err == nil {
			return Selection{Raw: raw, Engine: engine.Name(), Attempts: attempts}
		}
		attempts = append(attempts, err)

		var perr *ParseError
		s.logger.Warn("engine.attempt_failed",
			"engine", engine.Name(),
			"parse_error", errors.As(err, &perr),
			"error", err,
		)
	}

	return s.offline(attempts)
}

func (s *EngineSelector) attempt(ctx context.Context, engine outbound.CompletionEngine, prompt string) (RawAnalysis, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	defer cancel()

	start := time.Now()
	completion, err := engine.Complete(attemptCtx, prompt)
	if err != nil {
		return RawAnalysis{}, &EngineError{Engine: engine.Name(), Err: err}
	}
	s.logger.Debug("engine.completed", "engine", engine.Name(), "duration", time.Since(start), "chars", len(completion))

	raw, err := s.parser.Parse(completion)
	if err != nil {
		return RawAnalysis{}, &EngineError{Engine: engine.Name(), Err: err}
	}
	return raw, nil
}

func (s *EngineSelector) offline(attempts []error) Selection {
	s.logger.Warn("engine.offline_fallback", "failed_attempts", len(attempts))
	return Selection{
		Raw: RawAnalysis{
			UserProfile: &RawProfile{},
			Parameters:  []RawParameter{},
			Summary:     looseString{Value: s.fallbackSummary, Set: true},
		},
		Engine:   model.EngineErrorFallback,
		Attempts: attempts,
	}
}
