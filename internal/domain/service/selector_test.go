package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/service"
)

func newTestSelector(primary, secondary *mockEngine, timeout time.Duration) *service.EngineSelector {
	cfg := service.SelectorConfig{AttemptTimeout: timeout}
	// A nil *mockEngine must not become a non-nil interface.
	if secondary == nil {
		return service.NewEngineSelector(primary, nil, &mockPrompts{}, service.NewParser(nil), cfg, discardLogger())
	}
	return service.NewEngineSelector(primary, secondary, &mockPrompts{}, service.NewParser(nil), cfg, discardLogger())
}

func TestEngineSelector_PrimarySucceeds(t *testing.T) {
	primary := &mockEngine{name: "gemini", completion: validCompletion}
	secondary := &mockEngine{name: "groq", completion: validCompletion}

	sel := newTestSelector(primary, secondary, time.Second).Select(context.Background(), "text")

	assert.Equal(t, "gemini", sel.Engine)
	assert.Len(t, sel.Raw.Parameters, 3)
	assert.Empty(t, sel.Attempts)
	assert.EqualValues(t, 1, primary.calls.Load())
	assert.EqualValues(t, 0, secondary.calls.Load())
}

func TestEngineSelector_FallsBackToSecondary(t *testing.T) {
	tests := []struct {
		name    string
		primary *mockEngine
	}{
		{"transport error", &mockEngine{name: "gemini", err: errors.New("connection refused")}},
		{"malformed completion", &mockEngine{name: "gemini", completion: "sorry, no JSON today"}},
		{"timeout", &mockEngine{name: "gemini", completion: validCompletion, delay: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secondary := &mockEngine{name: "groq", completion: validCompletion}

			sel := newTestSelector(tt.primary, secondary, 50*time.Millisecond).Select(context.Background(), "text")

			assert.Equal(t, "groq", sel.Engine)
			require.Len(t, sel.Attempts, 1)
			var eerr *service.EngineError
			require.ErrorAs(t, sel.Attempts[0], &eerr)
			assert.Equal(t, "gemini", eerr.Engine)
			assert.EqualValues(t, 1, tt.primary.calls.Load())
			assert.EqualValues(t, 1, secondary.calls.Load())
		})
	}
}

func TestEngineSelector_ParseFailureIsRecorded(t *testing.T) {
	primary := &mockEngine{name: "gemini", completion: "plain prose"}
	sel := newTestSelector(primary, nil, time.Second).Select(context.Background(), "text")

	require.Len(t, sel.Attempts, 1)
	var perr *service.ParseError
	assert.ErrorAs(t, sel.Attempts[0], &perr)
}

func TestEngineSelector_OfflineFallback(t *testing.T) {
	primary := &mockEngine{name: "gemini", err: errors.New("401 unauthorized")}
	secondary := &mockEngine{name: "groq", completion: "{not json"}

	sel := newTestSelector(primary, secondary, time.Second).Select(context.Background(), "text")

	assert.Equal(t, model.EngineErrorFallback, sel.Engine)
	assert.Empty(t, sel.Raw.Parameters)
	assert.Equal(t, service.DefaultFallbackSummary, sel.Raw.Summary.Value)
	assert.Len(t, sel.Attempts, 2)
}

func TestEngineSelector_NoSecondary(t *testing.T) {
	primary := &mockEngine{name: "gemini", err: errors.New("quota exceeded")}
	s := newTestSelector(primary, nil, time.Second)

	assert.Len(t, s.Engines(), 1)
	sel := s.Select(context.Background(), "text")
	assert.Equal(t, model.EngineErrorFallback, sel.Engine)
	assert.Len(t, sel.Attempts, 1)
}

func TestEngineSelector_PromptFailure(t *testing.T) {
	primary := &mockEngine{name: "gemini", completion: validCompletion}
	s := service.NewEngineSelector(primary, nil, &mockPrompts{err: errors.New("template")}, service.NewParser(nil), service.SelectorConfig{}, discardLogger())

	sel := s.Select(context.Background(), "text")
	assert.Equal(t, model.EngineErrorFallback, sel.Engine)
	assert.EqualValues(t, 0, primary.calls.Load())
}
