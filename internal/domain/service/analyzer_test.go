package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
	"github.com/jonny/mediq/internal/domain/service"
)

type analyzerFixture struct {
	analyzer  *service.Analyzer
	cache     *service.MemoryCache
	primary   *mockEngine
	secondary *mockEngine
	reports   *mockReportRepo
}

func newAnalyzerFixture(primary, secondary *mockEngine, opts ...service.AnalyzerOption) *analyzerFixture {
	cache := service.NewMemoryCache()
	var second outbound.CompletionEngine
	if secondary != nil {
		second = secondary
	}
	selector := service.NewEngineSelector(primary, second, &mockPrompts{}, service.NewParser(nil),
		service.SelectorConfig{AttemptTimeout: time.Second}, discardLogger())
	normalizer := service.NewNormalizer(service.DefaultDefaults(), service.NewSeededConfidenceHeuristic(3), "")
	reports := newMockReportRepo()
	opts = append([]service.AnalyzerOption{service.WithReportArchive(reports)}, opts...)

	return &analyzerFixture{
		analyzer:  service.NewAnalyzer(cache, selector, normalizer, discardLogger(), opts...),
		cache:     cache,
		primary:   primary,
		secondary: secondary,
		reports:   reports,
	}
}

func TestAnalyzer_SecondCallIsCacheHit(t *testing.T) {
	f := newAnalyzerFixture(
		&mockEngine{name: "gemini", completion: validCompletion},
		&mockEngine{name: "groq", completion: validCompletion},
	)
	ctx := context.Background()

	first, err := f.analyzer.Analyze(ctx, "CBC panel text")
	require.NoError(t, err)
	assert.Equal(t, "gemini", first.Audit.Engine)
	assert.False(t, first.Audit.CacheHit)
	require.NotNil(t, first.Audit.Origin)

	second, err := f.analyzer.Analyze(ctx, "CBC panel text")
	require.NoError(t, err)
	assert.True(t, second.Audit.CacheHit)
	assert.Equal(t, model.EngineCache, second.Audit.Engine)
	assert.EqualValues(t, model.CacheHitProcessingMs, second.Audit.ProcessingTimeMs)
	assert.Equal(t, first.Audit.AnalysisID, second.Audit.AnalysisID)
	assert.Equal(t, first.Parameters, second.Parameters)
	assert.Equal(t, first.RiskMetrics, second.RiskMetrics)

	require.NotNil(t, second.Audit.Origin)
	assert.Equal(t, "gemini", second.Audit.Origin.Engine)
	assert.Equal(t, first.Audit.ProcessingTimeMs, second.Audit.Origin.ProcessingTimeMs)

	assert.EqualValues(t, 1, f.primary.calls.Load())
	assert.Equal(t, 1, f.cache.Len())
}

func TestAnalyzer_ReturnedReportIsIsolated(t *testing.T) {
	f := newAnalyzerFixture(&mockEngine{name: "gemini", completion: validCompletion}, nil)
	ctx := context.Background()

	first, err := f.analyzer.Analyze(ctx, "text")
	require.NoError(t, err)
	first.Parameters[0].Name = "tampered"

	second, err := f.analyzer.Analyze(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, "Potassium", second.Parameters[0].Name)
}

func TestAnalyzer_FallbackIsCached(t *testing.T) {
	f := newAnalyzerFixture(
		&mockEngine{name: "gemini", err: errors.New("down")},
		&mockEngine{name: "groq", completion: "garbage"},
	)
	ctx := context.Background()

	r, err := f.analyzer.Analyze(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, model.EngineErrorFallback, r.Audit.Engine)
	assert.Empty(t, r.Parameters)
	assert.Equal(t, 100, r.RiskMetrics.HealthScore)
	assert.Equal(t, service.DefaultFallbackSummary, r.Summary)

	second, err := f.analyzer.Analyze(ctx, "text")
	require.NoError(t, err)
	assert.True(t, second.Audit.CacheHit)
	assert.Equal(t, model.EngineCache, second.Audit.Engine)
	assert.EqualValues(t, model.CacheHitProcessingMs, second.Audit.ProcessingTimeMs)
	require.NotNil(t, second.Audit.Origin)
	assert.Equal(t, model.EngineErrorFallback, second.Audit.Origin.Engine)
	assert.EqualValues(t, 1, f.primary.calls.Load())
	assert.Equal(t, 1, f.cache.Len())
}

func TestAnalyzer_FallbackCachingDisabled(t *testing.T) {
	f := newAnalyzerFixture(&mockEngine{name: "gemini", completion: "garbage"}, nil, service.WithoutFallbackCaching(true))
	ctx := context.Background()

	_, err := f.analyzer.Analyze(ctx, "text")
	require.NoError(t, err)
	r, err := f.analyzer.Analyze(ctx, "text")
	require.NoError(t, err)

	assert.False(t, r.Audit.CacheHit)
	assert.Equal(t, model.EngineErrorFallback, r.Audit.Engine)
	assert.EqualValues(t, 2, f.primary.calls.Load())
	assert.Zero(t, f.cache.Len())
}

func TestAnalyzer_ConcurrentCallsShareOneComputation(t *testing.T) {
	f := newAnalyzerFixture(&mockEngine{name: "gemini", completion: validCompletion, delay: 100 * time.Millisecond}, nil)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*model.Report, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := f.analyzer.Analyze(context.Background(), "same document")
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.primary.calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Audit.AnalysisID, r.Audit.AnalysisID)
	}
}

func TestAnalyzer_ArchivesFreshReports(t *testing.T) {
	f := newAnalyzerFixture(&mockEngine{name: "gemini", completion: validCompletion}, nil)

	r, err := f.analyzer.Analyze(context.Background(), "archived text")
	require.NoError(t, err)

	stored, err := f.reports.GetByFingerprint(context.Background(), service.Fingerprint("archived text"))
	require.NoError(t, err)
	assert.Equal(t, r.Audit.AnalysisID, stored.Audit.AnalysisID)
}

func TestAnalyzer_CancelledContext(t *testing.T) {
	f := newAnalyzerFixture(&mockEngine{name: "gemini", completion: validCompletion}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.analyzer.Analyze(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, f.primary.calls.Load())
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", service.Fingerprint(""))
	assert.NotEqual(t, service.Fingerprint("a"), service.Fingerprint("a "))
}
