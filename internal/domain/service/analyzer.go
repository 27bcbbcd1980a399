package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/inbound"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

// Analyzer runs extracted text through cache lookup, the engine chain and
// normalization. Concurrent calls for the same text share one computation.
type Analyzer struct {
	cache      outbound.ReportCache
	selector   *EngineSelector
	normalizer *Normalizer
	reports    outbound.ReportRepository
	group      singleflight.Group
	logger     *slog.Logger

	skipFallback bool
}

var _ inbound.ReportAnalyzer = (*Analyzer)(nil)

type AnalyzerOption func(*Analyzer)

// WithReportArchive stores every freshly computed report in repo.
func WithReportArchive(repo outbound.ReportRepository) AnalyzerOption {
	return func(a *Analyzer) { a.reports = repo }
}

// WithoutFallbackCaching keeps reports produced by the offline fallback out
// of the cache so the next request retries the engines.
func WithoutFallbackCaching(skip bool) AnalyzerOption {
	return func(a *Analyzer) { a.skipFallback = skip }
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(cache outbound.ReportCache, selector *EngineSelector, normalizer *Normalizer, logger *slog.Logger, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		cache:      cache,
		selector:   selector,
		normalizer: normalizer,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns the report for text. Engine and parse failures are absorbed
// by the fallback chain; an error is returned only when ctx is already done.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := Fingerprint(text)

	if report, ok := a.lookup(ctx, key); ok {
		return report, nil
	}

	v, err, shared := a.group.Do(key, func() (any, error) {
		return a.compute(context.WithoutCancel(ctx), key, text)
	})
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	report := v.(*model.Report).Clone()
	if shared {
		a.logger.Debug("analysis.shared", "fingerprint", key[:12])
	}
	return report, nil
}

func (a *Analyzer) lookup(ctx context.Context, key string) (*model.Report, bool) {
	report, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("analysis.cache_get_failed", "fingerprint", key[:12], "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	if !report.Audit.CacheHit {
		report.MarkCacheHit()
		if err := a.cache.Put(ctx, key, report); err != nil {
			a.logger.Warn("analysis.cache_put_failed", "fingerprint", key[:12], "error", err)
		}
	}
	a.logger.Info("analysis.cache_hit",
		"fingerprint", key[:12],
		"analysis_id", report.Audit.AnalysisID,
	)
	return report, true
}

func (a *Analyzer) compute(ctx context.Context, key, text string) (*model.Report, error) {
	// A concurrent caller may have filled the cache while this one waited.
	if report, ok := a.lookup(ctx, key); ok {
		return report, nil
	}

	start := time.Now()
	sel := a.selector.Select(ctx, text)
	report := a.normalizer.Normalize(sel.Raw, sel.Engine, time.Since(start), false).WithOrigin()

	a.logger.Info("analysis.completed",
		"analysis_id", report.Audit.AnalysisID,
		"engine", report.Audit.Engine,
		"health_score", report.RiskMetrics.HealthScore,
		"overall_risk", report.RiskMetrics.OverallRisk,
		"parameters", len(report.Parameters),
		"processing_time_ms", report.Audit.ProcessingTimeMs,
	)

	if sel.Engine != model.EngineErrorFallback || !a.skipFallback {
		if err := a.cache.Put(ctx, key, report); err != nil {
			a.logger.Warn("analysis.cache_put_failed", "fingerprint", key[:12], "error", err)
		}
	}
	if a.reports != nil {
		if err := a.reports.Save(ctx, key, report); err != nil {
			a.logger.Warn("analysis.archive_failed", "analysis_id", report.Audit.AnalysisID, "error", err)
		}
	}
	return report, nil
}
