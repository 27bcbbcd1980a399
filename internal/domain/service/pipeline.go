package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/inbound"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

const DefaultMinTextLength = 10

// ErrExtractionFailed reports a document that yielded no usable text.
var ErrExtractionFailed = errors.New("extraction failed")

// UploadPipeline implements inbound.ReportService: extraction, analysis,
// history bookkeeping and notification for one uploaded document.
type UploadPipeline struct {
	extractor     outbound.TextExtractor
	analyzer      inbound.ReportAnalyzer
	history       *HistoryTracker
	metrics       *Metrics
	archive       outbound.HistoryRepository
	notifier      outbound.Notifier
	minTextLength int
	logger        *slog.Logger
}

var _ inbound.ReportService = (*UploadPipeline)(nil)

type PipelineConfig struct {
	MinTextLength int
}

// NewUploadPipeline wires the pipeline. archive may be nil.
func NewUploadPipeline(
	extractor outbound.TextExtractor,
	analyzer inbound.ReportAnalyzer,
	history *HistoryTracker,
	metrics *Metrics,
	archive outbound.HistoryRepository,
	notifier outbound.Notifier,
	cfg PipelineConfig,
	logger *slog.Logger,
) *UploadPipeline {
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = DefaultMinTextLength
	}
	return &UploadPipeline{
		extractor:     extractor,
		analyzer:      analyzer,
		history:       history,
		metrics:       metrics,
		archive:       archive,
		notifier:      notifier,
		minTextLength: cfg.MinTextLength,
		logger:        logger,
	}
}

// ProcessUpload analyzes the document at req.Path. Unsupported documents fail
// with outbound.ErrUnsupportedFileType and unreadable ones with
// ErrExtractionFailed.
func (p *UploadPipeline) ProcessUpload(ctx context.Context, req inbound.UploadRequest) (inbound.UploadResult, error) {
	start := time.Now()
	log := p.logger.With("session_id", req.SessionID, "filename", req.Filename)

	ext, err := p.extractor.Extract(ctx, req.Path)
	if err != nil {
		if errors.Is(err, outbound.ErrUnsupportedFileType) {
			return inbound.UploadResult{}, err
		}
		return inbound.UploadResult{}, fmt.Errorf("extracting %s: %w", req.Filename, err)
	}
	if ext.OCRUsed {
		p.metrics.RecordOCR()
	}
	if len(strings.TrimSpace(ext.Text)) < p.minTextLength {
		log.Warn("upload.extraction_empty", "file_type", ext.FileType, "chars", len(ext.Text))
		return inbound.UploadResult{}, ErrExtractionFailed
	}

	report, err := p.analyzer.Analyze(ctx, ext.Text)
	if err != nil {
		return inbound.UploadResult{}, fmt.Errorf("analyzing %s: %w", req.Filename, err)
	}

	entry := model.NewHistoryEntry(req.SessionID, req.Filename, fileTypeLabel(req.Filename), report, time.Since(start))
	snap := p.history.AppendSnapshot(entry)
	p.metrics.RecordSuccess()

	if p.archive != nil {
		if err := p.archive.Append(ctx, entry); err != nil {
			log.Warn("upload.history_archive_failed", "report_id", entry.ReportID, "error", err)
		}
	}
	p.notify(ctx, log, req, entry, report)

	log.Info("upload.processed",
		"report_id", entry.ReportID,
		"analysis_id", report.Audit.AnalysisID,
		"engine", report.Audit.Engine,
		"health_score", entry.HealthScore,
		"ocr", ext.OCRUsed,
	)

	return inbound.UploadResult{
		Report:  report,
		Entry:   entry,
		History: snap,
		Trend:   TrendOf(snap),
		Metrics: p.metrics.Snapshot(),
	}, nil
}

func (p *UploadPipeline) History() []model.HistoryEntry { return p.history.Entries() }

func (p *UploadPipeline) Trend() model.Trend { return p.history.Trend() }

func (p *UploadPipeline) Metrics() model.SystemMetrics { return p.metrics.Snapshot() }

func (p *UploadPipeline) RecordFailure() { p.metrics.RecordFailure() }

// Restore seeds the in-memory window from the archive.
func (p *UploadPipeline) Restore(ctx context.Context) error {
	if p.archive == nil {
		return nil
	}
	entries, err := p.archive.Recent(ctx, p.history.Capacity())
	if err != nil {
		return fmt.Errorf("restoring history: %w", err)
	}
	p.history.Seed(entries)
	p.logger.Info("history.restored", "entries", len(entries))
	return nil
}

func (p *UploadPipeline) notify(ctx context.Context, log *slog.Logger, req inbound.UploadRequest, entry model.HistoryEntry, report *model.Report) {
	if p.notifier == nil {
		return
	}
	hasRedFlags := report.HasRedFlags()
	if !hasRedFlags && report.RiskMetrics.OverallRisk != model.RiskHigh {
		return
	}

	n := outbound.ReportNotification{
		SessionID:   req.SessionID,
		ReportID:    entry.ReportID,
		AnalysisID:  report.Audit.AnalysisID,
		Filename:    req.Filename,
		PatientName: report.UserProfile.Name,
		HealthScore: report.RiskMetrics.HealthScore,
		OverallRisk: string(report.RiskMetrics.OverallRisk),
		Summary:     report.Summary,
		Engine:      report.Audit.Engine,
		Level:       outbound.NotificationWarning,
	}
	if hasRedFlags {
		n.Level = outbound.NotificationCritical
	}
	for _, prm := range report.Parameters {
		if prm.RedFlag {
			n.RedFlags = append(n.RedFlags, outbound.FlaggedParameter{
				Name:        prm.Name,
				Value:       prm.Value,
				Unit:        prm.Unit,
				NormalRange: prm.NormalRange,
				Status:      string(prm.Status),
			})
		}
	}

	if err := p.notifier.NotifyReport(ctx, n); err != nil {
		log.Warn("upload.notify_failed", "report_id", entry.ReportID, "error", err)
	}
}

// fileTypeLabel returns the upper-cased extension without its dot.
func fileTypeLabel(filename string) string {
	return strings.ToUpper(strings.TrimPrefix(filepath.Ext(filename), "."))
}
