package inbound

import (
	"context"

	"github.com/jonny/mediq/internal/domain/model"
)

// ReportAnalyzer turns extracted document text into a normalized report.
// Malformed engine output never surfaces as an error.
type ReportAnalyzer interface {
	Analyze(ctx context.Context, text string) (*model.Report, error)
}

// UploadRequest describes a document already saved to disk.
type UploadRequest struct {
	SessionID string
	Filename  string
	Path      string
}

// UploadResult is everything the upload endpoint returns.
type UploadResult struct {
	Report  *model.Report
	Entry   model.HistoryEntry
	History []model.HistoryEntry
	Trend   model.Trend
	Metrics model.SystemMetrics
}

// ReportService is the inbound port used by the HTTP layer.
type ReportService interface {
	ProcessUpload(ctx context.Context, req UploadRequest) (UploadResult, error)
	History() []model.HistoryEntry
	Trend() model.Trend
	Metrics() model.SystemMetrics
	RecordFailure()
}
