package outbound

import (
	"context"
	"errors"

	"github.com/jonny/mediq/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

type PageRequest struct {
	Page int
	Size int
}

type PageResult[T any] struct {
	Items      []T
	TotalCount int64
	Page       int
	Size       int
}

// ReportRepository archives every freshly computed report.
type ReportRepository interface {
	Save(ctx context.Context, fingerprint string, report *model.Report) error
	GetByAnalysisID(ctx context.Context, analysisID string) (*model.Report, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*model.Report, error)
	List(ctx context.Context, page PageRequest) (PageResult[model.Report], error)
}

// HistoryRepository archives history snapshots beyond the in-memory window.
type HistoryRepository interface {
	Append(ctx context.Context, entry model.HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]model.HistoryEntry, error)
	Count(ctx context.Context) (int64, error)
}
