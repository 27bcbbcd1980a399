package outbound

import (
	"context"

	"github.com/jonny/mediq/internal/domain/model"
)

// ReportCache memoizes normalized reports by content fingerprint. Get reports
// a miss with found == false and a nil error.
type ReportCache interface {
	Get(ctx context.Context, fingerprint string) (report *model.Report, found bool, err error)
	Put(ctx context.Context, fingerprint string, report *model.Report) error
}
