package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

// ReportRepo implements outbound.ReportRepository using SQLite. The full
// report is kept as JSON next to a few queryable columns.
type ReportRepo struct {
	db *sql.DB
}

var _ outbound.ReportRepository = (*ReportRepo)(nil)

func NewReportRepo(store *Store) *ReportRepo {
	return &ReportRepo{db: store.DB}
}

// Save upserts report keyed by its analysis id.
func (r *ReportRepo) Save(ctx context.Context, fingerprint string, report *model.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	const q = `INSERT INTO reports
		(analysis_id, fingerprint, engine, engine_version, patient_name, health_score, overall_risk,
		 critical_count, abnormal_count, average_confidence, processing_time_ms, payload, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(analysis_id) DO UPDATE SET
		 engine=excluded.engine, processing_time_ms=excluded.processing_time_ms, payload=excluded.payload`

	rm := report.RiskMetrics
	_, err = r.db.ExecContext(ctx, q,
		report.Audit.AnalysisID, fingerprint,
		report.Audit.Engine, report.Audit.EngineVersion,
		report.UserProfile.Name,
		rm.HealthScore, string(rm.OverallRisk),
		rm.CriticalCount, rm.AbnormalCount, rm.AverageConfidence,
		report.Audit.ProcessingTimeMs,
		string(payload),
		report.Audit.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}
	return nil
}

func (r *ReportRepo) GetByAnalysisID(ctx context.Context, analysisID string) (*model.Report, error) {
	row := r.db.QueryRowContext(ctx, `SELECT payload FROM reports WHERE analysis_id = ?`, analysisID)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", analysisID, outbound.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching report: %w", err)
	}
	return &report, nil
}

// GetByFingerprint returns the most recent report computed for fingerprint.
func (r *ReportRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*model.Report, error) {
	const q = `SELECT payload FROM reports WHERE fingerprint = ? ORDER BY created_at DESC LIMIT 1`
	report, err := scanReport(r.db.QueryRowContext(ctx, q, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report for fingerprint %s: %w", fingerprint, outbound.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching report: %w", err)
	}
	return &report, nil
}

// List returns reports newest first.
func (r *ReportRepo) List(ctx context.Context, page outbound.PageRequest) (outbound.PageResult[model.Report], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&total); err != nil {
		return outbound.PageResult[model.Report]{}, fmt.Errorf("counting reports: %w", err)
	}

	size := page.Size
	if size <= 0 {
		size = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM reports ORDER BY created_at DESC LIMIT ? OFFSET ?`, size, page.Page*size)
	if err != nil {
		return outbound.PageResult[model.Report]{}, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var items []model.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return outbound.PageResult[model.Report]{}, fmt.Errorf("scanning report: %w", err)
		}
		items = append(items, rep)
	}
	if err := rows.Err(); err != nil {
		return outbound.PageResult[model.Report]{}, fmt.Errorf("iterating reports: %w", err)
	}

	return outbound.PageResult[model.Report]{Items: items, TotalCount: total, Page: page.Page, Size: size}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(s rowScanner) (model.Report, error) {
	var payload string
	if err := s.Scan(&payload); err != nil {
		return model.Report{}, err
	}
	var rep model.Report
	if err := json.Unmarshal([]byte(payload), &rep); err != nil {
		return model.Report{}, fmt.Errorf("decoding report payload: %w", err)
	}
	return rep, nil
}
