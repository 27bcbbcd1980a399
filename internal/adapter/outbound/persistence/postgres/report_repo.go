package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

// ReportRepo implements outbound.ReportRepository on PostgreSQL with the full
// report stored as JSONB.
type ReportRepo struct {
	pool *pgxpool.Pool
}

var _ outbound.ReportRepository = (*ReportRepo)(nil)

func NewReportRepo(store *Store) *ReportRepo {
	return &ReportRepo{pool: store.Pool}
}

func (r *ReportRepo) Save(ctx context.Context, fingerprint string, report *model.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	const q = `INSERT INTO reports
		(analysis_id, fingerprint, engine, engine_version, patient_name, health_score, overall_risk,
		 critical_count, abnormal_count, average_confidence, processing_time_ms, payload, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (analysis_id) DO UPDATE SET
		 engine = EXCLUDED.engine,
		 processing_time_ms = EXCLUDED.processing_time_ms,
		 payload = EXCLUDED.payload`

	rm := report.RiskMetrics
	_, err = r.pool.Exec(ctx, q,
		report.Audit.AnalysisID, fingerprint,
		report.Audit.Engine, report.Audit.EngineVersion,
		report.UserProfile.Name,
		rm.HealthScore, string(rm.OverallRisk),
		rm.CriticalCount, rm.AbnormalCount, rm.AverageConfidence,
		report.Audit.ProcessingTimeMs,
		payload,
		report.Audit.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting report: %w", err)
	}
	return nil
}

func (r *ReportRepo) GetByAnalysisID(ctx context.Context, analysisID string) (*model.Report, error) {
	return r.getOne(ctx, `SELECT payload FROM reports WHERE analysis_id = $1`, analysisID)
}

func (r *ReportRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*model.Report, error) {
	return r.getOne(ctx,
		`SELECT payload FROM reports WHERE fingerprint = $1 ORDER BY created_at DESC LIMIT 1`, fingerprint)
}

func (r *ReportRepo) getOne(ctx context.Context, q, key string) (*model.Report, error) {
	rep, err := scanReport(r.pool.QueryRow(ctx, q, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", key, outbound.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching report: %w", err)
	}
	return &rep, nil
}

// List returns reports newest first.
func (r *ReportRepo) List(ctx context.Context, page outbound.PageRequest) (outbound.PageResult[model.Report], error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports`).Scan(&total); err != nil {
		return outbound.PageResult[model.Report]{}, fmt.Errorf("counting reports: %w", err)
	}

	size := page.Size
	if size <= 0 {
		size = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT payload FROM reports ORDER BY created_at DESC LIMIT $1 OFFSET $2`, size, page.Page*size)
	if err != nil {
		return outbound.PageResult[model.Report]{}, fmt.Errorf("listing reports: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Report, error) {
		return scanReport(row)
	})
	if err != nil {
		return outbound.PageResult[model.Report]{}, fmt.Errorf("scanning reports: %w", err)
	}

	return outbound.PageResult[model.Report]{Items: items, TotalCount: total, Page: page.Page, Size: size}, nil
}

func scanReport(row pgx.Row) (model.Report, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return model.Report{}, err
	}
	var rep model.Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return model.Report{}, fmt.Errorf("decoding report payload: %w", err)
	}
	return rep, nil
}
