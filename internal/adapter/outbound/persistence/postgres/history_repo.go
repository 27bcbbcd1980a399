package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

// HistoryRepo implements outbound.HistoryRepository on PostgreSQL.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

var _ outbound.HistoryRepository = (*HistoryRepo)(nil)

func NewHistoryRepo(store *Store) *HistoryRepo {
	return &HistoryRepo{pool: store.Pool}
}

func (r *HistoryRepo) Append(ctx context.Context, e model.HistoryEntry) error {
	const q = `INSERT INTO history_entries
		(report_id, session_id, analysis_id, filename, file_type, health_score, overall_risk, processing_time, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := r.pool.Exec(ctx, q,
		e.ReportID, e.SessionID, e.AnalysisID,
		e.Filename, e.FileType,
		e.HealthScore, string(e.OverallRisk),
		e.ProcessingTime, e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit of the latest entries, oldest first.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	const q = `SELECT report_id, session_id, analysis_id, filename, file_type, health_score,
		overall_risk, processing_time, created_at
		FROM history_entries ORDER BY seq DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.HistoryEntry, error) {
		var e model.HistoryEntry
		var risk string
		err := row.Scan(
			&e.ReportID, &e.SessionID, &e.AnalysisID,
			&e.Filename, &e.FileType,
			&e.HealthScore, &risk,
			&e.ProcessingTime, &e.Timestamp,
		)
		e.OverallRisk = model.RiskTier(risk)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning history: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

func (r *HistoryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM history_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting history: %w", err)
	}
	return n, nil
}
