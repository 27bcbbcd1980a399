package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/jonny/mediq/internal/domain/model"
	"github.com/jonny/mediq/internal/domain/port/outbound"
)

// HistoryRepo implements outbound.HistoryRepository using SQLite.
type HistoryRepo struct {
	db *sql.DB
}

var _ outbound.HistoryRepository = (*HistoryRepo)(nil)

func NewHistoryRepo(store *Store) *HistoryRepo {
	return &HistoryRepo{db: store.DB}
}

func (r *HistoryRepo) Append(ctx context.Context, e model.HistoryEntry) error {
	const q = `INSERT INTO history_entries
		(report_id, session_id, analysis_id, filename, file_type, health_score, overall_risk, processing_time, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`

	_, err := r.db.ExecContext(ctx, q,
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
		FROM history_entries ORDER BY seq DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		e, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

func (r *HistoryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting history: %w", err)
	}
	return n, nil
}

func scanHistoryEntry(s rowScanner) (model.HistoryEntry, error) {
	var e model.HistoryEntry
	var risk string
	err := s.Scan(
		&e.ReportID, &e.SessionID, &e.AnalysisID,
		&e.Filename, &e.FileType,
		&e.HealthScore, &risk,
		&e.ProcessingTime, &e.Timestamp,
	)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	e.OverallRisk = model.RiskTier(risk)
	return e, nil
}
