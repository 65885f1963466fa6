package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/model"
)

// EvolutionRepository provides data access methods for the evolution_snapshot
// table: one row per calendar date, numeric fields replaced on update, notes
// append-only at the service layer.
type EvolutionRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewEvolutionRepository creates a new EvolutionRepository with the provided database connection.
func NewEvolutionRepository(db *sql.DB) *EvolutionRepository {
	return &EvolutionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *EvolutionRepository) WithTx(tx *sql.Tx) *EvolutionRepository {
	return &EvolutionRepository{db: r.db, tx: tx}
}

func (r *EvolutionRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const snapshotColumns = `
	id, snapshot_date, total_portfolio_value, total_unrealized_gain,
	total_realized_gain, total_options_count, active_options_count, notes,
	created_at, updated_at`

func scanSnapshot(scan func(dest ...any) error) (model.EvolutionSnapshot, error) {
	var s model.EvolutionSnapshot
	var dateStr, createdAtStr, updatedAtStr string
	var notes sql.NullString

	err := scan(
		&s.ID,
		&dateStr,
		&s.TotalPortfolioValue,
		&s.TotalUnrealizedGain,
		&s.TotalRealizedGain,
		&s.TotalOptionsCount,
		&s.ActiveOptionsCount,
		&notes,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return model.EvolutionSnapshot{}, err
	}

	if s.SnapshotDate, err = ParseTime(dateStr); err != nil {
		return model.EvolutionSnapshot{}, fmt.Errorf("failed to parse snapshot date: %w", err)
	}
	if s.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.EvolutionSnapshot{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if s.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.EvolutionSnapshot{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if notes.Valid {
		s.Notes = notes.String
	}

	return s, nil
}

// GetByDate retrieves the snapshot for a calendar date.
// Returns apperrors.ErrSnapshotNotFound if no snapshot exists for the date.
func (r *EvolutionRepository) GetByDate(date string) (model.EvolutionSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM evolution_snapshot WHERE date(snapshot_date) = date(?)`

	row := r.getQuerier().QueryRow(query, date)
	s, err := scanSnapshot(row.Scan)
	if err == sql.ErrNoRows {
		return model.EvolutionSnapshot{}, apperrors.ErrSnapshotNotFound
	}
	if err != nil {
		return model.EvolutionSnapshot{}, fmt.Errorf("failed to query evolution_snapshot table: %w", err)
	}

	return s, nil
}

// GetWindow retrieves snapshots from startDate onwards, oldest first.
// An empty startDate returns the whole timeline.
func (r *EvolutionRepository) GetWindow(startDate string) ([]model.EvolutionSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM evolution_snapshot`

	var args []any
	if startDate != "" {
		query += ` WHERE date(snapshot_date) >= date(?)`
		args = append(args, startDate)
	}
	query += ` ORDER BY snapshot_date ASC`

	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query evolution_snapshot table: %w", err)
	}
	defer rows.Close()

	snapshots := []model.EvolutionSnapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evolution_snapshot table results: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evolution_snapshot table: %w", err)
	}

	return snapshots, nil
}

// InsertSnapshot inserts a snapshot row for a new calendar date.
func (r *EvolutionRepository) InsertSnapshot(ctx context.Context, s *model.EvolutionSnapshot) error {
	query := `
		INSERT INTO evolution_snapshot (
			id, snapshot_date, total_portfolio_value, total_unrealized_gain,
			total_realized_gain, total_options_count, active_options_count, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var notes sql.NullString
	if s.Notes != "" {
		notes = sql.NullString{String: s.Notes, Valid: true}
	}

	_, err := r.getQuerier().ExecContext(ctx, query,
		s.ID,
		FormatDate(s.SnapshotDate),
		s.TotalPortfolioValue,
		s.TotalUnrealizedGain,
		s.TotalRealizedGain,
		s.TotalOptionsCount,
		s.ActiveOptionsCount,
		notes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert evolution_snapshot: %w", err)
	}

	return nil
}

// UpdateSnapshot replaces the numeric fields and notes of an existing
// snapshot. Note accumulation is handled by the service; this method writes
// whatever notes value it is given.
func (r *EvolutionRepository) UpdateSnapshot(ctx context.Context, s *model.EvolutionSnapshot) error {
	query := `
		UPDATE evolution_snapshot
		SET total_portfolio_value = ?,
			total_unrealized_gain = ?,
			total_realized_gain = ?,
			total_options_count = ?,
			active_options_count = ?,
			notes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var notes sql.NullString
	if s.Notes != "" {
		notes = sql.NullString{String: s.Notes, Valid: true}
	}

	result, err := r.getQuerier().ExecContext(ctx, query,
		s.TotalPortfolioValue,
		s.TotalUnrealizedGain,
		s.TotalRealizedGain,
		s.TotalOptionsCount,
		s.ActiveOptionsCount,
		notes,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update evolution_snapshot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return fmt.Errorf("%w: expected 1 row updated for snapshot %s, got %d",
			apperrors.ErrConsistency, s.ID, rowsAffected)
	}

	return nil
}
