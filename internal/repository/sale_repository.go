package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/model"
)

// SaleRepository provides data access methods for the sale_transaction table.
type SaleRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSaleRepository creates a new SaleRepository with the provided database connection.
func NewSaleRepository(db *sql.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *SaleRepository) WithTx(tx *sql.Tx) *SaleRepository {
	return &SaleRepository{db: r.db, tx: tx}
}

func (r *SaleRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func scanSale(scan func(dest ...any) error) (model.SaleTransaction, error) {
	var s model.SaleTransaction
	var saleDateStr, createdAtStr, updatedAtStr string
	var notes sql.NullString

	err := scan(
		&s.ID,
		&s.GrantID,
		&saleDateStr,
		&s.QuantitySold,
		&s.SalePrice,
		&s.TotalSaleValue,
		&s.TaxDeducted,
		&s.RealizedGainLoss,
		&notes,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return model.SaleTransaction{}, err
	}

	s.SaleDate, err = ParseTime(saleDateStr)
	if err != nil || s.SaleDate.IsZero() {
		return model.SaleTransaction{}, fmt.Errorf("failed to parse sale date: %w", err)
	}
	if s.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.SaleTransaction{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if s.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.SaleTransaction{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if notes.Valid {
		s.Notes = notes.String
	}

	return s, nil
}

const saleColumns = `
	id, grant_id, sale_date, quantity_sold, sale_price, total_sale_value,
	tax_deducted, realized_gain_loss, notes, created_at, updated_at`

// GetSale retrieves a single sale transaction by its ID.
// Returns apperrors.ErrSaleNotFound if no sale exists with the given ID.
func (r *SaleRepository) GetSale(saleID string) (model.SaleTransaction, error) {
	query := `SELECT ` + saleColumns + ` FROM sale_transaction WHERE id = ?`

	row := r.getQuerier().QueryRow(query, saleID)
	s, err := scanSale(row.Scan)
	if err == sql.ErrNoRows {
		return model.SaleTransaction{}, apperrors.ErrSaleNotFound
	}
	if err != nil {
		return model.SaleTransaction{}, fmt.Errorf("failed to query sale_transaction table: %w", err)
	}

	return s, nil
}

// GetSalesByGrant retrieves all sales owned by a grant, oldest first.
func (r *SaleRepository) GetSalesByGrant(grantID string) ([]model.SaleTransaction, error) {
	query := `SELECT ` + saleColumns + `
		FROM sale_transaction
		WHERE grant_id = ?
		ORDER BY sale_date ASC, created_at ASC`

	rows, err := r.getQuerier().Query(query, grantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale_transaction table: %w", err)
	}
	defer rows.Close()

	sales := []model.SaleTransaction{}
	for rows.Next() {
		s, err := scanSale(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale_transaction table results: %w", err)
		}
		sales = append(sales, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale_transaction table: %w", err)
	}

	return sales, nil
}

// GetAllSales retrieves every sale transaction, oldest first. Used by the
// evolution rebuild to replay realized gains date by date.
func (r *SaleRepository) GetAllSales() ([]model.SaleTransaction, error) {
	query := `SELECT ` + saleColumns + ` FROM sale_transaction ORDER BY sale_date ASC, created_at ASC`

	rows, err := r.getQuerier().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale_transaction table: %w", err)
	}
	defer rows.Close()

	sales := []model.SaleTransaction{}
	for rows.Next() {
		s, err := scanSale(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale_transaction table results: %w", err)
		}
		sales = append(sales, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale_transaction table: %w", err)
	}

	return sales, nil
}

// GetSalesHistory retrieves sales enriched with grant metadata, newest first.
// If grantID is non-empty only that grant's sales are returned.
func (r *SaleRepository) GetSalesHistory(grantID string) ([]model.SaleHistoryEntry, error) {
	query := `
		SELECT
			s.id, s.grant_id, s.sale_date, s.quantity_sold, s.sale_price,
			s.total_sale_value, s.tax_deducted, s.realized_gain_loss, s.notes,
			s.created_at, s.updated_at,
			g.grant_date, g.fund_name, g.exercise_reference
		FROM sale_transaction s
		JOIN option_grant g ON g.id = s.grant_id
	`

	var args []any
	if grantID != "" {
		query += ` WHERE s.grant_id = ?`
		args = append(args, grantID)
	}
	query += ` ORDER BY s.sale_date DESC, s.created_at DESC`

	rows, err := r.getQuerier().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sale history: %w", err)
	}
	defer rows.Close()

	history := []model.SaleHistoryEntry{}
	for rows.Next() {
		var e model.SaleHistoryEntry
		var saleDateStr, createdAtStr, updatedAtStr, grantDateStr string
		var notes, fundName sql.NullString

		err := rows.Scan(
			&e.ID,
			&e.GrantID,
			&saleDateStr,
			&e.QuantitySold,
			&e.SalePrice,
			&e.TotalSaleValue,
			&e.TaxDeducted,
			&e.RealizedGainLoss,
			&notes,
			&createdAtStr,
			&updatedAtStr,
			&grantDateStr,
			&fundName,
			&e.ExerciseReference,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale history results: %w", err)
		}

		if e.SaleDate, err = ParseTime(saleDateStr); err != nil {
			return nil, fmt.Errorf("failed to parse sale date: %w", err)
		}
		if e.CreatedAt, err = ParseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if e.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}
		if e.GrantDate, err = ParseTime(grantDateStr); err != nil {
			return nil, fmt.Errorf("failed to parse grant date: %w", err)
		}
		if notes.Valid {
			e.Notes = notes.String
		}
		if fundName.Valid {
			e.FundName = fundName.String
		}

		history = append(history, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale history: %w", err)
	}

	return history, nil
}

// InsertSale inserts a new sale transaction row.
func (r *SaleRepository) InsertSale(ctx context.Context, s *model.SaleTransaction) error {
	query := `
		INSERT INTO sale_transaction (
			id, grant_id, sale_date, quantity_sold, sale_price, total_sale_value,
			tax_deducted, realized_gain_loss, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var notes sql.NullString
	if s.Notes != "" {
		notes = sql.NullString{String: s.Notes, Valid: true}
	}

	_, err := r.getQuerier().ExecContext(ctx, query,
		s.ID,
		s.GrantID,
		FormatDate(s.SaleDate),
		s.QuantitySold,
		s.SalePrice,
		s.TotalSaleValue,
		s.TaxDeducted,
		s.RealizedGainLoss,
		notes,
		s.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		s.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale_transaction: %w", err)
	}

	return nil
}

// UpdateSale writes back the editable fields of a sale (date, price, notes)
// and its recomputed totals. Quantity and tax are never changed by an edit.
func (r *SaleRepository) UpdateSale(ctx context.Context, s *model.SaleTransaction) error {
	query := `
		UPDATE sale_transaction
		SET sale_date = ?,
			sale_price = ?,
			total_sale_value = ?,
			realized_gain_loss = ?,
			notes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var notes sql.NullString
	if s.Notes != "" {
		notes = sql.NullString{String: s.Notes, Valid: true}
	}

	result, err := r.getQuerier().ExecContext(ctx, query,
		FormatDate(s.SaleDate),
		s.SalePrice,
		s.TotalSaleValue,
		s.RealizedGainLoss,
		notes,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sale_transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return fmt.Errorf("%w: expected 1 row updated for sale %s, got %d",
			apperrors.ErrConsistency, s.ID, rowsAffected)
	}

	return nil
}

// DeleteByGrant removes all sales owned by a grant. Returns the number of
// sales removed.
func (r *SaleRepository) DeleteByGrant(ctx context.Context, grantID string) (int64, error) {
	query := `DELETE FROM sale_transaction WHERE grant_id = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, grantID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sale_transaction rows: %w", err)
	}

	return result.RowsAffected()
}
