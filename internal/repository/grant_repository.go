package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/model"
)

// GrantRepository provides data access methods for the option_grant table.
// It handles grant creation, lookup, quantity/tax updates and deletion.
type GrantRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewGrantRepository creates a new GrantRepository with the provided database connection.
func NewGrantRepository(db *sql.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *GrantRepository) WithTx(tx *sql.Tx) *GrantRepository {
	return &GrantRepository{db: r.db, tx: tx}
}

func (r *GrantRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const grantColumns = `
	id, grant_date, fund_name, exercise_reference, quantity, amount_granted,
	current_value, tax_amount, tax_auto_calculated, total_sold_quantity,
	created_at, updated_at`

func scanGrant(scan func(dest ...any) error) (model.Grant, error) {
	var g model.Grant
	var grantDateStr, createdAtStr, updatedAtStr string
	var fundName sql.NullString
	var taxAmount sql.NullFloat64

	err := scan(
		&g.ID,
		&grantDateStr,
		&fundName,
		&g.ExerciseReference,
		&g.Quantity,
		&g.AmountGranted,
		&g.CurrentValue,
		&taxAmount,
		&g.TaxAutoCalculated,
		&g.TotalSoldQuantity,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return model.Grant{}, err
	}

	g.GrantDate, err = ParseTime(grantDateStr)
	if err != nil || g.GrantDate.IsZero() {
		return model.Grant{}, fmt.Errorf("failed to parse grant date: %w", err)
	}
	if g.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.Grant{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if g.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return model.Grant{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if fundName.Valid {
		g.FundName = fundName.String
	}
	if taxAmount.Valid {
		g.TaxAmount = &taxAmount.Float64
	}

	return g, nil
}

// GetGrant retrieves a single grant by its ID.
// Returns apperrors.ErrGrantNotFound if no grant exists with the given ID.
func (r *GrantRepository) GetGrant(grantID string) (model.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM option_grant WHERE id = ?`

	row := r.getQuerier().QueryRow(query, grantID)
	g, err := scanGrant(row.Scan)
	if err == sql.ErrNoRows {
		return model.Grant{}, apperrors.ErrGrantNotFound
	}
	if err != nil {
		return model.Grant{}, fmt.Errorf("failed to query option_grant table: %w", err)
	}

	return g, nil
}

// GetAllGrants retrieves all grants, most recently created first.
// Returns an empty slice if no grants exist.
func (r *GrantRepository) GetAllGrants() ([]model.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM option_grant ORDER BY created_at DESC, id DESC`

	rows, err := r.getQuerier().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query option_grant table: %w", err)
	}
	defer rows.Close()

	grants := []model.Grant{}
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan option_grant table results: %w", err)
		}
		grants = append(grants, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating option_grant table: %w", err)
	}

	return grants, nil
}

// FindByDateAndReference retrieves grants matching the grant date (date-only
// comparison) and exact exercise reference that still have unsold quantity,
// most recently created first. Used to offer a merge-or-keep-separate choice
// before adding a duplicate grant.
func (r *GrantRepository) FindByDateAndReference(grantDate string, exerciseReference float64) ([]model.Grant, error) {
	query := `SELECT ` + grantColumns + `
		FROM option_grant
		WHERE date(grant_date) = date(?)
		AND exercise_reference = ?
		AND total_sold_quantity < quantity
		ORDER BY created_at DESC, id DESC`

	rows, err := r.getQuerier().Query(query, grantDate, exerciseReference)
	if err != nil {
		return nil, fmt.Errorf("failed to query option_grant table: %w", err)
	}
	defer rows.Close()

	grants := []model.Grant{}
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan option_grant table results: %w", err)
		}
		grants = append(grants, g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating option_grant table: %w", err)
	}

	return grants, nil
}

// InsertGrant inserts a new grant row.
func (r *GrantRepository) InsertGrant(ctx context.Context, g *model.Grant) error {
	query := `
		INSERT INTO option_grant (
			id, grant_date, fund_name, exercise_reference, quantity, amount_granted,
			current_value, tax_amount, tax_auto_calculated, total_sold_quantity,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var fundName sql.NullString
	if g.FundName != "" {
		fundName = sql.NullString{String: g.FundName, Valid: true}
	}
	var taxAmount sql.NullFloat64
	if g.TaxAmount != nil {
		taxAmount = sql.NullFloat64{Float64: *g.TaxAmount, Valid: true}
	}

	_, err := r.getQuerier().ExecContext(ctx, query,
		g.ID,
		FormatDate(g.GrantDate),
		fundName,
		g.ExerciseReference,
		g.Quantity,
		g.AmountGranted,
		g.CurrentValue,
		taxAmount,
		g.TaxAutoCalculated,
		g.TotalSoldQuantity,
		g.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		g.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert option_grant: %w", err)
	}

	return nil
}

// UpdateGrant writes back the mutable bookkeeping fields of a grant: quantity,
// amounts, tax fields, sold quantity and the denormalized price cache.
// An unexpected affected-row count is a hard consistency error; callers run
// this inside a transaction so the whole operation rolls back.
func (r *GrantRepository) UpdateGrant(ctx context.Context, g *model.Grant) error {
	query := `
		UPDATE option_grant
		SET quantity = ?,
			amount_granted = ?,
			current_value = ?,
			fund_name = ?,
			tax_amount = ?,
			tax_auto_calculated = ?,
			total_sold_quantity = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var fundName sql.NullString
	if g.FundName != "" {
		fundName = sql.NullString{String: g.FundName, Valid: true}
	}
	var taxAmount sql.NullFloat64
	if g.TaxAmount != nil {
		taxAmount = sql.NullFloat64{Float64: *g.TaxAmount, Valid: true}
	}

	result, err := r.getQuerier().ExecContext(ctx, query,
		g.Quantity,
		g.AmountGranted,
		g.CurrentValue,
		fundName,
		taxAmount,
		g.TaxAutoCalculated,
		g.TotalSoldQuantity,
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update option_grant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return fmt.Errorf("%w: expected 1 row updated for grant %s, got %d",
			apperrors.ErrConsistency, g.ID, rowsAffected)
	}

	return nil
}

// UpdatePriceCache refreshes the denormalized fund name and latest-price cache
// on a grant. Used by the bulk price refresh; normal reads re-join against the
// price store instead of relying on this cache.
func (r *GrantRepository) UpdatePriceCache(ctx context.Context, grantID, fundName string, value float64) error {
	query := `
		UPDATE option_grant
		SET fund_name = ?, current_value = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var name sql.NullString
	if fundName != "" {
		name = sql.NullString{String: fundName, Valid: true}
	}

	result, err := r.getQuerier().ExecContext(ctx, query, name, value, grantID)
	if err != nil {
		return fmt.Errorf("failed to update option_grant price cache: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrGrantNotFound
	}

	return nil
}

// DeleteGrant removes a grant row. Sales are removed by the caller first
// (and by the ON DELETE CASCADE constraint as a backstop).
func (r *GrantRepository) DeleteGrant(ctx context.Context, grantID string) error {
	query := `DELETE FROM option_grant WHERE id = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, grantID)
	if err != nil {
		return fmt.Errorf("failed to delete option_grant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperrors.ErrGrantNotFound
	}

	return nil
}
