package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/optionfolio/backend/internal/model"
)

// PriceRepository provides data access methods for the price_observation table.
// Observations are immutable facts: insertion only, never update or delete.
type PriceRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PriceRepository) WithTx(tx *sql.Tx) *PriceRepository {
	return &PriceRepository{db: r.db, tx: tx}
}

func (r *PriceRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const priceColumns = `id, fund_name, exercise_reference, grant_date, price_date, value, created_at`

func scanObservation(scan func(dest ...any) error) (model.PriceObservation, error) {
	var o model.PriceObservation
	var grantDateStr, priceDateStr, createdAtStr string
	var fundName sql.NullString

	err := scan(
		&o.ID,
		&fundName,
		&o.ExerciseReference,
		&grantDateStr,
		&priceDateStr,
		&o.Value,
		&createdAtStr,
	)
	if err != nil {
		return model.PriceObservation{}, err
	}

	if o.GrantDate, err = ParseTime(grantDateStr); err != nil {
		return model.PriceObservation{}, fmt.Errorf("failed to parse grant date: %w", err)
	}
	if o.PriceDate, err = ParseTime(priceDateStr); err != nil {
		return model.PriceObservation{}, fmt.Errorf("failed to parse price date: %w", err)
	}
	if o.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return model.PriceObservation{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if fundName.Valid {
		o.FundName = fundName.String
	}

	return o, nil
}

// GetObservations retrieves all observations for an option identity
// (exercise reference and grant date), ordered by price date ascending.
func (r *PriceRepository) GetObservations(exerciseReference float64, grantDate string) ([]model.PriceObservation, error) {
	query := `SELECT ` + priceColumns + `
		FROM price_observation
		WHERE exercise_reference = ? AND date(grant_date) = date(?)
		ORDER BY price_date ASC`

	rows, err := r.getQuerier().Query(query, exerciseReference, grantDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query price_observation table: %w", err)
	}
	defer rows.Close()

	observations := []model.PriceObservation{}
	for rows.Next() {
		o, err := scanObservation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price_observation table results: %w", err)
		}
		observations = append(observations, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price_observation table: %w", err)
	}

	return observations, nil
}

// GetLatestForIdentity retrieves the most recent observation for an option
// identity. Returns nil, nil when no observation exists.
func (r *PriceRepository) GetLatestForIdentity(exerciseReference float64, grantDate string) (*model.PriceObservation, error) {
	query := `SELECT ` + priceColumns + `
		FROM price_observation
		WHERE exercise_reference = ? AND date(grant_date) = date(?)
		ORDER BY price_date DESC
		LIMIT 1`

	row := r.getQuerier().QueryRow(query, exerciseReference, grantDate)
	o, err := scanObservation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query price_observation table: %w", err)
	}

	return &o, nil
}

// GetLatestForReference retrieves the most recent observation for an exercise
// reference across all grant dates. Used as a fallback when a grant's exact
// identity has no observations yet. Returns nil, nil when none exists.
func (r *PriceRepository) GetLatestForReference(exerciseReference float64) (*model.PriceObservation, error) {
	query := `SELECT ` + priceColumns + `
		FROM price_observation
		WHERE exercise_reference = ?
		ORDER BY price_date DESC
		LIMIT 1`

	row := r.getQuerier().QueryRow(query, exerciseReference)
	o, err := scanObservation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query price_observation table: %w", err)
	}

	return &o, nil
}

// GetAllObservations retrieves every observation ordered by identity then
// price date. Used by the evolution rebuild to replay valuations in memory.
func (r *PriceRepository) GetAllObservations() ([]model.PriceObservation, error) {
	query := `SELECT ` + priceColumns + `
		FROM price_observation
		ORDER BY exercise_reference ASC, grant_date ASC, price_date ASC`

	rows, err := r.getQuerier().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query price_observation table: %w", err)
	}
	defer rows.Close()

	observations := []model.PriceObservation{}
	for rows.Next() {
		o, err := scanObservation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price_observation table results: %w", err)
		}
		observations = append(observations, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price_observation table: %w", err)
	}

	return observations, nil
}

// GetLatestObservations retrieves the newest observation per option identity,
// using a MAX(price_date) self-join like the latest-price lookup on reads.
func (r *PriceRepository) GetLatestObservations() ([]model.PriceObservation, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM price_observation po
		INNER JOIN (
			SELECT exercise_reference AS ref, grant_date AS gd, MAX(price_date) AS latest_date
			FROM price_observation
			GROUP BY exercise_reference, grant_date
		) latest ON po.exercise_reference = latest.ref
			AND po.grant_date = latest.gd
			AND po.price_date = latest.latest_date
	`

	rows, err := r.getQuerier().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query price_observation table: %w", err)
	}
	defer rows.Close()

	observations := []model.PriceObservation{}
	for rows.Next() {
		o, err := scanObservation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price_observation table results: %w", err)
		}
		observations = append(observations, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price_observation table: %w", err)
	}

	return observations, nil
}

// InsertObservation inserts a single observation. Fails on a duplicate
// (exercise_reference, grant_date, price_date) key.
func (r *PriceRepository) InsertObservation(ctx context.Context, o *model.PriceObservation) error {
	query := `
		INSERT INTO price_observation (id, fund_name, exercise_reference, grant_date, price_date, value)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var fundName sql.NullString
	if o.FundName != "" {
		fundName = sql.NullString{String: o.FundName, Valid: true}
	}

	_, err := r.getQuerier().ExecContext(ctx, query,
		o.ID,
		fundName,
		o.ExerciseReference,
		FormatDate(o.GrantDate),
		FormatDate(o.PriceDate),
		o.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price_observation: %w", err)
	}

	return nil
}

// InsertObservations inserts a batch of observations, silently skipping rows
// whose unique key already exists: existing observations are never mutated.
// Returns the number of newly inserted rows.
func (r *PriceRepository) InsertObservations(ctx context.Context, observations []model.PriceObservation) (int, error) {
	query := `
		INSERT INTO price_observation (id, fund_name, exercise_reference, grant_date, price_date, value)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (exercise_reference, grant_date, price_date) DO NOTHING
	`

	inserted := 0
	for i := range observations {
		o := &observations[i]

		var fundName sql.NullString
		if o.FundName != "" {
			fundName = sql.NullString{String: o.FundName, Valid: true}
		}

		result, err := r.getQuerier().ExecContext(ctx, query,
			o.ID,
			fundName,
			o.ExerciseReference,
			FormatDate(o.GrantDate),
			FormatDate(o.PriceDate),
			o.Value,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert price_observation batch row %d: %w", i, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += int(rowsAffected)
	}

	return inserted, nil
}
