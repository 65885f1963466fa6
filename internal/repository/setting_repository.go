package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/model"
)

// SettingRepository provides data access methods for the setting table.
type SettingRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewSettingRepository creates a new SettingRepository with the provided database connection.
func NewSettingRepository(db *sql.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *SettingRepository) WithTx(tx *sql.Tx) *SettingRepository {
	return &SettingRepository{db: r.db, tx: tx}
}

func (r *SettingRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// Get retrieves a setting by its key.
// Returns apperrors.ErrSettingNotFound if the key does not exist.
func (r *SettingRepository) Get(key string) (model.Setting, error) {
	query := `SELECT id, "key", value, updated_at FROM setting WHERE "key" = ?`

	var s model.Setting
	var updatedAtStr sql.NullString
	err := r.getQuerier().QueryRow(query, key).Scan(&s.ID, &s.Key, &s.Value, &updatedAtStr)
	if err == sql.ErrNoRows {
		return model.Setting{}, apperrors.ErrSettingNotFound
	}
	if err != nil {
		return model.Setting{}, fmt.Errorf("failed to query setting table: %w", err)
	}

	if updatedAtStr.Valid {
		s.UpdatedAt, err = ParseTime(updatedAtStr.String)
		if err != nil {
			return model.Setting{}, fmt.Errorf("failed to parse updated_at: %w", err)
		}
	}

	return s, nil
}

// GetAll retrieves all settings ordered by key.
func (r *SettingRepository) GetAll() ([]model.Setting, error) {
	query := `SELECT id, "key", value, updated_at FROM setting ORDER BY "key" ASC`

	rows, err := r.getQuerier().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query setting table: %w", err)
	}
	defer rows.Close()

	settings := []model.Setting{}
	for rows.Next() {
		var s model.Setting
		var updatedAtStr sql.NullString
		if err := rows.Scan(&s.ID, &s.Key, &s.Value, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan setting table results: %w", err)
		}
		if updatedAtStr.Valid {
			s.UpdatedAt, err = ParseTime(updatedAtStr.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse updated_at: %w", err)
			}
		}
		settings = append(settings, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating setting table: %w", err)
	}

	return settings, nil
}

// Upsert writes a setting value, creating the key if it does not exist yet.
func (r *SettingRepository) Upsert(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO setting (id, "key", value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT ("key") DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.getQuerier().ExecContext(ctx, query, uuid.New().String(), key, value)
	if err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}

	return nil
}
