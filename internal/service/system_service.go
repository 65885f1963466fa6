package service

import (
	"database/sql"
	"fmt"

	"github.com/optionfolio/backend/internal/database"
	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/version"
)

// SystemService exposes application and schema version information.
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService with the provided database connection.
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db}
}

// GetVersionInfo returns the application version and the applied schema
// migration version.
func (s *SystemService) GetVersionInfo() (model.VersionInfo, error) {
	dbVersion, err := database.Version(s.db)
	if err != nil {
		return model.VersionInfo{}, fmt.Errorf("failed to read schema version: %w", err)
	}

	return model.VersionInfo{
		AppVersion: version.Version,
		DbVersion:  dbVersion,
	}, nil
}

// HealthCheck reports whether the database connection is alive.
func (s *SystemService) HealthCheck() error {
	return database.HealthCheck(s.db)
}
