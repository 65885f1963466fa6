package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite" // Test Package
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// In-memory database (destroyed when connection closes)
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// One pooled connection, matching production. A second connection would
	// also get its own empty in-memory database.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	// Configure SQLite for testing
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = MEMORY", // Faster for tests
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			t.Fatalf("Failed to set pragma: %v", err)
		}
	}

	// Create schema
	if err := createTestSchema(db); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	// Cleanup when test ends
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// createTestSchema creates all database tables for testing.
// Schema is synchronized with the production migration.
func createTestSchema(db *sql.DB) error {
	schema := `
		-- Grant table
		CREATE TABLE option_grant (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			grant_date DATE NOT NULL,
			fund_name VARCHAR(100),
			exercise_reference FLOAT NOT NULL,
			quantity INTEGER NOT NULL,
			amount_granted FLOAT NOT NULL,
			current_value FLOAT NOT NULL DEFAULT 0,
			tax_amount FLOAT,
			tax_auto_calculated FLOAT NOT NULL DEFAULT 0,
			total_sold_quantity INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT ck_grant_quantity CHECK (quantity > 0),
			CONSTRAINT ck_grant_sold CHECK (total_sold_quantity >= 0 AND total_sold_quantity <= quantity)
		);

		-- Sale table
		CREATE TABLE sale_transaction (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			grant_id VARCHAR(36) NOT NULL,
			sale_date DATE NOT NULL,
			quantity_sold INTEGER NOT NULL,
			sale_price FLOAT NOT NULL,
			total_sale_value FLOAT NOT NULL,
			tax_deducted FLOAT NOT NULL DEFAULT 0,
			realized_gain_loss FLOAT NOT NULL DEFAULT 0,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(grant_id) REFERENCES option_grant(id) ON DELETE CASCADE,
			CONSTRAINT ck_sale_quantity CHECK (quantity_sold > 0),
			CONSTRAINT ck_sale_price CHECK (sale_price > 0)
		);

		-- Price observation table
		CREATE TABLE price_observation (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			fund_name VARCHAR(100),
			exercise_reference FLOAT NOT NULL,
			grant_date DATE NOT NULL,
			price_date DATE NOT NULL,
			value FLOAT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_price_observation UNIQUE (exercise_reference, grant_date, price_date)
		);

		-- Evolution snapshot table
		CREATE TABLE evolution_snapshot (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			snapshot_date DATE NOT NULL UNIQUE,
			total_portfolio_value FLOAT NOT NULL DEFAULT 0,
			total_unrealized_gain FLOAT NOT NULL DEFAULT 0,
			total_realized_gain FLOAT NOT NULL DEFAULT 0,
			total_options_count INTEGER NOT NULL DEFAULT 0,
			active_options_count INTEGER NOT NULL DEFAULT 0,
			notes TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		-- Setting table
		CREATE TABLE setting (
			id VARCHAR(36) NOT NULL PRIMARY KEY,
			"key" VARCHAR(50) NOT NULL UNIQUE,
			value VARCHAR(255) NOT NULL,
			updated_at DATETIME
		);

		CREATE INDEX ix_grant_date_reference ON option_grant(grant_date, exercise_reference);
		CREATE INDEX ix_sale_grant_id ON sale_transaction(grant_id);
		CREATE INDEX ix_sale_date ON sale_transaction(sale_date);
		CREATE INDEX ix_price_observation_identity ON price_observation(exercise_reference, grant_date);
		CREATE INDEX ix_price_observation_date ON price_observation(price_date);
		CREATE INDEX ix_evolution_snapshot_date ON evolution_snapshot(snapshot_date);

		INSERT INTO setting (id, "key", value, updated_at) VALUES
			(lower(hex(randomblob(16))), 'tax_rate_percent', '30', CURRENT_TIMESTAMP),
			(lower(hex(randomblob(16))), 'unit_cost', '10', CURRENT_TIMESTAMP),
			(lower(hex(randomblob(16))), 'target_return_percent', '20', CURRENT_TIMESTAMP);
	`

	_, err := db.Exec(schema)
	return err
}
