package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/optionfolio/backend/internal/pricefeed"
	"github.com/optionfolio/backend/internal/repository"
	"github.com/optionfolio/backend/internal/service"
)

func NewTestSettingService(t *testing.T, db *sql.DB) *service.SettingService {
	t.Helper()

	return service.NewSettingService(repository.NewSettingRepository(db), nil)
}

func NewTestEvolutionService(t *testing.T, db *sql.DB) *service.EvolutionService {
	t.Helper()

	return service.NewEvolutionService(
		db,
		repository.NewEvolutionRepository(db),
		repository.NewGrantRepository(db),
		repository.NewSaleRepository(db),
		repository.NewPriceRepository(db),
		repository.NewSettingRepository(db),
	)
}

func NewTestGrantService(t *testing.T, db *sql.DB) *service.GrantService {
	t.Helper()

	return service.NewGrantService(
		db,
		repository.NewGrantRepository(db),
		repository.NewSaleRepository(db),
		repository.NewPriceRepository(db),
		NewTestEvolutionService(t, db),
		NewTestSettingService(t, db),
		service.NewTaxAllocator(),
	)
}

func NewTestSaleService(t *testing.T, db *sql.DB) *service.SaleService {
	t.Helper()

	return service.NewSaleService(
		db,
		repository.NewSaleRepository(db),
		repository.NewGrantRepository(db),
		NewTestEvolutionService(t, db),
		NewTestSettingService(t, db),
		service.NewTaxAllocator(),
	)
}

func NewTestOverviewService(t *testing.T, db *sql.DB) *service.OverviewService {
	t.Helper()

	return service.NewOverviewService(
		repository.NewGrantRepository(db),
		repository.NewSaleRepository(db),
		repository.NewPriceRepository(db),
		NewTestSettingService(t, db),
	)
}

// NewTestPriceService creates a PriceService without a provider.
// Refresh and backfill are unavailable; resolution and ingestion work.
func NewTestPriceService(t *testing.T, db *sql.DB) *service.PriceService {
	t.Helper()

	return NewTestPriceServiceWithFeed(t, db, nil)
}

// NewTestPriceServiceWithFeed creates a PriceService with a feed client,
// typically a MockFeedClient, for testing refresh and backfill.
func NewTestPriceServiceWithFeed(t *testing.T, db *sql.DB, feed pricefeed.Client) *service.PriceService {
	t.Helper()

	return service.NewPriceService(
		db,
		repository.NewPriceRepository(db),
		repository.NewGrantRepository(db),
		NewTestEvolutionService(t, db),
		feed,
		pricefeed.NewListingCache(time.Minute),
	)
}

func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()

	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// Date parses a YYYY-MM-DD literal. Panics on a malformed literal, which in
// a test means the test itself is wrong.
func Date(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic("testutil.Date: bad literal " + value)
	}
	return t
}

// Today returns today's date in YYYY-MM-DD form, for asserting on snapshots
// written by operations that stamp the current date.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}
