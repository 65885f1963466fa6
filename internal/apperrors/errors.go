package apperrors

import "errors"

// Domain entity errors represent missing entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrGrantNotFound indicates that a grant with the given ID does not exist.
	ErrGrantNotFound = errors.New("grant not found")

	// ErrSaleNotFound indicates that a sale transaction with the given ID does not exist.
	ErrSaleNotFound = errors.New("sale transaction not found")

	// ErrSnapshotNotFound indicates that no evolution snapshot exists for the given date.
	ErrSnapshotNotFound = errors.New("evolution snapshot not found")

	// ErrSettingNotFound indicates that a setting with the given key does not exist.
	ErrSettingNotFound = errors.New("setting not found")
)

// Business logic errors represent validation failures or constraint violations.
var (
	// ErrInsufficientOptions indicates that a sale cannot be completed because
	// the grant does not hold enough unsold options. The wrapped message names
	// the available amount.
	ErrInsufficientOptions = errors.New("insufficient options remaining for sale")

	// ErrSaleDateInFuture indicates that a sale date lies in the future.
	ErrSaleDateInFuture = errors.New("sale date cannot be in the future")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrNegativeAmount indicates that an amount field has an invalid negative value.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Recoverable data-availability errors. Read paths degrade to an "unavailable"
// result instead of failing the request.
var (
	// ErrPriceUnavailable indicates that no price observation exists at all for
	// an option identity. Callers display "N/A" rather than fail.
	ErrPriceUnavailable = errors.New("no price data available")
)

// Data integrity errors represent inconsistencies detected during a write.
var (
	// ErrConsistency indicates that a persisted update did not take effect as
	// expected (e.g. an UPDATE touched an unexpected row count). The enclosing
	// transaction is rolled back; this is fatal to the operation.
	ErrConsistency = errors.New("persisted update did not take effect")

	// ErrMissingRequiredField indicates that a required field is missing or empty.
	ErrMissingRequiredField = errors.New("missing required field")
)

// Operation failure errors represent system-level failures surfaced by handlers.
var (
	ErrFailedToCreateGrant       = errors.New("failed to create grant")
	ErrFailedToUpdateGrant       = errors.New("failed to update grant")
	ErrFailedToRecordSale        = errors.New("failed to record sale")
	ErrFailedToUpdateSale        = errors.New("failed to update sale")
	ErrFailedToRetrieveGrants    = errors.New("failed to retrieve grants")
	ErrFailedToRetrieveSales     = errors.New("failed to retrieve sales")
	ErrFailedToRetrieveOverview  = errors.New("failed to retrieve portfolio overview")
	ErrFailedToRetrieveEvolution = errors.New("failed to retrieve portfolio evolution")
	ErrFailedToRetrievePrices    = errors.New("failed to retrieve price history")
	ErrFailedToRetrieveSettings  = errors.New("failed to retrieve settings")
	ErrFailedToIngestPrices      = errors.New("failed to ingest price records")
	ErrFailedToRefreshPrices     = errors.New("failed to refresh prices")
	ErrFailedToRebuildEvolution  = errors.New("failed to rebuild evolution timeline")
	ErrFailedToGetVersionInfo    = errors.New("failed to get version information")
)
