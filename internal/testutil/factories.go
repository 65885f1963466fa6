package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/repository"
)

// GrantBuilder provides a fluent interface for creating test grants.
//
// Example usage:
//
//	// Simple creation with defaults
//	grant := testutil.NewGrant().Build(t, db)
//
//	// Customized grant
//	grant := testutil.NewGrant().
//	    WithQuantity(250).
//	    WithGrantDate("2023-05-01").
//	    WithManualTax(500).
//	    Build(t, db)
type GrantBuilder struct {
	ID                string
	GrantDate         time.Time
	FundName          string
	ExerciseReference float64
	Quantity          int
	AmountGranted     float64
	CurrentValue      float64
	TaxAmount         *float64
	TaxAutoCalculated float64
	TotalSoldQuantity int
}

// NewGrant creates a GrantBuilder with sensible defaults: 100 options at
// exercise reference 25, granted 2024-01-10, auto tax 300 (30% of 100 x 10).
func NewGrant() *GrantBuilder {
	return &GrantBuilder{
		ID:                MakeID(),
		GrantDate:         Date("2024-01-10"),
		FundName:          "Test Fund",
		ExerciseReference: 25,
		Quantity:          100,
		AmountGranted:     1000,
		CurrentValue:      0,
		TaxAutoCalculated: 300,
		TotalSoldQuantity: 0,
	}
}

// WithID sets a custom ID.
func (b *GrantBuilder) WithID(id string) *GrantBuilder {
	b.ID = id
	return b
}

// WithGrantDate sets a custom grant date (YYYY-MM-DD).
func (b *GrantBuilder) WithGrantDate(date string) *GrantBuilder {
	b.GrantDate = Date(date)
	return b
}

// WithFundName sets a custom fund name.
func (b *GrantBuilder) WithFundName(name string) *GrantBuilder {
	b.FundName = name
	return b
}

// WithExerciseReference sets a custom exercise reference.
func (b *GrantBuilder) WithExerciseReference(ref float64) *GrantBuilder {
	b.ExerciseReference = ref
	return b
}

// WithQuantity sets the quantity and recomputes the dependent defaults:
// amount granted (quantity x 10) and auto tax (30% of that).
func (b *GrantBuilder) WithQuantity(quantity int) *GrantBuilder {
	b.Quantity = quantity
	b.AmountGranted = float64(quantity) * 10
	b.TaxAutoCalculated = b.AmountGranted * 0.30
	return b
}

// WithCurrentValue sets the cached per-unit value.
func (b *GrantBuilder) WithCurrentValue(value float64) *GrantBuilder {
	b.CurrentValue = value
	return b
}

// WithManualTax sets a manual tax override.
func (b *GrantBuilder) WithManualTax(tax float64) *GrantBuilder {
	b.TaxAmount = &tax
	return b
}

// WithAutoTax sets the auto-calculated tax explicitly.
func (b *GrantBuilder) WithAutoTax(tax float64) *GrantBuilder {
	b.TaxAutoCalculated = tax
	return b
}

// WithSoldQuantity sets the cumulative sold quantity.
func (b *GrantBuilder) WithSoldQuantity(sold int) *GrantBuilder {
	b.TotalSoldQuantity = sold
	return b
}

// Build creates the grant in the database and returns it.
func (b *GrantBuilder) Build(t *testing.T, db *sql.DB) model.Grant {
	t.Helper()

	query := `
		INSERT INTO option_grant (
			id, grant_date, fund_name, exercise_reference, quantity, amount_granted,
			current_value, tax_amount, tax_auto_calculated, total_sold_quantity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var taxAmount sql.NullFloat64
	if b.TaxAmount != nil {
		taxAmount = sql.NullFloat64{Float64: *b.TaxAmount, Valid: true}
	}

	_, err := db.Exec(query, b.ID, repository.FormatDate(b.GrantDate), b.FundName,
		b.ExerciseReference, b.Quantity, b.AmountGranted, b.CurrentValue,
		taxAmount, b.TaxAutoCalculated, b.TotalSoldQuantity)
	if err != nil {
		t.Fatalf("Failed to create test grant: %v", err)
	}

	return model.Grant{
		ID:                b.ID,
		GrantDate:         b.GrantDate,
		FundName:          b.FundName,
		ExerciseReference: b.ExerciseReference,
		Quantity:          b.Quantity,
		AmountGranted:     b.AmountGranted,
		CurrentValue:      b.CurrentValue,
		TaxAmount:         b.TaxAmount,
		TaxAutoCalculated: b.TaxAutoCalculated,
		TotalSoldQuantity: b.TotalSoldQuantity,
	}
}

// SaleBuilder provides a fluent interface for creating test sales.
//
// Example usage:
//
//	sale := testutil.NewSale(grant.ID).
//	    WithQuantitySold(40).
//	    WithSalePrice(12).
//	    Build(t, db)
type SaleBuilder struct {
	ID               string
	GrantID          string
	SaleDate         time.Time
	QuantitySold     int
	SalePrice        float64
	TotalSaleValue   float64
	TaxDeducted      float64
	RealizedGainLoss float64
	Notes            string
}

// NewSale creates a SaleBuilder against the given grant with defaults:
// 40 options at price 12 on 2024-06-01.
func NewSale(grantID string) *SaleBuilder {
	return &SaleBuilder{
		ID:               MakeID(),
		GrantID:          grantID,
		SaleDate:         Date("2024-06-01"),
		QuantitySold:     40,
		SalePrice:        12,
		TotalSaleValue:   480,
		TaxDeducted:      120,
		RealizedGainLoss: 80,
	}
}

// WithSaleDate sets a custom sale date (YYYY-MM-DD).
func (b *SaleBuilder) WithSaleDate(date string) *SaleBuilder {
	b.SaleDate = Date(date)
	return b
}

// WithQuantitySold sets the quantity sold and recomputes the dependent
// defaults against a per-unit cost of 10.
func (b *SaleBuilder) WithQuantitySold(quantity int) *SaleBuilder {
	b.QuantitySold = quantity
	b.TotalSaleValue = float64(quantity) * b.SalePrice
	b.RealizedGainLoss = b.TotalSaleValue - float64(quantity)*10
	return b
}

// WithSalePrice sets the sale price and recomputes the dependent defaults.
func (b *SaleBuilder) WithSalePrice(price float64) *SaleBuilder {
	b.SalePrice = price
	b.TotalSaleValue = float64(b.QuantitySold) * price
	b.RealizedGainLoss = b.TotalSaleValue - float64(b.QuantitySold)*10
	return b
}

// WithTaxDeducted sets the informational tax figure.
func (b *SaleBuilder) WithTaxDeducted(tax float64) *SaleBuilder {
	b.TaxDeducted = tax
	return b
}

// WithNotes sets the free-text notes.
func (b *SaleBuilder) WithNotes(notes string) *SaleBuilder {
	b.Notes = notes
	return b
}

// Build creates the sale in the database and returns it.
func (b *SaleBuilder) Build(t *testing.T, db *sql.DB) model.SaleTransaction {
	t.Helper()

	query := `
		INSERT INTO sale_transaction (
			id, grant_id, sale_date, quantity_sold, sale_price,
			total_sale_value, tax_deducted, realized_gain_loss, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.GrantID, repository.FormatDate(b.SaleDate),
		b.QuantitySold, b.SalePrice, b.TotalSaleValue, b.TaxDeducted,
		b.RealizedGainLoss, b.Notes)
	if err != nil {
		t.Fatalf("Failed to create test sale: %v", err)
	}

	return model.SaleTransaction{
		ID:               b.ID,
		GrantID:          b.GrantID,
		SaleDate:         b.SaleDate,
		QuantitySold:     b.QuantitySold,
		SalePrice:        b.SalePrice,
		TotalSaleValue:   b.TotalSaleValue,
		TaxDeducted:      b.TaxDeducted,
		RealizedGainLoss: b.RealizedGainLoss,
		Notes:            b.Notes,
	}
}

// PriceObservationBuilder provides a fluent interface for creating test
// price observations.
//
// Example usage:
//
//	testutil.NewPriceObservation(25, "2024-01-10").
//	    WithPriceDate("2024-06-01").
//	    WithValue(12.5).
//	    Build(t, db)
type PriceObservationBuilder struct {
	ID                string
	FundName          string
	ExerciseReference float64
	GrantDate         time.Time
	PriceDate         time.Time
	Value             float64
}

// NewPriceObservation creates a builder for the given option identity.
func NewPriceObservation(exerciseReference float64, grantDate string) *PriceObservationBuilder {
	return &PriceObservationBuilder{
		ID:                MakeID(),
		FundName:          "Test Fund",
		ExerciseReference: exerciseReference,
		GrantDate:         Date(grantDate),
		PriceDate:         Date(grantDate),
		Value:             10,
	}
}

// WithFundName sets a custom fund name.
func (b *PriceObservationBuilder) WithFundName(name string) *PriceObservationBuilder {
	b.FundName = name
	return b
}

// WithPriceDate sets the observation date (YYYY-MM-DD).
func (b *PriceObservationBuilder) WithPriceDate(date string) *PriceObservationBuilder {
	b.PriceDate = Date(date)
	return b
}

// WithValue sets the observed value.
func (b *PriceObservationBuilder) WithValue(value float64) *PriceObservationBuilder {
	b.Value = value
	return b
}

// Build creates the observation in the database and returns it.
func (b *PriceObservationBuilder) Build(t *testing.T, db *sql.DB) model.PriceObservation {
	t.Helper()

	query := `
		INSERT INTO price_observation (id, fund_name, exercise_reference, grant_date, price_date, value)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.FundName, b.ExerciseReference,
		repository.FormatDate(b.GrantDate), repository.FormatDate(b.PriceDate), b.Value)
	if err != nil {
		t.Fatalf("Failed to create test price observation: %v", err)
	}

	return model.PriceObservation{
		ID:                b.ID,
		FundName:          b.FundName,
		ExerciseReference: b.ExerciseReference,
		GrantDate:         b.GrantDate,
		PriceDate:         b.PriceDate,
		Value:             b.Value,
	}
}

// Convenience functions

// CreateGrant creates a grant with the given quantity and default values.
func CreateGrant(t *testing.T, db *sql.DB, quantity int) model.Grant {
	t.Helper()
	return NewGrant().WithQuantity(quantity).Build(t, db)
}

// CreateObservation creates a price observation for an identity at a date.
func CreateObservation(t *testing.T, db *sql.DB, exerciseReference float64, grantDate, priceDate string, value float64) model.PriceObservation {
	t.Helper()
	return NewPriceObservation(exerciseReference, grantDate).
		WithPriceDate(priceDate).
		WithValue(value).
		Build(t, db)
}

// SetSetting overwrites a configuration value directly.
func SetSetting(t *testing.T, db *sql.DB, key, value string) {
	t.Helper()

	query := `
		INSERT INTO setting (id, "key", value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT("key") DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := db.Exec(query, MakeID(), key, value); err != nil {
		t.Fatalf("Failed to set test setting %s: %v", key, err)
	}
}
