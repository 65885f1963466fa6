package model

import (
	"fmt"
	"time"
)

// Grant represents one option award: a fixed exercise reference and grant date,
// a quantity of options, and the tax bookkeeping attached to them.
//
// Exactly one of TaxAmount / TaxAutoCalculated is authoritative at any time:
// a manual TaxAmount, when set, takes precedence over the auto-calculated
// figure for display and allocation. TaxAutoCalculated is always populated as
// the would-be auto value.
type Grant struct {
	ID                string    `json:"id"`
	GrantDate         time.Time `json:"grantDate"`
	FundName          string    `json:"fundName,omitempty"`
	ExerciseReference float64   `json:"exerciseReference"`
	Quantity          int       `json:"quantity"`
	AmountGranted     float64   `json:"amountGranted"`
	CurrentValue      float64   `json:"currentValue"`
	TaxAmount         *float64  `json:"taxAmount,omitempty"`
	TaxAutoCalculated float64   `json:"taxAutoCalculated"`
	TotalSoldQuantity int       `json:"totalSoldQuantity"`
	CreatedAt         time.Time `json:"createdAt,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt,omitempty"`
}

// QuantityRemaining returns the unsold quantity of the grant.
func (g Grant) QuantityRemaining() int {
	return g.Quantity - g.TotalSoldQuantity
}

// AuthoritativeTax returns the tax figure used for display and sale
// allocation: the manual override when set, otherwise the auto value.
func (g Grant) AuthoritativeTax() float64 {
	if g.TaxAmount != nil {
		return *g.TaxAmount
	}
	return g.TaxAutoCalculated
}

// HasManualTax reports whether a manual tax override is set on the grant.
func (g Grant) HasManualTax() bool {
	return g.TaxAmount != nil
}

// Validate checks the grant's structural invariants. It is called before any
// insert or update so that an inconsistent record is rejected at construction
// time rather than persisted.
func (g Grant) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("grant ID is required")
	}
	if g.GrantDate.IsZero() {
		return fmt.Errorf("grant date is required")
	}
	if g.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", g.Quantity)
	}
	if g.TotalSoldQuantity < 0 {
		return fmt.Errorf("total sold quantity cannot be negative, got %d", g.TotalSoldQuantity)
	}
	if g.TotalSoldQuantity > g.Quantity {
		return fmt.Errorf("total sold quantity %d exceeds quantity %d", g.TotalSoldQuantity, g.Quantity)
	}
	if g.AmountGranted < 0 {
		return fmt.Errorf("amount granted cannot be negative")
	}
	return nil
}
