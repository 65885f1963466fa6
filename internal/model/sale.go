package model

import (
	"fmt"
	"time"
)

// SaleTransaction represents one disposal event against exactly one grant.
// The owning grant exclusively owns its sales: a sale is never deleted on its
// own, only when the grant itself is deleted.
type SaleTransaction struct {
	ID               string    `json:"id"`
	GrantID          string    `json:"grantId"`
	SaleDate         time.Time `json:"saleDate"`
	QuantitySold     int       `json:"quantitySold"`
	SalePrice        float64   `json:"salePrice"`
	TotalSaleValue   float64   `json:"totalSaleValue"`
	TaxDeducted      float64   `json:"taxDeducted"`
	RealizedGainLoss float64   `json:"realizedGainLoss"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"createdAt,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt,omitempty"`
}

// Validate checks the sale's structural invariants before persistence.
func (s SaleTransaction) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("sale ID is required")
	}
	if s.GrantID == "" {
		return fmt.Errorf("grant ID is required")
	}
	if s.SaleDate.IsZero() {
		return fmt.Errorf("sale date is required")
	}
	if s.QuantitySold <= 0 {
		return fmt.Errorf("quantity sold must be positive, got %d", s.QuantitySold)
	}
	if s.SalePrice <= 0 {
		return fmt.Errorf("sale price must be positive, got %f", s.SalePrice)
	}
	return nil
}

// SaleResult is returned by recording a sale. It carries the figures the
// caller needs to display: what was allocated to this sale and what tax
// liability remains on the grant afterwards.
type SaleResult struct {
	ID               string  `json:"id"`
	TotalSaleValue   float64 `json:"totalSaleValue"`
	RealizedGainLoss float64 `json:"realizedGainLoss"`
	TaxAllocated     float64 `json:"taxAllocated"`
	RemainingTax     float64 `json:"remainingTax"`
}

// SaleHistoryEntry is a sale enriched with grant metadata for API responses.
type SaleHistoryEntry struct {
	SaleTransaction
	GrantDate         time.Time `json:"grantDate"`
	FundName          string    `json:"fundName,omitempty"`
	ExerciseReference float64   `json:"exerciseReference"`
}
