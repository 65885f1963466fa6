package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/repository"
)

// SaleService records and edits sale transactions against grants. Recording a
// sale updates three things atomically: the sale row, the owning grant's sold
// quantity and authoritative tax, and the evolution snapshot for the sale
// date.
type SaleService struct {
	db               *sql.DB
	saleRepo         *repository.SaleRepository
	grantRepo        *repository.GrantRepository
	evolutionService *EvolutionService
	settingService   *SettingService
	taxAllocator     *TaxAllocator
}

// NewSaleService creates a new SaleService with the provided dependencies.
func NewSaleService(
	db *sql.DB,
	saleRepo *repository.SaleRepository,
	grantRepo *repository.GrantRepository,
	evolutionService *EvolutionService,
	settingService *SettingService,
	taxAllocator *TaxAllocator,
) *SaleService {
	return &SaleService{
		db:               db,
		saleRepo:         saleRepo,
		grantRepo:        grantRepo,
		evolutionService: evolutionService,
		settingService:   settingService,
		taxAllocator:     taxAllocator,
	}
}

// isFutureDate reports whether d falls after today, by date-only comparison.
func isFutureDate(d time.Time) bool {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return d.UTC().Truncate(24 * time.Hour).After(today)
}

// RecordSaleInput carries the caller-supplied fields for a new sale.
type RecordSaleInput struct {
	GrantID      string
	SaleDate     time.Time
	QuantitySold int
	SalePrice    float64
	Notes        string
}

// RecordSale records a disposal against a grant.
//
// Tax is reallocated proportionally against what remains on the grant before
// this sale: perOptionTax = totalTax / remainingBefore, allocated =
// perOptionTax x quantitySold, and the grant keeps max(0, totalTax -
// allocated). The order of operations is deliberate and path dependent;
// sequential partial sales leave a different remainder than one larger sale.
//
// Sale proceeds are not reduced by tax. Tax was allocated at grant time;
// tax_deducted on the sale row is informational only. Realized gain is
// computed against the fixed per-unit cost, not the exercise reference.
func (s *SaleService) RecordSale(ctx context.Context, input RecordSaleInput) (model.SaleResult, error) {
	if input.QuantitySold <= 0 {
		return model.SaleResult{}, fmt.Errorf("%w: quantity sold must be positive", apperrors.ErrNegativeAmount)
	}
	if input.SalePrice <= 0 {
		return model.SaleResult{}, fmt.Errorf("%w: sale price must be positive", apperrors.ErrNegativeAmount)
	}
	if input.SaleDate.IsZero() {
		return model.SaleResult{}, fmt.Errorf("%w: sale date", apperrors.ErrMissingRequiredField)
	}
	if isFutureDate(input.SaleDate) {
		return model.SaleResult{}, apperrors.ErrSaleDateInFuture
	}

	grant, err := s.grantRepo.GetGrant(input.GrantID)
	if err != nil {
		return model.SaleResult{}, err
	}

	remainingBefore := grant.QuantityRemaining()
	if input.QuantitySold > remainingBefore {
		return model.SaleResult{}, fmt.Errorf("%w: %d requested, %d available",
			apperrors.ErrInsufficientOptions, input.QuantitySold, remainingBefore)
	}

	unitCost, err := s.settingService.UnitCost()
	if err != nil {
		return model.SaleResult{}, err
	}

	totalTax := grant.AuthoritativeTax()
	taxAllocated, newTotalTax := s.taxAllocator.AllocateForSale(totalTax, remainingBefore, input.QuantitySold)

	totalSaleValue := round(float64(input.QuantitySold) * input.SalePrice)
	costBasis := float64(input.QuantitySold) * unitCost
	realizedGainLoss := round(totalSaleValue - costBasis)

	now := time.Now().UTC()
	sale := model.SaleTransaction{
		ID:               uuid.New().String(),
		GrantID:          grant.ID,
		SaleDate:         input.SaleDate.UTC(),
		QuantitySold:     input.QuantitySold,
		SalePrice:        input.SalePrice,
		TotalSaleValue:   totalSaleValue,
		TaxDeducted:      taxAllocated,
		RealizedGainLoss: realizedGainLoss,
		Notes:            input.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := sale.Validate(); err != nil {
		return model.SaleResult{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToRecordSale, err)
	}

	grant.TotalSoldQuantity += input.QuantitySold
	if grant.HasManualTax() {
		grant.TaxAmount = &newTotalTax
	} else {
		grant.TaxAutoCalculated = newTotalTax
	}
	if err := grant.Validate(); err != nil {
		return model.SaleResult{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToRecordSale, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.SaleResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := s.saleRepo.WithTx(tx).InsertSale(ctx, &sale); err != nil {
		return model.SaleResult{}, err
	}
	if err := s.grantRepo.WithTx(tx).UpdateGrant(ctx, &grant); err != nil {
		return model.SaleResult{}, err
	}

	note := fmt.Sprintf("Sold %d options at %.2f from grant dated %s",
		sale.QuantitySold, sale.SalePrice, repository.FormatDate(grant.GrantDate))
	if err := s.evolutionService.UpsertWithTx(ctx, tx, sale.SaleDate, note); err != nil {
		return model.SaleResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.SaleResult{}, fmt.Errorf("failed to commit sale: %w", err)
	}

	return model.SaleResult{
		ID:               sale.ID,
		TotalSaleValue:   sale.TotalSaleValue,
		RealizedGainLoss: sale.RealizedGainLoss,
		TaxAllocated:     taxAllocated,
		RemainingTax:     newTotalTax,
	}, nil
}

// EditSaleInput carries the mutable fields of an existing sale.
type EditSaleInput struct {
	SaleDate  time.Time
	SalePrice float64
	Notes     string
}

// EditSale updates a sale's date, price and notes, recomputing the total value
// and realized gain from the unchanged quantity. Tax reallocation is not
// re-run: tax was fixed at original sale time. Quantity invariants need no
// re-check either, since an edit never changes quantity.
func (s *SaleService) EditSale(ctx context.Context, saleID string, input EditSaleInput) (model.SaleTransaction, error) {
	if input.SalePrice <= 0 {
		return model.SaleTransaction{}, fmt.Errorf("%w: sale price must be positive", apperrors.ErrNegativeAmount)
	}
	if input.SaleDate.IsZero() {
		return model.SaleTransaction{}, fmt.Errorf("%w: sale date", apperrors.ErrMissingRequiredField)
	}
	if isFutureDate(input.SaleDate) {
		return model.SaleTransaction{}, apperrors.ErrSaleDateInFuture
	}

	sale, err := s.saleRepo.GetSale(saleID)
	if err != nil {
		return model.SaleTransaction{}, err
	}

	unitCost, err := s.settingService.UnitCost()
	if err != nil {
		return model.SaleTransaction{}, err
	}

	sale.SaleDate = input.SaleDate.UTC()
	sale.SalePrice = input.SalePrice
	sale.Notes = input.Notes
	sale.TotalSaleValue = round(float64(sale.QuantitySold) * input.SalePrice)
	sale.RealizedGainLoss = round(sale.TotalSaleValue - float64(sale.QuantitySold)*unitCost)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.SaleTransaction{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := s.saleRepo.WithTx(tx).UpdateSale(ctx, &sale); err != nil {
		return model.SaleTransaction{}, err
	}

	note := fmt.Sprintf("Edited sale of %d options, now at %.2f on %s",
		sale.QuantitySold, sale.SalePrice, repository.FormatDate(sale.SaleDate))
	if err := s.evolutionService.UpsertWithTx(ctx, tx, sale.SaleDate, note); err != nil {
		return model.SaleTransaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.SaleTransaction{}, fmt.Errorf("failed to commit sale edit: %w", err)
	}

	return sale, nil
}

// GetSalesHistory retrieves sales enriched with grant metadata, newest first.
// An empty grantID returns the history across all grants.
func (s *SaleService) GetSalesHistory(grantID string) ([]model.SaleHistoryEntry, error) {
	return s.saleRepo.GetSalesHistory(grantID)
}
