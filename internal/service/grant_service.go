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

// GrantService owns the grant ledger: creation, merge-with-existing, deletion
// and the quantity/tax bookkeeping those operations imply. Every mutation runs
// in a single transaction together with its evolution snapshot, so a failed
// operation leaves neither a half-updated grant nor a snapshot with stale
// totals.
type GrantService struct {
	db               *sql.DB
	grantRepo        *repository.GrantRepository
	saleRepo         *repository.SaleRepository
	priceRepo        *repository.PriceRepository
	evolutionService *EvolutionService
	settingService   *SettingService
	taxAllocator     *TaxAllocator
}

// NewGrantService creates a new GrantService with the provided dependencies.
func NewGrantService(
	db *sql.DB,
	grantRepo *repository.GrantRepository,
	saleRepo *repository.SaleRepository,
	priceRepo *repository.PriceRepository,
	evolutionService *EvolutionService,
	settingService *SettingService,
	taxAllocator *TaxAllocator,
) *GrantService {
	return &GrantService{
		db:               db,
		grantRepo:        grantRepo,
		saleRepo:         saleRepo,
		priceRepo:        priceRepo,
		evolutionService: evolutionService,
		settingService:   settingService,
		taxAllocator:     taxAllocator,
	}
}

// AddGrantInput carries the caller-supplied fields for a new grant. ManualTax,
// when set, overrides the auto-calculated tax as the authoritative figure.
type AddGrantInput struct {
	GrantDate         time.Time
	ExerciseReference float64
	Quantity          int
	ManualTax         *float64
}

// AddGrant records a new grant. The fund name and current value are seeded
// from the latest price observation for the grant's identity, falling back to
// the latest observation for the exercise reference alone, and finally to an
// unknown fund at value zero. The cache is not refreshed afterwards; read
// paths join against the price store for current figures.
func (s *GrantService) AddGrant(ctx context.Context, input AddGrantInput) (model.Grant, error) {
	if input.Quantity <= 0 {
		return model.Grant{}, fmt.Errorf("%w: quantity must be a positive integer", apperrors.ErrNegativeAmount)
	}
	if input.GrantDate.IsZero() {
		return model.Grant{}, fmt.Errorf("%w: grant date", apperrors.ErrMissingRequiredField)
	}

	unitCost, err := s.settingService.UnitCost()
	if err != nil {
		return model.Grant{}, err
	}
	taxRate, err := s.settingService.TaxRatePercent()
	if err != nil {
		return model.Grant{}, err
	}

	fundName, currentValue, err := s.latestPriceFor(input.ExerciseReference, input.GrantDate)
	if err != nil {
		return model.Grant{}, err
	}

	now := time.Now().UTC()
	grant := model.Grant{
		ID:                uuid.New().String(),
		GrantDate:         input.GrantDate.UTC(),
		FundName:          fundName,
		ExerciseReference: input.ExerciseReference,
		Quantity:          input.Quantity,
		AmountGranted:     round(float64(input.Quantity) * unitCost),
		CurrentValue:      currentValue,
		TaxAmount:         input.ManualTax,
		TaxAutoCalculated: s.taxAllocator.AutoTax(input.Quantity, unitCost, taxRate),
		TotalSoldQuantity: 0,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := grant.Validate(); err != nil {
		return model.Grant{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToCreateGrant, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Grant{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := s.grantRepo.WithTx(tx).InsertGrant(ctx, &grant); err != nil {
		return model.Grant{}, err
	}

	note := fmt.Sprintf("Added grant: %d options at exercise reference %.2f, granted %s",
		grant.Quantity, grant.ExerciseReference, repository.FormatDate(grant.GrantDate))
	if err := s.evolutionService.UpsertWithTx(ctx, tx, now, note); err != nil {
		return model.Grant{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Grant{}, fmt.Errorf("failed to commit grant: %w", err)
	}

	return grant, nil
}

// latestPriceFor seeds the denormalized fund name and value cache for a new
// grant from the price store.
func (s *GrantService) latestPriceFor(exerciseReference float64, grantDate time.Time) (string, float64, error) {
	observation, err := s.priceRepo.GetLatestForIdentity(exerciseReference, repository.FormatDate(grantDate))
	if err != nil {
		return "", 0, err
	}
	if observation == nil {
		observation, err = s.priceRepo.GetLatestForReference(exerciseReference)
		if err != nil {
			return "", 0, err
		}
	}
	if observation == nil {
		return "", 0, nil
	}
	return observation.FundName, observation.Value, nil
}

// CheckExisting returns grants with unsold quantity matching the grant date
// and exercise reference, most recently created first. Callers use this to
// offer a merge-or-keep-separate choice before adding a duplicate grant.
func (s *GrantService) CheckExisting(grantDate time.Time, exerciseReference float64) ([]model.Grant, error) {
	if grantDate.IsZero() {
		return nil, fmt.Errorf("%w: grant date", apperrors.ErrMissingRequiredField)
	}
	return s.grantRepo.FindByDateAndReference(repository.FormatDate(grantDate), exerciseReference)
}

// MergeGrant folds additional quantity (and optionally additional manual tax)
// into an existing grant. The tax merge follows the three-way policy in
// TaxAllocator.MergeTax; which of the two tax fields ends up authoritative
// determines how future sales allocate tax.
func (s *GrantService) MergeGrant(ctx context.Context, grantID string, additionalQuantity int, additionalManualTax *float64) (model.Grant, error) {
	grant, err := s.grantRepo.GetGrant(grantID)
	if err != nil {
		return model.Grant{}, err
	}

	newQuantity := grant.Quantity + additionalQuantity
	if newQuantity <= 0 {
		return model.Grant{}, fmt.Errorf("%w: merged quantity must be positive, got %d", apperrors.ErrNegativeAmount, newQuantity)
	}
	if newQuantity < grant.TotalSoldQuantity {
		return model.Grant{}, fmt.Errorf("%w: merged quantity %d is below the %d options already sold",
			apperrors.ErrNegativeAmount, newQuantity, grant.TotalSoldQuantity)
	}

	unitCost, err := s.settingService.UnitCost()
	if err != nil {
		return model.Grant{}, err
	}
	taxRate, err := s.settingService.TaxRatePercent()
	if err != nil {
		return model.Grant{}, err
	}

	outcome := s.taxAllocator.MergeTax(grant.TaxAmount, grant.TaxAutoCalculated,
		additionalQuantity, additionalManualTax, unitCost, taxRate)

	grant.Quantity = newQuantity
	grant.AmountGranted = round(float64(newQuantity) * unitCost)
	grant.TaxAmount = outcome.TaxAmount
	grant.TaxAutoCalculated = outcome.TaxAutoCalculated

	if err := grant.Validate(); err != nil {
		return model.Grant{}, fmt.Errorf("%w: %v", apperrors.ErrFailedToUpdateGrant, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Grant{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := s.grantRepo.WithTx(tx).UpdateGrant(ctx, &grant); err != nil {
		return model.Grant{}, err
	}

	note := fmt.Sprintf("Merged %d options into grant from %s at exercise reference %.2f",
		additionalQuantity, repository.FormatDate(grant.GrantDate), grant.ExerciseReference)
	if err := s.evolutionService.UpsertWithTx(ctx, tx, time.Now().UTC(), note); err != nil {
		return model.Grant{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Grant{}, fmt.Errorf("failed to commit merge: %w", err)
	}

	return grant, nil
}

// DeleteGrant removes a grant and the sales it owns, and annotates today's
// snapshot with the unsold quantity that disappears from the portfolio.
// Returns the deleted record so callers can display what was removed.
func (s *GrantService) DeleteGrant(ctx context.Context, grantID string) (model.Grant, error) {
	grant, err := s.grantRepo.GetGrant(grantID)
	if err != nil {
		return model.Grant{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Grant{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := s.saleRepo.WithTx(tx).DeleteByGrant(ctx, grantID); err != nil {
		return model.Grant{}, err
	}
	if err := s.grantRepo.WithTx(tx).DeleteGrant(ctx, grantID); err != nil {
		return model.Grant{}, err
	}

	note := fmt.Sprintf("Deleted grant from %s with %d unsold options",
		repository.FormatDate(grant.GrantDate), grant.QuantityRemaining())
	if err := s.evolutionService.UpsertWithTx(ctx, tx, time.Now().UTC(), note); err != nil {
		return model.Grant{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Grant{}, fmt.Errorf("failed to commit deletion: %w", err)
	}

	return grant, nil
}

// GetGrant retrieves a single grant by ID.
func (s *GrantService) GetGrant(grantID string) (model.Grant, error) {
	return s.grantRepo.GetGrant(grantID)
}

// GetGrantHistory retrieves all grants, most recently created first.
func (s *GrantService) GetGrantHistory() ([]model.Grant, error) {
	return s.grantRepo.GetAllGrants()
}
