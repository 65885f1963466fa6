package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/repository"
)

// EvolutionService maintains the evolution timeline: one aggregated valuation
// snapshot per calendar day, updated idempotently as a side effect of every
// mutating operation. Numeric fields always hold the latest computed totals
// (last writer wins); notes accumulate as deduplicated bullet lines.
type EvolutionService struct {
	db            *sql.DB
	evolutionRepo *repository.EvolutionRepository
	grantRepo     *repository.GrantRepository
	saleRepo      *repository.SaleRepository
	priceRepo     *repository.PriceRepository
	settingRepo   *repository.SettingRepository
}

// NewEvolutionService creates a new EvolutionService with the provided repository dependencies.
func NewEvolutionService(
	db *sql.DB,
	evolutionRepo *repository.EvolutionRepository,
	grantRepo *repository.GrantRepository,
	saleRepo *repository.SaleRepository,
	priceRepo *repository.PriceRepository,
	settingRepo *repository.SettingRepository,
) *EvolutionService {
	return &EvolutionService{
		db:            db,
		evolutionRepo: evolutionRepo,
		grantRepo:     grantRepo,
		saleRepo:      saleRepo,
		priceRepo:     priceRepo,
		settingRepo:   settingRepo,
	}
}

// identityKey builds the in-memory map key for an option identity.
func identityKey(exerciseReference float64, grantDate time.Time) string {
	return fmt.Sprintf("%.4f|%s", exerciseReference, grantDate.UTC().Format("2006-01-02"))
}

// UpsertWithTx writes the snapshot for the given date inside the caller's
// transaction. It recomputes all totals from the grants, sales and prices
// visible in the transaction, so a rolled-back operation leaves no snapshot
// with incomplete numbers behind.
//
// An existing snapshot gets the new note appended as a bullet line, skipped
// when the exact text is already present. Numeric fields are always replaced.
func (s *EvolutionService) UpsertWithTx(ctx context.Context, tx *sql.Tx, date time.Time, note string) error {
	evolutionRepo := s.evolutionRepo.WithTx(tx)

	totals, err := s.computeTotals(
		s.grantRepo.WithTx(tx),
		s.saleRepo.WithTx(tx),
		s.priceRepo.WithTx(tx),
		s.settingRepo.WithTx(tx),
	)
	if err != nil {
		return fmt.Errorf("failed to compute portfolio totals: %w", err)
	}

	return s.writeSnapshot(ctx, evolutionRepo, date, note, totals)
}

// writeSnapshot applies the create-or-append policy for one snapshot date.
func (s *EvolutionService) writeSnapshot(
	ctx context.Context,
	evolutionRepo *repository.EvolutionRepository,
	date time.Time,
	note string,
	totals model.PortfolioTotals,
) error {
	dateStr := repository.FormatDate(date)

	existing, err := evolutionRepo.GetByDate(dateStr)
	if errors.Is(err, apperrors.ErrSnapshotNotFound) {
		snapshot := model.EvolutionSnapshot{
			ID:                  uuid.New().String(),
			SnapshotDate:        date.UTC(),
			TotalPortfolioValue: totals.TotalPortfolioValue,
			TotalUnrealizedGain: totals.TotalUnrealizedGain,
			TotalRealizedGain:   totals.TotalRealizedGain,
			TotalOptionsCount:   totals.TotalOptionsCount,
			ActiveOptionsCount:  totals.ActiveOptionsCount,
		}
		if note != "" {
			snapshot.Notes = "- " + note
		}
		return evolutionRepo.InsertSnapshot(ctx, &snapshot)
	}
	if err != nil {
		return err
	}

	existing.TotalPortfolioValue = totals.TotalPortfolioValue
	existing.TotalUnrealizedGain = totals.TotalUnrealizedGain
	existing.TotalRealizedGain = totals.TotalRealizedGain
	existing.TotalOptionsCount = totals.TotalOptionsCount
	existing.ActiveOptionsCount = totals.ActiveOptionsCount
	existing.Notes = appendNote(existing.Notes, note)

	return evolutionRepo.UpdateSnapshot(ctx, &existing)
}

// appendNote adds a bullet line for note to the existing notes, unless the
// byte-identical line is already present. An empty note leaves notes as-is.
func appendNote(notes, note string) string {
	if note == "" {
		return notes
	}

	bullet := "- " + note
	for _, line := range strings.Split(notes, "\n") {
		if line == bullet {
			return notes
		}
	}

	if notes == "" {
		return bullet
	}
	return notes + "\n" + bullet
}

// computeTotals aggregates the current portfolio figures. This is the single
// computation every snapshot trigger goes through:
//
//   - total value: sum over grants with unsold quantity of
//     remaining x latest known price (price store first, the grant's cached
//     current_value as fallback)
//   - unrealized gain: remaining x (latest price - unit cost)
//   - realized gain: sum of realized gain/loss over all recorded sales
//   - counts: all grants / grants with unsold quantity
func (s *EvolutionService) computeTotals(
	grantRepo *repository.GrantRepository,
	saleRepo *repository.SaleRepository,
	priceRepo *repository.PriceRepository,
	settingRepo *repository.SettingRepository,
) (model.PortfolioTotals, error) {
	grants, err := grantRepo.GetAllGrants()
	if err != nil {
		return model.PortfolioTotals{}, err
	}

	latest, err := priceRepo.GetLatestObservations()
	if err != nil {
		return model.PortfolioTotals{}, err
	}
	latestByIdentity := make(map[string]model.PriceObservation, len(latest))
	for _, o := range latest {
		latestByIdentity[identityKey(o.ExerciseReference, o.GrantDate)] = o
	}

	sales, err := saleRepo.GetAllSales()
	if err != nil {
		return model.PortfolioTotals{}, err
	}

	unitCost, err := settingFloat(settingRepo, model.SettingUnitCost, DefaultUnitCost)
	if err != nil {
		return model.PortfolioTotals{}, err
	}

	var totals model.PortfolioTotals
	totals.TotalOptionsCount = len(grants)

	for _, g := range grants {
		remaining := g.QuantityRemaining()
		if remaining <= 0 {
			continue
		}
		totals.ActiveOptionsCount++

		price := g.CurrentValue
		if o, ok := latestByIdentity[identityKey(g.ExerciseReference, g.GrantDate)]; ok {
			price = o.Value
		}

		totals.TotalPortfolioValue += float64(remaining) * price
		totals.TotalUnrealizedGain += float64(remaining) * (price - unitCost)
	}

	for _, sale := range sales {
		totals.TotalRealizedGain += sale.RealizedGainLoss
	}

	totals.TotalPortfolioValue = round(totals.TotalPortfolioValue)
	totals.TotalUnrealizedGain = round(totals.TotalUnrealizedGain)
	totals.TotalRealizedGain = round(totals.TotalRealizedGain)

	return totals, nil
}

// settingFloat reads a numeric setting through a possibly tx-bound repository.
func settingFloat(settingRepo *repository.SettingRepository, key string, fallback float64) (float64, error) {
	setting, err := settingRepo.Get(key)
	if errors.Is(err, apperrors.ErrSettingNotFound) {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}

	var value float64
	if _, err := fmt.Sscanf(setting.Value, "%f", &value); err != nil {
		return 0, fmt.Errorf("setting %s holds a non-numeric value %q: %w", key, setting.Value, err)
	}
	return value, nil
}

// GetEvolution retrieves snapshots for the trailing daysWindow days, oldest
// first. A zero or negative window returns the whole timeline.
func (s *EvolutionService) GetEvolution(daysWindow int) ([]model.EvolutionSnapshot, error) {
	startDate := ""
	if daysWindow > 0 {
		startDate = repository.FormatDate(time.Now().UTC().AddDate(0, 0, -daysWindow))
	}
	return s.evolutionRepo.GetWindow(startDate)
}

// Rebuild recomputes the numeric fields of every snapshot from fromDate to
// today, creating missing dates along the way. Notes are preserved untouched:
// the rebuild replays valuations, it does not re-announce events.
//
// A zero fromDate starts at the earliest grant date. The whole rebuild runs
// in one transaction so a failure leaves the timeline as it was.
func (s *EvolutionService) Rebuild(ctx context.Context, fromDate time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	grantRepo := s.grantRepo.WithTx(tx)
	saleRepo := s.saleRepo.WithTx(tx)
	priceRepo := s.priceRepo.WithTx(tx)
	settingRepo := s.settingRepo.WithTx(tx)
	evolutionRepo := s.evolutionRepo.WithTx(tx)

	grants, err := grantRepo.GetAllGrants()
	if err != nil {
		return 0, err
	}
	if len(grants) == 0 {
		return 0, tx.Commit()
	}

	sales, err := saleRepo.GetAllSales()
	if err != nil {
		return 0, err
	}
	observations, err := priceRepo.GetAllObservations()
	if err != nil {
		return 0, err
	}
	unitCost, err := settingFloat(settingRepo, model.SettingUnitCost, DefaultUnitCost)
	if err != nil {
		return 0, err
	}

	start := fromDate
	if start.IsZero() {
		for _, g := range grants {
			if start.IsZero() || g.GrantDate.Before(start) {
				start = g.GrantDate
			}
		}
	}
	start = start.UTC().Truncate(24 * time.Hour)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if start.After(today) {
		return 0, tx.Commit()
	}

	salesByGrant := make(map[string][]model.SaleTransaction)
	for _, sale := range sales {
		salesByGrant[sale.GrantID] = append(salesByGrant[sale.GrantID], sale)
	}
	observationsByIdentity := make(map[string][]model.PriceObservation)
	for _, o := range observations {
		key := identityKey(o.ExerciseReference, o.GrantDate)
		observationsByIdentity[key] = append(observationsByIdentity[key], o)
	}

	written := 0
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		totals := computeTotalsAsOf(d, grants, salesByGrant, observationsByIdentity, unitCost)
		if err := s.writeSnapshot(ctx, evolutionRepo, d, "", totals); err != nil {
			return 0, fmt.Errorf("failed to rebuild snapshot for %s: %w", repository.FormatDate(d), err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit rebuild: %w", err)
	}

	return written, nil
}

// computeTotalsAsOf replays the portfolio state as of the end of day d.
// Remaining quantities count only sales dated on or before d; the price used
// is the last observation on or before d, with the grant's cached value as
// fallback when the identity has no observation yet.
func computeTotalsAsOf(
	d time.Time,
	grants []model.Grant,
	salesByGrant map[string][]model.SaleTransaction,
	observationsByIdentity map[string][]model.PriceObservation,
	unitCost float64,
) model.PortfolioTotals {
	var totals model.PortfolioTotals

	for _, g := range grants {
		if g.GrantDate.After(d) {
			continue
		}
		totals.TotalOptionsCount++

		sold := 0
		for _, sale := range salesByGrant[g.ID] {
			if !sale.SaleDate.After(d) {
				sold += sale.QuantitySold
				totals.TotalRealizedGain += sale.RealizedGainLoss
			}
		}

		remaining := g.Quantity - sold
		if remaining <= 0 {
			continue
		}
		totals.ActiveOptionsCount++

		price := g.CurrentValue
		for _, o := range observationsByIdentity[identityKey(g.ExerciseReference, g.GrantDate)] {
			if o.PriceDate.After(d) {
				break
			}
			price = o.Value
		}

		totals.TotalPortfolioValue += float64(remaining) * price
		totals.TotalUnrealizedGain += float64(remaining) * (price - unitCost)
	}

	totals.TotalPortfolioValue = round(totals.TotalPortfolioValue)
	totals.TotalUnrealizedGain = round(totals.TotalUnrealizedGain)
	totals.TotalRealizedGain = round(totals.TotalRealizedGain)

	return totals
}
