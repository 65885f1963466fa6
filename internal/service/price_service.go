package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/pricefeed"
	"github.com/optionfolio/backend/internal/repository"
)

// backfillConcurrency bounds parallel history fetches against the provider.
const backfillConcurrency = 4

// PriceService owns the price store and its resolution rules. Fetching from
// the provider may fan out, but every persistence write funnels through the
// service's write lock so concurrent refreshes cannot interleave snapshot
// upserts for the same date.
type PriceService struct {
	db               *sql.DB
	priceRepo        *repository.PriceRepository
	grantRepo        *repository.GrantRepository
	evolutionService *EvolutionService
	feed             pricefeed.Client
	listings         *pricefeed.ListingCache

	// writeMu serializes all mutating operations on the price store.
	writeMu sync.Mutex
}

// NewPriceService creates a new PriceService. The feed client and listing
// cache may be nil when the deployment has no provider configured; refresh
// and backfill then return an error while resolution and ingestion work.
func NewPriceService(
	db *sql.DB,
	priceRepo *repository.PriceRepository,
	grantRepo *repository.GrantRepository,
	evolutionService *EvolutionService,
	feed pricefeed.Client,
	listings *pricefeed.ListingCache,
) *PriceService {
	return &PriceService{
		db:               db,
		priceRepo:        priceRepo,
		grantRepo:        grantRepo,
		evolutionService: evolutionService,
		feed:             feed,
		listings:         listings,
	}
}

// ResolvePrice returns the best available price for an option identity at a
// target date.
//
//   - exact: an observation exists at the target date
//   - nearest-before / nearest-after: the observation with minimal absolute
//     date distance; on a tie the earlier date wins
//   - derived: only when resolving the grant date itself with no observation
//     there. The earliest observation strictly after the grant date is rounded
//     to the nearest multiple of 10 and persisted back as a first-class
//     observation, so the next resolution is exact.
//   - unavailable: no usable observation at all. This is a valid empty result
//     with price zero, not an error.
func (s *PriceService) ResolvePrice(ctx context.Context, exerciseReference float64, grantDate, targetDate time.Time) (model.PriceResolution, error) {
	observations, err := s.priceRepo.GetObservations(exerciseReference, repository.FormatDate(grantDate))
	if err != nil {
		return model.PriceResolution{}, err
	}

	targetStr := repository.FormatDate(targetDate)
	for _, o := range observations {
		if repository.FormatDate(o.PriceDate) == targetStr {
			return model.PriceResolution{Price: o.Value, MatchType: model.MatchExact, SourceDate: o.PriceDate}, nil
		}
	}

	if targetStr == repository.FormatDate(grantDate) {
		return s.deriveGrantDatePrice(ctx, exerciseReference, grantDate, observations)
	}

	if len(observations) == 0 {
		return model.PriceResolution{MatchType: model.MatchUnavailable}, nil
	}

	best := observations[0]
	bestDistance := absDays(best.PriceDate, targetDate)
	for _, o := range observations[1:] {
		// Strictly-less keeps the earlier observation on equidistant dates,
		// since observations arrive ordered by price date ascending.
		if d := absDays(o.PriceDate, targetDate); d < bestDistance {
			best = o
			bestDistance = d
		}
	}

	matchType := model.MatchNearestBefore
	if best.PriceDate.After(targetDate) {
		matchType = model.MatchNearestAfter
	}
	return model.PriceResolution{Price: best.Value, MatchType: matchType, SourceDate: best.PriceDate}, nil
}

// deriveGrantDatePrice synthesizes a grant-date price from the earliest
// observation strictly after the grant date, rounded to the nearest multiple
// of 10. The derived value is stored as a regular observation dated at the
// grant date.
func (s *PriceService) deriveGrantDatePrice(ctx context.Context, exerciseReference float64, grantDate time.Time, observations []model.PriceObservation) (model.PriceResolution, error) {
	grantDateStr := repository.FormatDate(grantDate)

	var source *model.PriceObservation
	for i := range observations {
		if repository.FormatDate(observations[i].PriceDate) > grantDateStr {
			source = &observations[i]
			break
		}
	}
	if source == nil {
		return model.PriceResolution{MatchType: model.MatchUnavailable}, nil
	}

	derived := model.PriceObservation{
		ID:                uuid.New().String(),
		FundName:          source.FundName,
		ExerciseReference: exerciseReference,
		GrantDate:         grantDate.UTC(),
		PriceDate:         grantDate.UTC(),
		Value:             roundToTen(source.Value),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.priceRepo.InsertObservations(ctx, []model.PriceObservation{derived}); err != nil {
		return model.PriceResolution{}, fmt.Errorf("failed to persist derived price: %w", err)
	}

	return model.PriceResolution{Price: derived.Value, MatchType: model.MatchDerived, SourceDate: source.PriceDate}, nil
}

// absDays returns the absolute distance between two dates in whole days.
func absDays(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// GetPriceHistory retrieves all observations for an option identity, oldest
// first.
func (s *PriceService) GetPriceHistory(exerciseReference float64, grantDate time.Time) ([]model.PriceObservation, error) {
	return s.priceRepo.GetObservations(exerciseReference, repository.FormatDate(grantDate))
}

// BulkIngest stores a batch of raw price records from the provider or a CSV
// import. Records carry no grant date, so each one fans out to every grant
// identity sharing its exercise reference; records matching no grant are
// skipped. Existing observations are never overwritten. One snapshot upsert
// for today covers the whole batch.
func (s *PriceService) BulkIngest(ctx context.Context, records []model.PriceRecord) (int, error) {
	grants, err := s.grantRepo.GetAllGrants()
	if err != nil {
		return 0, err
	}

	observations, err := expandRecords(records, grants)
	if err != nil {
		return 0, err
	}
	if len(observations) == 0 {
		return 0, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	inserted, err := s.priceRepo.WithTx(tx).InsertObservations(ctx, observations)
	if err != nil {
		return 0, err
	}

	note := fmt.Sprintf("Ingested %d price observations", inserted)
	if err := s.evolutionService.UpsertWithTx(ctx, tx, time.Now().UTC(), note); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit price ingestion: %w", err)
	}

	return inserted, nil
}

// expandRecords maps raw price records onto the grant identities that can use
// them, deduplicating on the observation's unique key.
func expandRecords(records []model.PriceRecord, grants []model.Grant) ([]model.PriceObservation, error) {
	identitiesByReference := make(map[float64][]time.Time)
	seenIdentity := make(map[string]bool)
	for _, g := range grants {
		key := identityKey(g.ExerciseReference, g.GrantDate)
		if seenIdentity[key] {
			continue
		}
		seenIdentity[key] = true
		identitiesByReference[g.ExerciseReference] = append(identitiesByReference[g.ExerciseReference], g.GrantDate)
	}

	observations := []model.PriceObservation{}
	seen := make(map[string]bool)
	for _, record := range records {
		priceDate, err := repository.ParseTime(record.PriceDate)
		if err != nil {
			return nil, fmt.Errorf("invalid price date %q: %w", record.PriceDate, err)
		}

		for _, grantDate := range identitiesByReference[record.ExerciseReference] {
			key := identityKey(record.ExerciseReference, grantDate) + "|" + repository.FormatDate(priceDate)
			if seen[key] {
				continue
			}
			seen[key] = true

			observations = append(observations, model.PriceObservation{
				ID:                uuid.New().String(),
				FundName:          record.FundName,
				ExerciseReference: record.ExerciseReference,
				GrantDate:         grantDate,
				PriceDate:         priceDate,
				Value:             record.Value,
			})
		}
	}

	return observations, nil
}

// PriceRefreshProgress is one progress event during a bulk refresh.
type PriceRefreshProgress struct {
	Current           int     `json:"current"`
	Total             int     `json:"total"`
	FundName          string  `json:"fundName"`
	ExerciseReference float64 `json:"exerciseReference"`
}

// PriceRefreshResult summarizes a completed bulk refresh.
type PriceRefreshResult struct {
	GrantsUpdated        int `json:"grantsUpdated"`
	ObservationsInserted int `json:"observationsInserted"`
}

// RefreshAll updates every grant's price from the provider's current
// listings. The listings fetch goes through the TTL cache; all writes happen
// in one transaction, including the grants' denormalized price caches and a
// single snapshot for today.
//
// Progress events are sent on the optional channel as each grant is
// processed; a nil channel disables reporting. The channel is not closed by
// this method.
func (s *PriceService) RefreshAll(ctx context.Context, progress chan<- PriceRefreshProgress) (PriceRefreshResult, error) {
	if s.feed == nil {
		return PriceRefreshResult{}, fmt.Errorf("no price feed configured")
	}

	listings, err := s.listings.Refresh(ctx, s.feed)
	if err != nil {
		return PriceRefreshResult{}, err
	}
	listingByReference := make(map[float64]pricefeed.Listing, len(listings))
	for _, l := range listings {
		listingByReference[l.ExerciseReference] = l
	}

	grants, err := s.grantRepo.GetAllGrants()
	if err != nil {
		return PriceRefreshResult{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PriceRefreshResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	priceRepo := s.priceRepo.WithTx(tx)
	grantRepo := s.grantRepo.WithTx(tx)

	var result PriceRefreshResult
	for i, g := range grants {
		if progress != nil {
			progress <- PriceRefreshProgress{
				Current:           i + 1,
				Total:             len(grants),
				FundName:          g.FundName,
				ExerciseReference: g.ExerciseReference,
			}
		}

		listing, ok := listingByReference[g.ExerciseReference]
		if !ok {
			continue
		}

		priceDate, err := repository.ParseTime(listing.PriceDate)
		if err != nil {
			log.Printf("skipping listing for reference %g: bad price date %q", g.ExerciseReference, listing.PriceDate)
			continue
		}

		inserted, err := priceRepo.InsertObservations(ctx, []model.PriceObservation{{
			ID:                uuid.New().String(),
			FundName:          listing.FundName,
			ExerciseReference: g.ExerciseReference,
			GrantDate:         g.GrantDate,
			PriceDate:         priceDate,
			Value:             listing.Value,
		}})
		if err != nil {
			return PriceRefreshResult{}, err
		}
		result.ObservationsInserted += inserted

		if err := grantRepo.UpdatePriceCache(ctx, g.ID, listing.FundName, listing.Value); err != nil {
			return PriceRefreshResult{}, err
		}
		result.GrantsUpdated++
	}

	note := fmt.Sprintf("Refreshed prices for %d of %d grants", result.GrantsUpdated, len(grants))
	if err := s.evolutionService.UpsertWithTx(ctx, tx, time.Now().UTC(), note); err != nil {
		return PriceRefreshResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return PriceRefreshResult{}, fmt.Errorf("failed to commit price refresh: %w", err)
	}

	return result, nil
}

// Backfill fetches the full quote history for every distinct exercise
// reference held by a grant and stores whatever is missing. History fetches
// run with bounded parallelism; all resulting writes happen serially in one
// transaction. Returns the number of newly stored observations.
func (s *PriceService) Backfill(ctx context.Context) (int, error) {
	if s.feed == nil {
		return 0, fmt.Errorf("no price feed configured")
	}

	grants, err := s.grantRepo.GetAllGrants()
	if err != nil {
		return 0, err
	}

	references := make([]float64, 0)
	seen := make(map[float64]bool)
	for _, g := range grants {
		if !seen[g.ExerciseReference] {
			seen[g.ExerciseReference] = true
			references = append(references, g.ExerciseReference)
		}
	}
	sort.Float64s(references)
	if len(references) == 0 {
		return 0, nil
	}

	// Fetch phase fans out; each goroutine writes only its own slot.
	histories := make([][]pricefeed.HistoryPoint, len(references))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(backfillConcurrency)
	for i, ref := range references {
		group.Go(func() error {
			points, err := s.feed.History(groupCtx, ref)
			if err != nil {
				return err
			}
			histories[i] = points
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}

	records := []model.PriceRecord{}
	for i, ref := range references {
		for _, p := range histories[i] {
			records = append(records, model.PriceRecord{
				ExerciseReference: ref,
				PriceDate:         p.PriceDate,
				Value:             p.Value,
			})
		}
	}

	return s.BulkIngest(ctx, records)
}
