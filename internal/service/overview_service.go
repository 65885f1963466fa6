package service

import (
	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/repository"
)

// OverviewService builds the joined portfolio view: every grant with its
// latest price, computed profit/loss and selling status. It reads only; no
// snapshot is written by an overview request.
type OverviewService struct {
	grantRepo      *repository.GrantRepository
	saleRepo       *repository.SaleRepository
	priceRepo      *repository.PriceRepository
	settingService *SettingService
}

// NewOverviewService creates a new OverviewService with the provided dependencies.
func NewOverviewService(
	grantRepo *repository.GrantRepository,
	saleRepo *repository.SaleRepository,
	priceRepo *repository.PriceRepository,
	settingService *SettingService,
) *OverviewService {
	return &OverviewService{
		grantRepo:      grantRepo,
		saleRepo:       saleRepo,
		priceRepo:      priceRepo,
		settingService: settingService,
	}
}

// GetPortfolioOverview returns all grants joined with their latest prices and
// aggregate totals. Prices come from the price store; a grant whose identity
// has no observation falls back to its cached value, and PriceAvailable tells
// the caller to render "N/A" instead of a stale number.
func (s *OverviewService) GetPortfolioOverview() (model.PortfolioOverview, error) {
	grants, err := s.grantRepo.GetAllGrants()
	if err != nil {
		return model.PortfolioOverview{}, err
	}

	latest, err := s.priceRepo.GetLatestObservations()
	if err != nil {
		return model.PortfolioOverview{}, err
	}
	latestByIdentity := make(map[string]model.PriceObservation, len(latest))
	for _, o := range latest {
		latestByIdentity[identityKey(o.ExerciseReference, o.GrantDate)] = o
	}

	sales, err := s.saleRepo.GetAllSales()
	if err != nil {
		return model.PortfolioOverview{}, err
	}
	realizedByGrant := make(map[string]float64)
	for _, sale := range sales {
		realizedByGrant[sale.GrantID] += sale.RealizedGainLoss
	}

	unitCost, err := s.settingService.UnitCost()
	if err != nil {
		return model.PortfolioOverview{}, err
	}
	targetReturn, err := s.settingService.TargetReturnPercent()
	if err != nil {
		return model.PortfolioOverview{}, err
	}

	overview := model.PortfolioOverview{
		Grants:            make([]model.GrantOverview, 0, len(grants)),
		TotalOptionsCount: len(grants),
	}

	for _, g := range grants {
		remaining := g.QuantityRemaining()

		price := g.CurrentValue
		priceAvailable := false
		if o, ok := latestByIdentity[identityKey(g.ExerciseReference, g.GrantDate)]; ok {
			price = o.Value
			priceAvailable = true
		}

		currentValue := round(float64(remaining) * price)
		unrealized := round(float64(remaining) * (price - unitCost))
		realized := round(realizedByGrant[g.ID])

		returnPercent := 0.0
		if unitCost > 0 && priceAvailable {
			returnPercent = round((price - unitCost) / unitCost * 100)
		}

		status := model.SellingStatusHolding
		switch {
		case remaining == 0:
			status = model.SellingStatusSold
		case g.TotalSoldQuantity > 0:
			status = model.SellingStatusPartial
		}

		overview.Grants = append(overview.Grants, model.GrantOverview{
			GrantID:           g.ID,
			GrantDate:         g.GrantDate,
			FundName:          g.FundName,
			ExerciseReference: g.ExerciseReference,
			Quantity:          g.Quantity,
			QuantityRemaining: remaining,
			LatestPrice:       price,
			PriceAvailable:    priceAvailable,
			CurrentValue:      currentValue,
			AmountGranted:     g.AmountGranted,
			Tax:               g.AuthoritativeTax(),
			TaxIsManual:       g.HasManualTax(),
			UnrealizedGain:    unrealized,
			RealizedGain:      realized,
			ReturnPercent:     returnPercent,
			TargetReached:     returnPercent >= targetReturn && priceAvailable,
			SellingStatus:     status,
		})

		if remaining > 0 {
			overview.ActiveOptionsCount++
			overview.TotalPortfolioValue += currentValue
			overview.TotalUnrealizedGain += unrealized
		}
		overview.TotalRealizedGain += realized
	}

	overview.TotalPortfolioValue = round(overview.TotalPortfolioValue)
	overview.TotalUnrealizedGain = round(overview.TotalUnrealizedGain)
	overview.TotalRealizedGain = round(overview.TotalRealizedGain)

	return overview, nil
}
