package service_test

import (
	"testing"

	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/testutil"
)

func TestGetPortfolioOverview(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestOverviewService(t, db)

	// Holding: 100 options, latest observed price 13.
	holding := testutil.NewGrant().Build(t, db)
	testutil.CreateObservation(t, db, 25, "2024-01-10", "2024-06-01", 13)

	// Partially sold: 60 of 100 remaining, realized gain 80. No observation,
	// so its cached value applies.
	partial := testutil.NewGrant().
		WithGrantDate("2024-02-01").
		WithExerciseReference(30).
		WithSoldQuantity(40).
		WithCurrentValue(11).
		Build(t, db)
	testutil.NewSale(partial.ID).Build(t, db)

	// Fully sold: excluded from value and active counts.
	soldOut := testutil.NewGrant().
		WithGrantDate("2023-05-01").
		WithExerciseReference(35).
		WithQuantity(50).
		WithSoldQuantity(50).
		Build(t, db)

	overview, err := svc.GetPortfolioOverview()
	if err != nil {
		t.Fatalf("GetPortfolioOverview failed: %v", err)
	}

	if len(overview.Grants) != 3 {
		t.Fatalf("expected 3 grants, got %d", len(overview.Grants))
	}
	byID := make(map[string]model.GrantOverview, len(overview.Grants))
	for _, g := range overview.Grants {
		byID[g.GrantID] = g
	}

	t.Run("holding grant with observed price", func(t *testing.T) {
		g := byID[holding.ID]
		if g.SellingStatus != model.SellingStatusHolding {
			t.Errorf("expected holding status, got %s", g.SellingStatus)
		}
		if !g.PriceAvailable || g.LatestPrice != 13 {
			t.Errorf("expected observed price 13, got available=%v price=%v", g.PriceAvailable, g.LatestPrice)
		}
		if g.CurrentValue != 1300 || g.UnrealizedGain != 300 {
			t.Errorf("expected value 1300, unrealized 300, got %v/%v", g.CurrentValue, g.UnrealizedGain)
		}
		if g.ReturnPercent != 30 {
			t.Errorf("expected return (13-10)/10 = 30%%, got %v", g.ReturnPercent)
		}
		// Target return defaults to 20%.
		if !g.TargetReached {
			t.Error("expected target reached at 30% return")
		}
	})

	t.Run("partially sold grant falls back to cached value", func(t *testing.T) {
		g := byID[partial.ID]
		if g.SellingStatus != model.SellingStatusPartial {
			t.Errorf("expected partially_sold status, got %s", g.SellingStatus)
		}
		if g.PriceAvailable {
			t.Error("expected no observed price for this identity")
		}
		if g.QuantityRemaining != 60 || g.CurrentValue != 660 {
			t.Errorf("expected 60 remaining worth 660, got %d/%v", g.QuantityRemaining, g.CurrentValue)
		}
		if g.RealizedGain != 80 {
			t.Errorf("expected realized gain 80, got %v", g.RealizedGain)
		}
		// No observed price, so the return stays unreported and the target
		// flag stays off regardless of the cached value.
		if g.ReturnPercent != 0 || g.TargetReached {
			t.Errorf("expected no return without a price, got %v/%v", g.ReturnPercent, g.TargetReached)
		}
	})

	t.Run("fully sold grant", func(t *testing.T) {
		g := byID[soldOut.ID]
		if g.SellingStatus != model.SellingStatusSold {
			t.Errorf("expected fully_sold status, got %s", g.SellingStatus)
		}
		if g.QuantityRemaining != 0 || g.CurrentValue != 0 {
			t.Errorf("expected nothing remaining, got %d/%v", g.QuantityRemaining, g.CurrentValue)
		}
	})

	t.Run("totals count only grants with unsold options", func(t *testing.T) {
		if overview.TotalOptionsCount != 3 || overview.ActiveOptionsCount != 2 {
			t.Errorf("expected 3 total / 2 active, got %d/%d", overview.TotalOptionsCount, overview.ActiveOptionsCount)
		}
		if overview.TotalPortfolioValue != 1960 {
			t.Errorf("expected total value 1300 + 660 = 1960, got %v", overview.TotalPortfolioValue)
		}
		if overview.TotalUnrealizedGain != 360 {
			t.Errorf("expected unrealized 300 + 60 = 360, got %v", overview.TotalUnrealizedGain)
		}
		if overview.TotalRealizedGain != 80 {
			t.Errorf("expected realized 80, got %v", overview.TotalRealizedGain)
		}
	})
}

func TestGetPortfolioOverviewEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestOverviewService(t, db)

	overview, err := svc.GetPortfolioOverview()
	if err != nil {
		t.Fatalf("GetPortfolioOverview failed: %v", err)
	}
	if len(overview.Grants) != 0 || overview.TotalPortfolioValue != 0 {
		t.Errorf("expected empty overview, got %+v", overview)
	}
}
