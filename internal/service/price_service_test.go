package service_test

import (
	"context"
	"testing"

	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/pricefeed"
	"github.com/optionfolio/backend/internal/repository"
	"github.com/optionfolio/backend/internal/service"
	"github.com/optionfolio/backend/internal/testutil"
)

func TestResolvePrice(t *testing.T) {
	grantDate := testutil.Date("2024-01-10")

	t.Run("exact match", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPriceService(t, db)
		testutil.CreateObservation(t, db, 25, "2024-01-10", "2024-03-01", 12.5)

		resolution, err := svc.ResolvePrice(context.Background(), 25, grantDate, testutil.Date("2024-03-01"))
		if err != nil {
			t.Fatalf("ResolvePrice failed: %v", err)
		}
		if resolution.MatchType != model.MatchExact || resolution.Price != 12.5 {
			t.Errorf("expected exact 12.5, got %s %v", resolution.MatchType, resolution.Price)
		}
	})

	t.Run("nearest before and after", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPriceService(t, db)
		testutil.CreateObservation(t, db, 25, "2024-01-10", "2024-03-01", 12)
		testutil.CreateObservation(t, db, 25, "2024-01-10", "2024-03-10", 13)

		resolution, err := svc.ResolvePrice(context.Background(), 25, grantDate, testutil.Date("2024-03-03"))
		if err != nil {
			t.Fatalf("ResolvePrice failed: %v", err)
		}
		if resolution.MatchType != model.MatchNearestBefore || resolution.Price != 12 {
			t.Errorf("expected nearest_before 12, got %s %v", resolution.MatchType, resolution.Price)
		}

		resolution, err = svc.ResolvePrice(context.Background(), 25, grantDate, testutil.Date("2024-03-08"))
		if err != nil {
			t.Fatalf("ResolvePrice failed: %v", err)
		}
		if resolution.MatchType != model.MatchNearestAfter || resolution.Price != 13 {
			t.Errorf("expected nearest_after 13, got %s %v", resolution.MatchType, resolution.Price)
		}
	})

	t.Run("equidistant tie goes to the earlier date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPriceService(t, db)
		testutil.CreateObservation(t, db, 25, "2024-01-10", "2024-03-01", 12)
		testutil.CreateObservation(t, db, 25, "2024-01-10", "2024-03-05", 13)

		resolution, err := svc.ResolvePrice(context.Background(), 25, grantDate, testutil.Date("2024-03-03"))
		if err != nil {
			t.Fatalf("ResolvePrice failed: %v", err)
		}
		if resolution.MatchType != model.MatchNearestBefore || resolution.Price != 12 {
			t.Errorf("expected the earlier observation, got %s %v", resolution.MatchType, resolution.Price)
		}
	})

	t.Run("no observations is unavailable, not an error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPriceService(t, db)

		resolution, err := svc.ResolvePrice(context.Background(), 25, grantDate, testutil.Date("2024-03-01"))
		if err != nil {
			t.Fatalf("ResolvePrice failed: %v", err)
		}
		if resolution.MatchType != model.MatchUnavailable || resolution.Price != 0 {
			t.Errorf("expected unavailable at price 0, got %s %v", resolution.MatchType, resolution.Price)
		}
	})

	t.Run("grant date derivation rounds to ten and persists", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPriceService(t, db)
		testutil.CreateObservation(t, db, 25, "2024-01-10", "2024-01-11", 50.41)

		resolution, err := svc.ResolvePrice(context.Background(), 25, grantDate, grantDate)
		if err != nil {
			t.Fatalf("ResolvePrice failed: %v", err)
		}
		if resolution.MatchType != model.MatchDerived || resolution.Price != 50 {
			t.Errorf("expected derived 50, got %s %v", resolution.MatchType, resolution.Price)
		}
		if repository.FormatDate(resolution.SourceDate) != "2024-01-11" {
			t.Errorf("expected source date of the originating observation, got %v", resolution.SourceDate)
		}

		// The derived value is now a stored observation, so the same
		// resolution repeated is exact and deterministic.
		resolution, err = svc.ResolvePrice(context.Background(), 25, grantDate, grantDate)
		if err != nil {
			t.Fatalf("ResolvePrice failed: %v", err)
		}
		if resolution.MatchType != model.MatchExact || resolution.Price != 50 {
			t.Errorf("expected exact 50 on re-resolution, got %s %v", resolution.MatchType, resolution.Price)
		}
	})

	t.Run("grant date with only earlier observations is unavailable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPriceService(t, db)
		testutil.CreateObservation(t, db, 25, "2024-01-10", "2024-01-05", 48)

		resolution, err := svc.ResolvePrice(context.Background(), 25, grantDate, grantDate)
		if err != nil {
			t.Fatalf("ResolvePrice failed: %v", err)
		}
		if resolution.MatchType != model.MatchUnavailable {
			t.Errorf("expected unavailable, got %s", resolution.MatchType)
		}
	})
}

func TestBulkIngest(t *testing.T) {
	t.Run("fans records out to every matching grant identity", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPriceService(t, db)

		testutil.NewGrant().WithGrantDate("2024-01-10").WithExerciseReference(25).Build(t, db)
		testutil.NewGrant().WithGrantDate("2024-03-01").WithExerciseReference(25).Build(t, db)
		testutil.NewGrant().WithGrantDate("2024-01-10").WithExerciseReference(30).Build(t, db)

		inserted, err := svc.BulkIngest(context.Background(), []model.PriceRecord{
			{FundName: "Test Fund", ExerciseReference: 25, PriceDate: "2024-06-01", Value: 12},
			{FundName: "Other Fund", ExerciseReference: 99, PriceDate: "2024-06-01", Value: 5},
		})
		if err != nil {
			t.Fatalf("BulkIngest failed: %v", err)
		}
		if inserted != 2 {
			t.Errorf("expected 2 observations (both identities on reference 25), got %d", inserted)
		}

		first, err := svc.GetPriceHistory(25, testutil.Date("2024-01-10"))
		if err != nil {
			t.Fatalf("GetPriceHistory failed: %v", err)
		}
		second, err := svc.GetPriceHistory(25, testutil.Date("2024-03-01"))
		if err != nil {
			t.Fatalf("GetPriceHistory failed: %v", err)
		}
		if len(first) != 1 || len(second) != 1 {
			t.Errorf("expected one observation per identity, got %d/%d", len(first), len(second))
		}
	})

	t.Run("existing observations are never overwritten", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPriceService(t, db)

		testutil.NewGrant().Build(t, db) // reference 25, grant date 2024-01-10
		testutil.CreateObservation(t, db, 25, "2024-01-10", "2024-06-01", 12)

		inserted, err := svc.BulkIngest(context.Background(), []model.PriceRecord{
			{ExerciseReference: 25, PriceDate: "2024-06-01", Value: 99},
		})
		if err != nil {
			t.Fatalf("BulkIngest failed: %v", err)
		}
		if inserted != 0 {
			t.Errorf("expected no new observations, got %d", inserted)
		}

		history, err := svc.GetPriceHistory(25, testutil.Date("2024-01-10"))
		if err != nil {
			t.Fatalf("GetPriceHistory failed: %v", err)
		}
		if len(history) != 1 || history[0].Value != 12 {
			t.Errorf("expected original value kept, got %+v", history)
		}
	})

	t.Run("records with no matching grant are skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestPriceService(t, db)

		inserted, err := svc.BulkIngest(context.Background(), []model.PriceRecord{
			{ExerciseReference: 25, PriceDate: "2024-06-01", Value: 12},
		})
		if err != nil {
			t.Fatalf("BulkIngest failed: %v", err)
		}
		if inserted != 0 {
			t.Errorf("expected nothing stored without grants, got %d", inserted)
		}
	})
}

func TestRefreshAll(t *testing.T) {
	db := testutil.SetupTestDB(t)

	grant := testutil.NewGrant().Build(t, db)
	unlisted := testutil.NewGrant().WithExerciseReference(40).Build(t, db)

	feed := testutil.NewMockFeedClient().WithListings(pricefeed.Listing{
		FundName:          "Global Equity Fund",
		ExerciseReference: 25,
		PriceDate:         testutil.Today(),
		Value:             14.5,
	})
	svc := testutil.NewTestPriceServiceWithFeed(t, db, feed)

	progress := make(chan service.PriceRefreshProgress, 8)
	result, err := svc.RefreshAll(context.Background(), progress)
	if err != nil {
		t.Fatalf("RefreshAll failed: %v", err)
	}
	close(progress)

	if result.GrantsUpdated != 1 || result.ObservationsInserted != 1 {
		t.Errorf("expected 1 grant updated with 1 observation, got %+v", result)
	}

	events := 0
	for range progress {
		events++
	}
	if events != 2 {
		t.Errorf("expected a progress event per grant, got %d", events)
	}

	stored, err := repository.NewGrantRepository(db).GetGrant(grant.ID)
	if err != nil {
		t.Fatalf("failed to read back grant: %v", err)
	}
	if stored.FundName != "Global Equity Fund" || stored.CurrentValue != 14.5 {
		t.Errorf("expected price cache updated, got %q %v", stored.FundName, stored.CurrentValue)
	}

	untouched, err := repository.NewGrantRepository(db).GetGrant(unlisted.ID)
	if err != nil {
		t.Fatalf("failed to read back grant: %v", err)
	}
	if untouched.CurrentValue != unlisted.CurrentValue {
		t.Errorf("expected unlisted grant untouched, got %v", untouched.CurrentValue)
	}

	snapshot, err := repository.NewEvolutionRepository(db).GetByDate(testutil.Today())
	if err != nil {
		t.Fatalf("expected snapshot for today: %v", err)
	}
	if snapshot.Notes != "- Refreshed prices for 1 of 2 grants" {
		t.Errorf("unexpected snapshot notes: %q", snapshot.Notes)
	}
}

func TestRefreshAllWithoutFeed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestPriceService(t, db)

	if _, err := svc.RefreshAll(context.Background(), nil); err == nil {
		t.Error("expected an error without a configured feed")
	}
}

func TestBackfill(t *testing.T) {
	db := testutil.SetupTestDB(t)

	testutil.NewGrant().WithExerciseReference(25).Build(t, db)
	testutil.NewGrant().WithGrantDate("2024-02-01").WithExerciseReference(30).Build(t, db)
	testutil.CreateObservation(t, db, 25, "2024-01-10", "2024-05-01", 11)

	feed := testutil.NewMockFeedClient().
		WithHistory(25,
			pricefeed.HistoryPoint{PriceDate: "2024-05-01", Value: 11},
			pricefeed.HistoryPoint{PriceDate: "2024-05-02", Value: 11.5},
		).
		WithHistory(30,
			pricefeed.HistoryPoint{PriceDate: "2024-05-01", Value: 8},
		)
	svc := testutil.NewTestPriceServiceWithFeed(t, db, feed)

	inserted, err := svc.Backfill(context.Background())
	if err != nil {
		t.Fatalf("Backfill failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("expected 2 new observations (one already stored), got %d", inserted)
	}
	if feed.HistoryCount != 2 {
		t.Errorf("expected one history fetch per reference, got %d", feed.HistoryCount)
	}
}
