package pricefeed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/optionfolio/backend/internal/pricefeed"
	"github.com/optionfolio/backend/internal/testutil"
)

func TestListingCache(t *testing.T) {
	listing := pricefeed.Listing{FundName: "Test Fund", ExerciseReference: 25, PriceDate: "2024-06-01", Value: 12}

	t.Run("serves cached data within the TTL", func(t *testing.T) {
		cache := pricefeed.NewListingCache(time.Hour)
		feed := testutil.NewMockFeedClient().WithListings(listing)

		for i := 0; i < 3; i++ {
			listings, err := cache.Refresh(context.Background(), feed)
			if err != nil {
				t.Fatalf("Refresh failed: %v", err)
			}
			if len(listings) != 1 || listings[0] != listing {
				t.Fatalf("unexpected listings: %+v", listings)
			}
		}
		if feed.ListingsCount != 1 {
			t.Errorf("expected one provider fetch, got %d", feed.ListingsCount)
		}
	})

	t.Run("expired cache refetches", func(t *testing.T) {
		cache := pricefeed.NewListingCache(0)
		feed := testutil.NewMockFeedClient().WithListings(listing)

		for i := 0; i < 2; i++ {
			if _, err := cache.Refresh(context.Background(), feed); err != nil {
				t.Fatalf("Refresh failed: %v", err)
			}
		}
		if feed.ListingsCount != 2 {
			t.Errorf("expected a fetch per expired refresh, got %d", feed.ListingsCount)
		}
	})

	t.Run("invalidate forces the next fetch", func(t *testing.T) {
		cache := pricefeed.NewListingCache(time.Hour)
		feed := testutil.NewMockFeedClient().WithListings(listing)

		if _, err := cache.Refresh(context.Background(), feed); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		cache.Invalidate()
		if !cache.IsExpired() {
			t.Error("expected cache expired after invalidation")
		}
		if _, err := cache.Refresh(context.Background(), feed); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if feed.ListingsCount != 2 {
			t.Errorf("expected refetch after invalidation, got %d fetches", feed.ListingsCount)
		}
	})

	t.Run("fetch errors are not cached", func(t *testing.T) {
		cache := pricefeed.NewListingCache(time.Hour)
		feed := testutil.NewMockFeedClient().WithError(errors.New("provider down"))

		if _, err := cache.Refresh(context.Background(), feed); err == nil {
			t.Fatal("expected an error from the provider")
		}

		feed.MockError = nil
		feed.MockListings = []pricefeed.Listing{listing}
		listings, err := cache.Refresh(context.Background(), feed)
		if err != nil {
			t.Fatalf("Refresh failed after recovery: %v", err)
		}
		if len(listings) != 1 {
			t.Errorf("expected listings after recovery, got %d", len(listings))
		}
	})
}
