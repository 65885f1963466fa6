package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/repository"
	"github.com/optionfolio/backend/internal/service"
	"github.com/optionfolio/backend/internal/testutil"
)

func TestRecordSale(t *testing.T) {
	t.Run("partial sale with proportional tax reallocation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)

		// 100 options, unit cost 10, auto tax 300.
		grant := testutil.NewGrant().Build(t, db)

		result, err := svc.RecordSale(context.Background(), service.RecordSaleInput{
			GrantID:      grant.ID,
			SaleDate:     testutil.Date("2024-06-01"),
			QuantitySold: 40,
			SalePrice:    12,
		})
		if err != nil {
			t.Fatalf("RecordSale failed: %v", err)
		}

		if result.TotalSaleValue != 480 {
			t.Errorf("expected total sale value 40 x 12 = 480, got %v", result.TotalSaleValue)
		}
		if result.RealizedGainLoss != 80 {
			t.Errorf("expected realized gain 480 - 400 = 80, got %v", result.RealizedGainLoss)
		}
		if result.TaxAllocated != 120 {
			t.Errorf("expected tax allocated 3 x 40 = 120, got %v", result.TaxAllocated)
		}
		if result.RemainingTax != 180 {
			t.Errorf("expected remaining tax 180, got %v", result.RemainingTax)
		}

		stored, err := repository.NewGrantRepository(db).GetGrant(grant.ID)
		if err != nil {
			t.Fatalf("failed to read back grant: %v", err)
		}
		if stored.QuantityRemaining() != 60 {
			t.Errorf("expected 60 options remaining, got %d", stored.QuantityRemaining())
		}
		if stored.TaxAutoCalculated != 180 {
			t.Errorf("expected auto tax reduced to 180, got %v", stored.TaxAutoCalculated)
		}
	})

	t.Run("manual tax grant reduces the manual figure", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)

		grant := testutil.NewGrant().WithManualTax(200).Build(t, db)

		result, err := svc.RecordSale(context.Background(), service.RecordSaleInput{
			GrantID:      grant.ID,
			SaleDate:     testutil.Date("2024-06-01"),
			QuantitySold: 50,
			SalePrice:    11,
		})
		if err != nil {
			t.Fatalf("RecordSale failed: %v", err)
		}
		if result.TaxAllocated != 100 || result.RemainingTax != 100 {
			t.Errorf("expected 100 allocated / 100 remaining, got %v/%v", result.TaxAllocated, result.RemainingTax)
		}

		stored, err := repository.NewGrantRepository(db).GetGrant(grant.ID)
		if err != nil {
			t.Fatalf("failed to read back grant: %v", err)
		}
		if stored.TaxAmount == nil || *stored.TaxAmount != 100 {
			t.Fatalf("expected manual tax reduced to 100, got %v", stored.TaxAmount)
		}
		if stored.TaxAutoCalculated != 300 {
			t.Errorf("expected auto tax untouched at 300, got %v", stored.TaxAutoCalculated)
		}
	})

	t.Run("oversell is rejected before any write", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)

		grant := testutil.NewGrant().WithSoldQuantity(40).Build(t, db) // 60 remaining

		_, err := svc.RecordSale(context.Background(), service.RecordSaleInput{
			GrantID:      grant.ID,
			SaleDate:     testutil.Date("2024-06-01"),
			QuantitySold: 61,
			SalePrice:    12,
		})
		if !errors.Is(err, apperrors.ErrInsufficientOptions) {
			t.Fatalf("expected ErrInsufficientOptions, got %v", err)
		}

		stored, err := repository.NewGrantRepository(db).GetGrant(grant.ID)
		if err != nil {
			t.Fatalf("failed to read back grant: %v", err)
		}
		if stored.TotalSoldQuantity != 40 || stored.TaxAutoCalculated != 300 {
			t.Errorf("expected grant untouched, got sold %d, tax %v", stored.TotalSoldQuantity, stored.TaxAutoCalculated)
		}
		sales, err := repository.NewSaleRepository(db).GetSalesByGrant(grant.ID)
		if err != nil {
			t.Fatalf("failed to list sales: %v", err)
		}
		if len(sales) != 0 {
			t.Errorf("expected no sale recorded, got %d", len(sales))
		}
	})

	t.Run("future sale date is rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)
		grant := testutil.NewGrant().Build(t, db)

		_, err := svc.RecordSale(context.Background(), service.RecordSaleInput{
			GrantID:      grant.ID,
			SaleDate:     time.Now().UTC().AddDate(0, 0, 1),
			QuantitySold: 10,
			SalePrice:    12,
		})
		if !errors.Is(err, apperrors.ErrSaleDateInFuture) {
			t.Errorf("expected ErrSaleDateInFuture, got %v", err)
		}
	})

	t.Run("selling everything empties the grant and its tax", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)
		grant := testutil.NewGrant().Build(t, db)

		result, err := svc.RecordSale(context.Background(), service.RecordSaleInput{
			GrantID:      grant.ID,
			SaleDate:     testutil.Date("2024-06-01"),
			QuantitySold: 100,
			SalePrice:    15,
		})
		if err != nil {
			t.Fatalf("RecordSale failed: %v", err)
		}
		if result.TaxAllocated != 300 || result.RemainingTax != 0 {
			t.Errorf("expected full tax allocated, got %v/%v", result.TaxAllocated, result.RemainingTax)
		}

		stored, err := repository.NewGrantRepository(db).GetGrant(grant.ID)
		if err != nil {
			t.Fatalf("failed to read back grant: %v", err)
		}
		if stored.QuantityRemaining() != 0 {
			t.Errorf("expected grant fully sold, got %d remaining", stored.QuantityRemaining())
		}
	})

	t.Run("sequential sales reallocate against each remaining balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)
		grant := testutil.NewGrant().Build(t, db)

		first, err := svc.RecordSale(context.Background(), service.RecordSaleInput{
			GrantID:      grant.ID,
			SaleDate:     testutil.Date("2024-06-01"),
			QuantitySold: 30,
			SalePrice:    12,
		})
		if err != nil {
			t.Fatalf("first sale failed: %v", err)
		}
		if first.TaxAllocated != 90 || first.RemainingTax != 210 {
			t.Errorf("expected 90/210 after first sale, got %v/%v", first.TaxAllocated, first.RemainingTax)
		}

		second, err := svc.RecordSale(context.Background(), service.RecordSaleInput{
			GrantID:      grant.ID,
			SaleDate:     testutil.Date("2024-06-02"),
			QuantitySold: 20,
			SalePrice:    12,
		})
		if err != nil {
			t.Fatalf("second sale failed: %v", err)
		}
		if second.TaxAllocated != 60 || second.RemainingTax != 150 {
			t.Errorf("expected 60/150 after second sale, got %v/%v", second.TaxAllocated, second.RemainingTax)
		}
	})

	t.Run("snapshot is written for the sale date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)
		grant := testutil.NewGrant().Build(t, db)

		if _, err := svc.RecordSale(context.Background(), service.RecordSaleInput{
			GrantID:      grant.ID,
			SaleDate:     testutil.Date("2024-06-01"),
			QuantitySold: 40,
			SalePrice:    12,
		}); err != nil {
			t.Fatalf("RecordSale failed: %v", err)
		}

		snapshot, err := repository.NewEvolutionRepository(db).GetByDate("2024-06-01")
		if err != nil {
			t.Fatalf("expected snapshot for sale date: %v", err)
		}
		if !strings.Contains(snapshot.Notes, "Sold 40 options at 12.00") {
			t.Errorf("expected sale annotation, got %q", snapshot.Notes)
		}
		if snapshot.TotalRealizedGain != 80 {
			t.Errorf("expected realized gain 80 in snapshot, got %v", snapshot.TotalRealizedGain)
		}
	})

	t.Run("unknown grant", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)

		_, err := svc.RecordSale(context.Background(), service.RecordSaleInput{
			GrantID:      testutil.MakeID(),
			SaleDate:     testutil.Date("2024-06-01"),
			QuantitySold: 10,
			SalePrice:    12,
		})
		if !errors.Is(err, apperrors.ErrGrantNotFound) {
			t.Errorf("expected ErrGrantNotFound, got %v", err)
		}
	})
}

func TestEditSale(t *testing.T) {
	t.Run("recomputes totals, never tax or quantity", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)

		grant := testutil.NewGrant().WithSoldQuantity(40).Build(t, db)
		sale := testutil.NewSale(grant.ID).Build(t, db) // 40 @ 12, tax 120

		edited, err := svc.EditSale(context.Background(), sale.ID, service.EditSaleInput{
			SaleDate:  testutil.Date("2024-06-15"),
			SalePrice: 14,
			Notes:     "corrected broker statement",
		})
		if err != nil {
			t.Fatalf("EditSale failed: %v", err)
		}

		if edited.TotalSaleValue != 560 {
			t.Errorf("expected total 40 x 14 = 560, got %v", edited.TotalSaleValue)
		}
		if edited.RealizedGainLoss != 160 {
			t.Errorf("expected realized gain 560 - 400 = 160, got %v", edited.RealizedGainLoss)
		}
		if edited.QuantitySold != 40 {
			t.Errorf("expected quantity unchanged, got %d", edited.QuantitySold)
		}
		if edited.TaxDeducted != 120 {
			t.Errorf("expected tax untouched at 120, got %v", edited.TaxDeducted)
		}
		if edited.Notes != "corrected broker statement" {
			t.Errorf("unexpected notes: %q", edited.Notes)
		}
	})

	t.Run("rejects a future date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)

		grant := testutil.NewGrant().WithSoldQuantity(40).Build(t, db)
		sale := testutil.NewSale(grant.ID).Build(t, db)

		_, err := svc.EditSale(context.Background(), sale.ID, service.EditSaleInput{
			SaleDate:  time.Now().UTC().AddDate(0, 0, 2),
			SalePrice: 14,
		})
		if !errors.Is(err, apperrors.ErrSaleDateInFuture) {
			t.Errorf("expected ErrSaleDateInFuture, got %v", err)
		}
	})

	t.Run("unknown sale", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestSaleService(t, db)

		_, err := svc.EditSale(context.Background(), testutil.MakeID(), service.EditSaleInput{
			SaleDate:  testutil.Date("2024-06-01"),
			SalePrice: 14,
		})
		if !errors.Is(err, apperrors.ErrSaleNotFound) {
			t.Errorf("expected ErrSaleNotFound, got %v", err)
		}
	})
}

func TestGetSalesHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestSaleService(t, db)

	first := testutil.NewGrant().Build(t, db)
	second := testutil.NewGrant().WithGrantDate("2024-03-01").Build(t, db)
	testutil.NewSale(first.ID).WithSaleDate("2024-06-01").Build(t, db)
	testutil.NewSale(second.ID).WithSaleDate("2024-07-01").Build(t, db)

	t.Run("all grants", func(t *testing.T) {
		history, err := svc.GetSalesHistory("")
		if err != nil {
			t.Fatalf("GetSalesHistory failed: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(history))
		}
	})

	t.Run("scoped to one grant", func(t *testing.T) {
		history, err := svc.GetSalesHistory(first.ID)
		if err != nil {
			t.Fatalf("GetSalesHistory failed: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(history))
		}
		if !history[0].GrantDate.Equal(first.GrantDate) {
			t.Errorf("expected grant metadata joined in, got %v", history[0].GrantDate)
		}
	})
}
