package handlers_test

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/optionfolio/backend/internal/api/handlers"
	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/testutil"
)

func newSaleHandler(t *testing.T) (*handlers.SaleHandler, *sql.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	return handlers.NewSaleHandler(testutil.NewTestSaleService(t, db)), db
}

func TestCreateSaleHandler(t *testing.T) {
	t.Run("valid sale", func(t *testing.T) {
		handler, db := newSaleHandler(t)
		grant := testutil.NewGrant().Build(t, db)

		body := fmt.Sprintf(`{"grantId": %q, "saleDate": "2024-06-01", "quantitySold": 40, "salePrice": 12}`, grant.ID)
		req := httptest.NewRequest(http.MethodPost, "/api/sale", newJSONBody(body))
		w := httptest.NewRecorder()

		handler.CreateSale(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
		var result model.SaleResult
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if result.TotalSaleValue != 480 || result.TaxAllocated != 120 {
			t.Errorf("unexpected result: %+v", result)
		}
	})

	t.Run("oversell", func(t *testing.T) {
		handler, db := newSaleHandler(t)
		grant := testutil.NewGrant().Build(t, db)

		body := fmt.Sprintf(`{"grantId": %q, "saleDate": "2024-06-01", "quantitySold": 101, "salePrice": 12}`, grant.ID)
		req := httptest.NewRequest(http.MethodPost, "/api/sale", newJSONBody(body))
		w := httptest.NewRecorder()

		handler.CreateSale(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("future sale date", func(t *testing.T) {
		handler, db := newSaleHandler(t)
		grant := testutil.NewGrant().Build(t, db)

		body := fmt.Sprintf(`{"grantId": %q, "saleDate": "2099-01-01", "quantitySold": 10, "salePrice": 12}`, grant.ID)
		req := httptest.NewRequest(http.MethodPost, "/api/sale", newJSONBody(body))
		w := httptest.NewRecorder()

		handler.CreateSale(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("unknown grant", func(t *testing.T) {
		handler, _ := newSaleHandler(t)

		body := fmt.Sprintf(`{"grantId": %q, "saleDate": "2024-06-01", "quantitySold": 10, "salePrice": 12}`, testutil.MakeID())
		req := httptest.NewRequest(http.MethodPost, "/api/sale", newJSONBody(body))
		w := httptest.NewRecorder()

		handler.CreateSale(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

func TestUpdateSaleHandler(t *testing.T) {
	t.Run("recomputes totals", func(t *testing.T) {
		handler, db := newSaleHandler(t)
		grant := testutil.NewGrant().WithSoldQuantity(40).Build(t, db)
		sale := testutil.NewSale(grant.ID).Build(t, db)

		req := testutil.NewRequestWithURLParams(http.MethodPut, "/api/sale/"+sale.ID,
			map[string]string{"uuid": sale.ID})
		req.Body = newJSONBody(`{"saleDate": "2024-06-15", "salePrice": 14}`)
		w := httptest.NewRecorder()

		handler.UpdateSale(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var updated model.SaleTransaction
		if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if updated.TotalSaleValue != 560 {
			t.Errorf("expected recomputed total 560, got %v", updated.TotalSaleValue)
		}
	})

	t.Run("unknown sale", func(t *testing.T) {
		handler, _ := newSaleHandler(t)

		id := testutil.MakeID()
		req := testutil.NewRequestWithURLParams(http.MethodPut, "/api/sale/"+id,
			map[string]string{"uuid": id})
		req.Body = newJSONBody(`{"saleDate": "2024-06-15", "salePrice": 14}`)
		w := httptest.NewRecorder()

		handler.UpdateSale(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
}

func TestAllSalesHandler(t *testing.T) {
	handler, db := newSaleHandler(t)
	grant := testutil.NewGrant().Build(t, db)
	testutil.NewSale(grant.ID).Build(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/sale", nil)
	w := httptest.NewRecorder()

	handler.AllSales(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var history []model.SaleHistoryEntry
	if err := json.NewDecoder(w.Body).Decode(&history); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 entry, got %d", len(history))
	}
}
