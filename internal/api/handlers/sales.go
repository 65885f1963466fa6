package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/optionfolio/backend/internal/api/request"
	"github.com/optionfolio/backend/internal/api/response"
	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/service"
	"github.com/optionfolio/backend/internal/validation"
)

// SaleHandler handles HTTP requests for sale endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the saleService.
type SaleHandler struct {
	saleService *service.SaleService
}

// NewSaleHandler creates a new SaleHandler with the provided service dependency.
func NewSaleHandler(saleService *service.SaleService) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
	}
}

// AllSales handles GET requests to retrieve the sales history across all
// grants, newest first, each entry enriched with grant metadata.
//
// Endpoint: GET /api/sale
// Response: 200 OK with array of SaleHistoryEntry
// Error: 500 Internal Server Error if retrieval fails
func (h *SaleHandler) AllSales(w http.ResponseWriter, _ *http.Request) {
	sales, err := h.saleService.GetSalesHistory("")
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveSales.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, sales)
}

// CreateSale handles POST requests to record a sale against a grant.
//
// Endpoint: POST /api/sale
// Request Body: CreateSaleRequest (grantId, saleDate, quantitySold, salePrice, notes?)
// Response: 201 Created with SaleResult
// Error: 400 Bad Request if validation fails, the sale date is in the future,
// or the grant does not hold enough unsold options
// Error: 404 Not Found if the grant does not exist
// Error: 500 Internal Server Error if recording fails
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateSaleRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateSale(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	saleDate, err := validation.ParseDate(req.SaleDate)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.saleService.RecordSale(r.Context(), service.RecordSaleInput{
		GrantID:      req.GrantID,
		SaleDate:     saleDate,
		QuantitySold: req.QuantitySold,
		SalePrice:    req.SalePrice,
		Notes:        req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrGrantNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrGrantNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrInsufficientOptions),
			errors.Is(err, apperrors.ErrSaleDateInFuture),
			errors.Is(err, apperrors.ErrNegativeAmount):
			response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRecordSale.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusCreated, result)
}

// UpdateSale handles PUT requests to edit an existing sale's date, price and
// notes. Quantity and tax allocation are immutable after recording.
//
// Endpoint: PUT /api/sale/{uuid}
// Request Body: UpdateSaleRequest (saleDate, salePrice, notes?)
// Response: 200 OK with the updated SaleTransaction
// Error: 400 Bad Request if sale ID is invalid or validation fails
// Error: 404 Not Found if the sale does not exist
// Error: 500 Internal Server Error if the update fails
func (h *SaleHandler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	saleID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.UpdateSaleRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateUpdateSale(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	saleDate, err := validation.ParseDate(req.SaleDate)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	sale, err := h.saleService.EditSale(r.Context(), saleID, service.EditSaleInput{
		SaleDate:  saleDate,
		SalePrice: req.SalePrice,
		Notes:     req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrSaleNotFound):
			response.RespondError(w, http.StatusNotFound, apperrors.ErrSaleNotFound.Error(), err.Error())
		case errors.Is(err, apperrors.ErrSaleDateInFuture),
			errors.Is(err, apperrors.ErrNegativeAmount):
			response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpdateSale.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, sale)
}
