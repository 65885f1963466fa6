package handlers

import (
	"net/http"

	"github.com/optionfolio/backend/internal/api/request"
	"github.com/optionfolio/backend/internal/api/response"
	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/model"
	"github.com/optionfolio/backend/internal/service"
	"github.com/optionfolio/backend/internal/validation"
)

// PriceHandler handles HTTP requests for price endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the priceService.
type PriceHandler struct {
	priceService *service.PriceService
}

// NewPriceHandler creates a new PriceHandler with the provided service dependency.
func NewPriceHandler(priceService *service.PriceService) *PriceHandler {
	return &PriceHandler{
		priceService: priceService,
	}
}

// History handles GET requests to retrieve the stored observations for one
// option identity, oldest first.
//
// Endpoint: GET /api/price/history?exerciseReference=25&grantDate=YYYY-MM-DD
// Response: 200 OK with array of PriceObservation
// Error: 400 Bad Request if parameters are missing or malformed
// Error: 500 Internal Server Error if retrieval fails
func (h *PriceHandler) History(w http.ResponseWriter, r *http.Request) {
	exerciseReference, err := parseFloatParam(r, "exerciseReference")
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "exerciseReference must be numeric", err.Error())
		return
	}
	grantDate, err := validation.ParseDate(r.URL.Query().Get("grantDate"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "grantDate must be YYYY-MM-DD", err.Error())
		return
	}

	observations, err := h.priceService.GetPriceHistory(exerciseReference, grantDate)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, observations)
}

// Resolve handles GET requests to resolve the best available price for an
// option identity at a target date. An identity with no usable observation
// resolves to matchType "unavailable" with price zero; that is a 200, not an
// error, so clients can render "N/A".
//
// Endpoint: GET /api/price/resolve?exerciseReference=25&grantDate=...&date=...
// Response: 200 OK with PriceResolution
// Error: 400 Bad Request if parameters are missing or malformed
// Error: 500 Internal Server Error if resolution fails
func (h *PriceHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	exerciseReference, err := parseFloatParam(r, "exerciseReference")
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "exerciseReference must be numeric", err.Error())
		return
	}
	grantDate, err := validation.ParseDate(r.URL.Query().Get("grantDate"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "grantDate must be YYYY-MM-DD", err.Error())
		return
	}
	targetDate, err := validation.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", err.Error())
		return
	}

	resolution, err := h.priceService.ResolvePrice(r.Context(), exerciseReference, grantDate, targetDate)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrievePrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, resolution)
}

// BulkIngest handles POST requests to store a batch of raw price records.
//
// Endpoint: POST /api/price/bulk
// Request Body: BulkPriceRequest
// Response: 200 OK with {"observationsInserted": N}
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if ingestion fails
func (h *PriceHandler) BulkIngest(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.BulkPriceRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateBulkPrices(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	records := make([]model.PriceRecord, len(req.Records))
	for i, record := range req.Records {
		records[i] = model.PriceRecord{
			FundName:          record.FundName,
			ExerciseReference: record.ExerciseReference,
			PriceDate:         record.PriceDate,
			Value:             record.Value,
		}
	}

	inserted, err := h.priceService.BulkIngest(r.Context(), records)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToIngestPrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"observationsInserted": inserted})
}

// Refresh handles POST requests to update every grant's price from the
// provider's current listings.
//
// Endpoint: POST /api/price/refresh
// Response: 200 OK with PriceRefreshResult
// Error: 500 Internal Server Error if the refresh fails
func (h *PriceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.priceService.RefreshAll(r.Context(), nil)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRefreshPrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Backfill handles POST requests to fetch and store the full quote history
// for every exercise reference held by a grant.
//
// Endpoint: POST /api/price/backfill
// Response: 200 OK with {"observationsInserted": N}
// Error: 500 Internal Server Error if the backfill fails
func (h *PriceHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	inserted, err := h.priceService.Backfill(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRefreshPrices.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"observationsInserted": inserted})
}
