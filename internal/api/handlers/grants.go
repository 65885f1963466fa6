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

// GrantHandler handles HTTP requests for grant endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the grantService.
type GrantHandler struct {
	grantService *service.GrantService
	saleService  *service.SaleService
}

// NewGrantHandler creates a new GrantHandler with the provided service dependencies.
func NewGrantHandler(grantService *service.GrantService, saleService *service.SaleService) *GrantHandler {
	return &GrantHandler{
		grantService: grantService,
		saleService:  saleService,
	}
}

// Grants handles GET requests to retrieve all grants, most recent first.
//
// Endpoint: GET /api/grant
// Response: 200 OK with array of Grant
// Error: 500 Internal Server Error if retrieval fails
func (h *GrantHandler) Grants(w http.ResponseWriter, _ *http.Request) {
	grants, err := h.grantService.GetGrantHistory()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveGrants.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, grants)
}

// GetGrant handles GET requests to retrieve a single grant by ID.
//
// Endpoint: GET /api/grant/{uuid}
// Response: 200 OK with Grant
// Error: 400 Bad Request if grant ID is invalid (validated by middleware)
// Error: 404 Not Found if grant not found
// Error: 500 Internal Server Error if retrieval fails
func (h *GrantHandler) GetGrant(w http.ResponseWriter, r *http.Request) {
	grantID := chi.URLParam(r, "uuid")

	grant, err := h.grantService.GetGrant(grantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrGrantNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrGrantNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveGrants.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, grant)
}

// CheckExisting handles GET requests to look up open grants matching a date
// and exercise reference, so the client can offer a merge before creating a
// duplicate.
//
// Endpoint: GET /api/grant/check?grantDate=YYYY-MM-DD&exerciseReference=25
// Response: 200 OK with array of Grant (possibly empty)
// Error: 400 Bad Request if parameters are missing or malformed
// Error: 500 Internal Server Error if the lookup fails
func (h *GrantHandler) CheckExisting(w http.ResponseWriter, r *http.Request) {
	grantDate, err := validation.ParseDate(r.URL.Query().Get("grantDate"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "grantDate must be YYYY-MM-DD", err.Error())
		return
	}
	exerciseReference, err := parseFloatParam(r, "exerciseReference")
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "exerciseReference must be numeric", err.Error())
		return
	}

	grants, err := h.grantService.CheckExisting(grantDate, exerciseReference)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveGrants.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, grants)
}

// CreateGrant handles POST requests to add a new grant.
//
// Endpoint: POST /api/grant
// Request Body: CreateGrantRequest (grantDate, exerciseReference, quantity, manualTax?)
// Response: 201 Created with Grant
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if creation fails
func (h *GrantHandler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateGrantRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateGrant(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	grantDate, err := validation.ParseDate(req.GrantDate)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	grant, err := h.grantService.AddGrant(r.Context(), service.AddGrantInput{
		GrantDate:         grantDate,
		ExerciseReference: req.ExerciseReference,
		Quantity:          req.Quantity,
		ManualTax:         req.ManualTax,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNegativeAmount) || errors.Is(err, apperrors.ErrMissingRequiredField) {
			response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCreateGrant.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, grant)
}

// MergeGrant handles POST requests to fold additional options into an
// existing grant.
//
// Endpoint: POST /api/grant/{uuid}/merge
// Request Body: MergeGrantRequest (additionalQuantity, additionalManualTax?)
// Response: 200 OK with updated Grant
// Error: 400 Bad Request if grant ID is invalid or validation fails
// Error: 404 Not Found if grant not found
// Error: 500 Internal Server Error if the merge fails
func (h *GrantHandler) MergeGrant(w http.ResponseWriter, r *http.Request) {
	grantID := chi.URLParam(r, "uuid")

	req, err := parseJSON[request.MergeGrantRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateMergeGrant(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	grant, err := h.grantService.MergeGrant(r.Context(), grantID, req.AdditionalQuantity, req.AdditionalManualTax)
	if err != nil {
		if errors.Is(err, apperrors.ErrGrantNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrGrantNotFound.Error(), err.Error())
			return
		}
		if errors.Is(err, apperrors.ErrNegativeAmount) {
			response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToUpdateGrant.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, grant)
}

// DeleteGrant handles DELETE requests to remove a grant and its sales.
//
// Endpoint: DELETE /api/grant/{uuid}
// Response: 200 OK with the deleted Grant
// Error: 400 Bad Request if grant ID is invalid (validated by middleware)
// Error: 404 Not Found if grant not found
// Error: 500 Internal Server Error if deletion fails
func (h *GrantHandler) DeleteGrant(w http.ResponseWriter, r *http.Request) {
	grantID := chi.URLParam(r, "uuid")

	grant, err := h.grantService.DeleteGrant(r.Context(), grantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrGrantNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrGrantNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, "failed to delete grant", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, grant)
}

// GrantSales handles GET requests to retrieve the sales history of one grant.
//
// Endpoint: GET /api/grant/{uuid}/sales
// Response: 200 OK with array of SaleHistoryEntry
// Error: 400 Bad Request if grant ID is invalid (validated by middleware)
// Error: 500 Internal Server Error if retrieval fails
func (h *GrantHandler) GrantSales(w http.ResponseWriter, r *http.Request) {
	grantID := chi.URLParam(r, "uuid")

	sales, err := h.saleService.GetSalesHistory(grantID)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveSales.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, sales)
}
