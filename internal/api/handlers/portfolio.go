package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/optionfolio/backend/internal/api/response"
	"github.com/optionfolio/backend/internal/apperrors"
	"github.com/optionfolio/backend/internal/service"
	"github.com/optionfolio/backend/internal/validation"
)

// PortfolioHandler handles HTTP requests for the aggregated portfolio views:
// the overview and the evolution timeline.
type PortfolioHandler struct {
	overviewService  *service.OverviewService
	evolutionService *service.EvolutionService
}

// NewPortfolioHandler creates a new PortfolioHandler with the provided service dependencies.
func NewPortfolioHandler(overviewService *service.OverviewService, evolutionService *service.EvolutionService) *PortfolioHandler {
	return &PortfolioHandler{
		overviewService:  overviewService,
		evolutionService: evolutionService,
	}
}

// Overview handles GET requests to retrieve the joined portfolio view: every
// grant with its latest price, profit/loss figures and selling status, plus
// portfolio-wide totals.
//
// Endpoint: GET /api/portfolio/overview
// Response: 200 OK with PortfolioOverview
// Error: 500 Internal Server Error if retrieval fails
func (h *PortfolioHandler) Overview(w http.ResponseWriter, _ *http.Request) {
	overview, err := h.overviewService.GetPortfolioOverview()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveOverview.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, overview)
}

// Evolution handles GET requests to retrieve the evolution timeline, oldest
// snapshot first. An optional days parameter limits the window; omitting it
// returns the whole timeline.
//
// Endpoint: GET /api/portfolio/evolution?days=90
// Response: 200 OK with array of EvolutionSnapshot
// Error: 400 Bad Request if days is not a positive integer
// Error: 500 Internal Server Error if retrieval fails
func (h *PortfolioHandler) Evolution(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.RespondError(w, http.StatusBadRequest, "days must be a positive integer", raw)
			return
		}
		days = parsed
	}

	snapshots, err := h.evolutionService.GetEvolution(days)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveEvolution.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, snapshots)
}

// RebuildEvolution handles POST requests to recompute the numeric fields of
// every snapshot from an optional start date onwards. Notes are preserved.
//
// Endpoint: POST /api/portfolio/evolution/rebuild?from=YYYY-MM-DD
// Response: 200 OK with {"snapshotsWritten": N}
// Error: 400 Bad Request if the from date is malformed
// Error: 500 Internal Server Error if the rebuild fails
func (h *PortfolioHandler) RebuildEvolution(w http.ResponseWriter, r *http.Request) {
	var fromDate time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := validation.ParseDate(raw)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD", err.Error())
			return
		}
		fromDate = parsed
	}

	written, err := h.evolutionService.Rebuild(r.Context(), fromDate)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRebuildEvolution.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, map[string]int{"snapshotsWritten": written})
}
