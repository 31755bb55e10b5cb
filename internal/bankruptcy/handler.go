package bankruptcy

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hakoware/api/pkg/middleware"
	"github.com/hakoware/api/pkg/response"
)

// Handler handles HTTP requests for bankruptcy operations
type Handler struct {
	detector *Detector
	repo     *Repository
}

// NewHandler creates a new bankruptcy handler
func NewHandler(detector *Detector, repo *Repository) *Handler {
	return &Handler{detector: detector, repo: repo}
}

// Routes returns the router for bankruptcy endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// RunAccrual godoc
// @Summary Run the daily debt accrual
// @Description Evaluates every friendship, declares new bankruptcies, refreshes cached debt stats, and sends recurring notices. Only one run may be active at a time.
// @Tags bankruptcies
// @Produce json
// @Success 200 {object} response.APIResponse{data=Report}
// @Failure 409 {object} response.APIResponse
// @Failure 500 {object} response.APIResponse
// @Router /accrual/run [post]
func (h *Handler) RunAccrual(w http.ResponseWriter, r *http.Request) {
	report, err := h.detector.RunDailyAccrual(r.Context(), time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			response.Conflict(w, "An accrual run is already in progress")
			return
		}
		response.InternalError(w, "Failed to run accrual")
		return
	}

	response.JSON(w, http.StatusOK, report)
}

// List godoc
// @Summary List the caller's bankruptcy history
// @Tags bankruptcies
// @Produce json
// @Success 200 {object} response.APIResponse{data=[]Record}
// @Failure 401 {object} response.APIResponse
// @Failure 500 {object} response.APIResponse
// @Security BearerAuth
// @Router /bankruptcies [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	records, err := h.repo.ListByUserID(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list bankruptcies")
		return
	}
	if records == nil {
		records = []*Record{}
	}

	response.JSON(w, http.StatusOK, records)
}
