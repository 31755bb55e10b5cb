package settlement

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hakoware/api/internal/friendship"
	"github.com/hakoware/api/pkg/middleware"
	"github.com/hakoware/api/pkg/response"
)

// Handler handles HTTP requests for settlement operations
type Handler struct {
	service *Service
}

// NewHandler creates a new settlement handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Settle godoc
// @Summary Settle debt on a friendship
// @Description Applies a settlement action to one side's debt. "reset" locks accrued interest in as principal and restarts the timer, "full" clears the debt and any bankruptcy flag, "partial" pays down the given amount.
// @Tags settlements
// @Accept json
// @Produce json
// @Param id path int true "Friendship ID"
// @Param request body SettleRequest true "Settlement action"
// @Success 200 {object} response.APIResponse{data=Outcome}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Security BearerAuth
// @Router /friendships/{id}/settle [post]
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	friendshipID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid friendship ID")
		return
	}

	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	outcome, err := h.service.Settle(r.Context(), friendshipID, userID, &req)
	if err != nil {
		writeSettleError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, outcome)
}

func writeSettleError(w http.ResponseWriter, err error) {
	var amountErr *InvalidAmountError
	switch {
	case errors.Is(err, friendship.ErrFriendshipNotFound):
		response.NotFound(w, "Friendship not found")
	case errors.Is(err, friendship.ErrNotParticipant):
		response.Forbidden(w, "You are not a party to this friendship")
	case errors.As(err, &amountErr):
		response.Error(w, http.StatusBadRequest, "INVALID_AMOUNT", amountErr.Error())
	case errors.Is(err, ErrMissingAmount), errors.Is(err, ErrInvalidAction):
		response.BadRequest(w, err.Error())
	case errors.Is(err, friendship.ErrConflict):
		response.Conflict(w, "Friendship was modified concurrently, please retry")
	default:
		response.InternalError(w, "Failed to settle")
	}
}
