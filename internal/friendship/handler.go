package friendship

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hakoware/api/pkg/middleware"
	"github.com/hakoware/api/pkg/response"
)

// Handler handles HTTP requests for friendship operations
type Handler struct {
	service *Service
}

// NewHandler creates a new friendship handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return 0, false
	}
	return userID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid friendship ID")
		return 0, false
	}
	return id, true
}

// Create handles POST /friendships
// @Summary      Create a friendship
// @Description  Establish a mutual accountability pact with another user
// @Tags         friendships
// @Accept       json
// @Produce      json
// @Param        request body CreateFriendshipRequest true "Friendship creation request"
// @Success      201 {object} response.APIResponse{data=FriendshipResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /friendships [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req CreateFriendshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	f, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSameUser), errors.Is(err, ErrInvalidLimit), errors.Is(err, ErrFutureTimestamp):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to create friendship")
		}
		return
	}

	response.JSON(w, http.StatusCreated, f.ToResponse(SideUser1))
}

// GetByID handles GET /friendships/{id}
// @Summary      Get a friendship
// @Tags         friendships
// @Produce      json
// @Param        id path int true "Friendship ID"
// @Success      200 {object} response.APIResponse{data=FriendshipResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /friendships/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f, side, err := h.service.GetForUser(r.Context(), id, userID)
	if err != nil {
		writeFriendshipError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, f.ToResponse(side))
}

// List handles GET /friendships
// @Summary      List my friendships
// @Tags         friendships
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]FriendshipResponse}
// @Router       /friendships [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	friendships, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list friendships")
		return
	}

	out := make([]*FriendshipResponse, 0, len(friendships))
	for _, f := range friendships {
		side, _ := f.SideOf(userID)
		out = append(out, f.ToResponse(side))
	}

	response.JSON(w, http.StatusOK, out)
}

// Recalculate handles POST /friendships/{id}/recalculate
// @Summary      Recalculate my debt
// @Description  Run the debt calculator on demand and refresh the cached stats for the caller's side
// @Tags         friendships
// @Produce      json
// @Param        id path int true "Friendship ID"
// @Success      200 {object} response.APIResponse{data=DebtStatsResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /friendships/{id}/recalculate [post]
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Recalculate(r.Context(), id, userID)
	if err != nil {
		writeFriendshipError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, stats)
}

// Delete handles DELETE /friendships/{id}
// @Summary      Delete a friendship
// @Tags         friendships
// @Produce      json
// @Param        id path int true "Friendship ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /friendships/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		writeFriendshipError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Friendship deleted"})
}

// writeFriendshipError maps service errors to the response envelope.
func writeFriendshipError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrFriendshipNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotParticipant):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrConflict):
		response.Conflict(w, err.Error())
	default:
		response.InternalError(w, "Operation failed")
	}
}
