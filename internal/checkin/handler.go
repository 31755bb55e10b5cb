package checkin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hakoware/api/internal/friendship"
	"github.com/hakoware/api/pkg/middleware"
	"github.com/hakoware/api/pkg/response"
)

// CheckinRequest represents the request body for a check-in
type CheckinRequest struct {
	Proof *string `json:"proof,omitempty"`
}

// RecordResponse represents one check-in history entry
type RecordResponse struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"user_id"`
	CheckedInAt     string  `json:"checked_in_at"`
	Proof           *string `json:"proof,omitempty"`
	DebtBefore      int     `json:"debt_before"`
	StreakAtCheckin int     `json:"streak_at_checkin"`
}

// Handler handles HTTP requests for check-in operations
type Handler struct {
	processor   *Processor
	repo        *Repository
	friendships *friendship.Service
}

// NewHandler creates a new check-in handler
func NewHandler(processor *Processor, repo *Repository, friendships *friendship.Service) *Handler {
	return &Handler{processor: processor, repo: repo, friendships: friendships}
}

// Perform handles POST /friendships/{id}/checkin
// @Summary      Check in
// @Description  Reset the caller's debt to zero and extend the shared streak; allowed once per 20-hour window
// @Tags         checkins
// @Accept       json
// @Produce      json
// @Param        id path int true "Friendship ID"
// @Param        request body CheckinRequest false "Optional proof of contact"
// @Success      200 {object} response.APIResponse{data=Result}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /friendships/{id}/checkin [post]
func (h *Handler) Perform(w http.ResponseWriter, r *http.Request) {
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

	var req CheckinRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body")
			return
		}
	}

	result, err := h.processor.Checkin(r.Context(), friendshipID, userID, req.Proof)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyCheckedIn):
			// The cooldown message carries the remaining wait.
			response.Error(w, http.StatusConflict, "ALREADY_CHECKED_IN", err.Error())
		case errors.Is(err, friendship.ErrFriendshipNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, friendship.ErrNotParticipant):
			response.Forbidden(w, err.Error())
		case errors.Is(err, friendship.ErrConflict):
			response.Conflict(w, err.Error())
		default:
			response.ServiceUnavailable(w, "Check-in is temporarily unavailable")
		}
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// History handles GET /friendships/{id}/checkins
// @Summary      Check-in history
// @Tags         checkins
// @Produce      json
// @Param        id path int true "Friendship ID"
// @Param        limit query int false "Max entries" default(50)
// @Success      200 {object} response.APIResponse{data=[]RecordResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /friendships/{id}/checkins [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
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

	// Only parties may read the history.
	if _, _, err := h.friendships.GetForUser(r.Context(), friendshipID, userID); err != nil {
		switch {
		case errors.Is(err, friendship.ErrFriendshipNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, friendship.ErrNotParticipant):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to load friendship")
		}
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	records, err := h.repo.ListByFriendship(r.Context(), friendshipID, limit)
	if err != nil {
		response.InternalError(w, "Failed to list check-ins")
		return
	}

	out := make([]*RecordResponse, len(records))
	for i, rec := range records {
		out[i] = &RecordResponse{
			ID:              rec.ID,
			UserID:          rec.UserID,
			CheckedInAt:     rec.CheckedInAt.UTC().Format(time.RFC3339),
			Proof:           rec.Proof,
			DebtBefore:      rec.DebtBefore,
			StreakAtCheckin: rec.StreakAtCheckin,
		}
	}

	response.JSON(w, http.StatusOK, out)
}

// Stats handles GET /checkins/stats
// @Summary      My check-in stats
// @Tags         checkins
// @Produce      json
// @Success      200 {object} response.APIResponse{data=Stats}
// @Router       /checkins/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	stats, err := h.repo.StatsForUser(r.Context(), userID, time.Now())
	if err != nil {
		response.InternalError(w, "Failed to get check-in stats")
		return
	}

	response.JSON(w, http.StatusOK, stats)
}
