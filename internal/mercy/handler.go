package mercy

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

// Handler handles HTTP requests for mercy petitions
type Handler struct {
	service *Service
}

// NewHandler creates a new mercy handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for request-scoped mercy endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Post("/{id}/respond", h.Respond)
	return r
}

// Create godoc
// @Summary Request mercy on a friendship
// @Description Opens a forgiveness petition to the counterparty. Only a currently bankrupt party may petition, and only one petition may be open at a time.
// @Tags mercy
// @Accept json
// @Produce json
// @Param id path int true "Friendship ID"
// @Param request body CreateMercyRequest true "Petition"
// @Success 201 {object} response.APIResponse{data=Request}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Security BearerAuth
// @Router /friendships/{id}/mercy [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req CreateMercyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	request, err := h.service.Create(r.Context(), friendshipID, userID, req.Message)
	if err != nil {
		writeMercyError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, request)
}

// Respond godoc
// @Summary Respond to a mercy petition
// @Description Grants, declines, or counters a petition. Granting forgives the requester's debt in full. Countering requires a condition and may itself only be granted or declined.
// @Tags mercy
// @Accept json
// @Produce json
// @Param id path int true "Mercy request ID"
// @Param request body RespondRequest true "Response"
// @Success 200 {object} response.APIResponse{data=Request}
// @Failure 400 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Security BearerAuth
// @Router /mercy/{id}/respond [post]
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	request, err := h.service.Respond(r.Context(), requestID, userID, req.Response, req.Condition)
	if err != nil {
		writeMercyError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, request)
}

// GetByID godoc
// @Summary Get a mercy petition
// @Tags mercy
// @Produce json
// @Param id path int true "Mercy request ID"
// @Success 200 {object} response.APIResponse{data=Request}
// @Failure 401 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Security BearerAuth
// @Router /mercy/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return
	}

	request, err := h.service.GetByID(r.Context(), requestID, userID)
	if err != nil {
		writeMercyError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, request)
}

// List godoc
// @Summary List mercy petitions on the caller's friendships
// @Tags mercy
// @Produce json
// @Success 200 {object} response.APIResponse{data=[]Request}
// @Failure 401 {object} response.APIResponse
// @Security BearerAuth
// @Router /mercy [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	requests, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list mercy requests")
		return
	}
	if requests == nil {
		requests = []*Request{}
	}

	response.JSON(w, http.StatusOK, requests)
}

func writeMercyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRequestNotFound), errors.Is(err, friendship.ErrFriendshipNotFound):
		response.NotFound(w, "Not found")
	case errors.Is(err, friendship.ErrNotParticipant):
		response.Forbidden(w, "You are not a party to this friendship")
	case errors.Is(err, ErrNotBankrupt):
		response.Forbidden(w, "Only a bankrupt party may request mercy")
	case errors.Is(err, ErrNotCounterparty):
		response.Forbidden(w, "Only the counterparty may respond")
	case errors.Is(err, ErrInvalidState):
		response.Conflict(w, "Request is not awaiting this response")
	case errors.Is(err, ErrAlreadyOpen):
		response.Conflict(w, "An open mercy request already exists")
	case errors.Is(err, ErrMissingCondition), errors.Is(err, ErrInvalidResponse):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, "Failed to process mercy request")
	}
}
