package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hakoware/api/pkg/middleware"
	"github.com/hakoware/api/pkg/response"
)

// Handler handles HTTP requests for notification operations
type Handler struct {
	service *Service
}

// NewHandler creates a new notification handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for notification endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/unread-count", h.GetUnreadCount)
	r.Post("/{id}/read", h.MarkAsRead)
	r.Post("/read-all", h.MarkAllAsRead)

	return r
}

// NotificationResponse represents the response for a notification
type NotificationResponse struct {
	ID                int64   `json:"id"`
	Kind              Kind    `json:"kind"`
	FromUserID        *int64  `json:"from_user_id,omitempty"`
	Message           string  `json:"message"`
	IsRead            bool    `json:"is_read"`
	RelatedEntityType *string `json:"related_entity_type,omitempty"`
	RelatedEntityID   *int64  `json:"related_entity_id,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// toResponse converts a Notification to a NotificationResponse
func toResponse(n *Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:                n.ID,
		Kind:              n.Kind,
		FromUserID:        n.FromUserID,
		Message:           n.Message,
		IsRead:            n.IsRead,
		RelatedEntityType: n.RelatedEntityType,
		RelatedEntityID:   n.RelatedEntityID,
		CreatedAt:         n.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// List handles GET /notifications
// @Summary      List notifications
// @Description  Get a paginated list of the caller's notifications
// @Tags         notifications
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Param        unread_only query bool false "Only unread notifications"
// @Success      200 {object} response.APIResponse{data=[]NotificationResponse}
// @Router       /notifications [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	notifications, total, err := h.service.ListByRecipientID(r.Context(), userID, page, perPage, unreadOnly)
	if err != nil {
		response.InternalError(w, "Failed to list notifications")
		return
	}

	notificationResponses := make([]*NotificationResponse, len(notifications))
	for i, n := range notifications {
		notificationResponses[i] = toResponse(n)
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, notificationResponses, meta)
}

// GetUnreadCount handles GET /notifications/unread-count
// @Summary      Unread notification count
// @Tags         notifications
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Router       /notifications/unread-count [get]
func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	count, err := h.service.GetUnreadCount(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to get unread count")
		return
	}

	response.JSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

// MarkAsRead handles POST /notifications/{id}/read
// @Summary      Mark a notification as read
// @Tags         notifications
// @Produce      json
// @Param        id path int true "Notification ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /notifications/{id}/read [post]
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid notification ID")
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.MarkAsRead(r.Context(), id, userID); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		if errors.Is(err, ErrNotRecipient) {
			response.Forbidden(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to mark notification as read")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// MarkAllAsRead handles POST /notifications/read-all
// @Summary      Mark all notifications as read
// @Tags         notifications
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Router       /notifications/read-all [post]
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.MarkAllAsRead(r.Context(), userID); err != nil {
		response.InternalError(w, "Failed to mark notifications as read")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}
