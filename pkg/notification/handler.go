package notification

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/letterbox/letterbox/internal/rest"
	log "github.com/sirupsen/logrus"
)

type NotificationDTO struct {
	Id        int       `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type UnreadCountDTO struct {
	Count int `json:"count"`
}

type MarkAllReadDTO struct {
	Updated int `json:"updated"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func toDTO(n Notification) NotificationDTO {
	return NotificationDTO{
		Id:        n.Id,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid notification id", "'id' must be an integer")
		return 0, false
	}
	return id, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotificationNotFound) {
		rest.WriteError(w, http.StatusNotFound, "Notification not found", "")
		return
	}
	log.Errorf("notification request failed: %v", err)
	rest.WriteInternalError(w)
}

// List godoc
// @Summary List notifications, newest first
// @Tags Notification
// @Produce json
// @Param unread query bool false "only unread notifications"
// @Param limit query int false "maximum number of notifications"
// @Success 200 {array} NotificationDTO
// @Router /api/notifications [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	onlyUnread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notifications, err := h.service.List(r.Context(), onlyUnread, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]NotificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, toDTO(n))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Tags Notification
// @Produce json
// @Success 200 {object} UnreadCountDTO
// @Router /api/notifications/unread-count [get]
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountUnread(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, UnreadCountDTO{Count: count})
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notification
// @Param id path int true "notification id"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/notifications/{id}/read [patch]
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkRead(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead godoc
// @Summary Mark every notification as read
// @Tags Notification
// @Produce json
// @Success 200 {object} MarkAllReadDTO
// @Router /api/notifications/read-all [patch]
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.service.MarkAllRead(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, MarkAllReadDTO{Updated: updated})
}

// Delete godoc
// @Summary Delete a notification
// @Tags Notification
// @Param id path int true "notification id"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/notifications/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
