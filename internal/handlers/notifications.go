package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duthaho/trello-clone-sub000/internal/auth"
	"github.com/duthaho/trello-clone-sub000/internal/dto"
	"github.com/duthaho/trello-clone-sub000/internal/service"
	"github.com/duthaho/trello-clone-sub000/internal/utils"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List godoc
// @Summary      The caller's notifications, newest first
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        unread_only  query     bool  false  "Only unread"
// @Param        limit        query     int   false  "Page size (max 100)"
// @Param        offset       query     int   false  "Offset"
// @Success      200          {object}  dto.ListNotificationsResponse
// @Router       /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var q dto.NotificationListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	limit, offset := utils.ClampPage(q.Limit, q.Offset)
	list, err := h.svc.List(c.Request.Context(), auth.UserIDFromContext(c), q.UnreadOnly, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		items = append(items, notificationToResponse(n))
	}
	c.JSON(http.StatusOK, dto.ListNotificationsResponse{Items: items, Limit: limit, Offset: offset})
}

// UnreadCount godoc
// @Summary      Number of unread notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.UnreadCountResponse
// @Router       /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UnreadCountResponse{Count: n})
}

// MarkRead godoc
// @Summary      Mark a notification read
// @Tags         notifications
// @Security     BearerAuth
// @Param        id   path  int  true  "Notification ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), auth.UserIDFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead godoc
// @Summary      Mark every notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.MarkAllReadResponse
// @Router       /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MarkAllReadResponse{Updated: n})
}
