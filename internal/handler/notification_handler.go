package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/response"
)

type notificationService interface {
	Notify(ctx context.Context, actor models.Actor, req models.NotifyRequest) (*models.NotifyResult, error)
	ListMine(ctx context.Context, actor models.Actor) ([]models.Notification, error)
}

// NotificationHandler exposes notification endpoints.
type NotificationHandler struct {
	notifications notificationService
}

// NewNotificationHandler constructs handler.
func NewNotificationHandler(notifications notificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// Notify godoc
// @Summary Send a notification
// @Description Notify one user, the registrants and instructor of a course, or both
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.NotifyRequest true "Notification"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notifications [post]
func (h *NotificationHandler) Notify(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notification payload"))
		return
	}
	result, err := h.notifications.Notify(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List my notifications
// @Description Newest first
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.notifications.ListMine(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}
