package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resit-exam-api/internal/dto"
	"github.com/noah-isme/resit-exam-api/internal/models"
	"github.com/noah-isme/resit-exam-api/pkg/response"
)

type dashboardService interface {
	Get(ctx context.Context, actor models.Actor) (dto.Dashboard, error)
}

// DashboardHandler serves the role-specific dashboard.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Role dashboard
// @Description Student: course and resit counts with GPA. Instructor: enrollment and resit stats per course. Faculty secretary: totals.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	dashboard, err := h.service.Get(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard)
}
