package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/response"
)

type scheduleService interface {
	UploadScheduleFile(ctx context.Context, actor models.Actor, filename string) (*models.BatchResult, error)
	UpdateResitInfo(ctx context.Context, actor models.Actor, req models.ResitInfoUpdateRequest) (*models.ResitExam, error)
}

// ScheduleHandler exposes the faculty secretary's resit scheduling endpoints.
type ScheduleHandler struct {
	schedule scheduleService
	uploads  uploadSink
	policy   UploadPolicy
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(schedule scheduleService, uploads uploadSink, policy UploadPolicy) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule, uploads: uploads, policy: policy}
}

// Upload godoc
// @Summary Upload the resit schedule
// @Description Set date and location of resit exams from a CSV or XLSX sheet and notify registrants and instructors
// @Tags Resit Schedule
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Schedule sheet (course_code, exam_date, location)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /faculty/resit-schedule/upload [post]
func (h *ScheduleHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filename, err := stageUpload(c, h.uploads, h.policy)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.schedule.UploadScheduleFile(c.Request.Context(), actor, filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// UpdateInfo godoc
// @Summary Update resit date or location
// @Description Partially update the date and location of one course's resit exam
// @Tags Resit Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ResitInfoUpdateRequest true "Resit info"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /faculty/resit-info [patch]
func (h *ScheduleHandler) UpdateInfo(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ResitInfoUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resit info payload"))
		return
	}
	exam, err := h.schedule.UpdateResitInfo(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam)
}
