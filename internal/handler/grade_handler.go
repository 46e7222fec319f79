package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/response"
)

type gradeService interface {
	SubmitGrade(ctx context.Context, actor models.Actor, req models.SubmitGradeRequest) (*models.Grade, error)
	IngestGradeFile(ctx context.Context, actor models.Actor, courseID int64, filename string) (*models.BatchResult, error)
}

// GradeHandler exposes grade submission endpoints.
type GradeHandler struct {
	grades  gradeService
	uploads uploadSink
	policy  UploadPolicy
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService, uploads uploadSink, policy UploadPolicy) *GradeHandler {
	return &GradeHandler{grades: grades, uploads: uploads, policy: policy}
}

// Submit godoc
// @Summary Submit a single grade
// @Description Record a numeric grade or DZ for a student and reconcile their resit registration
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.SubmitGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /instructor/grades [post]
func (h *GradeHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.SubmitGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}
	grade, err := h.grades.SubmitGrade(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade)
}

// Upload godoc
// @Summary Upload a grade sheet
// @Description Ingest a CSV or XLSX sheet of grades for one course, row by row
// @Tags Grades
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param course_id formData int true "Course ID"
// @Param file formData file true "Grade sheet (student_id or email, grade)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /instructor/grades/upload [post]
func (h *GradeHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	courseID, err := parseCourseID(c.PostForm("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename, err := stageUpload(c, h.uploads, h.policy)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.grades.IngestGradeFile(c.Request.Context(), actor, courseID, filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
