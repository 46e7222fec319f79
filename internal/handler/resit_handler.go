package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resit-exam-api/internal/models"
	"github.com/noah-isme/resit-exam-api/internal/service"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/response"
)

type resitService interface {
	SetResitDetails(ctx context.Context, actor models.Actor, req models.ResitDetailsRequest) (*models.ResitExam, bool, error)
	Register(ctx context.Context, actor models.Actor, courseID int64) (*models.ResitRegistration, error)
	ListMyResitExams(ctx context.Context, actor models.Actor) ([]models.StudentResitExam, error)
	ListEligibleResitCourses(ctx context.Context, actor models.Actor) ([]models.EligibleResitCourse, error)
	ListMyGrades(ctx context.Context, actor models.Actor) ([]models.StudentGrade, error)
	ListParticipants(ctx context.Context, actor models.Actor, courseID int64) ([]models.ResitParticipant, error)
	ListResitExams(ctx context.Context, actor models.Actor) ([]models.ResitExamSummary, error)
}

type participantExporter interface {
	ExportParticipants(ctx context.Context, actor models.Actor, courseID int64, format string) (*service.ExportFile, error)
}

// ResitHandler exposes resit exam endpoints for all three roles.
type ResitHandler struct {
	resits   resitService
	exporter participantExporter
}

// NewResitHandler constructs handler.
func NewResitHandler(resits resitService, exporter participantExporter) *ResitHandler {
	return &ResitHandler{resits: resits, exporter: exporter}
}

// SetDetails godoc
// @Summary Set resit exam details
// @Description Create or update the number of questions, allowed tools and notes of a course's resit exam
// @Tags Resit Exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ResitDetailsRequest true "Resit details"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /instructor/resit-details [post]
func (h *ResitHandler) SetDetails(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ResitDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resit details payload"))
		return
	}
	exam, created, err := h.resits.SetResitDetails(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.Created(c, exam)
		return
	}
	response.JSON(c, http.StatusOK, exam)
}

// Register godoc
// @Summary Register for a resit exam
// @Tags Resit Exams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ResitRegistrationRequest true "Course to register for"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /student/resit-registrations [post]
func (h *ResitHandler) Register(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ResitRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CourseID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course_id is required"))
		return
	}
	reg, err := h.resits.Register(c.Request.Context(), actor, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// MyExams godoc
// @Summary List my resit exams
// @Tags Resit Exams
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/resit-exams [get]
func (h *ResitHandler) MyExams(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	exams, err := h.resits.ListMyResitExams(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams)
}

// Eligible godoc
// @Summary List courses open for resit registration
// @Tags Resit Exams
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/eligible-resit-courses [get]
func (h *ResitHandler) Eligible(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	courses, err := h.resits.ListEligibleResitCourses(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// MyGrades godoc
// @Summary List my grades
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/grades [get]
func (h *ResitHandler) MyGrades(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	grades, err := h.resits.ListMyGrades(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades)
}

// Participants godoc
// @Summary List resit participants of a course
// @Tags Resit Exams
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId}/resit-participants [get]
func (h *ResitHandler) Participants(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	courseID, err := parseCourseID(c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	participants, err := h.resits.ListParticipants(c.Request.Context(), actor, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participants, map[string]interface{}{"total": len(participants)})
}

// Export godoc
// @Summary Export resit participants
// @Description Download the resit participants of a course as CSV or PDF
// @Tags Resit Exams
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{courseId}/resit-participants/export [get]
func (h *ResitHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	courseID, err := parseCourseID(c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.ExportParticipants(c.Request.Context(), actor, courseID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// ResitExams godoc
// @Summary List all resit exams
// @Description Every resit exam with its course and registrant count
// @Tags Resit Exams
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /faculty/resit-exams [get]
func (h *ResitHandler) ResitExams(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	exams, err := h.resits.ListResitExams(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams)
}
