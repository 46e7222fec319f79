package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resit-exam-api/internal/models"
	"github.com/noah-isme/resit-exam-api/pkg/response"
)

type courseService interface {
	ListCourses(ctx context.Context, actor models.Actor) ([]models.Course, error)
}

// CourseHandler lists the courses visible to the caller.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs handler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Description Enrolled courses for students, taught courses for instructors, every course for the faculty secretary
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	courses, err := h.courses.ListCourses(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}
