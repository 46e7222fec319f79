package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resit-exam-api/internal/middleware"
	"github.com/noah-isme/resit-exam-api/internal/models"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// Handlers groups every HTTP handler mounted by SetupRoutes.
type Handlers struct {
	Auth          *AuthHandler
	Courses       *CourseHandler
	Grades        *GradeHandler
	Resits        *ResitHandler
	Schedule      *ScheduleHandler
	Notifications *NotificationHandler
	Dashboard     *DashboardHandler
	Metrics       *MetricsHandler
}

// SetupRoutes mounts the ops endpoints at the root and the API under prefix.
// Role checks here are coarse; services enforce ownership.
func SetupRoutes(router *gin.Engine, prefix string, auth tokenValidator, h Handlers, exposeMetrics bool) {
	router.GET("/health", h.Metrics.Health)
	router.GET("/ready", h.Metrics.Ready)
	if exposeMetrics {
		router.GET("/metrics", h.Metrics.Prometheus)
	}

	api := router.Group(prefix)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))
	secured.GET("/auth/me", h.Auth.Me)
	secured.GET("/courses", h.Courses.List)
	secured.GET("/dashboard", h.Dashboard.Get)
	secured.GET("/notifications", h.Notifications.List)

	staff := middleware.RequireRoles(models.RoleInstructor, models.RoleFacultySecretary)
	secured.POST("/notifications", staff, h.Notifications.Notify)
	secured.GET("/courses/:courseId/resit-participants", staff, h.Resits.Participants)
	secured.GET("/courses/:courseId/resit-participants/export", staff, h.Resits.Export)

	instructor := secured.Group("/instructor", middleware.RequireRoles(models.RoleInstructor))
	instructor.POST("/grades", h.Grades.Submit)
	instructor.POST("/grades/upload", h.Grades.Upload)
	instructor.POST("/resit-details", h.Resits.SetDetails)

	student := secured.Group("/student", middleware.RequireRoles(models.RoleStudent))
	student.GET("/grades", h.Resits.MyGrades)
	student.GET("/resit-exams", h.Resits.MyExams)
	student.GET("/eligible-resit-courses", h.Resits.Eligible)
	student.POST("/resit-registrations", h.Resits.Register)

	faculty := secured.Group("/faculty", middleware.RequireRoles(models.RoleFacultySecretary))
	faculty.POST("/resit-schedule/upload", h.Schedule.Upload)
	faculty.PATCH("/resit-info", h.Schedule.UpdateInfo)
	faculty.GET("/resit-exams", h.Resits.ResitExams)
}
