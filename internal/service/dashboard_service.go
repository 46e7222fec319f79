package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/resit-exam-api/internal/dto"
	"github.com/noah-isme/resit-exam-api/internal/grading"
	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
)

type dashboardCourseReader interface {
	CountByStudent(ctx context.Context, studentID int64) (int, error)
	EnrollmentStatsByInstructor(ctx context.Context, instructorID int64) ([]models.CourseEnrollmentStat, error)
}

type dashboardGradeReader interface {
	LettersByStudent(ctx context.Context, studentID int64) ([]grading.Letter, error)
}

type dashboardExamCounter interface {
	Count(ctx context.Context) (int, error)
}

type dashboardRegistrationReader interface {
	CountByStudent(ctx context.Context, studentID int64) (int, error)
	Count(ctx context.Context) (int, error)
	StatsByInstructor(ctx context.Context, instructorID int64) ([]models.CourseResitStat, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Courses       dashboardCourseReader
	Grades        dashboardGradeReader
	Exams         dashboardExamCounter
	Registrations dashboardRegistrationReader
	Logger        *zap.Logger
}

// DashboardService composes the per-role dashboard payloads.
type DashboardService struct {
	courses       dashboardCourseReader
	grades        dashboardGradeReader
	exams         dashboardExamCounter
	registrations dashboardRegistrationReader
	logger        *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		courses:       params.Courses,
		grades:        params.Grades,
		exams:         params.Exams,
		registrations: params.Registrations,
		logger:        logger,
	}
}

// Get returns the dashboard matching the caller's role.
func (s *DashboardService) Get(ctx context.Context, actor models.Actor) (dto.Dashboard, error) {
	if err := authorize(actor, opDashboard); err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleStudent:
		return s.student(ctx, actor.UserID)
	case models.RoleInstructor:
		return s.instructor(ctx, actor.UserID)
	case models.RoleFacultySecretary:
		return s.faculty(ctx)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
}

func (s *DashboardService) student(ctx context.Context, studentID int64) (dto.Dashboard, error) {
	courses, err := s.courses.CountByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count courses")
	}
	resits, err := s.registrations.CountByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count resit registrations")
	}
	letters, err := s.grades.LettersByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load grades")
	}
	return dto.StudentDashboard{
		Role:             models.RoleStudent,
		TotalCourses:     courses,
		RegisteredResits: resits,
		GPA:              grading.GPA(letters),
	}, nil
}

func (s *DashboardService) instructor(ctx context.Context, instructorID int64) (dto.Dashboard, error) {
	courses, err := s.courses.EnrollmentStatsByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load course stats")
	}
	resits, err := s.registrations.StatsByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load resit stats")
	}
	if courses == nil {
		courses = []models.CourseEnrollmentStat{}
	}
	if resits == nil {
		resits = []models.CourseResitStat{}
	}
	return dto.InstructorDashboard{
		Role:       models.RoleInstructor,
		Courses:    courses,
		ResitStats: resits,
	}, nil
}

func (s *DashboardService) faculty(ctx context.Context) (dto.Dashboard, error) {
	registrations, err := s.registrations.Count(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count resit registrations")
	}
	exams, err := s.exams.Count(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count resit exams")
	}
	return dto.FacultyDashboard{
		Role:                    models.RoleFacultySecretary,
		TotalResitRegistrations: registrations,
		TotalResitExams:         exams,
	}, nil
}
