package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
)

type courseLister interface {
	List(ctx context.Context) ([]models.Course, error)
	ListByInstructor(ctx context.Context, instructorID int64) ([]models.Course, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.Course, error)
}

// CourseService lists the courses visible to the caller.
type CourseService struct {
	repo   courseLister
	logger *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseLister, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, logger: logger}
}

// ListCourses returns enrolled courses for students, taught courses for
// instructors and the full catalogue for the faculty secretary.
func (s *CourseService) ListCourses(ctx context.Context, actor models.Actor) ([]models.Course, error) {
	if err := authorize(actor, opListCourses); err != nil {
		return nil, err
	}

	var (
		courses []models.Course
		err     error
	)
	switch actor.Role {
	case models.RoleStudent:
		courses, err = s.repo.ListByStudent(ctx, actor.UserID)
	case models.RoleInstructor:
		courses, err = s.repo.ListByInstructor(ctx, actor.UserID)
	case models.RoleFacultySecretary:
		courses, err = s.repo.List(ctx)
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, nil
}
