package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/resit-exam-api/internal/grading"
	"github.com/noah-isme/resit-exam-api/internal/models"
	"github.com/noah-isme/resit-exam-api/pkg/database"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/validation"
)

type resitCourseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	IsEnrolled(ctx context.Context, studentID, courseID int64) (bool, error)
}

type resitGradeReader interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID int64) (*models.Grade, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.StudentGrade, error)
}

type resitExamStore interface {
	FindByCourse(ctx context.Context, exec sqlx.ExtContext, courseID int64) (*models.ResitExam, error)
	Create(ctx context.Context, exam *models.ResitExam) error
	UpdateDetails(ctx context.Context, exam *models.ResitExam) error
	ListSummaries(ctx context.Context) ([]models.ResitExamSummary, error)
}

type resitRegistrationStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, reg *models.ResitRegistration) error
	ListByStudent(ctx context.Context, studentID int64) ([]models.StudentResitExam, error)
	ListEligibleCourses(ctx context.Context, studentID int64, letters []grading.Letter) ([]models.EligibleResitCourse, error)
	ListParticipants(ctx context.Context, courseID int64) ([]models.ResitParticipant, error)
}

type notificationRecorder interface {
	RecordNotifications(source string, n int)
}

// ResitService covers resit exam logistics, student registration and the
// read views around them.
type ResitService struct {
	courses       resitCourseReader
	grades        resitGradeReader
	exams         resitExamStore
	registrations resitRegistrationStore
	notifications notificationWriter
	tx            txProvider
	metrics       notificationRecorder
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewResitService constructs a ResitService.
func NewResitService(
	courses resitCourseReader,
	grades resitGradeReader,
	exams resitExamStore,
	registrations resitRegistrationStore,
	notifications notificationWriter,
	tx txProvider,
	metrics notificationRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *ResitService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResitService{
		courses:       courses,
		grades:        grades,
		exams:         exams,
		registrations: registrations,
		notifications: notifications,
		tx:            tx,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// SetResitDetails creates the course's resit exam or updates its instructor
// owned fields. The boolean reports whether a new exam was created.
func (s *ResitService) SetResitDetails(ctx context.Context, actor models.Actor, req models.ResitDetailsRequest) (*models.ResitExam, bool, error) {
	if err := authorize(actor, opSetResitDetails); err != nil {
		return nil, false, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, false, invalidPayload(err)
	}
	if _, err := s.loadCourse(ctx, req.CourseID); err != nil {
		return nil, false, err
	}

	exam, err := s.exams.FindByCourse(ctx, nil, req.CourseID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exam = &models.ResitExam{
			CourseID:      req.CourseID,
			NoOfQuestions: req.NoOfQuestions,
			AllowedTools:  req.AllowedTools,
			Notes:         req.Notes,
		}
		if err := s.exams.Create(ctx, exam); err != nil {
			if database.IsUniqueViolation(err) {
				return nil, false, appErrors.Clone(appErrors.ErrConflict, "resit exam already exists for course")
			}
			return nil, false, appErrors.Internal(err, "failed to create resit exam")
		}
		s.logger.Info("resit exam created", zap.Int64("course_id", req.CourseID), zap.Int64("exam_id", exam.ID))
		return exam, true, nil
	case err != nil:
		return nil, false, appErrors.Internal(err, "failed to load resit exam")
	}

	exam.NoOfQuestions = req.NoOfQuestions
	exam.AllowedTools = req.AllowedTools
	exam.Notes = req.Notes
	if err := s.exams.UpdateDetails(ctx, exam); err != nil {
		return nil, false, appErrors.Internal(err, "failed to update resit exam")
	}
	return exam, false, nil
}

// Register signs the student up for the course's resit exam and notifies them
// in the same transaction.
func (s *ResitService) Register(ctx context.Context, actor models.Actor, courseID int64) (*models.ResitRegistration, error) {
	if err := authorize(actor, opRegisterResit); err != nil {
		return nil, err
	}

	enrolled, err := s.courses.IsEnrolled(ctx, actor.UserID, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in course")
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	grade, err := s.grades.FindByStudentAndCourse(ctx, actor.UserID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRejected, "not eligible for resit: no grade recorded")
		}
		return nil, appErrors.Internal(err, "failed to load grade")
	}
	if !grading.IsResitEligible(grade.Letter) {
		return nil, appErrors.Clone(appErrors.ErrRejected, fmt.Sprintf("not eligible for resit with grade %s", grade.Letter))
	}

	exam, err := s.exams.FindByCourse(ctx, nil, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRejected, "no resit exam scheduled yet")
		}
		return nil, appErrors.Internal(err, "failed to load resit exam")
	}

	reg := &models.ResitRegistration{StudentID: actor.UserID, ExamID: exam.ID}
	err = withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		if err := s.registrations.Create(ctx, exec, reg); err != nil {
			return err
		}
		message := fmt.Sprintf("You are registered for the resit exam of %s (%s).", course.Name, course.Code)
		return notifyAll(ctx, exec, s.notifications, []int64{actor.UserID}, message)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already registered")
		}
		return nil, appErrors.Internal(err, "failed to register for resit")
	}

	if s.metrics != nil {
		s.metrics.RecordNotifications(sourceRegistration, 1)
	}
	s.logger.Info("resit registration created", zap.Int64("student_id", actor.UserID), zap.Int64("exam_id", exam.ID))
	return reg, nil
}

// ListMyResitExams lists the resit exams the student is registered for.
func (s *ResitService) ListMyResitExams(ctx context.Context, actor models.Actor) ([]models.StudentResitExam, error) {
	if err := authorize(actor, opReadOwnRecords); err != nil {
		return nil, err
	}
	exams, err := s.registrations.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list resit exams")
	}
	return exams, nil
}

// ListEligibleResitCourses lists courses with a resit exam the student
// qualifies for and has not registered to yet.
func (s *ResitService) ListEligibleResitCourses(ctx context.Context, actor models.Actor) ([]models.EligibleResitCourse, error) {
	if err := authorize(actor, opReadOwnRecords); err != nil {
		return nil, err
	}
	courses, err := s.registrations.ListEligibleCourses(ctx, actor.UserID, grading.EligibleLetters())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list eligible courses")
	}
	return courses, nil
}

// ListMyGrades returns the student's transcript.
func (s *ResitService) ListMyGrades(ctx context.Context, actor models.Actor) ([]models.StudentGrade, error) {
	if err := authorize(actor, opReadOwnRecords); err != nil {
		return nil, err
	}
	grades, err := s.grades.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list grades")
	}
	return grades, nil
}

// ListParticipants lists the resit registrants of a course. Instructors only
// see their own courses.
func (s *ResitService) ListParticipants(ctx context.Context, actor models.Actor, courseID int64) ([]models.ResitParticipant, error) {
	if err := authorize(actor, opListParticipants); err != nil {
		return nil, err
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleInstructor && (course.InstructorID == nil || *course.InstructorID != actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course is not taught by you")
	}

	participants, err := s.registrations.ListParticipants(ctx, courseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list resit participants")
	}
	return participants, nil
}

// ListResitExams lists every resit exam with its registrant count.
func (s *ResitService) ListResitExams(ctx context.Context, actor models.Actor) ([]models.ResitExamSummary, error) {
	if err := authorize(actor, opListResitExams); err != nil {
		return nil, err
	}
	exams, err := s.exams.ListSummaries(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list resit exams")
	}
	return exams, nil
}

func (s *ResitService) loadCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}
