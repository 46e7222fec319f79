package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/resit-exam-api/internal/ingest"
	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/validation"
)

const scheduleDateLayout = "2006-01-02 15:04"

var errNoResitExam = errors.New("no resit exam")

type scheduleCourseReader interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
}

type scheduleExamStore interface {
	FindByCourse(ctx context.Context, exec sqlx.ExtContext, courseID int64) (*models.ResitExam, error)
	UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, examID int64, examDate time.Time, location string) error
	PatchSchedule(ctx context.Context, courseID int64, examDate *time.Time, location *string) (*models.ResitExam, error)
}

type scheduleMetrics interface {
	batchObserver
	notificationRecorder
}

// ResitScheduleService applies the faculty secretary's resit schedule to
// existing resit exams and tells the people concerned.
type ResitScheduleService struct {
	courses       scheduleCourseReader
	exams         scheduleExamStore
	registrations registrantLister
	notifications notificationWriter
	tx            txProvider
	uploads       uploadStore
	metrics       scheduleMetrics
	parser        *ingest.Parser
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewResitScheduleService constructs a ResitScheduleService.
func NewResitScheduleService(
	courses scheduleCourseReader,
	exams scheduleExamStore,
	registrations registrantLister,
	notifications notificationWriter,
	tx txProvider,
	uploads uploadStore,
	metrics scheduleMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
) *ResitScheduleService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResitScheduleService{
		courses:       courses,
		exams:         exams,
		registrations: registrations,
		notifications: notifications,
		tx:            tx,
		uploads:       uploads,
		metrics:       metrics,
		parser:        ingest.NewParser(validate),
		validator:     validate,
		logger:        logger,
	}
}

// UploadSchedule applies schedule rows in order. Each row's exam update and
// its notifications commit together or not at all.
func (s *ResitScheduleService) UploadSchedule(ctx context.Context, actor models.Actor, rows []ingest.ScheduleRow) (*models.BatchResult, error) {
	if err := authorize(actor, opUploadSchedule); err != nil {
		return nil, err
	}

	result := models.NewBatchResult()
	notified := 0
	for _, row := range rows {
		n, msg, err := s.scheduleRow(ctx, row)
		if err != nil {
			s.logger.Error("resit schedule upload aborted",
				zap.Int("row", row.Line),
				zap.Int("processed", result.Processed),
				zap.Error(err),
			)
			return nil, err
		}
		if msg != "" {
			result.Fail(row.Line, "%s", msg)
			continue
		}
		notified += n
		result.Succeed()
	}

	if s.metrics != nil {
		s.metrics.ObserveBatch(BatchSchedule, result.Processed, result.Failed())
		s.metrics.RecordNotifications(sourceSchedule, notified)
	}
	s.logger.Info("resit schedule uploaded",
		zap.Int64("actor_id", actor.UserID),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed()),
		zap.Int("notifications", notified),
	)
	return result, nil
}

// UploadScheduleFile parses an uploaded schedule sheet and applies it. The
// upload is removed once handled, whatever the outcome.
func (s *ResitScheduleService) UploadScheduleFile(ctx context.Context, actor models.Actor, filename string) (*models.BatchResult, error) {
	defer s.discard(filename)

	if err := authorize(actor, opUploadSchedule); err != nil {
		return nil, err
	}

	table, err := ingest.ReadFile(s.uploads.Path(filename))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable schedule file: "+err.Error())
	}
	rows, err := s.parser.ScheduleRows(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return s.UploadSchedule(ctx, actor, rows)
}

// UpdateResitInfo changes the date and/or location of a course's resit exam.
// Absent fields keep their value. No notifications are sent.
func (s *ResitScheduleService) UpdateResitInfo(ctx context.Context, actor models.Actor, req models.ResitInfoUpdateRequest) (*models.ResitExam, error) {
	if err := authorize(actor, opUpdateResitInfo); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}

	var examDate *time.Time
	if req.ExamDate != nil {
		parsed, err := ingest.ParseExamDate(*req.ExamDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		examDate = &parsed
	}

	exam, err := s.exams.PatchSchedule(ctx, req.CourseID, examDate, req.Location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resit exam not found")
		}
		return nil, appErrors.Internal(err, "failed to update resit exam")
	}

	s.logger.Info("resit info updated", zap.Int64("course_id", req.CourseID), zap.Int64("exam_id", exam.ID))
	return exam, nil
}

// scheduleRow applies one row and returns the number of notifications written
// or the row's error message. Store failures are returned as errors.
func (s *ResitScheduleService) scheduleRow(ctx context.Context, row ingest.ScheduleRow) (int, string, error) {
	if row.Problem != "" {
		return 0, row.Problem, nil
	}

	course, err := s.courses.FindByCode(ctx, row.CourseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Sprintf("no course with code %s", row.CourseCode), nil
		}
		return 0, "", appErrors.Internal(err, "failed to look up course")
	}

	notified := 0
	err = withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		exam, err := s.exams.FindByCourse(ctx, exec, course.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return errNoResitExam
		}
		if err != nil {
			return err
		}
		if err := s.exams.UpdateSchedule(ctx, exec, exam.ID, row.ExamDate, row.Location); err != nil {
			return err
		}

		students, err := s.registrations.ListStudentIDs(ctx, exec, exam.ID)
		if err != nil {
			return err
		}
		when := row.ExamDate.Format(scheduleDateLayout)
		studentMsg := fmt.Sprintf("Your resit exam for %s (%s) is scheduled on %s at %s.", course.Name, course.Code, when, row.Location)
		if err := notifyAll(ctx, exec, s.notifications, students, studentMsg); err != nil {
			return err
		}
		notified = len(students)

		if course.InstructorID != nil {
			instructorMsg := fmt.Sprintf("The resit exam for %s (%s) is scheduled on %s at %s with %d registered students.",
				course.Name, course.Code, when, row.Location, len(students))
			if err := notifyAll(ctx, exec, s.notifications, []int64{*course.InstructorID}, instructorMsg); err != nil {
				return err
			}
			notified++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errNoResitExam) {
			return 0, fmt.Sprintf("no resit exam scheduled for course %s", course.Code), nil
		}
		return 0, "", appErrors.Internal(err, "failed to update resit exam")
	}
	return notified, "", nil
}

func (s *ResitScheduleService) discard(filename string) {
	if s.uploads == nil || filename == "" {
		return
	}
	if err := s.uploads.Delete(filename); err != nil {
		s.logger.Warn("failed to remove uploaded schedule file", zap.String("file", filename), zap.Error(err))
	}
}
