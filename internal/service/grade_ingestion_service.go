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
	"github.com/noah-isme/resit-exam-api/internal/ingest"
	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/validation"
)

type studentLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type gradeWriter interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) (bool, error)
}

type resitExamFinder interface {
	FindByCourse(ctx context.Context, exec sqlx.ExtContext, courseID int64) (*models.ResitExam, error)
}

type registrationRemover interface {
	Delete(ctx context.Context, exec sqlx.ExtContext, studentID, examID int64) (bool, error)
}

// uploadStore resolves and discards uploaded sheets.
type uploadStore interface {
	Path(filename string) string
	Delete(filename string) error
}

type batchObserver interface {
	ObserveBatch(kind string, processed, failed int)
}

// GradeIngestionService records grades one at a time or from uploaded sheets
// and keeps resit registrations consistent with the recorded letter.
type GradeIngestionService struct {
	users         studentLookup
	courses       courseReader
	grades        gradeWriter
	exams         resitExamFinder
	registrations registrationRemover
	tx            txProvider
	uploads       uploadStore
	metrics       batchObserver
	parser        *ingest.Parser
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewGradeIngestionService constructs a GradeIngestionService.
func NewGradeIngestionService(
	users studentLookup,
	courses courseReader,
	grades gradeWriter,
	exams resitExamFinder,
	registrations registrationRemover,
	tx txProvider,
	uploads uploadStore,
	metrics batchObserver,
	validate *validator.Validate,
	logger *zap.Logger,
) *GradeIngestionService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeIngestionService{
		users:         users,
		courses:       courses,
		grades:        grades,
		exams:         exams,
		registrations: registrations,
		tx:            tx,
		uploads:       uploads,
		metrics:       metrics,
		parser:        ingest.NewParser(validate),
		validator:     validate,
		logger:        logger,
	}
}

// SubmitGrade records one grade and reconciles the student's resit registration.
func (s *GradeIngestionService) SubmitGrade(ctx context.Context, actor models.Actor, req models.SubmitGradeRequest) (*models.Grade, error) {
	if err := authorize(actor, opSubmitGrade); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}

	if _, err := s.loadCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to load student")
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a student")
	}

	result, err := grading.Classify(string(req.Grade))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid grade %q", req.Grade))
	}

	grade := &models.Grade{StudentID: user.ID, CourseID: req.CourseID, Score: result.Score, Letter: result.Letter}
	if err := withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		return s.apply(ctx, exec, grade)
	}); err != nil {
		return nil, appErrors.Internal(err, "failed to store grade")
	}
	return grade, nil
}

// IngestGrades applies a validated sheet row by row. Each row commits on its
// own; row failures are reported with their row number and never undo other
// rows. A store failure ends the request.
func (s *GradeIngestionService) IngestGrades(ctx context.Context, actor models.Actor, courseID int64, rows []ingest.GradeRow) (*models.BatchResult, error) {
	if err := authorize(actor, opIngestGrades); err != nil {
		return nil, err
	}
	if _, err := s.loadCourse(ctx, courseID); err != nil {
		return nil, err
	}

	result := models.NewBatchResult()
	for _, row := range rows {
		msg, err := s.ingestRow(ctx, courseID, row)
		if err != nil {
			s.logger.Error("grade batch aborted",
				zap.Int64("course_id", courseID),
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
		result.Succeed()
	}

	if s.metrics != nil {
		s.metrics.ObserveBatch(BatchGrades, result.Processed, result.Failed())
	}
	s.logger.Info("grade batch ingested",
		zap.Int64("course_id", courseID),
		zap.Int64("actor_id", actor.UserID),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed()),
	)
	return result, nil
}

// IngestGradeFile parses an uploaded sheet and ingests it. The upload is
// removed once handled, whatever the outcome.
func (s *GradeIngestionService) IngestGradeFile(ctx context.Context, actor models.Actor, courseID int64, filename string) (*models.BatchResult, error) {
	defer s.discard(filename)

	if err := authorize(actor, opIngestGrades); err != nil {
		return nil, err
	}

	table, err := ingest.ReadFile(s.uploads.Path(filename))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable grade file: "+err.Error())
	}
	rows, err := s.parser.GradeRows(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return s.IngestGrades(ctx, actor, courseID, rows)
}

// ingestRow returns the row's error message, or an error when the store
// fails.
func (s *GradeIngestionService) ingestRow(ctx context.Context, courseID int64, row ingest.GradeRow) (string, error) {
	if row.Problem != "" {
		return row.Problem, nil
	}

	user, err := s.findStudent(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Sprintf("no user with identifier %s", row.Identifier()), nil
		}
		return "", appErrors.Internal(err, "failed to look up student")
	}
	if user.Role != models.RoleStudent {
		return fmt.Sprintf("user %s is not a student", row.Identifier()), nil
	}

	result, err := grading.Classify(row.Grade)
	if err != nil {
		return fmt.Sprintf("invalid grade %q", row.Grade), nil
	}

	grade := &models.Grade{StudentID: user.ID, CourseID: courseID, Score: result.Score, Letter: result.Letter}
	if err := withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		return s.apply(ctx, exec, grade)
	}); err != nil {
		return "", appErrors.Internal(err, "failed to store grade")
	}
	return "", nil
}

func (s *GradeIngestionService) findStudent(ctx context.Context, row ingest.GradeRow) (*models.User, error) {
	switch {
	case row.StudentID != nil:
		return s.users.FindByID(ctx, *row.StudentID)
	case row.Email != nil:
		return s.users.FindByEmail(ctx, *row.Email)
	default:
		return nil, sql.ErrNoRows
	}
}

// apply upserts the grade and drops a resit registration the new letter no
// longer justifies.
func (s *GradeIngestionService) apply(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) error {
	if _, err := s.grades.Upsert(ctx, exec, grade); err != nil {
		return err
	}
	if grading.IsResitEligible(grade.Letter) {
		return nil
	}

	exam, err := s.exams.FindByCourse(ctx, exec, grade.CourseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	removed, err := s.registrations.Delete(ctx, exec, grade.StudentID, exam.ID)
	if err != nil {
		return err
	}
	if removed {
		s.logger.Info("resit registration withdrawn after passing grade",
			zap.Int64("student_id", grade.StudentID),
			zap.Int64("exam_id", exam.ID),
			zap.String("letter", string(grade.Letter)),
		)
	}
	return nil
}

func (s *GradeIngestionService) loadCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Internal(err, "failed to load course")
	}
	return course, nil
}

func (s *GradeIngestionService) discard(filename string) {
	if s.uploads == nil || filename == "" {
		return
	}
	if err := s.uploads.Delete(filename); err != nil {
		s.logger.Warn("failed to remove uploaded grade file", zap.String("file", filename), zap.Error(err))
	}
}
