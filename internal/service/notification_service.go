package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/validation"
)

// Workflows that produce notifications, used as metric labels.
const (
	sourceRegistration = "registration"
	sourceSchedule     = "schedule"
	sourceManual       = "manual"
)

const notificationListLimit = 100

type notificationWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, n *models.Notification) error
}

type notificationStore interface {
	notificationWriter
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type registrantLister interface {
	ListStudentIDs(ctx context.Context, exec sqlx.ExtContext, examID int64) ([]int64, error)
}

// notifyAll writes one notification per recipient, in order, through exec.
func notifyAll(ctx context.Context, exec sqlx.ExtContext, store notificationWriter, recipients []int64, message string) error {
	for _, userID := range recipients {
		if err := store.Create(ctx, exec, &models.Notification{UserID: userID, Message: message}); err != nil {
			return fmt.Errorf("notify user %d: %w", userID, err)
		}
	}
	return nil
}

// NotificationService sends ad-hoc messages and lists a user's inbox.
type NotificationService struct {
	users         userFinder
	courses       courseReader
	exams         resitExamFinder
	registrations registrantLister
	notifications notificationStore
	tx            txProvider
	metrics       notificationRecorder
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(
	users userFinder,
	courses courseReader,
	exams resitExamFinder,
	registrations registrantLister,
	notifications notificationStore,
	tx txProvider,
	metrics notificationRecorder,
	validate *validator.Validate,
	logger *zap.Logger,
) *NotificationService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		users:         users,
		courses:       courses,
		exams:         exams,
		registrations: registrations,
		notifications: notifications,
		tx:            tx,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// Notify delivers the message to the target user and to the course audience
// (resit registrants, then the instructor). A user reached both ways gets two
// notifications. Unknown targets are skipped; nothing is written when no
// recipient remains.
func (s *NotificationService) Notify(ctx context.Context, actor models.Actor, req models.NotifyRequest) (*models.NotifyResult, error) {
	if err := authorize(actor, opNotify); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	if req.TargetUserID == nil && req.CourseID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target_user_id or course_id is required")
	}

	recipients := make([]int64, 0)
	if req.TargetUserID != nil {
		user, err := s.users.FindByID(ctx, *req.TargetUserID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			s.logger.Info("notify target not found", zap.Int64("user_id", *req.TargetUserID))
		case err != nil:
			return nil, appErrors.Internal(err, "failed to load target user")
		default:
			recipients = append(recipients, user.ID)
		}
	}
	if req.CourseID != nil {
		audience, err := s.courseAudience(ctx, *req.CourseID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to resolve course audience")
		}
		recipients = append(recipients, audience...)
	}

	if len(recipients) == 0 {
		return nil, appErrors.Clone(appErrors.ErrRejected, "no valid recipient")
	}

	if err := withTx(ctx, s.tx, func(exec sqlx.ExtContext) error {
		return notifyAll(ctx, exec, s.notifications, recipients, req.Message)
	}); err != nil {
		return nil, appErrors.Internal(err, "failed to store notifications")
	}

	if s.metrics != nil {
		s.metrics.RecordNotifications(sourceManual, len(recipients))
	}
	s.logger.Info("notifications sent", zap.Int64("actor_id", actor.UserID), zap.Int("recipients", len(recipients)))
	return &models.NotifyResult{Recipients: recipients}, nil
}

// ListMine returns the caller's notifications, newest first.
func (s *NotificationService) ListMine(ctx context.Context, actor models.Actor) ([]models.Notification, error) {
	if err := authorize(actor, opReadNotifications); err != nil {
		return nil, err
	}
	items, err := s.notifications.ListByUser(ctx, actor.UserID, notificationListLimit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list notifications")
	}
	return items, nil
}

// courseAudience resolves resit registrants followed by the instructor. An
// unknown course yields no one.
func (s *NotificationService) courseAudience(ctx context.Context, courseID int64) ([]int64, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Info("notify course not found", zap.Int64("course_id", courseID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var audience []int64
	exam, err := s.exams.FindByCourse(ctx, nil, courseID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		ids, err := s.registrations.ListStudentIDs(ctx, nil, exam.ID)
		if err != nil {
			return nil, err
		}
		audience = append(audience, ids...)
	}

	if course.InstructorID != nil {
		audience = append(audience, *course.InstructorID)
	}
	return audience, nil
}
