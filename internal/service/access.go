package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
	"github.com/noah-isme/resit-exam-api/pkg/validation"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// operation names a workflow entry point guarded by role.
type operation string

const (
	opIngestGrades      operation = "ingest_grades"
	opSubmitGrade       operation = "submit_grade"
	opSetResitDetails   operation = "set_resit_details"
	opRegisterResit     operation = "register_resit"
	opUploadSchedule    operation = "upload_schedule"
	opUpdateResitInfo   operation = "update_resit_info"
	opNotify            operation = "notify"
	opReadOwnRecords    operation = "read_own_records"
	opListParticipants  operation = "list_participants"
	opExportParticipant operation = "export_participants"
	opListResitExams    operation = "list_resit_exams"
	opReadNotifications operation = "read_notifications"
	opListCourses       operation = "list_courses"
	opDashboard         operation = "dashboard"
)

var (
	studentOperations = map[operation]bool{
		opRegisterResit:     true,
		opReadOwnRecords:    true,
		opReadNotifications: true,
		opListCourses:       true,
		opDashboard:         true,
	}
	instructorOperations = map[operation]bool{
		opIngestGrades:      true,
		opSubmitGrade:       true,
		opSetResitDetails:   true,
		opNotify:            true,
		opListParticipants:  true,
		opExportParticipant: true,
		opReadNotifications: true,
		opListCourses:       true,
		opDashboard:         true,
	}
	secretaryOperations = map[operation]bool{
		opUploadSchedule:    true,
		opUpdateResitInfo:   true,
		opNotify:            true,
		opListParticipants:  true,
		opExportParticipant: true,
		opListResitExams:    true,
		opReadNotifications: true,
		opListCourses:       true,
		opDashboard:         true,
	}
)

// authorize checks the actor's role against op before anything is read or written.
func authorize(actor models.Actor, op operation) error {
	var allowed bool
	switch actor.Role {
	case models.RoleStudent:
		allowed = studentOperations[op]
	case models.RoleInstructor:
		allowed = instructorOperations[op]
	case models.RoleFacultySecretary:
		allowed = secretaryOperations[op]
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "unknown role")
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may not %s", actor.Role, op))
	}
	return nil
}

// withTx runs fn inside a transaction. Without a provider fn receives a nil
// executor and repositories fall back to their own connection.
func withTx(ctx context.Context, provider txProvider, fn func(exec sqlx.ExtContext) error) (err error) {
	if provider == nil {
		return fn(nil)
	}
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// invalidPayload reports validator failures with their translated messages.
func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validation.Message(err))
}
