package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/resit-exam-api/internal/ingest"
	"github.com/noah-isme/resit-exam-api/internal/models"
	appErrors "github.com/noah-isme/resit-exam-api/pkg/errors"
)

func TestAuthorizeUnknownRole(t *testing.T) {
	err := authorize(models.Actor{UserID: 1, Role: "admin"}, opDashboard)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Equal(t, "unknown role", appErrors.FromError(err).Message)
}

func TestWrongRoleMutatesNothing(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	course := seedCampus(store)
	exam := store.addExam(course.ID)
	store.setGrade(1, course.ID, "40")
	store.register(1, exam.ID)

	grades := newGradeIngestionService(t, store, nil, nil, nil)
	resits := newResitService(store, nil, nil)
	schedule := newScheduleService(store, nil, nil, nil)
	notify := newNotificationService(store, nil, nil)
	exports := NewExportService(resits, zap.NewNop(), nil, nil)

	location := "Hall"
	calls := map[string]func(models.Actor) error{
		"ingest grades": func(a models.Actor) error {
			_, err := grades.IngestGrades(ctx, a, course.ID, []ingest.GradeRow{gradeRow(1, 1, "95")})
			return err
		},
		"submit grade": func(a models.Actor) error {
			_, err := grades.SubmitGrade(ctx, a, models.SubmitGradeRequest{StudentID: 1, CourseID: course.ID, Grade: "95"})
			return err
		},
		"set resit details": func(a models.Actor) error {
			_, _, err := resits.SetResitDetails(ctx, a, models.ResitDetailsRequest{CourseID: course.ID})
			return err
		},
		"register": func(a models.Actor) error {
			_, err := resits.Register(ctx, a, course.ID)
			return err
		},
		"upload schedule": func(a models.Actor) error {
			_, err := schedule.UploadSchedule(ctx, a, []ingest.ScheduleRow{scheduleRowFor(1, "CS101", "2025-06-15", "Room 1")})
			return err
		},
		"update resit info": func(a models.Actor) error {
			_, err := schedule.UpdateResitInfo(ctx, a, models.ResitInfoUpdateRequest{CourseID: course.ID, Location: &location})
			return err
		},
		"notify": func(a models.Actor) error {
			_, err := notify.Notify(ctx, a, models.NotifyRequest{Message: "x", TargetUserID: int64Ptr(1)})
			return err
		},
		"export": func(a models.Actor) error {
			_, err := exports.ExportParticipants(ctx, a, course.ID, "csv")
			return err
		},
	}

	allowed := map[string][]models.UserRole{
		"ingest grades":     {models.RoleInstructor},
		"submit grade":      {models.RoleInstructor},
		"set resit details": {models.RoleInstructor},
		"register":          {models.RoleStudent},
		"upload schedule":   {models.RoleFacultySecretary},
		"update resit info": {models.RoleFacultySecretary},
		"notify":            {models.RoleInstructor, models.RoleFacultySecretary},
		"export":            {models.RoleInstructor, models.RoleFacultySecretary},
	}
	actors := []models.Actor{studentActor, instructorActor, secretaryActor}

	for name, call := range calls {
		for _, actor := range actors {
			if containsRole(allowed[name], actor.Role) {
				continue
			}
			t.Run(name+" as "+string(actor.Role), func(t *testing.T) {
				rows, writes := store.rowCount(), store.writes
				err := call(actor)
				require.Error(t, err)
				assert.ErrorIs(t, err, appErrors.ErrForbidden)
				assert.Equal(t, rows, store.rowCount())
				assert.Equal(t, writes, store.writes)
			})
		}
	}
}

func containsRole(roles []models.UserRole, role models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
