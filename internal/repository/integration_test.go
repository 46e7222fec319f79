//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resit-exam-api/internal/grading"
	"github.com/noah-isme/resit-exam-api/internal/models"
	"github.com/noah-isme/resit-exam-api/internal/testutil/testdb"
	"github.com/noah-isme/resit-exam-api/pkg/database"
)

func TestResitLifecycleAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()
	db := h.DB

	var instructorID, studentID, courseID int64
	require.NoError(t, db.GetContext(ctx, &instructorID,
		`INSERT INTO users (email, password_hash, full_name, role) VALUES ('prof@uni.edu', 'x', 'Prof', 'instructor') RETURNING id`))
	require.NoError(t, db.GetContext(ctx, &studentID,
		`INSERT INTO users (email, password_hash, full_name, role) VALUES ('ali@uni.edu', 'x', 'Ali', 'student') RETURNING id`))
	require.NoError(t, db.GetContext(ctx, &courseID,
		`INSERT INTO courses (code, name, instructor_id) VALUES ('CS101', 'Intro', $1) RETURNING id`, instructorID))
	_, err = db.ExecContext(ctx, `INSERT INTO student_courses (student_id, course_id) VALUES ($1, $2)`, studentID, courseID)
	require.NoError(t, err)

	users := NewUserRepository(db)
	courses := NewCourseRepository(db)
	grades := NewGradeRepository(db)
	exams := NewResitExamRepository(db)
	registrations := NewResitRegistrationRepository(db)
	notifications := NewNotificationRepository(db)

	user, err := users.FindByEmail(ctx, "ALI@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, studentID, user.ID)

	enrolled, err := courses.IsEnrolled(ctx, studentID, courseID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	score := 40.0
	created, err := grades.Upsert(ctx, nil, &models.Grade{StudentID: studentID, CourseID: courseID, Score: &score, Letter: grading.FF})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = grades.Upsert(ctx, nil, &models.Grade{StudentID: studentID, CourseID: courseID, Score: &score, Letter: grading.FF})
	require.NoError(t, err)
	assert.False(t, created)

	var gradeRows int
	require.NoError(t, db.GetContext(ctx, &gradeRows, `SELECT COUNT(*) FROM grades`))
	assert.Equal(t, 1, gradeRows)

	exam := &models.ResitExam{CourseID: courseID}
	require.NoError(t, exams.Create(ctx, exam))
	err = exams.Create(ctx, &models.ResitExam{CourseID: courseID})
	assert.True(t, database.IsUniqueViolation(err))

	eligible, err := registrations.ListEligibleCourses(ctx, studentID, grading.EligibleLetters())
	require.NoError(t, err)
	require.Len(t, eligible, 1)

	require.NoError(t, registrations.Create(ctx, nil, &models.ResitRegistration{StudentID: studentID, ExamID: exam.ID}))
	err = registrations.Create(ctx, nil, &models.ResitRegistration{StudentID: studentID, ExamID: exam.ID})
	assert.True(t, database.IsUniqueViolation(err))

	date := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, exams.UpdateSchedule(ctx, nil, exam.ID, date, "Hall A"))
	location := "Hall B"
	patched, err := exams.PatchSchedule(ctx, courseID, nil, &location)
	require.NoError(t, err)
	assert.Equal(t, "Hall B", *patched.Location)
	assert.True(t, date.Equal(patched.ExamDate.UTC()))

	participants, err := registrations.ListParticipants(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "ali@uni.edu", participants[0].Email)

	require.NoError(t, notifications.Create(ctx, nil, &models.Notification{UserID: studentID, Message: "first"}))
	require.NoError(t, notifications.Create(ctx, nil, &models.Notification{UserID: studentID, Message: "second"}))
	list, err := notifications.ListByUser(ctx, studentID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)

	removed, err := registrations.Delete(ctx, nil, studentID, exam.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}
