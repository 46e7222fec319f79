package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/resit-exam-api/internal/models"
)

const resitExamColumns = `e.id, e.course_id, e.exam_date, e.location, e.no_of_questions, e.allowed_tools, e.notes, e.updated_at`

// ResitExamRepository manages the resit exam row of each course.
type ResitExamRepository struct {
	db *sqlx.DB
}

// NewResitExamRepository builds a ResitExamRepository.
func NewResitExamRepository(db *sqlx.DB) *ResitExamRepository {
	return &ResitExamRepository{db: db}
}

func (r *ResitExamRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByCourse returns the resit exam of a course.
func (r *ResitExamRepository) FindByCourse(ctx context.Context, exec sqlx.ExtContext, courseID int64) (*models.ResitExam, error) {
	query := `SELECT ` + resitExamColumns + ` FROM exams e WHERE e.course_id = $1 AND e.exam_type = 'resit' LIMIT 1`
	var exam models.ResitExam
	if err := sqlx.GetContext(ctx, r.exec(exec), &exam, query, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find resit exam: %w", err)
	}
	return &exam, nil
}

// Create inserts the resit exam for a course.
func (r *ResitExamRepository) Create(ctx context.Context, exam *models.ResitExam) error {
	const query = `INSERT INTO exams (course_id, exam_type, exam_date, location, no_of_questions, allowed_tools, notes)
        VALUES ($1, 'resit', $2, $3, $4, $5, $6)
        RETURNING id, updated_at`
	row := r.db.QueryRowxContext(ctx, query, exam.CourseID, exam.ExamDate, exam.Location, exam.NoOfQuestions, exam.AllowedTools, exam.Notes)
	if err := row.Scan(&exam.ID, &exam.UpdatedAt); err != nil {
		return fmt.Errorf("create resit exam: %w", err)
	}
	return nil
}

// UpdateDetails overwrites the instructor-owned logistics fields.
func (r *ResitExamRepository) UpdateDetails(ctx context.Context, exam *models.ResitExam) error {
	const query = `UPDATE exams SET no_of_questions = $1, allowed_tools = $2, notes = $3, updated_at = now()
        WHERE id = $4
        RETURNING updated_at`
	row := r.db.QueryRowxContext(ctx, query, exam.NoOfQuestions, exam.AllowedTools, exam.Notes, exam.ID)
	if err := row.Scan(&exam.UpdatedAt); err != nil {
		return fmt.Errorf("update resit exam details: %w", err)
	}
	return nil
}

// UpdateSchedule overwrites the date and location of an exam.
func (r *ResitExamRepository) UpdateSchedule(ctx context.Context, exec sqlx.ExtContext, examID int64, examDate time.Time, location string) error {
	const query = `UPDATE exams SET exam_date = $1, location = $2, updated_at = now() WHERE id = $3`
	if _, err := r.exec(exec).ExecContext(ctx, query, examDate, location, examID); err != nil {
		return fmt.Errorf("update resit schedule: %w", err)
	}
	return nil
}

// PatchSchedule updates only the provided date and location of a course's
// resit exam and returns the stored row. sql.ErrNoRows means no exam exists.
func (r *ResitExamRepository) PatchSchedule(ctx context.Context, courseID int64, examDate *time.Time, location *string) (*models.ResitExam, error) {
	query := `UPDATE exams e SET exam_date = COALESCE($1, e.exam_date), location = COALESCE($2, e.location), updated_at = now()
        WHERE e.course_id = $3 AND e.exam_type = 'resit'
        RETURNING ` + resitExamColumns
	var exam models.ResitExam
	if err := r.db.GetContext(ctx, &exam, query, examDate, location, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("patch resit schedule: %w", err)
	}
	return &exam, nil
}

// ListSummaries returns every resit exam with its course and registrant count.
func (r *ResitExamRepository) ListSummaries(ctx context.Context) ([]models.ResitExamSummary, error) {
	query := `SELECT ` + resitExamColumns + `, c.code AS course_code, c.name AS course_name, COUNT(rr.student_id) AS registrations
        FROM exams e
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN resit_registrations rr ON rr.exam_id = e.id
        WHERE e.exam_type = 'resit'
        GROUP BY e.id, c.code, c.name
        ORDER BY e.exam_date NULLS LAST, c.code`
	var exams []models.ResitExamSummary
	if err := r.db.SelectContext(ctx, &exams, query); err != nil {
		return nil, fmt.Errorf("list resit exams: %w", err)
	}
	return exams, nil
}

// Count returns the number of resit exams.
func (r *ResitExamRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM exams WHERE exam_type = 'resit'`
	var total int
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count resit exams: %w", err)
	}
	return total, nil
}
