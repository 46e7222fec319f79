package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/resit-exam-api/internal/grading"
	"github.com/noah-isme/resit-exam-api/internal/models"
)

// GradeRepository persists one grade per (student, course).
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

func (r *GradeRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert writes the grade, updating the existing (student, course) row when
// there is one. It reports whether a new row was inserted.
func (r *GradeRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) (bool, error) {
	target := r.exec(exec)

	const findQuery = `SELECT id FROM grades WHERE student_id = $1 AND course_id = $2 FOR UPDATE`
	var id int64
	err := sqlx.GetContext(ctx, target, &id, findQuery, grade.StudentID, grade.CourseID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		const insertQuery = `INSERT INTO grades (student_id, course_id, grade, letter_grade)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`
		row := target.QueryRowxContext(ctx, insertQuery, grade.StudentID, grade.CourseID, grade.Score, grade.Letter)
		if err := row.Scan(&grade.ID, &grade.CreatedAt, &grade.UpdatedAt); err != nil {
			return false, fmt.Errorf("insert grade: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("find grade: %w", err)
	}

	const updateQuery = `UPDATE grades SET grade = $1, letter_grade = $2, updated_at = now()
        WHERE id = $3
        RETURNING created_at, updated_at`
	row := target.QueryRowxContext(ctx, updateQuery, grade.Score, grade.Letter, id)
	if err := row.Scan(&grade.CreatedAt, &grade.UpdatedAt); err != nil {
		return false, fmt.Errorf("update grade: %w", err)
	}
	grade.ID = id
	return false, nil
}

// FindByStudentAndCourse returns the grade of a student in a course.
func (r *GradeRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID int64) (*models.Grade, error) {
	const query = `SELECT id, student_id, course_id, grade, letter_grade, created_at, updated_at
        FROM grades WHERE student_id = $1 AND course_id = $2`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, studentID, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find grade: %w", err)
	}
	return &grade, nil
}

// ListByStudent returns a student's grades with course details.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentGrade, error) {
	const query = `SELECT c.id AS course_id, c.code AS course_code, c.name AS course_name, g.grade, g.letter_grade
        FROM grades g
        JOIN courses c ON c.id = g.course_id
        WHERE g.student_id = $1
        ORDER BY c.code`
	var grades []models.StudentGrade
	if err := r.db.SelectContext(ctx, &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list student grades: %w", err)
	}
	return grades, nil
}

// LettersByStudent returns every letter grade recorded for a student. A
// letter outside the grading scale is reported as an error.
func (r *GradeRepository) LettersByStudent(ctx context.Context, studentID int64) ([]grading.Letter, error) {
	const query = `SELECT letter_grade FROM grades WHERE student_id = $1`
	var letters []grading.Letter
	if err := r.db.SelectContext(ctx, &letters, query, studentID); err != nil {
		return nil, fmt.Errorf("list student letters: %w", err)
	}
	for _, l := range letters {
		if !l.Valid() {
			return nil, fmt.Errorf("list student letters: unknown letter grade %q", l)
		}
	}
	return letters, nil
}
