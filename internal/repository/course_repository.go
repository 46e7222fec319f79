package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/resit-exam-api/internal/models"
)

const courseColumns = `c.id, c.code, c.name, c.instructor_id`

// CourseRepository reads courses and their enrollments.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository builds a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c WHERE c.id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return &course, nil
}

// FindByCode returns a course by its unique code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c WHERE c.code = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find course by code: %w", err)
	}
	return &course, nil
}

// IsEnrolled reports whether the student is enrolled in the course.
func (r *CourseRepository) IsEnrolled(ctx context.Context, studentID, courseID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM student_courses WHERE student_id = $1 AND course_id = $2)`
	var enrolled bool
	if err := r.db.GetContext(ctx, &enrolled, query, studentID, courseID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return enrolled, nil
}

// List returns every course ordered by code.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c ORDER BY c.code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListByInstructor returns the courses taught by an instructor.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID int64) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c WHERE c.instructor_id = $1 ORDER BY c.code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, instructorID); err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	return courses, nil
}

// ListByStudent returns the courses a student is enrolled in.
func (r *CourseRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses c
        JOIN student_courses sc ON sc.course_id = c.id
        WHERE sc.student_id = $1
        ORDER BY c.code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list student courses: %w", err)
	}
	return courses, nil
}

// CountByStudent returns the number of courses a student is enrolled in.
func (r *CourseRepository) CountByStudent(ctx context.Context, studentID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM student_courses WHERE student_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, studentID); err != nil {
		return 0, fmt.Errorf("count student courses: %w", err)
	}
	return total, nil
}

// EnrollmentStatsByInstructor counts enrolled students per course of an instructor.
func (r *CourseRepository) EnrollmentStatsByInstructor(ctx context.Context, instructorID int64) ([]models.CourseEnrollmentStat, error) {
	const query = `SELECT c.id AS course_id, c.code AS course_code, c.name AS course_name, COUNT(sc.student_id) AS total_students
        FROM courses c
        LEFT JOIN student_courses sc ON sc.course_id = c.id
        WHERE c.instructor_id = $1
        GROUP BY c.id, c.code, c.name
        ORDER BY c.code`
	var stats []models.CourseEnrollmentStat
	if err := r.db.SelectContext(ctx, &stats, query, instructorID); err != nil {
		return nil, fmt.Errorf("course enrollment stats: %w", err)
	}
	return stats, nil
}
