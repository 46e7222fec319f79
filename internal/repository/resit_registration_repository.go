package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/resit-exam-api/internal/grading"
	"github.com/noah-isme/resit-exam-api/internal/models"
)

// ResitRegistrationRepository stores student registrations for resit exams.
type ResitRegistrationRepository struct {
	db *sqlx.DB
}

// NewResitRegistrationRepository builds a ResitRegistrationRepository.
func NewResitRegistrationRepository(db *sqlx.DB) *ResitRegistrationRepository {
	return &ResitRegistrationRepository{db: db}
}

func (r *ResitRegistrationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a registration. A duplicate surfaces as a unique violation.
func (r *ResitRegistrationRepository) Create(ctx context.Context, exec sqlx.ExtContext, reg *models.ResitRegistration) error {
	const query = `INSERT INTO resit_registrations (student_id, exam_id) VALUES ($1, $2) RETURNING created_at`
	row := r.exec(exec).QueryRowxContext(ctx, query, reg.StudentID, reg.ExamID)
	if err := row.Scan(&reg.CreatedAt); err != nil {
		return fmt.Errorf("create resit registration: %w", err)
	}
	return nil
}

// Delete removes a registration and reports whether one existed.
func (r *ResitRegistrationRepository) Delete(ctx context.Context, exec sqlx.ExtContext, studentID, examID int64) (bool, error) {
	const query = `DELETE FROM resit_registrations WHERE student_id = $1 AND exam_id = $2`
	res, err := r.exec(exec).ExecContext(ctx, query, studentID, examID)
	if err != nil {
		return false, fmt.Errorf("delete resit registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete resit registration: %w", err)
	}
	return affected > 0, nil
}

// ListStudentIDs returns the registrants of an exam in registration order.
func (r *ResitRegistrationRepository) ListStudentIDs(ctx context.Context, exec sqlx.ExtContext, examID int64) ([]int64, error) {
	const query = `SELECT student_id FROM resit_registrations WHERE exam_id = $1 ORDER BY created_at, student_id`
	var ids []int64
	if err := sqlx.SelectContext(ctx, r.exec(exec), &ids, query, examID); err != nil {
		return nil, fmt.Errorf("list resit registrants: %w", err)
	}
	return ids, nil
}

// ListByStudent returns the resit exams a student is registered for.
func (r *ResitRegistrationRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentResitExam, error) {
	const query = `SELECT e.id AS exam_id, c.id AS course_id, c.code AS course_code, c.name AS course_name,
            e.exam_date, e.location, e.no_of_questions, e.allowed_tools, e.notes
        FROM resit_registrations rr
        JOIN exams e ON e.id = rr.exam_id
        JOIN courses c ON c.id = e.course_id
        WHERE rr.student_id = $1
        ORDER BY e.exam_date NULLS LAST, c.code`
	var exams []models.StudentResitExam
	if err := r.db.SelectContext(ctx, &exams, query, studentID); err != nil {
		return nil, fmt.Errorf("list student resit exams: %w", err)
	}
	return exams, nil
}

// ListEligibleCourses returns courses where the student holds one of the given
// letters, a resit exam exists, and the student has not registered yet.
func (r *ResitRegistrationRepository) ListEligibleCourses(ctx context.Context, studentID int64, letters []grading.Letter) ([]models.EligibleResitCourse, error) {
	const query = `SELECT c.id AS course_id, c.code AS course_code, c.name AS course_name, g.letter_grade,
            e.id AS exam_id, e.exam_date, e.location
        FROM grades g
        JOIN courses c ON c.id = g.course_id
        JOIN exams e ON e.course_id = c.id AND e.exam_type = 'resit'
        WHERE g.student_id = $1
          AND g.letter_grade = ANY($2)
          AND NOT EXISTS (
              SELECT 1 FROM resit_registrations rr WHERE rr.exam_id = e.id AND rr.student_id = g.student_id
          )
        ORDER BY c.code`
	codes := make([]string, len(letters))
	for i, l := range letters {
		codes[i] = string(l)
	}
	var courses []models.EligibleResitCourse
	if err := r.db.SelectContext(ctx, &courses, query, studentID, pq.Array(codes)); err != nil {
		return nil, fmt.Errorf("list eligible resit courses: %w", err)
	}
	return courses, nil
}

// ListParticipants returns the registrants of a course's resit exam with their grades.
func (r *ResitRegistrationRepository) ListParticipants(ctx context.Context, courseID int64) ([]models.ResitParticipant, error) {
	const query = `SELECT u.id AS student_id, u.email, u.full_name, g.grade, COALESCE(g.letter_grade, '') AS letter_grade,
            c.code AS course_code, c.name AS course_name, e.exam_date
        FROM resit_registrations rr
        JOIN exams e ON e.id = rr.exam_id AND e.exam_type = 'resit'
        JOIN courses c ON c.id = e.course_id
        JOIN users u ON u.id = rr.student_id
        LEFT JOIN grades g ON g.student_id = rr.student_id AND g.course_id = c.id
        WHERE c.id = $1
        ORDER BY u.email`
	var participants []models.ResitParticipant
	if err := r.db.SelectContext(ctx, &participants, query, courseID); err != nil {
		return nil, fmt.Errorf("list resit participants: %w", err)
	}
	return participants, nil
}

// CountByStudent returns how many resit exams a student is registered for.
func (r *ResitRegistrationRepository) CountByStudent(ctx context.Context, studentID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM resit_registrations WHERE student_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, studentID); err != nil {
		return 0, fmt.Errorf("count student resit registrations: %w", err)
	}
	return total, nil
}

// Count returns the number of registrations across all exams.
func (r *ResitRegistrationRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM resit_registrations`
	var total int
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("count resit registrations: %w", err)
	}
	return total, nil
}

// StatsByInstructor counts resit registrants per course of an instructor.
func (r *ResitRegistrationRepository) StatsByInstructor(ctx context.Context, instructorID int64) ([]models.CourseResitStat, error) {
	const query = `SELECT c.id AS course_id, c.code AS course_code, COUNT(rr.student_id) AS resit_students
        FROM courses c
        JOIN exams e ON e.course_id = c.id AND e.exam_type = 'resit'
        LEFT JOIN resit_registrations rr ON rr.exam_id = e.id
        WHERE c.instructor_id = $1
        GROUP BY c.id, c.code
        ORDER BY c.code`
	var stats []models.CourseResitStat
	if err := r.db.SelectContext(ctx, &stats, query, instructorID); err != nil {
		return nil, fmt.Errorf("resit registrant stats: %w", err)
	}
	return stats, nil
}
