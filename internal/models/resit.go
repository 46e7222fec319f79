package models

import (
	"time"

	"github.com/noah-isme/resit-exam-api/internal/grading"
)

// ExamTypeResit is the only exam type the workflow manages.
const ExamTypeResit = "resit"

// ResitExam is the at-most-one resit exam of a course. Every logistics field is optional.
type ResitExam struct {
	ID            int64      `db:"id" json:"id"`
	CourseID      int64      `db:"course_id" json:"course_id"`
	ExamDate      *time.Time `db:"exam_date" json:"exam_date,omitempty"`
	Location      *string    `db:"location" json:"location,omitempty"`
	NoOfQuestions *int       `db:"no_of_questions" json:"no_of_questions,omitempty"`
	AllowedTools  *string    `db:"allowed_tools" json:"allowed_tools,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// ResitRegistration links a student to a resit exam.
type ResitRegistration struct {
	StudentID int64     `db:"student_id" json:"student_id"`
	ExamID    int64     `db:"exam_id" json:"exam_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StudentResitExam is a resit exam the student is registered for.
type StudentResitExam struct {
	ExamID        int64      `db:"exam_id" json:"exam_id"`
	CourseID      int64      `db:"course_id" json:"course_id"`
	CourseCode    string     `db:"course_code" json:"course_code"`
	CourseName    string     `db:"course_name" json:"course_name"`
	ExamDate      *time.Time `db:"exam_date" json:"exam_date,omitempty"`
	Location      *string    `db:"location" json:"location,omitempty"`
	NoOfQuestions *int       `db:"no_of_questions" json:"no_of_questions,omitempty"`
	AllowedTools  *string    `db:"allowed_tools" json:"allowed_tools,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
}

// EligibleResitCourse is a course the student could still register a resit for.
type EligibleResitCourse struct {
	CourseID   int64          `db:"course_id" json:"course_id"`
	CourseCode string         `db:"course_code" json:"course_code"`
	CourseName string         `db:"course_name" json:"course_name"`
	Letter     grading.Letter `db:"letter_grade" json:"letter_grade"`
	ExamID     int64          `db:"exam_id" json:"exam_id"`
	ExamDate   *time.Time     `db:"exam_date" json:"exam_date,omitempty"`
	Location   *string        `db:"location" json:"location,omitempty"`
}

// ResitParticipant is one registrant of a course's resit exam with the grade that qualified them.
type ResitParticipant struct {
	StudentID  int64          `db:"student_id" json:"student_id"`
	Email      string         `db:"email" json:"email"`
	FullName   string         `db:"full_name" json:"full_name"`
	Score      *float64       `db:"grade" json:"grade"`
	Letter     grading.Letter `db:"letter_grade" json:"letter_grade"`
	CourseCode string         `db:"course_code" json:"course_code"`
	CourseName string         `db:"course_name" json:"course_name"`
	ExamDate   *time.Time     `db:"exam_date" json:"exam_date,omitempty"`
}

// ResitExamSummary lists a resit exam with its course and registrant count.
type ResitExamSummary struct {
	ResitExam
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseName    string `db:"course_name" json:"course_name"`
	Registrations int    `db:"registrations" json:"registrations"`
}

// ResitDetailsRequest sets the instructor-owned logistics of a course's resit exam.
type ResitDetailsRequest struct {
	CourseID      int64   `json:"course_id" validate:"required,gt=0"`
	NoOfQuestions *int    `json:"no_of_questions" validate:"omitempty,gte=0"`
	AllowedTools  *string `json:"allowed_tools" validate:"omitempty,max=500"`
	Notes         *string `json:"notes" validate:"omitempty,max=2000"`
}

// ResitRegistrationRequest asks to register the caller for a course's resit exam.
type ResitRegistrationRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
}

// ResitInfoUpdateRequest partially updates the date and location of a resit exam.
// Absent fields are left unchanged.
type ResitInfoUpdateRequest struct {
	CourseID int64   `json:"course_id" validate:"required,gt=0"`
	ExamDate *string `json:"exam_date" validate:"omitempty,notblank"`
	Location *string `json:"location" validate:"omitempty,notblank,max=255"`
}
