package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/resit-exam-api/internal/grading"
)

// Grade is the single grade record of a student in a course.
// Score is nil for DZ.
type Grade struct {
	ID        int64          `db:"id" json:"id"`
	StudentID int64          `db:"student_id" json:"student_id"`
	CourseID  int64          `db:"course_id" json:"course_id"`
	Score     *float64       `db:"grade" json:"grade"`
	Letter    grading.Letter `db:"letter_grade" json:"letter_grade"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// StudentGrade is a grade joined with its course for the student's transcript.
type StudentGrade struct {
	CourseID   int64          `db:"course_id" json:"course_id"`
	CourseCode string         `db:"course_code" json:"course_code"`
	CourseName string         `db:"course_name" json:"course_name"`
	Score      *float64       `db:"grade" json:"grade"`
	Letter     grading.Letter `db:"letter_grade" json:"letter_grade"`
}

// SubmitGradeRequest is the payload for a single grade submission.
type SubmitGradeRequest struct {
	StudentID int64      `json:"student_id" validate:"required,gt=0"`
	CourseID  int64      `json:"course_id" validate:"required,gt=0"`
	Grade     GradeToken `json:"grade" validate:"notblank"`
}

// GradeToken is a raw grade as submitted: a JSON number such as 85 or a
// string such as "85" or "DZ".
type GradeToken string

func (t *GradeToken) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = GradeToken(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("grade must be a number or a string: %w", err)
	}
	*t = GradeToken(n.String())
	return nil
}
