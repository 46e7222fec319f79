package models

// Course is a catalogue entry, optionally taught by one instructor.
type Course struct {
	ID           int64  `db:"id" json:"id"`
	Code         string `db:"code" json:"code"`
	Name         string `db:"name" json:"name"`
	InstructorID *int64 `db:"instructor_id" json:"instructor_id,omitempty"`
}

// CourseEnrollmentStat counts the students enrolled in a course.
type CourseEnrollmentStat struct {
	CourseID      int64  `db:"course_id" json:"course_id"`
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseName    string `db:"course_name" json:"course_name"`
	TotalStudents int    `db:"total_students" json:"total_students"`
}

// CourseResitStat counts the resit registrants of a course.
type CourseResitStat struct {
	CourseID      int64  `db:"course_id" json:"course_id"`
	CourseCode    string `db:"course_code" json:"course_code"`
	ResitStudents int    `db:"resit_students" json:"resit_students"`
}
