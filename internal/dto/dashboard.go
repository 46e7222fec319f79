package dto

import "github.com/noah-isme/resit-exam-api/internal/models"

// Dashboard is the role-shaped landing payload.
type Dashboard interface {
	DashboardRole() models.UserRole
}

// StudentDashboard summarises a student's standing.
type StudentDashboard struct {
	Role             models.UserRole `json:"role"`
	TotalCourses     int             `json:"total_courses"`
	RegisteredResits int             `json:"registered_resits"`
	GPA              *float64        `json:"gpa"`
}

// DashboardRole implements Dashboard.
func (d StudentDashboard) DashboardRole() models.UserRole { return d.Role }

// InstructorDashboard lists the instructor's courses with enrollment and resit counts.
type InstructorDashboard struct {
	Role       models.UserRole               `json:"role"`
	Courses    []models.CourseEnrollmentStat `json:"courses"`
	ResitStats []models.CourseResitStat      `json:"resit_stats"`
}

// DashboardRole implements Dashboard.
func (d InstructorDashboard) DashboardRole() models.UserRole { return d.Role }

// FacultyDashboard gives the secretary faculty-wide resit totals.
type FacultyDashboard struct {
	Role                    models.UserRole `json:"role"`
	TotalResitRegistrations int             `json:"total_resit_registrations"`
	TotalResitExams         int             `json:"total_resit_exams"`
}

// DashboardRole implements Dashboard.
func (d FacultyDashboard) DashboardRole() models.UserRole { return d.Role }
