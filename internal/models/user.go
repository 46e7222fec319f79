package models

import (
	"fmt"
	"time"
)

// UserRole represents the closed set of roles known to the system.
type UserRole string

const (
	RoleStudent          UserRole = "student"
	RoleInstructor       UserRole = "instructor"
	RoleFacultySecretary UserRole = "faculty_secretary"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleFacultySecretary:
		return true
	default:
		return false
	}
}

// ParseUserRole converts a raw claim or column value into a UserRole.
func ParseUserRole(raw string) (UserRole, error) {
	role := UserRole(raw)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// User represents an application user stored in the users table.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
