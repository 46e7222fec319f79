package models

import "time"

// Notification is an append-only message addressed to one user.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NotifyRequest sends a message to a user, to a course audience, or both.
type NotifyRequest struct {
	Message      string `json:"message" validate:"notblank,max=2000"`
	TargetUserID *int64 `json:"target_user_id" validate:"omitempty,gt=0"`
	CourseID     *int64 `json:"course_id" validate:"omitempty,gt=0"`
}

// NotifyResult lists the users a notify call reached, duplicates included.
type NotifyResult struct {
	Recipients []int64 `json:"recipients"`
}
