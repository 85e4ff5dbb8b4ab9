package store

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	IsComplete  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFields carries the mutable columns of a task. Nil pointers leave
// the column untouched; UpdatedAt is always written.
type TaskFields struct {
	Title       *string
	Description *string
	IsComplete  *bool
	UpdatedAt   time.Time
}
