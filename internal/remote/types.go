// Package remote is the HTTP client for the Taskpad API. It implements
// the auth gateway and task store collaborators the guard and sync
// engine are written against, and persists session tokens so a session
// survives restarts.
package remote

import "time"

// Identity is an authenticated account.
type Identity struct {
	ID       string
	Username string
	Email    string
}

// Session is token-backed proof of an Identity.
type Session struct {
	Identity  Identity
	ExpiresAt time.Time
}

// Task is a single user-owned to-do item.
type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	IsComplete  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFields carries a partial task update; nil leaves a field
// unchanged. UpdatedAt is stamped by the caller at mutation time.
type TaskFields struct {
	Title       *string
	Description *string
	IsComplete  *bool
	UpdatedAt   time.Time
}
