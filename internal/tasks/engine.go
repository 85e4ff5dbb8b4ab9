// Package tasks keeps a local task list consistent with the remote
// store. Every successful mutation is settled by a full authoritative
// reload; the list is always a fetched snapshot, never a locally
// patched one.
package tasks

import (
	"context"
	"strings"
	"sync"
	"time"

	"taskpad/internal/remote"
)

// Store is the remote collaborator, implicitly scoped to the signed-in
// identity.
type Store interface {
	ListTasks(ctx context.Context) ([]remote.Task, error)
	InsertTask(ctx context.Context, title, description string) (remote.Task, error)
	UpdateTask(ctx context.Context, id string, fields remote.TaskFields) error
	DeleteTask(ctx context.Context, id string) error
}

// Notifier receives the single user-visible message each operation
// outcome produces.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Draft is the editing-session state for the one task being edited.
type Draft struct {
	ID          string
	Title       string
	Description string
}

// Engine is the single source of mutation for the task list. Local
// state is mutex-guarded, but remote calls run outside the lock:
// concurrently issued mutations race independently and whichever reload
// resolves last determines the displayed snapshot.
type Engine struct {
	store  Store
	notify Notifier
	now    func() time.Time

	mu                 sync.Mutex
	list               []remote.Task
	editing            *Draft
	composeTitle       string
	composeDescription string
	loading            bool
}

func NewEngine(store Store, notify Notifier) *Engine {
	return &Engine{store: store, notify: notify, now: time.Now}
}

// Tasks returns the last successfully fetched snapshot.
func (e *Engine) Tasks() []remote.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]remote.Task, len(e.list))
	copy(out, e.list)
	return out
}

func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Load replaces the list wholesale with the server's current rows. On
// failure the existing snapshot stays untouched; the loading indicator
// clears either way.
func (e *Engine) Load(ctx context.Context) {
	e.mu.Lock()
	e.loading = true
	e.mu.Unlock()

	tasks, err := e.store.ListTasks(ctx)

	e.mu.Lock()
	if err == nil {
		e.list = tasks
	}
	e.loading = false
	e.mu.Unlock()

	if err != nil {
		e.notify.Error("Error fetching tasks")
	}
}

// SetCompose updates the pending new-task fields.
func (e *Engine) SetCompose(title, description string) {
	e.mu.Lock()
	e.composeTitle = title
	e.composeDescription = description
	e.mu.Unlock()
}

func (e *Engine) Compose() (title, description string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.composeTitle, e.composeDescription
}

// Create inserts a task from the compose fields. A whitespace-only
// title is a silent no-op: no remote call, no notification. On success
// the compose fields clear and the list reloads; on failure they are
// left intact so the input is not lost.
func (e *Engine) Create(ctx context.Context) {
	e.mu.Lock()
	title := e.composeTitle
	description := e.composeDescription
	e.mu.Unlock()

	if strings.TrimSpace(title) == "" {
		return
	}

	if _, err := e.store.InsertTask(ctx, title, description); err != nil {
		e.notify.Error("Error creating task")
		return
	}

	e.mu.Lock()
	e.composeTitle = ""
	e.composeDescription = ""
	e.mu.Unlock()

	e.notify.Success("Task created")
	e.Load(ctx)
}

// StartEdit opens an editing session for task, silently discarding any
// unsaved draft for a different task.
func (e *Engine) StartEdit(task remote.Task) {
	e.mu.Lock()
	e.editing = &Draft{ID: task.ID, Title: task.Title, Description: task.Description}
	e.mu.Unlock()
}

func (e *Engine) CancelEdit() {
	e.mu.Lock()
	e.editing = nil
	e.mu.Unlock()
}

// Editing returns a copy of the current draft, or nil.
func (e *Engine) Editing() *Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.editing == nil {
		return nil
	}
	draft := *e.editing
	return &draft
}

// SetDraft updates the open draft's fields; no-op without an editing
// session.
func (e *Engine) SetDraft(title, description string) {
	e.mu.Lock()
	if e.editing != nil {
		e.editing.Title = title
		e.editing.Description = description
	}
	e.mu.Unlock()
}

// Save commits the editing draft, stamping updated_at from the current
// time at the moment of the call. The draft survives a failed save.
func (e *Engine) Save(ctx context.Context) {
	e.mu.Lock()
	if e.editing == nil {
		e.mu.Unlock()
		return
	}
	draft := *e.editing
	e.mu.Unlock()

	err := e.store.UpdateTask(ctx, draft.ID, remote.TaskFields{
		Title:       &draft.Title,
		Description: &draft.Description,
		UpdatedAt:   e.now(),
	})
	if err != nil {
		e.notify.Error("Error updating task")
		return
	}

	e.mu.Lock()
	if e.editing != nil && e.editing.ID == draft.ID {
		e.editing = nil
	}
	e.mu.Unlock()

	e.notify.Success("Task updated")
	e.Load(ctx)
}

// ToggleComplete flips the completion flag read from the value held
// locally, not re-fetched first. Known race, preserved deliberately:
// two toggles issued before the first's reload completes both read the
// same pre-toggle flag and write the same value.
func (e *Engine) ToggleComplete(ctx context.Context, task remote.Task) {
	flipped := !task.IsComplete
	err := e.store.UpdateTask(ctx, task.ID, remote.TaskFields{
		IsComplete: &flipped,
		UpdatedAt:  e.now(),
	})
	if err != nil {
		e.notify.Error("Error updating task")
		return
	}
	e.Load(ctx)
}

// Remove deletes a task. Any editing session for it is cleared when the
// delete is issued, before the remote call resolves; the row is treated
// as gone either way.
func (e *Engine) Remove(ctx context.Context, id string) {
	e.mu.Lock()
	if e.editing != nil && e.editing.ID == id {
		e.editing = nil
	}
	e.mu.Unlock()

	if err := e.store.DeleteTask(ctx, id); err != nil {
		e.notify.Error("Error deleting task")
		return
	}

	e.notify.Success("Task deleted")
	e.Load(ctx)
}
