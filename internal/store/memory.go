package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process implementation of the same surface as
// PostgresStore. It backs tests and the database-free dev mode.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]User
	byEmail  map[string]string
	tasks    map[string]Task
	seq      map[string]int64 // task id -> insertion order, list tiebreak
	nextSeq  int64
	sessions map[string]memorySession
}

type memorySession struct {
	user      User
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]User),
		byEmail:  make(map[string]string),
		tasks:    make(map[string]Task),
		seq:      make(map[string]int64),
		sessions: make(map[string]memorySession),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[user.Email]; exists {
		return errors.New("email already registered")
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byEmail[email]; ok {
		return m.users[id], nil
	}
	return User{}, sql.ErrNoRows
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return User{}, sql.ErrNoRows
}

func (m *MemoryStore) ListTasks(_ context.Context, ownerID string) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var tasks []Task
	for _, task := range m.tasks {
		if task.OwnerID == ownerID {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return m.seq[tasks[i].ID] > m.seq[tasks[j].ID]
	})
	return tasks, nil
}

func (m *MemoryStore) InsertTask(_ context.Context, task Task) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	m.nextSeq++
	m.seq[task.ID] = m.nextSeq
	m.tasks[task.ID] = task
	return task, nil
}

func (m *MemoryStore) UpdateTask(_ context.Context, ownerID, taskID string, fields TaskFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	if fields.Title != nil {
		task.Title = *fields.Title
	}
	if fields.Description != nil {
		task.Description = *fields.Description
	}
	if fields.IsComplete != nil {
		task.IsComplete = *fields.IsComplete
	}
	task.UpdatedAt = fields.UpdatedAt
	m.tasks[taskID] = task
	return nil
}

func (m *MemoryStore) DeleteTask(_ context.Context, ownerID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok || task.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	delete(m.tasks, taskID)
	delete(m.seq, taskID)
	return nil
}

func (m *MemoryStore) SaveRefreshSession(_ context.Context, tokenHash string, user User, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[tokenHash] = memorySession{user: user, expiresAt: expiresAt}
	return nil
}

func (m *MemoryStore) LookupRefreshSession(_ context.Context, tokenHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[tokenHash]
	if !ok || time.Now().After(session.expiresAt) {
		return User{}, errors.New("token not found or expired")
	}
	return session.user, nil
}

func (m *MemoryStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenHash)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}
