// Package app wires the Taskpad backend: account and session lifecycle
// plus owner-scoped task CRUD, exposed over HTTP.
package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskpad/internal/auth"
	"taskpad/internal/authpw"
	"taskpad/internal/config"
	"taskpad/internal/store"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Username     string
	Email        string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	authpw.UserStore
	ListTasks(ctx context.Context, ownerID string) ([]store.Task, error)
	InsertTask(ctx context.Context, task store.Task) (store.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, fields store.TaskFields) error
	DeleteTask(ctx context.Context, ownerID, taskID string) error
	Ping(ctx context.Context) error
}

// sessionStore holds refresh sessions. Postgres implements it directly;
// Redis is preferred when configured.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash string, user store.User, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	accounts *authpw.Service
}

func New(cfg config.Config, backing interface {
	dataStore
	sessionStore
}) *Service {
	return NewWithSessionStore(cfg, backing, backing)
}

func NewWithSessionStore(cfg config.Config, data dataStore, sessions sessionStore) *Service {
	return &Service{
		cfg:      cfg,
		store:    data,
		sessions: sessions,
		accounts: authpw.NewService(data),
	}
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (store.User, error) {
	return s.accounts.SignUp(ctx, req)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.accounts.SignIn(ctx, authpw.SignInRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := auth.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:      user.ID,
		Username: user.Username,
		Email:    user.Email,
		JTI:      jti,
		Exp:      expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := auth.NewID("rft") + auth.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken rebuilds a session from a bearer token. Access tokens
// are self-contained; revocation happens at the refresh-token level.
func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		Username:  claims.Username,
		Email:     claims.Email,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

// SignOut revokes the refresh session. Best effort: a missing or already
// revoked token is not an error.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) ListTasks(ctx context.Context, ownerID string) ([]store.Task, error) {
	return s.store.ListTasks(ctx, ownerID)
}

func (s *Service) CreateTask(ctx context.Context, ownerID, title, description string) (store.Task, error) {
	if strings.TrimSpace(title) == "" {
		return store.Task{}, domainError(http.StatusBadRequest, "TITLE_REQUIRED", "Title must not be empty")
	}
	return s.store.InsertTask(ctx, store.Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		IsComplete:  false,
	})
}

// UpdateTaskInput carries the mutable task fields; nil means unchanged.
// UpdatedAt comes from the client per the sync contract; when zero the
// server stamps the current time.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	IsComplete  *bool
	UpdatedAt   time.Time
}

func (s *Service) UpdateTask(ctx context.Context, ownerID, taskID string, input UpdateTaskInput) error {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return domainError(http.StatusBadRequest, "TITLE_REQUIRED", "Title must not be empty")
	}
	updatedAt := input.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	return s.store.UpdateTask(ctx, ownerID, taskID, store.TaskFields{
		Title:       input.Title,
		Description: input.Description,
		IsComplete:  input.IsComplete,
		UpdatedAt:   updatedAt,
	})
}

func (s *Service) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	return s.store.DeleteTask(ctx, ownerID, taskID)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
